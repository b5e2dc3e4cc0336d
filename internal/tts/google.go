package tts

import (
	"context"
	"fmt"
	"time"

	gctts "cloud.google.com/go/texttospeech/apiv1"
	ttspb "cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/book-expert/logger"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"

	"github.com/book-expert/yomitan-audio/internal/core"
)

// SpeechClient is the subset of the Cloud Text-to-Speech client used here.
type SpeechClient interface {
	SynthesizeSpeech(
		ctx context.Context,
		req *ttspb.SynthesizeSpeechRequest,
		opts ...gax.CallOption,
	) (*ttspb.SynthesizeSpeechResponse, error)
	Close() error
}

// GoogleSynthesizer synthesizes MP3 audio with Google Cloud Text-to-Speech.
type GoogleSynthesizer struct {
	client   SpeechClient
	log      *logger.Logger
	voice    string
	language string
}

// NewGoogleSynthesizer dials Cloud Text-to-Speech. An empty credentialsFile
// uses application default credentials.
func NewGoogleSynthesizer(
	ctx context.Context,
	credentialsFile, voice, language string,
	log *logger.Logger,
) (*GoogleSynthesizer, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := gctts.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create google tts client: %w", err)
	}

	return NewGoogleSynthesizerWithClient(client, voice, language, log), nil
}

// NewGoogleSynthesizerWithClient wraps an existing client.
func NewGoogleSynthesizerWithClient(client SpeechClient, voice, language string, log *logger.Logger) *GoogleSynthesizer {
	if language == "" {
		language = defaultLanguage
	}

	return &GoogleSynthesizer{client: client, log: log, voice: voice, language: language}
}

// Synthesize requests MP3 audio for input.
func (g *GoogleSynthesizer) Synthesize(ctx context.Context, input core.SynthesisInput) ([]byte, error) {
	if input.Text == "" {
		return nil, ErrTextEmpty
	}

	var source *ttspb.SynthesisInput
	if input.TextType == core.TextTypeSSML {
		source = &ttspb.SynthesisInput{InputSource: &ttspb.SynthesisInput_Ssml{Ssml: input.Text}}
	} else {
		source = &ttspb.SynthesisInput{InputSource: &ttspb.SynthesisInput_Text{Text: input.Text}}
	}

	req := &ttspb.SynthesizeSpeechRequest{
		Input: source,
		Voice: &ttspb.VoiceSelectionParams{
			LanguageCode: g.language,
			Name:         g.voice,
		},
		AudioConfig: &ttspb.AudioConfig{AudioEncoding: ttspb.AudioEncoding_MP3},
	}

	started := time.Now()

	resp, err := g.client.SynthesizeSpeech(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("google tts synthesize: %w", err)
	}

	g.log.Info("google_tts_synthesized: type=%s took=%s", input.TextType, time.Since(started))

	audioData := resp.GetAudioContent()
	if len(audioData) == 0 {
		return nil, ErrReceivedEmptyAudio
	}

	return audioData, nil
}

// Close releases the underlying client.
func (g *GoogleSynthesizer) Close() error {
	err := g.client.Close()
	if err != nil {
		return fmt.Errorf("failed to close google tts client: %w", err)
	}

	return nil
}
