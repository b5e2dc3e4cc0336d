// Package tts binds external speech synthesizers to core.Synthesizer.
//
// HTTPClient talks to a standalone synthesis service over JSON; the Google
// backend calls Cloud Text-to-Speech directly. Both return MP3 bytes.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/book-expert/yomitan-audio/internal/core"
)

// API endpoints and paths.
const (
	apiSynthesize = "/v1/synthesize"
	apiHealth     = "/health"
)

// HTTP headers.
const (
	headerContentType = "Content-Type"
	headerAccept      = "Accept"
	contentTypeJSON   = "application/json"
	contentTypeMPEG   = "audio/mpeg"
)

// Default values.
const (
	defaultVoice        = "Tomoko"
	defaultLanguage     = "ja-JP"
	defaultOutputFormat = "mp3"
	maxErrorBodyBytes   = 4096
)

// Error messages.
const (
	errFmtUnexpectedContentType = "unexpected content type: expected audio/mpeg, got %s"
	errFmtServiceErrorWithCode  = "TTS service error (%s): %s (code: %s)"
	errFmtServiceNonOKStatus    = "TTS service returned non-OK status: %s, body: %s"
)

// Static errors.
var (
	ErrTextEmpty          = errors.New("text cannot be empty")
	ErrReceivedEmptyAudio = errors.New("received empty audio data")
)

// StatusError is returned when the synthesis service answers with a
// non-success status.
type StatusError struct {
	StatusCode int
	Err        error
}

func (e *StatusError) Error() string { return e.Err.Error() }

func (e *StatusError) Unwrap() error { return e.Err }

// SynthesisRequest is the JSON payload sent to the synthesis service.
type SynthesisRequest struct {
	Text         string `json:"text"`
	TextType     string `json:"text_type"`
	Voice        string `json:"voice"`
	Language     string `json:"language"`
	OutputFormat string `json:"output_format"`
}

// ErrorResponse is a structured error body from the synthesis service.
type ErrorResponse struct {
	Detail    string `json:"detail"`
	ErrorCode string `json:"error_code,omitempty"`
}

// HTTPClient is a client for a standalone synthesis HTTP service.
type HTTPClient struct {
	httpClient *http.Client
	baseURL    string
	voice      string
	language   string
}

// NewHTTPClient creates a client for the service at baseURL (e.g.
// "http://localhost:8000"). The timeout applies to every request.
func NewHTTPClient(baseURL string, timeout time.Duration, voice, language string) *HTTPClient {
	if voice == "" {
		voice = defaultVoice
	}

	if language == "" {
		language = defaultLanguage
	}

	return &HTTPClient{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		voice:    voice,
		language: language,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Synthesize sends input to the service and returns the MP3 audio.
func (c *HTTPClient) Synthesize(ctx context.Context, input core.SynthesisInput) ([]byte, error) {
	if input.Text == "" {
		return nil, ErrTextEmpty
	}

	textType := input.TextType
	if textType == "" {
		textType = core.TextTypePlain
	}

	requestBody, err := json.Marshal(SynthesisRequest{
		Text:         input.Text,
		TextType:     string(textType),
		Voice:        c.voice,
		Language:     c.language,
		OutputFormat: defaultOutputFormat,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+apiSynthesize,
		bytes.NewReader(requestBody),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set(headerContentType, contentTypeJSON)
	httpReq.Header.Set(headerAccept, contentTypeMPEG)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to TTS service at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode, Err: c.parseErrorResponse(resp)}
	}

	contentType := resp.Header.Get(headerContentType)
	if !strings.HasPrefix(contentType, contentTypeMPEG) {
		return nil, fmt.Errorf(errFmtUnexpectedContentType, contentType)
	}

	audioData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio data: %w", err)
	}

	if len(audioData) == 0 {
		return nil, ErrReceivedEmptyAudio
	}

	return audioData, nil
}

// HealthCheck verifies that the synthesis service is up.
func (c *HTTPClient) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+apiHealth, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed for service at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed with status: %s", resp.Status)
	}

	return nil
}

// parseErrorResponse decodes a structured JSON error, falling back to the
// raw body.
func (c *HTTPClient) parseErrorResponse(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))

	var errorResp ErrorResponse

	err := json.Unmarshal(body, &errorResp)
	if err == nil && errorResp.Detail != "" {
		return fmt.Errorf(errFmtServiceErrorWithCode, resp.Status, errorResp.Detail, errorResp.ErrorCode)
	}

	return fmt.Errorf(errFmtServiceNonOKStatus, resp.Status, string(body))
}
