package tts

import (
	"fmt"
	"html"

	"github.com/book-expert/yomitan-audio/internal/core"
)

// DefaultPhonemeAlphabet is the phoneme alphabet understood for kana pitch
// strings with a drop marker.
const DefaultPhonemeAlphabet = "x-amazon-pron-kana"

// GooglePhonemeAlphabet is the kana phoneme alphabet of Google Cloud TTS.
const GooglePhonemeAlphabet = "yomigana"

const (
	ssmlPitchFormat    = `<speak><phoneme alphabet="%s" ph="%s">%s</phoneme></speak>`
	ssmlRubyFormat     = `<speak><phoneme type="ruby" ph="%s">%s</phoneme></speak>`
	ssmlSubAliasFormat = `<speak><sub alias="%s">%s</sub></speak>`
)

// InputBuilder turns a term, reading and pitch into a synthesis request.
type InputBuilder struct {
	Alphabet string
	// SubAliasReading renders a reading hint as <sub alias>, for engines
	// without ruby phonemes.
	SubAliasReading bool
}

// NewInputBuilder returns a builder using alphabet, or the default when empty.
func NewInputBuilder(alphabet string) InputBuilder {
	if alphabet == "" {
		alphabet = DefaultPhonemeAlphabet
	}

	return InputBuilder{Alphabet: alphabet}
}

// NewGoogleInputBuilder returns a builder emitting markup Google Cloud TTS
// accepts. An empty alphabet selects GooglePhonemeAlphabet.
func NewGoogleInputBuilder(alphabet string) InputBuilder {
	if alphabet == "" {
		alphabet = GooglePhonemeAlphabet
	}

	return InputBuilder{Alphabet: alphabet, SubAliasReading: true}
}

// Build picks the annotation for the request. A pitch string wins; a reading
// equal to the term needs no markup; any other reading becomes a ruby hint.
func (b InputBuilder) Build(term, reading, pitch string) core.SynthesisInput {
	switch {
	case term != "" && pitch != "":
		return core.SynthesisInput{
			Text:     fmt.Sprintf(ssmlPitchFormat, b.Alphabet, html.EscapeString(pitch), html.EscapeString(term)),
			TextType: core.TextTypeSSML,
		}
	case term == reading:
		return core.SynthesisInput{Text: term, TextType: core.TextTypePlain}
	case term != "" && reading != "":
		format := ssmlRubyFormat
		if b.SubAliasReading {
			format = ssmlSubAliasFormat
		}

		return core.SynthesisInput{
			Text:     fmt.Sprintf(format, html.EscapeString(reading), html.EscapeString(term)),
			TextType: core.TextTypeSSML,
		}
	default:
		return core.SynthesisInput{Text: term, TextType: core.TextTypePlain}
	}
}
