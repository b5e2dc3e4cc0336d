// Package reading guesses the kana reading of a term with a morphological
// analyzer.
package reading

import (
	"fmt"
	"strings"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"

	"github.com/book-expert/yomitan-audio/internal/kana"
)

// IPA feature index holding the katakana reading.
const readingFeature = 7

const unknownFeature = "*"

// Inferer derives hiragana readings from the IPA dictionary.
type Inferer struct {
	t *tokenizer.Tokenizer
}

// NewInferer loads the dictionary and creates a tokenizer.
func NewInferer() (*Inferer, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, fmt.Errorf("failed to create tokenizer: %w", err)
	}

	return &Inferer{t: t}, nil
}

// Infer returns the hiragana reading of term, or "" when any token has no
// known reading.
func (i *Inferer) Infer(term string) string {
	if term == "" {
		return ""
	}

	if kana.IsKana(term) {
		return kana.ToHiragana(term)
	}

	var builder strings.Builder

	for _, token := range i.t.Tokenize(term) {
		if token.Class == tokenizer.DUMMY || strings.TrimSpace(token.Surface) == "" {
			continue
		}

		features := token.Features()

		switch {
		case len(features) > readingFeature && features[readingFeature] != unknownFeature:
			builder.WriteString(features[readingFeature])
		case kana.IsKana(token.Surface):
			builder.WriteString(token.Surface)
		default:
			return ""
		}
	}

	return kana.ToHiragana(builder.String())
}
