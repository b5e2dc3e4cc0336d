// Package text cleans user-supplied term and reading parameters before they
// reach the lookup pipeline.
package text

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// MaxFieldLength is the longest accepted term or reading, in characters.
const MaxFieldLength = 120

// Regex patterns for field cleaning.
const (
	htmlTagRegexPattern = `<[^>]*>+`
)

// Placeholder values some clients send instead of omitting a parameter.
var absentValues = map[string]struct{}{
	"null":      {},
	"undefined": {},
}

// Preprocessor strips markup and normalises Unicode in query fields.
type Preprocessor struct {
	htmlTagPattern *regexp.Regexp
}

// NewPreprocessor creates a Preprocessor with its patterns compiled.
func NewPreprocessor() *Preprocessor {
	return &Preprocessor{
		htmlTagPattern: regexp.MustCompile(htmlTagRegexPattern),
	}
}

// StripHTML removes anything that looks like an HTML tag.
func (p *Preprocessor) StripHTML(text string) string {
	return p.htmlTagPattern.ReplaceAllString(text, "")
}

// CleanField strips HTML, composes the text to NFC and trims surrounding
// whitespace. A kana followed by a combining voiced mark (U+3099) becomes
// the precomposed voiced kana.
func (p *Preprocessor) CleanField(text string) string {
	if text == "" {
		return ""
	}

	cleaned := p.StripHTML(text)
	cleaned = norm.NFC.String(cleaned)

	return strings.TrimSpace(cleaned)
}

// IsAbsentValue reports whether raw is a placeholder for a missing value.
func IsAbsentValue(raw string) bool {
	_, ok := absentValues[raw]

	return ok
}

// TooLong reports whether text exceeds MaxFieldLength characters.
func TooLong(text string) bool {
	return utf8.RuneCountInString(text) > MaxFieldLength
}
