package httpapi

import (
	"net/url"
	"strings"

	"github.com/book-expert/yomitan-audio/internal/core"
	"github.com/book-expert/yomitan-audio/internal/kana"
	"github.com/book-expert/yomitan-audio/internal/text"
)

// Query parameter names.
const (
	paramTerm    = "term"
	paramReading = "reading"
	paramSources = "sources"
	paramPitch   = "pitch"
	paramAPIKey  = "apiKey"
)

// Client-facing validation messages.
const (
	errMsgMissingTermReading = "Missing required parameters: term or reading"
	errMsgEmptyTerm          = "Empty parameters: term cannot be empty"
	errMsgTermTooLong        = "Term parameter is too long (max 120 characters)"
	errMsgReadingTooLong     = "Reading parameter is too long (max 120 characters)"
)

// firstValue returns the first value of name and whether the parameter was
// present at all. Repeated parameters collapse to their first value.
func firstValue(query url.Values, name string) (string, bool) {
	values, ok := query[name]
	if !ok {
		return "", false
	}

	if len(values) == 0 {
		return "", true
	}

	return values[0], true
}

// parseTermReading extracts the cleaned term and the hiragana reading. A
// missing term falls back to the reading.
func parseTermReading(query url.Values, pre *text.Preprocessor) (string, string, error) {
	rawTerm, hasTerm := firstValue(query, paramTerm)
	rawReading, hasReading := firstValue(query, paramReading)

	if !hasTerm && !hasReading {
		return "", "", core.BadRequest(errMsgMissingTermReading)
	}

	term := rawTerm
	if term == "" {
		term = rawReading
	}

	term = pre.CleanField(term)

	reading := ""
	if !text.IsAbsentValue(rawReading) {
		reading = pre.CleanField(rawReading)
	}

	switch {
	case term == "":
		return "", "", core.BadRequest(errMsgEmptyTerm)
	case text.TooLong(term):
		return "", "", core.BadRequest(errMsgTermTooLong)
	case text.TooLong(reading):
		return "", "", core.BadRequest(errMsgReadingTooLong)
	}

	return term, kana.ToHiragana(reading), nil
}

// parseSources accepts repeated and comma-separated values. Unknown tags are
// dropped and an empty result means every source.
func parseSources(query url.Values) core.SourceSet {
	var raw []string
	for _, value := range query[paramSources] {
		raw = append(raw, strings.Split(value, ",")...)
	}

	return core.NewSourceSet(raw...)
}

func parsePitch(query url.Values) string {
	pitch, _ := firstValue(query, paramPitch)

	return pitch
}
