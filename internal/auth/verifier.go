// Package auth checks API keys presented by clients.
package auth

import (
	"strings"

	"github.com/book-expert/yomitan-audio/internal/core"
)

// Client-facing rejection messages.
const (
	ErrMsgMissingKey   = "Missing API key"
	ErrMsgMalformedKey = "API key provided in unexpected format."
	ErrMsgInvalidKey   = "Invalid API key"
)

// Verifier accepts keys from a fixed allow-list. A disabled Verifier accepts
// every request.
type Verifier struct {
	enabled bool
	keys    map[string]struct{}
}

// NewVerifier creates a Verifier over keys. Blank entries are ignored.
func NewVerifier(enabled bool, keys []string) *Verifier {
	allowed := make(map[string]struct{}, len(keys))

	for _, key := range keys {
		key = strings.TrimSpace(key)
		if key != "" {
			allowed[key] = struct{}{}
		}
	}

	return &Verifier{enabled: enabled, keys: allowed}
}

// Enabled reports whether keys are checked.
func (v *Verifier) Enabled() bool {
	return v.enabled
}

// Verify checks the values of the apiKey parameter. No value is a bad
// request, several values are malformed, an unknown key is forbidden.
func (v *Verifier) Verify(values []string) error {
	if !v.enabled {
		return nil
	}

	switch {
	case len(values) == 0 || values[0] == "":
		return core.BadRequest(ErrMsgMissingKey)
	case len(values) > 1:
		return core.BadRequest(ErrMsgMalformedKey)
	}

	if _, ok := v.keys[values[0]]; !ok {
		return core.Forbidden(ErrMsgInvalidKey)
	}

	return nil
}
