// Package response builds the candidate list returned for a lookup.
package response

import (
	"net/url"
	"strings"

	"github.com/book-expert/yomitan-audio/internal/core"
)

const (
	audioGetPath = "/audio/get/"
	ttsPath      = "/audio/tts"

	paramAPIKey  = "apiKey"
	paramTerm    = "term"
	paramReading = "reading"
	paramPitch   = "pitch"
)

// Links builds playback URLs against a public base URL. The API key is
// appended only when authentication is enabled.
type Links struct {
	baseURL string
	apiKey  string
}

// NewLinks creates a Links for baseURL (scheme and host, no trailing slash
// needed).
func NewLinks(baseURL string, switches core.Switches, apiKey string) Links {
	links := Links{baseURL: strings.TrimSuffix(baseURL, "/")}
	if switches.AuthEnabled {
		links.apiKey = apiKey
	}

	return links
}

// AudioURL points at a pre-recorded clip. A file of the form "folder/file"
// maps to the three-segment route.
func (l Links) AudioURL(source, file string) string {
	path := audioGetPath + url.PathEscape(source) + "/"

	if folder, name, found := strings.Cut(file, "/"); found {
		path += url.PathEscape(folder) + "/" + url.PathEscape(name)
	} else {
		path += url.PathEscape(file)
	}

	return l.withQuery(path, url.Values{})
}

// TTSURL points at the synthesis endpoint for one pitch candidate.
func (l Links) TTSURL(term, reading, pitch string) string {
	query := url.Values{}
	query.Set(paramTerm, term)
	query.Set(paramReading, reading)
	query.Set(paramPitch, pitch)

	return l.withQuery(ttsPath, query)
}

func (l Links) withQuery(path string, query url.Values) string {
	if l.apiKey != "" {
		query.Set(paramAPIKey, l.apiKey)
	}

	if len(query) == 0 {
		return l.baseURL + path
	}

	return l.baseURL + path + "?" + query.Encode()
}

// Assemble lists pre-recorded clips in rank order, followed by the TTS
// candidates in catalog order.
func Assemble(ranked []core.RankedAudio, ttsCandidates []core.Candidate, links Links) core.Response {
	sources := make([]core.Candidate, 0, len(ranked)+len(ttsCandidates))

	for _, entry := range ranked {
		sources = append(sources, core.Candidate{
			Name: entry.Name,
			URL:  links.AudioURL(entry.Source, entry.File),
		})
	}

	sources = append(sources, ttsCandidates...)

	return core.Response{Type: core.ResponseTypeAudioSourceList, AudioSources: sources}
}
