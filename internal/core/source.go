package core

import "strings"

// AudioSource is one of the closed set of audio provider tags.
type AudioSource string

// Known audio sources. SourceAll is the wildcard and SourceTTS the
// synthesized-audio tag.
const (
	SourceAll         AudioSource = "all"
	SourceNHK16       AudioSource = "nhk16"
	SourceDaijisen    AudioSource = "daijisen"
	SourceShinmeikai8 AudioSource = "shinmeikai8"
	SourceJPod        AudioSource = "jpod"
	SourceTAAS        AudioSource = "taas"
	SourceOZK5        AudioSource = "ozk5"
	SourceForvo       AudioSource = "forvo"
	SourceForvoExt    AudioSource = "forvo_ext"
	SourceForvoExt2   AudioSource = "forvo_ext2"
	SourceTTS         AudioSource = "tts"
)

var knownSources = map[AudioSource]struct{}{
	SourceAll: {}, SourceNHK16: {}, SourceDaijisen: {}, SourceShinmeikai8: {},
	SourceJPod: {}, SourceTAAS: {}, SourceOZK5: {}, SourceForvo: {},
	SourceForvoExt: {}, SourceForvoExt2: {}, SourceTTS: {},
}

// ParseAudioSource returns the source named by raw and whether it is known.
func ParseAudioSource(raw string) (AudioSource, bool) {
	source := AudioSource(strings.TrimSpace(raw))
	_, ok := knownSources[source]

	return source, ok
}

// SourceSet is a validated, ordered, duplicate-free list of sources. The
// zero value behaves as {all}.
type SourceSet struct {
	sources []AudioSource
}

// NewSourceSet keeps the recognised values of raw in order and drops the
// rest. An empty result defaults to {all}.
func NewSourceSet(raw ...string) SourceSet {
	seen := make(map[AudioSource]struct{}, len(raw))
	sources := make([]AudioSource, 0, len(raw))

	for _, value := range raw {
		source, ok := ParseAudioSource(value)
		if !ok {
			continue
		}

		if _, dup := seen[source]; dup {
			continue
		}

		seen[source] = struct{}{}
		sources = append(sources, source)
	}

	return SourceSet{sources: sources}
}

// List returns the sources in the set, {all} for an empty set.
func (s SourceSet) List() []AudioSource {
	if len(s.sources) == 0 {
		return []AudioSource{SourceAll}
	}

	out := make([]AudioSource, len(s.sources))
	copy(out, s.sources)

	return out
}

// Has reports whether source is listed explicitly (or is all for an empty set).
func (s SourceSet) Has(source AudioSource) bool {
	for _, listed := range s.List() {
		if listed == source {
			return true
		}
	}

	return false
}

// IncludesAll reports whether the set contains the wildcard.
func (s SourceSet) IncludesAll() bool {
	return s.Has(SourceAll)
}

// AllowsTTS reports whether synthesized candidates are wanted.
func (s SourceSet) AllowsTTS() bool {
	return s.IncludesAll() || s.Has(SourceTTS)
}

// Strings returns the set as plain strings.
func (s SourceSet) Strings() []string {
	list := s.List()
	out := make([]string, len(list))

	for i, source := range list {
		out[i] = string(source)
	}

	return out
}
