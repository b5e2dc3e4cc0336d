package core

// AudioEntry is one pre-recorded audio record.
type AudioEntry struct {
	Expression string
	Reading    string
	Source     string
	// File is the object name under the source folder, optionally "folder/file".
	File string
	// Display is the dataset's own label for the clip, if any.
	Display string
}

// MatchQuality classifies how a record matches the requested term and reading.
// Lower values rank first.
type MatchQuality int

const (
	MatchExpressionAndReading MatchQuality = iota
	MatchExpression
	MatchReading
	MatchNone
)

// Tag returns the label suffix for q, empty for MatchNone.
func (q MatchQuality) Tag() string {
	switch q {
	case MatchExpressionAndReading:
		return " (E+R)"
	case MatchExpression:
		return " (E)"
	case MatchReading:
		return " (R)"
	case MatchNone:
		return ""
	}

	return ""
}

// RankedAudio is an AudioEntry with its computed label and match quality.
type RankedAudio struct {
	AudioEntry

	Name    string
	Quality MatchQuality
	// Sentence carries the dataset display field as sentence context.
	Sentence string
}

// PitchOrigin records where a PitchEntry came from.
type PitchOrigin int

const (
	// PitchFromDataset entries were read from the pitch-accent dataset.
	PitchFromDataset PitchOrigin = iota
	// PitchSentinel stands in for an empty dataset result.
	PitchSentinel
	// PitchForced entries were produced by the variant generator.
	PitchForced
)

// Identifiers used for synthetic pitch entries.
const (
	SentinelPitchID = "Default - No DB"
	ForcedPitchID   = "Forced"
)

// PitchEntry is one pitch-accent candidate for synthesis.
type PitchEntry struct {
	ID         string
	Expression string
	Reading    string
	// Pitch is the reading with a drop marker, or empty for no annotation.
	Pitch  string
	Count  int
	Origin PitchOrigin
}

// Candidate is one playable audio option returned to the client.
type Candidate struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// ResponseTypeAudioSourceList is the type tag of a candidate list response.
const ResponseTypeAudioSourceList = "audioSourceList"

// Response is the ordered candidate list for a lookup.
type Response struct {
	Type         string      `json:"type"`
	AudioSources []Candidate `json:"audioSources"`
}
