package ttscache

import (
	"fmt"

	"github.com/book-expert/yomitan-audio/internal/core"
)

const labelPrefix = "TTS"

// URLBuilder produces the playback URL of a TTS resolution.
type URLBuilder interface {
	TTSURL(term, reading, pitch string) string
}

// ListCandidates turns a resolved pitch catalog into playable TTS candidates.
// It returns nothing when TTS is switched off or excluded by sources.
func ListCandidates(
	switches core.Switches,
	sources core.SourceSet,
	catalog []core.PitchEntry,
	urls URLBuilder,
) []core.Candidate {
	if !switches.TTSEnabled || !sources.AllowsTTS() {
		return nil
	}

	candidates := make([]core.Candidate, 0, len(catalog))
	for _, entry := range catalog {
		candidates = append(candidates, core.Candidate{
			Name: Label(entry),
			URL:  urls.TTSURL(entry.Expression, entry.Reading, entry.Pitch),
		})
	}

	return candidates
}

// Label names a catalog entry: "TTS (<pitch> Pitch DB)" for dataset rows,
// "TTS (<pitch> Forced)" for generated ones, "TTS (<id>)" without a pitch.
func Label(entry core.PitchEntry) string {
	switch {
	case entry.Origin == core.PitchFromDataset:
		return fmt.Sprintf("%s (%s Pitch DB)", labelPrefix, entry.Pitch)
	case entry.Pitch != "":
		return fmt.Sprintf("%s (%s %s)", labelPrefix, entry.Pitch, entry.ID)
	default:
		return fmt.Sprintf("%s (%s)", labelPrefix, entry.ID)
	}
}
