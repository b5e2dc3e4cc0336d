// Package audio ranks pre-recorded pronunciation clips for a lookup.
package audio

import (
	"context"
	"math"
	"sort"

	"github.com/book-expert/logger"

	"github.com/book-expert/yomitan-audio/internal/core"
	"github.com/book-expert/yomitan-audio/internal/kana"
)

const errMsgDatabaseQueryFailed = "Database query failed"

// sourcePriority orders sources within one match tier. Unlisted sources sort
// after the listed ones.
var sourcePriority = map[string]int{
	"core": 0,
	"alt":  1,
}

// Aggregator queries the audio dataset and ranks the results.
type Aggregator struct {
	dataset core.AudioDataset
	log     *logger.Logger
}

// NewAggregator creates an Aggregator over the given dataset.
func NewAggregator(dataset core.AudioDataset, log *logger.Logger) *Aggregator {
	return &Aggregator{dataset: dataset, log: log}
}

// Candidates returns the matching clips for term and reading, labelled and
// ranked. The reading is compared in hiragana.
func (a *Aggregator) Candidates(
	ctx context.Context,
	term, reading string,
	sources core.SourceSet,
) ([]core.RankedAudio, error) {
	reading = kana.ToHiragana(reading)

	entries, err := a.dataset.QueryAudio(ctx, core.AudioQuery{
		Term:    term,
		Reading: reading,
		Sources: sources,
	})
	if err != nil {
		a.log.Error("query_audio_db_failed: term=%q reading=%q: %v", term, reading, err)

		return nil, core.Upstream(errMsgDatabaseQueryFailed, err)
	}

	a.log.Info("db_result_count: term=%q reading=%q sources=%v results=%d",
		term, reading, sources.Strings(), len(entries))

	return Rank(Label(entries, term, reading)), nil
}

// Classify returns how entry matches term and reading. An empty reading
// never counts as a reading match.
func Classify(entry core.AudioEntry, term, reading string) core.MatchQuality {
	expressionMatch := entry.Expression == term
	readingMatch := reading != "" && entry.Reading == reading

	switch {
	case expressionMatch && readingMatch:
		return core.MatchExpressionAndReading
	case expressionMatch:
		return core.MatchExpression
	case readingMatch:
		return core.MatchReading
	default:
		return core.MatchNone
	}
}

// DisplayName builds "<source>[: <display>]<match tag>".
func DisplayName(entry core.AudioEntry, quality core.MatchQuality) string {
	name := entry.Source
	if entry.Display != "" {
		name += ": " + entry.Display
	}

	return name + quality.Tag()
}

// Label computes the display name and match quality of every entry,
// keeping the input order. The dataset display field moves to Sentence.
func Label(entries []core.AudioEntry, term, reading string) []core.RankedAudio {
	labelled := make([]core.RankedAudio, len(entries))

	for i, entry := range entries {
		quality := Classify(entry, term, reading)
		labelled[i] = core.RankedAudio{
			AudioEntry: entry,
			Name:       DisplayName(entry, quality),
			Quality:    quality,
			Sentence:   entry.Display,
		}
	}

	return labelled
}

// Rank sorts by match quality, then source priority. The sort is stable so
// dataset order breaks remaining ties.
func Rank(labelled []core.RankedAudio) []core.RankedAudio {
	ranked := make([]core.RankedAudio, len(labelled))
	copy(ranked, labelled)

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Quality != ranked[j].Quality {
			return ranked[i].Quality < ranked[j].Quality
		}

		return priorityOf(ranked[i].Source) < priorityOf(ranked[j].Source)
	})

	return ranked
}

func priorityOf(source string) int {
	if priority, ok := sourcePriority[source]; ok {
		return priority
	}

	return math.MaxInt
}
