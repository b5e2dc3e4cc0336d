// Package pitch builds the pitch-accent catalog used to offer synthesized
// pronunciations: known dataset entries first, then generated variants the
// dataset does not already list.
package pitch

import (
	"context"
	"sort"

	"github.com/book-expert/logger"

	"github.com/book-expert/yomitan-audio/internal/core"
	"github.com/book-expert/yomitan-audio/internal/variant"
)

const errMsgDatabaseQueryFailed = "Database query failed"

// ReadingInferer guesses a kana reading for a term. An empty result means
// no guess.
type ReadingInferer interface {
	Infer(term string) string
}

// Resolver merges dataset pitch entries with generated variants.
type Resolver struct {
	dataset core.PitchDataset
	log     *logger.Logger
	inferer ReadingInferer
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithReadingInferer makes Resolve generate variants from an inferred
// reading when the request carries none.
func WithReadingInferer(inferer ReadingInferer) Option {
	return func(r *Resolver) {
		r.inferer = inferer
	}
}

// NewResolver creates a Resolver over the given dataset.
func NewResolver(dataset core.PitchDataset, log *logger.Logger, opts ...Option) *Resolver {
	resolver := &Resolver{
		dataset: dataset,
		log:     log,
	}

	for _, opt := range opts {
		opt(resolver)
	}

	return resolver
}

// Resolve returns the catalog for term and reading. Dataset entries are
// sorted by descending usage count with ties kept in dataset order; an empty
// dataset result is replaced by a single sentinel. Generated entries whose
// pitch string the dataset already lists are dropped.
func (r *Resolver) Resolve(ctx context.Context, term, reading string) ([]core.PitchEntry, error) {
	known, err := r.dataset.QueryPitch(ctx, term, reading)
	if err != nil {
		r.log.Error("query_pitch_db_failed: term=%q reading=%q: %v", term, reading, err)

		return nil, core.Upstream(errMsgDatabaseQueryFailed, err)
	}

	sort.SliceStable(known, func(i, j int) bool {
		return known[i].Count > known[j].Count
	})

	existing := make(map[string]struct{}, len(known))
	for _, entry := range known {
		existing[entry.Pitch] = struct{}{}
	}

	if len(known) == 0 {
		known = append(known, Sentinel(term, reading))
	}

	catalog := known

	for _, forced := range Forced(term, reading, r.generatorInput(term, reading)) {
		if _, dup := existing[forced.Pitch]; dup {
			continue
		}

		catalog = append(catalog, forced)
	}

	return catalog, nil
}

func (r *Resolver) generatorInput(term, reading string) string {
	if reading != "" || r.inferer == nil {
		return reading
	}

	inferred := r.inferer.Infer(term)
	if inferred != "" {
		r.log.Info("inferred_reading: term=%q reading=%q", term, inferred)
	}

	return inferred
}

// Sentinel returns the placeholder entry used when the dataset knows nothing.
func Sentinel(term, reading string) core.PitchEntry {
	return core.PitchEntry{
		ID:         core.SentinelPitchID,
		Expression: term,
		Reading:    reading,
		Pitch:      "",
		Count:      0,
		Origin:     core.PitchSentinel,
	}
}

// Forced wraps every generated variant of source as a synthetic entry for
// term and reading, in generator order.
func Forced(term, reading, source string) []core.PitchEntry {
	variants := variant.Generate(source)
	entries := make([]core.PitchEntry, 0, len(variants))

	for _, pitch := range variants {
		entries = append(entries, core.PitchEntry{
			ID:         core.ForcedPitchID,
			Expression: term,
			Reading:    reading,
			Pitch:      pitch,
			Count:      0,
			Origin:     core.PitchForced,
		})
	}

	return entries
}
