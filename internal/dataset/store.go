package dataset

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/book-expert/yomitan-audio/internal/core"
)

// ErrExpressionEmpty is returned when inserting a record without an expression.
var ErrExpressionEmpty = errors.New("expression must be non-empty")

// Store implements core.AudioDataset and core.PitchDataset over sqlite.
type Store struct {
	db DBExecutor
}

// NewStore wraps an opened and migrated database.
func NewStore(db DBExecutor) *Store {
	return &Store{db: db}
}

// QueryAudio returns entries whose expression equals the term, or whose
// reading equals the reading when one is given, restricted to the listed
// sources unless the set includes all. Rows come back in insertion order.
func (s *Store) QueryAudio(ctx context.Context, query core.AudioQuery) ([]core.AudioEntry, error) {
	condition := "WHERE expression = ?"
	params := []any{query.Term}

	if strings.TrimSpace(query.Reading) != "" {
		condition = "WHERE (expression = ? OR reading = ?)"

		params = append(params, query.Reading)
	}

	if !query.Sources.IncludesAll() {
		sources := query.Sources.Strings()
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(sources)), ", ")
		condition += " AND source IN (" + placeholders + ")"

		for _, source := range sources {
			params = append(params, source)
		}
	}

	statement := "SELECT expression, reading, source, file, display FROM entries " +
		condition + " ORDER BY rowid"

	rows, err := s.db.QueryContext(ctx, statement, params...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audio entries: %w", err)
	}
	defer rows.Close()

	var entries []core.AudioEntry

	for rows.Next() {
		var (
			entry   core.AudioEntry
			display sql.NullString
		)

		err = rows.Scan(&entry.Expression, &entry.Reading, &entry.Source, &entry.File, &display)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audio entry: %w", err)
		}

		entry.Display = display.String
		entries = append(entries, entry)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("failed to iterate audio entries: %w", err)
	}

	return entries, nil
}

// QueryPitch returns pitch-accent rows for the expression, additionally
// requiring the reading when one is given. Rows come back in insertion order.
func (s *Store) QueryPitch(ctx context.Context, term, reading string) ([]core.PitchEntry, error) {
	condition := "WHERE expression = ?"
	params := []any{term}

	if strings.TrimSpace(reading) != "" {
		condition = "WHERE (expression = ? AND reading = ?)"

		params = append(params, reading)
	}

	statement := "SELECT id, expression, reading, pitch, count FROM pitch_accents " +
		condition + " ORDER BY rowid"

	rows, err := s.db.QueryContext(ctx, statement, params...)
	if err != nil {
		return nil, fmt.Errorf("failed to query pitch accents: %w", err)
	}
	defer rows.Close()

	var entries []core.PitchEntry

	for rows.Next() {
		var (
			entry core.PitchEntry
			id    int64
		)

		err = rows.Scan(&id, &entry.Expression, &entry.Reading, &entry.Pitch, &entry.Count)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pitch accent: %w", err)
		}

		entry.ID = strconv.FormatInt(id, 10)
		entry.Origin = core.PitchFromDataset
		entries = append(entries, entry)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("failed to iterate pitch accents: %w", err)
	}

	return entries, nil
}

// InsertAudioEntry appends an audio record.
func (s *Store) InsertAudioEntry(ctx context.Context, entry core.AudioEntry) error {
	if strings.TrimSpace(entry.Expression) == "" {
		return ErrExpressionEmpty
	}

	var display sql.NullString
	if entry.Display != "" {
		display = sql.NullString{String: entry.Display, Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO entries (expression, reading, source, file, display) VALUES (?, ?, ?, ?, ?)`,
		entry.Expression, entry.Reading, entry.Source, entry.File, display,
	)
	if err != nil {
		return fmt.Errorf("insert audio entry: %w", err)
	}

	return nil
}

// InsertPitchEntry appends a pitch-accent record and returns its id.
func (s *Store) InsertPitchEntry(ctx context.Context, entry core.PitchEntry) (int64, error) {
	if strings.TrimSpace(entry.Expression) == "" {
		return 0, ErrExpressionEmpty
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO pitch_accents (expression, reading, pitch, count) VALUES (?, ?, ?, ?)`,
		entry.Expression, entry.Reading, entry.Pitch, entry.Count,
	)
	if err != nil {
		return 0, fmt.Errorf("insert pitch accent: %w", err)
	}

	return res.LastInsertId()
}
