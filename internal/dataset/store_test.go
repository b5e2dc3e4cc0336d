package dataset_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/book-expert/yomitan-audio/internal/core"
	"github.com/book-expert/yomitan-audio/internal/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *dataset.Store {
	t.Helper()

	db, err := dataset.Open(context.Background(), ":memory:")
	require.NoError(t, err)

	t.Cleanup(func() { _ = db.Close() })

	return dataset.NewStore(db)
}

func seedAudio(t *testing.T, store *dataset.Store, entries ...core.AudioEntry) {
	t.Helper()

	for _, entry := range entries {
		require.NoError(t, store.InsertAudioEntry(context.Background(), entry))
	}
}

func TestQueryAudio_ByExpressionOnly(t *testing.T) {
	t.Parallel()

	store := setupTestStore(t)
	seedAudio(t, store,
		core.AudioEntry{Expression: "猫", Reading: "ねこ", Source: "nhk16", File: "neko.mp3"},
		core.AudioEntry{Expression: "ねこ", Reading: "ねこ", Source: "jpod", File: "neko2.mp3"},
	)

	entries, err := store.QueryAudio(context.Background(), core.AudioQuery{Term: "猫"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "neko.mp3", entries[0].File)
}

func TestQueryAudio_ExpressionOrReading(t *testing.T) {
	t.Parallel()

	store := setupTestStore(t)
	seedAudio(t, store,
		core.AudioEntry{Expression: "行く", Reading: "いく", Source: "nhk16", File: "a.mp3"},
		core.AudioEntry{Expression: "逝く", Reading: "いく", Source: "forvo", File: "b.mp3", Display: "speaker1"},
		core.AudioEntry{Expression: "来る", Reading: "くる", Source: "nhk16", File: "c.mp3"},
	)

	entries, err := store.QueryAudio(context.Background(), core.AudioQuery{Term: "行く", Reading: "いく"})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a.mp3", entries[0].File)
	assert.Equal(t, "b.mp3", entries[1].File)
	assert.Equal(t, "speaker1", entries[1].Display)
	assert.Empty(t, entries[0].Display)
}

func TestQueryAudio_SourceFilter(t *testing.T) {
	t.Parallel()

	store := setupTestStore(t)
	seedAudio(t, store,
		core.AudioEntry{Expression: "猫", Reading: "ねこ", Source: "nhk16", File: "a.mp3"},
		core.AudioEntry{Expression: "猫", Reading: "ねこ", Source: "forvo", File: "b.mp3"},
		core.AudioEntry{Expression: "猫", Reading: "ねこ", Source: "jpod", File: "c.mp3"},
	)

	entries, err := store.QueryAudio(context.Background(), core.AudioQuery{
		Term:    "猫",
		Sources: core.NewSourceSet("forvo", "jpod"),
	})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "forvo", entries[0].Source)
	assert.Equal(t, "jpod", entries[1].Source)

	entries, err = store.QueryAudio(context.Background(), core.AudioQuery{
		Term:    "猫",
		Sources: core.NewSourceSet("forvo", "all"),
	})
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestQueryPitch(t *testing.T) {
	t.Parallel()

	store := setupTestStore(t)
	ctx := context.Background()

	firstID, err := store.InsertPitchEntry(ctx, core.PitchEntry{Expression: "箸", Reading: "はし", Pitch: "ハ'シ", Count: 3})
	require.NoError(t, err)

	_, err = store.InsertPitchEntry(ctx, core.PitchEntry{Expression: "箸", Reading: "はし", Pitch: "ハシ'", Count: 9})
	require.NoError(t, err)

	_, err = store.InsertPitchEntry(ctx, core.PitchEntry{Expression: "箸", Reading: "ばし", Pitch: "バシ", Count: 1})
	require.NoError(t, err)

	entries, err := store.QueryPitch(ctx, "箸", "はし")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "ハ'シ", entries[0].Pitch)
	assert.Equal(t, 3, entries[0].Count)
	assert.Equal(t, core.PitchFromDataset, entries[0].Origin)
	assert.NotEmpty(t, entries[0].ID)
	assert.Positive(t, firstID)

	entries, err = store.QueryPitch(ctx, "箸", "")
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestQueryPitch_ClosedDatabase(t *testing.T) {
	t.Parallel()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	store := dataset.NewStore(db)

	_, err = store.QueryPitch(context.Background(), "箸", "")
	require.Error(t, err)
}

func TestInsertAudioEntry_EmptyExpression(t *testing.T) {
	t.Parallel()

	store := setupTestStore(t)

	err := store.InsertAudioEntry(context.Background(), core.AudioEntry{Source: "nhk16", File: "x.mp3"})
	require.ErrorIs(t, err, dataset.ErrExpressionEmpty)
}
