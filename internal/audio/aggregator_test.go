package audio_test

import (
	"context"
	"errors"
	"testing"

	"github.com/book-expert/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/yomitan-audio/internal/audio"
	"github.com/book-expert/yomitan-audio/internal/core"
)

var errMockQuery = errors.New("mock query error")

type mockAudioDataset struct {
	entries    []core.AudioEntry
	shouldFail bool
	gotQuery   core.AudioQuery
}

func (m *mockAudioDataset) QueryAudio(_ context.Context, query core.AudioQuery) ([]core.AudioEntry, error) {
	m.gotQuery = query

	if m.shouldFail {
		return nil, errMockQuery
	}

	return m.entries, nil
}

func createTestLogger(t *testing.T) *logger.Logger {
	t.Helper()

	log, err := logger.New(t.TempDir(), "test.log")
	require.NoError(t, err)

	t.Cleanup(func() { _ = log.Close() })

	return log
}

func names(ranked []core.RankedAudio) []string {
	out := make([]string, len(ranked))
	for i, entry := range ranked {
		out[i] = entry.Name
	}

	return out
}

func TestDisplayName(t *testing.T) {
	t.Parallel()

	entry := core.AudioEntry{Expression: "行く", Reading: "いく", Source: "forvo", Display: "akitomo"}

	assert.Equal(t, "forvo: akitomo (E+R)", audio.DisplayName(entry, audio.Classify(entry, "行く", "いく")))
	assert.Equal(t, "forvo: akitomo (E)", audio.DisplayName(entry, audio.Classify(entry, "行く", "ゆく")))
	assert.Equal(t, "forvo: akitomo (R)", audio.DisplayName(entry, audio.Classify(entry, "逝く", "いく")))
	assert.Equal(t, "forvo: akitomo", audio.DisplayName(entry, audio.Classify(entry, "来る", "くる")))

	entry.Display = ""
	assert.Equal(t, "forvo (E)", audio.DisplayName(entry, audio.Classify(entry, "行く", "")))
}

func TestRank_MatchTiersAndStability(t *testing.T) {
	t.Parallel()

	entries := []core.AudioEntry{
		{Expression: "x", Reading: "none", Source: "nhk16", File: "unlabelled-1"},
		{Expression: "逝く", Reading: "いく", Source: "nhk16", File: "r-1"},
		{Expression: "行く", Reading: "ゆく", Source: "jpod", File: "e-1"},
		{Expression: "行く", Reading: "いく", Source: "forvo", File: "er-1"},
		{Expression: "行く", Reading: "ゆく", Source: "nhk16", File: "e-2"},
		{Expression: "y", Reading: "none", Source: "jpod", File: "unlabelled-2"},
		{Expression: "行く", Reading: "いく", Source: "jpod", File: "er-2"},
		{Expression: "往く", Reading: "いく", Source: "forvo", File: "r-2"},
	}

	ranked := audio.Rank(audio.Label(entries, "行く", "いく"))

	files := make([]string, len(ranked))
	for i, entry := range ranked {
		files[i] = entry.File
	}

	assert.Equal(t, []string{"er-1", "er-2", "e-1", "e-2", "r-1", "r-2", "unlabelled-1", "unlabelled-2"}, files)
}

func TestRank_SourcePriorityWithinTier(t *testing.T) {
	t.Parallel()

	entries := []core.AudioEntry{
		{Expression: "猫", Source: "forvo", File: "1"},
		{Expression: "猫", Source: "alt", File: "2"},
		{Expression: "猫", Source: "core", File: "3"},
	}

	ranked := audio.Rank(audio.Label(entries, "猫", ""))

	assert.Equal(t, []string{"core (E)", "alt (E)", "forvo (E)"}, names(ranked))
}

func TestLabel_SentenceCarriesDisplay(t *testing.T) {
	t.Parallel()

	labelled := audio.Label([]core.AudioEntry{{Expression: "猫", Source: "taas", Display: "猫がいる。"}}, "猫", "")

	require.Len(t, labelled, 1)
	assert.Equal(t, "猫がいる。", labelled[0].Sentence)
	assert.Equal(t, "taas: 猫がいる。 (E)", labelled[0].Name)
}

func TestCandidates_NormalisesReading(t *testing.T) {
	t.Parallel()

	dataset := &mockAudioDataset{entries: []core.AudioEntry{
		{Expression: "猫", Reading: "ねこ", Source: "nhk16", File: "neko.mp3"},
	}}
	aggregator := audio.NewAggregator(dataset, createTestLogger(t))

	ranked, err := aggregator.Candidates(context.Background(), "猫", "ネコ", core.NewSourceSet("nhk16"))
	require.NoError(t, err)

	assert.Equal(t, "ねこ", dataset.gotQuery.Reading)
	assert.Equal(t, []string{"nhk16"}, dataset.gotQuery.Sources.Strings())
	assert.Equal(t, []string{"nhk16 (E+R)"}, names(ranked))
}

func TestCandidates_TermOnly(t *testing.T) {
	t.Parallel()

	dataset := &mockAudioDataset{entries: []core.AudioEntry{
		{Expression: "猫", Reading: "ねこ", Source: "nhk16", File: "neko.mp3"},
	}}
	aggregator := audio.NewAggregator(dataset, createTestLogger(t))

	ranked, err := aggregator.Candidates(context.Background(), "猫", "", core.SourceSet{})
	require.NoError(t, err)
	require.Len(t, ranked, 1)
	assert.Contains(t, ranked[0].Name, "(E)")
}

func TestCandidates_DatasetFailure(t *testing.T) {
	t.Parallel()

	aggregator := audio.NewAggregator(&mockAudioDataset{shouldFail: true}, createTestLogger(t))

	_, err := aggregator.Candidates(context.Background(), "猫", "", core.SourceSet{})
	require.ErrorIs(t, err, errMockQuery)
	assert.Equal(t, core.KindUpstream, core.KindOf(err))
}
