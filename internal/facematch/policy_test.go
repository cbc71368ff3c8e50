package facematch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPolicy(t *testing.T) {
	for _, th := range []float64{0.01, 0.5, 0.85, 1} {
		p, err := NewPolicy(th)
		require.NoError(t, err)
		assert.Equal(t, th, p.Threshold())
	}

	for _, th := range []float64{0, -0.5, 1.01, 2} {
		_, err := NewPolicy(th)
		assert.ErrorIs(t, err, ErrInvalidThreshold, "threshold %v", th)
	}

	assert.Equal(t, DefaultThreshold, DefaultPolicy().Threshold())
}

func TestDecideRegistration(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		name    string
		highest float64
		found   bool
		want    OutcomeKind
	}{
		{"nothing comparable", 0, false, OutcomeRegistered},
		{"score ignored without comparisons", 0.99, false, OutcomeRegistered},
		{"well below", 0.2, true, OutcomeRegistered},
		{"just below", 0.8499, true, OutcomeRegistered},
		{"at threshold", 0.85, true, OutcomeDuplicateRejected},
		{"identical", 1, true, OutcomeDuplicateRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := p.DecideRegistration("02230001", tt.highest, tt.found)
			assert.Equal(t, tt.want, out.Kind)
			assert.Equal(t, tt.found, out.HasScore)
		})
	}
}

func TestDecideRegistrationMessages(t *testing.T) {
	p := DefaultPolicy()

	out := p.DecideRegistration("02230001", 1, true)
	assert.Equal(t, MsgDuplicate, out.Message)
	assert.Empty(t, out.Identity)
	assert.False(t, out.Success())

	out = p.DecideRegistration("02230001", 0.1, true)
	assert.Equal(t, MsgRegistered, out.Message)
	assert.Equal(t, "02230001", out.Identity)
	assert.True(t, out.Success())
}

func TestDecideRecognitionEmpty(t *testing.T) {
	out := DefaultPolicy().DecideRecognition(nil)
	assert.Equal(t, OutcomeNoMatchNoData, out.Kind)
	assert.Equal(t, MsgNoData, out.Message)
	assert.Equal(t, HintNoData, out.Hint)
	assert.Nil(t, out.Best)
	assert.False(t, out.Success())
}

func TestDecideRecognitionMatched(t *testing.T) {
	ranked := []SimilarityResult{
		{Identity: "02230001", DisplayName: "Pema Dorji", Score: 0.9},
		{Identity: "02230002", DisplayName: "Karma", Score: 0.3},
	}

	out := DefaultPolicy().DecideRecognition(ranked)
	assert.Equal(t, OutcomeMatched, out.Kind)
	assert.Equal(t, "Face matched with student: Pema Dorji", out.Message)
	require.NotNil(t, out.Best)
	assert.Equal(t, ranked[0], *out.Best)
	assert.Equal(t, ranked, out.Matches)
	assert.True(t, out.Success())
}

func TestDecideRecognitionBelowThreshold(t *testing.T) {
	ranked := []SimilarityResult{{Identity: "02230002", DisplayName: "Karma", Score: 0.84}}

	out := DefaultPolicy().DecideRecognition(ranked)
	assert.Equal(t, OutcomeNoMatchBelowThreshold, out.Kind)
	assert.Equal(t, MsgNoMatch, out.Message)
	require.NotNil(t, out.Best)
	assert.Equal(t, "02230002", out.Best.Identity)
	assert.Len(t, out.Matches, 1)
	assert.True(t, out.Success())
}

func TestDecideRecognitionCustomThreshold(t *testing.T) {
	p, err := NewPolicy(0.5)
	require.NoError(t, err)

	out := p.DecideRecognition([]SimilarityResult{{Identity: "x", DisplayName: "X", Score: 0.6}})
	assert.Equal(t, OutcomeMatched, out.Kind)
}

// End to end over the engine: the scenarios a registration or recognition request can hit.

func TestRegistrationIdenticalVectorRejected(t *testing.T) {
	e := newTestEngine(3)
	corpus := []Record{record("02230001", "Pema", ValuesEmbedding([]float32{1, 0, 0}))}

	highest, found, err := e.CheckDuplicate(context.Background(), query, corpus)
	require.NoError(t, err)

	out := DefaultPolicy().DecideRegistration("02230009", highest, found)
	assert.Equal(t, OutcomeDuplicateRejected, out.Kind)
	assert.InDelta(t, 1.0, out.HighestScore, 1e-9)
}

func TestRegistrationOnlyInvalidRecordsRegisters(t *testing.T) {
	e := newTestEngine(3)
	corpus := []Record{
		record("x", "X", NullEmbedding()),
		record("y", "Y", ValuesEmbedding([]float32{1, 0, 0, 0})),
	}

	highest, found, err := e.CheckDuplicate(context.Background(), query, corpus)
	require.NoError(t, err)
	assert.False(t, found)

	out := DefaultPolicy().DecideRegistration("02230009", highest, found)
	assert.Equal(t, OutcomeRegistered, out.Kind)
}

func TestRecognitionEmptyCorpusIsNoData(t *testing.T) {
	ranked, err := newTestEngine(3).FindBest(context.Background(), query, nil)
	require.NoError(t, err)

	out := DefaultPolicy().DecideRecognition(ranked)
	assert.Equal(t, OutcomeNoMatchNoData, out.Kind)
	assert.NotEqual(t, OutcomeNoMatchBelowThreshold, out.Kind)
}

func TestRecognitionTwoRecords(t *testing.T) {
	corpus := []Record{
		record("low", "Low", ValuesEmbedding(vectorWithScore(0.3))),
		record("high", "High", ValuesEmbedding(vectorWithScore(0.9))),
	}

	ranked, err := newTestEngine(3).FindBest(context.Background(), query, corpus)
	require.NoError(t, err)
	require.Len(t, ranked, 2)
	assert.Equal(t, "high", ranked[0].Identity)

	out := DefaultPolicy().DecideRecognition(ranked)
	assert.Equal(t, OutcomeMatched, out.Kind)
	assert.Equal(t, "high", out.Best.Identity)
	assert.Len(t, out.Matches, 2)
}

func TestRecognitionOnlyMalformedIsNoData(t *testing.T) {
	corpus := []Record{record("short", "Short", ValuesEmbedding([]float32{1, 0}))}

	ranked, err := newTestEngine(3).FindBest(context.Background(), query, corpus)
	require.NoError(t, err)
	assert.Empty(t, ranked)

	out := DefaultPolicy().DecideRecognition(ranked)
	assert.Equal(t, OutcomeNoMatchNoData, out.Kind)
}
