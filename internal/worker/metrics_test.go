package worker

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/track-analysis/internal/analysis"
	"github.com/RyanBlaney/track-analysis/pkg/audio/decoder"
	"github.com/RyanBlaney/track-analysis/pkg/logging"
	"github.com/RyanBlaney/track-analysis/pkg/mood"
)

func record(genre string, bpm int, scores mood.Scores) *analysis.Record {
	return &analysis.Record{
		Metadata: analysis.Metadata{Genre: genre, BPM: analysis.IntPtr(bpm)},
		Mood:     scores,
	}
}

func TestCalculateMetrics(t *testing.T) {
	results := []Result{
		{Record: record("House", 120, mood.Scores{mood.Happy: 1, mood.Energetic: 1}), Elapsed: 1 * time.Second},
		{Record: record("House", 128, mood.Scores{mood.Sad: 1, mood.Calm: 1}), Elapsed: 2 * time.Second},
		{Record: record("Techno", 0, mood.Scores{}), Elapsed: 3 * time.Second},
		{Err: fmt.Errorf("analysis: decode x.wav: %w",
			decoder.NewDecodeError("x.wav", decoder.ErrCodeCorrupt, "bad", nil)), Elapsed: 4 * time.Second},
		{Err: context.DeadlineExceeded, Elapsed: 5 * time.Second},
	}

	m := NewMetricsCalculator(logging.NewNop()).Calculate(results)

	assert.Equal(t, 5, m.Files)
	assert.Equal(t, 3, m.Succeeded)
	assert.Equal(t, 2, m.Failed)
	assert.InDelta(t, 0.6, m.SuccessRate, 1e-9)

	require.NotNil(t, m.BPM)
	assert.Equal(t, 2, m.BPM.Count)
	assert.InDelta(t, 124, m.BPM.Mean, 1e-9)
	assert.Equal(t, 120.0, m.BPM.Min)
	assert.Equal(t, 128.0, m.BPM.Max)
	assert.Equal(t, 1, m.TempoUnknown)

	require.NotNil(t, m.ElapsedSecs)
	assert.Equal(t, 5, m.ElapsedSecs.Count)
	assert.InDelta(t, 3, m.ElapsedSecs.Mean, 1e-9)
	assert.Equal(t, 3.0, m.ElapsedSecs.Median)
	assert.Equal(t, 5.0, m.ElapsedSecs.P95)

	assert.Equal(t, map[string]int{"House": 2, "Techno": 1}, m.Genres)
	assert.Equal(t, map[string]int{
		decoder.ErrCodeCorrupt: 1,
		decoder.ErrCodeTimeout: 1,
	}, m.FailureCodes)
	assert.Equal(t, 2, m.Moods[mood.Happy]+m.Moods[mood.Sad]+m.Moods[mood.Energetic]+m.Moods[mood.Calm])
}

func TestCalculateMetricsEmpty(t *testing.T) {
	m := NewMetricsCalculator(nil).Calculate(nil)
	assert.Equal(t, 0, m.Files)
	assert.Equal(t, 0.0, m.SuccessRate)
	assert.Equal(t, 0, m.BPM.Count)
	assert.Equal(t, 0, m.ElapsedSecs.Count)
}

func TestSingleValueStats(t *testing.T) {
	s := calculateStats([]float64{7})
	assert.Equal(t, 7.0, s.Mean)
	assert.Equal(t, 7.0, s.Median)
	assert.Equal(t, 0.0, s.StdDev)
}

func TestCategorizeError(t *testing.T) {
	assert.Equal(t, decoder.ErrCodeCancelled, categorizeError(fmt.Errorf("wrapped: %w", context.Canceled)))
	assert.Equal(t, "OTHER", categorizeError(fmt.Errorf("boom")))
}
