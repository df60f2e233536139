package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/track-analysis/internal/testutil"
	"github.com/RyanBlaney/track-analysis/pkg/audio/decoder"
	"github.com/RyanBlaney/track-analysis/pkg/audio/features"
	"github.com/RyanBlaney/track-analysis/pkg/audio/tempo"
	"github.com/RyanBlaney/track-analysis/pkg/labels"
	"github.com/RyanBlaney/track-analysis/pkg/logging"
	"github.com/RyanBlaney/track-analysis/pkg/mood"
)

type fakeTempo struct {
	calls atomic.Int32
	bpm   int
	ok    bool
}

func (f *fakeTempo) Estimate(context.Context, *decoder.CanonicalAudio) (tempo.Estimate, bool) {
	f.calls.Add(1)
	return tempo.Estimate{BPM: f.bpm, Confidence: 0.9}, f.ok
}

type fakeFeatures struct {
	agg *features.AggregateFeatures
	err error
}

func (f *fakeFeatures) Extract(context.Context, *decoder.CanonicalAudio) (*features.AggregateFeatures, error) {
	return f.agg, f.err
}

var fixedTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestAnalyzer(opts Options) *Analyzer {
	if opts.Decoder == nil {
		cfg := decoder.DefaultConfig()
		cfg.FFmpegPath = "track-analysis-missing-ffmpeg"
		opts.Decoder = decoder.NewDecoder(cfg, logging.NewNop())
	}
	opts.Now = func() time.Time { return fixedTime }
	opts.NewID = func() string { return "test-id" }
	return NewAnalyzer(opts, logging.NewNop())
}

func sineFile(t *testing.T, seconds float64) string {
	t.Helper()
	samples := testutil.Sine(440, 0.5, seconds, decoder.CanonicalSampleRate)
	return testutil.WriteMonoWAV(t, t.TempDir(), "tone.wav", samples, decoder.CanonicalSampleRate)
}

func TestAnalyzeDeclaredMetadata(t *testing.T) {
	est := &fakeTempo{bpm: 99, ok: true}
	a := newTestAnalyzer(Options{
		Tempo:    est,
		Features: &fakeFeatures{agg: &features.AggregateFeatures{RMS: 0.2, MFCC: []float64{1, 2}}},
	})

	declared := Declared{
		Title: StringPtr("Night Drive"),
		Genre: StringPtr(" House "),
		BPM:   IntPtr(124),
	}
	rec, err := a.Analyze(context.Background(), sineFile(t, 2), declared)
	require.NoError(t, err)

	assert.Equal(t, int32(0), est.calls.Load(), "declared BPM must bypass the estimator")
	require.NotNil(t, rec.Metadata.BPM)
	assert.Equal(t, 124, *rec.Metadata.BPM)

	assert.Equal(t, "test-id", rec.ID)
	assert.Equal(t, "tone.wav", rec.Filename)
	assert.Equal(t, "Night Drive", rec.Title)
	assert.Equal(t, "House", rec.Metadata.Genre)
	require.NotNil(t, rec.Metadata.Duration)
	assert.Equal(t, 2, *rec.Metadata.Duration)
	assert.Equal(t, mood.Scores{mood.Happy: 0.7, mood.Sad: 0, mood.Energetic: 0.8, mood.Calm: 0}, rec.Mood)
	assert.Equal(t, []string{"piano", "drums", "guitar"}, rec.Instruments)
	assert.Equal(t, []labels.Match{
		{Label: "Defected", Score: 80},
		{Label: "Toolroom Records", Score: 80},
		{Label: "Hot Creations", Score: 80},
	}, rec.Labels)
	assert.Equal(t, fixedTime, rec.AnalyzedAt)
}

func TestAnalyzeFallbacks(t *testing.T) {
	est := &fakeTempo{ok: false}
	a := newTestAnalyzer(Options{
		Tempo:    est,
		Features: &fakeFeatures{agg: &features.AggregateFeatures{}},
	})

	rec, err := a.Analyze(context.Background(), sineFile(t, 1), Declared{Title: StringPtr("  ")})
	require.NoError(t, err)

	assert.Equal(t, int32(1), est.calls.Load())
	assert.Nil(t, rec.Metadata.BPM)
	assert.Equal(t, UnknownTitle, rec.Title)
	assert.Equal(t, "Unknown", rec.Metadata.Genre)
	assert.NotNil(t, rec.Labels)
	assert.Empty(t, rec.Labels)

	data, err := json.Marshal(rec)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	meta := got["metadata"].(map[string]any)
	assert.Contains(t, meta, "bpm")
	assert.Nil(t, meta["bpm"])
	assert.Equal(t, float64(1), meta["duration"])
	assert.Equal(t, []any{}, got["suggestedLabels"])
	assert.Equal(t, "2024-05-01T12:00:00Z", got["analyzedAt"])
}

func TestAnalyzeFeatureErrorLeavesMoodEmpty(t *testing.T) {
	a := newTestAnalyzer(Options{
		Tempo:    &fakeTempo{bpm: 120, ok: true},
		Features: &fakeFeatures{err: &features.FeatureExtractionError{Stage: "aggregate", Message: "not finite"}},
	})

	rec, err := a.Analyze(context.Background(), sineFile(t, 1), Declared{Genre: StringPtr("Tech House")})
	require.NoError(t, err)

	assert.NotNil(t, rec.Mood)
	assert.Empty(t, rec.Mood)
	require.NotNil(t, rec.Metadata.BPM)
	assert.Equal(t, 120, *rec.Metadata.BPM)
	assert.Equal(t, []labels.Match{{Label: "Toolroom Records", Score: 80}}, rec.Labels)

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"mood":{}`)
}

func TestAnalyzeDecodeErrorIsFatal(t *testing.T) {
	est := &fakeTempo{ok: true}
	a := newTestAnalyzer(Options{Tempo: est})

	path := testutil.WriteFile(t, t.TempDir(), "broken.wav", []byte("this is definitely not audio data at all"))
	rec, err := a.Analyze(context.Background(), path, Declared{})

	require.Error(t, err)
	assert.Nil(t, rec)
	assert.True(t, decoder.IsDecodeError(err))

	var decErr *decoder.DecodeError
	require.True(t, errors.As(err, &decErr))
	assert.Equal(t, decoder.ErrCodeCorrupt, decErr.Code)
	assert.Equal(t, int32(0), est.calls.Load())
}

func TestAnalyzeMissingFile(t *testing.T) {
	a := newTestAnalyzer(Options{})
	rec, err := a.Analyze(context.Background(), "/nonexistent/track.mp3", Declared{})
	require.Error(t, err)
	assert.Nil(t, rec)
	assert.Equal(t, decoder.ErrCodeNotFound, decoder.ErrorCode(err))
}

func TestAnalyzeCancelled(t *testing.T) {
	a := newTestAnalyzer(Options{})
	path := sineFile(t, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec, err := a.Analyze(ctx, path, Declared{})
	require.Error(t, err)
	assert.Nil(t, rec)
}

func TestAnalyzeEndToEnd(t *testing.T) {
	clicks := testutil.ClickTrack(120, 12, decoder.CanonicalSampleRate)
	path := testutil.WriteMonoWAV(t, t.TempDir(), "clicks.wav", clicks, decoder.CanonicalSampleRate)

	a := newTestAnalyzer(Options{})
	rec, err := a.Analyze(context.Background(), path, Declared{Genre: StringPtr("Deep House")})
	require.NoError(t, err)

	require.NotNil(t, rec.Metadata.BPM)
	assert.InDelta(t, 120, *rec.Metadata.BPM, 2)
	assert.Len(t, rec.Mood, 4)
	assert.Equal(t, 12, *rec.Metadata.Duration)
	assert.Equal(t, []labels.Match{{Label: "Hot Creations", Score: 80}}, rec.Labels)
}

func TestRandomGenre(t *testing.T) {
	pool := []string{"House", "Techno", "Deep House"}
	a := NewRandomGenre(pool, rand.NewPCG(1, 2))
	b := NewRandomGenre(pool, rand.NewPCG(1, 2))

	for range 20 {
		g := a.Genre("x")
		assert.Contains(t, pool, g)
		assert.Equal(t, g, b.Genre("x"))
	}

	assert.Equal(t, "Unknown", NewRandomGenre(nil, nil).Genre("x"))
	assert.Equal(t, "Techno", FixedGenre("Techno").Genre("x"))
}

func TestDeclaredMerge(t *testing.T) {
	flags := Declared{BPM: IntPtr(128)}
	tags := Declared{Title: StringPtr("From Tags"), BPM: IntPtr(100)}

	got := flags.Merge(tags)
	assert.Equal(t, 128, *got.BPM)
	assert.Equal(t, "From Tags", *got.Title)
	assert.Nil(t, got.Genre)
	assert.Nil(t, IntPtr(0))
	assert.Nil(t, StringPtr(" "))
}
