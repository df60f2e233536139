package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/track-analysis/configs"
	"github.com/RyanBlaney/track-analysis/internal/analysis"
	"github.com/RyanBlaney/track-analysis/internal/output"
	"github.com/RyanBlaney/track-analysis/internal/testutil"
	"github.com/RyanBlaney/track-analysis/pkg/audio/decoder"
	"github.com/RyanBlaney/track-analysis/pkg/logging"
)

// recordingAnalyzer fails paths listed in fail and remembers what it was given
type recordingAnalyzer struct {
	mu       sync.Mutex
	fail     map[string]bool
	declared map[string]analysis.Declared
}

func (r *recordingAnalyzer) Analyze(_ context.Context, path string, declared analysis.Declared) (*analysis.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.declared == nil {
		r.declared = map[string]analysis.Declared{}
	}
	r.declared[path] = declared

	if r.fail[path] {
		return nil, fmt.Errorf("analysis: decode %s: %w", path,
			decoder.NewDecodeError(path, decoder.ErrCodeCorrupt, "bad header", nil))
	}
	return &analysis.Record{
		ID:          "id-" + path,
		Filename:    path,
		Title:       analysis.UnknownTitle,
		Metadata:    analysis.Metadata{Genre: "House", BPM: declared.BPM},
		Instruments: []string{},
	}, nil
}

func newTestApp(t *testing.T, ctx *Context) (*App, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	ctx.Stdout = &stdout
	ctx.Stderr = &stderr
	ctx.Logger = logging.NewNop()
	ctx.NoProgress = true
	ctx.NoColor = true

	a, err := NewApp(ctx, configs.GetDefaultConfig())
	require.NoError(t, err)
	a.readTags = func(string) (analysis.Declared, error) { return analysis.Declared{}, nil }
	return a, &stdout, &stderr
}

func TestRunReportsRecordsAndFailures(t *testing.T) {
	fake := &recordingAnalyzer{fail: map[string]bool{"b.mp3": true}}
	a, stdout, stderr := newTestApp(t, &Context{
		Files:    []string{"a.wav", "b.mp3", "c.wav"},
		Workers:  2,
		Analyzer: fake,
	})

	report, err := a.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 3 files failed")

	require.Len(t, report.Records, 2)
	assert.Equal(t, "a.wav", report.Records[0].Filename)
	assert.Equal(t, "c.wav", report.Records[1].Filename)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "b.mp3", report.Failures[0].File)
	assert.Equal(t, decoder.ErrCodeCorrupt, report.Failures[0].Code)

	var doc output.Report
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &doc))
	assert.Len(t, doc.Records, 2)
	assert.Len(t, doc.Failures, 1)

	assert.Contains(t, stderr.String(), "analyzed 2/3 files")
	assert.Contains(t, stderr.String(), "failed b.mp3 [CORRUPT_INPUT]")
}

func TestRunAllSucceed(t *testing.T) {
	a, _, stderr := newTestApp(t, &Context{
		Files:    []string{"a.wav"},
		Analyzer: &recordingAnalyzer{},
		Quiet:    true,
	})

	report, err := a.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, report.Records, 1)
	assert.Empty(t, report.Failures)
	assert.Empty(t, stderr.String())
}

func TestOverridesTakePrecedenceOverTags(t *testing.T) {
	fake := &recordingAnalyzer{}
	a, _, _ := newTestApp(t, &Context{
		Files:     []string{"tagged.mp3"},
		Analyzer:  fake,
		Overrides: analysis.Declared{Title: analysis.StringPtr("From Flag")},
		Quiet:     true,
	})
	a.readTags = func(string) (analysis.Declared, error) {
		return analysis.Declared{
			Title: analysis.StringPtr("From Tag"),
			Genre: analysis.StringPtr("Techno"),
			BPM:   analysis.IntPtr(126),
		}, nil
	}

	_, err := a.Run(context.Background())
	require.NoError(t, err)

	got := fake.declared["tagged.mp3"]
	require.NotNil(t, got.Title)
	assert.Equal(t, "From Flag", *got.Title)
	require.NotNil(t, got.Genre)
	assert.Equal(t, "Techno", *got.Genre)
	require.NotNil(t, got.BPM)
	assert.Equal(t, 126, *got.BPM)
}

func TestNoTagsSkipsTagReader(t *testing.T) {
	fake := &recordingAnalyzer{}
	a, _, _ := newTestApp(t, &Context{
		Files:    []string{"tagged.mp3"},
		Analyzer: fake,
		NoTags:   true,
		Quiet:    true,
	})
	a.readTags = func(string) (analysis.Declared, error) {
		t.Fatal("tag reader called with --no-tags")
		return analysis.Declared{}, nil
	}

	_, err := a.Run(context.Background())
	require.NoError(t, err)
	assert.Nil(t, fake.declared["tagged.mp3"].Genre)
}

func TestTagErrorsAreNotFatal(t *testing.T) {
	a, _, _ := newTestApp(t, &Context{
		Files:    []string{"a.wav"},
		Analyzer: &recordingAnalyzer{},
		Quiet:    true,
	})
	a.readTags = func(string) (analysis.Declared, error) {
		return analysis.Declared{}, fmt.Errorf("unreadable tag")
	}

	_, err := a.Run(context.Background())
	assert.NoError(t, err)
}

func TestOutputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "out.json")
	a, stdout, _ := newTestApp(t, &Context{
		Files:      []string{"a.wav"},
		Analyzer:   &recordingAnalyzer{},
		OutputFile: path,
		Quiet:      true,
	})

	_, err := a.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, stdout.String())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc output.Report
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Len(t, doc.Records, 1)
}

func TestNewAppValidation(t *testing.T) {
	_, err := NewApp(&Context{Logger: logging.NewNop()}, configs.GetDefaultConfig())
	assert.Error(t, err)

	cfg := configs.GetDefaultConfig()
	cfg.Output.Format = "xml"
	_, err = NewApp(&Context{
		Files:    []string{"a.wav"},
		Logger:   logging.NewNop(),
		Analyzer: &recordingAnalyzer{},
	}, cfg)
	assert.Error(t, err)

	_, err = NewApp(&Context{
		Files:    []string{"a.wav"},
		Logger:   logging.NewNop(),
		Analyzer: &recordingAnalyzer{},
		Query:    ".records[",
	}, configs.GetDefaultConfig())
	assert.Error(t, err)
}

func TestBuildAnalyzerCatalogFile(t *testing.T) {
	cfg := configs.GetDefaultConfig()
	cfg.Labels.CatalogFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err := BuildAnalyzer(cfg, logging.NewNop())
	assert.Error(t, err)

	cfg.Labels.CatalogFile = testutil.WriteFile(t, t.TempDir(), "labels.yaml", []byte(`
labels:
  - name: Drumcode
    genres: [Techno]
`))
	catalog, err := LoadCatalog(cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, catalog.Len())
}

func TestNewLoggerLevels(t *testing.T) {
	cfg := configs.GetDefaultConfig()
	_, err := NewLogger(cfg, true)
	assert.NoError(t, err)

	cfg.LogLevel = "loud"
	_, err = NewLogger(cfg, false)
	assert.Error(t, err)
}

func TestRunEndToEnd(t *testing.T) {
	dir := t.TempDir()
	click := testutil.WriteMonoWAV(t, dir, "click.wav",
		testutil.ClickTrack(120, 12, decoder.CanonicalSampleRate), decoder.CanonicalSampleRate)
	broken := testutil.WriteFile(t, dir, "broken.wav", []byte("this is definitely not audio data at all"))

	cfg := configs.GetDefaultConfig()
	cfg.Decoder.FFmpegPath = "track-analysis-missing-ffmpeg"
	analyzer, err := BuildAnalyzer(cfg, logging.NewNop())
	require.NoError(t, err)

	var stdout, stderr bytes.Buffer
	a, err := NewApp(&Context{
		Files:     []string{click, broken},
		Overrides: analysis.Declared{Genre: analysis.StringPtr("House")},
		Workers:   2,
		Quiet:     true,
		NoColor:   true,
		Logger:    logging.NewNop(),
		Analyzer:  analyzer,
		Stdout:    &stdout,
		Stderr:    &stderr,
	}, cfg)
	require.NoError(t, err)

	report, err := a.Run(context.Background())
	require.Error(t, err)

	require.Len(t, report.Records, 1)
	rec := report.Records[0]
	assert.Equal(t, "click.wav", rec.Filename)
	assert.Equal(t, "House", rec.Metadata.Genre)
	require.NotNil(t, rec.Metadata.BPM)
	assert.InDelta(t, 120, *rec.Metadata.BPM, 2)
	assert.Len(t, rec.Labels, 3)

	require.Len(t, report.Failures, 1)
	assert.Equal(t, broken, report.Failures[0].File)
	assert.Equal(t, decoder.ErrCodeCorrupt, report.Failures[0].Code)
}

func TestStatsAttachMetrics(t *testing.T) {
	a, stdout, _ := newTestApp(t, &Context{
		Files:     []string{"a.wav", "b.wav"},
		Analyzer:  &recordingAnalyzer{},
		Overrides: analysis.Declared{BPM: analysis.IntPtr(124)},
		Stats:     true,
		Quiet:     true,
	})

	report, err := a.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, report.Metrics)
	assert.Equal(t, 2, report.Metrics.Succeeded)
	assert.InDelta(t, 124, report.Metrics.BPM.Mean, 1e-9)
	assert.Contains(t, stdout.String(), `"metrics"`)
}
