package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"

	"github.com/RyanBlaney/track-analysis/internal/analysis"
	"github.com/RyanBlaney/track-analysis/internal/worker"
	"github.com/RyanBlaney/track-analysis/pkg/labels"
	"github.com/RyanBlaney/track-analysis/pkg/mood"
)

func sampleReport() *Report {
	bpm, duration := 124, 185
	return &Report{
		Records: []*analysis.Record{
			{
				ID:          "id-1",
				Filename:    "track.wav",
				Title:       "Night Drive",
				Metadata:    analysis.Metadata{BPM: &bpm, Genre: "House", Duration: &duration},
				Mood:        mood.Scores{mood.Happy: 0.7, mood.Sad: 0, mood.Energetic: 0.8, mood.Calm: 0},
				Instruments: []string{"piano", "drums", "guitar"},
				Labels: []labels.Match{
					{Label: "Defected", Score: 80},
					{Label: "Toolroom Records", Score: 80},
				},
				AnalyzedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
			},
			{
				ID:          "id-2",
				Filename:    "ambient.wav",
				Title:       analysis.UnknownTitle,
				Metadata:    analysis.Metadata{Genre: "Unknown"},
				Mood:        mood.Scores{},
				Instruments: []string{},
				Labels:      []labels.Match{},
			},
		},
		Failures: []Failure{{File: "broken.wav", Code: "CORRUPT_INPUT", Error: "not a wav file"}},
	}
}

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"json", "YAML", " msgpack ", "table"} {
		_, err := ParseFormat(s)
		assert.NoError(t, err, s)
	}
	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestRenderJSON(t *testing.T) {
	r, err := NewRenderer(FormatJSON, "", false)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.RenderReport(&buf, sampleReport()))

	var got struct {
		Records []map[string]any `json:"records"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got.Records, 2)

	meta := got.Records[1]["metadata"].(map[string]any)
	assert.Nil(t, meta["bpm"])
	assert.Nil(t, meta["duration"])
	assert.Equal(t, map[string]any{}, got.Records[1]["mood"])
	assert.Contains(t, buf.String(), `"suggestedLabels"`)
}

func TestRenderYAML(t *testing.T) {
	r, err := NewRenderer(FormatYAML, "", false)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.RenderReport(&buf, sampleReport()))

	var got map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Len(t, got["records"], 2)
	assert.Len(t, got["failures"], 1)
	assert.Contains(t, buf.String(), "title: Night Drive")
}

func TestRenderMsgpack(t *testing.T) {
	r, err := NewRenderer(FormatMsgpack, "", false)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.RenderReport(&buf, sampleReport()))

	var got map[string]any
	require.NoError(t, msgpack.Unmarshal(buf.Bytes(), &got))
	records := got["records"].([]any)
	require.Len(t, records, 2)
	assert.Equal(t, "track.wav", records[0].(map[string]any)["filename"])
}

func TestRenderTable(t *testing.T) {
	r, err := NewRenderer(FormatTable, "", false)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.RenderReport(&buf, sampleReport()))
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")

	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "FILE"))
	assert.Contains(t, lines[1], "Night Drive")
	assert.Contains(t, lines[1], "124")
	assert.Contains(t, lines[1], "3:05")
	assert.Contains(t, lines[1], "Energetic")
	assert.Contains(t, lines[1], "Defected, Toolroom Records")
	assert.Contains(t, lines[2], "Unknown Title")
	assert.Contains(t, lines[3], "FAILED broken.wav [CORRUPT_INPUT]: not a wav file")

	// columns line up
	assert.Equal(t, strings.Index(lines[0], "TITLE"), strings.Index(lines[1], "Night Drive"))
}

func TestRenderQuery(t *testing.T) {
	r, err := NewRenderer(FormatTable, ".records[] | .metadata.bpm", false)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.RenderReport(&buf, sampleReport()))
	assert.Equal(t, "124\nnull\n", buf.String())

	_, err = NewRenderer(FormatJSON, ".records[", false)
	assert.Error(t, err)

	r, err = NewRenderer(FormatJSON, ".records | error(\"nope\")", false)
	require.NoError(t, err)
	assert.Error(t, r.RenderReport(&bytes.Buffer{}, sampleReport()))
}

func TestRenderCatalogAndMatches(t *testing.T) {
	r, err := NewRenderer(FormatTable, "", false)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.RenderCatalog(&buf, labels.DefaultCatalog().Entries()))
	assert.Contains(t, buf.String(), "Toolroom Records  Tech House, House")

	buf.Reset()
	require.NoError(t, r.RenderMatches(&buf, "Unknown", []labels.Match{}))
	assert.Contains(t, buf.String(), `no labels accept "Unknown"`)

	jr, err := NewRenderer(FormatJSON, "", false)
	require.NoError(t, err)
	buf.Reset()
	require.NoError(t, jr.RenderMatches(&buf, "House", labels.DefaultCatalog().Match("House")))
	assert.Contains(t, buf.String(), `"match": 80`)
}

func TestRenderMetrics(t *testing.T) {
	report := sampleReport()
	report.Metrics = &worker.BatchMetrics{
		Files:       3,
		Succeeded:   2,
		ElapsedSecs: &worker.Stats{Mean: 1.5, Count: 3},
		BPM:         &worker.Stats{Mean: 124, Count: 1},
	}

	table, err := NewRenderer(FormatTable, "", false)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, table.RenderReport(&buf, report))
	assert.Contains(t, buf.String(), "2/3 analyzed, mean 1.50s per file, mean tempo 124.0 BPM")

	js, err := NewRenderer(FormatJSON, "", false)
	require.NoError(t, err)
	buf.Reset()
	require.NoError(t, js.RenderReport(&buf, report))
	assert.Contains(t, buf.String(), `"metrics"`)

	buf.Reset()
	require.NoError(t, js.RenderReport(&buf, sampleReport()))
	assert.NotContains(t, buf.String(), `"metrics"`)
}
