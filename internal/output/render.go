// Package output renders analysis results for the CLI as JSON, YAML,
// MessagePack or a styled table, optionally filtered by a jq expression.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/itchyny/gojq"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"

	"github.com/RyanBlaney/track-analysis/internal/analysis"
	"github.com/RyanBlaney/track-analysis/internal/worker"
	"github.com/RyanBlaney/track-analysis/pkg/labels"
)

// Format is an output encoding
type Format string

const (
	FormatJSON    Format = "json"
	FormatYAML    Format = "yaml"
	FormatMsgpack Format = "msgpack"
	FormatTable   Format = "table"
)

// Formats lists the accepted format names
var Formats = []Format{FormatJSON, FormatYAML, FormatMsgpack, FormatTable}

// ParseFormat validates a format name
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown output format %q (want one of json, yaml, msgpack, table)", s)
}

// Failure describes a file that could not be analyzed
type Failure struct {
	File  string `json:"file" yaml:"file" msgpack:"file"`
	Code  string `json:"code,omitempty" yaml:"code,omitempty" msgpack:"code,omitempty"`
	Error string `json:"error" yaml:"error" msgpack:"error"`
}

// Report is the document written for a batch
type Report struct {
	Records  []*analysis.Record   `json:"records" yaml:"records" msgpack:"records"`
	Failures []Failure            `json:"failures" yaml:"failures" msgpack:"failures"`
	Metrics  *worker.BatchMetrics `json:"metrics,omitempty" yaml:"metrics,omitempty" msgpack:"metrics,omitempty"`
}

// Renderer writes reports and catalog listings in one format
type Renderer struct {
	format Format
	query  *gojq.Query
	styles Styles
}

// NewRenderer creates a renderer. A non-empty query is a jq expression run
// against the JSON form of the document; its results are written as JSON
// whatever the format.
func NewRenderer(format Format, query string, colors bool) (*Renderer, error) {
	r := &Renderer{format: format, styles: NewStyles(colors)}
	if strings.TrimSpace(query) != "" {
		q, err := gojq.Parse(query)
		if err != nil {
			return nil, fmt.Errorf("invalid jq expression %q: %w", query, err)
		}
		r.query = q
	}
	return r, nil
}

// RenderReport writes a batch report
func (r *Renderer) RenderReport(w io.Writer, report *Report) error {
	if report.Records == nil {
		report.Records = []*analysis.Record{}
	}
	if report.Failures == nil {
		report.Failures = []Failure{}
	}
	if r.query != nil {
		return r.runQuery(w, report)
	}

	switch r.format {
	case FormatTable:
		return r.reportTable(w, report)
	default:
		return r.encode(w, report)
	}
}

// RenderCatalog writes every catalog entry
func (r *Renderer) RenderCatalog(w io.Writer, entries []labels.Entry) error {
	if r.query != nil {
		return r.runQuery(w, entries)
	}
	if r.format == FormatTable {
		return r.catalogTable(w, entries)
	}
	return r.encode(w, entries)
}

// RenderMatches writes the labels matching genre
func (r *Renderer) RenderMatches(w io.Writer, genre string, matches []labels.Match) error {
	doc := struct {
		Genre   string         `json:"genre" yaml:"genre" msgpack:"genre"`
		Matches []labels.Match `json:"suggestedLabels" yaml:"suggestedLabels" msgpack:"suggestedLabels"`
	}{genre, matches}

	if r.query != nil {
		return r.runQuery(w, doc)
	}
	if r.format == FormatTable {
		return r.matchesTable(w, genre, matches)
	}
	return r.encode(w, doc)
}

// Render writes any value in the renderer's format. The table format falls
// back to indented JSON.
func (r *Renderer) Render(w io.Writer, v any) error {
	if r.query != nil {
		return r.runQuery(w, v)
	}
	return r.encode(w, v)
}

func (r *Renderer) encode(w io.Writer, v any) error {
	switch r.format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	case FormatMsgpack:
		data, err := msgpack.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to encode msgpack: %w", err)
		}
		_, err = w.Write(data)
		return err
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode json: %w", err)
		}
		return nil
	}
}

// runQuery evaluates the jq query over the JSON form of v and writes one
// JSON value per result
func (r *Renderer) runQuery(w io.Writer, v any) error {
	input, err := toJQInput(v)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	iter := r.query.Run(input)
	for {
		result, ok := iter.Next()
		if !ok {
			return nil
		}
		if err, ok := result.(error); ok {
			return fmt.Errorf("jq error: %w", err)
		}
		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("marshal jq result: %w", err)
		}
	}
}

// toJQInput converts v to the plain maps and slices gojq operates on
func toJQInput(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query input: %w", err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal query input: %w", err)
	}
	return out, nil
}
