package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/RyanBlaney/track-analysis/pkg/labels"
)

// Theme colors
var (
	Primary = lipgloss.Color("#00ff9f")
	Dim     = lipgloss.Color("#6e7681")
	Alert   = lipgloss.Color("#ff5f87")
)

// Styles holds the table styles
type Styles struct {
	Header lipgloss.Style
	Cell   lipgloss.Style
	Dim    lipgloss.Style
	Error  lipgloss.Style
}

// NewStyles returns the colored styles, or unstyled ones when colors is false
func NewStyles(colors bool) Styles {
	if !colors {
		plain := lipgloss.NewStyle()
		return Styles{Header: plain, Cell: plain, Dim: plain, Error: plain}
	}
	return Styles{
		Header: lipgloss.NewStyle().Bold(true).Foreground(Primary),
		Cell:   lipgloss.NewStyle(),
		Dim:    lipgloss.NewStyle().Foreground(Dim),
		Error:  lipgloss.NewStyle().Bold(true).Foreground(Alert),
	}
}

const placeholder = "-"

func (r *Renderer) reportTable(w io.Writer, report *Report) error {
	header := []string{"FILE", "TITLE", "GENRE", "BPM", "DURATION", "MOOD", "LABELS"}
	rows := make([][]string, 0, len(report.Records))

	for _, rec := range report.Records {
		bpm, duration := placeholder, placeholder
		if rec.Metadata.BPM != nil {
			bpm = strconv.Itoa(*rec.Metadata.BPM)
		}
		if rec.Metadata.Duration != nil {
			d := *rec.Metadata.Duration
			duration = fmt.Sprintf("%d:%02d", d/60, d%60)
		}

		moodName := rec.Mood.Dominant()
		if moodName == "" {
			moodName = placeholder
		}

		names := make([]string, len(rec.Labels))
		for i, m := range rec.Labels {
			names[i] = m.Label
		}
		labelCell := strings.Join(names, ", ")
		if labelCell == "" {
			labelCell = placeholder
		}

		rows = append(rows, []string{
			rec.Filename, rec.Title, rec.Metadata.Genre, bpm, duration, moodName, labelCell,
		})
	}

	if err := r.writeTable(w, header, rows); err != nil {
		return err
	}

	for _, f := range report.Failures {
		line := r.styles.Error.Render("FAILED") + " " + f.File
		if f.Code != "" {
			line += " " + r.styles.Dim.Render("["+f.Code+"]")
		}
		line += ": " + f.Error
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}

	if m := report.Metrics; m != nil {
		line := fmt.Sprintf("%d/%d analyzed, mean %.2fs per file", m.Succeeded, m.Files, m.ElapsedSecs.Mean)
		if m.BPM.Count > 0 {
			line += fmt.Sprintf(", mean tempo %.1f BPM", m.BPM.Mean)
		}
		if _, err := fmt.Fprintln(w, r.styles.Dim.Render(line)); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) catalogTable(w io.Writer, entries []labels.Entry) error {
	rows := make([][]string, len(entries))
	for i, e := range entries {
		rows[i] = []string{e.Name, strings.Join(e.Genres, ", ")}
	}
	return r.writeTable(w, []string{"LABEL", "GENRES"}, rows)
}

func (r *Renderer) matchesTable(w io.Writer, genre string, matches []labels.Match) error {
	if len(matches) == 0 {
		_, err := fmt.Fprintln(w, r.styles.Dim.Render("no labels accept "+strconv.Quote(genre)))
		return err
	}
	rows := make([][]string, len(matches))
	for i, m := range matches {
		rows[i] = []string{m.Label, strconv.Itoa(m.Score)}
	}
	return r.writeTable(w, []string{"LABEL", "MATCH"}, rows)
}

// writeTable pads cells to the widest value per column. Widths are measured
// with lipgloss so styled text lines up.
func (r *Renderer) writeTable(w io.Writer, header []string, rows [][]string) error {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	line := func(cells []string, style lipgloss.Style) string {
		parts := make([]string, len(cells))
		for i, cell := range cells {
			pad := widths[i] - lipgloss.Width(cell)
			parts[i] = style.Render(cell) + strings.Repeat(" ", pad)
		}
		return strings.TrimRight(strings.Join(parts, "  "), " ")
	}

	var b strings.Builder
	b.WriteString(line(header, r.styles.Header))
	b.WriteByte('\n')
	for _, row := range rows {
		b.WriteString(line(row, r.styles.Cell))
		b.WriteByte('\n')
	}

	_, err := io.WriteString(w, b.String())
	return err
}
