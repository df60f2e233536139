// Package metadata reads the declared title, genre and tempo from the
// container tags of an audio file.
package metadata

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/dhowden/tag"

	"github.com/RyanBlaney/track-analysis/internal/analysis"
)

// bpmKeys are the raw tag keys that carry tempo, by container:
// ID3v2.3/2.4, ID3v2.2, Vorbis comments, MP4
var bpmKeys = []string{"TBPM", "TBP", "bpm", "BPM", "tmpo"}

// ReadDeclared returns the metadata declared in path's tags. A file without
// tags yields an empty Declared and no error.
func ReadDeclared(path string) (analysis.Declared, error) {
	f, err := os.Open(path)
	if err != nil {
		return analysis.Declared{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		if errors.Is(err, tag.ErrNoTagsFound) {
			return analysis.Declared{}, nil
		}
		return analysis.Declared{}, fmt.Errorf("failed to read audio metadata: %w", err)
	}

	declared := analysis.Declared{
		Title: analysis.StringPtr(m.Title()),
		Genre: analysis.StringPtr(m.Genre()),
	}

	raw := m.Raw()
	for _, key := range bpmKeys {
		if v, ok := raw[key]; ok {
			if bpm, ok := ParseBPM(v); ok {
				declared.BPM = &bpm
				break
			}
		}
	}

	return declared, nil
}

// ParseBPM converts a raw tag value to a whole BPM. Text values may carry a
// fraction or a trailing unit ("123.7", "124 BPM"). ok is false for values
// that are not a positive tempo.
func ParseBPM(v any) (int, bool) {
	var f float64
	switch x := v.(type) {
	case string:
		s := strings.TrimSpace(strings.TrimRight(x, "\x00"))
		if fields := strings.Fields(s); len(fields) > 0 {
			s = fields[0]
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	case []byte:
		return ParseBPM(string(x))
	case int:
		f = float64(x)
	case int8:
		f = float64(x)
	case int16:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case uint8:
		f = float64(x)
	case uint16:
		f = float64(x)
	case uint32:
		f = float64(x)
	case uint64:
		f = float64(x)
	case float32:
		f = float64(x)
	case float64:
		f = x
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	bpm := int(math.Round(f))
	if bpm <= 0 {
		return 0, false
	}
	return bpm, true
}
