package analysis

import (
	"strings"
	"time"

	"github.com/RyanBlaney/track-analysis/pkg/labels"
	"github.com/RyanBlaney/track-analysis/pkg/mood"
)

// UnknownTitle is the title of a track that declares none
const UnknownTitle = "Unknown Title"

// Declared is the metadata a caller already knows about a track, usually
// read from its tags. Nil fields are unknown.
type Declared struct {
	Title    *string
	Genre    *string
	BPM      *int
	Duration *int // seconds
}

// Record is the result of analyzing one track
type Record struct {
	ID          string         `json:"id" yaml:"id" msgpack:"id"`
	Filename    string         `json:"filename" yaml:"filename" msgpack:"filename"`
	Title       string         `json:"title" yaml:"title" msgpack:"title"`
	Metadata    Metadata       `json:"metadata" yaml:"metadata" msgpack:"metadata"`
	Mood        mood.Scores    `json:"mood" yaml:"mood" msgpack:"mood"`
	Instruments []string       `json:"instruments" yaml:"instruments" msgpack:"instruments"`
	Labels      []labels.Match `json:"suggestedLabels" yaml:"suggestedLabels" msgpack:"suggestedLabels"`
	AnalyzedAt  time.Time      `json:"analyzedAt" yaml:"analyzedAt" msgpack:"analyzedAt"`
}

// Metadata holds the descriptive fields of a Record. BPM and Duration are
// nil when unknown and serialize as null.
type Metadata struct {
	BPM      *int   `json:"bpm" yaml:"bpm" msgpack:"bpm"`
	Genre    string `json:"genre" yaml:"genre" msgpack:"genre"`
	Duration *int   `json:"duration" yaml:"duration" msgpack:"duration"` // seconds
}

// StringPtr returns a pointer to s, or nil when s is blank
func StringPtr(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

// IntPtr returns a pointer to v, or nil when v is not positive
func IntPtr(v int) *int {
	if v <= 0 {
		return nil
	}
	return &v
}

// Merge returns d with every nil field taken from other
func (d Declared) Merge(other Declared) Declared {
	if d.Title == nil {
		d.Title = other.Title
	}
	if d.Genre == nil {
		d.Genre = other.Genre
	}
	if d.BPM == nil {
		d.BPM = other.BPM
	}
	if d.Duration == nil {
		d.Duration = other.Duration
	}
	return d
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
