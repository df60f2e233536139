package mood

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/RyanBlaney/track-analysis/pkg/audio/features"
)

func TestHeuristicClassifier(t *testing.T) {
	tests := []struct {
		name     string
		features *features.AggregateFeatures
		want     Scores
	}{
		{
			name:     "bright and loud",
			features: &features.AggregateFeatures{RMS: 0.2, MFCC: []float64{3, 1, -1}},
			want:     Scores{Happy: 0.7, Sad: 0, Energetic: 0.8, Calm: 0},
		},
		{
			name:     "dark and quiet",
			features: &features.AggregateFeatures{RMS: 0.01, MFCC: []float64{-10, 2}},
			want:     Scores{Happy: 0, Sad: 0.6, Energetic: 0, Calm: 0.7},
		},
		{
			name:     "thresholds are exclusive",
			features: &features.AggregateFeatures{RMS: 0.05, MFCC: []float64{1, -1}},
			want:     Scores{Happy: 0, Sad: 0.6, Energetic: 0, Calm: 0.7},
		},
		{
			name:     "nil features",
			features: nil,
			want:     Scores{Happy: 0, Sad: 0.6, Energetic: 0, Calm: 0.7},
		},
	}

	c := NewHeuristicClassifier()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.features))
		})
	}
}

func TestExactlyOneMoodPerAxis(t *testing.T) {
	c := NewHeuristicClassifier()
	for _, rms := range []float64{0, 0.01, 0.05, 0.050001, 0.5, 1} {
		for _, m := range []float64{-50, -0.1, 0, 0.1, 50} {
			f := &features.AggregateFeatures{RMS: rms, MFCC: []float64{m}}
			s := c.Classify(f)

			assert.True(t, (s[Happy] != 0) != (s[Sad] != 0), "valence rms=%v mfcc=%v", rms, m)
			assert.True(t, (s[Energetic] != 0) != (s[Calm] != 0), "arousal rms=%v mfcc=%v", rms, m)
			assert.Equal(t, s, c.Classify(f), "classification must be pure")
		}
	}
}

func TestCustomThreshold(t *testing.T) {
	c := &HeuristicClassifier{EnergyThreshold: 0.3}
	s := c.Classify(&features.AggregateFeatures{RMS: 0.2, MFCC: []float64{1}})
	assert.Equal(t, 0.7, s[Calm])
}

func TestDominant(t *testing.T) {
	assert.Equal(t, Energetic, Scores{Happy: 0.7, Energetic: 0.8}.Dominant())
	assert.Equal(t, Happy, Scores{Happy: 0.7, Calm: 0.7}.Dominant())
	assert.Equal(t, "", Scores{}.Dominant())
}
