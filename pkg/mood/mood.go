// Package mood maps aggregate audio features to coarse mood scores.
package mood

import (
	"github.com/RyanBlaney/track-analysis/pkg/audio/features"
)

// Mood names
const (
	Happy     = "Happy"
	Sad       = "Sad"
	Energetic = "Energetic"
	Calm      = "Calm"
)

// Names lists every mood in display order
var Names = []string{Happy, Sad, Energetic, Calm}

// Scores maps a mood name to a confidence in [0, 1]. Scores are independent
// and do not sum to 1.
type Scores map[string]float64

// Dominant returns the highest scoring mood, ties resolved in Names order.
// It returns "" for empty scores.
func (s Scores) Dominant() string {
	best, bestScore := "", 0.0
	for _, name := range Names {
		if v, ok := s[name]; ok && v > bestScore {
			best, bestScore = name, v
		}
	}
	return best
}

// Classifier turns aggregate features into mood scores. Implementations
// must be pure: the same features always give the same scores.
type Classifier interface {
	Classify(f *features.AggregateFeatures) Scores
}

// Heuristic score values
const (
	HappyScore     = 0.7
	SadScore       = 0.6
	EnergeticScore = 0.8
	CalmScore      = 0.7

	DefaultEnergyThreshold = 0.05
)

// HeuristicClassifier is a fixed two-axis threshold rule, not a trained model.
//
// Valence: a positive mean MFCC coefficient scores Happy, otherwise Sad.
// Arousal: a mean RMS above EnergyThreshold scores Energetic, otherwise Calm.
// Exactly one mood per axis is nonzero.
type HeuristicClassifier struct {
	EnergyThreshold float64
}

// NewHeuristicClassifier returns the classifier with the default energy threshold
func NewHeuristicClassifier() *HeuristicClassifier {
	return &HeuristicClassifier{EnergyThreshold: DefaultEnergyThreshold}
}

// Classify implements Classifier. Nil features classify like silence.
func (h *HeuristicClassifier) Classify(f *features.AggregateFeatures) Scores {
	var meanMFCC, rms float64
	if f != nil {
		meanMFCC = f.MeanMFCC()
		rms = f.RMS
	}

	scores := Scores{Happy: 0, Sad: 0, Energetic: 0, Calm: 0}

	if meanMFCC > 0 {
		scores[Happy] = HappyScore
	} else {
		scores[Sad] = SadScore
	}

	if rms > h.EnergyThreshold {
		scores[Energetic] = EnergeticScore
	} else {
		scores[Calm] = CalmScore
	}

	return scores
}
