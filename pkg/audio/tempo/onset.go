package tempo

import (
	"github.com/RyanBlaney/track-analysis/pkg/audio/analyzers"
)

// OnsetEvent is a detected energy rise
type OnsetEvent struct {
	Frame    int     `json:"frame"`
	Time     float64 `json:"time"`     // seconds from the start
	Strength float64 `json:"strength"` // envelope increase at the onset
}

// energyEnvelope returns the RMS energy of every frame
func energyEnvelope(samples []float64, frameSize, hop int) ([]float64, error) {
	frames, err := analyzers.Frames(samples, frameSize, hop)
	if err != nil {
		return nil, err
	}
	env := make([]float64, len(frames))
	for i, f := range frames {
		env[i] = analyzers.RMS(f)
	}
	return env, nil
}

// onsetStrength is the half-wave rectified first difference of the envelope
func onsetStrength(env []float64) []float64 {
	strength := make([]float64, len(env))
	for i := 1; i < len(env); i++ {
		if d := env[i] - env[i-1]; d > 0 {
			strength[i] = d
		}
	}
	return strength
}

// adaptiveThreshold is multiplier times the mean strength over the preceding
// window frames, never below floor
func adaptiveThreshold(strength []float64, window int, multiplier, floor float64) []float64 {
	thr := make([]float64, len(strength))
	var sum float64
	for i := range strength {
		n := min(i, window)
		mean := 0.0
		if n > 0 {
			mean = sum / float64(n)
		}
		thr[i] = max(mean*multiplier, floor)

		sum += strength[i]
		if i >= window {
			sum -= strength[i-window]
		}
	}
	return thr
}

// pickOnsets returns local maxima of strength that exceed the threshold and
// are at least minGap frames after the previous onset
func pickOnsets(strength, threshold []float64, minGap int, hopSeconds float64) []OnsetEvent {
	var onsets []OnsetEvent
	last := -minGap
	for i, s := range strength {
		if s <= threshold[i] {
			continue
		}
		if i > 0 && s < strength[i-1] {
			continue
		}
		if i+1 < len(strength) && s <= strength[i+1] {
			continue
		}
		if i-last < minGap {
			continue
		}
		onsets = append(onsets, OnsetEvent{
			Frame:    i,
			Time:     float64(i) * hopSeconds,
			Strength: s,
		})
		last = i
	}
	return onsets
}

// smooth convolves x with a normalized triangular kernel of the given half width
func smooth(x []float64, half int) []float64 {
	if half <= 0 {
		return append([]float64(nil), x...)
	}
	kernel := make([]float64, 2*half+1)
	var total float64
	for k := range kernel {
		kernel[k] = float64(half + 1 - abs(k-half))
		total += kernel[k]
	}

	out := make([]float64, len(x))
	for i := range x {
		var sum float64
		for k, w := range kernel {
			j := i + k - half
			if j < 0 || j >= len(x) {
				continue
			}
			sum += x[j] * w
		}
		out[i] = sum / total
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
