// Package tempo estimates the tempo of canonical audio from the periodicity
// of its onset strength envelope.
package tempo

import (
	"context"
	"math"

	"github.com/RyanBlaney/track-analysis/pkg/audio/decoder"
	"github.com/RyanBlaney/track-analysis/pkg/logging"
)

// Estimate is a tempo estimate
type Estimate struct {
	BPM        int     `json:"bpm"`
	RawBPM     float64 `json:"raw_bpm"`    // before rounding
	Confidence float64 `json:"confidence"` // normalized autocorrelation of the chosen period
	Onsets     int     `json:"onsets"`
}

// candidate is one autocorrelation peak folded into the tempo range
type candidate struct {
	lag      float64
	bpm      float64
	strength float64
}

// Estimator finds the dominant beat period. It holds no mutable state and
// is safe for concurrent use.
type Estimator struct {
	config Config
	logger logging.Logger
}

// NewEstimator creates an estimator
func NewEstimator(config Config, logger logging.Logger) *Estimator {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Estimator{
		config: config,
		logger: logger.WithFields(logging.Fields{"component": "tempo_estimator"}),
	}
}

// Estimate returns the tempo of audio. ok is false when the tempo cannot be
// determined with enough confidence, which is a normal outcome.
func (e *Estimator) Estimate(ctx context.Context, audio *decoder.CanonicalAudio) (Estimate, bool) {
	if audio == nil || ctx.Err() != nil {
		return Estimate{}, false
	}
	return e.EstimateSamples(audio.Samples, audio.SampleRate)
}

// EstimateSamples is Estimate on raw mono samples. The same input always
// produces the same result.
func (e *Estimator) EstimateSamples(samples []float64, sampleRate int) (Estimate, bool) {
	cfg := e.config
	logger := e.logger.WithFields(logging.Fields{
		"function": "EstimateSamples",
		"samples":  len(samples),
	})

	if err := cfg.Validate(); err != nil {
		logger.Error(err, "invalid tempo config")
		return Estimate{}, false
	}
	if sampleRate <= 0 || len(samples) < cfg.FrameSize {
		return Estimate{}, false
	}

	env, err := energyEnvelope(samples, cfg.FrameSize, cfg.HopSize)
	if err != nil {
		logger.Error(err, "failed to compute energy envelope")
		return Estimate{}, false
	}

	hopSeconds := float64(cfg.HopSize) / float64(sampleRate)
	peak := 0.0
	for _, v := range env {
		peak = max(peak, v)
	}
	floor := max(cfg.OnsetFloor, cfg.EnvelopeFloorRatio*peak)

	strength := onsetStrength(env)
	threshold := adaptiveThreshold(strength, cfg.ThresholdWindow, cfg.ThresholdMultiplier, floor)
	onsets := pickOnsets(strength, threshold, cfg.MinOnsetGap, hopSeconds)

	if len(onsets) < cfg.MinOnsets {
		logger.Debug("too few onsets for a tempo estimate", logging.Fields{
			"onsets":     len(onsets),
			"min_onsets": cfg.MinOnsets,
		})
		return Estimate{}, false
	}

	framesPerMinute := 60.0 / hopSeconds
	// search an octave beyond the range on both sides so folding has something to fold
	minLag := max(1, int(math.Floor(framesPerMinute/(2*cfg.MaxBPM))))
	maxLag := int(math.Ceil(framesPerMinute / (cfg.MinBPM / 2)))

	acf := autocorrelate(smooth(strength, 2), maxLag+1)
	candidates := e.findCandidates(acf, minLag, maxLag, framesPerMinute)
	if len(candidates) == 0 {
		logger.Debug("no periodicity peak found")
		return Estimate{}, false
	}

	best, ok := e.selectCandidate(candidates)
	if !ok {
		logger.Debug("periodicity too weak for a tempo estimate", logging.Fields{
			"best_strength": best.strength,
			"min_strength":  cfg.MinPeakStrength,
		})
		return Estimate{}, false
	}

	bpm := int(math.Round(best.bpm))
	bpm = max(int(math.Ceil(cfg.MinBPM)), min(int(math.Floor(cfg.MaxBPM)), bpm))

	logger.Debug("tempo estimated", logging.Fields{
		"bpm":        bpm,
		"raw_bpm":    best.bpm,
		"lag":        best.lag,
		"confidence": best.strength,
		"onsets":     len(onsets),
		"candidates": len(candidates),
	})

	return Estimate{
		BPM:        bpm,
		RawBPM:     best.bpm,
		Confidence: best.strength,
		Onsets:     len(onsets),
	}, true
}

// autocorrelate returns the unbiased, mean-removed autocorrelation of x for
// lags [0, maxLag), normalized so lag 0 is 1. It returns nil for a constant x.
func autocorrelate(x []float64, maxLag int) []float64 {
	n := len(x)
	if n == 0 {
		return nil
	}
	maxLag = min(maxLag, n)

	var mean float64
	for _, v := range x {
		mean += v
	}
	mean /= float64(n)

	centered := make([]float64, n)
	for i, v := range x {
		centered[i] = v - mean
	}

	acf := make([]float64, maxLag)
	for lag := 0; lag < maxLag; lag++ {
		var sum float64
		for i := 0; i+lag < n; i++ {
			sum += centered[i] * centered[i+lag]
		}
		acf[lag] = sum / float64(n-lag)
	}

	if acf[0] <= 0 {
		return nil
	}
	norm := acf[0]
	for i := range acf {
		acf[i] /= norm
	}
	return acf
}

// findCandidates returns every local maximum of acf in [minLag, maxLag] as a
// folded tempo candidate. Peak positions are refined by parabolic
// interpolation.
func (e *Estimator) findCandidates(acf []float64, minLag, maxLag int, framesPerMinute float64) []candidate {
	var out []candidate
	for lag := max(minLag, 1); lag <= maxLag && lag+1 < len(acf); lag++ {
		prev, curr, next := acf[lag-1], acf[lag], acf[lag+1]
		if curr <= 0 || curr < prev || curr <= next {
			continue
		}

		refined := float64(lag)
		if denom := prev - 2*curr + next; denom != 0 {
			refined += 0.5 * (prev - next) / denom
		}
		out = append(out, candidate{
			lag:      refined,
			bpm:      e.fold(framesPerMinute / refined),
			strength: curr,
		})
	}
	return out
}

// fold doubles or halves bpm until it lies in [MinBPM, MaxBPM]
func (e *Estimator) fold(bpm float64) float64 {
	for bpm < e.config.MinBPM {
		bpm *= 2
	}
	for bpm > e.config.MaxBPM {
		bpm /= 2
	}
	return bpm
}

// selectCandidate picks the strongest peak, preferring among comparable
// peaks the one closest to the preferred band. ok is false when even the
// strongest peak is below MinPeakStrength.
func (e *Estimator) selectCandidate(candidates []candidate) (candidate, bool) {
	strongest := candidates[0]
	for _, c := range candidates[1:] {
		if c.strength > strongest.strength {
			strongest = c
		}
	}
	if strongest.strength < e.config.MinPeakStrength {
		return strongest, false
	}

	cutoff := strongest.strength * e.config.TieTolerance
	best := strongest
	bestDist := e.bandDistance(strongest.bpm)
	for _, c := range candidates {
		if c.strength < cutoff {
			continue
		}
		d := e.bandDistance(c.bpm)
		switch {
		case d < bestDist:
		case d == bestDist && c.strength > best.strength:
		case d == bestDist && c.strength == best.strength && c.lag < best.lag:
		default:
			continue
		}
		best, bestDist = c, d
	}
	return best, true
}

// bandDistance is 0 inside the preferred band, else the distance to its nearest edge
func (e *Estimator) bandDistance(bpm float64) float64 {
	switch {
	case bpm < e.config.PreferredMinBPM:
		return e.config.PreferredMinBPM - bpm
	case bpm > e.config.PreferredMaxBPM:
		return bpm - e.config.PreferredMaxBPM
	}
	return 0
}
