// Package features computes per-frame energy and spectral features from
// canonical audio and averages them into one AggregateFeatures record.
package features

import (
	"fmt"
	"math"
)

// FrameFeatures holds the features of one analysis frame
type FrameFeatures struct {
	RMS              float64   `json:"rms"`
	SpectralCentroid float64   `json:"spectral_centroid"`
	SpectralRolloff  float64   `json:"spectral_rolloff"`
	ZeroCrossingRate float64   `json:"zero_crossing_rate"`
	MFCC             []float64 `json:"mfcc"`
}

// AggregateFeatures is the arithmetic mean of every FrameFeatures field over
// all frames of a track. Mood inference reads only this summary.
type AggregateFeatures struct {
	RMS              float64   `json:"rms"`                // Loudness on a [-1, 1] scale
	SpectralCentroid float64   `json:"spectral_centroid"`  // Brightness in Hz
	SpectralRolloff  float64   `json:"spectral_rolloff"`   // 85% energy frequency in Hz
	ZeroCrossingRate float64   `json:"zero_crossing_rate"` // Noisiness
	MFCC             []float64 `json:"mfcc"`               // Per-coefficient mean
	FrameCount       int       `json:"frame_count"`
}

// MeanMFCC is the mean of the aggregated MFCC coefficients
func (a *AggregateFeatures) MeanMFCC() float64 {
	if a == nil || len(a.MFCC) == 0 {
		return 0
	}
	var sum float64
	for _, c := range a.MFCC {
		sum += c
	}
	return sum / float64(len(a.MFCC))
}

// Validate reports the first non-finite field
func (a *AggregateFeatures) Validate() error {
	scalars := []struct {
		name  string
		value float64
	}{
		{"rms", a.RMS},
		{"spectral_centroid", a.SpectralCentroid},
		{"spectral_rolloff", a.SpectralRolloff},
		{"zero_crossing_rate", a.ZeroCrossingRate},
	}
	for _, s := range scalars {
		if !isFinite(s.value) {
			return fmt.Errorf("%s is not finite", s.name)
		}
	}
	for i, c := range a.MFCC {
		if !isFinite(c) {
			return fmt.Errorf("mfcc[%d] is not finite", i)
		}
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func (e *FeatureExtractionError) Error() string {
	if e.Cause != nil {
		return e.Stage + ": " + e.Message + ": " + e.Cause.Error()
	}
	return e.Stage + ": " + e.Message
}

// FeatureExtractionError is returned when features cannot be computed
type FeatureExtractionError struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *FeatureExtractionError) Unwrap() error {
	return e.Cause
}

func newExtractionError(stage, message string, cause error) *FeatureExtractionError {
	return &FeatureExtractionError{Stage: stage, Message: message, Cause: cause}
}
