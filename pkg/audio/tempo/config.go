package tempo

import "fmt"

// Config controls onset detection and periodicity search
type Config struct {
	FrameSize int `json:"frame_size"`
	HopSize   int `json:"hop_size"`

	MinBPM float64 `json:"min_bpm"`
	MaxBPM float64 `json:"max_bpm"`

	// Preferred band used to break ties between comparable periodicities
	PreferredMinBPM float64 `json:"preferred_min_bpm"`
	PreferredMaxBPM float64 `json:"preferred_max_bpm"`

	MinOnsets           int     `json:"min_onsets"`
	MinOnsetGap         int     `json:"min_onset_gap"`        // frames
	ThresholdWindow     int     `json:"threshold_window"`     // frames
	ThresholdMultiplier float64 `json:"threshold_multiplier"` // applied to the moving average
	OnsetFloor          float64 `json:"onset_floor"`          // absolute minimum onset strength
	EnvelopeFloorRatio  float64 `json:"envelope_floor_ratio"` // minimum onset strength relative to the loudest frame

	MinPeakStrength float64 `json:"min_peak_strength"` // normalized autocorrelation
	TieTolerance    float64 `json:"tie_tolerance"`     // fraction of the best peak
}

// DefaultConfig returns the estimator defaults
func DefaultConfig() Config {
	return Config{
		FrameSize:           1024,
		HopSize:             512,
		MinBPM:              40,
		MaxBPM:              220,
		PreferredMinBPM:     100,
		PreferredMaxBPM:     140,
		MinOnsets:           4,
		MinOnsetGap:         4,
		ThresholdWindow:     16,
		ThresholdMultiplier: 1.5,
		OnsetFloor:          1e-3,
		EnvelopeFloorRatio:  0.05,
		MinPeakStrength:     0.1,
		TieTolerance:        0.9,
	}
}

// Validate checks the config
func (c Config) Validate() error {
	if c.FrameSize <= 0 || c.HopSize <= 0 || c.HopSize > c.FrameSize {
		return fmt.Errorf("invalid framing: frame=%d hop=%d", c.FrameSize, c.HopSize)
	}
	if c.MinBPM <= 0 || c.MaxBPM < 2*c.MinBPM {
		return fmt.Errorf("bpm range [%v, %v] must span at least one octave", c.MinBPM, c.MaxBPM)
	}
	if c.PreferredMinBPM > c.PreferredMaxBPM {
		return fmt.Errorf("preferred band is inverted: [%v, %v]", c.PreferredMinBPM, c.PreferredMaxBPM)
	}
	if c.MinOnsets < 2 {
		return fmt.Errorf("min onsets must be at least 2: %d", c.MinOnsets)
	}
	if c.ThresholdWindow <= 0 {
		return fmt.Errorf("threshold window must be positive: %d", c.ThresholdWindow)
	}
	if c.TieTolerance <= 0 || c.TieTolerance > 1 {
		return fmt.Errorf("tie tolerance must be in (0, 1]: %v", c.TieTolerance)
	}
	return nil
}
