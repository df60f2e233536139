package features

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/RyanBlaney/track-analysis/pkg/audio/analyzers"
	"github.com/RyanBlaney/track-analysis/pkg/audio/decoder"
	"github.com/RyanBlaney/track-analysis/pkg/logging"
)

// Config controls framing and MFCC computation
type Config struct {
	FrameSize     int     `json:"frame_size"`
	HopSize       int     `json:"hop_size"`
	NumMFCC       int     `json:"num_mfcc"`
	NumMelFilters int     `json:"num_mel_filters"`
	MinFreq       float64 `json:"min_freq"`
	MaxFreq       float64 `json:"max_freq"` // 0 means Nyquist
	RolloffRatio  float64 `json:"rolloff_ratio"`
}

// DefaultConfig returns 1024-sample frames at hop 512 with 13 MFCCs from 26 mel filters
func DefaultConfig() Config {
	return Config{
		FrameSize:     1024,
		HopSize:       512,
		NumMFCC:       13,
		NumMelFilters: 26,
		RolloffRatio:  0.85,
	}
}

// Validate checks the config
func (c Config) Validate() error {
	if c.FrameSize < 2 {
		return fmt.Errorf("frame size must be at least 2: %d", c.FrameSize)
	}
	if c.HopSize <= 0 || c.HopSize > c.FrameSize {
		return fmt.Errorf("hop size must be in (0, frame size]: %d", c.HopSize)
	}
	if c.NumMFCC <= 0 || c.NumMFCC > c.NumMelFilters {
		return fmt.Errorf("mfcc count must be in (0, mel filters]: %d", c.NumMFCC)
	}
	if c.RolloffRatio <= 0 || c.RolloffRatio > 1 {
		return fmt.Errorf("rolloff ratio must be in (0, 1]: %v", c.RolloffRatio)
	}
	return nil
}

// Extractor computes AggregateFeatures. It holds no mutable state and is
// safe for concurrent use.
type Extractor struct {
	config Config
	logger logging.Logger
}

// NewExtractor creates an extractor
func NewExtractor(config Config, logger logging.Logger) *Extractor {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Extractor{
		config: config,
		logger: logger.WithFields(logging.Fields{"component": "feature_extractor"}),
	}
}

// Extract computes the aggregate features of audio
func (e *Extractor) Extract(ctx context.Context, audio *decoder.CanonicalAudio) (*AggregateFeatures, error) {
	if audio == nil {
		return nil, newExtractionError("input", "no audio", nil)
	}
	return e.ExtractSamples(ctx, audio.Samples, audio.SampleRate)
}

// ExtractSamples computes the aggregate features of mono samples at sampleRate
func (e *Extractor) ExtractSamples(ctx context.Context, samples []float64, sampleRate int) (*AggregateFeatures, error) {
	if err := e.config.Validate(); err != nil {
		return nil, newExtractionError("config", "invalid feature config", err)
	}
	if sampleRate <= 0 {
		return nil, newExtractionError("input", fmt.Sprintf("invalid sample rate %d", sampleRate), nil)
	}

	logger := e.logger.WithFields(logging.Fields{
		"function":    "ExtractSamples",
		"samples":     len(samples),
		"sample_rate": sampleRate,
	})

	frames, err := analyzers.Frames(samples, e.config.FrameSize, e.config.HopSize)
	if err != nil {
		return nil, newExtractionError("framing", "failed to frame audio", err)
	}

	spectral, err := analyzers.NewSpectralAnalyzer(sampleRate, e.config.FrameSize)
	if err != nil {
		return nil, newExtractionError("spectrum", "failed to create spectral analyzer", err)
	}
	melBank, err := analyzers.NewMelFilterbank(e.config.NumMelFilters, spectral.NumBins(), sampleRate,
		e.config.MinFreq, e.config.MaxFreq)
	if err != nil {
		return nil, newExtractionError("mfcc", "failed to create mel filterbank", err)
	}
	dct, err := analyzers.NewDCT(e.config.NumMelFilters, e.config.NumMFCC)
	if err != nil {
		return nil, newExtractionError("mfcc", "failed to create dct", err)
	}

	n := len(frames)
	rms := make([]float64, n)
	centroid := make([]float64, n)
	rolloff := make([]float64, n)
	zcr := make([]float64, n)
	mfccSum := make([]float64, e.config.NumMFCC)

	for i, frame := range frames {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		ff, err := e.frameFeatures(frame, spectral, melBank, dct)
		if err != nil {
			return nil, newExtractionError("frame", fmt.Sprintf("frame %d", i), err)
		}
		rms[i] = ff.RMS
		centroid[i] = ff.SpectralCentroid
		rolloff[i] = ff.SpectralRolloff
		zcr[i] = ff.ZeroCrossingRate
		floats.Add(mfccSum, ff.MFCC)
	}

	floats.Scale(1/float64(n), mfccSum)
	agg := &AggregateFeatures{
		RMS:              stat.Mean(rms, nil),
		SpectralCentroid: stat.Mean(centroid, nil),
		SpectralRolloff:  stat.Mean(rolloff, nil),
		ZeroCrossingRate: stat.Mean(zcr, nil),
		MFCC:             mfccSum,
		FrameCount:       n,
	}

	if err := agg.Validate(); err != nil {
		logger.Warn("aggregate features are not finite", logging.Fields{"error": err.Error()})
		return nil, newExtractionError("aggregate", "non-finite feature value", err)
	}

	logger.Debug("features extracted", logging.Fields{
		"frames":   n,
		"rms":      agg.RMS,
		"centroid": agg.SpectralCentroid,
	})

	return agg, nil
}

// frameFeatures computes every per-frame feature. Centroid, rolloff and mel
// energies all use the magnitude spectrum.
func (e *Extractor) frameFeatures(frame []float64, spectral *analyzers.SpectralAnalyzer,
	melBank *analyzers.MelFilterbank, dct *analyzers.DCT) (*FrameFeatures, error) {

	magnitude, err := spectral.ComputeMagnitude(frame)
	if err != nil {
		return nil, err
	}
	freqs := spectral.Frequencies()

	return &FrameFeatures{
		RMS:              analyzers.RMS(frame),
		SpectralCentroid: analyzers.SpectralCentroid(magnitude, freqs),
		SpectralRolloff:  analyzers.SpectralRolloff(magnitude, freqs, e.config.RolloffRatio),
		ZeroCrossingRate: analyzers.ZeroCrossingRate(frame),
		MFCC:             dct.Transform(analyzers.LogCompress(melBank.Apply(magnitude))),
	}, nil
}
