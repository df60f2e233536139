package analyzers

import (
	"fmt"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"

	"github.com/RyanBlaney/track-analysis/pkg/logging"
)

// SpectralAnalyzer computes Hann-windowed magnitude spectra for fixed-size
// frames. It keeps a scratch buffer, so one analyzer must not be shared
// between goroutines.
type SpectralAnalyzer struct {
	sampleRate int
	frameSize  int
	window     []float64
	scratch    []float64
	freqs      []float64
	logger     logging.Logger
}

// NewSpectralAnalyzer creates an analyzer for frames of frameSize samples
func NewSpectralAnalyzer(sampleRate, frameSize int) (*SpectralAnalyzer, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive: %d", sampleRate)
	}
	if frameSize < 2 {
		return nil, fmt.Errorf("frame size must be at least 2: %d", frameSize)
	}

	sa := &SpectralAnalyzer{
		sampleRate: sampleRate,
		frameSize:  frameSize,
		window:     window.Hann(frameSize),
		scratch:    make([]float64, frameSize),
		logger: logging.WithFields(logging.Fields{
			"component":   "spectral_analyzer",
			"sample_rate": sampleRate,
			"frame_size":  frameSize,
		}),
	}
	sa.freqs = FrequencyBins(sa.NumBins(), sampleRate)
	return sa, nil
}

// NumBins is the number of non-negative frequency bins, frameSize/2 + 1
func (sa *SpectralAnalyzer) NumBins() int {
	return sa.frameSize/2 + 1
}

// Frequencies returns the centre frequency of every bin. The slice is shared.
func (sa *SpectralAnalyzer) Frequencies() []float64 {
	return sa.freqs
}

// ComputeMagnitude windows frame and returns its magnitude spectrum. The
// frame itself is left untouched; it is copied before windowing.
func (sa *SpectralAnalyzer) ComputeMagnitude(frame []float64) ([]float64, error) {
	if len(frame) != sa.frameSize {
		return nil, fmt.Errorf("frame length %d does not match analyzer frame size %d", len(frame), sa.frameSize)
	}

	for i, v := range frame {
		sa.scratch[i] = v * sa.window[i]
	}

	spectrum := FFT(sa.scratch)

	bins := sa.NumBins()
	magnitude := make([]float64, bins)
	for i := 0; i < bins; i++ {
		magnitude[i] = cmplx.Abs(spectrum[i])
	}
	return magnitude, nil
}

// FFT computes the discrete Fourier transform of a real signal using go-dsp
func FFT(x []float64) []complex128 {
	if len(x) == 0 {
		return []complex128{}
	}
	return fft.FFTReal(x)
}

// FrequencyBins returns bin centre frequencies for a spectrum of numBins
// non-negative bins
func FrequencyBins(numBins, sampleRate int) []float64 {
	freqs := make([]float64, numBins)
	if numBins < 2 {
		return freqs
	}
	for i := range freqs {
		freqs[i] = float64(i) * float64(sampleRate) / float64((numBins-1)*2)
	}
	return freqs
}

// SpectralCentroid is the magnitude-weighted mean frequency. A silent frame
// has centroid 0.
func SpectralCentroid(magnitude, freqs []float64) float64 {
	var weighted, total float64
	for i, m := range magnitude {
		if i >= len(freqs) {
			break
		}
		weighted += freqs[i] * m
		total += m
	}
	if total == 0 {
		return 0
	}
	return weighted / total
}

// SpectralRolloff returns the frequency below which threshold of the
// magnitude sum lies. A silent frame has rolloff 0.
func SpectralRolloff(magnitude, freqs []float64, threshold float64) float64 {
	var total float64
	for _, m := range magnitude {
		total += m
	}
	if total == 0 {
		return 0
	}

	target := threshold * total
	var cumulative float64
	for i, m := range magnitude {
		cumulative += m
		if cumulative >= target && i < len(freqs) {
			return freqs[i]
		}
	}
	if len(freqs) == 0 {
		return 0
	}
	return freqs[len(freqs)-1]
}
