package analyzers

import (
	"fmt"
	"math"
)

// LogFloor is the smallest mel energy passed to log, so silence stays finite
const LogFloor = 1e-10

// MelFilterbank is a bank of triangular filters over a magnitude spectrum
type MelFilterbank struct {
	filters [][]float64
}

func hzToMel(hz float64) float64 {
	return 2595.0 * math.Log10(1.0+hz/700.0)
}

func melToHz(mel float64) float64 {
	return 700.0 * (math.Pow(10, mel/2595.0) - 1.0)
}

// NewMelFilterbank builds numFilters triangular filters equally spaced on the
// mel scale between minFreq and maxFreq, over numBins spectrum bins
func NewMelFilterbank(numFilters, numBins, sampleRate int, minFreq, maxFreq float64) (*MelFilterbank, error) {
	if numFilters <= 0 {
		return nil, fmt.Errorf("number of mel filters must be positive: %d", numFilters)
	}
	if numBins < 2 {
		return nil, fmt.Errorf("need at least 2 spectrum bins: %d", numBins)
	}
	nyquist := float64(sampleRate) / 2
	if maxFreq <= 0 || maxFreq > nyquist {
		maxFreq = nyquist
	}
	if minFreq < 0 || minFreq >= maxFreq {
		return nil, fmt.Errorf("invalid mel frequency range [%.1f, %.1f]", minFreq, maxFreq)
	}

	lowMel := hzToMel(minFreq)
	highMel := hzToMel(maxFreq)
	step := (highMel - lowMel) / float64(numFilters+1)

	edges := make([]float64, numFilters+2)
	for i := range edges {
		edges[i] = melToHz(lowMel + float64(i)*step)
	}

	freqs := FrequencyBins(numBins, sampleRate)
	filters := make([][]float64, numFilters)
	for i := range filters {
		left, center, right := edges[i], edges[i+1], edges[i+2]
		filter := make([]float64, numBins)
		for j, f := range freqs {
			switch {
			case f < left || f > right:
			case f <= center:
				if center > left {
					filter[j] = (f - left) / (center - left)
				}
			default:
				if right > center {
					filter[j] = (right - f) / (right - center)
				}
			}
		}
		filters[i] = filter
	}

	return &MelFilterbank{filters: filters}, nil
}

// NumFilters returns the number of filters in the bank
func (fb *MelFilterbank) NumFilters() int {
	return len(fb.filters)
}

// Apply returns the energy of magnitude under each filter
func (fb *MelFilterbank) Apply(magnitude []float64) []float64 {
	out := make([]float64, len(fb.filters))
	for i, filter := range fb.filters {
		var sum float64
		for j, w := range filter {
			if w == 0 || j >= len(magnitude) {
				continue
			}
			sum += magnitude[j] * w
		}
		out[i] = sum
	}
	return out
}

// LogCompress returns log(max(x, LogFloor)) for each value
func LogCompress(energies []float64) []float64 {
	out := make([]float64, len(energies))
	for i, e := range energies {
		if e < LogFloor || math.IsNaN(e) {
			e = LogFloor
		}
		out[i] = math.Log(e)
	}
	return out
}

// DCT is an orthonormal type-II DCT with a precomputed basis
type DCT struct {
	basis [][]float64
}

// NewDCT prepares a DCT mapping inputLen values to numCoeffs coefficients
func NewDCT(inputLen, numCoeffs int) (*DCT, error) {
	if inputLen <= 0 || numCoeffs <= 0 {
		return nil, fmt.Errorf("invalid dct size %d -> %d", inputLen, numCoeffs)
	}
	if numCoeffs > inputLen {
		return nil, fmt.Errorf("cannot take %d coefficients from %d inputs", numCoeffs, inputLen)
	}

	n := float64(inputLen)
	basis := make([][]float64, numCoeffs)
	for k := range basis {
		scale := math.Sqrt(2.0 / n)
		if k == 0 {
			scale = math.Sqrt(1.0 / n)
		}
		row := make([]float64, inputLen)
		for i := range row {
			row[i] = scale * math.Cos(math.Pi*float64(k)*(2*float64(i)+1)/(2*n))
		}
		basis[k] = row
	}
	return &DCT{basis: basis}, nil
}

// Transform applies the DCT to input
func (d *DCT) Transform(input []float64) []float64 {
	out := make([]float64, len(d.basis))
	for k, row := range d.basis {
		var sum float64
		for i, w := range row {
			if i < len(input) {
				sum += input[i] * w
			}
		}
		out[k] = sum
	}
	return out
}
