// Package analyzers holds the framing and spectral primitives shared by the
// tempo and feature stages.
package analyzers

import (
	"fmt"
	"math"
)

// Frames splits samples into frames of size starting every hop samples. The
// frames are views into samples and must not be modified. A signal shorter
// than one frame yields a single zero-padded copy; an empty signal yields a
// single silent frame.
func Frames(samples []float64, size, hop int) ([][]float64, error) {
	if size <= 0 || hop <= 0 {
		return nil, fmt.Errorf("frame size and hop must be positive: size=%d hop=%d", size, hop)
	}
	if hop > size {
		return nil, fmt.Errorf("hop %d larger than frame size %d", hop, size)
	}

	if len(samples) < size {
		padded := make([]float64, size)
		copy(padded, samples)
		return [][]float64{padded}, nil
	}

	count := (len(samples)-size)/hop + 1
	frames := make([][]float64, count)
	for i := range frames {
		start := i * hop
		frames[i] = samples[start : start+size : start+size]
	}
	return frames, nil
}

// FrameCount returns how many frames Frames would produce
func FrameCount(numSamples, size, hop int) int {
	if size <= 0 || hop <= 0 {
		return 0
	}
	if numSamples < size {
		return 1
	}
	return (numSamples-size)/hop + 1
}

// RMS is the root mean square of frame
func RMS(frame []float64) float64 {
	if len(frame) == 0 {
		return 0
	}
	var sum float64
	for _, v := range frame {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(frame)))
}

// ZeroCrossingRate is the fraction of adjacent sample pairs that change sign
func ZeroCrossingRate(frame []float64) float64 {
	if len(frame) < 2 {
		return 0
	}
	crossings := 0
	for i := 1; i < len(frame); i++ {
		if (frame[i] >= 0) != (frame[i-1] >= 0) {
			crossings++
		}
	}
	return float64(crossings) / float64(len(frame)-1)
}
