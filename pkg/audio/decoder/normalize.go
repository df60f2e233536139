package decoder

import (
	"fmt"
	"math"

	resampling "github.com/tphakala/go-audio-resampling"
)

// normalize mixes interleaved samples down to mono and resamples them to the
// canonical rate. fast is true when the input was already canonical and
// neither step ran.
func normalize(interleaved []float64, sampleRate, channels int) (samples []float64, fast bool, err error) {
	if sampleRate <= 0 {
		return nil, false, fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	if channels <= 0 {
		return nil, false, fmt.Errorf("invalid channel count %d", channels)
	}

	if sampleRate == CanonicalSampleRate && channels == CanonicalChannels {
		return interleaved, true, nil
	}

	mono := downmix(interleaved, channels)
	if sampleRate == CanonicalSampleRate {
		return mono, false, nil
	}

	out, err := resample(mono, sampleRate, CanonicalSampleRate)
	if err != nil {
		return nil, false, err
	}
	return out, false, nil
}

// downmix averages each frame's channels
func downmix(interleaved []float64, channels int) []float64 {
	if channels == 1 {
		return interleaved
	}
	frames := len(interleaved) / channels
	mono := make([]float64, frames)
	inv := 1.0 / float64(channels)
	for i := 0; i < frames; i++ {
		var sum float64
		base := i * channels
		for c := 0; c < channels; c++ {
			sum += interleaved[base+c]
		}
		mono[i] = sum * inv
	}
	return mono
}

func resample(mono []float64, from, to int) ([]float64, error) {
	r, err := resampling.New(&resampling.Config{
		InputRate:  float64(from),
		OutputRate: float64(to),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create resampler: %w", err)
	}

	out, err := r.Process(mono)
	if err != nil {
		return nil, fmt.Errorf("failed to resample %d Hz to %d Hz: %w", from, to, err)
	}

	// The filter holds back its tail until flushed
	tail, err := r.Flush()
	if err != nil {
		return nil, fmt.Errorf("failed to flush resampler: %w", err)
	}
	out = append(out, tail...)

	if want := resampledLength(len(mono), from, to); len(out) > want {
		out = out[:want]
	}

	for i, v := range out {
		out[i] = clamp(v)
	}
	return out, nil
}

// resampledLength is the number of output samples covering the same duration
// as n input samples
func resampledLength(n, from, to int) int {
	return int(math.Round(float64(n) * float64(to) / float64(from)))
}
