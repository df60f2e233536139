package analyzers

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrames(t *testing.T) {
	tests := []struct {
		name      string
		samples   int
		size, hop int
		want      int
	}{
		{"exact frame", 1024, 1024, 512, 1},
		{"two hops", 2048, 1024, 512, 3},
		{"partial tail dropped", 2000, 1024, 512, 2},
		{"shorter than a frame", 100, 1024, 512, 1},
		{"empty", 0, 1024, 512, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			samples := make([]float64, tt.samples)
			frames, err := Frames(samples, tt.size, tt.hop)
			require.NoError(t, err)
			assert.Len(t, frames, tt.want)
			assert.Equal(t, tt.want, FrameCount(tt.samples, tt.size, tt.hop))
			for _, f := range frames {
				assert.Len(t, f, tt.size)
			}
		})
	}
}

func TestFramesPadsShortInput(t *testing.T) {
	frames, err := Frames([]float64{0.5, -0.5}, 8, 4)
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, []float64{0.5, -0.5, 0, 0, 0, 0, 0, 0}, frames[0])
}

func TestFramesAreViews(t *testing.T) {
	samples := []float64{1, 2, 3, 4, 5, 6}
	frames, err := Frames(samples, 4, 2)
	require.NoError(t, err)
	require.Len(t, frames, 2)
	assert.Equal(t, []float64{3, 4, 5, 6}, frames[1])
	assert.Equal(t, 4, cap(frames[0]))
}

func TestFramesRejectsBadParams(t *testing.T) {
	_, err := Frames(nil, 0, 1)
	assert.Error(t, err)
	_, err = Frames(nil, 4, 8)
	assert.Error(t, err)
}

func TestRMSAndZeroCrossing(t *testing.T) {
	assert.Equal(t, 0.0, RMS(nil))
	assert.InDelta(t, 0.5, RMS([]float64{0.5, -0.5, 0.5, -0.5}), 1e-12)
	assert.InDelta(t, 1.0, ZeroCrossingRate([]float64{1, -1, 1, -1}), 1e-12)
	assert.Equal(t, 0.0, ZeroCrossingRate([]float64{1, 1, 1}))
}

func TestSpectralCentroidOfSine(t *testing.T) {
	const sr, size = 44100, 1024
	sa, err := NewSpectralAnalyzer(sr, size)
	require.NoError(t, err)

	// place the tone exactly on bin 40
	freq := 40.0 * sr / size
	frame := make([]float64, size)
	for i := range frame {
		frame[i] = math.Sin(2 * math.Pi * freq * float64(i) / sr)
	}
	original := append([]float64(nil), frame...)

	mag, err := sa.ComputeMagnitude(frame)
	require.NoError(t, err)
	assert.Len(t, mag, sa.NumBins())
	assert.Equal(t, original, frame, "input frame must not be windowed in place")

	centroid := SpectralCentroid(mag, sa.Frequencies())
	assert.InDelta(t, freq, centroid, 2*float64(sr)/size)

	rolloff := SpectralRolloff(mag, sa.Frequencies(), 0.85)
	assert.InDelta(t, freq, rolloff, 2*float64(sr)/size)
}

func TestSilentFrameIsFinite(t *testing.T) {
	sa, err := NewSpectralAnalyzer(44100, 1024)
	require.NoError(t, err)

	mag, err := sa.ComputeMagnitude(make([]float64, 1024))
	require.NoError(t, err)

	assert.Equal(t, 0.0, SpectralCentroid(mag, sa.Frequencies()))
	assert.Equal(t, 0.0, SpectralRolloff(mag, sa.Frequencies(), 0.85))

	_, err = sa.ComputeMagnitude(make([]float64, 10))
	assert.Error(t, err)
}

func TestFrequencyBins(t *testing.T) {
	freqs := FrequencyBins(513, 44100)
	assert.Equal(t, 0.0, freqs[0])
	assert.InDelta(t, 22050.0, freqs[512], 1e-9)
}

func TestMelFilterbank(t *testing.T) {
	fb, err := NewMelFilterbank(26, 513, 44100, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 26, fb.NumFilters())

	flat := make([]float64, 513)
	for i := range flat {
		flat[i] = 1
	}
	energies := fb.Apply(flat)
	for i, e := range energies {
		assert.Greater(t, e, 0.0, "filter %d should cover at least one bin", i)
	}

	_, err = NewMelFilterbank(0, 513, 44100, 0, 0)
	assert.Error(t, err)
	_, err = NewMelFilterbank(26, 513, 44100, 30000, 0)
	assert.Error(t, err)
}

func TestLogCompressFloors(t *testing.T) {
	out := LogCompress([]float64{0, math.NaN(), 1})
	assert.InDelta(t, math.Log(LogFloor), out[0], 1e-12)
	assert.InDelta(t, math.Log(LogFloor), out[1], 1e-12)
	assert.Equal(t, 0.0, out[2])
}

func TestDCTOfConstant(t *testing.T) {
	dct, err := NewDCT(26, 13)
	require.NoError(t, err)

	input := make([]float64, 26)
	for i := range input {
		input[i] = 2
	}
	out := dct.Transform(input)
	require.Len(t, out, 13)
	assert.InDelta(t, 2*math.Sqrt(26), out[0], 1e-9)
	for k := 1; k < len(out); k++ {
		assert.InDelta(t, 0, out[k], 1e-9)
	}

	_, err = NewDCT(10, 13)
	assert.Error(t, err)
}
