package decoder

import (
	"fmt"
	"os"

	"github.com/go-audio/wav"
)

const wavFormatPCM = 1

// decodeWAVFile decodes integer PCM wav files. Float and extensible wav
// encodings are reported as ErrCodeUnsupported so the caller can retry
// through ffmpeg.
func decodeWAVFile(path string) (*CanonicalAudio, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, NewDecodeError(path, ErrCodeDecoding, "cannot open wav file", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, NewDecodeError(path, ErrCodeCorrupt, "invalid or corrupt wav header", dec.Err())
	}
	if dec.WavAudioFormat != wavFormatPCM {
		return nil, NewDecodeError(path, ErrCodeUnsupported,
			fmt.Sprintf("wav audio format %d", dec.WavAudioFormat), nil)
	}

	bitDepth := int(dec.BitDepth)
	switch bitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, NewDecodeError(path, ErrCodeUnsupported, fmt.Sprintf("wav bit depth %d", bitDepth), nil)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, NewDecodeError(path, ErrCodeCorrupt, "failed to read wav samples", err)
	}

	channels := int(dec.NumChans)
	bytesPerSample := (bitDepth-1)/8 + 1
	expected := dec.PCMSize / bytesPerSample
	if len(buf.Data) < expected {
		return nil, NewDecodeError(path, ErrCodeCorrupt,
			fmt.Sprintf("truncated wav data: got %d of %d samples", len(buf.Data), expected), nil)
	}

	interleaved := intToFloat(buf.Data, bitDepth)
	samples, fast, err := normalize(interleaved, int(dec.SampleRate), channels)
	if err != nil {
		return nil, NewDecodeError(path, ErrCodeDecoding, "failed to normalize wav audio", err)
	}

	return &CanonicalAudio{
		Samples:    samples,
		SampleRate: CanonicalSampleRate,
		Channels:   CanonicalChannels,
		Source: SourceInfo{
			Format:     "wav",
			SampleRate: int(dec.SampleRate),
			Channels:   channels,
			BitDepth:   bitDepth,
			FastPath:   fast,
		},
	}, nil
}

// intToFloat scales integer PCM to [-1, 1]. 8-bit wav is unsigned.
func intToFloat(data []int, bitDepth int) []float64 {
	out := make([]float64, len(data))
	switch bitDepth {
	case 8:
		for i, v := range data {
			out[i] = clamp(float64(v-128) / 128.0)
		}
	default:
		scale := float64(int64(1) << uint(bitDepth-1))
		for i, v := range data {
			out[i] = clamp(float64(v) / scale)
		}
	}
	return out
}

func clamp(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
