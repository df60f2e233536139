package decoder

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"

	"github.com/hajimehoshi/go-mp3"
)

// go-mp3 always produces signed 16-bit little-endian stereo
const mp3Channels = 2

func decodeMP3File(path string) (*CanonicalAudio, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, NewDecodeError(path, ErrCodeDecoding, "cannot open mp3 file", err)
	}
	defer f.Close()

	dec, err := mp3.NewDecoder(bufio.NewReader(f))
	if err != nil {
		return nil, NewDecodeError(path, ErrCodeCorrupt, "invalid or corrupt mp3 stream", err)
	}

	pcm, err := io.ReadAll(dec)
	if err != nil {
		return nil, NewDecodeError(path, ErrCodeCorrupt, "failed to decode mp3 frames", err)
	}
	if len(pcm) < 4 {
		return nil, NewDecodeError(path, ErrCodeEmpty, "mp3 stream contains no audio frames", nil)
	}

	sampleRate := dec.SampleRate()
	interleaved := s16leToFloat(pcm)

	samples, fast, err := normalize(interleaved, sampleRate, mp3Channels)
	if err != nil {
		return nil, NewDecodeError(path, ErrCodeDecoding, "failed to normalize mp3 audio", err)
	}

	return &CanonicalAudio{
		Samples:    samples,
		SampleRate: CanonicalSampleRate,
		Channels:   CanonicalChannels,
		Source: SourceInfo{
			Format:     "mp3",
			SampleRate: sampleRate,
			Channels:   mp3Channels,
			BitDepth:   16,
			FastPath:   fast,
		},
	}, nil
}

func s16leToFloat(pcm []byte) []float64 {
	n := len(pcm) / 2
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		v := int16(binary.LittleEndian.Uint16(pcm[i*2:]))
		out[i] = float64(v) / 32768.0
	}
	return out
}
