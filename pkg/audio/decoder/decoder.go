package decoder

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/RyanBlaney/track-analysis/pkg/logging"
)

// CanonicalAudio is mono 44.1 kHz audio with samples in [-1, 1]. It is
// never modified after Decode returns it, so it can be shared by readers.
type CanonicalAudio struct {
	Samples    []float64  `json:"-"`
	SampleRate int        `json:"sample_rate"`
	Channels   int        `json:"channels"`
	Source     SourceInfo `json:"source"`
}

// SourceInfo describes the input before normalization
type SourceInfo struct {
	Path       string `json:"path"`
	Format     string `json:"format"` // wav, mp3 or ffmpeg
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
	BitDepth   int    `json:"bit_depth,omitempty"`
	FastPath   bool   `json:"fast_path"`
}

// Duration returns the length of the audio
func (a *CanonicalAudio) Duration() time.Duration {
	if a == nil || a.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(a.Samples)) / float64(a.SampleRate) * float64(time.Second))
}

// Decoder turns an audio file into canonical audio
type Decoder interface {
	Decode(ctx context.Context, path string) (*CanonicalAudio, error)
}

// FileDecoder decodes wav and mp3 natively and everything else through ffmpeg
type FileDecoder struct {
	config *Config
	logger logging.Logger
}

type container int

const (
	containerUnknown container = iota
	containerWAV
	containerMP3
)

// NewDecoder creates a decoder. A nil config uses DefaultConfig.
func NewDecoder(config *Config, logger logging.Logger) *FileDecoder {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &FileDecoder{
		config: config,
		logger: logger.WithFields(logging.Fields{"component": "audio_decoder"}),
	}
}

// Decode reads the file at path and returns it as canonical audio. Every
// failure is a *DecodeError.
func (d *FileDecoder) Decode(ctx context.Context, path string) (*CanonicalAudio, error) {
	logger := d.logger.WithFields(logging.Fields{"path": path})

	if err := ctx.Err(); err != nil {
		return nil, contextError(path, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, NewDecodeError(path, ErrCodeNotFound, "file not found", err)
		}
		return nil, NewDecodeError(path, ErrCodeDecoding, "cannot stat input", err)
	}
	if info.IsDir() {
		return nil, NewDecodeError(path, ErrCodeInvalidFormat, "input is a directory", nil)
	}
	if info.Size() == 0 {
		return nil, NewDecodeError(path, ErrCodeEmpty, "input file is empty", nil)
	}

	kind, err := detectContainer(path)
	if err != nil {
		return nil, NewDecodeError(path, ErrCodeDecoding, "cannot read input", err)
	}

	var audio *CanonicalAudio
	switch {
	case d.config.PreferFFmpeg:
		audio, err = d.decodeWithFFmpeg(ctx, path)
	case kind == containerWAV:
		audio, err = decodeWAVFile(path)
		var de *DecodeError
		if errors.As(err, &de) && de.Code == ErrCodeUnsupported {
			logger.Debug("wav encoding not handled natively, falling back to ffmpeg", logging.Fields{
				"reason": de.Message,
			})
			audio, err = d.decodeWithFFmpeg(ctx, path)
		}
	case kind == containerMP3:
		audio, err = decodeMP3File(path)
	default:
		audio, err = d.decodeWithFFmpeg(ctx, path)
	}
	if err != nil {
		return nil, err
	}

	if len(audio.Samples) == 0 {
		return nil, NewDecodeError(path, ErrCodeEmpty, "decoded audio contains no samples", nil)
	}
	audio.Source.Path = path

	logger.Debug("decode completed", logging.Fields{
		"format":      audio.Source.Format,
		"source_rate": audio.Source.SampleRate,
		"source_ch":   audio.Source.Channels,
		"fast_path":   audio.Source.FastPath,
		"samples":     len(audio.Samples),
		"duration":    audio.Duration().Seconds(),
	})

	return audio, nil
}

// SupportedFormats lists the extensions handled natively and those handed to ffmpeg
func SupportedFormats() (native, external []string) {
	return []string{"wav", "mp3"},
		[]string{"aac", "aiff", "flac", "m4a", "ogg", "opus", "wma", "webm", "mp4"}
}

// detectContainer sniffs the first bytes of the file and falls back to its extension
func detectContainer(path string) (container, error) {
	f, err := os.Open(path)
	if err != nil {
		return containerUnknown, err
	}
	defer f.Close()

	head, err := bufio.NewReader(f).Peek(12)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return containerUnknown, err
	}

	switch {
	case len(head) >= 12 && bytes.Equal(head[0:4], []byte("RIFF")) && bytes.Equal(head[8:12], []byte("WAVE")):
		return containerWAV, nil
	case len(head) >= 3 && bytes.Equal(head[0:3], []byte("ID3")):
		return containerMP3, nil
	case len(head) >= 2 && head[0] == 0xFF && head[1]&0xE0 == 0xE0:
		return containerMP3, nil
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".wave":
		return containerWAV, nil
	case ".mp3":
		return containerMP3, nil
	}
	return containerUnknown, nil
}

func contextError(path string, err error) *DecodeError {
	if errors.Is(err, context.DeadlineExceeded) {
		return NewDecodeError(path, ErrCodeTimeout, "decode timed out", err)
	}
	return NewDecodeError(path, ErrCodeCancelled, "decode cancelled", err)
}
