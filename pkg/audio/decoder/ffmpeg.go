package decoder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/RyanBlaney/track-analysis/pkg/logging"
)

// ProbeInfo is the subset of ffprobe output the CLI reports
type ProbeInfo struct {
	Format     string  `json:"format" yaml:"format"`
	Codec      string  `json:"codec" yaml:"codec"`
	SampleRate int     `json:"sample_rate" yaml:"sample_rate"`
	Channels   int     `json:"channels" yaml:"channels"`
	Duration   float64 `json:"duration" yaml:"duration"`
	BitRate    int     `json:"bit_rate" yaml:"bit_rate"`
}

// decodeWithFFmpeg converts the input into a temporary canonical wav and
// decodes that. The temporary file is removed on every return path.
func (d *FileDecoder) decodeWithFFmpeg(ctx context.Context, path string) (*CanonicalAudio, error) {
	logger := d.logger.WithFields(logging.Fields{
		"path":    path,
		"timeout": d.config.Timeout.String(),
	})

	ffmpeg, err := exec.LookPath(d.config.FFmpegPath)
	if err != nil {
		return nil, NewDecodeError(path, ErrCodeToolUnavailable,
			fmt.Sprintf("ffmpeg not found at %s", d.config.FFmpegPath), err)
	}

	tmp, err := os.CreateTemp(d.config.TempDir, "track-analysis-*.wav")
	if err != nil {
		return nil, NewDecodeError(path, ErrCodeDecoding, "failed to create temporary file", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer func() {
		if rmErr := os.Remove(tmpPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			logger.Warn("failed to remove temporary file", logging.Fields{"temp": tmpPath, "error": rmErr.Error()})
		}
	}()

	runCtx, cancel := context.WithTimeout(ctx, d.toolTimeout())
	defer cancel()

	args := buildFFmpegArgs(path, tmpPath)
	cmd := exec.CommandContext(runCtx, ffmpeg, args...)
	cmd.Env = append(os.Environ(), "LC_ALL=C")
	cmd.WaitDelay = time.Second
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	logger.Debug("running ffmpeg", logging.Fields{"args": strings.Join(args, " ")})

	start := time.Now()
	if err := cmd.Run(); err != nil {
		if ctxErr := runCtx.Err(); ctxErr != nil {
			return nil, contextError(path, ctxErr)
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = "ffmpeg failed"
		}
		return nil, NewDecodeError(path, ErrCodeDecoding, msg, err)
	}

	audio, err := decodeWAVFile(tmpPath)
	if err != nil {
		var de *DecodeError
		if errors.As(err, &de) {
			de.Path = path
			return nil, de
		}
		return nil, NewDecodeError(path, ErrCodeDecoding, "failed to read ffmpeg output", err)
	}
	audio.Source.Format = "ffmpeg"

	logger.Debug("ffmpeg conversion completed", logging.Fields{
		"elapsed_ms": time.Since(start).Milliseconds(),
	})

	return audio, nil
}

func buildFFmpegArgs(input, output string) []string {
	return []string{
		"-nostdin",
		"-v", "error",
		"-y",
		"-i", input,
		"-vn",
		"-ac", strconv.Itoa(CanonicalChannels),
		"-ar", strconv.Itoa(CanonicalSampleRate),
		"-acodec", "pcm_s16le",
		"-f", "wav",
		output,
	}
}

// CheckFFmpeg reports whether the configured ffmpeg and ffprobe binaries can be run
func (d *FileDecoder) CheckFFmpeg(ctx context.Context) error {
	for _, bin := range []string{d.config.FFmpegPath, d.config.FFprobePath} {
		resolved, err := exec.LookPath(bin)
		if err != nil {
			return fmt.Errorf("%s not found: %w", bin, err)
		}
		cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = exec.CommandContext(cctx, resolved, "-version").Run()
		cancel()
		if err != nil {
			return fmt.Errorf("%s -version failed: %w", bin, err)
		}
	}
	return nil
}

// Probe reads stream information for path using ffprobe
func (d *FileDecoder) Probe(ctx context.Context, path string) (*ProbeInfo, error) {
	ffprobe, err := exec.LookPath(d.config.FFprobePath)
	if err != nil {
		return nil, NewDecodeError(path, ErrCodeToolUnavailable,
			fmt.Sprintf("ffprobe not found at %s", d.config.FFprobePath), err)
	}

	runCtx, cancel := context.WithTimeout(ctx, d.toolTimeout())
	defer cancel()

	cmd := exec.CommandContext(runCtx, ffprobe,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		"-select_streams", "a:0",
		path,
	)
	cmd.WaitDelay = time.Second
	out, err := cmd.Output()
	if err != nil {
		if ctxErr := runCtx.Err(); ctxErr != nil {
			return nil, contextError(path, ctxErr)
		}
		return nil, NewDecodeError(path, ErrCodeInvalidFormat, "ffprobe failed", err)
	}

	info, err := parseProbeOutput(out)
	if err != nil {
		return nil, NewDecodeError(path, ErrCodeInvalidFormat, "unreadable ffprobe output", err)
	}
	return info, nil
}

// toolTimeout bounds one ffmpeg or ffprobe run; unset means the default
func (d *FileDecoder) toolTimeout() time.Duration {
	if d.config.Timeout <= 0 {
		return DefaultConfig().Timeout
	}
	return d.config.Timeout
}

func parseProbeOutput(data []byte) (*ProbeInfo, error) {
	var probe struct {
		Streams []struct {
			CodecType  string `json:"codec_type"`
			CodecName  string `json:"codec_name"`
			SampleRate string `json:"sample_rate"`
			Channels   int    `json:"channels"`
			Duration   string `json:"duration"`
			BitRate    string `json:"bit_rate"`
		} `json:"streams"`
		Format struct {
			FormatName string `json:"format_name"`
			Duration   string `json:"duration"`
			BitRate    string `json:"bit_rate"`
		} `json:"format"`
	}

	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	if len(probe.Streams) == 0 {
		return nil, fmt.Errorf("no audio streams found")
	}

	stream := probe.Streams[0]
	if stream.CodecType != "audio" {
		return nil, fmt.Errorf("stream is not audio type: %s", stream.CodecType)
	}

	info := &ProbeInfo{
		Format:   probe.Format.FormatName,
		Codec:    stream.CodecName,
		Channels: stream.Channels,
	}
	info.SampleRate, _ = strconv.Atoi(stream.SampleRate)

	duration := stream.Duration
	if duration == "" {
		duration = probe.Format.Duration
	}
	info.Duration, _ = strconv.ParseFloat(duration, 64)

	bitRate := stream.BitRate
	if bitRate == "" {
		bitRate = probe.Format.BitRate
	}
	info.BitRate, _ = strconv.Atoi(bitRate)

	return info, nil
}
