package decoder

import (
	"fmt"
	"time"
)

const (
	// CanonicalSampleRate is the rate every decoded stream is converted to
	CanonicalSampleRate = 44100
	// CanonicalChannels is the channel count every decoded stream is mixed to
	CanonicalChannels = 1
)

// Config controls the decoder
type Config struct {
	FFmpegPath   string        `json:"ffmpeg_path"`
	FFprobePath  string        `json:"ffprobe_path"`
	Timeout      time.Duration `json:"timeout"`       // upper bound for one external decode
	TempDir      string        `json:"temp_dir"`      // "" means os.TempDir()
	PreferFFmpeg bool          `json:"prefer_ffmpeg"` // skip native wav/mp3 decoding
}

// DefaultConfig returns the decoder defaults
func DefaultConfig() *Config {
	return &Config{
		FFmpegPath:  "ffmpeg",
		FFprobePath: "ffprobe",
		Timeout:     30 * time.Second,
	}
}

// Validate checks the config for obviously unusable values
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive: %v", c.Timeout)
	}
	if c.FFmpegPath == "" {
		return fmt.Errorf("ffmpeg path must not be empty")
	}
	return nil
}
