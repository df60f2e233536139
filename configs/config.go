package configs

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/RyanBlaney/track-analysis/pkg/audio/decoder"
	"github.com/RyanBlaney/track-analysis/pkg/audio/features"
	"github.com/RyanBlaney/track-analysis/pkg/audio/tempo"
	"github.com/RyanBlaney/track-analysis/pkg/logging"
)

// Config represents the application configuration
type Config struct {
	// Application settings
	Verbose     bool   `mapstructure:"verbose"`
	LogLevel    string `mapstructure:"log_level"`
	LogEncoding string `mapstructure:"log_encoding"`

	// Pipeline stages
	Decoder  DecoderConfig  `mapstructure:"decoder"`
	Tempo    TempoConfig    `mapstructure:"tempo"`
	Features FeaturesConfig `mapstructure:"features"`
	Mood     MoodConfig     `mapstructure:"mood"`
	Labels   LabelsConfig   `mapstructure:"labels"`
	Analysis AnalysisConfig `mapstructure:"analysis"`

	// Batch execution
	Worker WorkerConfig `mapstructure:"worker"`

	// Upload server
	Server ServerConfig `mapstructure:"server"`

	// Output configuration
	Output OutputConfig `mapstructure:"output"`
}

// DecoderConfig contains decoding and ffmpeg settings
type DecoderConfig struct {
	FFmpegPath   string        `mapstructure:"ffmpeg_path"`
	FFprobePath  string        `mapstructure:"ffprobe_path"`
	Timeout      time.Duration `mapstructure:"timeout"`
	TempDir      string        `mapstructure:"temp_dir"`
	PreferFFmpeg bool          `mapstructure:"prefer_ffmpeg"`
}

// TempoConfig contains tempo estimation settings
type TempoConfig struct {
	MinBPM              float64 `mapstructure:"min_bpm"`
	MaxBPM              float64 `mapstructure:"max_bpm"`
	PreferredMinBPM     float64 `mapstructure:"preferred_min_bpm"`
	PreferredMaxBPM     float64 `mapstructure:"preferred_max_bpm"`
	MinOnsets           int     `mapstructure:"min_onsets"`
	MinPeakStrength     float64 `mapstructure:"min_peak_strength"`
	ThresholdWindow     int     `mapstructure:"threshold_window"`
	ThresholdMultiplier float64 `mapstructure:"threshold_multiplier"`
	TieTolerance        float64 `mapstructure:"tie_tolerance"`
}

// FeaturesConfig contains feature extraction settings
type FeaturesConfig struct {
	FrameSize     int `mapstructure:"frame_size"`
	HopSize       int `mapstructure:"hop_size"`
	NumMFCC       int `mapstructure:"num_mfcc"`
	NumMelFilters int `mapstructure:"num_mel_filters"`
}

// MoodConfig contains mood inference settings
type MoodConfig struct {
	EnergyThreshold float64 `mapstructure:"energy_threshold"`
}

// LabelsConfig contains label catalog settings
type LabelsConfig struct {
	CatalogFile string `mapstructure:"catalog_file"` // "" uses the built-in catalog
}

// AnalysisConfig contains orchestrator fallbacks
type AnalysisConfig struct {
	GenreFallback string   `mapstructure:"genre_fallback"` // "fixed" or "random"
	DefaultGenre  string   `mapstructure:"default_genre"`
	GenrePool     []string `mapstructure:"genre_pool"`
	Instruments   []string `mapstructure:"instruments"`
}

// WorkerConfig contains batch execution settings
type WorkerConfig struct {
	Count      int           `mapstructure:"count"` // 0 means one per CPU
	JobTimeout time.Duration `mapstructure:"job_timeout"`
}

// ServerConfig contains upload server settings
type ServerConfig struct {
	Addr           string `mapstructure:"addr"`
	UploadsDir     string `mapstructure:"uploads_dir"`
	MaxUploadBytes int64  `mapstructure:"max_upload_bytes"`
}

// OutputConfig contains output formatting settings
type OutputConfig struct {
	Format   string `mapstructure:"format"`
	Query    string `mapstructure:"query"`
	Colors   bool   `mapstructure:"colors"`
	Progress bool   `mapstructure:"progress"`
}

// EnvPrefix prefixes every environment variable read by the CLI
const EnvPrefix = "TRACK_ANALYSIS"

var envKeyReplacer = strings.NewReplacer("-", "_", ".", "_")

// EnvKeyReplacer maps config keys to environment variable suffixes
func EnvKeyReplacer() *strings.Replacer {
	return envKeyReplacer
}

// Genre fallback modes
const (
	GenreFallbackFixed  = "fixed"
	GenreFallbackRandom = "random"
)

// LoadConfig loads configuration from the global viper instance
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(viper.GetViper())
}

// LoadConfigFrom loads configuration from v, filling unset keys with defaults
func LoadConfigFrom(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode configuration: %w", err)
	}

	return config, nil
}

// ValidateConfig validates the configuration
func ValidateConfig(config *Config) error {
	if _, err := logging.ParseLevel(config.LogLevel); err != nil {
		return err
	}

	if err := config.DecoderSettings().Validate(); err != nil {
		return fmt.Errorf("decoder: %w", err)
	}

	if err := config.TempoSettings().Validate(); err != nil {
		return fmt.Errorf("tempo: %w", err)
	}

	if err := config.FeatureSettings().Validate(); err != nil {
		return fmt.Errorf("features: %w", err)
	}

	if config.Mood.EnergyThreshold < 0 || config.Mood.EnergyThreshold > 1 {
		return fmt.Errorf("mood energy threshold must be between 0 and 1")
	}

	switch config.Analysis.GenreFallback {
	case GenreFallbackFixed:
		if strings.TrimSpace(config.Analysis.DefaultGenre) == "" {
			return fmt.Errorf("default genre must not be empty")
		}
	case GenreFallbackRandom:
		if len(config.Analysis.GenrePool) == 0 {
			return fmt.Errorf("random genre fallback needs a non-empty genre pool")
		}
	default:
		return fmt.Errorf("unknown genre fallback %q (want fixed or random)", config.Analysis.GenreFallback)
	}

	if config.Worker.Count < 0 {
		return fmt.Errorf("worker count cannot be negative")
	}

	if config.Worker.JobTimeout < 0 {
		return fmt.Errorf("job timeout cannot be negative")
	}

	if config.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("server max upload bytes must be positive")
	}

	return nil
}

// DecoderSettings converts the decoder section for decoder.NewDecoder
func (c *Config) DecoderSettings() *decoder.Config {
	return &decoder.Config{
		FFmpegPath:   c.Decoder.FFmpegPath,
		FFprobePath:  c.Decoder.FFprobePath,
		Timeout:      c.Decoder.Timeout,
		TempDir:      c.Decoder.TempDir,
		PreferFFmpeg: c.Decoder.PreferFFmpeg,
	}
}

// TempoSettings overlays the tempo section on the estimator defaults
func (c *Config) TempoSettings() tempo.Config {
	t := tempo.DefaultConfig()
	t.MinBPM = c.Tempo.MinBPM
	t.MaxBPM = c.Tempo.MaxBPM
	t.PreferredMinBPM = c.Tempo.PreferredMinBPM
	t.PreferredMaxBPM = c.Tempo.PreferredMaxBPM
	t.MinOnsets = c.Tempo.MinOnsets
	t.MinPeakStrength = c.Tempo.MinPeakStrength
	t.ThresholdWindow = c.Tempo.ThresholdWindow
	t.ThresholdMultiplier = c.Tempo.ThresholdMultiplier
	t.TieTolerance = c.Tempo.TieTolerance
	return t
}

// FeatureSettings overlays the features section on the extractor defaults
func (c *Config) FeatureSettings() features.Config {
	f := features.DefaultConfig()
	f.FrameSize = c.Features.FrameSize
	f.HopSize = c.Features.HopSize
	f.NumMFCC = c.Features.NumMFCC
	f.NumMelFilters = c.Features.NumMelFilters
	return f
}
