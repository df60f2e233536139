package configs

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/RyanBlaney/track-analysis/pkg/audio/decoder"
	"github.com/RyanBlaney/track-analysis/pkg/audio/features"
	"github.com/RyanBlaney/track-analysis/pkg/audio/tempo"
	"github.com/RyanBlaney/track-analysis/pkg/mood"
)

// SetDefaults fills every unset key of v with its default value
func SetDefaults(v *viper.Viper) {
	setDefaults(v)
}

// setDefaults sets default configuration values for all components
func setDefaults(v *viper.Viper) {
	d := GetDefaultConfig()

	// Application defaults
	if !v.IsSet("verbose") {
		v.Set("verbose", d.Verbose)
	}
	if !v.IsSet("log_level") {
		v.Set("log_level", d.LogLevel)
	}
	if !v.IsSet("log_encoding") {
		v.Set("log_encoding", d.LogEncoding)
	}

	// Decoder defaults
	if !v.IsSet("decoder.ffmpeg_path") {
		v.Set("decoder.ffmpeg_path", d.Decoder.FFmpegPath)
	}
	if !v.IsSet("decoder.ffprobe_path") {
		v.Set("decoder.ffprobe_path", d.Decoder.FFprobePath)
	}
	if !v.IsSet("decoder.timeout") {
		v.Set("decoder.timeout", d.Decoder.Timeout)
	}
	if !v.IsSet("decoder.temp_dir") {
		v.Set("decoder.temp_dir", d.Decoder.TempDir)
	}
	if !v.IsSet("decoder.prefer_ffmpeg") {
		v.Set("decoder.prefer_ffmpeg", d.Decoder.PreferFFmpeg)
	}

	// Tempo defaults
	if !v.IsSet("tempo.min_bpm") {
		v.Set("tempo.min_bpm", d.Tempo.MinBPM)
	}
	if !v.IsSet("tempo.max_bpm") {
		v.Set("tempo.max_bpm", d.Tempo.MaxBPM)
	}
	if !v.IsSet("tempo.preferred_min_bpm") {
		v.Set("tempo.preferred_min_bpm", d.Tempo.PreferredMinBPM)
	}
	if !v.IsSet("tempo.preferred_max_bpm") {
		v.Set("tempo.preferred_max_bpm", d.Tempo.PreferredMaxBPM)
	}
	if !v.IsSet("tempo.min_onsets") {
		v.Set("tempo.min_onsets", d.Tempo.MinOnsets)
	}
	if !v.IsSet("tempo.min_peak_strength") {
		v.Set("tempo.min_peak_strength", d.Tempo.MinPeakStrength)
	}
	if !v.IsSet("tempo.threshold_window") {
		v.Set("tempo.threshold_window", d.Tempo.ThresholdWindow)
	}
	if !v.IsSet("tempo.threshold_multiplier") {
		v.Set("tempo.threshold_multiplier", d.Tempo.ThresholdMultiplier)
	}
	if !v.IsSet("tempo.tie_tolerance") {
		v.Set("tempo.tie_tolerance", d.Tempo.TieTolerance)
	}

	// Feature defaults
	if !v.IsSet("features.frame_size") {
		v.Set("features.frame_size", d.Features.FrameSize)
	}
	if !v.IsSet("features.hop_size") {
		v.Set("features.hop_size", d.Features.HopSize)
	}
	if !v.IsSet("features.num_mfcc") {
		v.Set("features.num_mfcc", d.Features.NumMFCC)
	}
	if !v.IsSet("features.num_mel_filters") {
		v.Set("features.num_mel_filters", d.Features.NumMelFilters)
	}

	// Mood and labels defaults
	if !v.IsSet("mood.energy_threshold") {
		v.Set("mood.energy_threshold", d.Mood.EnergyThreshold)
	}
	if !v.IsSet("labels.catalog_file") {
		v.Set("labels.catalog_file", d.Labels.CatalogFile)
	}

	// Analysis defaults
	if !v.IsSet("analysis.genre_fallback") {
		v.Set("analysis.genre_fallback", d.Analysis.GenreFallback)
	}
	if !v.IsSet("analysis.default_genre") {
		v.Set("analysis.default_genre", d.Analysis.DefaultGenre)
	}
	if !v.IsSet("analysis.genre_pool") {
		v.Set("analysis.genre_pool", d.Analysis.GenrePool)
	}
	if !v.IsSet("analysis.instruments") {
		v.Set("analysis.instruments", d.Analysis.Instruments)
	}

	// Worker defaults
	if !v.IsSet("worker.count") {
		v.Set("worker.count", d.Worker.Count)
	}
	if !v.IsSet("worker.job_timeout") {
		v.Set("worker.job_timeout", d.Worker.JobTimeout)
	}

	// Server defaults
	if !v.IsSet("server.addr") {
		v.Set("server.addr", d.Server.Addr)
	}
	if !v.IsSet("server.uploads_dir") {
		v.Set("server.uploads_dir", d.Server.UploadsDir)
	}
	if !v.IsSet("server.max_upload_bytes") {
		v.Set("server.max_upload_bytes", d.Server.MaxUploadBytes)
	}

	// Output defaults
	if !v.IsSet("output.format") {
		v.Set("output.format", d.Output.Format)
	}
	if !v.IsSet("output.query") {
		v.Set("output.query", d.Output.Query)
	}
	if !v.IsSet("output.colors") {
		v.Set("output.colors", d.Output.Colors)
	}
	if !v.IsSet("output.progress") {
		v.Set("output.progress", d.Output.Progress)
	}
}

// GetDefaultConfig returns a Config struct with all default values set
func GetDefaultConfig() *Config {
	return &Config{
		// Application settings defaults
		Verbose:     false,
		LogLevel:    "info",
		LogEncoding: "console",

		Decoder:  GetDefaultDecoderConfig(),
		Tempo:    GetDefaultTempoConfig(),
		Features: GetDefaultFeaturesConfig(),
		Mood:     MoodConfig{EnergyThreshold: mood.DefaultEnergyThreshold},
		Labels:   LabelsConfig{},
		Analysis: GetDefaultAnalysisConfig(),
		Worker:   WorkerConfig{Count: 0, JobTimeout: 2 * time.Minute},
		Server:   GetDefaultServerConfig(),
		Output:   GetDefaultOutputConfig(),
	}
}

// GetDefaultDecoderConfig returns default decoder settings
func GetDefaultDecoderConfig() DecoderConfig {
	d := decoder.DefaultConfig()
	return DecoderConfig{
		FFmpegPath:   d.FFmpegPath,
		FFprobePath:  d.FFprobePath,
		Timeout:      d.Timeout,
		TempDir:      d.TempDir,
		PreferFFmpeg: d.PreferFFmpeg,
	}
}

// GetDefaultTempoConfig returns default tempo estimation settings
func GetDefaultTempoConfig() TempoConfig {
	t := tempo.DefaultConfig()
	return TempoConfig{
		MinBPM:              t.MinBPM,
		MaxBPM:              t.MaxBPM,
		PreferredMinBPM:     t.PreferredMinBPM,
		PreferredMaxBPM:     t.PreferredMaxBPM,
		MinOnsets:           t.MinOnsets,
		MinPeakStrength:     t.MinPeakStrength,
		ThresholdWindow:     t.ThresholdWindow,
		ThresholdMultiplier: t.ThresholdMultiplier,
		TieTolerance:        t.TieTolerance,
	}
}

// GetDefaultFeaturesConfig returns default feature extraction settings
func GetDefaultFeaturesConfig() FeaturesConfig {
	f := features.DefaultConfig()
	return FeaturesConfig{
		FrameSize:     f.FrameSize,
		HopSize:       f.HopSize,
		NumMFCC:       f.NumMFCC,
		NumMelFilters: f.NumMelFilters,
	}
}

// GetDefaultAnalysisConfig returns default orchestrator fallbacks
func GetDefaultAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		GenreFallback: GenreFallbackFixed,
		DefaultGenre:  "Unknown",
		GenrePool:     []string{"House", "Tech House", "Deep House", "Melodic House"},
		Instruments:   []string{"piano", "drums", "guitar"},
	}
}

// GetDefaultServerConfig returns default upload server settings
func GetDefaultServerConfig() ServerConfig {
	dataDir := filepath.Join(os.TempDir(), "track-analysis")
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".local", "share", "track-analysis")
	}

	return ServerConfig{
		Addr:           ":5000",
		UploadsDir:     filepath.Join(dataDir, "uploads"),
		MaxUploadBytes: 100 << 20,
	}
}

// GetDefaultOutputConfig returns default output formatting settings
func GetDefaultOutputConfig() OutputConfig {
	return OutputConfig{
		Format:   "json",
		Query:    "",
		Colors:   true,
		Progress: true,
	}
}

// GetDefaultOutputConfigForFormat returns output config suited to a specific format
func GetDefaultOutputConfigForFormat(format string) OutputConfig {
	base := GetDefaultOutputConfig()
	base.Format = format

	switch format {
	case "json", "yaml", "msgpack":
		base.Colors = false
	case "table":
		base.Colors = true
	default:
		// Keep defaults
	}

	return base
}
