package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/track-analysis/internal/app"
	"github.com/RyanBlaney/track-analysis/pkg/audio/decoder"
	"github.com/RyanBlaney/track-analysis/pkg/logging"
)

// probeReport is what the probe command prints
type probeReport struct {
	File      string             `json:"file" yaml:"file" msgpack:"file"`
	Info      *decoder.ProbeInfo `json:"info,omitempty" yaml:"info,omitempty" msgpack:"info,omitempty"`
	ProbeErr  string             `json:"probe_error,omitempty" yaml:"probe_error,omitempty" msgpack:"probe_error,omitempty"`
	FFmpeg    bool               `json:"ffmpeg_available" yaml:"ffmpeg_available" msgpack:"ffmpeg_available"`
	FFmpegErr string             `json:"ffmpeg_error,omitempty" yaml:"ffmpeg_error,omitempty" msgpack:"ffmpeg_error,omitempty"`
	Native    []string           `json:"native_formats" yaml:"native_formats" msgpack:"native_formats"`
	External  []string           `json:"ffmpeg_formats" yaml:"ffmpeg_formats" msgpack:"ffmpeg_formats"`
}

// probeCmd represents the probe command
var probeCmd = &cobra.Command{
	Use:   "probe <file>",
	Short: "Show stream information and ffmpeg availability",
	Long: `Run ffprobe on a file and report its format, codec, sample rate, channels,
duration and bit rate, along with whether ffmpeg can be used for decoding.`,
	Args: cobra.ExactArgs(1),
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
}

func runProbe(cmd *cobra.Command, args []string) error {
	appConfig, err := loadAppConfig()
	if err != nil {
		return err
	}

	logger, err := app.NewLogger(appConfig, verbose)
	if err != nil {
		return err
	}

	renderer, err := app.NewRenderer(appConfig, "", noColor)
	if err != nil {
		return err
	}

	path := args[0]
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("cannot probe %s: %w", path, err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	dec := decoder.NewDecoder(appConfig.DecoderSettings(), logger)
	native, external := decoder.SupportedFormats()

	report := probeReport{
		File:     filepath.Base(path),
		Native:   native,
		External: external,
	}

	if err := dec.CheckFFmpeg(ctx); err != nil {
		report.FFmpegErr = err.Error()
	} else {
		report.FFmpeg = true
	}

	info, err := dec.Probe(ctx, path)
	if err != nil {
		logger.Debug("probe failed", logging.Fields{"path": path, "error": err.Error()})
		report.ProbeErr = err.Error()
	} else {
		report.Info = info
	}

	return renderer.Render(os.Stdout, report)
}
