package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/RyanBlaney/track-analysis/configs"
)

// configTestCmd represents the config test command
var configTestCmd = &cobra.Command{
	Use:   "config-test",
	Short: "Test and display all configuration values",
	Long: `Load the configuration, validate it and display every value, to verify that
the YAML file and TRACK_ANALYSIS_* environment variables are parsed correctly.

Examples:
  # Test with default config file
  track-analysis config-test

  # Test with specific config file
  track-analysis --config /path/to/config.yaml config-test`,
	Args: cobra.NoArgs,
	RunE: runConfigTest,
}

func init() {
	rootCmd.AddCommand(configTestCmd)
}

func runConfigTest(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "TRACK ANALYSIS CONFIGURATION TEST")
	fmt.Fprintln(out, strings.Repeat("=", 80))

	config, err := configs.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	p := sectionPrinter{out: out}

	p.section("APPLICATION SETTINGS")
	p.keyValue("Verbose", fmt.Sprintf("%t", config.Verbose))
	p.keyValue("Log Level", config.LogLevel)
	p.keyValue("Log Encoding", config.LogEncoding)

	p.section("DECODER")
	p.keyValue("FFmpeg Path", config.Decoder.FFmpegPath)
	p.keyValue("FFprobe Path", config.Decoder.FFprobePath)
	p.keyValue("Timeout", config.Decoder.Timeout.String())
	p.keyValue("Temp Dir", orDefault(config.Decoder.TempDir, "(system default)"))
	p.keyValue("Prefer FFmpeg", fmt.Sprintf("%t", config.Decoder.PreferFFmpeg))

	p.section("TEMPO")
	p.keyValue("BPM Range", fmt.Sprintf("%.0f - %.0f", config.Tempo.MinBPM, config.Tempo.MaxBPM))
	p.keyValue("Preferred Band", fmt.Sprintf("%.0f - %.0f", config.Tempo.PreferredMinBPM, config.Tempo.PreferredMaxBPM))
	p.keyValue("Min Onsets", fmt.Sprintf("%d", config.Tempo.MinOnsets))
	p.keyValue("Min Peak Strength", fmt.Sprintf("%.2f", config.Tempo.MinPeakStrength))
	p.keyValue("Threshold Window", fmt.Sprintf("%d frames", config.Tempo.ThresholdWindow))
	p.keyValue("Threshold Multiplier", fmt.Sprintf("%.2f", config.Tempo.ThresholdMultiplier))
	p.keyValue("Tie Tolerance", fmt.Sprintf("%.2f", config.Tempo.TieTolerance))

	p.section("FEATURES")
	p.keyValue("Frame Size", fmt.Sprintf("%d", config.Features.FrameSize))
	p.keyValue("Hop Size", fmt.Sprintf("%d", config.Features.HopSize))
	p.keyValue("MFCC Coefficients", fmt.Sprintf("%d", config.Features.NumMFCC))
	p.keyValue("Mel Filters", fmt.Sprintf("%d", config.Features.NumMelFilters))

	p.section("MOOD AND LABELS")
	p.keyValue("Energy Threshold", fmt.Sprintf("%.3f", config.Mood.EnergyThreshold))
	p.keyValue("Catalog File", orDefault(config.Labels.CatalogFile, "(built-in)"))

	p.section("ANALYSIS FALLBACKS")
	p.keyValue("Genre Fallback", config.Analysis.GenreFallback)
	p.keyValue("Default Genre", config.Analysis.DefaultGenre)
	p.keyValue("Genre Pool", fmt.Sprintf("(%d) %v", len(config.Analysis.GenrePool), config.Analysis.GenrePool))
	p.keyValue("Instruments", fmt.Sprintf("(%d) %v", len(config.Analysis.Instruments), config.Analysis.Instruments))

	p.section("WORKERS")
	workers := "one per CPU"
	if config.Worker.Count > 0 {
		workers = fmt.Sprintf("%d", config.Worker.Count)
	}
	p.keyValue("Count", workers)
	p.keyValue("Job Timeout", config.Worker.JobTimeout.String())

	p.section("SERVER")
	p.keyValue("Address", config.Server.Addr)
	p.keyValue("Uploads Dir", config.Server.UploadsDir)
	p.keyValue("Max Upload", fmt.Sprintf("%d bytes", config.Server.MaxUploadBytes))

	p.section("OUTPUT")
	p.keyValue("Format", config.Output.Format)
	p.keyValue("Query", orDefault(config.Output.Query, "(none)"))
	p.keyValue("Colors", fmt.Sprintf("%t", config.Output.Colors))
	p.keyValue("Progress", fmt.Sprintf("%t", config.Output.Progress))

	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("-", 80))
	if err := configs.ValidateConfig(config); err != nil {
		fmt.Fprintf(out, "CONFIGURATION INVALID: %v\n", err)
		return err
	}
	fmt.Fprintln(out, "CONFIGURATION TEST COMPLETED SUCCESSFULLY")
	fmt.Fprintf(out, "Config file: %s\n", orDefault(viper.ConfigFileUsed(), "(none, defaults and environment only)"))
	fmt.Fprintln(out, strings.Repeat("=", 80))

	return nil
}

type sectionPrinter struct {
	out io.Writer
}

func (p sectionPrinter) section(title string) {
	fmt.Fprintf(p.out, "\n%s\n", title)
	fmt.Fprintln(p.out, strings.Repeat("-", len(title)))
}

func (p sectionPrinter) keyValue(key, value string) {
	if value == "" {
		fmt.Fprintf(p.out, "%-35s\n", key)
	} else {
		fmt.Fprintf(p.out, "%-35s %s\n", key+":", value)
	}
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
