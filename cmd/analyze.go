package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/RyanBlaney/track-analysis/internal/analysis"
	"github.com/RyanBlaney/track-analysis/internal/app"
	"github.com/RyanBlaney/track-analysis/pkg/labels"
)

var (
	analyzeBPM        int
	analyzeGenre      string
	analyzeTitle      string
	analyzeWorkers    int
	analyzeTimeout    time.Duration
	analyzeQuery      string
	analyzeNoProgress bool
	analyzeNoTags     bool
	analyzeQuiet      bool
	analyzeOutputFile string
	analyzeStats      bool
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze [flags] <file>...",
	Short: "Analyze audio files",
	Long: `Analyze one or more audio files and print one record per file.

Title, genre and BPM are read from the file tags when present; the flags
below take precedence over the tags. Files that fail to decode are reported
and do not stop the batch.

Examples:
  # Analyze a single file
  track-analysis analyze track.mp3

  # Analyze a folder of WAVs on 4 workers as a table
  track-analysis analyze --workers 4 -o table ~/music/*.wav

  # Declare the genre and print only the suggested labels
  track-analysis analyze --genre "Deep House" --query '.records[].suggestedLabels' track.flac`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().IntVar(&analyzeBPM, "bpm", 0,
		"declared BPM; skips tempo estimation")
	analyzeCmd.Flags().StringVar(&analyzeGenre, "genre", "",
		"declared genre used for label matching")
	analyzeCmd.Flags().StringVar(&analyzeTitle, "title", "",
		"declared title")
	analyzeCmd.Flags().IntVarP(&analyzeWorkers, "workers", "w", 0,
		"parallel analyses (default from config, 0 means one per CPU)")
	analyzeCmd.Flags().DurationVar(&analyzeTimeout, "timeout", 0,
		"timeout per file (default from config)")
	analyzeCmd.Flags().StringVarP(&analyzeQuery, "query", "q", "",
		"jq expression applied to the output document")
	analyzeCmd.Flags().BoolVar(&analyzeNoProgress, "no-progress", false,
		"hide the progress bar")
	analyzeCmd.Flags().BoolVar(&analyzeNoTags, "no-tags", false,
		"ignore metadata tags in the files")
	analyzeCmd.Flags().BoolVar(&analyzeQuiet, "quiet", false,
		"suppress the progress bar and the summary")
	analyzeCmd.Flags().StringVarP(&analyzeOutputFile, "output-file", "f", "",
		"write the report to a file instead of stdout")
	analyzeCmd.Flags().BoolVar(&analyzeStats, "stats", false,
		"include batch metrics (timing, tempo, moods, genres) in the report")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	appConfig, err := loadAppConfig()
	if err != nil {
		return err
	}

	workers := appConfig.Worker.Count
	if cmd.Flags().Changed("workers") {
		workers = analyzeWorkers
	}
	timeout := appConfig.Worker.JobTimeout
	if cmd.Flags().Changed("timeout") {
		timeout = analyzeTimeout
	}

	batch, err := app.NewApp(&app.Context{
		Files: args,
		Overrides: analysis.Declared{
			Title: analysis.StringPtr(analyzeTitle),
			Genre: analysis.StringPtr(labels.Normalize(analyzeGenre)),
			BPM:   analysis.IntPtr(analyzeBPM),
		},
		Workers:    workers,
		Timeout:    timeout,
		Query:      analyzeQuery,
		OutputFile: analyzeOutputFile,
		Verbose:    viper.GetBool("verbose"),
		Quiet:      analyzeQuiet,
		NoProgress: analyzeNoProgress,
		NoTags:     analyzeNoTags,
		NoColor:    noColor,
		Stats:      analyzeStats,
	}, appConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize analysis: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, err = batch.Run(ctx)
	return err
}
