package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/track-analysis/internal/app"
	"github.com/RyanBlaney/track-analysis/pkg/audio/decoder"
	"github.com/RyanBlaney/track-analysis/pkg/audio/features"
	"github.com/RyanBlaney/track-analysis/pkg/audio/tempo"
	"github.com/RyanBlaney/track-analysis/pkg/mood"
)

var (
	ftTimeout   time.Duration
	ftShowMFCC  bool
	ftSkipTempo bool
)

var ftCmd = &cobra.Command{
	Use:   "features-test <file>",
	Short: "Run each analysis stage on a file and show its intermediate output",
	Long: `Decode a file, then run tempo estimation, feature extraction and mood
inference one at a time, printing what each stage produced and how long it took.
Useful for tuning the tempo and feature settings in the config file.

Examples:
  track-analysis features-test track.wav
  track-analysis features-test --show-mfcc --config tuned.yaml track.mp3`,
	Args: cobra.ExactArgs(1),
	RunE: runFeaturesTest,
}

func init() {
	rootCmd.AddCommand(ftCmd)

	ftCmd.Flags().DurationVarP(&ftTimeout, "timeout", "T", 2*time.Minute,
		"timeout for the whole test")
	ftCmd.Flags().BoolVar(&ftShowMFCC, "show-mfcc", false,
		"print every MFCC coefficient")
	ftCmd.Flags().BoolVar(&ftSkipTempo, "skip-tempo", false,
		"skip tempo estimation")
}

func runFeaturesTest(cmd *cobra.Command, args []string) error {
	path := args[0]
	printHeader("Analysis Stage Testing", path)

	ctx, cancel := context.WithTimeout(context.Background(), ftTimeout)
	defer cancel()
	start := time.Now()

	appConfig, err := loadAppConfig()
	if err != nil {
		printError("Failed to load config: %v", err)
		return err
	}
	logger, err := app.NewLogger(appConfig, verbose)
	if err != nil {
		return err
	}

	// Step 1: Decode
	printStep(1, "Decoding")
	stageStart := time.Now()
	audio, err := decoder.NewDecoder(appConfig.DecoderSettings(), logger).Decode(ctx, path)
	if err != nil {
		printError("Decoding failed [%s]: %v", decoder.ErrorCode(err), err)
		return err
	}
	printSuccess("%.1fs of audio decoded in %v", audio.Duration().Seconds(), time.Since(stageStart))
	fmt.Println()

	// Step 2: Tempo
	if !ftSkipTempo {
		printStep(2, "Tempo Estimation")
		stageStart = time.Now()
		tempoConfig := appConfig.TempoSettings()
		estimate, ok := tempo.NewEstimator(tempoConfig, logger).Estimate(ctx, audio)
		elapsed := time.Since(stageStart)
		if ok {
			printSuccess("%d BPM in %v", estimate.BPM, elapsed)
			printInfo("Raw BPM: %.2f", estimate.RawBPM)
			printInfo("Confidence: %.3f", estimate.Confidence)
			printInfo("Onsets: %d", estimate.Onsets)
		} else {
			printWarning("Tempo unknown (%d onsets, minimum %d, peak strength %.3f, minimum %.2f)",
				estimate.Onsets, tempoConfig.MinOnsets, estimate.Confidence, tempoConfig.MinPeakStrength)
		}
		fmt.Println()
	}

	// Step 3: Features
	printStep(3, "Feature Extraction")
	stageStart = time.Now()
	agg, err := features.NewExtractor(appConfig.FeatureSettings(), logger).Extract(ctx, audio)
	if err != nil {
		printError("Feature extraction failed: %v", err)
		return err
	}
	printSuccess("%d frames in %v", agg.FrameCount, time.Since(stageStart))
	printInfo("RMS: %.4f", agg.RMS)
	printInfo("Spectral Centroid: %.1f Hz", agg.SpectralCentroid)
	printInfo("Spectral Rolloff: %.1f Hz", agg.SpectralRolloff)
	printInfo("Zero Crossing Rate: %.4f", agg.ZeroCrossingRate)
	printInfo("Mean MFCC: %.3f", agg.MeanMFCC())
	if ftShowMFCC {
		coeffs := make([]string, len(agg.MFCC))
		for i, c := range agg.MFCC {
			coeffs[i] = fmt.Sprintf("%.2f", c)
		}
		printInfo("MFCC: [%s]", strings.Join(coeffs, " "))
	}
	fmt.Println()

	// Step 4: Mood
	printStep(4, "Mood Inference")
	classifier := &mood.HeuristicClassifier{EnergyThreshold: appConfig.Mood.EnergyThreshold}
	scores := classifier.Classify(agg)
	for _, name := range mood.Names {
		if v, ok := scores[name]; ok {
			printInfo("%-10s %.2f", name, v)
		}
	}
	printSuccess("Dominant mood: %s", scores.Dominant())
	fmt.Println()

	fmt.Printf("Total Test Duration: %v\n", time.Since(start).Round(time.Millisecond))
	return nil
}
