package cmd

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/track-analysis/internal/app"
	"github.com/RyanBlaney/track-analysis/pkg/audio/decoder"
)

var (
	decoderTimeout      time.Duration
	decoderShowConfig   bool
	decoderPreferFFmpeg bool
	decoderBenchmark    int
	decoderValidateOnly bool
)

var decoderCmd = &cobra.Command{
	Use:   "decoder-test [file]",
	Short: "Test audio decoding on a file",
	Long: `Decode a file to canonical 44.1 kHz mono and report what happened:
- ffmpeg/ffprobe availability
- source format, sample rate and channels
- whether the native fast path or the resampler was used
- signal statistics of the decoded samples
- optional decode timing over several runs

Examples:
  # Check decoder availability and configuration
  track-analysis decoder-test --validate-only

  # Decode a local file
  track-analysis decoder-test /path/to/audio.mp3

  # Force the ffmpeg path and time 5 decodes
  track-analysis decoder-test --prefer-ffmpeg --benchmark 5 /path/to/file.flac`,
	Args: func(cmd *cobra.Command, args []string) error {
		if decoderValidateOnly {
			return nil
		}
		if len(args) != 1 {
			return fmt.Errorf("requires exactly one file path")
		}
		return nil
	},
	RunE: runDecoderTest,
}

func init() {
	rootCmd.AddCommand(decoderCmd)

	decoderCmd.Flags().DurationVar(&decoderTimeout, "timeout", 0,
		"decode timeout (default from config)")
	decoderCmd.Flags().BoolVar(&decoderShowConfig, "show-config", false,
		"show decoder configuration details")
	decoderCmd.Flags().BoolVar(&decoderPreferFFmpeg, "prefer-ffmpeg", false,
		"decode through ffmpeg even for wav and mp3")
	decoderCmd.Flags().IntVar(&decoderBenchmark, "benchmark", 0,
		"decode the file this many extra times and report timing")
	decoderCmd.Flags().BoolVar(&decoderValidateOnly, "validate-only", false,
		"only validate decoder availability")
}

func runDecoderTest(cmd *cobra.Command, args []string) error {
	subject := "(validation only)"
	if len(args) > 0 {
		subject = args[0]
	}
	printHeader("Audio Decoder Testing", subject)
	start := time.Now()

	// Step 1: Configuration and Validation
	printStep(1, "Decoder Configuration and Validation")

	appConfig, err := loadAppConfig()
	if err != nil {
		printError("Failed to load application config: %v", err)
		return err
	}
	printSuccess("Application configuration loaded")

	logger, err := app.NewLogger(appConfig, verbose)
	if err != nil {
		return err
	}

	decoderConfig := appConfig.DecoderSettings()
	if decoderTimeout > 0 {
		decoderConfig.Timeout = decoderTimeout
	}
	if decoderPreferFFmpeg {
		decoderConfig.PreferFFmpeg = true
	}
	if err := decoderConfig.Validate(); err != nil {
		printError("Decoder validation failed: %v", err)
		return fmt.Errorf("decoder validation failed: %w", err)
	}
	printSuccess("Decoder configuration valid")

	dec := decoder.NewDecoder(decoderConfig, logger)

	ctx := context.Background()
	ffmpegErr := dec.CheckFFmpeg(ctx)
	if ffmpegErr != nil {
		printWarning("ffmpeg unavailable, only wav and mp3 can be decoded: %v", ffmpegErr)
	} else {
		printSuccess("ffmpeg and ffprobe available")
	}
	fmt.Println()

	if decoderShowConfig {
		printSectionHeader("Decoder Configuration")
		native, external := decoder.SupportedFormats()
		printInfo("FFmpeg Path: %s", decoderConfig.FFmpegPath)
		printInfo("FFprobe Path: %s", decoderConfig.FFprobePath)
		printInfo("Timeout: %v", decoderConfig.Timeout)
		printInfo("Prefer FFmpeg: %t", decoderConfig.PreferFFmpeg)
		printInfo("Native Formats: %v", native)
		printInfo("FFmpeg Formats: %v", external)
		printInfo("Target: %d Hz mono", decoder.CanonicalSampleRate)
		fmt.Println()
	}

	if decoderValidateOnly {
		printSectionHeader("Validation Summary")
		printSuccess("Decoder configuration: Valid")
		if ffmpegErr != nil {
			printWarning("FFmpeg/FFprobe availability: Missing")
			return nil
		}
		printSuccess("FFmpeg/FFprobe availability: Confirmed")
		return nil
	}

	// Step 2: Decode
	printStep(2, "File Decoding")
	path := args[0]

	decodeStart := time.Now()
	audio, err := dec.Decode(ctx, path)
	decodeTime := time.Since(decodeStart)
	if err != nil {
		printError("Decoding failed [%s]: %v", decoder.ErrorCode(err), err)
		return err
	}
	printSuccess("Decoded in %v", decodeTime)
	displayDecodedAudioInfo(audio)
	fmt.Println()

	// Step 3: Benchmark
	if decoderBenchmark > 0 {
		printStep(3, "Decode Benchmark")
		var total, fastest time.Duration
		for i := range decoderBenchmark {
			runStart := time.Now()
			if _, err := dec.Decode(ctx, path); err != nil {
				printError("Run %d failed: %v", i+1, err)
				return err
			}
			elapsed := time.Since(runStart)
			total += elapsed
			if fastest == 0 || elapsed < fastest {
				fastest = elapsed
			}
		}
		avg := total / time.Duration(decoderBenchmark)
		printInfo("Runs: %d", decoderBenchmark)
		printInfo("Average: %v", avg)
		printInfo("Fastest: %v", fastest)
		if avg > 0 {
			printInfo("Speed: %.1fx realtime", audio.Duration().Seconds()/avg.Seconds())
		}
		fmt.Println()
	}

	fmt.Printf("Total Test Duration: %v\n", time.Since(start).Round(time.Millisecond))
	return nil
}

func displayDecodedAudioInfo(audio *decoder.CanonicalAudio) {
	src := audio.Source

	printInfo("Source: %s, %d Hz, %d channel(s)", src.Format, src.SampleRate, src.Channels)
	if src.BitDepth > 0 {
		printInfo("Bit Depth: %d", src.BitDepth)
	}
	if src.FastPath {
		printInfo("Path: native fast path (no resampling)")
	} else {
		printInfo("Path: downmix and resample")
	}

	printInfo("Samples: %d", len(audio.Samples))
	printInfo("Sample Rate: %d Hz", audio.SampleRate)
	printInfo("Duration: %.3f seconds", audio.Duration().Seconds())

	if len(audio.Samples) == 0 {
		return
	}

	var sumSquares, peak float64
	for _, s := range audio.Samples {
		sumSquares += s * s
		peak = max(peak, math.Abs(s))
	}
	rms := math.Sqrt(sumSquares / float64(len(audio.Samples)))

	printInfo("Peak Amplitude: %.6f", peak)
	if rms > 0 {
		printInfo("RMS Level: %.6f (%.2f dBFS)", rms, 20*math.Log10(rms))
	} else {
		printInfo("RMS Level: 0 (silence)")
	}

	if peak > 0.99 {
		printWarning("Potential clipping detected (peak > 0.99)")
	}
	if rms < 0.001 {
		printWarning("Very low signal level detected")
	}
}
