package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/RyanBlaney/track-analysis/configs"
)

var (
	configFile   string
	verbose      bool
	logLevel     string
	outputFormat string
	noColor      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "track-analysis",
	Short: "Tempo, mood and label analysis for audio tracks",
	Long: `Analyze audio tracks and suggest record labels.

Every input is decoded to 44.1 kHz mono, then:
- tempo is estimated from onset periodicity (unless the tags declare a BPM)
- spectral features and MFCCs are averaged into a coarse mood estimate
- the genre is matched against a catalog of labels

WAV and MP3 are decoded natively; other formats go through ffmpeg.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initializeConfig(cmd)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"config file (default is $HOME/.config/track-analysis/track-analysis.yaml)")

	// Output and logging flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"verbose output (debug logging)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "json",
		"output format (json, yaml, msgpack, table)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false,
		"disable colored table output")

	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("output.format", rootCmd.PersistentFlags().Lookup("output"))
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	if configFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(configFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			os.Exit(1)
		}

		viper.AddConfigPath(filepath.Join(home, ".config", "track-analysis"))
		viper.AddConfigPath("/etc/track-analysis")
		viper.AddConfigPath("./configs")
		viper.SetConfigName("track-analysis")
		viper.SetConfigType("yaml")
	}

	// Environment variable support
	viper.SetEnvPrefix(configs.EnvPrefix)
	viper.SetEnvKeyReplacer(configs.EnvKeyReplacer())
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
		}
	} else if configFile != "" {
		fmt.Fprintf(os.Stderr, "Error reading config file %s: %v\n", configFile, err)
		os.Exit(1)
	}
}

// initializeConfig initializes configuration after flags are parsed
func initializeConfig(cmd *cobra.Command) error {
	return bindFlags(cmd, viper.GetViper())
}

// bindFlags lets a command's flags take their value from the environment
// (TRACK_ANALYSIS_<FLAG>) when they were not set on the command line
func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	var lastErr error

	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		envVar := configs.EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))

		if err := v.BindEnv("flags."+f.Name, envVar); err != nil {
			lastErr = err
			return
		}

		if !f.Changed && v.IsSet("flags."+f.Name) {
			val := v.Get("flags." + f.Name)
			if err := cmd.Flags().Set(f.Name, fmt.Sprintf("%v", val)); err != nil {
				lastErr = err
			}
		}
	})

	return lastErr
}

// loadAppConfig loads and validates the configuration
func loadAppConfig() (*configs.Config, error) {
	appConfig, err := configs.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := configs.ValidateConfig(appConfig); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return appConfig, nil
}
