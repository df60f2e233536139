package app

import (
	"fmt"

	"github.com/RyanBlaney/track-analysis/configs"
	"github.com/RyanBlaney/track-analysis/internal/analysis"
	"github.com/RyanBlaney/track-analysis/internal/output"
	"github.com/RyanBlaney/track-analysis/pkg/audio/decoder"
	"github.com/RyanBlaney/track-analysis/pkg/audio/features"
	"github.com/RyanBlaney/track-analysis/pkg/audio/tempo"
	"github.com/RyanBlaney/track-analysis/pkg/labels"
	"github.com/RyanBlaney/track-analysis/pkg/logging"
	"github.com/RyanBlaney/track-analysis/pkg/mood"
)

// NewLogger builds the process logger from config. verbose forces debug.
func NewLogger(config *configs.Config, verbose bool) (logging.Logger, error) {
	level, err := logging.ParseLevel(config.LogLevel)
	if err != nil {
		return nil, err
	}
	if verbose || config.Verbose {
		level = logging.DebugLevel
	}
	return logging.New(logging.Config{Level: level, Encoding: config.LogEncoding})
}

// LoadCatalog returns the configured label catalog, or the built-in one when
// no catalog file is set
func LoadCatalog(config *configs.Config) (*labels.Catalog, error) {
	if config.Labels.CatalogFile == "" {
		return labels.DefaultCatalog(), nil
	}
	catalog, err := labels.LoadCatalog(config.Labels.CatalogFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load label catalog: %w", err)
	}
	return catalog, nil
}

// BuildAnalyzer wires every pipeline stage from config
func BuildAnalyzer(config *configs.Config, logger logging.Logger) (*analysis.Analyzer, error) {
	catalog, err := LoadCatalog(config)
	if err != nil {
		return nil, err
	}

	var fallback analysis.GenreFallback
	switch config.Analysis.GenreFallback {
	case configs.GenreFallbackRandom:
		fallback = analysis.NewRandomGenre(config.Analysis.GenrePool, nil)
	default:
		fallback = analysis.FixedGenre(config.Analysis.DefaultGenre)
	}

	return analysis.NewAnalyzer(analysis.Options{
		Decoder:       decoder.NewDecoder(config.DecoderSettings(), logger),
		Tempo:         tempo.NewEstimator(config.TempoSettings(), logger),
		Features:      features.NewExtractor(config.FeatureSettings(), logger),
		Mood:          &mood.HeuristicClassifier{EnergyThreshold: config.Mood.EnergyThreshold},
		Catalog:       catalog,
		GenreFallback: fallback,
		Instruments:   analysis.StaticInstruments(config.Analysis.Instruments),
	}, logger), nil
}

// NewRenderer builds the output renderer. An empty query falls back to the
// configured one.
func NewRenderer(config *configs.Config, query string, noColor bool) (*output.Renderer, error) {
	format, err := output.ParseFormat(config.Output.Format)
	if err != nil {
		return nil, err
	}
	if query == "" {
		query = config.Output.Query
	}
	return output.NewRenderer(format, query, config.Output.Colors && !noColor)
}
