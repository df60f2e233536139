// Package analysis runs the full pipeline on one audio file: decode, tempo,
// features, mood and label matching, and assembles the result record.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/RyanBlaney/track-analysis/pkg/audio/decoder"
	"github.com/RyanBlaney/track-analysis/pkg/audio/features"
	"github.com/RyanBlaney/track-analysis/pkg/audio/tempo"
	"github.com/RyanBlaney/track-analysis/pkg/labels"
	"github.com/RyanBlaney/track-analysis/pkg/logging"
	"github.com/RyanBlaney/track-analysis/pkg/mood"
)

// TempoEstimator estimates tempo from canonical audio. ok is false when the
// tempo is unknown.
type TempoEstimator interface {
	Estimate(ctx context.Context, audio *decoder.CanonicalAudio) (tempo.Estimate, bool)
}

// FeatureExtractor computes aggregate features from canonical audio
type FeatureExtractor interface {
	Extract(ctx context.Context, audio *decoder.CanonicalAudio) (*features.AggregateFeatures, error)
}

// Options wires the pipeline stages. Nil fields get defaults.
type Options struct {
	Decoder       decoder.Decoder
	Tempo         TempoEstimator
	Features      FeatureExtractor
	Mood          mood.Classifier
	Catalog       *labels.Catalog
	GenreFallback GenreFallback
	Instruments   InstrumentProvider

	// Now and NewID are overridable for tests
	Now   func() time.Time
	NewID func() string
}

// Analyzer turns an audio file into a Record. It keeps no per-call state and
// is safe for concurrent use.
type Analyzer struct {
	opts   Options
	logger logging.Logger
}

// NewAnalyzer creates an analyzer, filling unset options with defaults
func NewAnalyzer(opts Options, logger logging.Logger) *Analyzer {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	if opts.Decoder == nil {
		opts.Decoder = decoder.NewDecoder(decoder.DefaultConfig(), logger)
	}
	if opts.Tempo == nil {
		opts.Tempo = tempo.NewEstimator(tempo.DefaultConfig(), logger)
	}
	if opts.Features == nil {
		opts.Features = features.NewExtractor(features.DefaultConfig(), logger)
	}
	if opts.Mood == nil {
		opts.Mood = mood.NewHeuristicClassifier()
	}
	if opts.Catalog == nil {
		opts.Catalog = labels.DefaultCatalog()
	}
	if opts.GenreFallback == nil {
		opts.GenreFallback = FixedGenre("Unknown")
	}
	if opts.Instruments == nil {
		opts.Instruments = PlaceholderInstruments
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}

	return &Analyzer{
		opts:   opts,
		logger: logger.WithFields(logging.Fields{"component": "analyzer"}),
	}
}

// Analyze decodes path and runs every analysis stage on it. A decode failure
// returns an error wrapping *decoder.DecodeError and no record. Unknown tempo
// and failed feature extraction are not errors: they leave BPM nil and Mood
// empty.
func (a *Analyzer) Analyze(ctx context.Context, path string, declared Declared) (*Record, error) {
	start := time.Now()
	logger := a.logger.WithFields(logging.Fields{
		"function": "Analyze",
		"path":     path,
	})

	audio, err := a.opts.Decoder.Decode(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("analysis: decode %s: %w", filepath.Base(path), err)
	}

	logger.Debug("audio decoded", logging.Fields{
		"samples":         len(audio.Samples),
		"duration":        audio.Duration().Seconds(),
		"source_format":   audio.Source.Format,
		"source_rate":     audio.Source.SampleRate,
		"source_channels": audio.Source.Channels,
	})

	var (
		bpm    *int
		scores mood.Scores
	)

	g, gctx := errgroup.WithContext(ctx)

	if declared.BPM != nil {
		v := *declared.BPM
		bpm = &v
	} else {
		g.Go(func() error {
			est, ok := a.opts.Tempo.Estimate(gctx, audio)
			if ok {
				v := est.BPM
				bpm = &v
				logger.Debug("tempo estimated", logging.Fields{
					"bpm":        est.BPM,
					"confidence": est.Confidence,
				})
			} else {
				logger.Debug("tempo unknown")
			}
			return nil
		})
	}

	g.Go(func() error {
		agg, err := a.opts.Features.Extract(gctx, audio)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			logger.Warn("feature extraction failed, mood left empty", logging.Fields{
				"error": err.Error(),
			})
			scores = mood.Scores{}
			return nil
		}
		scores = a.opts.Mood.Classify(agg)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("analysis: %s: %w", filepath.Base(path), err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("analysis: %s: %w", filepath.Base(path), err)
	}

	genre := trimmed(declared.Genre)
	if genre == "" {
		genre = a.opts.GenreFallback.Genre(path)
	}

	title := trimmed(declared.Title)
	if title == "" {
		title = UnknownTitle
	}

	var duration *int
	if declared.Duration != nil {
		v := *declared.Duration
		duration = &v
	} else {
		v := int(math.Round(audio.Duration().Seconds()))
		duration = &v
	}

	instruments := a.opts.Instruments.Instruments(path)
	if instruments == nil {
		instruments = []string{}
	}
	if scores == nil {
		scores = mood.Scores{}
	}

	record := &Record{
		ID:       a.opts.NewID(),
		Filename: filepath.Base(path),
		Title:    title,
		Metadata: Metadata{
			BPM:      bpm,
			Genre:    genre,
			Duration: duration,
		},
		Mood:        scores,
		Instruments: instruments,
		Labels:      a.opts.Catalog.Match(genre),
		AnalyzedAt:  a.opts.Now().UTC(),
	}

	logger.Info("track analyzed", logging.Fields{
		"genre":     genre,
		"bpm_known": bpm != nil,
		"mood":      scores.Dominant(),
		"labels":    len(record.Labels),
		"elapsed":   time.Since(start).String(),
	})

	return record, nil
}
