package worker

import (
	"context"
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/RyanBlaney/track-analysis/pkg/audio/decoder"
	"github.com/RyanBlaney/track-analysis/pkg/logging"
)

// MetricsCalculator summarizes a finished batch
type MetricsCalculator struct {
	logger logging.Logger
}

// NewMetricsCalculator creates a new metrics calculator
func NewMetricsCalculator(logger logging.Logger) *MetricsCalculator {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	return &MetricsCalculator{
		logger: logger,
	}
}

// Stats represents statistical measures of a series
type Stats struct {
	Mean   float64 `json:"mean" yaml:"mean" msgpack:"mean"`
	Median float64 `json:"median" yaml:"median" msgpack:"median"`
	P95    float64 `json:"p95" yaml:"p95" msgpack:"p95"`
	Min    float64 `json:"min" yaml:"min" msgpack:"min"`
	Max    float64 `json:"max" yaml:"max" msgpack:"max"`
	StdDev float64 `json:"std_dev" yaml:"std_dev" msgpack:"std_dev"`
	Count  int     `json:"count" yaml:"count" msgpack:"count"`
}

// BatchMetrics describes a batch as a whole
type BatchMetrics struct {
	Files        int            `json:"files" yaml:"files" msgpack:"files"`
	Succeeded    int            `json:"succeeded" yaml:"succeeded" msgpack:"succeeded"`
	Failed       int            `json:"failed" yaml:"failed" msgpack:"failed"`
	SuccessRate  float64        `json:"success_rate" yaml:"success_rate" msgpack:"success_rate"`
	ElapsedSecs  *Stats         `json:"elapsed_seconds" yaml:"elapsed_seconds" msgpack:"elapsed_seconds"`
	BPM          *Stats         `json:"bpm" yaml:"bpm" msgpack:"bpm"`
	TempoUnknown int            `json:"tempo_unknown" yaml:"tempo_unknown" msgpack:"tempo_unknown"`
	Moods        map[string]int `json:"moods" yaml:"moods" msgpack:"moods"` // dominant mood counts
	Genres       map[string]int `json:"genres" yaml:"genres" msgpack:"genres"`
	FailureCodes map[string]int `json:"failure_codes" yaml:"failure_codes" msgpack:"failure_codes"`
}

// Calculate computes batch metrics from pool results
func (mc *MetricsCalculator) Calculate(results []Result) *BatchMetrics {
	metrics := &BatchMetrics{
		Files:        len(results),
		Moods:        map[string]int{},
		Genres:       map[string]int{},
		FailureCodes: map[string]int{},
	}

	var elapsed, bpms []float64
	for _, r := range results {
		elapsed = append(elapsed, r.Elapsed.Seconds())

		if r.Err != nil {
			metrics.Failed++
			metrics.FailureCodes[categorizeError(r.Err)]++
			continue
		}

		metrics.Succeeded++
		rec := r.Record
		if rec.Metadata.BPM != nil {
			bpms = append(bpms, float64(*rec.Metadata.BPM))
		} else {
			metrics.TempoUnknown++
		}
		if dominant := rec.Mood.Dominant(); dominant != "" {
			metrics.Moods[dominant]++
		}
		metrics.Genres[rec.Metadata.Genre]++
	}

	if metrics.Files > 0 {
		metrics.SuccessRate = float64(metrics.Succeeded) / float64(metrics.Files)
	}
	metrics.ElapsedSecs = calculateStats(elapsed)
	metrics.BPM = calculateStats(bpms)

	mc.logger.Debug("batch metrics calculated", logging.Fields{
		"files":     metrics.Files,
		"succeeded": metrics.Succeeded,
		"failed":    metrics.Failed,
	})

	return metrics
}

// calculateStats calculates statistical measures for a dataset
func calculateStats(data []float64) *Stats {
	if len(data) == 0 {
		return &Stats{Count: 0}
	}

	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)

	mean, std := stat.MeanStdDev(sorted, nil)
	if len(sorted) < 2 {
		std = 0
	}

	return sanitizeStats(&Stats{
		Count:  len(sorted),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Mean:   mean,
		StdDev: std,
		Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
		P95:    stat.Quantile(0.95, stat.Empirical, sorted, nil),
	})
}

// sanitizeStats zeroes infinite and NaN values so the stats always encode
func sanitizeStats(s *Stats) *Stats {
	for _, v := range []*float64{&s.Mean, &s.Median, &s.P95, &s.Min, &s.Max, &s.StdDev} {
		if math.IsInf(*v, 0) || math.IsNaN(*v) {
			*v = 0
		}
	}
	return s
}

// categorizeError maps a job error to a failure category: the decode error
// code when there is one, otherwise TIMEOUT, CANCELLED or OTHER
func categorizeError(err error) string {
	if code := decoder.ErrorCode(err); code != "" {
		return code
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return decoder.ErrCodeTimeout
	case errors.Is(err, context.Canceled):
		return decoder.ErrCodeCancelled
	default:
		return "OTHER"
	}
}
