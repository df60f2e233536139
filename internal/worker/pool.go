// Package worker runs batches of track analyses with bounded parallelism.
package worker

import (
	"context"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/RyanBlaney/track-analysis/internal/analysis"
	"github.com/RyanBlaney/track-analysis/pkg/logging"
)

// Analyzer is the single operation the pool schedules
type Analyzer interface {
	Analyze(ctx context.Context, path string, declared analysis.Declared) (*analysis.Record, error)
}

// Job is one file to analyze
type Job struct {
	Path     string
	Declared analysis.Declared
}

// Result is the outcome of one Job. Exactly one of Record and Err is set.
type Result struct {
	Job     Job
	Record  *analysis.Record
	Err     error
	Elapsed time.Duration
}

// Pool runs jobs on at most Size goroutines
type Pool struct {
	analyzer Analyzer
	size     int
	timeout  time.Duration
	logger   logging.Logger

	// OnDone is called after every job, from the job's goroutine
	OnDone func(Result)
}

// NewPool creates a pool. size <= 0 uses runtime.NumCPU(). timeout <= 0
// means no per-job deadline.
func NewPool(analyzer Analyzer, size int, timeout time.Duration, logger logging.Logger) *Pool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Pool{
		analyzer: analyzer,
		size:     size,
		timeout:  timeout,
		logger:   logger.WithFields(logging.Fields{"component": "worker_pool"}),
	}
}

// Size returns the parallelism bound
func (p *Pool) Size() int {
	return p.size
}

// Run analyzes every job and returns results in input order. A failed job
// does not stop the others. Jobs not yet started when ctx ends fail with
// the context error.
func (p *Pool) Run(ctx context.Context, jobs []Job) []Result {
	results := make([]Result, len(jobs))

	var g errgroup.Group
	g.SetLimit(p.size)

	p.logger.Debug("starting batch", logging.Fields{
		"jobs":    len(jobs),
		"workers": p.size,
	})

	for i, job := range jobs {
		g.Go(func() error {
			results[i] = p.runJob(ctx, job)
			if p.OnDone != nil {
				p.OnDone(results[i])
			}
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	p.logger.Debug("batch complete", logging.Fields{
		"jobs":   len(jobs),
		"failed": failed,
	})

	return results
}

func (p *Pool) runJob(ctx context.Context, job Job) Result {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return Result{Job: job, Err: err}
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	record, err := p.analyzer.Analyze(ctx, job.Path, job.Declared)
	result := Result{Job: job, Record: record, Err: err, Elapsed: time.Since(start)}
	if err != nil {
		result.Record = nil
		p.logger.Warn("analysis failed", logging.Fields{
			"path":  job.Path,
			"error": err.Error(),
		})
	}
	return result
}
