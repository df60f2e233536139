// Package app runs a batch of track analyses for the CLI: tag reading, the
// worker pool, progress reporting and result output.
package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/RyanBlaney/track-analysis/configs"
	"github.com/RyanBlaney/track-analysis/internal/analysis"
	"github.com/RyanBlaney/track-analysis/internal/metadata"
	"github.com/RyanBlaney/track-analysis/internal/output"
	"github.com/RyanBlaney/track-analysis/internal/worker"
	"github.com/RyanBlaney/track-analysis/pkg/audio/decoder"
	"github.com/RyanBlaney/track-analysis/pkg/logging"
)

// Context holds the command line arguments of one batch run
type Context struct {
	// CLI arguments
	Files      []string
	Overrides  analysis.Declared // take precedence over file tags
	Workers    int               // 0 means one per CPU
	Timeout    time.Duration     // per file, 0 means none
	Query      string
	OutputFile string
	Verbose    bool
	Quiet      bool
	NoProgress bool
	NoTags     bool
	NoColor    bool
	Stats      bool // include batch metrics in the report

	// Runtime context. Nil fields get defaults in NewApp.
	Logger   logging.Logger
	Analyzer worker.Analyzer
	Stdout   io.Writer
	Stderr   io.Writer
}

// App handles the batch analysis lifecycle
type App struct {
	ctx      *Context
	config   *configs.Config
	renderer *output.Renderer
	styles   output.Styles
	logger   logging.Logger

	readTags func(path string) (analysis.Declared, error)
}

// NewApp creates a batch application from CLI arguments and loaded config
func NewApp(ctx *Context, config *configs.Config) (*App, error) {
	if len(ctx.Files) == 0 {
		return nil, fmt.Errorf("no input files")
	}

	if ctx.Logger == nil {
		logger, err := NewLogger(config, ctx.Verbose)
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
		ctx.Logger = logger
	}

	if ctx.Analyzer == nil {
		analyzer, err := BuildAnalyzer(config, ctx.Logger)
		if err != nil {
			return nil, err
		}
		ctx.Analyzer = analyzer
	}

	if ctx.Stdout == nil {
		ctx.Stdout = os.Stdout
	}
	if ctx.Stderr == nil {
		ctx.Stderr = os.Stderr
	}

	renderer, err := NewRenderer(config, ctx.Query, ctx.NoColor)
	if err != nil {
		return nil, err
	}

	ctx.Logger.Debug("batch application initialized", logging.Fields{
		"files":         len(ctx.Files),
		"workers":       ctx.Workers,
		"timeout":       ctx.Timeout.String(),
		"output_format": config.Output.Format,
		"output_file":   ctx.OutputFile,
	})

	return &App{
		ctx:      ctx,
		config:   config,
		renderer: renderer,
		styles:   output.NewStyles(config.Output.Colors && !ctx.NoColor),
		logger:   ctx.Logger,
		readTags: metadata.ReadDeclared,
	}, nil
}

// Run analyzes every file and writes the report. It returns an error when
// at least one file failed; the report still lists every success.
func (app *App) Run(ctx context.Context) (*output.Report, error) {
	start := time.Now()
	jobs := app.jobs()

	pool := worker.NewPool(app.ctx.Analyzer, app.ctx.Workers, app.ctx.Timeout, app.logger)

	var progress *mpb.Progress
	if app.showProgress(len(jobs)) {
		progress = mpb.NewWithContext(ctx, mpb.WithWidth(64), mpb.WithOutput(app.ctx.Stderr))
		bar := progress.AddBar(int64(len(jobs)),
			mpb.PrependDecorators(
				decor.Name("analyzing "),
				decor.CountersNoUnit("%d / %d"),
			),
			mpb.AppendDecorators(
				decor.Percentage(),
				decor.EwmaETA(decor.ET_STYLE_GO, 60),
			),
		)
		pool.OnDone = func(r worker.Result) { bar.EwmaIncrement(r.Elapsed) }
	}

	results := pool.Run(ctx, jobs)
	if progress != nil {
		progress.Wait()
	}

	report := BuildReport(results)
	metrics := worker.NewMetricsCalculator(app.logger).Calculate(results)
	if app.ctx.Stats {
		report.Metrics = metrics
	}

	if err := app.outputResults(report); err != nil {
		return report, fmt.Errorf("failed to output results: %w", err)
	}

	if !app.ctx.Quiet {
		app.printSummary(report, metrics, time.Since(start))
	}

	if len(report.Failures) > 0 {
		return report, fmt.Errorf("%d of %d files failed", len(report.Failures), len(results))
	}
	return report, nil
}

// jobs merges flag overrides over the tags of each file
func (app *App) jobs() []worker.Job {
	jobs := make([]worker.Job, len(app.ctx.Files))
	for i, path := range app.ctx.Files {
		declared := app.ctx.Overrides
		if !app.ctx.NoTags {
			tags, err := app.readTags(path)
			if err != nil {
				app.logger.Debug("failed to read tags", logging.Fields{
					"path":  path,
					"error": err.Error(),
				})
			}
			declared = declared.Merge(tags)
		}
		jobs[i] = worker.Job{Path: path, Declared: declared}
	}
	return jobs
}

func (app *App) showProgress(jobs int) bool {
	return app.config.Output.Progress && !app.ctx.NoProgress && !app.ctx.Quiet && jobs > 1
}

// BuildReport splits pool results into records and failures, keeping input
// order
func BuildReport(results []worker.Result) *output.Report {
	report := &output.Report{
		Records:  []*analysis.Record{},
		Failures: []output.Failure{},
	}
	for _, r := range results {
		if r.Err != nil {
			report.Failures = append(report.Failures, output.Failure{
				File:  r.Job.Path,
				Code:  decoder.ErrorCode(r.Err),
				Error: r.Err.Error(),
			})
			continue
		}
		report.Records = append(report.Records, r.Record)
	}
	return report
}

// outputResults renders the report to the output file or stdout
func (app *App) outputResults(report *output.Report) error {
	if app.ctx.OutputFile == "" {
		return app.renderer.RenderReport(app.ctx.Stdout, report)
	}

	var buf bytes.Buffer
	if err := app.renderer.RenderReport(&buf, report); err != nil {
		return err
	}
	return app.writeToFile(buf.Bytes())
}

// writeToFile writes data to the output file, creating its directory
func (app *App) writeToFile(data []byte) error {
	dir := filepath.Dir(app.ctx.OutputFile)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := os.WriteFile(app.ctx.OutputFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}

	app.logger.Info("results written to file", logging.Fields{
		"output_file": app.ctx.OutputFile,
		"size_bytes":  len(data),
	})

	return nil
}

// printSummary prints a short human-readable summary to stderr
func (app *App) printSummary(report *output.Report, metrics *worker.BatchMetrics, elapsed time.Duration) {
	w := app.ctx.Stderr

	fmt.Fprintf(w, "%s %d/%d files in %.1fs\n",
		app.styles.Header.Render("analyzed"),
		metrics.Succeeded, metrics.Files, elapsed.Seconds())
	if metrics.BPM.Count > 0 {
		fmt.Fprintf(w, "  %s %.1f BPM over %d files, %d unknown\n",
			app.styles.Dim.Render("tempo"), metrics.BPM.Mean, metrics.BPM.Count, metrics.TempoUnknown)
	}

	for _, f := range report.Failures {
		fmt.Fprintf(w, "  %s %s [%s]\n",
			app.styles.Error.Render("failed"),
			filepath.Base(f.File),
			app.styles.Dim.Render(f.Code))
	}
}
