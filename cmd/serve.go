package cmd

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/RyanBlaney/track-analysis/internal/app"
	"github.com/RyanBlaney/track-analysis/internal/server"
	"github.com/RyanBlaney/track-analysis/pkg/logging"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the upload server",
	Long: `Accept multipart uploads on POST /upload (form field "file"), analyze each
one and answer with the analysis record as JSON. Stored uploads are served
back under /uploads/<name>.

Examples:
  track-analysis serve
  track-analysis serve --addr 127.0.0.1:8080 --uploads-dir /srv/uploads`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (default from config, :5000)")
	serveCmd.Flags().String("uploads-dir", "", "directory for stored uploads")

	viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
	viper.BindPFlag("server.uploads_dir", serveCmd.Flags().Lookup("uploads-dir"))
}

func runServe(cmd *cobra.Command, args []string) error {
	appConfig, err := loadAppConfig()
	if err != nil {
		return err
	}

	logger, err := app.NewLogger(appConfig, verbose)
	if err != nil {
		return err
	}

	analyzer, err := app.BuildAnalyzer(appConfig, logger)
	if err != nil {
		return err
	}

	concurrency := appConfig.Worker.Count
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}

	handler, err := server.NewHandler(analyzer, server.Config{
		UploadsDir:     appConfig.Server.UploadsDir,
		MaxUploadBytes: appConfig.Server.MaxUploadBytes,
		Concurrency:    concurrency,
	}, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting upload server", logging.Fields{
		"addr":        appConfig.Server.Addr,
		"uploads_dir": appConfig.Server.UploadsDir,
		"concurrency": concurrency,
	})

	return server.Serve(ctx, appConfig.Server.Addr, handler, logger)
}
