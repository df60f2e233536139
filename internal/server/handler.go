// Package server exposes track analysis over HTTP: clients upload an audio
// file and receive the analysis record as JSON.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/RyanBlaney/track-analysis/internal/analysis"
	"github.com/RyanBlaney/track-analysis/internal/metadata"
	"github.com/RyanBlaney/track-analysis/pkg/audio/decoder"
	"github.com/RyanBlaney/track-analysis/pkg/logging"
)

const (
	errCodeDecode     = "DECODE_ERROR"
	errCodeNoFile     = "NO_FILE"
	errCodeTooLarge   = "FILE_TOO_LARGE"
	errCodeBusy       = "BUSY"
	errCodeProcessing = "PROCESSING_FAILED"

	formFieldFile = "file"
)

// Analyzer is the pipeline the handler calls for each upload
type Analyzer interface {
	Analyze(ctx context.Context, path string, declared analysis.Declared) (*analysis.Record, error)
}

// Config holds the handler settings
type Config struct {
	UploadsDir     string
	MaxUploadBytes int64
	Concurrency    int // analyses in flight; <= 0 uses runtime.NumCPU()
}

// Handler manages the HTTP interface
type Handler struct {
	analyzer Analyzer
	config   Config
	router   *http.ServeMux
	sem      chan struct{}
	logger   logging.Logger

	readTags func(path string) (analysis.Declared, error)
	now      func() time.Time
}

// NewHandler creates the uploads directory and registers routes
func NewHandler(analyzer Analyzer, config Config, logger logging.Logger) (*Handler, error) {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	if config.UploadsDir == "" {
		return nil, fmt.Errorf("uploads directory is required")
	}
	if config.MaxUploadBytes <= 0 {
		return nil, fmt.Errorf("max upload bytes must be positive")
	}
	if config.Concurrency <= 0 {
		config.Concurrency = runtime.NumCPU()
	}
	if err := os.MkdirAll(config.UploadsDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create uploads directory: %w", err)
	}

	h := &Handler{
		analyzer: analyzer,
		config:   config,
		router:   http.NewServeMux(),
		sem:      make(chan struct{}, config.Concurrency),
		logger:   logger.WithFields(logging.Fields{"component": "http_handler"}),
		readTags: metadata.ReadDeclared,
		now:      time.Now,
	}
	h.routes()

	return h, nil
}

// ServeHTTP satisfies http.Handler
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) routes() {
	h.router.HandleFunc("GET /health", h.HealthCheck)
	h.router.HandleFunc("POST /upload", h.Upload)
	h.router.HandleFunc("GET /uploads/{name}", h.ServeUpload)
}

// HealthCheck reports that the server is up
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Upload handles POST /upload. The multipart field "file" is saved to the
// uploads directory, its tags are read, and the analysis record is returned.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.WithFields(logging.Fields{"function": "Upload"})

	r.Body = http.MaxBytesReader(w, r.Body, h.config.MaxUploadBytes)
	file, header, err := r.FormFile(formFieldFile)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeErrorWithCode(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit), errCodeTooLarge)
			return
		}
		writeErrorWithCode(w, http.StatusBadRequest, "No file uploaded", errCodeNoFile)
		return
	}
	defer file.Close()

	path, err := h.save(file, header.Filename)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeErrorWithCode(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit), errCodeTooLarge)
			return
		}
		logger.Error(err, "failed to save upload")
		writeErrorWithCode(w, http.StatusInternalServerError, "Failed to process track", errCodeProcessing)
		return
	}

	select {
	case h.sem <- struct{}{}:
		defer func() { <-h.sem }()
	case <-r.Context().Done():
		writeErrorWithCode(w, http.StatusServiceUnavailable, "request cancelled while waiting for a worker", errCodeBusy)
		return
	}

	declared, err := h.readTags(path)
	if err != nil {
		logger.Warn("failed to read tags, continuing without them", logging.Fields{
			"file":  filepath.Base(path),
			"error": err.Error(),
		})
		declared = analysis.Declared{}
	}

	record, err := h.analyzer.Analyze(r.Context(), path, declared)
	if err != nil {
		var de *decoder.DecodeError
		if errors.As(err, &de) {
			logger.Debug("upload could not be decoded", logging.Fields{
				"file":  filepath.Base(path),
				"code":  de.Code,
				"error": err.Error(),
			})
			// The full error carries the server-side upload path
			writeErrorWithCode(w, http.StatusUnprocessableEntity, de.Code+": "+de.Message, errCodeDecode)
			return
		}
		logger.Error(err, "analysis failed", logging.Fields{"file": filepath.Base(path)})
		writeErrorWithCode(w, http.StatusInternalServerError, "Failed to process track", errCodeProcessing)
		return
	}

	writeJSON(w, http.StatusOK, record)
}

// ServeUpload handles GET /uploads/{name}
func (h *Handler) ServeUpload(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	path := filepath.Join(h.config.UploadsDir, name)
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	http.ServeFile(w, r, path)
}

// save writes an upload as <unix millis><ext>. A name already taken moves
// to the next millisecond.
func (h *Handler) save(src io.Reader, original string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filepath.Base(original)))
	stamp := h.now().UnixMilli()

	var (
		dst  *os.File
		path string
		err  error
	)
	for attempt := range 100 {
		path = filepath.Join(h.config.UploadsDir, fmt.Sprintf("%d%s", stamp+int64(attempt), ext))
		dst, err = os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil || !errors.Is(err, os.ErrExist) {
			break
		}
	}
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to write upload file: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to close upload file: %w", err)
	}
	return path, nil
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func writeErrorWithCode(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, errorResponse{Error: message, Code: code})
}
