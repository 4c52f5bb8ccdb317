// Package server exposes the analysis pipeline as a small web application:
// one page with a form per modality, plus /metrics and /healthz.
package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	cfg "github.com/maastricht-university/edmo-affect/config"
	"github.com/maastricht-university/edmo-affect/metrics"
	"github.com/maastricht-university/edmo-affect/orchestrator"
)

//go:embed templates/index.html
var templatesFS embed.FS

// Analyzer is the part of *orchestrator.Pipeline the handlers need.
type Analyzer interface {
	AnalyzeText(ctx context.Context, text string) (*orchestrator.TextResult, error)
	AnalyzeImage(ctx context.Context, path string) (*orchestrator.ImageResult, error)
	AnalyzeAudio(ctx context.Context, path string) (*orchestrator.AudioResult, error)
	AnalyzeVideo(ctx context.Context, path string) (orchestrator.Report, error)
}

type Server struct {
	cfg      *cfg.Root
	a        Analyzer
	log      logrus.FieldLogger
	tmpl     *template.Template
	imageExt map[string]bool
	mediaExt map[string]bool
}

// New prepares the upload directory and parses the page template.
func New(c *cfg.Root, a Analyzer, log logrus.FieldLogger) (*Server, error) {
	if err := os.MkdirAll(c.Paths.Uploads, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir %s: %w", c.Paths.Uploads, err)
	}
	tmpl, err := template.ParseFS(templatesFS, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Server{
		cfg:      c,
		a:        a,
		log:      log,
		tmpl:     tmpl,
		imageExt: extSet(c.Upload.ImageExtensions),
		mediaExt: extSet(c.Upload.MediaExtensions),
	}, nil
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /analyze_text", s.handleText)
	mux.HandleFunc("POST /analyze_image", s.handleImage)
	mux.HandleFunc("POST /analyze_audio", s.handleAudio)
	mux.HandleFunc("POST /analyze_video", s.handleVideo)
	metrics.Register(mux)
	return s.withLogging(s.withUploadLimit(mux))
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", srv.Addr).Info("http server starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.log.Info("http server stopped")
	return nil
}

func (s *Server) withUploadLimit(next http.Handler) http.Handler {
	limit := s.cfg.Server.MaxUploadMB << 20
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			r.Body = http.MaxBytesReader(w, r.Body, limit)
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start).Round(time.Millisecond),
		}).Info("request")
	})
}
