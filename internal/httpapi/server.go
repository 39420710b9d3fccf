// =============================================================================
// SDSVG Book - HTTP Interface
// =============================================================================
//
// This module serves the single-page upload form and the member book.
//
// ROUTES:
//   GET  /            - Upload form and the stored member book
//   POST /            - Import an uploaded .xlsx and re-render the page
//   GET  /sample.xlsx - Sample workbook with every supported column
//   GET  /export.xml  - Stored member book as XML
//   GET  /healthz     - Database ping and stored member count
//   GET  /metrics     - Prometheus metrics
//
// Every failure is rendered as a banner on the page. Nothing a request does
// can take the process down; Recoverer is the last line.
//
// =============================================================================

package httpapi

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sdsvg/sdsvg-book/internal/converter"
	"github.com/sdsvg/sdsvg-book/internal/metrics"
	"github.com/sdsvg/sdsvg-book/internal/types"
	"github.com/sdsvg/sdsvg-book/pkg/utils"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFiles embed.FS

// Book is the stored member book as the server sees it.
type Book interface {
	LoadAll(ctx context.Context) ([]types.Group, error)
	Count(ctx context.Context) (int, error)
	Ping(ctx context.Context) error
}

// Options wires a Server. Book may be nil when the database is unreachable;
// the page then shows a warning and imports fail with a persistence error.
type Options struct {
	Book      Book
	Converter *converter.Converter

	// Files archives successful uploads. nil disables archiving.
	Files *utils.FileManager

	// MaxUploadBytes caps the request body of an upload.
	MaxUploadBytes int64

	Logger  *zap.Logger
	Metrics *metrics.Recorder
}

// Server is the HTTP front end.
type Server struct {
	router    *chi.Mux
	book      Book
	converter *converter.Converter
	files     *utils.FileManager
	maxUpload int64
	logger    *zap.Logger
	metrics   *metrics.Recorder
	templates *template.Template
}

// New parses the page templates and builds the router.
func New(opts Options) (*Server, error) {
	if opts.Converter == nil {
		return nil, fmt.Errorf("converter is required")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}

	funcMap := template.FuncMap{
		"add": func(a, b int) int { return a + b },
	}
	templates, err := template.New("").Funcs(funcMap).ParseFS(templateFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	s := &Server{
		router:    chi.NewRouter(),
		book:      opts.Book,
		converter: opts.Converter,
		files:     opts.Files,
		maxUpload: opts.MaxUploadBytes,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		templates: templates,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s, nil
}

// ServeHTTP makes Server an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
}

func (s *Server) setupRoutes() {
	s.router.Get("/", s.handleIndex)
	s.router.Post("/", s.handleUpload)
	s.router.Get("/sample.xlsx", s.handleSample)
	s.router.Get("/export.xml", s.handleExport)
	s.router.Get("/healthz", s.handleHealth)
	s.router.Handle("/metrics", s.metrics.Handler())
}

// requestLogger logs one line per request through zap.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info("request",
					zap.String("request_id", middleware.GetReqID(r.Context())),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

// render writes the page template with status.
func (s *Server) render(w http.ResponseWriter, status int, data *page) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "index.html", data); err != nil {
		s.logger.Error("template error", zap.Error(err))
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}
