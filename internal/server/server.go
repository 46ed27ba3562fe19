// Package server exposes sessions, filled-page detection, export and page previews over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jun787/CVA-cupping-forms/internal/export"
	"github.com/jun787/CVA-cupping-forms/internal/logger"
	"github.com/jun787/CVA-cupping-forms/internal/raster"
	"github.com/jun787/CVA-cupping-forms/internal/schema"
	"github.com/jun787/CVA-cupping-forms/internal/session"
)

// ShutdownTimeout bounds graceful shutdown
const ShutdownTimeout = 5 * time.Second

// Exporter builds flattened PDFs
type Exporter interface {
	Export(ctx context.Context, req export.Request) ([]byte, error)
}

// PageSource renders pages of the source form for previews
type PageSource interface {
	PageCount() int
	Rasterize(ctx context.Context, page int, scale float64) (*raster.Image, error)
}

// PageSourceLoader opens the source form on first use
type PageSourceLoader func(ctx context.Context) (PageSource, error)

// Server serves the HTTP API
type Server struct {
	logger   *logger.Logger
	store    *session.Store
	fields   *schema.FieldsFile
	exporter Exporter
	pdfPath  string
	fontPath string
	addr     string

	locks   *keyedMutex
	status  *StatusTracker
	preview *previewer

	httpServer *http.Server
}

// Config holds configuration for the server
type Config struct {
	Logger   *logger.Logger
	Store    *session.Store
	Fields   *schema.FieldsFile
	Exporter Exporter
	PDFPath  string
	FontPath string
	// Addr is the listen address used by Run (e.g. ":8080")
	Addr string
	// Preview is optional; without it /preview answers 503
	Preview PageSourceLoader
	// PreviewScale is the default preview scale; 0 means raster.DefaultScale
	PreviewScale float64
}

// New creates a new server instance
func New(cfg *Config) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if cfg.Fields == nil {
		return nil, fmt.Errorf("fields are required")
	}
	if cfg.Exporter == nil {
		return nil, fmt.Errorf("exporter is required")
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}

	scale := cfg.PreviewScale
	if scale <= 0 {
		scale = raster.DefaultScale
	}

	return &Server{
		logger:   log,
		store:    cfg.Store,
		fields:   cfg.Fields,
		exporter: cfg.Exporter,
		pdfPath:  cfg.PDFPath,
		fontPath: cfg.FontPath,
		addr:     cfg.Addr,
		locks:    newKeyedMutex(),
		status:   NewStatusTracker(),
		preview:  newPreviewer(cfg.Preview, scale),
	}, nil
}

// Handler returns the routed API
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.requestLogging)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/ready", s.handleReady).Methods(http.MethodGet)
	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/fields", s.handleFields).Methods(http.MethodGet)

	r.HandleFunc("/sessions", s.handleSessionsList).Methods(http.MethodGet)
	r.HandleFunc("/sessions", s.handleSessionCreate).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}", s.handleSessionGet).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{id}", s.handleSessionMeta).Methods(http.MethodPatch)
	r.HandleFunc("/sessions/{id}", s.handleSessionRemove).Methods(http.MethodDelete)
	r.HandleFunc("/sessions/{id}/duplicate", s.handleSessionDuplicate).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}/values/{field}", s.handleValuePut).Methods(http.MethodPut)
	r.HandleFunc("/sessions/{id}/values/{field}", s.handleValueDelete).Methods(http.MethodDelete)
	r.HandleFunc("/sessions/{id}/pages", s.handlePages).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{id}/export", s.handleExport).Methods(http.MethodGet, http.MethodPost)

	r.HandleFunc("/preview/pages/{page:[0-9]+}", s.handlePreview).Methods(http.MethodGet)

	return r
}

// Run serves until ctx is cancelled or a shutdown signal is received
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)
	go func() {
		s.logger.WithFields("addr", ln.Addr().String()).Info("Starting HTTP server")
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Context canceled, shutting down")
	case sig := <-sigChan:
		s.logger.WithFields("signal", sig.String()).Info("Received shutdown signal")
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	}

	s.shutdown()
	return nil
}

// shutdown stops the HTTP server
func (s *Server) shutdown() {
	if s.httpServer == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.WithError(err).Warn("Failed to shutdown HTTP server gracefully")
	} else {
		s.logger.Info("HTTP server stopped")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK\n"))
}

// handleReady reports 503 until the fields file has at least one field
func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	if len(s.fields.Fields) == 0 {
		respondError(w, http.StatusServiceUnavailable, "no fields loaded", "")
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK\n"))
}

func (s *Server) handleFields(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.fields)
}
