package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"liveTradeFeed/internal/analytics"
	"liveTradeFeed/internal/domain"
	"liveTradeFeed/internal/panel"
	"liveTradeFeed/internal/ports"
)

const (
	defaultDiagnosticsLimit = 20
	maxDiagnosticsLimit     = 500
	shutdownTimeout         = 5 * time.Second
)

// FeedReader is the dashboard state the API serves.
type FeedReader interface {
	OpenTrades() []domain.Trade
	History() []domain.Trade
	Notifications() []domain.NotificationMessage
	ToggleView() domain.View
	Page(page int) panel.Page
	Summary() analytics.Summary
	Diagnostics(ctx context.Context, limit int) ([]*domain.Diagnostic, error)
}

// Config holds configuration for the HTTP API.
type Config struct {
	Addr   string
	Reader FeedReader
	Logger ports.Logger
}

// Server exposes the reconciled feed state over HTTP.
type Server struct {
	reader FeedReader
	logger ports.Logger
	srv    *http.Server
}

// New creates the HTTP API server.
func New(cfg Config) (*Server, error) {
	if cfg.Reader == nil || cfg.Logger == nil {
		return nil, fmt.Errorf("%w: reader and logger are required for HTTP API", ports.ErrConfigurationError)
	}
	addr := cfg.Addr
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{reader: cfg.Reader, logger: cfg.Logger}
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s, nil
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	// Public routes
	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			s.logger.Error(r.Context(), err, "healthcheck write failed")
		}
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/trades/open", s.handleOpenTrades)
		r.Get("/trades/history", s.handleHistory)
		r.Get("/trades/view", s.handleView)
		r.Post("/trades/view/toggle", s.handleToggle)
		r.Get("/notifications", s.handleNotifications)
		r.Get("/summary", s.handleSummary)
		r.Get("/diagnostics", s.handleDiagnostics)
	})
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "HTTP API listening", map[string]interface{}{"addr": s.srv.Addr})
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			s.logger.Error(ctx, err, "HTTP API crashed")
			return fmt.Errorf("http api: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "Shutting down HTTP API gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error(ctx, err, "HTTP API shutdown error")
		return fmt.Errorf("http api shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleOpenTrades(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, s.reader.OpenTrades())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, s.reader.History())
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	page, err := positiveQueryInt(r, "page", 1)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, s.reader.Page(page))
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	view := s.reader.ToggleView()
	s.writeJSON(w, r, http.StatusOK, map[string]domain.View{"view": view})
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, s.reader.Notifications())
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, s.reader.Summary())
}

func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	limit, err := positiveQueryInt(r, "limit", defaultDiagnosticsLimit)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	if limit > maxDiagnosticsLimit {
		limit = maxDiagnosticsLimit
	}
	diagnostics, err := s.reader.Diagnostics(r.Context(), limit)
	if err != nil {
		s.logger.Error(r.Context(), err, "Failed to load diagnostics")
		s.writeError(w, r, http.StatusInternalServerError, errors.New("failed to load diagnostics"))
		return
	}
	s.writeJSON(w, r, http.StatusOK, diagnostics)
}

func positiveQueryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", ports.ErrInvalidRequest, key)
	}
	return v, nil
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error(r.Context(), err, "Failed to encode response", map[string]interface{}{"path": r.URL.Path})
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	s.writeJSON(w, r, status, map[string]string{"error": err.Error()})
}
