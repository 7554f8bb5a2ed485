package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"liveTradeFeed/config"
	"liveTradeFeed/internal/analytics"
	"liveTradeFeed/internal/domain"
	"liveTradeFeed/internal/panel"
	"liveTradeFeed/internal/ports"
	"liveTradeFeed/internal/reconciler"
)

const streamShutdownTimeout = 5 * time.Second

// Stats counts how feed events were handled during this session.
type Stats struct {
	Applied         int `json:"applied"`
	Rejected        int `json:"rejected"`        // validation errors, event dropped
	Inconsistencies int `json:"inconsistencies"` // warnings, event may have been applied
	TransportErrors int `json:"transportErrors"`
}

// Snapshot is a consistent view of the dashboard state taken under one lock.
type Snapshot struct {
	SessionID     string                       `json:"sessionId"`
	View          domain.View                  `json:"view"`
	Open          []domain.Trade               `json:"open"`
	History       []domain.Trade               `json:"history"`
	Notifications []domain.NotificationMessage `json:"notifications"`
	Stats         Stats                        `json:"stats"`
}

// FeedService keeps the dashboard state in sync with the live trade feed.
type FeedService struct {
	logger      ports.Logger
	feed        ports.FeedClient
	diagnostics ports.DiagnosticsRepository
	panelOpts   panel.Options
	sessionID   string

	// State fields
	mu    sync.Mutex // Serialises every apply and read below
	rec   *reconciler.Reconciler
	stats Stats
}

// NewFeedService creates a new application service instance.
func NewFeedService(
	cfg *config.Config,
	logger ports.Logger,
	feed ports.FeedClient,
	diagnostics ports.DiagnosticsRepository,
) (*FeedService, error) {

	// Validate dependencies
	if cfg == nil || logger == nil || feed == nil || diagnostics == nil {
		return nil, fmt.Errorf("%w: missing required dependencies for FeedService", ports.ErrConfigurationError)
	}

	rec, err := reconciler.New(reconciler.Config{
		HistoryLimit:      cfg.HistoryLimit,
		NotificationLimit: cfg.NotificationLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create reconciler: %w", err)
	}

	return &FeedService{
		logger:      logger,
		feed:        feed,
		diagnostics: diagnostics,
		panelOpts: panel.Options{
			PageSize:            cfg.PageSize,
			ConfidenceThreshold: cfg.ConfidenceThreshold,
			Theme:               cfg.Theme,
		},
		sessionID: uuid.NewString(),
		rec:       rec,
	}, nil
}

// SessionID identifies this run in the diagnostics journal.
func (s *FeedService) SessionID() string {
	return s.sessionID
}

// Start streams the feed until the context is cancelled or a shutdown signal arrives.
func (s *FeedService) Start(ctx context.Context) error {
	s.logger.Info(ctx, "Starting Feed Service...", map[string]interface{}{"sessionID": s.sessionID})

	// Create a context that can be canceled by signals
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			s.logger.Info(ctx, "Received shutdown signal", map[string]interface{}{"signal": sig.String()})
			cancel()
		case <-ctx.Done():
		}
	}()

	wsDoneCh, wsStopCh, err := s.feed.Stream(ctx, s.handleFeedEvent, s.handleFeedError)
	if err != nil {
		s.logger.Error(ctx, err, "Failed to start feed stream")
		return fmt.Errorf("failed to start feed stream: %w", err)
	}
	s.logger.Info(ctx, "Feed stream started")

	select {
	case <-ctx.Done():
		s.logger.Info(ctx, "Main context cancelled, initiating shutdown...")
		select {
		case wsStopCh <- struct{}{}:
			s.logger.Info(ctx, "Stop signal sent to feed stream")
		default:
			s.logger.Debug(ctx, "Feed stream already stopping")
		}
		select {
		case <-wsDoneCh:
			s.logger.Info(ctx, "Feed stream shut down gracefully")
		case <-time.After(streamShutdownTimeout):
			s.logger.Warn(ctx, "Timeout waiting for feed stream to shut down")
		}
	case <-wsDoneCh:
		if ctx.Err() != nil {
			break // stream closed because we are shutting down
		}
		err := fmt.Errorf("%w: stream stopped unexpectedly", ports.ErrFeedClosed)
		s.logger.Error(ctx, err, "Feed stream stopped")
		return err
	}

	s.logger.Info(ctx, "Feed Service stopped.")
	return nil
}

// HandleEvent applies one feed event. Validation errors and inconsistency warnings are
// logged and journaled; they are returned for callers that care but never stop processing.
func (s *FeedService) HandleEvent(ctx context.Context, ev domain.Event) error {
	s.mu.Lock()
	err := s.apply(ev)
	switch {
	case err == nil:
		s.stats.Applied++
	case errors.Is(err, ports.ErrValidation):
		s.stats.Rejected++
	case errors.Is(err, ports.ErrInconsistency):
		s.stats.Inconsistencies++
		var warn *reconciler.InconsistencyWarning
		if errors.As(err, &warn) && warn.Applied {
			s.stats.Applied++
		}
	default:
		s.stats.Rejected++
	}
	s.mu.Unlock()

	if err != nil {
		s.report(ctx, ev.Kind, err)
	}
	return err
}

// apply dispatches to the reconciler. Caller holds s.mu.
func (s *FeedService) apply(ev domain.Event) error {
	switch ev.Kind {
	case domain.EventOpenTradesSnapshot:
		return s.rec.ApplyOpenSnapshot(ev.Snapshot)
	case domain.EventTradeUpdate:
		if ev.Trade == nil {
			return &reconciler.ValidationError{Event: ev.Kind, Field: "data", Reason: "missing trade"}
		}
		return s.rec.ApplyOpenUpdate(*ev.Trade)
	case domain.EventTradeClosed:
		if ev.Trade == nil {
			return &reconciler.ValidationError{Event: ev.Kind, Field: "data", Reason: "missing trade"}
		}
		return s.rec.ApplyClose(*ev.Trade)
	case domain.EventNotification:
		if ev.Notification == nil {
			return &reconciler.ValidationError{Event: ev.Kind, Field: "data", Reason: "missing notification"}
		}
		return s.rec.ApplyNotification(*ev.Notification)
	default:
		return fmt.Errorf("%w: %q", ports.ErrUnknownEvent, ev.Kind)
	}
}

// report logs a non-fatal problem and journals it.
func (s *FeedService) report(ctx context.Context, event domain.EventKind, err error) {
	d := &domain.Diagnostic{
		SessionID:  s.sessionID,
		Kind:       domain.DiagnosticTransport,
		Event:      event,
		Message:    err.Error(),
		RecordedAt: time.Now().UTC(),
	}

	var verr *reconciler.ValidationError
	var warn *reconciler.InconsistencyWarning
	switch {
	case errors.As(err, &verr):
		d.Kind = domain.DiagnosticValidation
		d.TradeID = verr.TradeID
	case errors.As(err, &warn):
		d.Kind = domain.DiagnosticInconsistency
		d.TradeID = strings.Join(warn.TradeIDs, ",")
	}

	s.logger.Warn(ctx, "Feed event not cleanly applied", map[string]interface{}{
		"event":   string(event),
		"kind":    string(d.Kind),
		"tradeID": d.TradeID,
		"error":   err.Error(),
	})

	if _, rerr := s.diagnostics.Record(ctx, d); rerr != nil {
		s.logger.Error(ctx, rerr, "Failed to record feed diagnostic", map[string]interface{}{"kind": string(d.Kind)})
	}
}

// handleFeedEvent is the stream callback.
func (s *FeedService) handleFeedEvent(ev domain.Event) {
	ctx := context.Background()
	s.logger.Debug(ctx, "Received feed event", map[string]interface{}{"event": string(ev.Kind)})
	_ = s.HandleEvent(ctx, ev)
}

// handleFeedError handles errors reported by the feed stream. Reconnection is handled by the adapter.
func (s *FeedService) handleFeedError(err error) {
	ctx := context.Background()
	s.mu.Lock()
	s.stats.TransportErrors++
	s.mu.Unlock()

	if errors.Is(err, ports.ErrConnectionFailed) {
		s.logger.Error(ctx, err, "Feed stream gave up reconnecting")
	}
	s.report(ctx, "", err)
}

// Snapshot returns the full dashboard state as one atomic observation.
func (s *FeedService) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		SessionID:     s.sessionID,
		View:          s.rec.ActiveView(),
		Open:          s.rec.OpenTrades(),
		History:       s.rec.History(),
		Notifications: s.rec.Notifications(),
		Stats:         s.stats,
	}
}

// OpenTrades returns a copy of the open trades.
func (s *FeedService) OpenTrades() []domain.Trade {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec.OpenTrades()
}

// History returns a copy of the closed trades, most recent first.
func (s *FeedService) History() []domain.Trade {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec.History()
}

// Notifications returns the ticker log, oldest first.
func (s *FeedService) Notifications() []domain.NotificationMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec.Notifications()
}

// ToggleView flips the active panel and returns the new view.
func (s *FeedService) ToggleView() domain.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	view := s.rec.ToggleView()
	s.logger.Debug(context.Background(), "Active view toggled", map[string]interface{}{"view": string(view)})
	return view
}

// Page builds the requested page of the active panel.
func (s *FeedService) Page(page int) panel.Page {
	s.mu.Lock()
	view := s.rec.ActiveView()
	trades := s.rec.CurrentView()
	s.mu.Unlock()
	return panel.Build(trades, view, s.panelOpts, page)
}

// Summary computes performance metrics over the history.
func (s *FeedService) Summary() analytics.Summary {
	return analytics.Summarize(s.History())
}

// Diagnostics returns the most recent journal entries.
func (s *FeedService) Diagnostics(ctx context.Context, limit int) ([]*domain.Diagnostic, error) {
	return s.diagnostics.Recent(ctx, limit)
}
