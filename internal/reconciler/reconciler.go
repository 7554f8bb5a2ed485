// Package reconciler merges live feed events into the bounded collections the dashboard renders:
// open trades, trade history (most recent first) and the notification ticker log.
//
// A Reconciler is not safe for concurrent use. Every operation runs to completion
// synchronously, so a host that serialises calls observes each operation atomically.
package reconciler

import (
	"fmt"
	"math"
	"strings"

	"liveTradeFeed/internal/domain"
	"liveTradeFeed/internal/ports"
)

const (
	DefaultHistoryLimit      = 50
	DefaultNotificationLimit = 10
)

// Config holds the retention limits of the reconciler.
type Config struct {
	HistoryLimit      int // N: maximum closed trades kept
	NotificationLimit int // M: maximum ticker messages kept
}

// Reconciler owns the open set, the history list and the notification log.
type Reconciler struct {
	historyLimit      int
	notificationLimit int

	open          []domain.Trade // order of first observation
	history       []domain.Trade // most recent first
	notifications []domain.NotificationMessage
	lastReceived  uint64
	view          domain.View
}

// New creates a reconciler with the given retention limits.
func New(cfg Config) (*Reconciler, error) {
	if cfg.HistoryLimit <= 0 {
		return nil, fmt.Errorf("history limit must be positive, got %d: %w", cfg.HistoryLimit, ports.ErrConfigurationError)
	}
	if cfg.NotificationLimit <= 0 {
		return nil, fmt.Errorf("notification limit must be positive, got %d: %w", cfg.NotificationLimit, ports.ErrConfigurationError)
	}
	return &Reconciler{
		historyLimit:      cfg.HistoryLimit,
		notificationLimit: cfg.NotificationLimit,
		open:              make([]domain.Trade, 0),
		history:           make([]domain.Trade, 0, cfg.HistoryLimit+1),
		notifications:     make([]domain.NotificationMessage, 0, cfg.NotificationLimit+1),
		view:              domain.ViewOpen,
	}, nil
}

// ApplyOpenSnapshot replaces the open set with the given trades (initial sync or full refresh).
// If any trade is malformed the whole snapshot is rejected with a *ValidationError.
// Trades that are already in history are skipped and reported with an *InconsistencyWarning.
func (r *Reconciler) ApplyOpenSnapshot(trades []domain.Trade) error {
	for i := range trades {
		if err := validateOpen(domain.EventOpenTradesSnapshot, &trades[i]); err != nil {
			return err
		}
	}

	next := make([]domain.Trade, 0, len(trades))
	var skipped []string
	for i := range trades {
		t := asOpen(trades[i])
		if indexOf(r.history, t.ID) >= 0 {
			skipped = append(skipped, t.ID)
			continue
		}
		// Duplicate ids keep the first position and the last value.
		if j := indexOf(next, t.ID); j >= 0 {
			next[j] = t
			continue
		}
		next = append(next, t)
	}
	r.open = next

	if len(skipped) > 0 {
		return &InconsistencyWarning{
			Event:    domain.EventOpenTradesSnapshot,
			TradeIDs: skipped,
			Reason:   "snapshot lists trades that are already closed",
			Applied:  true,
		}
	}
	return nil
}

// ApplyOpenUpdate upserts a single open trade. A known id is replaced in place, an unseen id is appended.
func (r *Reconciler) ApplyOpenUpdate(trade domain.Trade) error {
	if err := validateOpen(domain.EventTradeUpdate, &trade); err != nil {
		return err
	}
	if indexOf(r.history, trade.ID) >= 0 {
		return &InconsistencyWarning{
			Event:    domain.EventTradeUpdate,
			TradeIDs: []string{trade.ID},
			Reason:   "update for a trade that is already closed",
		}
	}

	t := asOpen(trade)
	i := indexOf(r.open, t.ID)
	if i < 0 {
		r.open = append(r.open, t)
		return nil
	}
	if prev := r.open[i].Sequence; t.Sequence != 0 && prev != 0 && t.Sequence < prev {
		return &InconsistencyWarning{
			Event:    domain.EventTradeUpdate,
			TradeIDs: []string{t.ID},
			Reason:   fmt.Sprintf("stale update (sequence %d < %d)", t.Sequence, prev),
		}
	}
	r.open[i] = t
	return nil
}

// ApplyClose moves a trade from the open set to the front of history in one step,
// then evicts the oldest history entries beyond the limit.
// A close for a trade that was never open is still recorded and reported with an *InconsistencyWarning.
func (r *Reconciler) ApplyClose(trade domain.Trade) error {
	if strings.TrimSpace(trade.ID) == "" {
		return &ValidationError{Event: domain.EventTradeClosed, Field: "id", Reason: "missing"}
	}
	if err := validateNumbers(domain.EventTradeClosed, &trade); err != nil {
		return err
	}

	closed := trade.Clone()
	var warn *InconsistencyWarning

	openIdx := indexOf(r.open, trade.ID)
	histIdx := indexOf(r.history, trade.ID)
	switch {
	case openIdx >= 0:
		closed = mergeClose(r.open[openIdx], closed)
		r.open = removeAt(r.open, openIdx)
	case histIdx >= 0:
		closed = mergeClose(r.history[histIdx], closed)
		r.history = removeAt(r.history, histIdx)
		warn = &InconsistencyWarning{
			Event:    domain.EventTradeClosed,
			TradeIDs: []string{trade.ID},
			Reason:   "trade was already closed, history entry replaced",
			Applied:  true,
		}
	default:
		warn = &InconsistencyWarning{
			Event:    domain.EventTradeClosed,
			TradeIDs: []string{trade.ID},
			Reason:   "close for a trade that was not open",
			Applied:  true,
		}
	}

	closed.Status = domain.StatusClosed
	r.history = append([]domain.Trade{closed}, r.history...)
	if len(r.history) > r.historyLimit {
		for i := r.historyLimit; i < len(r.history); i++ {
			r.history[i] = domain.Trade{}
		}
		r.history = r.history[:r.historyLimit]
	}

	if warn != nil {
		return warn
	}
	return nil
}

// ApplyNotification appends a message to the ticker log, evicting the oldest beyond the limit.
func (r *Reconciler) ApplyNotification(msg domain.NotificationMessage) error {
	if strings.TrimSpace(msg.Text) == "" {
		return &ValidationError{Event: domain.EventNotification, Field: "text", Reason: "missing"}
	}
	r.lastReceived++
	msg.ReceivedAt = r.lastReceived
	r.notifications = append(r.notifications, msg)
	if len(r.notifications) > r.notificationLimit {
		r.notifications = r.notifications[len(r.notifications)-r.notificationLimit:]
	}
	return nil
}

// ToggleView flips between the open and history views and returns the new view.
func (r *Reconciler) ToggleView() domain.View {
	r.view = r.view.Flip()
	return r.view
}

// ActiveView returns the view currently selected.
func (r *Reconciler) ActiveView() domain.View {
	return r.view
}

// CurrentView returns the collection for the active view.
func (r *Reconciler) CurrentView() []domain.Trade {
	if r.view == domain.ViewHistory {
		return r.History()
	}
	return r.OpenTrades()
}

// OpenTrades returns a copy of the open set in order of first observation.
func (r *Reconciler) OpenTrades() []domain.Trade {
	return cloneTrades(r.open)
}

// History returns a copy of the closed trades, most recent first.
func (r *Reconciler) History() []domain.Trade {
	return cloneTrades(r.history)
}

// Notifications returns a copy of the ticker log, oldest first.
func (r *Reconciler) Notifications() []domain.NotificationMessage {
	out := make([]domain.NotificationMessage, len(r.notifications))
	copy(out, r.notifications)
	return out
}

// Limits returns the configured retention limits.
func (r *Reconciler) Limits() Config {
	return Config{HistoryLimit: r.historyLimit, NotificationLimit: r.notificationLimit}
}

// Reset drops all collections and returns to the open view, keeping the limits.
func (r *Reconciler) Reset() {
	r.open = make([]domain.Trade, 0)
	r.history = make([]domain.Trade, 0, r.historyLimit+1)
	r.notifications = make([]domain.NotificationMessage, 0, r.notificationLimit+1)
	r.lastReceived = 0
	r.view = domain.ViewOpen
}

// --- helpers ---

func validateOpen(kind domain.EventKind, t *domain.Trade) error {
	if strings.TrimSpace(t.ID) == "" {
		return &ValidationError{Event: kind, Field: "id", Reason: "missing"}
	}
	if strings.TrimSpace(t.Symbol) == "" {
		return &ValidationError{Event: kind, TradeID: t.ID, Field: "symbol", Reason: "missing"}
	}
	return validateNumbers(kind, t)
}

func validateNumbers(kind domain.EventKind, t *domain.Trade) error {
	if math.IsNaN(t.Confidence) || t.Confidence < 0 || t.Confidence > 1 {
		return &ValidationError{Event: kind, TradeID: t.ID, Field: "confidence", Reason: fmt.Sprintf("%v is outside [0,1]", t.Confidence)}
	}
	if !isFinite(t.ProfitAndLossPercent) {
		return &ValidationError{Event: kind, TradeID: t.ID, Field: "profitAndLossPercent", Reason: "not a finite number"}
	}
	prices := []struct {
		name  string
		value *float64
	}{
		{"entryPrice", t.EntryPrice},
		{"takeProfitPrice", t.TakeProfitPrice},
		{"stopLossPrice", t.StopLossPrice},
		{"exitPrice", t.ExitPrice},
	}
	for _, p := range prices {
		if p.value != nil && !isFinite(*p.value) {
			return &ValidationError{Event: kind, TradeID: t.ID, Field: p.name, Reason: "not a finite number"}
		}
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func asOpen(t domain.Trade) domain.Trade {
	c := t.Clone()
	c.Status = domain.StatusOpen
	c.CloseReason = domain.CloseReasonUnknown
	return c
}

// mergeClose overlays the close payload on the last known state of the trade.
// Fields the close leaves unset are inherited.
func mergeClose(prev, closed domain.Trade) domain.Trade {
	if closed.Symbol == "" {
		closed.Symbol = prev.Symbol
	}
	if closed.EntryPrice == nil {
		closed.EntryPrice = prev.Clone().EntryPrice
	}
	if closed.TakeProfitPrice == nil {
		closed.TakeProfitPrice = prev.Clone().TakeProfitPrice
	}
	if closed.StopLossPrice == nil {
		closed.StopLossPrice = prev.Clone().StopLossPrice
	}
	if closed.ExitPrice == nil {
		closed.ExitPrice = prev.Clone().ExitPrice
	}
	if closed.Confidence == 0 {
		closed.Confidence = prev.Confidence
	}
	if closed.Sequence == 0 {
		closed.Sequence = prev.Sequence
	}
	if closed.PriceHistory == nil && prev.PriceHistory != nil {
		closed.PriceHistory = append([]float64(nil), prev.PriceHistory...)
	}
	if closed.CloseReason == domain.CloseReasonUnknown {
		closed.CloseReason = prev.CloseReason
	}
	return closed
}

func indexOf(trades []domain.Trade, id string) int {
	for i := range trades {
		if trades[i].ID == id {
			return i
		}
	}
	return -1
}

func removeAt(trades []domain.Trade, i int) []domain.Trade {
	out := make([]domain.Trade, 0, len(trades)-1)
	out = append(out, trades[:i]...)
	return append(out, trades[i+1:]...)
}

func cloneTrades(trades []domain.Trade) []domain.Trade {
	out := make([]domain.Trade, len(trades))
	for i := range trades {
		out[i] = trades[i].Clone()
	}
	return out
}
