package domain

import "time"

// EventKind identifies the feed event carried by an Event.
type EventKind string

const (
	EventOpenTradesSnapshot EventKind = "open_trades_update"
	EventTradeUpdate        EventKind = "trade_update"
	EventTradeClosed        EventKind = "trade_closed"
	EventNotification       EventKind = "notification"
)

// Event is a decoded feed message. Only the field matching Kind is populated.
type Event struct {
	Kind         EventKind
	Snapshot     []Trade             // EventOpenTradesSnapshot
	Trade        *Trade              // EventTradeUpdate, EventTradeClosed
	Notification *NotificationMessage // EventNotification
}

// DiagnosticKind classifies a recorded feed problem.
type DiagnosticKind string

const (
	DiagnosticValidation    DiagnosticKind = "validation"
	DiagnosticInconsistency DiagnosticKind = "inconsistency"
	DiagnosticTransport     DiagnosticKind = "transport"
)

// Diagnostic is a non-fatal feed problem kept for telemetry.
type Diagnostic struct {
	ID         int64          `json:"id"`
	SessionID  string         `json:"sessionId"`
	Kind       DiagnosticKind `json:"kind"`
	Event      EventKind      `json:"event,omitempty"`
	TradeID    string         `json:"tradeId,omitempty"`
	Message    string         `json:"message"`
	RecordedAt time.Time      `json:"recordedAt"`
}
