package reconciler

import (
	"fmt"

	"liveTradeFeed/internal/domain"
	"liveTradeFeed/internal/ports"
)

// ValidationError reports a feed event that was rejected because it is malformed.
// The event was dropped and reconciler state is unchanged.
type ValidationError struct {
	Event   domain.EventKind
	TradeID string // empty when the id itself is missing or the event is a notification
	Field   string
	Reason  string
}

func (e *ValidationError) Error() string {
	if e.TradeID != "" {
		return fmt.Sprintf("%s: trade %s: invalid %s: %s", e.Event, e.TradeID, e.Field, e.Reason)
	}
	return fmt.Sprintf("%s: invalid %s: %s", e.Event, e.Field, e.Reason)
}

// Unwrap lets callers match with errors.Is(err, ports.ErrValidation).
func (e *ValidationError) Unwrap() error { return ports.ErrValidation }

// InconsistencyWarning reports an event that does not line up with current state.
// Unlike a ValidationError the event may still have been applied; Applied says which.
type InconsistencyWarning struct {
	Event    domain.EventKind
	TradeIDs []string
	Reason   string
	Applied  bool
}

func (w *InconsistencyWarning) Error() string {
	return fmt.Sprintf("%s: %s (trades %v, applied=%t)", w.Event, w.Reason, w.TradeIDs, w.Applied)
}

// Unwrap lets callers match with errors.Is(err, ports.ErrInconsistency).
func (w *InconsistencyWarning) Unwrap() error { return ports.ErrInconsistency }
