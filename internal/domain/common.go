package domain

// TradeStatus represents the lifecycle status of a trade.
type TradeStatus string

const (
	StatusOpen   TradeStatus = "open"
	StatusClosed TradeStatus = "closed"
)

// CloseReason indicates why a trade was closed.
// The feed sends free text; the constants below are the values the bot emits today.
type CloseReason string

const (
	CloseReasonTakeProfit CloseReason = "take-profit hit"
	CloseReasonStopLoss   CloseReason = "stop-loss hit"
	CloseReasonManual     CloseReason = "manual exit"
	CloseReasonUnknown    CloseReason = ""
)

// View is the panel mode the dashboard is currently showing.
type View string

const (
	ViewOpen    View = "open"
	ViewHistory View = "history"
)

// Flip returns the opposite view.
func (v View) Flip() View {
	if v == ViewOpen {
		return ViewHistory
	}
	return ViewOpen
}

// Theme is the display theme of the dashboard. It is carried as data only.
type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

// ParseTheme converts a string into a Theme. ok is false for unknown values.
func ParseTheme(s string) (theme Theme, ok bool) {
	switch Theme(s) {
	case ThemeDark, ThemeLight:
		return Theme(s), true
	default:
		return ThemeDark, false
	}
}
