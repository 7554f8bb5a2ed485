package wsfeed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"liveTradeFeed/internal/domain"
	"liveTradeFeed/internal/ports"
)

// syncRequestEvent asks the backend to push the current open trades snapshot.
const syncRequestEvent = "request_trade_data"

// envelope is the JSON frame exchanged with the feed backend.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// wireTrade is the trade payload as sent by the bot backend.
type wireTrade struct {
	ID           string    `json:"id"`
	TradeID      string    `json:"trade_id"` // older producers
	Symbol       string    `json:"symbol"`
	EntryPrice   *float64  `json:"entry_price"`
	TakeProfit   *float64  `json:"take_profit"`
	StopLoss     *float64  `json:"stop_loss"`
	ExitPrice    *float64  `json:"exit_price"`
	Confidence   *float64  `json:"confidence"`
	PNL          *float64  `json:"pnl"`
	CloseReason  string    `json:"close_reason"`
	ExitReason   string    `json:"exit_reason"` // older producers
	Seq          uint64    `json:"seq"`
	PriceHistory []float64 `json:"price_history"`
}

type wireNotification struct {
	Text    string `json:"text"`
	Message string `json:"message"`
	Sound   string `json:"sound"`
}

// Decode parses one feed frame into a domain event.
// Structural problems (bad JSON, wrong payload shape, unknown kind) are transport errors;
// field-level validation is left to the reconciler.
func Decode(frame []byte) (domain.Event, error) {
	var env envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return domain.Event{}, fmt.Errorf("%w: %v", ports.ErrDecodeFailed, err)
	}

	kind := domain.EventKind(env.Event)
	switch kind {
	case domain.EventOpenTradesSnapshot:
		var raw []wireTrade
		if err := unmarshalData(env.Data, &raw); err != nil {
			return domain.Event{}, fmt.Errorf("%w: %s payload: %v", ports.ErrDecodeFailed, kind, err)
		}
		trades := make([]domain.Trade, 0, len(raw))
		for i := range raw {
			trades = append(trades, raw[i].toDomain())
		}
		return domain.Event{Kind: kind, Snapshot: trades}, nil

	case domain.EventTradeUpdate, domain.EventTradeClosed:
		var raw wireTrade
		if err := unmarshalData(env.Data, &raw); err != nil {
			return domain.Event{}, fmt.Errorf("%w: %s payload: %v", ports.ErrDecodeFailed, kind, err)
		}
		t := raw.toDomain()
		return domain.Event{Kind: kind, Trade: &t}, nil

	case domain.EventNotification:
		msg, err := decodeNotification(env.Data)
		if err != nil {
			return domain.Event{}, fmt.Errorf("%w: %s payload: %v", ports.ErrDecodeFailed, kind, err)
		}
		return domain.Event{Kind: kind, Notification: &msg}, nil

	default:
		return domain.Event{}, fmt.Errorf("%w: %q", ports.ErrUnknownEvent, env.Event)
	}
}

// EncodeSyncRequest returns the frame that requests an open trades snapshot.
func EncodeSyncRequest() []byte {
	b, _ := json.Marshal(envelope{Event: syncRequestEvent})
	return b
}

// payload rejects absent and null data; only a literal [] is an empty snapshot.
func payload(data json.RawMessage) ([]byte, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("missing data")
	}
	if bytes.Equal(trimmed, []byte("null")) {
		return nil, fmt.Errorf("data is null")
	}
	return trimmed, nil
}

func unmarshalData(data json.RawMessage, v interface{}) error {
	trimmed, err := payload(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(trimmed, v)
}

// decodeNotification resolves the ticker text: text, then message, then the compact payload itself.
func decodeNotification(data json.RawMessage) (domain.NotificationMessage, error) {
	trimmed, err := payload(data)
	if err != nil {
		return domain.NotificationMessage{}, err
	}

	// Plain string payloads are the text.
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return domain.NotificationMessage{}, err
		}
		return domain.NotificationMessage{Text: s}, nil
	}

	var n wireNotification
	if trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &n); err != nil {
			return domain.NotificationMessage{}, err
		}
	}
	text := strings.TrimSpace(n.Text)
	if text == "" {
		text = strings.TrimSpace(n.Message)
	}
	if text == "" {
		var compact bytes.Buffer
		if err := json.Compact(&compact, trimmed); err != nil {
			return domain.NotificationMessage{}, err
		}
		text = compact.String()
	}
	return domain.NotificationMessage{Text: text, Sound: n.Sound}, nil
}

func (w *wireTrade) toDomain() domain.Trade {
	id := w.ID
	if id == "" {
		id = w.TradeID
	}
	reason := w.CloseReason
	if reason == "" {
		reason = w.ExitReason
	}
	t := domain.Trade{
		ID:              id,
		Symbol:          w.Symbol,
		EntryPrice:      w.EntryPrice,
		TakeProfitPrice: w.TakeProfit,
		StopLossPrice:   w.StopLoss,
		ExitPrice:       w.ExitPrice,
		CloseReason:     domain.CloseReason(reason),
		Sequence:        w.Seq,
		PriceHistory:    w.PriceHistory,
	}
	if w.Confidence != nil {
		t.Confidence = *w.Confidence
	}
	if w.PNL != nil {
		t.ProfitAndLossPercent = *w.PNL
	}
	return t
}
