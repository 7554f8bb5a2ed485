package domain

// Trade is a position reported by the trading bot, either still open or already closed.
type Trade struct {
	ID                   string      `json:"id"`
	Symbol               string      `json:"symbol"`
	EntryPrice           *float64    `json:"entryPrice"`      // nil until known
	TakeProfitPrice      *float64    `json:"takeProfitPrice"` // nil until known
	StopLossPrice        *float64    `json:"stopLossPrice"`   // nil until known
	ExitPrice            *float64    `json:"exitPrice,omitempty"`
	Confidence           float64     `json:"confidence"` // model confidence at entry, 0..1
	ProfitAndLossPercent float64     `json:"profitAndLossPercent"`
	Status               TradeStatus `json:"status"`
	CloseReason          CloseReason `json:"closeReason,omitempty"`

	// Sequence is the per-trade sequence number stamped by the transport (0 if absent).
	Sequence uint64 `json:"sequence,omitempty"`
	// PriceHistory is passed through for sparklines and never interpreted.
	PriceHistory []float64 `json:"priceHistory,omitempty"`
}

// IsOpen checks if the trade status is open.
func (t *Trade) IsOpen() bool {
	return t.Status == StatusOpen
}

// IsGain reports whether the trade is classified as a gain. Flat trades count as gains.
func (t *Trade) IsGain() bool {
	return t.ProfitAndLossPercent >= 0
}

// Clone returns a deep copy so callers never share pointers with reconciler state.
func (t Trade) Clone() Trade {
	c := t
	c.EntryPrice = clonePrice(t.EntryPrice)
	c.TakeProfitPrice = clonePrice(t.TakeProfitPrice)
	c.StopLossPrice = clonePrice(t.StopLossPrice)
	c.ExitPrice = clonePrice(t.ExitPrice)
	if t.PriceHistory != nil {
		c.PriceHistory = append([]float64(nil), t.PriceHistory...)
	}
	return c
}

// Price returns a pointer to v, for building trades with known price levels.
func Price(v float64) *float64 {
	return &v
}

func clonePrice(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
