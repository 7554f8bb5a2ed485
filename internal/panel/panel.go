// Package panel builds the paged trade panel view model shown by the dashboard.
package panel

import (
	"sort"

	"github.com/shopspring/decimal"

	"liveTradeFeed/internal/domain"
)

const (
	DefaultPageSize            = 10
	DefaultConfidenceThreshold = 0.974

	missingValue = "--"
)

// Outcome classifies a row's PnL.
type Outcome string

const (
	OutcomeGain Outcome = "gain"
	OutcomeLoss Outcome = "loss"
)

// Options control pagination and highlighting.
type Options struct {
	PageSize            int
	ConfidenceThreshold float64
	Theme               domain.Theme
}

// Row is one display-ready trade.
type Row struct {
	ID             string             `json:"id"`
	Symbol         string             `json:"symbol"`
	EntryPrice     string             `json:"entryPrice"`
	TakeProfit     string             `json:"takeProfit"`
	StopLoss       string             `json:"stopLoss"`
	ExitPrice      string             `json:"exitPrice"`
	PnL            string             `json:"pnl"`
	Confidence     string             `json:"confidence"`
	Outcome        Outcome            `json:"outcome"`
	HighConfidence bool               `json:"highConfidence"`
	CloseReason    domain.CloseReason `json:"closeReason,omitempty"`
	PriceHistory   []float64          `json:"priceHistory,omitempty"`
}

// Page is a single page of the active panel.
type Page struct {
	View        domain.View  `json:"view"`
	Theme       domain.Theme `json:"theme"`
	Page        int          `json:"page"`
	TotalPages  int          `json:"totalPages"`
	TotalTrades int          `json:"totalTrades"`
	Rows        []Row        `json:"rows"`
}

// Build returns the requested 1-based page of trades for the given view.
// Open trades are ranked by PnL, best first; history keeps its most-recent-first order.
// Out-of-range pages are clamped.
func Build(trades []domain.Trade, view domain.View, opts Options, page int) Page {
	opts = withDefaults(opts)

	ordered := make([]domain.Trade, len(trades))
	copy(ordered, trades)
	if view == domain.ViewOpen {
		sort.SliceStable(ordered, func(i, j int) bool {
			return ordered[i].ProfitAndLossPercent > ordered[j].ProfitAndLossPercent
		})
	}

	totalPages := (len(ordered) + opts.PageSize - 1) / opts.PageSize
	if totalPages == 0 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * opts.PageSize
	end := start + opts.PageSize
	if end > len(ordered) {
		end = len(ordered)
	}

	rows := make([]Row, 0, end-start)
	for i := start; i < end; i++ {
		rows = append(rows, toRow(ordered[i], opts.ConfidenceThreshold))
	}

	return Page{
		View:        view,
		Theme:       opts.Theme,
		Page:        page,
		TotalPages:  totalPages,
		TotalTrades: len(ordered),
		Rows:        rows,
	}
}

func withDefaults(opts Options) Options {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.ConfidenceThreshold <= 0 {
		opts.ConfidenceThreshold = DefaultConfidenceThreshold
	}
	if _, ok := domain.ParseTheme(string(opts.Theme)); !ok {
		opts.Theme = domain.ThemeDark
	}
	return opts
}

func toRow(t domain.Trade, threshold float64) Row {
	outcome := OutcomeLoss
	if t.IsGain() {
		outcome = OutcomeGain
	}
	return Row{
		ID:             t.ID,
		Symbol:         t.Symbol,
		EntryPrice:     formatPrice(t.EntryPrice),
		TakeProfit:     formatPrice(t.TakeProfitPrice),
		StopLoss:       formatPrice(t.StopLossPrice),
		ExitPrice:      formatPrice(t.ExitPrice),
		PnL:            decimal.NewFromFloat(t.ProfitAndLossPercent).StringFixed(2),
		Confidence:     decimal.NewFromFloat(t.Confidence).StringFixed(3),
		Outcome:        outcome,
		HighConfidence: t.Confidence >= threshold,
		CloseReason:    t.CloseReason,
		PriceHistory:   append([]float64(nil), t.PriceHistory...),
	}
}

func formatPrice(p *float64) string {
	if p == nil {
		return missingValue
	}
	return decimal.NewFromFloat(*p).StringFixed(2)
}
