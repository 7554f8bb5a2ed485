package panel

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liveTradeFeed/internal/domain"
)

func trades(n int) []domain.Trade {
	out := make([]domain.Trade, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, domain.Trade{ID: fmt.Sprintf("T%02d", i), ProfitAndLossPercent: float64(i)})
	}
	return out
}

func ids(rows []Row) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.ID)
	}
	return out
}

func TestBuild_OpenViewSortedByPnL(t *testing.T) {
	in := []domain.Trade{
		{ID: "A", ProfitAndLossPercent: -1},
		{ID: "B", ProfitAndLossPercent: 5},
		{ID: "C", ProfitAndLossPercent: 2},
		{ID: "D", ProfitAndLossPercent: 2},
	}

	p := Build(in, domain.ViewOpen, Options{}, 1)

	assert.Equal(t, []string{"B", "C", "D", "A"}, ids(p.Rows), "ties keep their arrival order")
	assert.Equal(t, []string{"A", "B", "C", "D"}, []string{in[0].ID, in[1].ID, in[2].ID, in[3].ID}, "input is not reordered")
}

func TestBuild_HistoryKeepsOrder(t *testing.T) {
	in := []domain.Trade{
		{ID: "C", ProfitAndLossPercent: -3},
		{ID: "B", ProfitAndLossPercent: 4},
		{ID: "A", ProfitAndLossPercent: 1},
	}

	p := Build(in, domain.ViewHistory, Options{}, 1)

	assert.Equal(t, domain.ViewHistory, p.View)
	assert.Equal(t, []string{"C", "B", "A"}, ids(p.Rows))
}

func TestBuild_Pagination(t *testing.T) {
	in := trades(25) // T24 has the best PnL

	tests := []struct {
		name      string
		page      int
		wantPage  int
		wantCount int
		wantFirst string
	}{
		{name: "first page", page: 1, wantPage: 1, wantCount: 10, wantFirst: "T24"},
		{name: "last partial page", page: 3, wantPage: 3, wantCount: 5, wantFirst: "T04"},
		{name: "zero clamps to first", page: 0, wantPage: 1, wantCount: 10, wantFirst: "T24"},
		{name: "beyond end clamps to last", page: 9, wantPage: 3, wantCount: 5, wantFirst: "T04"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Build(in, domain.ViewOpen, Options{}, tt.page)
			assert.Equal(t, tt.wantPage, p.Page)
			assert.Equal(t, 3, p.TotalPages)
			assert.Equal(t, 25, p.TotalTrades)
			require.Len(t, p.Rows, tt.wantCount)
			assert.Equal(t, tt.wantFirst, p.Rows[0].ID)
		})
	}
}

func TestBuild_CustomPageSize(t *testing.T) {
	p := Build(trades(5), domain.ViewHistory, Options{PageSize: 2}, 2)
	assert.Equal(t, 3, p.TotalPages)
	assert.Equal(t, []string{"T02", "T03"}, ids(p.Rows))
}

func TestBuild_Empty(t *testing.T) {
	p := Build(nil, domain.ViewOpen, Options{}, 4)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 1, p.TotalPages)
	assert.Empty(t, p.Rows)
	assert.NotNil(t, p.Rows)
}

func TestBuild_RowFormatting(t *testing.T) {
	in := []domain.Trade{
		{
			ID:                   "A",
			Symbol:               "BTCUSDT",
			EntryPrice:           domain.Price(100.456),
			TakeProfitPrice:      domain.Price(110),
			ProfitAndLossPercent: -0.125,
			Confidence:           0.9745,
			PriceHistory:         []float64{100, 101},
		},
		{ID: "B", ProfitAndLossPercent: 0, Confidence: 0.5},
	}

	p := Build(in, domain.ViewOpen, Options{}, 1)
	require.Len(t, p.Rows, 2)

	b, a := p.Rows[0], p.Rows[1]

	assert.Equal(t, "100.46", a.EntryPrice)
	assert.Equal(t, "110.00", a.TakeProfit)
	assert.Equal(t, "--", a.StopLoss)
	assert.Equal(t, "--", a.ExitPrice)
	assert.Equal(t, "-0.13", a.PnL)
	assert.Equal(t, "0.975", a.Confidence)
	assert.Equal(t, OutcomeLoss, a.Outcome)
	assert.True(t, a.HighConfidence)
	assert.Equal(t, []float64{100, 101}, a.PriceHistory)

	assert.Equal(t, "0.00", b.PnL)
	assert.Equal(t, OutcomeGain, b.Outcome, "zero PnL is a gain")
	assert.False(t, b.HighConfidence)
}

func TestBuild_ThresholdAndTheme(t *testing.T) {
	in := []domain.Trade{{ID: "A", Confidence: 0.8}}

	p := Build(in, domain.ViewOpen, Options{ConfidenceThreshold: 0.8, Theme: domain.ThemeLight}, 1)
	assert.True(t, p.Rows[0].HighConfidence, "threshold is inclusive")
	assert.Equal(t, domain.ThemeLight, p.Theme)

	p = Build(in, domain.ViewOpen, Options{Theme: "neon"}, 1)
	assert.Equal(t, domain.ThemeDark, p.Theme)
}
