package analytics

import (
	"math"
	"testing"

	"liveTradeFeed/internal/domain"
)

func closed(id string, pnl float64, reason domain.CloseReason) domain.Trade {
	return domain.Trade{ID: id, ProfitAndLossPercent: pnl, Status: domain.StatusClosed, CloseReason: reason}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestSummarize(t *testing.T) {
	// Most recent first: D is newest, A is oldest.
	history := []domain.Trade{
		closed("D", 1.5, domain.CloseReasonTakeProfit),
		closed("C", 0, domain.CloseReasonManual),
		closed("B", -2, domain.CloseReasonStopLoss),
		closed("A", 3, domain.CloseReasonTakeProfit),
	}

	s := Summarize(history)

	if s.TotalTrades != 4 {
		t.Errorf("Expected 4 total trades, got %d", s.TotalTrades)
	}
	if s.Gains != 3 {
		t.Errorf("Expected 3 gains (zero PnL counts as gain), got %d", s.Gains)
	}
	if s.Losses != 1 {
		t.Errorf("Expected 1 loss, got %d", s.Losses)
	}
	if !almostEqual(s.WinRate, 0.75) {
		t.Errorf("Expected 0.75 win rate, got %f", s.WinRate)
	}
	if !almostEqual(s.TotalPnL, 2.5) {
		t.Errorf("Expected 2.5 total PnL, got %f", s.TotalPnL)
	}
	if !almostEqual(s.AveragePnL, 0.625) {
		t.Errorf("Expected 0.625 average PnL, got %f", s.AveragePnL)
	}
	if s.BestPnL != 3 || s.WorstPnL != -2 {
		t.Errorf("Expected best 3 and worst -2, got %f and %f", s.BestPnL, s.WorstPnL)
	}
	if !almostEqual(s.AverageGain, 1.5) {
		t.Errorf("Expected 1.5 average gain, got %f", s.AverageGain)
	}
	if s.AverageLoss != -2 {
		t.Errorf("Expected -2 average loss, got %f", s.AverageLoss)
	}
	if !almostEqual(s.ProfitFactor, 2.25) {
		t.Errorf("Expected 2.25 profit factor, got %f", s.ProfitFactor)
	}
	if !almostEqual(s.Expectancy, 0.625) {
		t.Errorf("Expected 0.625 expectancy, got %f", s.Expectancy)
	}

	// Streaks
	if s.CurrentWinStreak != 2 || s.CurrentLossStreak != 0 {
		t.Errorf("Expected current win streak 2 and loss streak 0, got %d and %d", s.CurrentWinStreak, s.CurrentLossStreak)
	}
	if s.MaxConsecutiveWins != 2 {
		t.Errorf("Expected 2 max consecutive wins, got %d", s.MaxConsecutiveWins)
	}
	if s.MaxConsecutiveLosses != 1 {
		t.Errorf("Expected 1 max consecutive losses, got %d", s.MaxConsecutiveLosses)
	}

	if s.CloseReasons[domain.CloseReasonTakeProfit] != 2 {
		t.Errorf("Expected 2 take-profit closes, got %d", s.CloseReasons[domain.CloseReasonTakeProfit])
	}
	if s.CloseReasons[domain.CloseReasonStopLoss] != 1 || s.CloseReasons[domain.CloseReasonManual] != 1 {
		t.Errorf("Unexpected close reason counts: %v", s.CloseReasons)
	}
}

func TestSummarize_LosingStreak(t *testing.T) {
	history := []domain.Trade{
		closed("C", -0.5, domain.CloseReasonStopLoss),
		closed("B", -1, domain.CloseReasonStopLoss),
		closed("A", 2, domain.CloseReasonUnknown),
	}

	s := Summarize(history)

	if s.CurrentLossStreak != 2 || s.CurrentWinStreak != 0 {
		t.Errorf("Expected current loss streak 2, got wins=%d losses=%d", s.CurrentWinStreak, s.CurrentLossStreak)
	}
	if s.CloseReasons[domain.CloseReasonUnknown] != 1 {
		t.Errorf("Expected trades without a reason to be counted under the empty reason")
	}
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)

	if s.TotalTrades != 0 || s.WinRate != 0 {
		t.Errorf("Expected zero metrics for empty history, got %+v", s)
	}
	if s.BestPnL != 0 || s.WorstPnL != 0 {
		t.Errorf("Expected zero best/worst for empty history, got %f and %f", s.BestPnL, s.WorstPnL)
	}
	if s.CloseReasons == nil {
		t.Errorf("Expected an empty, non-nil close reason map")
	}
}

func TestSummarize_AllGains(t *testing.T) {
	s := Summarize([]domain.Trade{closed("B", 1, domain.CloseReasonTakeProfit), closed("A", 2, domain.CloseReasonTakeProfit)})

	if s.ProfitFactor != 0 {
		t.Errorf("Expected profit factor 0 without losses, got %f", s.ProfitFactor)
	}
	if s.AverageLoss != 0 {
		t.Errorf("Expected average loss 0 without losses, got %f", s.AverageLoss)
	}
	if s.WinRate != 1 {
		t.Errorf("Expected win rate 1, got %f", s.WinRate)
	}
}
