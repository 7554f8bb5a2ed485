package analytics

import (
	"math"

	"liveTradeFeed/internal/domain"
)

// Summary holds performance metrics over the closed trade history.
type Summary struct {
	// Basic Metrics
	TotalTrades  int     `json:"totalTrades"`
	Gains        int     `json:"gains"`
	Losses       int     `json:"losses"`
	WinRate      float64 `json:"winRate"`
	TotalPnL     float64 `json:"totalPnl"`
	AveragePnL   float64 `json:"averagePnl"`
	BestPnL      float64 `json:"bestPnl"`
	WorstPnL     float64 `json:"worstPnl"`
	AverageGain  float64 `json:"averageGain"`
	AverageLoss  float64 `json:"averageLoss"`
	ProfitFactor float64 `json:"profitFactor"`
	Expectancy   float64 `json:"expectancy"`

	// Streaks
	CurrentWinStreak     int `json:"currentWinStreak"`
	CurrentLossStreak    int `json:"currentLossStreak"`
	MaxConsecutiveWins   int `json:"maxConsecutiveWins"`
	MaxConsecutiveLosses int `json:"maxConsecutiveLosses"`

	CloseReasons map[domain.CloseReason]int `json:"closeReasons"`
}

// Summarize calculates metrics from a most-recent-first closed trade history.
// A trade with PnL >= 0 counts as a gain.
func Summarize(history []domain.Trade) Summary {
	s := Summary{CloseReasons: make(map[domain.CloseReason]int)}
	if len(history) == 0 {
		return s
	}

	s.BestPnL = math.Inf(-1)
	s.WorstPnL = math.Inf(1)
	var gainSum, lossSum float64
	var consecutiveWins, consecutiveLosses int

	// Walk chronologically: oldest trade is last in history.
	for i := len(history) - 1; i >= 0; i-- {
		trade := history[i]
		pnl := trade.ProfitAndLossPercent

		s.TotalTrades++
		s.TotalPnL += pnl
		s.BestPnL = math.Max(s.BestPnL, pnl)
		s.WorstPnL = math.Min(s.WorstPnL, pnl)
		s.CloseReasons[trade.CloseReason]++

		if trade.IsGain() {
			s.Gains++
			gainSum += pnl
			consecutiveWins++
			consecutiveLosses = 0
		} else {
			s.Losses++
			lossSum += pnl
			consecutiveLosses++
			consecutiveWins = 0
		}

		if consecutiveWins > s.MaxConsecutiveWins {
			s.MaxConsecutiveWins = consecutiveWins
		}
		if consecutiveLosses > s.MaxConsecutiveLosses {
			s.MaxConsecutiveLosses = consecutiveLosses
		}
	}

	// After the walk the running counters describe the newest streak.
	s.CurrentWinStreak = consecutiveWins
	s.CurrentLossStreak = consecutiveLosses

	s.WinRate = float64(s.Gains) / float64(s.TotalTrades)
	s.AveragePnL = s.TotalPnL / float64(s.TotalTrades)
	if s.Gains > 0 {
		s.AverageGain = gainSum / float64(s.Gains)
	}
	if s.Losses > 0 {
		s.AverageLoss = lossSum / float64(s.Losses)
	}
	if lossSum != 0 {
		s.ProfitFactor = gainSum / -lossSum
	}
	s.Expectancy = (s.WinRate * s.AverageGain) + ((1 - s.WinRate) * s.AverageLoss)

	return s
}
