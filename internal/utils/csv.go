package utils

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"liveTradeFeed/internal/domain"
)

var tradeCSVHeader = []string{
	"id", "symbol", "status", "entry_price", "take_profit", "stop_loss", "exit_price",
	"confidence", "pnl", "close_reason", "seq",
}

// WriteTradesToCSV writes trades to filename, creating parent directories as needed.
func WriteTradesToCSV(trades []domain.Trade, filename string) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory '%s': %w", dir, err)
		}
	}
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return WriteTrades(file, trades)
}

// WriteTrades writes a header row followed by one row per trade. Unknown prices are left empty.
func WriteTrades(w io.Writer, trades []domain.Trade) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(tradeCSVHeader); err != nil {
		return err
	}

	for _, t := range trades {
		err := writer.Write([]string{
			t.ID,
			t.Symbol,
			string(t.Status),
			formatOptional(t.EntryPrice),
			formatOptional(t.TakeProfitPrice),
			formatOptional(t.StopLossPrice),
			formatOptional(t.ExitPrice),
			strconv.FormatFloat(t.Confidence, 'f', -1, 64),
			strconv.FormatFloat(t.ProfitAndLossPercent, 'f', -1, 64),
			string(t.CloseReason),
			strconv.FormatUint(t.Sequence, 10),
		})
		if err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
