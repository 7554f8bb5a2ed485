package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"liveTradeFeed/config"
	"liveTradeFeed/internal/adapters/logger"
	"liveTradeFeed/internal/adapters/wsfeed"
	"liveTradeFeed/internal/analytics"
	"liveTradeFeed/internal/domain"
	"liveTradeFeed/internal/ports"
	"liveTradeFeed/internal/reconciler"
	"liveTradeFeed/internal/utils"
)

const maxFrameSize = 1 << 20

var (
	inputPath  = flag.String("in", "", "NDJSON capture of feed frames (one frame per line)")
	outputPath = flag.String("out", "data/history.csv", "CSV file for the reconciled trade history")
)

type replayStats struct {
	Frames          int
	Applied         int
	Rejected        int
	Inconsistencies int
	DecodeErrors    int
}

func main() {
	flag.Parse()
	if *inputPath == "" {
		log.Fatalf("FATAL: -in is required")
	}

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	// 2. Initialize Logger
	appLogger, err := logger.New(logger.Config{Level: cfg.LogLevel, Encoding: cfg.LogEncoding})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize logger: %v", err)
	}
	defer appLogger.Sync()
	ctx := context.Background()

	rec, err := reconciler.New(reconciler.Config{HistoryLimit: cfg.HistoryLimit, NotificationLimit: cfg.NotificationLimit})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize reconciler")
		log.Fatalf("FATAL: Failed to initialize reconciler: %v", err)
	}

	file, err := os.Open(*inputPath)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to open capture")
		log.Fatalf("FATAL: Failed to open capture: %v", err)
	}
	defer file.Close()

	stats, err := replay(ctx, file, rec, appLogger)
	if err != nil {
		appLogger.Error(ctx, err, "Replay failed")
		log.Fatalf("Replay failed: %v", err)
	}

	history := rec.History()
	if err := utils.WriteTradesToCSV(history, *outputPath); err != nil {
		appLogger.Error(ctx, err, "Error writing CSV")
		log.Fatalf("Error writing CSV: %v", err)
	}

	summary := analytics.Summarize(history)
	appLogger.Info(ctx, "Replay finished", map[string]interface{}{
		"frames":          stats.Frames,
		"applied":         stats.Applied,
		"rejected":        stats.Rejected,
		"inconsistencies": stats.Inconsistencies,
		"decodeErrors":    stats.DecodeErrors,
		"open":            len(rec.OpenTrades()),
		"history":         len(history),
		"winRate":         summary.WinRate,
		"output":          *outputPath,
	})
}

// replay decodes every frame in r and applies it to rec. Bad frames are logged and skipped.
func replay(ctx context.Context, r io.Reader, rec *reconciler.Reconciler, log ports.Logger) (replayStats, error) {
	var stats replayStats
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxFrameSize)

	line := 0
	for scanner.Scan() {
		line++
		frame := bytes.TrimSpace(scanner.Bytes())
		if len(frame) == 0 {
			continue
		}
		stats.Frames++

		ev, err := wsfeed.Decode(frame)
		if err != nil {
			stats.DecodeErrors++
			log.Warn(ctx, "Skipping undecodable frame", map[string]interface{}{"line": line, "error": err.Error()})
			continue
		}

		err = apply(rec, ev)
		switch {
		case err == nil:
			stats.Applied++
		case errors.Is(err, ports.ErrInconsistency):
			stats.Inconsistencies++
			log.Warn(ctx, "Frame inconsistent with state", map[string]interface{}{"line": line, "error": err.Error()})
		default:
			stats.Rejected++
			log.Warn(ctx, "Frame rejected", map[string]interface{}{"line": line, "error": err.Error()})
		}
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("failed to read capture at line %d: %w", line+1, err)
	}
	return stats, nil
}

func apply(rec *reconciler.Reconciler, ev domain.Event) error {
	switch ev.Kind {
	case domain.EventOpenTradesSnapshot:
		return rec.ApplyOpenSnapshot(ev.Snapshot)
	case domain.EventTradeUpdate:
		return rec.ApplyOpenUpdate(*ev.Trade)
	case domain.EventTradeClosed:
		return rec.ApplyClose(*ev.Trade)
	case domain.EventNotification:
		return rec.ApplyNotification(*ev.Notification)
	default:
		return fmt.Errorf("%w: %q", ports.ErrUnknownEvent, ev.Kind)
	}
}
