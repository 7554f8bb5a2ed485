package ports

import (
	"context"
	"time"

	"liveTradeFeed/internal/domain"
)

// DiagnosticsRepository stores non-fatal feed problems for telemetry.
type DiagnosticsRepository interface {
	// Record saves a diagnostic and returns its assigned ID.
	Record(ctx context.Context, d *domain.Diagnostic) (int64, error)
	// Recent retrieves the most recent diagnostics, newest first, up to a limit.
	Recent(ctx context.Context, limit int) ([]*domain.Diagnostic, error)
	// CountByKind counts recorded diagnostics grouped by kind.
	CountByKind(ctx context.Context) (map[domain.DiagnosticKind]int, error)
}

// DiagnosticsPruner enforces the journal retention window.
type DiagnosticsPruner interface {
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
