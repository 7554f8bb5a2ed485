package app

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"liveTradeFeed/internal/ports"
)

// RetentionJob periodically drops diagnostics older than the retention window.
type RetentionJob struct {
	pruner    ports.DiagnosticsPruner
	logger    ports.Logger
	retention time.Duration
	schedule  cron.Schedule
	expr      string
	now       func() time.Time
}

// NewRetentionJob validates the cron expression (standard 5-field or descriptors like "@hourly").
func NewRetentionJob(pruner ports.DiagnosticsPruner, logger ports.Logger, retention time.Duration, expr string) (*RetentionJob, error) {
	if pruner == nil || logger == nil {
		return nil, fmt.Errorf("%w: missing required dependencies for RetentionJob", ports.ErrConfigurationError)
	}
	if retention <= 0 {
		return nil, fmt.Errorf("%w: retention must be positive", ports.ErrConfigurationError)
	}
	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid prune schedule %q: %v", ports.ErrConfigurationError, expr, err)
	}
	return &RetentionJob{
		pruner:    pruner,
		logger:    logger,
		retention: retention,
		schedule:  schedule,
		expr:      expr,
		now:       time.Now,
	}, nil
}

// RunOnce prunes everything recorded before now minus the retention window.
func (j *RetentionJob) RunOnce(ctx context.Context) (int64, error) {
	cutoff := j.now().Add(-j.retention)
	n, err := j.pruner.PruneBefore(ctx, cutoff)
	if err != nil {
		j.logger.Error(ctx, err, "Diagnostics pruning failed")
		return 0, err
	}
	j.logger.Debug(ctx, "Diagnostics pruning finished", map[string]interface{}{"deleted": n})
	return n, nil
}

// Run prunes once immediately, then on schedule until ctx is cancelled.
func (j *RetentionJob) Run(ctx context.Context) {
	c := cron.New()
	c.Schedule(j.schedule, cron.FuncJob(func() {
		_, _ = j.RunOnce(ctx)
	}))

	_, _ = j.RunOnce(ctx)

	j.logger.Info(ctx, "Diagnostics retention started", map[string]interface{}{"schedule": j.expr, "retention": j.retention.String()})
	c.Start()
	<-ctx.Done()

	stopCtx := c.Stop()
	<-stopCtx.Done() // wait for a running prune
	j.logger.Info(context.Background(), "Diagnostics retention stopped")
}
