package usage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// RetentionConfig controls automatic pruning of old usage records.
type RetentionConfig struct {
	// RetentionDays is how long records are kept. Zero disables pruning.
	RetentionDays int

	// Schedule is a cron expression for when pruning runs, e.g.
	// "0 3 * * *" for daily at 3 AM. Empty disables the scheduler.
	Schedule string
}

// Retention prunes expired records on a cron schedule.
type Retention struct {
	storage Storage
	config  RetentionConfig
	cron    *cron.Cron
	logger  *slog.Logger

	mu      sync.Mutex
	running bool
}

// NewRetention creates a retention scheduler for storage.
func NewRetention(storage Storage, cfg RetentionConfig) *Retention {
	return &Retention{
		storage: storage,
		config:  cfg,
		cron:    cron.New(),
		logger:  slog.Default().With("component", "usage.retention"),
	}
}

// Start begins scheduled pruning. It is a no-op when no schedule or
// retention period is configured.
func (r *Retention) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.config.Schedule == "" || r.config.RetentionDays <= 0 {
		r.logger.Info("usage retention not configured, skipping scheduler")
		return nil
	}

	if _, err := cron.ParseStandard(r.config.Schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", r.config.Schedule, err)
	}

	_, err := r.cron.AddFunc(r.config.Schedule, func() {
		r.runPruning(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule pruning: %w", err)
	}

	r.cron.Start()
	r.running = true

	r.logger.Info("usage retention started",
		"schedule", r.config.Schedule,
		"retention_days", r.config.RetentionDays,
	)

	go func() {
		<-ctx.Done()
		r.Stop()
	}()

	return nil
}

// Prune removes records older than the retention period.
func (r *Retention) Prune(ctx context.Context) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -r.config.RetentionDays)
	return r.storage.DeleteBefore(ctx, cutoff)
}

func (r *Retention) runPruning(ctx context.Context) {
	removed, err := r.Prune(ctx)
	if err != nil {
		r.logger.Error("scheduled usage pruning failed", "error", err)
		return
	}
	if removed > 0 {
		r.logger.Info("scheduled usage pruning completed", "deleted_count", removed)
	} else {
		r.logger.Debug("scheduled usage pruning completed, no records deleted")
	}
}

// Stop stops the scheduler and waits for any running job to finish.
func (r *Retention) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cron != nil && r.running {
		ctx := r.cron.Stop()
		<-ctx.Done()
		r.running = false
		r.logger.Info("usage retention stopped")
	}
}

// NextRun returns the next scheduled pruning time, or nil when the
// scheduler is idle.
func (r *Retention) NextRun() *time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := r.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
