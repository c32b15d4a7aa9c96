package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/aurelhart/scoreline-backend/pkg/config"
	"github.com/aurelhart/scoreline-backend/pkg/logger"
	"go.uber.org/multierr"
)

const (
	defaultOrderRetentionDays   = 365
	defaultAttemptRetentionDays = 30
)

type orderCleaner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type attemptCleaner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionJobParams configure the retention sweep.
type RetentionJobParams struct {
	Logger    *logger.Logger
	Orders    orderCleaner
	Attempts  attemptCleaner
	Retention config.RetentionConfig
}

// NewRetentionJob builds the job that prunes old orders and old notification
// attempt rows. Both sweeps run even when one fails; the errors are combined.
func NewRetentionJob(params RetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order cleaner required")
	}
	if params.Attempts == nil {
		return nil, fmt.Errorf("attempt cleaner required")
	}

	orderDays := params.Retention.OrderDays
	if orderDays <= 0 {
		orderDays = defaultOrderRetentionDays
	}
	attemptDays := params.Retention.AttemptDays
	if attemptDays <= 0 {
		attemptDays = defaultAttemptRetentionDays
	}

	return &retentionJob{
		logg:        params.Logger,
		orders:      params.Orders,
		attempts:    params.Attempts,
		orderDays:   orderDays,
		attemptDays: attemptDays,
		now:         time.Now,
	}, nil
}

type retentionJob struct {
	logg        *logger.Logger
	orders      orderCleaner
	attempts    attemptCleaner
	orderDays   int
	attemptDays int
	now         func() time.Time
}

func (j *retentionJob) Name() string { return "retention" }

func (j *retentionJob) Run(ctx context.Context) error {
	var errs []error
	if err := j.pruneOrders(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := j.pruneAttempts(ctx); err != nil {
		errs = append(errs, err)
	}
	return multierr.Combine(errs...)
}

func (j *retentionJob) pruneOrders(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-time.Duration(j.orderDays) * 24 * time.Hour)
	deleted, err := j.orders.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune orders: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.orderDays,
		"rows_deleted":   deleted,
	})
	j.logg.Info(logCtx, "order retention sweep complete")
	return nil
}

func (j *retentionJob) pruneAttempts(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-time.Duration(j.attemptDays) * 24 * time.Hour)
	deleted, err := j.attempts.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune notification attempts: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.attemptDays,
		"rows_deleted":   deleted,
	})
	j.logg.Info(logCtx, "notification attempt retention sweep complete")
	return nil
}
