package cron

import (
	"context"
	"fmt"

	"github.com/safelink-ng/safelink-backend/internal/refunds"
	"github.com/safelink-ng/safelink-backend/pkg/logger"
	"github.com/safelink-ng/safelink-backend/pkg/metrics"
)

// sweeper is the slice of the refund service the job needs.
type sweeper interface {
	Run(ctx context.Context) (*refunds.Report, error)
}

// RefundSweepJobParams configure the stale-order refund job.
type RefundSweepJobParams struct {
	Logger  *logger.Logger
	Sweeper sweeper
	Metrics *metrics.JobMetrics
}

// NewRefundSweepJob builds the cron job that refunds buyers of orders that
// were never confirmed delivered within the grace period.
func NewRefundSweepJob(params RefundSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Sweeper == nil {
		return nil, fmt.Errorf("refund sweeper required")
	}
	return &refundSweepJob{
		logg:    params.Logger,
		sweeper: params.Sweeper,
		metrics: params.Metrics,
	}, nil
}

type refundSweepJob struct {
	logg    *logger.Logger
	sweeper sweeper
	metrics *metrics.JobMetrics
}

func (j *refundSweepJob) Name() string { return "refund-sweep" }

func (j *refundSweepJob) Run(ctx context.Context) error {
	report, err := j.sweeper.Run(ctx)
	if err != nil {
		return fmt.Errorf("refund sweep: %w", err)
	}

	j.metrics.AddRefundOutcomes(string(refunds.OutcomeRefunded), report.Refunded)
	j.metrics.AddRefundOutcomes(string(refunds.OutcomeSkipped), report.Skipped)
	j.metrics.AddRefundOutcomes(string(refunds.OutcomeFailed), report.Failed)

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"processed": report.Processed,
		"refunded":  report.Refunded,
		"skipped":   report.Skipped,
		"failed":    report.Failed,
		"cutoff":    report.Cutoff,
	})
	j.logg.Info(logCtx, "refund sweep complete")

	if report.Failed > 0 {
		return fmt.Errorf("refund sweep finished with %d failed orders", report.Failed)
	}
	return nil
}
