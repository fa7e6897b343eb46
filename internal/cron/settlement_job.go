package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/arjunmehra/bazaarcart-backend/pkg/db/models"
	pkgerrors "github.com/arjunmehra/bazaarcart-backend/pkg/errors"
	"github.com/arjunmehra/bazaarcart-backend/pkg/logger"
)

const defaultSettlementPeriodDays = 30

type settlementService interface {
	UnsettledVendors(ctx context.Context, deliveredBefore time.Time) ([]uuid.UUID, error)
	CreateBatch(ctx context.Context, vendorID uuid.UUID, from, to time.Time, deductions decimal.Decimal) (*models.VendorPayment, error)
}

// SettlementJobParams configure the periodic payout sweep.
type SettlementJobParams struct {
	Logger     *logger.Logger
	Settlement settlementService
	PeriodDays int
}

// NewSettlementJob builds the job that drafts payout batches for every
// vendor with unsettled deliveries in the elapsed period.
func NewSettlementJob(params SettlementJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Settlement == nil {
		return nil, fmt.Errorf("settlement service required")
	}
	periodDays := params.PeriodDays
	if periodDays <= 0 {
		periodDays = defaultSettlementPeriodDays
	}
	return &settlementJob{
		logg:       params.Logger,
		settlement: params.Settlement,
		periodDays: periodDays,
		now:        time.Now,
	}, nil
}

type settlementJob struct {
	logg       *logger.Logger
	settlement settlementService
	periodDays int
	now        func() time.Time
}

func (j *settlementJob) Name() string { return "vendor-settlement" }

// Run drafts one batch per vendor for the period ending at the start of the
// current day. Per-vendor failures are collected, not fatal, so one bad
// vendor cannot starve the rest of the sweep.
func (j *settlementJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	to := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	from := to.AddDate(0, 0, -j.periodDays)

	vendorIDs, err := j.settlement.UnsettledVendors(ctx, to)
	if err != nil {
		return fmt.Errorf("list unsettled vendors: %w", err)
	}

	var errs []error
	batches := 0
	skipped := 0
	for _, vendorID := range vendorIDs {
		_, err := j.settlement.CreateBatch(ctx, vendorID, from, to, decimal.Zero)
		if err != nil {
			// Deliveries older than the period window stay unclaimed;
			// nothing to draft for this vendor yet.
			if appErr := pkgerrors.As(err); appErr != nil && appErr.Code() == pkgerrors.CodeNotFound {
				skipped++
				continue
			}
			errs = append(errs, fmt.Errorf("vendor %s: %w", vendorID, err))
			continue
		}
		batches++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"period_from":     from,
		"period_to":       to,
		"vendors":         len(vendorIDs),
		"batches_created": batches,
		"skipped":         skipped,
		"failed":          len(errs),
	})
	j.logg.Info(logCtx, "settlement sweep complete")
	return multierr.Combine(errs...)
}
