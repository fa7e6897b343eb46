package settlement

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbpkg "github.com/arjunmehra/bazaarcart-backend/pkg/db"
	"github.com/arjunmehra/bazaarcart-backend/pkg/db/models"
	"github.com/arjunmehra/bazaarcart-backend/pkg/enums"
	pkgerrors "github.com/arjunmehra/bazaarcart-backend/pkg/errors"
	"github.com/arjunmehra/bazaarcart-backend/pkg/logger"
	"github.com/arjunmehra/bazaarcart-backend/pkg/outbox"
	"github.com/arjunmehra/bazaarcart-backend/pkg/outbox/payloads"
)

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service groups delivered items into vendor payout batches and records the
// externally driven state of each batch.
type Service struct {
	db     *dbpkg.Client
	repo   Repository
	events eventEmitter
	logg   *logger.Logger
}

// NewService wires the settlement aggregator.
func NewService(db *dbpkg.Client, repo Repository, events eventEmitter, logg *logger.Logger) *Service {
	return &Service{db: db, repo: repo, events: events, logg: logg}
}

// CreateBatch drafts a pending VendorPayment for the vendor's delivered,
// not-yet-settled items inside [from, to). Items are linked to the batch in
// the same transaction so a concurrent sweep cannot claim them twice.
func (s *Service) CreateBatch(ctx context.Context, vendorID uuid.UUID, from, to time.Time, deductions decimal.Decimal) (*models.VendorPayment, error) {
	if !to.After(from) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "settlement period end must be after start")
	}
	if deductions.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "deductions cannot be negative")
	}

	ctx = s.logg.WithVendorID(ctx, vendorID.String())

	var payment *models.VendorPayment
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		items, err := s.repo.EligibleItems(ctx, tx, vendorID, from, to)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "no settleable items in period").
				WithDetails(map[string]any{
					"vendor_id":   vendorID,
					"period_from": from,
					"period_to":   to,
				})
		}

		gross := decimal.Zero
		commission := decimal.Zero
		itemIDs := make([]uuid.UUID, 0, len(items))
		for _, item := range items {
			gross = gross.Add(item.VendorEarning)
			commission = commission.Add(item.Commission)
			itemIDs = append(itemIDs, item.ID)
		}
		if deductions.GreaterThan(gross) {
			return pkgerrors.New(pkgerrors.CodeValidation, "deductions exceed gross earnings").
				WithDetails(map[string]any{"gross_amount": gross, "deductions": deductions})
		}

		payment = &models.VendorPayment{
			ID:          uuid.New(),
			VendorID:    vendorID,
			PeriodFrom:  from,
			PeriodTo:    to,
			GrossAmount: gross,
			Commission:  commission,
			Deductions:  deductions,
			NetAmount:   gross.Sub(deductions),
			ItemCount:   len(items),
			Status:      enums.PayoutStatusPending,
		}
		if err := s.repo.Create(ctx, tx, payment); err != nil {
			return err
		}
		if err := s.repo.LinkItems(ctx, tx, payment.ID, itemIDs); err != nil {
			return err
		}

		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventVendorPayoutBatch,
			AggregateType: enums.AggregateVendorPayment,
			AggregateID:   payment.ID,
			Actor:         &outbox.ActorRef{System: "settlement"},
			Data: payloads.VendorPayoutBatchEvent{
				VendorPaymentID: payment.ID,
				VendorID:        vendorID,
				PeriodFrom:      from,
				PeriodTo:        to,
				NetAmount:       payment.NetAmount,
				ItemCount:       payment.ItemCount,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(ctx, "settlement batch created")
	return payment, nil
}

// Get returns a payout batch by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.VendorPayment, error) {
	return s.repo.FindByID(ctx, id)
}

// ListForVendor returns the vendor's most recent payout batches.
func (s *Service) ListForVendor(ctx context.Context, vendorID uuid.UUID, limit int) ([]models.VendorPayment, error) {
	return s.repo.ListByVendor(ctx, vendorID, limit)
}

// MarkProcessing records that the payout transfer has been initiated.
func (s *Service) MarkProcessing(ctx context.Context, id uuid.UUID) (*models.VendorPayment, error) {
	return s.transition(ctx, id, enums.PayoutStatusProcessing)
}

// MarkPaid records a completed transfer. The vendor's pending balance is
// reduced by the batch gross, mirroring what delivery credited per item.
func (s *Service) MarkPaid(ctx context.Context, id uuid.UUID) (*models.VendorPayment, error) {
	return s.transition(ctx, id, enums.PayoutStatusPaid)
}

// MarkFailed records a failed transfer attempt. A failed batch may be moved
// back to processing for a retry.
func (s *Service) MarkFailed(ctx context.Context, id uuid.UUID) (*models.VendorPayment, error) {
	return s.transition(ctx, id, enums.PayoutStatusFailed)
}

// payoutTransitions maps each non-terminal status to the statuses it may
// move to. Paid is terminal: a settled batch never changes again.
var payoutTransitions = map[enums.PayoutStatus][]enums.PayoutStatus{
	enums.PayoutStatusPending:    {enums.PayoutStatusProcessing, enums.PayoutStatusPaid, enums.PayoutStatusFailed},
	enums.PayoutStatusProcessing: {enums.PayoutStatusPaid, enums.PayoutStatusFailed},
	enums.PayoutStatusFailed:     {enums.PayoutStatusProcessing},
}

func payoutTransitionAllowed(from, to enums.PayoutStatus) bool {
	for _, candidate := range payoutTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, to enums.PayoutStatus) (*models.VendorPayment, error) {
	var payment *models.VendorPayment
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		ctx = s.logg.WithVendorID(ctx, current.VendorID.String())

		if current.Status == to {
			payment = current
			return nil
		}
		if current.Status == enums.PayoutStatusPaid {
			return pkgerrors.New(pkgerrors.CodeAlreadySettled, "payout batch already settled").
				WithDetails(map[string]any{"vendor_payment_id": id})
		}
		if !payoutTransitionAllowed(current.Status, to) {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "payout status change not permitted").
				WithDetails(map[string]any{"from": current.Status, "to": to})
		}

		updates := map[string]any{"status": to}
		var paidAt *time.Time
		if to == enums.PayoutStatusPaid {
			now := time.Now().UTC()
			paidAt = &now
			updates["paid_at"] = now
		}
		res := tx.WithContext(ctx).Model(&models.VendorPayment{}).
			Where("id = ? AND status = ?", id, current.Status).
			Updates(updates)
		if res.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "update payout status")
		}
		if res.RowsAffected == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payout batch changed concurrently")
		}

		if to == enums.PayoutStatusPaid {
			if err := s.settleVendorBalance(ctx, tx, current); err != nil {
				return err
			}
			err := s.events.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventVendorPayoutSettle,
				AggregateType: enums.AggregateVendorPayment,
				AggregateID:   id,
				Actor:         &outbox.ActorRef{System: "settlement"},
				Data: payloads.VendorPayoutSettledEvent{
					VendorPaymentID: id,
					VendorID:        current.VendorID,
					Status:          to,
					PaidAt:          paidAt,
				},
			})
			if err != nil {
				return err
			}
		}

		current.Status = to
		current.PaidAt = paidAt
		payment = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// settleVendorBalance releases the batch gross from the vendor's pending
// balance. Delivery credited vendorEarning per item, so gross is the exact
// amount to release regardless of deductions.
func (s *Service) settleVendorBalance(ctx context.Context, tx *gorm.DB, payment *models.VendorPayment) error {
	res := tx.WithContext(ctx).Model(&models.Vendor{}).
		Where("id = ?", payment.VendorID).
		Update("pending_payment", gorm.Expr("pending_payment - ?", payment.GrossAmount))
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "release vendor pending balance")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "vendor not found").
			WithDetails(map[string]any{"vendor_id": payment.VendorID})
	}
	return nil
}

// UnsettledVendors exposes the sweep input for the periodic settlement job.
func (s *Service) UnsettledVendors(ctx context.Context, deliveredBefore time.Time) ([]uuid.UUID, error) {
	return s.repo.VendorsWithUnsettledDeliveries(ctx, deliveredBefore)
}
