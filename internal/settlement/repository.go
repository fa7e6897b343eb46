package settlement

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arjunmehra/bazaarcart-backend/pkg/db/models"
	"github.com/arjunmehra/bazaarcart-backend/pkg/enums"
	pkgerrors "github.com/arjunmehra/bazaarcart-backend/pkg/errors"
)

// Repository persists vendor payout batches and the item links behind them.
type Repository interface {
	Create(ctx context.Context, tx *gorm.DB, payment *models.VendorPayment) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.VendorPayment, error)
	ListByVendor(ctx context.Context, vendorID uuid.UUID, limit int) ([]models.VendorPayment, error)
	EligibleItems(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID, from, to time.Time) ([]models.OrderItem, error)
	LinkItems(ctx context.Context, tx *gorm.DB, paymentID uuid.UUID, itemIDs []uuid.UUID) error
	VendorsWithUnsettledDeliveries(ctx context.Context, deliveredBefore time.Time) ([]uuid.UUID, error)
	WithTx(tx *gorm.DB) Repository
}

type gormRepository struct {
	conn *gorm.DB
}

// NewRepository builds the gorm-backed settlement repository.
func NewRepository(conn *gorm.DB) Repository {
	return &gormRepository{conn: conn}
}

func (r *gormRepository) WithTx(tx *gorm.DB) Repository {
	return &gormRepository{conn: tx}
}

func (r *gormRepository) Create(ctx context.Context, tx *gorm.DB, payment *models.VendorPayment) error {
	if err := tx.WithContext(ctx).Create(payment).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create vendor payment")
	}
	return nil
}

func (r *gormRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.VendorPayment, error) {
	var payment models.VendorPayment
	err := r.conn.WithContext(ctx).First(&payment, "id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vendor payment not found").
				WithDetails(map[string]any{"vendor_payment_id": id})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find vendor payment")
	}
	return &payment, nil
}

func (r *gormRepository) ListByVendor(ctx context.Context, vendorID uuid.UUID, limit int) ([]models.VendorPayment, error) {
	if limit <= 0 {
		limit = 50
	}
	var payments []models.VendorPayment
	err := r.conn.WithContext(ctx).
		Where("vendor_id = ?", vendorID).
		Order("period_to DESC").
		Limit(limit).
		Find(&payments).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list vendor payments")
	}
	return payments, nil
}

// EligibleItems returns delivered items inside the period that no earlier
// batch has claimed. Runs inside the batch transaction so two concurrent
// sweeps cannot both pick up the same item.
func (r *gormRepository) EligibleItems(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID, from, to time.Time) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := tx.WithContext(ctx).
		Where("vendor_id = ?", vendorID).
		Where("status = ?", enums.OrderItemStatusDelivered).
		Where("delivered_at >= ? AND delivered_at < ?", from, to).
		Where("vendor_payment_id IS NULL").
		Order("delivered_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "select settleable items")
	}
	return items, nil
}

func (r *gormRepository) LinkItems(ctx context.Context, tx *gorm.DB, paymentID uuid.UUID, itemIDs []uuid.UUID) error {
	if len(itemIDs) == 0 {
		return nil
	}
	res := tx.WithContext(ctx).Model(&models.OrderItem{}).
		Where("id IN ?", itemIDs).
		Where("vendor_payment_id IS NULL").
		Update("vendor_payment_id", paymentID)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "link items to vendor payment")
	}
	if res.RowsAffected != int64(len(itemIDs)) {
		return pkgerrors.New(pkgerrors.CodeConflict, "items claimed by a concurrent settlement batch")
	}
	return nil
}

// VendorsWithUnsettledDeliveries lists vendors that have at least one
// delivered, unlinked item older than the cutoff. Feeds the periodic sweep.
func (r *gormRepository) VendorsWithUnsettledDeliveries(ctx context.Context, deliveredBefore time.Time) ([]uuid.UUID, error) {
	var vendorIDs []uuid.UUID
	err := r.conn.WithContext(ctx).Model(&models.OrderItem{}).
		Distinct("vendor_id").
		Where("status = ?", enums.OrderItemStatusDelivered).
		Where("delivered_at < ?", deliveredBefore).
		Where("vendor_payment_id IS NULL").
		Pluck("vendor_id", &vendorIDs).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list vendors with unsettled deliveries")
	}
	return vendorIDs, nil
}
