package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arjunmehra/bazaarcart-backend/pkg/db/models"
	pkgerrors "github.com/arjunmehra/bazaarcart-backend/pkg/errors"
)

// Repository reads vendor and product state for checkout. All lookups refuse
// inactive records; a delisted product cannot enter a new order.
type Repository interface {
	FindProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error)
	FindVendor(ctx context.Context, vendorID uuid.UUID) (*models.Vendor, error)
	WithTx(tx *gorm.DB) Repository
}

type gormRepository struct {
	conn *gorm.DB
}

func NewRepository(conn *gorm.DB) Repository {
	return &gormRepository{conn: conn}
}

func (r *gormRepository) WithTx(tx *gorm.DB) Repository {
	return &gormRepository{conn: tx}
}

func (r *gormRepository) FindProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.conn.WithContext(ctx).
		Preload("Variants").
		Where("id = ? AND is_active = ?", productID, true).
		First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
				WithDetails(map[string]any{"product_id": productID.String()})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load product")
	}
	return &product, nil
}

func (r *gormRepository) FindVendor(ctx context.Context, vendorID uuid.UUID) (*models.Vendor, error) {
	var vendor models.Vendor
	err := r.conn.WithContext(ctx).
		Where("id = ? AND is_active = ?", vendorID, true).
		First(&vendor).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vendor not found").
				WithDetails(map[string]any{"vendor_id": vendorID.String()})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load vendor")
	}
	return &vendor, nil
}
