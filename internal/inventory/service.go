package inventory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arjunmehra/bazaarcart-backend/pkg/db/models"
	pkgerrors "github.com/arjunmehra/bazaarcart-backend/pkg/errors"
)

// Line identifies one variant and the quantity to move.
type Line struct {
	ProductID uuid.UUID
	Size      string
	Color     string
	Quantity  int
}

// Service adjusts variant stock with conditional updates so stock can never
// go negative, regardless of how many checkouts race on the same variant.
type Service interface {
	Reserve(ctx context.Context, tx *gorm.DB, line Line) error
	Restore(ctx context.Context, tx *gorm.DB, line Line) error
}

type service struct{}

func NewService() Service {
	return &service{}
}

// Reserve decrements stock for one variant. The availability check and the
// decrement are a single UPDATE; zero rows affected means either an unknown
// variant or insufficient stock, and a follow-up lookup tells the two apart.
func (s *service) Reserve(ctx context.Context, tx *gorm.DB, line Line) error {
	if line.Quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "reserve quantity must be positive")
	}

	res := tx.WithContext(ctx).Model(&models.ProductVariant{}).
		Where("product_id = ? AND size = ? AND color = ? AND stock_quantity >= ?",
			line.ProductID, line.Size, line.Color, line.Quantity).
		UpdateColumn("stock_quantity", gorm.Expr("stock_quantity - ?", line.Quantity))
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "failed to reserve stock")
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var variant models.ProductVariant
	err := tx.WithContext(ctx).
		Where("product_id = ? AND size = ? AND color = ?", line.ProductID, line.Size, line.Color).
		First(&variant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product variant not found").
				WithDetails(lineDetails(line))
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to inspect variant stock")
	}
	return pkgerrors.New(pkgerrors.CodeOutOfStock, "insufficient stock for variant").
		WithDetails(map[string]any{
			"product_id": line.ProductID.String(),
			"size":       line.Size,
			"color":      line.Color,
			"requested":  line.Quantity,
			"available":  variant.StockQuantity,
		})
}

// Restore returns previously reserved stock, e.g. on cancellation or RTO.
func (s *service) Restore(ctx context.Context, tx *gorm.DB, line Line) error {
	if line.Quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "restore quantity must be positive")
	}

	res := tx.WithContext(ctx).Model(&models.ProductVariant{}).
		Where("product_id = ? AND size = ? AND color = ?", line.ProductID, line.Size, line.Color).
		UpdateColumn("stock_quantity", gorm.Expr("stock_quantity + ?", line.Quantity))
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "failed to restore stock")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product variant not found").
			WithDetails(lineDetails(line))
	}
	return nil
}

func lineDetails(line Line) map[string]any {
	return map[string]any{
		"product_id": line.ProductID.String(),
		"size":       line.Size,
		"color":      line.Color,
	}
}
