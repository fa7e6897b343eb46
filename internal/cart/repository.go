package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arjunmehra/bazaarcart-backend/pkg/db/models"
	pkgerrors "github.com/arjunmehra/bazaarcart-backend/pkg/errors"
)

type Repository interface {
	FindLines(ctx context.Context, customerID uuid.UUID) ([]models.CartItem, error)
	// Clear empties the customer's cart, normally after a successful checkout.
	Clear(ctx context.Context, tx *gorm.DB, customerID uuid.UUID) error
}

type gormRepository struct {
	conn *gorm.DB
}

func NewRepository(conn *gorm.DB) Repository {
	return &gormRepository{conn: conn}
}

func (r *gormRepository) FindLines(ctx context.Context, customerID uuid.UUID) ([]models.CartItem, error) {
	var lines []models.CartItem
	err := r.conn.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at ASC").
		Find(&lines).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load cart")
	}
	return lines, nil
}

func (r *gormRepository) Clear(ctx context.Context, tx *gorm.DB, customerID uuid.UUID) error {
	err := tx.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Delete(&models.CartItem{}).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to clear cart")
	}
	return nil
}
