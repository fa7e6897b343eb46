package coupons

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arjunmehra/bazaarcart-backend/pkg/db/models"
	pkgerrors "github.com/arjunmehra/bazaarcart-backend/pkg/errors"
)

type Repository interface {
	FindByCode(ctx context.Context, code string) (*models.Coupon, error)
	// Consume increments the coupon's used count, guarded against the usage
	// limit at the database so concurrent redemptions cannot overshoot.
	Consume(ctx context.Context, couponID uuid.UUID) error
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

func (r *gormRepository) FindByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := r.conn.WithContext(ctx).
		Where("code = ?", strings.ToUpper(strings.TrimSpace(code))).
		First(&coupon).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load coupon")
	}
	return &coupon, nil
}

func (r *gormRepository) Consume(ctx context.Context, couponID uuid.UUID) error {
	res := r.conn.WithContext(ctx).Model(&models.Coupon{}).
		Where("id = ? AND is_active = ? AND (usage_limit IS NULL OR used_count < usage_limit)", couponID, true).
		UpdateColumn("used_count", gorm.Expr("used_count + 1"))
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "failed to consume coupon")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeUsageExceeded, "coupon usage limit reached")
	}
	return nil
}
