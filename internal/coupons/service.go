package coupons

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/arjunmehra/bazaarcart-backend/pkg/db/models"
	"github.com/arjunmehra/bazaarcart-backend/pkg/enums"
	pkgerrors "github.com/arjunmehra/bazaarcart-backend/pkg/errors"
)

var hundred = decimal.NewFromInt(100)

// Quote is the outcome of evaluating a coupon against an order subtotal.
type Quote struct {
	Coupon   *models.Coupon
	Discount decimal.Decimal
}

type Service interface {
	// Evaluate checks the coupon against the subtotal at the given instant
	// and returns the discount it would grant. It does not consume a use.
	Evaluate(ctx context.Context, code string, subtotal decimal.Decimal, now time.Time) (*Quote, error)
	// Consume records a redemption inside the caller's transaction.
	Consume(ctx context.Context, tx *gorm.DB, coupon *models.Coupon) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Evaluate(ctx context.Context, code string, subtotal decimal.Decimal, now time.Time) (*Quote, error) {
	coupon, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if !coupon.IsActive || now.Before(coupon.ValidFrom) || now.After(coupon.ValidUntil) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon is not currently valid")
	}
	if coupon.UsageLimit != nil && coupon.UsedCount >= *coupon.UsageLimit {
		return nil, pkgerrors.New(pkgerrors.CodeUsageExceeded, "coupon usage limit reached")
	}
	if subtotal.LessThan(coupon.MinOrderValue) {
		return nil, pkgerrors.New(pkgerrors.CodeBelowMinimum, "order subtotal below coupon minimum").
			WithDetails(map[string]any{
				"min_order_value": coupon.MinOrderValue.String(),
				"subtotal":        subtotal.String(),
			})
	}

	return &Quote{Coupon: coupon, Discount: discountFor(coupon, subtotal)}, nil
}

func (s *service) Consume(ctx context.Context, tx *gorm.DB, coupon *models.Coupon) error {
	return s.repo.WithTx(tx).Consume(ctx, coupon.ID)
}

// discountFor computes the granted discount: a percentage of the subtotal
// capped at MaxDiscount, or the flat value capped at the subtotal itself so a
// coupon never pushes the total negative.
func discountFor(coupon *models.Coupon, subtotal decimal.Decimal) decimal.Decimal {
	var discount decimal.Decimal
	switch coupon.DiscountType {
	case enums.DiscountTypePercentage:
		discount = subtotal.Mul(coupon.DiscountValue).Div(hundred)
		if coupon.MaxDiscount != nil && discount.GreaterThan(*coupon.MaxDiscount) {
			discount = *coupon.MaxDiscount
		}
	case enums.DiscountTypeFixed:
		discount = coupon.DiscountValue
	}
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	return discount.Round(2)
}
