package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arjunmehra/bazaarcart-backend/pkg/enums"
)

// Coupon is a promotional code evaluated against a cart subtotal. UsedCount
// only increases, and only when an order actually commits with the coupon;
// validation-only calls never touch it.
type Coupon struct {
	ID            uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code          string             `gorm:"column:code;not null;uniqueIndex:ux_coupons_code"`
	DiscountType  enums.DiscountType `gorm:"column:discount_type;type:text;not null"`
	DiscountValue decimal.Decimal    `gorm:"column:discount_value;type:numeric(12,2);not null"`
	MinOrderValue decimal.Decimal    `gorm:"column:min_order_value;type:numeric(12,2);not null;default:0"`
	MaxDiscount   *decimal.Decimal   `gorm:"column:max_discount;type:numeric(12,2)"`
	ValidFrom     time.Time          `gorm:"column:valid_from;not null"`
	ValidUntil    time.Time          `gorm:"column:valid_until;not null"`
	UsageLimit    *int               `gorm:"column:usage_limit"`
	UsedCount     int                `gorm:"column:used_count;not null;default:0"`
	IsActive      bool               `gorm:"column:is_active;not null;default:true"`
	CreatedAt     time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
