package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arjunmehra/bazaarcart-backend/pkg/enums"
)

// VendorPayment is a settlement batch aggregating a vendor's delivered items
// over a period. Created only by the settlement aggregator; immutable once
// paid. The actual bank transfer happens outside this system, which only
// records the result.
type VendorPayment struct {
	ID          uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorID    uuid.UUID          `gorm:"column:vendor_id;type:uuid;not null;index:ix_vendor_payments_vendor_id"`
	PeriodFrom  time.Time          `gorm:"column:period_from;not null"`
	PeriodTo    time.Time          `gorm:"column:period_to;not null"`
	GrossAmount decimal.Decimal    `gorm:"column:gross_amount;type:numeric(14,2);not null"`
	Commission  decimal.Decimal    `gorm:"column:commission;type:numeric(14,2);not null"`
	Deductions  decimal.Decimal    `gorm:"column:deductions;type:numeric(14,2);not null;default:0"`
	NetAmount   decimal.Decimal    `gorm:"column:net_amount;type:numeric(14,2);not null"`
	ItemCount   int                `gorm:"column:item_count;not null"`
	Status      enums.PayoutStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	PaidAt      *time.Time         `gorm:"column:paid_at"`
	Items       []OrderItem        `gorm:"foreignKey:VendorPaymentID"`
	CreatedAt   time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
