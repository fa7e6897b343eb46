package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Vendor holds the platform commission rate charged on the vendor's sales and
// the aggregate counters advanced when items reach delivered state.
type Vendor struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name           string          `gorm:"column:name;not null"`
	Email          string          `gorm:"column:email;not null;uniqueIndex:ux_vendors_email"`
	CommissionPct  decimal.Decimal `gorm:"column:commission_pct;type:numeric(5,2);not null"`
	TotalOrders    int64           `gorm:"column:total_orders;not null;default:0"`
	TotalRevenue   decimal.Decimal `gorm:"column:total_revenue;type:numeric(14,2);not null;default:0"`
	PendingPayment decimal.Decimal `gorm:"column:pending_payment;type:numeric(14,2);not null;default:0"`
	IsActive       bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
