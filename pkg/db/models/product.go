package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is the canonical vendor listing. Order items snapshot its pricing
// at checkout; later edits never alter placed orders.
type Product struct {
	ID                 uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorID           uuid.UUID        `gorm:"column:vendor_id;type:uuid;not null"`
	Name               string           `gorm:"column:name;not null"`
	Image              string           `gorm:"column:image"`
	MRP                decimal.Decimal  `gorm:"column:mrp;type:numeric(12,2);not null"`
	SellingPrice       decimal.Decimal  `gorm:"column:selling_price;type:numeric(12,2);not null"`
	VendorDiscountPct  decimal.Decimal  `gorm:"column:vendor_discount_pct;type:numeric(5,2);not null;default:0"`
	WebsiteDiscountPct decimal.Decimal  `gorm:"column:website_discount_pct;type:numeric(5,2);not null;default:0"`
	IsActive           bool             `gorm:"column:is_active;not null;default:true"`
	Variants           []ProductVariant `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt          time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// ProductVariant is one size/color combination with its own stock counter.
// StockQuantity is only ever decremented through the inventory ledger's
// conditional update, never by a direct write.
type ProductVariant struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID     uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:ux_variants_product_size_color"`
	Size          string    `gorm:"column:size;not null;uniqueIndex:ux_variants_product_size_color"`
	Color         string    `gorm:"column:color;not null;uniqueIndex:ux_variants_product_size_color"`
	SKU           string    `gorm:"column:sku;not null"`
	StockQuantity int       `gorm:"column:stock_quantity;not null;default:0"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
