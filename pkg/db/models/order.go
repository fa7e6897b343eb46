package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arjunmehra/bazaarcart-backend/pkg/enums"
	"github.com/arjunmehra/bazaarcart-backend/pkg/types"
)

// Order is the multi-vendor order aggregate created once at checkout.
// Monetary totals are fixed at creation and never recomputed; only statuses
// and payment/tracking fields mutate afterward.
type Order struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber     string              `gorm:"column:order_number;not null;uniqueIndex:ux_orders_order_number"`
	CustomerID      uuid.UUID           `gorm:"column:customer_id;type:uuid;not null"`
	ShippingAddress types.Address       `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	BillingAddress  types.Address       `gorm:"column:billing_address;type:jsonb;serializer:json"`
	Subtotal        decimal.Decimal     `gorm:"column:subtotal;type:numeric(12,2);not null"`
	ShippingCharges decimal.Decimal     `gorm:"column:shipping_charges;type:numeric(12,2);not null;default:0"`
	CouponCode      *string             `gorm:"column:coupon_code"`
	CouponDiscount  decimal.Decimal     `gorm:"column:coupon_discount;type:numeric(12,2);not null;default:0"`
	Total           decimal.Decimal     `gorm:"column:total;type:numeric(12,2);not null"`
	PaymentMethod   enums.PaymentMethod `gorm:"column:payment_method;type:text;not null;default:'cod'"`
	PaymentStatus   enums.PaymentStatus `gorm:"column:payment_status;type:text;not null;default:'pending'"`
	Status          enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'pending'"`
	GatewayOrderID  *string             `gorm:"column:gateway_order_id;index:ix_orders_gateway_order_id"`
	GatewayPayment  *string             `gorm:"column:gateway_payment_id"`
	Items           []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CancelledAt     *time.Time          `gorm:"column:cancelled_at"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderItem is one line within an order, a denormalized snapshot of the
// product and commission data at order time, tracked through its own
// fulfillment lifecycle.
type OrderItem struct {
	ID                 uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID            uuid.UUID             `gorm:"column:order_id;type:uuid;not null"`
	ProductID          uuid.UUID             `gorm:"column:product_id;type:uuid;not null"`
	VendorID           uuid.UUID             `gorm:"column:vendor_id;type:uuid;not null;index:ix_order_items_vendor_id"`
	Name               string                `gorm:"column:name;not null"`
	Image              string                `gorm:"column:image"`
	Size               string                `gorm:"column:size;not null"`
	Color              string                `gorm:"column:color;not null"`
	MRP                decimal.Decimal       `gorm:"column:mrp;type:numeric(12,2);not null"`
	SellingPrice       decimal.Decimal       `gorm:"column:selling_price;type:numeric(12,2);not null"`
	VendorDiscountPct  decimal.Decimal       `gorm:"column:vendor_discount_pct;type:numeric(5,2);not null;default:0"`
	WebsiteDiscountPct decimal.Decimal       `gorm:"column:website_discount_pct;type:numeric(5,2);not null;default:0"`
	FinalPrice         decimal.Decimal       `gorm:"column:final_price;type:numeric(12,2);not null"`
	Quantity           int                   `gorm:"column:quantity;not null"`
	Commission         decimal.Decimal       `gorm:"column:commission;type:numeric(12,2);not null"`
	VendorEarning      decimal.Decimal       `gorm:"column:vendor_earning;type:numeric(12,2);not null"`
	Status             enums.OrderItemStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	TrackingID         *string               `gorm:"column:tracking_id"`
	DeliveredAt        *time.Time            `gorm:"column:delivered_at"`
	VendorPaymentID    *uuid.UUID            `gorm:"column:vendor_payment_id;type:uuid;index:ix_order_items_vendor_payment_id"`
	CreatedAt          time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
