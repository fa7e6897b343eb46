package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arjunmehra/bazaarcart-backend/pkg/enums"
)

// OrderCreatedEvent signals a newly placed order.
type OrderCreatedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	OrderNumber   string              `json:"order_number"`
	CustomerID    uuid.UUID           `json:"customer_id"`
	Total         decimal.Decimal     `json:"total"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	VendorIDs     []uuid.UUID         `json:"vendor_ids"`
}

// OrderPaidEvent is emitted when a gateway payment verifies.
type OrderPaidEvent struct {
	OrderID          uuid.UUID `json:"order_id"`
	OrderNumber      string    `json:"order_number"`
	GatewayOrderID   string    `json:"gateway_order_id"`
	GatewayPaymentID string    `json:"gateway_payment_id"`
}

// OrderCancelledEvent is emitted whenever a customer cancels a pre-shipment order.
type OrderCancelledEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	CustomerID  uuid.UUID `json:"customer_id"`
	CancelledAt time.Time `json:"cancelled_at"`
	Reason      string    `json:"reason,omitempty"`
}

// ItemStatusChangedEvent surfaces per-item fulfillment progress.
type ItemStatusChangedEvent struct {
	OrderItemID uuid.UUID             `json:"order_item_id"`
	OrderID     uuid.UUID             `json:"order_id"`
	VendorID    uuid.UUID             `json:"vendor_id"`
	From        enums.OrderItemStatus `json:"from"`
	To          enums.OrderItemStatus `json:"to"`
	TrackingID  string                `json:"tracking_id,omitempty"`
}

// ItemDeliveredEvent fires exactly once per item, when its vendor counters
// are credited.
type ItemDeliveredEvent struct {
	OrderItemID   uuid.UUID       `json:"order_item_id"`
	OrderID       uuid.UUID       `json:"order_id"`
	VendorID      uuid.UUID       `json:"vendor_id"`
	VendorEarning decimal.Decimal `json:"vendor_earning"`
	DeliveredAt   time.Time       `json:"delivered_at"`
}

// VendorPayoutBatchEvent signals a settlement batch drafted for a vendor.
type VendorPayoutBatchEvent struct {
	VendorPaymentID uuid.UUID       `json:"vendor_payment_id"`
	VendorID        uuid.UUID       `json:"vendor_id"`
	PeriodFrom      time.Time       `json:"period_from"`
	PeriodTo        time.Time       `json:"period_to"`
	NetAmount       decimal.Decimal `json:"net_amount"`
	ItemCount       int             `json:"item_count"`
}

// VendorPayoutSettledEvent signals a payout batch reaching a terminal status.
type VendorPayoutSettledEvent struct {
	VendorPaymentID uuid.UUID          `json:"vendor_payment_id"`
	VendorID        uuid.UUID          `json:"vendor_id"`
	Status          enums.PayoutStatus `json:"status"`
	PaidAt          *time.Time         `json:"paid_at,omitempty"`
}
