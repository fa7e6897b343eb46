package orders

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arjunmehra/bazaarcart-backend/pkg/db/models"
	"github.com/arjunmehra/bazaarcart-backend/pkg/enums"
	"github.com/arjunmehra/bazaarcart-backend/pkg/types"
)

// CartLine is one requested variant, already validated for shape by the API
// layer.
type CartLine struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Size      string    `json:"size" validate:"required"`
	Color     string    `json:"color" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gt=0"`
}

// CreateOrderInput drives the order build. When Lines is empty the service
// pulls the customer's saved cart instead.
type CreateOrderInput struct {
	CustomerID      uuid.UUID
	Lines           []CartLine
	ShippingAddress types.Address
	BillingAddress  *types.Address
	PaymentMethod   enums.PaymentMethod
	CouponCode      string
}

// CreateOrderResult reports the persisted order, its charge breakdown, and
// the gateway reference the customer pays against when the payment method
// needs one.
type CreateOrderResult struct {
	Order          *models.Order
	Totals         Totals
	GatewayOrderID string
}

// TransitionInput mutates a single order item's fulfillment state.
type TransitionInput struct {
	ItemID     uuid.UUID
	To         enums.OrderItemStatus
	TrackingID string
}

// Totals breaks down an order's charge composition.
type Totals struct {
	Subtotal        decimal.Decimal `json:"subtotal"`
	ShippingCharges decimal.Decimal `json:"shipping_charges"`
	CouponDiscount  decimal.Decimal `json:"coupon_discount"`
	Total           decimal.Decimal `json:"total"`
}
