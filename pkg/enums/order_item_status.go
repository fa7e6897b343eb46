package enums

import "fmt"

// OrderItemStatus tracks an item's independent fulfillment lifecycle.
type OrderItemStatus string

const (
	OrderItemStatusPending       OrderItemStatus = "pending"
	OrderItemStatusConfirmed     OrderItemStatus = "confirmed"
	OrderItemStatusPackaging     OrderItemStatus = "packaging"
	OrderItemStatusReadyToPickup OrderItemStatus = "ready_to_pickup"
	OrderItemStatusPickedUp      OrderItemStatus = "picked_up"
	OrderItemStatusInTransit     OrderItemStatus = "in_transit"
	OrderItemStatusDelivered     OrderItemStatus = "delivered"
	OrderItemStatusCancelled     OrderItemStatus = "cancelled"
	OrderItemStatusRTO           OrderItemStatus = "rto"
	OrderItemStatusLost          OrderItemStatus = "lost"
)

var validOrderItemStatuses = []OrderItemStatus{
	OrderItemStatusPending,
	OrderItemStatusConfirmed,
	OrderItemStatusPackaging,
	OrderItemStatusReadyToPickup,
	OrderItemStatusPickedUp,
	OrderItemStatusInTransit,
	OrderItemStatusDelivered,
	OrderItemStatusCancelled,
	OrderItemStatusRTO,
	OrderItemStatusLost,
}

// String implements fmt.Stringer.
func (o OrderItemStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderItemStatus.
func (o OrderItemStatus) IsValid() bool {
	for _, candidate := range validOrderItemStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are permitted.
func (o OrderItemStatus) IsTerminal() bool {
	switch o {
	case OrderItemStatusDelivered, OrderItemStatusCancelled, OrderItemStatusRTO, OrderItemStatusLost:
		return true
	default:
		return false
	}
}

// ParseOrderItemStatus converts raw input into an OrderItemStatus.
func ParseOrderItemStatus(value string) (OrderItemStatus, error) {
	for _, candidate := range validOrderItemStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order item status %q", value)
}
