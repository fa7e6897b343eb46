package models

import (
	"time"

	"github.com/google/uuid"
)

// CartItem is a customer's staged line before checkout. The order builder
// clears the customer's cart after the order commits.
type CartItem struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID uuid.UUID `gorm:"column:customer_id;type:uuid;not null;index:ix_cart_items_customer_id"`
	ProductID  uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	Size       string    `gorm:"column:size;not null"`
	Color      string    `gorm:"column:color;not null"`
	Quantity   int       `gorm:"column:quantity;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
