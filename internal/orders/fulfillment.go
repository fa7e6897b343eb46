package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arjunmehra/bazaarcart-backend/pkg/db/models"
	"github.com/arjunmehra/bazaarcart-backend/pkg/enums"
	pkgerrors "github.com/arjunmehra/bazaarcart-backend/pkg/errors"
	"github.com/arjunmehra/bazaarcart-backend/pkg/outbox"
	"github.com/arjunmehra/bazaarcart-backend/pkg/outbox/payloads"
)

// itemTransitions is the forward fulfillment chain. Cancellation and
// carrier exceptions (rto, lost) are handled separately: cancelled is only
// reachable before pickup, rto/lost from any non-terminal state.
var itemTransitions = map[enums.OrderItemStatus]enums.OrderItemStatus{
	enums.OrderItemStatusPending:       enums.OrderItemStatusConfirmed,
	enums.OrderItemStatusConfirmed:     enums.OrderItemStatusPackaging,
	enums.OrderItemStatusPackaging:     enums.OrderItemStatusReadyToPickup,
	enums.OrderItemStatusReadyToPickup: enums.OrderItemStatusPickedUp,
	enums.OrderItemStatusPickedUp:      enums.OrderItemStatusInTransit,
	enums.OrderItemStatusInTransit:     enums.OrderItemStatusDelivered,
}

// cancellableItemStates are the pre-shipment states a customer cancellation
// may reach an item in.
var cancellableItemStates = map[enums.OrderItemStatus]bool{
	enums.OrderItemStatusPending:       true,
	enums.OrderItemStatusConfirmed:     true,
	enums.OrderItemStatusPackaging:     true,
	enums.OrderItemStatusReadyToPickup: true,
}

func transitionAllowed(from, to enums.OrderItemStatus) bool {
	switch to {
	case enums.OrderItemStatusCancelled:
		return cancellableItemStates[from]
	case enums.OrderItemStatusRTO, enums.OrderItemStatusLost:
		return !from.IsTerminal()
	default:
		return itemTransitions[from] == to
	}
}

// TransitionItem applies one fulfillment state change to an order item and
// recomputes the order's derived status from the full, fresh item list.
//
// Repeating the current status is a no-op, which keeps carrier webhook
// retries harmless. The delivered transition additionally credits the
// vendor's counters; the guarded UPDATE on the item row makes that credit
// fire exactly once no matter how many delivery callbacks arrive.
func (s *Service) TransitionItem(ctx context.Context, in TransitionInput) (*models.OrderItem, error) {
	if !in.To.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order item status")
	}

	var updated *models.OrderItem
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		item, err := repo.FindItem(ctx, in.ItemID)
		if err != nil {
			return err
		}

		if item.Status == in.To {
			updated = item
			return nil
		}
		if !transitionAllowed(item.Status, in.To) {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "illegal fulfillment transition").
				WithDetails(map[string]any{
					"from": item.Status.String(),
					"to":   in.To.String(),
				})
		}

		from := item.Status
		updates := map[string]any{"status": in.To}
		if in.TrackingID != "" {
			updates["tracking_id"] = in.TrackingID
		}
		var deliveredAt time.Time
		if in.To == enums.OrderItemStatusDelivered {
			deliveredAt = time.Now()
			updates["delivered_at"] = deliveredAt
		}

		res := tx.WithContext(ctx).Model(&models.OrderItem{}).
			Where("id = ? AND status = ?", item.ID, from).
			Updates(updates)
		if res.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "failed to update item status")
		}
		if res.RowsAffected == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order item changed concurrently")
		}

		item.Status = in.To
		if in.TrackingID != "" {
			item.TrackingID = &in.TrackingID
		}

		if in.To == enums.OrderItemStatusDelivered {
			item.DeliveredAt = &deliveredAt
			if err := s.creditVendor(ctx, tx, item); err != nil {
				return err
			}
			if err := s.events.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventItemDelivered,
				AggregateType: enums.AggregateOrderItem,
				AggregateID:   item.ID,
				Version:       1,
				Data: payloads.ItemDeliveredEvent{
					OrderItemID:   item.ID,
					OrderID:       item.OrderID,
					VendorID:      item.VendorID,
					VendorEarning: item.VendorEarning,
					DeliveredAt:   deliveredAt,
				},
			}); err != nil {
				return err
			}
		}

		if err := s.recomputeOrderStatus(ctx, tx, item.OrderID); err != nil {
			return err
		}

		if err := s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventItemStatusChanged,
			AggregateType: enums.AggregateOrderItem,
			AggregateID:   item.ID,
			Version:       1,
			Data: payloads.ItemStatusChangedEvent{
				OrderItemID: item.ID,
				OrderID:     item.OrderID,
				VendorID:    item.VendorID,
				From:        from,
				To:          in.To,
				TrackingID:  in.TrackingID,
			},
		}); err != nil {
			return err
		}

		updated = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// creditVendor advances the vendor's lifetime counters for a delivered item.
// Runs inside the delivered transition's transaction, after the guarded item
// update already established this is the item's first arrival in delivered.
func (s *Service) creditVendor(ctx context.Context, tx *gorm.DB, item *models.OrderItem) error {
	res := tx.WithContext(ctx).Model(&models.Vendor{}).
		Where("id = ?", item.VendorID).
		Updates(map[string]any{
			"total_orders":    gorm.Expr("total_orders + 1"),
			"total_revenue":   gorm.Expr("total_revenue + ?", item.VendorEarning),
			"pending_payment": gorm.Expr("pending_payment + ?", item.VendorEarning),
		})
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "failed to credit vendor")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "vendor not found for delivered item")
	}
	return nil
}

// recomputeOrderStatus derives the order-level status from the latest item
// list: all delivered wins, any item in carrier hands means shipped,
// otherwise the creation/payment-time status stands.
func (s *Service) recomputeOrderStatus(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error {
	items, err := s.repo.WithTx(tx).ItemStatuses(ctx, orderID)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}

	allDelivered := true
	anyShipped := false
	for _, item := range items {
		if item.Status != enums.OrderItemStatusDelivered {
			allDelivered = false
		}
		if item.Status == enums.OrderItemStatusPickedUp || item.Status == enums.OrderItemStatusInTransit {
			anyShipped = true
		}
	}

	var derived enums.OrderStatus
	switch {
	case allDelivered:
		derived = enums.OrderStatusDelivered
	case anyShipped:
		derived = enums.OrderStatusShipped
	default:
		return nil
	}

	err = tx.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", orderID).
		UpdateColumn("status", derived).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to update derived order status")
	}
	return nil
}
