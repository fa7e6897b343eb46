package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/arjunmehra/bazaarcart-backend/api/responses"
	"github.com/arjunmehra/bazaarcart-backend/api/validators"
	internalorders "github.com/arjunmehra/bazaarcart-backend/internal/orders"
	"github.com/arjunmehra/bazaarcart-backend/pkg/db/models"
	"github.com/arjunmehra/bazaarcart-backend/pkg/enums"
	pkgerrors "github.com/arjunmehra/bazaarcart-backend/pkg/errors"
	"github.com/arjunmehra/bazaarcart-backend/pkg/logger"
	"github.com/arjunmehra/bazaarcart-backend/pkg/types"
)

// OrdersService is the slice of the order service the controllers consume.
type OrdersService interface {
	CreateOrder(ctx context.Context, in internalorders.CreateOrderInput) (*internalorders.CreateOrderResult, error)
	GetByNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	ListForCustomer(ctx context.Context, customerID uuid.UUID) ([]models.Order, error)
	Cancel(ctx context.Context, orderID uuid.UUID, reason string) (*models.Order, error)
	TransitionItem(ctx context.Context, in internalorders.TransitionInput) (*models.OrderItem, error)
}

type createOrderRequest struct {
	CustomerID      uuid.UUID                  `json:"customer_id" validate:"required"`
	Lines           []internalorders.CartLine  `json:"lines" validate:"omitempty,dive"`
	ShippingAddress types.Address              `json:"shipping_address" validate:"required"`
	BillingAddress  *types.Address             `json:"billing_address"`
	PaymentMethod   string                     `json:"payment_method" validate:"required"`
	CouponCode      string                     `json:"coupon_code"`
}

type createOrderResponse struct {
	Order          *models.Order         `json:"order"`
	Totals         internalorders.Totals `json:"totals"`
	GatewayOrderID string                `json:"gateway_order_id,omitempty"`
}

// CreateOrder places an order from explicit lines or the customer's saved cart.
func CreateOrder(svc OrdersService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		var req createOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		method, err := enums.ParsePaymentMethod(req.PaymentMethod)
		if err != nil {
			responses.WriteError(ctx, logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown payment method"))
			return
		}

		result, err := svc.CreateOrder(ctx, internalorders.CreateOrderInput{
			CustomerID:      req.CustomerID,
			Lines:           req.Lines,
			ShippingAddress: req.ShippingAddress,
			BillingAddress:  req.BillingAddress,
			PaymentMethod:   method,
			CouponCode:      req.CouponCode,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, createOrderResponse{
			Order:          result.Order,
			Totals:         result.Totals,
			GatewayOrderID: result.GatewayOrderID,
		})
	}
}

// GetOrder returns a single order aggregate by its public number.
func GetOrder(svc OrdersService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		orderNumber := strings.TrimSpace(chi.URLParam(r, "orderNumber"))
		if orderNumber == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "order number is required"))
			return
		}

		order, err := svc.GetByNumber(ctx, orderNumber)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// ListOrders returns the customer's orders, newest first.
func ListOrders(svc OrdersService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		customerID, err := uuid.Parse(strings.TrimSpace(r.URL.Query().Get("customer_id")))
		if err != nil {
			responses.WriteError(ctx, logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid customer id"))
			return
		}

		list, err := svc.ListForCustomer(ctx, customerID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

type cancelOrderRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// CancelOrder cancels a pre-shipment order and restores its stock.
func CancelOrder(svc OrdersService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		orderNumber := strings.TrimSpace(chi.URLParam(r, "orderNumber"))
		if orderNumber == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "order number is required"))
			return
		}

		var req cancelOrderRequest
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &req); err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
		}

		order, err := svc.GetByNumber(ctx, orderNumber)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		cancelled, err := svc.Cancel(ctx, order.ID, req.Reason)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, cancelled)
	}
}

type transitionItemRequest struct {
	Status     string `json:"status" validate:"required"`
	TrackingID string `json:"tracking_id"`
}

// TransitionItem advances one item through its fulfillment chain.
func TransitionItem(svc OrdersService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		itemID, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "itemID")))
		if err != nil {
			responses.WriteError(ctx, logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid item id"))
			return
		}

		var req transitionItemRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		status, err := enums.ParseOrderItemStatus(req.Status)
		if err != nil {
			responses.WriteError(ctx, logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown item status"))
			return
		}

		item, err := svc.TransitionItem(ctx, internalorders.TransitionInput{
			ItemID:     itemID,
			To:         status,
			TrackingID: req.TrackingID,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}
