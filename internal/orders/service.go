package orders

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/arjunmehra/bazaarcart-backend/internal/cart"
	"github.com/arjunmehra/bazaarcart-backend/internal/catalog"
	"github.com/arjunmehra/bazaarcart-backend/internal/coupons"
	"github.com/arjunmehra/bazaarcart-backend/internal/inventory"
	"github.com/arjunmehra/bazaarcart-backend/internal/pricing"
	"github.com/arjunmehra/bazaarcart-backend/pkg/config"
	dbpkg "github.com/arjunmehra/bazaarcart-backend/pkg/db"
	"github.com/arjunmehra/bazaarcart-backend/pkg/db/models"
	"github.com/arjunmehra/bazaarcart-backend/pkg/enums"
	pkgerrors "github.com/arjunmehra/bazaarcart-backend/pkg/errors"
	"github.com/arjunmehra/bazaarcart-backend/pkg/gateway"
	"github.com/arjunmehra/bazaarcart-backend/pkg/logger"
	"github.com/arjunmehra/bazaarcart-backend/pkg/outbox"
	"github.com/arjunmehra/bazaarcart-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
)

const orderNumberAttempts = 5

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type gatewayClient interface {
	CreateOrder(ctx context.Context, amount decimal.Decimal, receipt string) (*gateway.GatewayOrder, error)
}

type Service struct {
	db       *dbpkg.Client
	repo     Repository
	catalog  catalog.Repository
	cart     cart.Repository
	coupons  coupons.Service
	stock    inventory.Service
	events   eventEmitter
	gateway  gatewayClient
	shipping config.ShippingConfig
	logg     *logger.Logger
}

func NewService(
	db *dbpkg.Client,
	repo Repository,
	catalogRepo catalog.Repository,
	cartRepo cart.Repository,
	couponSvc coupons.Service,
	stock inventory.Service,
	events eventEmitter,
	gw gatewayClient,
	shipping config.ShippingConfig,
	logg *logger.Logger,
) *Service {
	return &Service{
		db:       db,
		repo:     repo,
		catalog:  catalogRepo,
		cart:     cartRepo,
		coupons:  couponSvc,
		stock:    stock,
		events:   events,
		gateway:  gw,
		shipping: shipping,
		logg:     logg,
	}
}

// CreateOrder builds and persists the whole order aggregate in one
// transaction: stock reservation for every line, snapshot pricing, shipping,
// best-effort coupon, and the outbox event. A failure on any line aborts the
// transaction, releasing every reservation taken for earlier lines.
func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (*CreateOrderResult, error) {
	if !in.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported payment method")
	}
	if in.ShippingAddress.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping address is required")
	}

	lines := in.Lines
	if len(lines) == 0 {
		cartLines, err := s.cart.FindLines(ctx, in.CustomerID)
		if err != nil {
			return nil, err
		}
		for _, cl := range cartLines {
			lines = append(lines, CartLine{
				ProductID: cl.ProductID,
				Size:      cl.Size,
				Color:     cl.Color,
				Quantity:  cl.Quantity,
			})
		}
	}
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	var order *models.Order
	err := s.withOrderNumberRetry(ctx, func(orderNumber string) error {
		return s.db.WithTx(ctx, func(tx *gorm.DB) error {
			built, err := s.buildOrder(ctx, tx, orderNumber, in, lines)
			if err != nil {
				return err
			}
			order = built
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	result := &CreateOrderResult{
		Order: order,
		Totals: Totals{
			Subtotal:        order.Subtotal,
			ShippingCharges: order.ShippingCharges,
			CouponDiscount:  order.CouponDiscount,
			Total:           order.Total,
		},
	}

	// The gateway call happens outside the transaction: a slow or failing
	// gateway must not hold row locks. The order stays pending until the
	// reference is stored.
	if in.PaymentMethod == enums.PaymentMethodGateway {
		gwOrder, err := s.gateway.CreateOrder(ctx, order.Total, order.OrderNumber)
		if err != nil {
			s.logg.Error(s.logg.WithOrderNumber(ctx, order.OrderNumber), "gateway order creation failed", err)
			return nil, err
		}
		if err := s.repo.SetGatewayOrderID(ctx, order.ID, gwOrder.ID); err != nil {
			return nil, err
		}
		order.GatewayOrderID = &gwOrder.ID
		result.GatewayOrderID = gwOrder.ID
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_number": order.OrderNumber,
		"total":        order.Total.String(),
		"items":        len(order.Items),
	}), "order created")

	return result, nil
}

func (s *Service) buildOrder(ctx context.Context, tx *gorm.DB, orderNumber string, in CreateOrderInput, lines []CartLine) (*models.Order, error) {
	subtotal := decimal.Zero
	items := make([]models.OrderItem, 0, len(lines))
	vendorSet := map[uuid.UUID]struct{}{}

	for _, line := range lines {
		product, err := s.catalog.WithTx(tx).FindProduct(ctx, line.ProductID)
		if err != nil {
			return nil, err
		}
		vendor, err := s.catalog.WithTx(tx).FindVendor(ctx, product.VendorID)
		if err != nil {
			return nil, err
		}

		if err := pricing.ValidateDiscounts(product.VendorDiscountPct, product.WebsiteDiscountPct); err != nil {
			if appErr := pkgerrors.As(err); appErr != nil {
				return nil, appErr.WithDetails(map[string]any{
					"product_name":         product.Name,
					"vendor_discount_pct":  product.VendorDiscountPct.String(),
					"website_discount_pct": product.WebsiteDiscountPct.String(),
				})
			}
			return nil, err
		}

		if err := s.stock.Reserve(ctx, tx, inventory.Line{
			ProductID: line.ProductID,
			Size:      line.Size,
			Color:     line.Color,
			Quantity:  line.Quantity,
		}); err != nil {
			if appErr := pkgerrors.As(err); appErr != nil && appErr.Code() == pkgerrors.CodeOutOfStock {
				return nil, appErr.WithDetails(map[string]any{"product_name": product.Name})
			}
			return nil, err
		}

		quote := pricing.Compute(pricing.LineInput{
			SellingPrice:       product.SellingPrice,
			MRP:                product.MRP,
			VendorDiscountPct:  product.VendorDiscountPct,
			WebsiteDiscountPct: product.WebsiteDiscountPct,
			CommissionPct:      vendor.CommissionPct,
			Quantity:           line.Quantity,
		})
		subtotal = subtotal.Add(quote.LineTotal)
		vendorSet[vendor.ID] = struct{}{}

		items = append(items, models.OrderItem{
			ID:                 uuid.New(),
			ProductID:          product.ID,
			VendorID:           vendor.ID,
			Name:               product.Name,
			Image:              product.Image,
			Size:               line.Size,
			Color:              line.Color,
			MRP:                product.MRP,
			SellingPrice:       product.SellingPrice,
			VendorDiscountPct:  product.VendorDiscountPct,
			WebsiteDiscountPct: product.WebsiteDiscountPct,
			FinalPrice:         quote.UnitPrice,
			Quantity:           line.Quantity,
			Commission:         quote.Commission,
			VendorEarning:      quote.VendorEarning,
			Status:             enums.OrderItemStatusPending,
		})
	}

	shippingCharges := s.shippingFor(subtotal)

	couponCode, couponDiscount := s.applyCoupon(ctx, tx, in.CouponCode, subtotal)

	total := subtotal.Add(shippingCharges).Sub(couponDiscount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	order := &models.Order{
		ID:              uuid.New(),
		OrderNumber:     orderNumber,
		CustomerID:      in.CustomerID,
		ShippingAddress: in.ShippingAddress,
		Subtotal:        subtotal,
		ShippingCharges: shippingCharges,
		CouponCode:      couponCode,
		CouponDiscount:  couponDiscount,
		Total:           total,
		PaymentMethod:   in.PaymentMethod,
		PaymentStatus:   enums.PaymentStatusPending,
		Status:          enums.OrderStatusPending,
		Items:           items,
	}
	if in.BillingAddress != nil {
		order.BillingAddress = *in.BillingAddress
	}
	for i := range order.Items {
		order.Items[i].OrderID = order.ID
	}

	if err := s.repo.Create(ctx, tx, order); err != nil {
		return nil, err
	}

	if err := s.cart.Clear(ctx, tx, in.CustomerID); err != nil {
		return nil, err
	}

	vendorIDs := make([]uuid.UUID, 0, len(vendorSet))
	for id := range vendorSet {
		vendorIDs = append(vendorIDs, id)
	}
	customerID := in.CustomerID
	err := s.events.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         &outbox.ActorRef{CustomerID: &customerID},
		Version:       1,
		Data: payloads.OrderCreatedEvent{
			OrderID:       order.ID,
			OrderNumber:   order.OrderNumber,
			CustomerID:    order.CustomerID,
			Total:         order.Total,
			PaymentMethod: order.PaymentMethod,
			VendorIDs:     vendorIDs,
		},
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// applyCoupon evaluates and consumes the coupon inside the order
// transaction. Coupon failures never block checkout; the order simply
// proceeds without a discount.
func (s *Service) applyCoupon(ctx context.Context, tx *gorm.DB, code string, subtotal decimal.Decimal) (*string, decimal.Decimal) {
	if strings.TrimSpace(code) == "" {
		return nil, decimal.Zero
	}
	quote, err := s.coupons.Evaluate(ctx, code, subtotal, time.Now())
	if err != nil {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"coupon_code": code,
			"reason":      err.Error(),
		}), "coupon skipped during checkout")
		return nil, decimal.Zero
	}
	if err := s.coupons.Consume(ctx, tx, quote.Coupon); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "coupon_code", code), "coupon consume lost the race, skipping")
		return nil, decimal.Zero
	}
	applied := quote.Coupon.Code
	return &applied, quote.Discount
}

func (s *Service) shippingFor(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThanOrEqual(decimal.NewFromInt(s.shipping.FreeThreshold)) {
		return decimal.Zero
	}
	return decimal.NewFromInt(s.shipping.FlatFee)
}

// Cancel aborts a not-yet-shipped order: every item flips to cancelled and
// its reserved stock is restored. Terminal items (cancelled, delivered, rto,
// lost) are skipped so a cancel can neither rewrite a settled state nor
// double-restore stock.
func (s *Service) Cancel(ctx context.Context, orderID uuid.UUID, reason string) (*models.Order, error) {
	var cancelled *models.Order
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			return err
		}

		switch order.Status {
		case enums.OrderStatusPending, enums.OrderStatusConfirmed, enums.OrderStatusProcessing:
		default:
			return pkgerrors.New(pkgerrors.CodeCancellationForbidden, "order can no longer be cancelled").
				WithDetails(map[string]any{"status": order.Status.String()})
		}

		now := time.Now()
		for i := range order.Items {
			item := &order.Items[i]
			if item.Status.IsTerminal() {
				continue
			}
			if err := s.stock.Restore(ctx, tx, inventory.Line{
				ProductID: item.ProductID,
				Size:      item.Size,
				Color:     item.Color,
				Quantity:  item.Quantity,
			}); err != nil {
				return err
			}
			res := tx.WithContext(ctx).Model(&models.OrderItem{}).
				Where("id = ? AND status = ?", item.ID, item.Status).
				UpdateColumn("status", enums.OrderItemStatusCancelled)
			if res.Error != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "failed to cancel order item")
			}
			item.Status = enums.OrderItemStatusCancelled
		}

		err = tx.WithContext(ctx).Model(&models.Order{}).
			Where("id = ?", order.ID).
			Updates(map[string]any{
				"status":       enums.OrderStatusCancelled,
				"cancelled_at": now,
			}).Error
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to cancel order")
		}
		order.Status = enums.OrderStatusCancelled
		order.CancelledAt = &now

		customerID := order.CustomerID
		if err := s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCancelled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{CustomerID: &customerID},
			Version:       1,
			Data: payloads.OrderCancelledEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				CustomerID:  order.CustomerID,
				CancelledAt: now,
				Reason:      reason,
			},
		}); err != nil {
			return err
		}

		cancelled = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithOrderNumber(ctx, cancelled.OrderNumber), "order cancelled")
	return cancelled, nil
}

// Get returns the order aggregate with its items.
func (s *Service) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return s.repo.FindByID(ctx, orderID)
}

// GetByNumber looks the order up by its public order number.
func (s *Service) GetByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	return s.repo.FindByNumber(ctx, orderNumber)
}

// ListForCustomer returns the customer's orders, newest first.
func (s *Service) ListForCustomer(ctx context.Context, customerID uuid.UUID) ([]models.Order, error) {
	return s.repo.ListByCustomer(ctx, customerID)
}

// withOrderNumberRetry retries the build with a fresh order number when the
// unique index rejects a collision.
func (s *Service) withOrderNumberRetry(ctx context.Context, fn func(orderNumber string) error) error {
	var lastErr error
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		number, err := newOrderNumber(time.Now())
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to generate order number")
		}
		lastErr = fn(number)
		if lastErr == nil {
			return nil
		}
		if !dbpkg.IsUniqueViolation(lastErr, "ux_orders_order_number") {
			return lastErr
		}
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, lastErr, "exhausted order number attempts")
}

const orderNumberAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// newOrderNumber returns ORD<yyyymm>-<6 char suffix>. The alphabet drops
// easily-confused characters since the number shows up on packing slips.
func newOrderNumber(now time.Time) (string, error) {
	suffix := make([]byte, 6)
	max := big.NewInt(int64(len(orderNumberAlphabet)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		suffix[i] = orderNumberAlphabet[n.Int64()]
	}
	return fmt.Sprintf("ORD%s-%s", now.Format("200601"), string(suffix)), nil
}
