package orders

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/arjunmehra/bazaarcart-backend/internal/cart"
	"github.com/arjunmehra/bazaarcart-backend/internal/catalog"
	"github.com/arjunmehra/bazaarcart-backend/internal/coupons"
	"github.com/arjunmehra/bazaarcart-backend/internal/inventory"
	"github.com/arjunmehra/bazaarcart-backend/pkg/config"
	dbpkg "github.com/arjunmehra/bazaarcart-backend/pkg/db"
	"github.com/arjunmehra/bazaarcart-backend/pkg/db/models"
	"github.com/arjunmehra/bazaarcart-backend/pkg/enums"
	pkgerrors "github.com/arjunmehra/bazaarcart-backend/pkg/errors"
	"github.com/arjunmehra/bazaarcart-backend/pkg/gateway"
	"github.com/arjunmehra/bazaarcart-backend/pkg/logger"
	"github.com/arjunmehra/bazaarcart-backend/pkg/outbox"
	"github.com/arjunmehra/bazaarcart-backend/pkg/types"
)

const ordersTestSchema = `
CREATE TABLE IF NOT EXISTS vendors (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  email TEXT NOT NULL UNIQUE,
  commission_pct NUMERIC NOT NULL,
  total_orders INTEGER NOT NULL DEFAULT 0,
  total_revenue NUMERIC NOT NULL DEFAULT 0,
  pending_payment NUMERIC NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  vendor_id TEXT NOT NULL,
  name TEXT NOT NULL,
  image TEXT,
  mrp NUMERIC NOT NULL,
  selling_price NUMERIC NOT NULL,
  vendor_discount_pct NUMERIC NOT NULL DEFAULT 0,
  website_discount_pct NUMERIC NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS product_variants (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  size TEXT NOT NULL,
  color TEXT NOT NULL,
  sku TEXT NOT NULL,
  stock_quantity INTEGER NOT NULL DEFAULT 0,
  updated_at DATETIME,
  UNIQUE (product_id, size, color)
);
CREATE TABLE IF NOT EXISTS coupons (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL UNIQUE,
  discount_type TEXT NOT NULL,
  discount_value NUMERIC NOT NULL,
  min_order_value NUMERIC NOT NULL DEFAULT 0,
  max_discount NUMERIC,
  valid_from DATETIME NOT NULL,
  valid_until DATETIME NOT NULL,
  usage_limit INTEGER,
  used_count INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  order_number TEXT NOT NULL UNIQUE,
  customer_id TEXT NOT NULL,
  shipping_address TEXT,
  billing_address TEXT,
  subtotal NUMERIC NOT NULL,
  shipping_charges NUMERIC NOT NULL DEFAULT 0,
  coupon_code TEXT,
  coupon_discount NUMERIC NOT NULL DEFAULT 0,
  total NUMERIC NOT NULL,
  payment_method TEXT NOT NULL DEFAULT 'cod',
  payment_status TEXT NOT NULL DEFAULT 'pending',
  status TEXT NOT NULL DEFAULT 'pending',
  gateway_order_id TEXT,
  gateway_payment_id TEXT,
  cancelled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  vendor_id TEXT NOT NULL,
  name TEXT NOT NULL,
  image TEXT,
  size TEXT NOT NULL,
  color TEXT NOT NULL,
  mrp NUMERIC NOT NULL,
  selling_price NUMERIC NOT NULL,
  vendor_discount_pct NUMERIC NOT NULL DEFAULT 0,
  website_discount_pct NUMERIC NOT NULL DEFAULT 0,
  final_price NUMERIC NOT NULL,
  quantity INTEGER NOT NULL,
  commission NUMERIC NOT NULL DEFAULT 0,
  vendor_earning NUMERIC NOT NULL DEFAULT 0,
  status TEXT NOT NULL DEFAULT 'pending',
  tracking_id TEXT,
  delivered_at DATETIME,
  vendor_payment_id TEXT,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS cart_items (
  id TEXT PRIMARY KEY,
  customer_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  size TEXT NOT NULL,
  color TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`

type fakeGateway struct {
	calls       int
	lastAmount  decimal.Decimal
	lastReceipt string
	fail        bool
}

func (f *fakeGateway) CreateOrder(_ context.Context, amount decimal.Decimal, receipt string) (*gateway.GatewayOrder, error) {
	f.calls++
	f.lastAmount = amount
	f.lastReceipt = receipt
	if f.fail {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "gateway unavailable")
	}
	return &gateway.GatewayOrder{ID: fmt.Sprintf("gw_order_%d", f.calls), Status: "created"}, nil
}

type fixture struct {
	conn *gorm.DB
	svc  *Service
	gw   *fakeGateway
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:orders_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	for _, stmt := range strings.Split(ordersTestSchema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		require.NoError(t, conn.Exec(stmt).Error)
	}

	gw := &fakeGateway{}
	logg := logger.New(logger.Options{ServiceName: "orders-test", Level: zerolog.Disabled})
	svc := NewService(
		dbpkg.FromGorm(conn),
		NewRepository(conn),
		catalog.NewRepository(conn),
		cart.NewRepository(conn),
		coupons.NewService(coupons.NewRepository(conn)),
		inventory.NewService(),
		outbox.NewService(outbox.NewRepository(conn), nil),
		gw,
		config.ShippingConfig{FreeThreshold: 499, FlatFee: 49},
		logg,
	)
	return &fixture{conn: conn, svc: svc, gw: gw}
}

type seededProduct struct {
	vendor  models.Vendor
	product models.Product
	variant models.ProductVariant
}

func (f *fixture) seedProduct(t *testing.T, price string, commissionPct string, stock int) seededProduct {
	t.Helper()
	vendor := models.Vendor{
		ID:            uuid.New(),
		Name:          "Trend Traders",
		Email:         fmt.Sprintf("vendor-%s@example.com", uuid.NewString()),
		CommissionPct: decimal.RequireFromString(commissionPct),
		IsActive:      true,
	}
	require.NoError(t, f.conn.Create(&vendor).Error)

	product := models.Product{
		ID:           uuid.New(),
		VendorID:     vendor.ID,
		Name:         "Cotton Kurta",
		MRP:          decimal.RequireFromString(price).Add(decimal.NewFromInt(200)),
		SellingPrice: decimal.RequireFromString(price),
		IsActive:     true,
	}
	require.NoError(t, f.conn.Create(&product).Error)

	variant := models.ProductVariant{
		ID:            uuid.New(),
		ProductID:     product.ID,
		Size:          "M",
		Color:         "Indigo",
		SKU:           fmt.Sprintf("SKU-%s", uuid.NewString()[:8]),
		StockQuantity: stock,
	}
	require.NoError(t, f.conn.Create(&variant).Error)
	return seededProduct{vendor: vendor, product: product, variant: variant}
}

func (f *fixture) stockOf(t *testing.T, variantID uuid.UUID) int {
	t.Helper()
	var v models.ProductVariant
	require.NoError(t, f.conn.First(&v, "id = ?", variantID).Error)
	return v.StockQuantity
}

func (f *fixture) vendorOf(t *testing.T, vendorID uuid.UUID) models.Vendor {
	t.Helper()
	var v models.Vendor
	require.NoError(t, f.conn.First(&v, "id = ?", vendorID).Error)
	return v
}

func testAddress() types.Address {
	return types.Address{
		Name:       "Ananya Rao",
		Phone:      "9876543210",
		Line1:      "14 MG Road",
		City:       "Bengaluru",
		State:      "Karnataka",
		PostalCode: "560001",
		Country:    "IN",
	}
}

func lineFor(sp seededProduct, qty int) CartLine {
	return CartLine{ProductID: sp.product.ID, Size: "M", Color: "Indigo", Quantity: qty}
}

func appCode(t *testing.T, err error) pkgerrors.Code {
	t.Helper()
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	return appErr.Code()
}

func TestCreateOrderCOD(t *testing.T) {
	f := newFixture(t)
	sp := f.seedProduct(t, "200", "10", 10)

	res, err := f.svc.CreateOrder(context.Background(), CreateOrderInput{
		CustomerID:      uuid.New(),
		Lines:           []CartLine{lineFor(sp, 2)},
		ShippingAddress: testAddress(),
		PaymentMethod:   enums.PaymentMethodCOD,
	})
	require.NoError(t, err)
	order := res.Order

	assert.Regexp(t, `^ORD\d{6}-[A-Z2-9]{6}$`, order.OrderNumber)
	assert.True(t, order.Subtotal.Equal(decimal.NewFromInt(400)), "subtotal %s", order.Subtotal)
	assert.True(t, order.ShippingCharges.Equal(decimal.NewFromInt(49)), "shipping %s", order.ShippingCharges)
	assert.True(t, order.Total.Equal(decimal.NewFromInt(449)), "total %s", order.Total)
	assert.True(t, res.Totals.Subtotal.Equal(order.Subtotal))
	assert.True(t, res.Totals.ShippingCharges.Equal(order.ShippingCharges))
	assert.True(t, res.Totals.Total.Equal(order.Total))
	assert.Equal(t, enums.PaymentStatusPending, order.PaymentStatus)
	assert.Equal(t, enums.OrderStatusPending, order.Status)
	assert.Equal(t, 0, f.gw.calls, "cod orders never touch the gateway")

	require.Len(t, order.Items, 1)
	item := order.Items[0]
	assert.True(t, item.SellingPrice.Equal(sp.product.SellingPrice))
	assert.True(t, item.Commission.Equal(decimal.NewFromInt(40)))
	assert.True(t, item.VendorEarning.Equal(decimal.NewFromInt(360)))
	assert.Equal(t, enums.OrderItemStatusPending, item.Status)

	assert.Equal(t, 8, f.stockOf(t, sp.variant.ID))

	var events int64
	require.NoError(t, f.conn.Model(&models.OutboxEvent{}).
		Where("event_type = ?", enums.EventOrderCreated).Count(&events).Error)
	assert.Equal(t, int64(1), events)
}

func TestCreateOrderFreeShippingAboveThreshold(t *testing.T) {
	f := newFixture(t)
	sp := f.seedProduct(t, "499", "10", 5)

	res, err := f.svc.CreateOrder(context.Background(), CreateOrderInput{
		CustomerID:      uuid.New(),
		Lines:           []CartLine{lineFor(sp, 1)},
		ShippingAddress: testAddress(),
		PaymentMethod:   enums.PaymentMethodCOD,
	})
	require.NoError(t, err)
	assert.True(t, res.Order.ShippingCharges.IsZero())
	assert.True(t, res.Order.Total.Equal(decimal.NewFromInt(499)))
}

func TestCreateOrderSnapshotsPricing(t *testing.T) {
	f := newFixture(t)
	sp := f.seedProduct(t, "1000", "12", 5)

	res, err := f.svc.CreateOrder(context.Background(), CreateOrderInput{
		CustomerID:      uuid.New(),
		Lines:           []CartLine{lineFor(sp, 1)},
		ShippingAddress: testAddress(),
		PaymentMethod:   enums.PaymentMethodCOD,
	})
	require.NoError(t, err)

	// Reprice the product after checkout; the order item must keep the
	// original snapshot.
	require.NoError(t, f.conn.Model(&models.Product{}).
		Where("id = ?", sp.product.ID).
		UpdateColumn("selling_price", decimal.NewFromInt(1)).Error)

	reloaded, err := f.svc.Get(context.Background(), res.Order.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.Items[0].SellingPrice.Equal(decimal.NewFromInt(1000)))
	assert.True(t, reloaded.Items[0].FinalPrice.Equal(decimal.NewFromInt(1000)))
}

func TestCreateOrderAppliesCoupon(t *testing.T) {
	f := newFixture(t)
	sp := f.seedProduct(t, "500", "10", 5)

	cap := decimal.NewFromInt(80)
	limit := 10
	coupon := models.Coupon{
		ID:            uuid.New(),
		Code:          "SAVE10",
		DiscountType:  enums.DiscountTypePercentage,
		DiscountValue: decimal.NewFromInt(10),
		MinOrderValue: decimal.NewFromInt(500),
		MaxDiscount:   &cap,
		ValidFrom:     time.Now().Add(-time.Hour),
		ValidUntil:    time.Now().Add(time.Hour),
		UsageLimit:    &limit,
		IsActive:      true,
	}
	require.NoError(t, f.conn.Create(&coupon).Error)

	res, err := f.svc.CreateOrder(context.Background(), CreateOrderInput{
		CustomerID:      uuid.New(),
		Lines:           []CartLine{lineFor(sp, 2)},
		ShippingAddress: testAddress(),
		PaymentMethod:   enums.PaymentMethodCOD,
		CouponCode:      "SAVE10",
	})
	require.NoError(t, err)
	order := res.Order

	// subtotal 1000, free shipping, 10% capped at 80
	assert.True(t, order.CouponDiscount.Equal(decimal.NewFromInt(80)), "discount %s", order.CouponDiscount)
	assert.True(t, order.Total.Equal(decimal.NewFromInt(920)), "total %s", order.Total)
	require.NotNil(t, order.CouponCode)
	assert.Equal(t, "SAVE10", *order.CouponCode)

	var after models.Coupon
	require.NoError(t, f.conn.First(&after, "id = ?", coupon.ID).Error)
	assert.Equal(t, 1, after.UsedCount)
}

func TestCreateOrderCouponFailureDoesNotBlock(t *testing.T) {
	f := newFixture(t)
	sp := f.seedProduct(t, "200", "10", 5)

	res, err := f.svc.CreateOrder(context.Background(), CreateOrderInput{
		CustomerID:      uuid.New(),
		Lines:           []CartLine{lineFor(sp, 1)},
		ShippingAddress: testAddress(),
		PaymentMethod:   enums.PaymentMethodCOD,
		CouponCode:      "NO-SUCH-CODE",
	})
	require.NoError(t, err)
	assert.Nil(t, res.Order.CouponCode)
	assert.True(t, res.Order.CouponDiscount.IsZero())
}

func TestCreateOrderOutOfStockRollsBackEverything(t *testing.T) {
	f := newFixture(t)
	first := f.seedProduct(t, "300", "10", 10)
	second := f.seedProduct(t, "400", "10", 1)

	customerID := uuid.New()
	_, err := f.svc.CreateOrder(context.Background(), CreateOrderInput{
		CustomerID:      customerID,
		Lines:           []CartLine{lineFor(first, 2), lineFor(second, 5)},
		ShippingAddress: testAddress(),
		PaymentMethod:   enums.PaymentMethodCOD,
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeOutOfStock, appCode(t, err))

	// The first line's reservation must not survive the aborted build.
	assert.Equal(t, 10, f.stockOf(t, first.variant.ID))
	assert.Equal(t, 1, f.stockOf(t, second.variant.ID))

	var orderCount int64
	require.NoError(t, f.conn.Model(&models.Order{}).Count(&orderCount).Error)
	assert.Zero(t, orderCount)
}

func TestCreateOrderRejectsOverlappingDiscounts(t *testing.T) {
	f := newFixture(t)
	sp := f.seedProduct(t, "500", "10", 5)
	require.NoError(t, f.conn.Model(&models.Product{}).
		Where("id = ?", sp.product.ID).
		Updates(map[string]any{
			"vendor_discount_pct":  "70",
			"website_discount_pct": "70",
		}).Error)

	_, err := f.svc.CreateOrder(context.Background(), CreateOrderInput{
		CustomerID:      uuid.New(),
		Lines:           []CartLine{lineFor(sp, 1)},
		ShippingAddress: testAddress(),
		PaymentMethod:   enums.PaymentMethodCOD,
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, appCode(t, err))

	// The rejected line must leave no trace.
	assert.Equal(t, 5, f.stockOf(t, sp.variant.ID))
	var orderCount int64
	require.NoError(t, f.conn.Model(&models.Order{}).Count(&orderCount).Error)
	assert.Zero(t, orderCount)
}

func TestCreateOrderFromSavedCart(t *testing.T) {
	f := newFixture(t)
	sp := f.seedProduct(t, "250", "10", 5)
	customerID := uuid.New()

	require.NoError(t, f.conn.Create(&models.CartItem{
		ID:         uuid.New(),
		CustomerID: customerID,
		ProductID:  sp.product.ID,
		Size:       "M",
		Color:      "Indigo",
		Quantity:   2,
	}).Error)

	res, err := f.svc.CreateOrder(context.Background(), CreateOrderInput{
		CustomerID:      customerID,
		ShippingAddress: testAddress(),
		PaymentMethod:   enums.PaymentMethodCOD,
	})
	require.NoError(t, err)
	assert.True(t, res.Order.Subtotal.Equal(decimal.NewFromInt(500)))

	var remaining int64
	require.NoError(t, f.conn.Model(&models.CartItem{}).
		Where("customer_id = ?", customerID).Count(&remaining).Error)
	assert.Zero(t, remaining, "checkout clears the cart")
}

func TestCreateOrderEmptyCart(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateOrder(context.Background(), CreateOrderInput{
		CustomerID:      uuid.New(),
		ShippingAddress: testAddress(),
		PaymentMethod:   enums.PaymentMethodCOD,
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, appCode(t, err))
}

func TestCreateOrderGatewayMethod(t *testing.T) {
	f := newFixture(t)
	sp := f.seedProduct(t, "600", "10", 5)

	res, err := f.svc.CreateOrder(context.Background(), CreateOrderInput{
		CustomerID:      uuid.New(),
		Lines:           []CartLine{lineFor(sp, 1)},
		ShippingAddress: testAddress(),
		PaymentMethod:   enums.PaymentMethodGateway,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, f.gw.calls)
	assert.True(t, f.gw.lastAmount.Equal(decimal.NewFromInt(600)))
	assert.Equal(t, res.Order.OrderNumber, f.gw.lastReceipt)
	assert.Equal(t, "gw_order_1", res.GatewayOrderID)

	var stored models.Order
	require.NoError(t, f.conn.First(&stored, "id = ?", res.Order.ID).Error)
	require.NotNil(t, stored.GatewayOrderID)
	assert.Equal(t, "gw_order_1", *stored.GatewayOrderID)
}

func TestCancelRestoresStock(t *testing.T) {
	f := newFixture(t)
	a := f.seedProduct(t, "300", "10", 5)
	b := f.seedProduct(t, "200", "10", 3)

	res, err := f.svc.CreateOrder(context.Background(), CreateOrderInput{
		CustomerID:      uuid.New(),
		Lines:           []CartLine{lineFor(a, 2), lineFor(b, 1)},
		ShippingAddress: testAddress(),
		PaymentMethod:   enums.PaymentMethodCOD,
	})
	require.NoError(t, err)
	require.Equal(t, 3, f.stockOf(t, a.variant.ID))
	require.Equal(t, 2, f.stockOf(t, b.variant.ID))

	cancelled, err := f.svc.Cancel(context.Background(), res.Order.ID, "changed my mind")
	require.NoError(t, err)

	assert.Equal(t, enums.OrderStatusCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.CancelledAt)
	for _, item := range cancelled.Items {
		assert.Equal(t, enums.OrderItemStatusCancelled, item.Status)
	}
	assert.Equal(t, 5, f.stockOf(t, a.variant.ID))
	assert.Equal(t, 3, f.stockOf(t, b.variant.ID))
}

func TestCancelRejectedOnceShipped(t *testing.T) {
	f := newFixture(t)
	sp := f.seedProduct(t, "300", "10", 5)

	res, err := f.svc.CreateOrder(context.Background(), CreateOrderInput{
		CustomerID:      uuid.New(),
		Lines:           []CartLine{lineFor(sp, 1)},
		ShippingAddress: testAddress(),
		PaymentMethod:   enums.PaymentMethodCOD,
	})
	require.NoError(t, err)
	itemID := res.Order.Items[0].ID

	for _, to := range []enums.OrderItemStatus{
		enums.OrderItemStatusConfirmed,
		enums.OrderItemStatusPackaging,
		enums.OrderItemStatusReadyToPickup,
		enums.OrderItemStatusPickedUp,
	} {
		_, err := f.svc.TransitionItem(context.Background(), TransitionInput{ItemID: itemID, To: to})
		require.NoError(t, err)
	}

	_, err = f.svc.Cancel(context.Background(), res.Order.ID, "")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeCancellationForbidden, appCode(t, err))
	assert.Equal(t, 4, f.stockOf(t, sp.variant.ID), "stock untouched by refused cancel")
}

func TestCancelTwiceRefused(t *testing.T) {
	f := newFixture(t)
	sp := f.seedProduct(t, "300", "10", 5)

	res, err := f.svc.CreateOrder(context.Background(), CreateOrderInput{
		CustomerID:      uuid.New(),
		Lines:           []CartLine{lineFor(sp, 2)},
		ShippingAddress: testAddress(),
		PaymentMethod:   enums.PaymentMethodCOD,
	})
	require.NoError(t, err)

	_, err = f.svc.Cancel(context.Background(), res.Order.ID, "")
	require.NoError(t, err)
	require.Equal(t, 5, f.stockOf(t, sp.variant.ID))

	_, err = f.svc.Cancel(context.Background(), res.Order.ID, "")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeCancellationForbidden, appCode(t, err))
	assert.Equal(t, 5, f.stockOf(t, sp.variant.ID), "second cancel must not double-restore")
}

func TestCancelLeavesTerminalItemsAlone(t *testing.T) {
	f := newFixture(t)
	returned := f.seedProduct(t, "300", "10", 5)
	pending := f.seedProduct(t, "200", "10", 3)

	res, err := f.svc.CreateOrder(context.Background(), CreateOrderInput{
		CustomerID:      uuid.New(),
		Lines:           []CartLine{lineFor(returned, 2), lineFor(pending, 1)},
		ShippingAddress: testAddress(),
		PaymentMethod:   enums.PaymentMethodCOD,
	})
	require.NoError(t, err)

	var returnedItem models.OrderItem
	require.NoError(t, f.conn.First(&returnedItem, "order_id = ? AND product_id = ?", res.Order.ID, returned.product.ID).Error)
	_, err = f.svc.TransitionItem(context.Background(), TransitionInput{
		ItemID: returnedItem.ID,
		To:     enums.OrderItemStatusRTO,
	})
	require.NoError(t, err)
	require.Equal(t, 3, f.stockOf(t, returned.variant.ID))

	cancelled, err := f.svc.Cancel(context.Background(), res.Order.ID, "")
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, cancelled.Status)

	// The rto item keeps its terminal state and its stock stays decremented;
	// only the live item is cancelled and restored.
	require.NoError(t, f.conn.First(&returnedItem, "id = ?", returnedItem.ID).Error)
	assert.Equal(t, enums.OrderItemStatusRTO, returnedItem.Status)
	assert.Equal(t, 3, f.stockOf(t, returned.variant.ID), "cancel must not restore an rto item's stock")

	var pendingItem models.OrderItem
	require.NoError(t, f.conn.First(&pendingItem, "order_id = ? AND product_id = ?", res.Order.ID, pending.product.ID).Error)
	assert.Equal(t, enums.OrderItemStatusCancelled, pendingItem.Status)
	assert.Equal(t, 3, f.stockOf(t, pending.variant.ID))
}
