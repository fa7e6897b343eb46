package coupons

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/arjunmehra/bazaarcart-backend/pkg/db/models"
	"github.com/arjunmehra/bazaarcart-backend/pkg/enums"
	pkgerrors "github.com/arjunmehra/bazaarcart-backend/pkg/errors"
)

const couponsSchema = `
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
);`

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:coupons_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, conn.Exec(couponsSchema).Error)
	return conn
}

func seedCoupon(t *testing.T, conn *gorm.DB, mut func(*models.Coupon)) *models.Coupon {
	t.Helper()
	limit := 100
	coupon := &models.Coupon{
		ID:            uuid.New(),
		Code:          "WELCOME10",
		DiscountType:  enums.DiscountTypePercentage,
		DiscountValue: decimal.NewFromInt(10),
		MinOrderValue: decimal.NewFromInt(500),
		ValidFrom:     time.Now().Add(-time.Hour),
		ValidUntil:    time.Now().Add(time.Hour),
		UsageLimit:    &limit,
		IsActive:      true,
	}
	if mut != nil {
		mut(coupon)
	}
	require.NoError(t, conn.Create(coupon).Error)
	return coupon
}

func codeOf(t *testing.T, err error) pkgerrors.Code {
	t.Helper()
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	return appErr.Code()
}

func TestEvaluatePercentageDiscount(t *testing.T) {
	conn := setupDB(t)
	seedCoupon(t, conn, nil)
	svc := NewService(NewRepository(conn))

	quote, err := svc.Evaluate(context.Background(), "WELCOME10", decimal.NewFromInt(1000), time.Now())
	require.NoError(t, err)
	assert.True(t, quote.Discount.Equal(decimal.NewFromInt(100)), "got %s", quote.Discount)
}

func TestEvaluateCaseInsensitiveCode(t *testing.T) {
	conn := setupDB(t)
	seedCoupon(t, conn, nil)
	svc := NewService(NewRepository(conn))

	_, err := svc.Evaluate(context.Background(), "  welcome10 ", decimal.NewFromInt(1000), time.Now())
	require.NoError(t, err)
}

func TestEvaluatePercentageCappedAtMaxDiscount(t *testing.T) {
	conn := setupDB(t)
	cap := decimal.NewFromInt(50)
	seedCoupon(t, conn, func(c *models.Coupon) { c.MaxDiscount = &cap })
	svc := NewService(NewRepository(conn))

	quote, err := svc.Evaluate(context.Background(), "WELCOME10", decimal.NewFromInt(2000), time.Now())
	require.NoError(t, err)
	assert.True(t, quote.Discount.Equal(cap))
}

func TestEvaluateFixedDiscountCappedAtSubtotal(t *testing.T) {
	conn := setupDB(t)
	seedCoupon(t, conn, func(c *models.Coupon) {
		c.DiscountType = enums.DiscountTypeFixed
		c.DiscountValue = decimal.NewFromInt(800)
		c.MinOrderValue = decimal.NewFromInt(100)
	})
	svc := NewService(NewRepository(conn))

	quote, err := svc.Evaluate(context.Background(), "WELCOME10", decimal.NewFromInt(600), time.Now())
	require.NoError(t, err)
	assert.True(t, quote.Discount.Equal(decimal.NewFromInt(600)))
}

func TestEvaluateRejections(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name     string
		mut      func(*models.Coupon)
		code     string
		subtotal decimal.Decimal
		wantCode pkgerrors.Code
	}{
		{
			name:     "unknown code",
			code:     "NOPE",
			subtotal: decimal.NewFromInt(1000),
			wantCode: pkgerrors.CodeNotFound,
		},
		{
			name:     "inactive",
			mut:      func(c *models.Coupon) { c.IsActive = false },
			code:     "WELCOME10",
			subtotal: decimal.NewFromInt(1000),
			wantCode: pkgerrors.CodeNotFound,
		},
		{
			name:     "expired",
			mut:      func(c *models.Coupon) { c.ValidUntil = now.Add(-time.Minute) },
			code:     "WELCOME10",
			subtotal: decimal.NewFromInt(1000),
			wantCode: pkgerrors.CodeNotFound,
		},
		{
			name:     "not yet valid",
			mut:      func(c *models.Coupon) { c.ValidFrom = now.Add(time.Minute) },
			code:     "WELCOME10",
			subtotal: decimal.NewFromInt(1000),
			wantCode: pkgerrors.CodeNotFound,
		},
		{
			name: "usage exhausted",
			mut: func(c *models.Coupon) {
				limit := 5
				c.UsageLimit = &limit
				c.UsedCount = 5
			},
			code:     "WELCOME10",
			subtotal: decimal.NewFromInt(1000),
			wantCode: pkgerrors.CodeUsageExceeded,
		},
		{
			name:     "below minimum",
			code:     "WELCOME10",
			subtotal: decimal.NewFromInt(499),
			wantCode: pkgerrors.CodeBelowMinimum,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			conn := setupDB(t)
			seedCoupon(t, conn, tc.mut)
			svc := NewService(NewRepository(conn))

			_, err := svc.Evaluate(context.Background(), tc.code, tc.subtotal, now)
			require.Error(t, err)
			assert.Equal(t, tc.wantCode, codeOf(t, err))
		})
	}
}

func TestConsumeIncrementsUsedCount(t *testing.T) {
	conn := setupDB(t)
	coupon := seedCoupon(t, conn, nil)
	svc := NewService(NewRepository(conn))

	require.NoError(t, svc.Consume(context.Background(), conn, coupon))

	var after models.Coupon
	require.NoError(t, conn.First(&after, "id = ?", coupon.ID).Error)
	assert.Equal(t, 1, after.UsedCount)
}

func TestConsumeRefusesPastLimit(t *testing.T) {
	conn := setupDB(t)
	coupon := seedCoupon(t, conn, func(c *models.Coupon) {
		limit := 1
		c.UsageLimit = &limit
	})
	svc := NewService(NewRepository(conn))
	ctx := context.Background()

	require.NoError(t, svc.Consume(ctx, conn, coupon))

	err := svc.Consume(ctx, conn, coupon)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeUsageExceeded, codeOf(t, err))

	var after models.Coupon
	require.NoError(t, conn.First(&after, "id = ?", coupon.ID).Error)
	assert.Equal(t, 1, after.UsedCount)
}

func TestConsumeConcurrentStopsAtLimit(t *testing.T) {
	conn := setupDB(t)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	// One connection keeps sqlite happy; the goroutines still race at the
	// application level against the guarded UPDATE.
	sqlDB.SetMaxOpenConns(1)

	coupon := seedCoupon(t, conn, func(c *models.Coupon) {
		limit := 3
		c.UsageLimit = &limit
	})
	svc := NewService(NewRepository(conn))

	const attempts = 8
	results := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- svc.Consume(context.Background(), conn, coupon)
		}()
	}
	wg.Wait()
	close(results)

	var redeemed int
	for err := range results {
		if err == nil {
			redeemed++
			continue
		}
		assert.Equal(t, pkgerrors.CodeUsageExceeded, codeOf(t, err))
	}
	assert.Equal(t, 3, redeemed)

	var after models.Coupon
	require.NoError(t, conn.First(&after, "id = ?", coupon.ID).Error)
	assert.Equal(t, 3, after.UsedCount)
}

func TestConsumeUnlimitedCoupon(t *testing.T) {
	conn := setupDB(t)
	coupon := seedCoupon(t, conn, func(c *models.Coupon) { c.UsageLimit = nil })
	svc := NewService(NewRepository(conn))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Consume(ctx, conn, coupon))
	}
	var after models.Coupon
	require.NoError(t, conn.First(&after, "id = ?", coupon.ID).Error)
	assert.Equal(t, 3, after.UsedCount)
}
