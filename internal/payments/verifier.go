package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"gorm.io/gorm"

	"github.com/arjunmehra/bazaarcart-backend/internal/orders"
	dbpkg "github.com/arjunmehra/bazaarcart-backend/pkg/db"
	"github.com/arjunmehra/bazaarcart-backend/pkg/db/models"
	"github.com/arjunmehra/bazaarcart-backend/pkg/enums"
	pkgerrors "github.com/arjunmehra/bazaarcart-backend/pkg/errors"
	"github.com/arjunmehra/bazaarcart-backend/pkg/logger"
	"github.com/arjunmehra/bazaarcart-backend/pkg/outbox"
	"github.com/arjunmehra/bazaarcart-backend/pkg/outbox/payloads"
)

// VerifyInput carries the gateway's payment confirmation callback fields.
type VerifyInput struct {
	GatewayOrderID   string `json:"gateway_order_id" validate:"required"`
	GatewayPaymentID string `json:"gateway_payment_id" validate:"required"`
	Signature        string `json:"signature" validate:"required"`
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Verifier authenticates gateway payment confirmations. The signature check
// is the trust boundary: client-supplied payment state is worthless until the
// HMAC matches.
type Verifier struct {
	db     *dbpkg.Client
	repo   orders.Repository
	events eventEmitter
	secret []byte
	logg   *logger.Logger
}

func NewVerifier(db *dbpkg.Client, repo orders.Repository, events eventEmitter, secret string, logg *logger.Logger) *Verifier {
	return &Verifier{
		db:     db,
		repo:   repo,
		events: events,
		secret: []byte(secret),
		logg:   logg,
	}
}

// Signature computes the expected hex HMAC-SHA256 over
// "<gatewayOrderID>|<gatewayPaymentID>".
func Signature(secret []byte, gatewayOrderID, gatewayPaymentID string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(gatewayOrderID + "|" + gatewayPaymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks the callback signature and, on success, marks the order paid
// and confirmed. Replaying a valid callback converges on the same final state
// without re-applying side effects.
func (v *Verifier) Verify(ctx context.Context, in VerifyInput) (*models.Order, error) {
	expected := Signature(v.secret, in.GatewayOrderID, in.GatewayPaymentID)
	if !hmac.Equal([]byte(expected), []byte(strings.TrimSpace(in.Signature))) {
		v.logg.Security(v.logg.WithFields(ctx, map[string]any{
			"gateway_order_id": in.GatewayOrderID,
		}), "payment_signature_mismatch", "payment confirmation failed signature check")
		return nil, pkgerrors.New(pkgerrors.CodeSignatureMismatch, "payment signature mismatch")
	}

	var verified *models.Order
	err := v.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := v.repo.WithTx(tx)
		order, err := repo.FindByGatewayOrderID(ctx, in.GatewayOrderID)
		if err != nil {
			return err
		}

		if order.PaymentStatus == enums.PaymentStatusPaid {
			// Replayed callback; nothing left to apply.
			verified = order
			return nil
		}

		err = tx.WithContext(ctx).Model(&models.Order{}).
			Where("id = ? AND payment_status = ?", order.ID, enums.PaymentStatusPending).
			Updates(map[string]any{
				"payment_status":     enums.PaymentStatusPaid,
				"status":             enums.OrderStatusConfirmed,
				"gateway_payment_id": in.GatewayPaymentID,
			}).Error
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to record payment")
		}
		order.PaymentStatus = enums.PaymentStatusPaid
		order.Status = enums.OrderStatusConfirmed
		order.GatewayPayment = &in.GatewayPaymentID

		if err := v.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Data: payloads.OrderPaidEvent{
				OrderID:          order.ID,
				OrderNumber:      order.OrderNumber,
				GatewayOrderID:   in.GatewayOrderID,
				GatewayPaymentID: in.GatewayPaymentID,
			},
		}); err != nil {
			return err
		}

		verified = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	v.logg.Info(v.logg.WithOrderNumber(ctx, verified.OrderNumber), "payment verified")
	return verified, nil
}
