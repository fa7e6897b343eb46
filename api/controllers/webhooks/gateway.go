package webhooks

import (
	"context"
	"net/http"

	"github.com/arjunmehra/bazaarcart-backend/api/responses"
	"github.com/arjunmehra/bazaarcart-backend/api/validators"
	"github.com/arjunmehra/bazaarcart-backend/internal/payments"
	"github.com/arjunmehra/bazaarcart-backend/pkg/db/models"
	pkgerrors "github.com/arjunmehra/bazaarcart-backend/pkg/errors"
	"github.com/arjunmehra/bazaarcart-backend/pkg/logger"
)

// PaymentVerifier confirms a gateway callback against the webhook secret.
type PaymentVerifier interface {
	Verify(ctx context.Context, in payments.VerifyInput) (*models.Order, error)
}

type webhookGuard interface {
	CheckAndMark(ctx context.Context, paymentRef string) (bool, error)
	Delete(ctx context.Context, paymentRef string) error
}

type gatewayCallbackRequest struct {
	GatewayOrderID   string `json:"gateway_order_id" validate:"required"`
	GatewayPaymentID string `json:"gateway_payment_id" validate:"required"`
	Signature        string `json:"signature" validate:"required"`
}

// GatewayPayment handles the payment gateway's confirmation callback.
func GatewayPayment(verifier PaymentVerifier, guard webhookGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if verifier == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment verifier unavailable"))
			return
		}
		if guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard unavailable"))
			return
		}

		var req gatewayCallbackRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		alreadyProcessed, err := guard.CheckAndMark(ctx, req.GatewayPaymentID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
			return
		}
		if alreadyProcessed {
			responses.WriteSuccess(w, nil)
			return
		}

		order, err := verifier.Verify(ctx, payments.VerifyInput{
			GatewayOrderID:   req.GatewayOrderID,
			GatewayPaymentID: req.GatewayPaymentID,
			Signature:        req.Signature,
		})
		if err != nil {
			_ = guard.Delete(ctx, req.GatewayPaymentID)
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"order_number":   order.OrderNumber,
			"payment_status": order.PaymentStatus,
		})
	}
}
