package webhooks

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/arjunmehra/bazaarcart-backend/internal/payments"
	"github.com/arjunmehra/bazaarcart-backend/pkg/db/models"
	"github.com/arjunmehra/bazaarcart-backend/pkg/enums"
	pkgerrors "github.com/arjunmehra/bazaarcart-backend/pkg/errors"
	"github.com/arjunmehra/bazaarcart-backend/pkg/logger"
)

type stubVerifier struct {
	verify func(ctx context.Context, in payments.VerifyInput) (*models.Order, error)
	calls  int
}

func (s *stubVerifier) Verify(ctx context.Context, in payments.VerifyInput) (*models.Order, error) {
	s.calls++
	if s.verify != nil {
		return s.verify(ctx, in)
	}
	return &models.Order{OrderNumber: "ORD-1", PaymentStatus: enums.PaymentStatusPaid}, nil
}

type stubGuard struct {
	processed bool
	deleted   []string
}

func (s *stubGuard) CheckAndMark(ctx context.Context, paymentRef string) (bool, error) {
	return s.processed, nil
}

func (s *stubGuard) Delete(ctx context.Context, paymentRef string) error {
	s.deleted = append(s.deleted, paymentRef)
	return nil
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func webhookTestLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "webhooks-test", Output: discard{}})
}

func callbackBody(orderRef, paymentRef, signature string) string {
	return `{"gateway_order_id":"` + orderRef + `","gateway_payment_id":"` + paymentRef + `","signature":"` + signature + `"}`
}

func TestGatewayPaymentConfirmsOrder(t *testing.T) {
	verifier := &stubVerifier{
		verify: func(ctx context.Context, in payments.VerifyInput) (*models.Order, error) {
			if in.GatewayOrderID != "gw_order_1" || in.GatewayPaymentID != "gw_pay_1" {
				t.Fatalf("callback fields not forwarded: %+v", in)
			}
			return &models.Order{OrderNumber: "ORD-42", PaymentStatus: enums.PaymentStatusPaid}, nil
		},
	}
	guard := &stubGuard{}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payment",
		strings.NewReader(callbackBody("gw_order_1", "gw_pay_1", "sig")))
	resp := httptest.NewRecorder()
	GatewayPayment(verifier, guard, webhookTestLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if !strings.Contains(resp.Body.String(), "ORD-42") {
		t.Fatalf("order number missing from response: %s", resp.Body.String())
	}
	if len(guard.deleted) != 0 {
		t.Fatalf("guard should keep the mark on success")
	}
}

func TestGatewayPaymentSkipsDuplicateDelivery(t *testing.T) {
	verifier := &stubVerifier{}
	guard := &stubGuard{processed: true}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payment",
		strings.NewReader(callbackBody("gw_order_1", "gw_pay_1", "sig")))
	resp := httptest.NewRecorder()
	GatewayPayment(verifier, guard, webhookTestLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if verifier.calls != 0 {
		t.Fatalf("verifier should not run for a duplicate delivery")
	}
}

func TestGatewayPaymentUnmarksOnFailure(t *testing.T) {
	verifier := &stubVerifier{
		verify: func(ctx context.Context, in payments.VerifyInput) (*models.Order, error) {
			return nil, pkgerrors.New(pkgerrors.CodeSignatureMismatch, "payment signature mismatch")
		},
	}
	guard := &stubGuard{}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payment",
		strings.NewReader(callbackBody("gw_order_1", "gw_pay_1", "bad")))
	resp := httptest.NewRecorder()
	GatewayPayment(verifier, guard, webhookTestLogger())(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d: %s", resp.Code, resp.Body.String())
	}
	if len(guard.deleted) != 1 || guard.deleted[0] != "gw_pay_1" {
		t.Fatalf("failed callback should release the idempotency mark, got %v", guard.deleted)
	}
}

func TestGatewayPaymentRejectsIncompleteBody(t *testing.T) {
	verifier := &stubVerifier{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payment",
		strings.NewReader(`{"gateway_order_id":"gw_order_1"}`))
	resp := httptest.NewRecorder()
	GatewayPayment(verifier, &stubGuard{}, webhookTestLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if verifier.calls != 0 {
		t.Fatalf("verifier should not run without a signature")
	}
}
