package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arjunmehra/bazaarcart-backend/api/responses"
	"github.com/arjunmehra/bazaarcart-backend/api/validators"
	"github.com/arjunmehra/bazaarcart-backend/pkg/db/models"
	pkgerrors "github.com/arjunmehra/bazaarcart-backend/pkg/errors"
	"github.com/arjunmehra/bazaarcart-backend/pkg/logger"
)

// SettlementService is the slice of the settlement aggregator the
// controllers consume.
type SettlementService interface {
	CreateBatch(ctx context.Context, vendorID uuid.UUID, from, to time.Time, deductions decimal.Decimal) (*models.VendorPayment, error)
	Get(ctx context.Context, id uuid.UUID) (*models.VendorPayment, error)
	ListForVendor(ctx context.Context, vendorID uuid.UUID, limit int) ([]models.VendorPayment, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) (*models.VendorPayment, error)
	MarkPaid(ctx context.Context, id uuid.UUID) (*models.VendorPayment, error)
	MarkFailed(ctx context.Context, id uuid.UUID) (*models.VendorPayment, error)
}

type createSettlementRequest struct {
	VendorID   uuid.UUID       `json:"vendor_id" validate:"required"`
	PeriodFrom time.Time       `json:"period_from" validate:"required"`
	PeriodTo   time.Time       `json:"period_to" validate:"required"`
	Deductions decimal.Decimal `json:"deductions"`
}

// CreateSettlement drafts a payout batch for a vendor and period.
func CreateSettlement(svc SettlementService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}

		var req createSettlementRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		payment, err := svc.CreateBatch(ctx, req.VendorID, req.PeriodFrom, req.PeriodTo, req.Deductions)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, payment)
	}
}

// GetSettlement returns one payout batch.
func GetSettlement(svc SettlementService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id, err := parseSettlementID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		payment, err := svc.Get(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, payment)
	}
}

// ListSettlements returns a vendor's recent payout batches.
func ListSettlements(svc SettlementService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		vendorID, err := uuid.Parse(strings.TrimSpace(r.URL.Query().Get("vendor_id")))
		if err != nil {
			responses.WriteError(ctx, logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid vendor id"))
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		list, err := svc.ListForVendor(ctx, vendorID, limit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// SettlementTransition records the externally driven payout outcome.
func SettlementTransition(svc SettlementService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id, err := parseSettlementID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payment *models.VendorPayment
		switch action := strings.TrimSpace(chi.URLParam(r, "action")); action {
		case "processing":
			payment, err = svc.MarkProcessing(ctx, id)
		case "paid":
			payment, err = svc.MarkPaid(ctx, id)
		case "failed":
			payment, err = svc.MarkFailed(ctx, id)
		default:
			err = pkgerrors.New(pkgerrors.CodeValidation, "unknown settlement action").
				WithDetails(map[string]any{"action": action})
		}
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, payment)
	}
}

func parseSettlementID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "settlementID")))
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid settlement id")
	}
	return id, nil
}
