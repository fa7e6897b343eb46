package pricing

import (
	"github.com/shopspring/decimal"

	pkgerrors "github.com/arjunmehra/bazaarcart-backend/pkg/errors"
)

var hundred = decimal.NewFromInt(100)

// LineInput carries the per-line figures frozen from catalog state at the
// moment of checkout.
type LineInput struct {
	SellingPrice       decimal.Decimal
	MRP                decimal.Decimal
	VendorDiscountPct  decimal.Decimal
	WebsiteDiscountPct decimal.Decimal
	CommissionPct      decimal.Decimal
	Quantity           int
}

// LineQuote is the priced outcome for a single order line. All values are
// rounded to two places only as the final step; intermediate math keeps full
// precision.
type LineQuote struct {
	UnitPrice       decimal.Decimal
	VendorDiscount  decimal.Decimal
	WebsiteDiscount decimal.Decimal
	LineTotal       decimal.Decimal
	Commission      decimal.Decimal
	VendorEarning   decimal.Decimal
}

// Compute prices one line: discounts off the selling price, line total,
// platform commission, and the vendor's earning after commission.
//
// Compute does not reject configurations whose combined discounts exceed
// 100%; the resulting unit price goes negative. Rejecting such listings is
// the caller's validation contract (see ValidateDiscounts).
func Compute(in LineInput) LineQuote {
	qty := decimal.NewFromInt(int64(in.Quantity))

	vendorDiscount := in.SellingPrice.Mul(in.VendorDiscountPct).Div(hundred)
	websiteDiscount := in.SellingPrice.Mul(in.WebsiteDiscountPct).Div(hundred)
	unitPrice := in.SellingPrice.Sub(vendorDiscount).Sub(websiteDiscount)
	lineTotal := unitPrice.Mul(qty)
	commission := lineTotal.Mul(in.CommissionPct).Div(hundred)
	vendorEarning := lineTotal.Sub(commission)

	return LineQuote{
		UnitPrice:       unitPrice.Round(2),
		VendorDiscount:  vendorDiscount.Round(2),
		WebsiteDiscount: websiteDiscount.Round(2),
		LineTotal:       lineTotal.Round(2),
		Commission:      commission.Round(2),
		VendorEarning:   vendorEarning.Round(2),
	}
}

// ValidateDiscounts enforces the caller-side contract the calculator leaves
// open: combined vendor and website discounts must not exceed 100%.
func ValidateDiscounts(vendorPct, websitePct decimal.Decimal) error {
	if vendorPct.IsNegative() || websitePct.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "discount percentages cannot be negative")
	}
	if vendorPct.Add(websitePct).GreaterThan(hundred) {
		return pkgerrors.New(pkgerrors.CodeValidation, "combined discounts exceed 100%").
			WithDetails(map[string]any{
				"vendor_discount_pct":  vendorPct.String(),
				"website_discount_pct": websitePct.String(),
			})
	}
	return nil
}
