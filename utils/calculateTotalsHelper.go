package utils

import (
	"github.com/shopspring/decimal"
)

var (
	decimalOneHundred = decimal.NewFromInt(100)

	IgstRate = decimal.NewFromInt(18)
	CgstRate = decimal.NewFromInt(9)
	SgstRate = decimal.NewFromInt(9)
)

// TotalsPolicy holds the per-booking charge switches captured on the bill.
type TotalsPolicy struct {
	PackingEnabled            bool            `json:"packing_enabled"`
	PackingPercent            decimal.Decimal `json:"packing_percent"`
	ExtraAmount               decimal.Decimal `json:"extra_amount"`
	AdditionalDiscountPercent decimal.Decimal `json:"additional_discount_percent"`
	IgstEnabled               bool            `json:"igst_enabled"`
	CgstSgstEnabled           bool            `json:"cgst_sgst_enabled"`
}

type BookingTotals struct {
	SubTotal                 decimal.Decimal
	PackingAmount            decimal.Decimal
	ExtraAmount              decimal.Decimal
	AdditionalDiscountAmount decimal.Decimal
	TaxableAmount            decimal.Decimal
	CgstAmount               decimal.Decimal
	SgstAmount               decimal.Decimal
	IgstAmount               decimal.Decimal
	TaxAmount                decimal.Decimal
	RoundOff                 decimal.Decimal
	GrandTotal               decimal.Decimal
}

// CalculateLineAmount computes one line's amount:
// cases * perCase boxes, priced per box, less the line discount percent.
func CalculateLineAmount(cases int, perCase int, ratePerBox decimal.Decimal, discountPercent decimal.Decimal) decimal.Decimal {
	quantity := decimal.NewFromInt(int64(cases) * int64(perCase))
	amount := quantity.Mul(ratePerBox)
	if discountPercent.GreaterThan(decimal.Zero) {
		discountAmount := amount.Mul(discountPercent).DivRound(decimalOneHundred, 4)
		amount = amount.Sub(discountAmount)
	}
	return amount
}

// CalculateBookingTotals applies the charge pipeline over the summed line
// amounts: packing percent, flat extra, additional discount percent, then
// GST. The grand total is rounded to the nearest whole amount (half away
// from zero) and the difference is kept as RoundOff.
func CalculateBookingTotals(subTotal decimal.Decimal, policy TotalsPolicy) BookingTotals {
	totals := BookingTotals{SubTotal: subTotal}

	taxable := subTotal
	if policy.PackingEnabled && policy.PackingPercent.GreaterThan(decimal.Zero) {
		totals.PackingAmount = subTotal.Mul(policy.PackingPercent).DivRound(decimalOneHundred, 4)
		taxable = taxable.Add(totals.PackingAmount)
	}
	if policy.ExtraAmount.GreaterThan(decimal.Zero) {
		totals.ExtraAmount = policy.ExtraAmount
		taxable = taxable.Add(policy.ExtraAmount)
	}
	if policy.AdditionalDiscountPercent.GreaterThan(decimal.Zero) {
		totals.AdditionalDiscountAmount = taxable.Mul(policy.AdditionalDiscountPercent).DivRound(decimalOneHundred, 4)
		taxable = taxable.Sub(totals.AdditionalDiscountAmount)
	}
	totals.TaxableAmount = taxable

	// IGST and CGST+SGST are mutually exclusive; input validation enforces it.
	if policy.IgstEnabled {
		totals.IgstAmount = taxable.Mul(IgstRate).DivRound(decimalOneHundred, 4)
		totals.TaxAmount = totals.IgstAmount
	} else if policy.CgstSgstEnabled {
		totals.CgstAmount = taxable.Mul(CgstRate).DivRound(decimalOneHundred, 4)
		totals.SgstAmount = taxable.Mul(SgstRate).DivRound(decimalOneHundred, 4)
		totals.TaxAmount = totals.CgstAmount.Add(totals.SgstAmount)
	}

	exact := taxable.Add(totals.TaxAmount)
	totals.GrandTotal = exact.Round(0)
	totals.RoundOff = totals.GrandTotal.Sub(exact)

	return totals
}
