package utils

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestCalculateLineAmount_NoDiscount(t *testing.T) {
	// 4 cases of 12 boxes at 100 per box
	amount := CalculateLineAmount(4, 12, d("100"), decimal.Zero)
	if !amount.Equal(d("4800")) {
		t.Fatalf("expected 4800, got %s", amount)
	}
}

func TestCalculateLineAmount_WithDiscount(t *testing.T) {
	amount := CalculateLineAmount(4, 12, d("99.5"), d("2.5"))
	if !amount.Equal(d("4656.6")) {
		t.Fatalf("expected 4656.6, got %s", amount)
	}
}

func TestCalculateBookingTotals_FullPipeline(t *testing.T) {
	totals := CalculateBookingTotals(d("4800"), TotalsPolicy{
		PackingEnabled:            true,
		PackingPercent:            d("3"),
		ExtraAmount:               d("56"),
		AdditionalDiscountPercent: d("2"),
		IgstEnabled:               true,
	})

	if !totals.PackingAmount.Equal(d("144")) {
		t.Errorf("packing: expected 144, got %s", totals.PackingAmount)
	}
	if !totals.AdditionalDiscountAmount.Equal(d("100")) {
		t.Errorf("additional discount: expected 100, got %s", totals.AdditionalDiscountAmount)
	}
	if !totals.TaxableAmount.Equal(d("4900")) {
		t.Errorf("taxable: expected 4900, got %s", totals.TaxableAmount)
	}
	if !totals.IgstAmount.Equal(d("882")) {
		t.Errorf("igst: expected 882, got %s", totals.IgstAmount)
	}
	if !totals.GrandTotal.Equal(d("5782")) {
		t.Errorf("grand total: expected 5782, got %s", totals.GrandTotal)
	}
	if !totals.RoundOff.IsZero() {
		t.Errorf("round off: expected 0, got %s", totals.RoundOff)
	}
}

func TestCalculateBookingTotals_CgstSgstSplit(t *testing.T) {
	totals := CalculateBookingTotals(d("1000"), TotalsPolicy{CgstSgstEnabled: true})

	if !totals.CgstAmount.Equal(d("90")) || !totals.SgstAmount.Equal(d("90")) {
		t.Errorf("expected 90 + 90, got %s + %s", totals.CgstAmount, totals.SgstAmount)
	}
	if !totals.TaxAmount.Equal(d("180")) {
		t.Errorf("tax: expected 180, got %s", totals.TaxAmount)
	}
	if !totals.IgstAmount.IsZero() {
		t.Errorf("igst must stay zero when cgst+sgst is selected, got %s", totals.IgstAmount)
	}
}

func TestCalculateBookingTotals_RoundOff(t *testing.T) {
	// 4656.6 taxable + 18% = 5494.788, grand total rounds up to 5495
	totals := CalculateBookingTotals(d("4656.6"), TotalsPolicy{IgstEnabled: true})

	if !totals.GrandTotal.Equal(d("5495")) {
		t.Errorf("grand total: expected 5495, got %s", totals.GrandTotal)
	}
	if !totals.RoundOff.Equal(d("0.212")) {
		t.Errorf("round off: expected 0.212, got %s", totals.RoundOff)
	}
	// stored pieces must reconcile exactly
	if !totals.TaxableAmount.Add(totals.TaxAmount).Add(totals.RoundOff).Equal(totals.GrandTotal) {
		t.Errorf("taxable + tax + roundOff != grandTotal")
	}
}

func TestCalculateBookingTotals_HalfRoundsAwayFromZero(t *testing.T) {
	totals := CalculateBookingTotals(d("100.5"), TotalsPolicy{})
	if !totals.GrandTotal.Equal(d("101")) {
		t.Errorf("expected 101, got %s", totals.GrandTotal)
	}
}

func TestCalculateBookingTotals_NoCharges(t *testing.T) {
	totals := CalculateBookingTotals(d("4800"), TotalsPolicy{})
	if !totals.GrandTotal.Equal(d("4800")) || !totals.TaxAmount.IsZero() || !totals.PackingAmount.IsZero() {
		t.Errorf("plain booking must pass sub total through, got %+v", totals)
	}
}

func TestSortedUniqueInts(t *testing.T) {
	got := SortedUniqueInts([]int{7, 3, 7, 1, 3})
	want := []int{1, 3, 7}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}
