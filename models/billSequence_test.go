package models

import "testing"

// DB-free checks of the numbering scheme itself; concurrency behavior is
// covered by the docker-gated regression tests.

func TestChallanBillNumberIsDerived(t *testing.T) {
	if got := ChallanBillNumber("CH-7"); got != "CB-CH-7" {
		t.Fatalf("expected CB-CH-7, got %s", got)
	}
	// deterministic: same challan always maps to the same bill number
	if ChallanBillNumber("CH-7") != ChallanBillNumber("CH-7") {
		t.Fatalf("derivation must be deterministic")
	}
}

func TestSeriesPrefixes(t *testing.T) {
	if seriesPrefixes[BillSeriesBooking] == seriesPrefixes[BillSeriesChallan] {
		t.Fatalf("series must not share a prefix")
	}
}
