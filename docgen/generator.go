package docgen

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var ErrorRender = errors.New("document render failed")

type InvoiceLine struct {
	SNo             int
	ProductName     string
	Brand           string
	GodownName      string
	Cases           int
	PerCase         int
	RatePerBox      decimal.Decimal
	DiscountPercent decimal.Decimal
	Amount          decimal.Decimal
}

// InvoiceData carries everything printed on a bill. It is a snapshot; the
// generator never reads the database.
type InvoiceData struct {
	BillNumber               string
	BillDate                 time.Time
	CustomerName             string
	CustomerPhone            string
	Transport                string
	Destination              string
	Route                    string
	Lines                    []InvoiceLine
	TotalCases               int
	SubTotal                 decimal.Decimal
	PackingAmount            decimal.Decimal
	ExtraAmount              decimal.Decimal
	AdditionalDiscountAmount decimal.Decimal
	CgstAmount               decimal.Decimal
	SgstAmount               decimal.Decimal
	IgstAmount               decimal.Decimal
	RoundOff                 decimal.Decimal
	GrandTotal               decimal.Decimal
	FromChallan              bool
	ChallanNumber            string
}

// Generator renders a bill document and returns the stored file path.
// A failed render must fail the surrounding booking transaction, so
// implementations return ErrorRender-wrapped errors instead of logging
// and swallowing them.
type Generator interface {
	Generate(data *InvoiceData) (string, error)
}
