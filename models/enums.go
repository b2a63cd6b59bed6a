package models

type StockAction string

const (
	StockActionAdded StockAction = "added"
	StockActionTaken StockAction = "taken"
)

type BillSeries string

const (
	BillSeriesBooking BillSeries = "Booking"
	BillSeriesChallan BillSeries = "Challan"
)

// reasons recorded on stock history rows
const (
	StockReasonBooking       = "booking"
	StockReasonBookingEdit   = "booking edit"
	StockReasonBookingDelete = "booking delete"
	StockReasonChallan       = "challan"
	StockReasonRestock       = "restock"
	StockReasonOpening       = "opening stock"
)
