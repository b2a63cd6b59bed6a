package models

import (
	"context"
	"fmt"
	"os"

	"github.com/bsm/redislock"
	"github.com/mmsoftworks/godown_backend/config"
	"github.com/mmsoftworks/godown_backend/docgen"
	"github.com/mmsoftworks/godown_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const bookingModule = "bookingService"

// BookingService runs every booking mutation as one transaction: stock
// deduction, totals, bill numbering, document generation and persistence
// either all commit or all roll back. The handle is passed in explicitly
// at construction instead of being read from a global.
type BookingService struct {
	db     *gorm.DB
	logger *logrus.Logger
	docs   docgen.Generator
	rates  RateCatalog
}

func NewBookingService(db *gorm.DB, logger *logrus.Logger, docs docgen.Generator, rates RateCatalog) *BookingService {
	return &BookingService{
		db:     db,
		logger: logger,
		docs:   docs,
		rates:  rates,
	}
}

// lockGodowns takes the advisory redis locks of every godown holding the
// given stock items. Locks are acquired in ascending godown id order.
func (s *BookingService) lockGodowns(ctx context.Context, stockIds []int, funcName string) ([]*redislock.Lock, error) {
	var godownIds []int
	err := s.db.WithContext(ctx).Model(&StockItem{}).
		Where("id IN ?", utils.SortedUniqueInts(stockIds)).
		Order("godown_id").
		Distinct().
		Pluck("godown_id", &godownIds).Error
	if err != nil {
		return nil, err
	}

	var locks []*redislock.Lock
	for _, godownId := range godownIds {
		lock, err := utils.GodownLock(ctx, godownId, bookingModule, funcName)
		if err != nil {
			for _, held := range locks {
				utils.ReleaseLock(ctx, held)
			}
			return nil, err
		}
		locks = append(locks, lock)
	}
	return locks, nil
}

func releaseGodownLocks(ctx context.Context, locks []*redislock.Lock) {
	for _, lock := range locks {
		utils.ReleaseLock(ctx, lock)
	}
}

// buildLineItems snapshots stock item fields into bill lines, resolves
// blank rates through the catalog and, when deduct is set, takes the cases
// out of stock. Rows in lockedStock are already locked FOR UPDATE.
func (s *BookingService) buildLineItems(
	ctx context.Context,
	tx *gorm.DB,
	inputItems []NewBookingLineItem,
	lockedStock map[int]*StockItem,
	godownNames map[int]string,
	customerName string,
	reason string,
	deduct bool,
) ([]BookingLineItem, decimal.Decimal, int, error) {

	lineItems := make([]BookingLineItem, 0, len(inputItems))
	subTotal := decimal.Zero
	totalCases := 0

	for i, inputItem := range inputItems {
		stockItem, ok := lockedStock[inputItem.StockId]
		if !ok {
			return nil, decimal.Zero, 0, fmt.Errorf("%w: stock item %d", utils.ErrorRecordNotFound, inputItem.StockId)
		}

		rate := inputItem.RatePerBox
		if rate.IsZero() {
			var err error
			rate, err = s.rates.LookupRate(ctx, stockItem.ProductType, stockItem.ProductName, stockItem.Brand)
			if err != nil {
				return nil, decimal.Zero, 0, err
			}
		}

		amount := utils.CalculateLineAmount(inputItem.Cases, stockItem.PerCase, rate, inputItem.DiscountPercent)

		lineItems = append(lineItems, BookingLineItem{
			SNo:             i + 1,
			StockId:         stockItem.ID,
			ProductType:     stockItem.ProductType,
			ProductName:     stockItem.ProductName,
			Brand:           stockItem.Brand,
			GodownName:      godownNames[stockItem.GodownId],
			Cases:           inputItem.Cases,
			PerCase:         stockItem.PerCase,
			RatePerBox:      rate,
			DiscountPercent: inputItem.DiscountPercent,
			Amount:          amount,
		})
		subTotal = subTotal.Add(amount)
		totalCases += inputItem.Cases

		if deduct {
			if err := DeductStockCases(tx, stockItem.ID, inputItem.Cases, customerName, reason); err != nil {
				return nil, decimal.Zero, 0, err
			}
		}
	}

	return lineItems, subTotal, totalCases, nil
}

func (s *BookingService) godownNames(ctx context.Context, lockedStock map[int]*StockItem) (map[int]string, error) {
	var godownIds []int
	for _, stockItem := range lockedStock {
		godownIds = append(godownIds, stockItem.GodownId)
	}

	var godowns []Godown
	if err := s.db.WithContext(ctx).Where("id IN ?", utils.SortedUniqueInts(godownIds)).Find(&godowns).Error; err != nil {
		return nil, err
	}
	names := make(map[int]string, len(godowns))
	for _, godown := range godowns {
		names[godown.ID] = godown.Name
	}
	return names, nil
}

// lockBookingRow takes a FOR UPDATE lock on the booking and loads its lines
// inside the given transaction. Mutations of an existing booking serialize
// here, so a snapshot read before the transaction can never go stale
// between check and restore.
func lockBookingRow(tx *gorm.DB, id int) (*Booking, error) {
	var booking Booking
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&booking, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: booking %d", utils.ErrorRecordNotFound, id)
		}
		return nil, err
	}
	if err := tx.Where("booking_id = ?", booking.ID).Order("s_no").Find(&booking.Items).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

func invoiceData(booking *Booking, totals utils.BookingTotals) *docgen.InvoiceData {
	lines := make([]docgen.InvoiceLine, 0, len(booking.Items))
	for _, item := range booking.Items {
		lines = append(lines, docgen.InvoiceLine{
			SNo:             item.SNo,
			ProductName:     item.ProductName,
			Brand:           item.Brand,
			GodownName:      item.GodownName,
			Cases:           item.Cases,
			PerCase:         item.PerCase,
			RatePerBox:      item.RatePerBox,
			DiscountPercent: item.DiscountPercent,
			Amount:          item.Amount,
		})
	}
	return &docgen.InvoiceData{
		BillNumber:               booking.BillNumber,
		BillDate:                 booking.BillDate,
		CustomerName:             booking.CustomerName,
		CustomerPhone:            booking.CustomerPhone,
		Transport:                booking.Transport,
		Destination:              booking.Destination,
		Route:                    booking.Route,
		Lines:                    lines,
		TotalCases:               booking.TotalCases,
		SubTotal:                 totals.SubTotal,
		PackingAmount:            totals.PackingAmount,
		ExtraAmount:              totals.ExtraAmount,
		AdditionalDiscountAmount: totals.AdditionalDiscountAmount,
		CgstAmount:               totals.CgstAmount,
		SgstAmount:               totals.SgstAmount,
		IgstAmount:               totals.IgstAmount,
		RoundOff:                 totals.RoundOff,
		GrandTotal:               totals.GrandTotal,
		FromChallan:              booking.FromChallan,
		ChallanNumber:            booking.ChallanNumber,
	}
}

func applyTotals(booking *Booking, totals utils.BookingTotals) {
	booking.SubTotal = totals.SubTotal
	booking.PackingAmount = totals.PackingAmount
	booking.ExtraAmount = totals.ExtraAmount
	booking.AdditionalDiscountAmount = totals.AdditionalDiscountAmount
	booking.TaxAmount = totals.TaxAmount
	booking.RoundOff = totals.RoundOff
	booking.GrandTotal = totals.GrandTotal
}

// CreateBooking confirms a direct sale: stock is deducted, totals and bill
// number computed, the bill document rendered, and the booking persisted
// atomically.
func (s *BookingService) CreateBooking(ctx context.Context, input *NewBooking) (*Booking, error) {
	if err := input.validate(ctx); err != nil {
		return nil, err
	}

	locks, err := s.lockGodowns(ctx, input.stockIds(), "CreateBooking")
	if err != nil {
		return nil, err
	}
	defer releaseGodownLocks(ctx, locks)

	tx := s.db.WithContext(ctx).Begin()
	// always rollback on early-return or panic to avoid leaking row locks
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback().Error
			panic(r)
		}
	}()
	defer func() { _ = tx.Rollback().Error }()

	lockedStock, err := LockStockRows(tx, input.stockIds())
	if err != nil {
		return nil, err
	}
	names, err := s.godownNames(ctx, lockedStock)
	if err != nil {
		return nil, err
	}

	lineItems, subTotal, totalCases, err := s.buildLineItems(ctx, tx, input.Items, lockedStock, names, input.CustomerName, StockReasonBooking, true)
	if err != nil {
		return nil, err
	}

	totals := utils.CalculateBookingTotals(subTotal, input.totalsPolicy())

	billNumber, _, err := NextBillNumber(tx, BillSeriesBooking)
	if err != nil {
		return nil, err
	}

	settings, err := utils.MarshalToJSON(input.totalsPolicy())
	if err != nil {
		return nil, err
	}

	booking := Booking{
		BillNumber:    billNumber,
		BillDate:      input.BillDate,
		CustomerName:  input.CustomerName,
		CustomerPhone: input.CustomerPhone,
		Transport:     input.Transport,
		Destination:   input.Destination,
		Route:         input.Route,
		Items:         lineItems,
		TotalCases:    totalCases,
		Settings:      settings,
	}
	applyTotals(&booking, totals)

	pdfPath, err := s.docs.Generate(invoiceData(&booking, totals))
	if err != nil {
		config.LogError(s.logger, bookingModule, "CreateBooking", "Error generating bill document", billNumber, err)
		return nil, err
	}
	booking.PdfPath = pdfPath

	if err := tx.Create(&booking).Error; err != nil {
		config.LogError(s.logger, bookingModule, "CreateBooking", "Error creating booking", input, err)
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		config.LogError(s.logger, bookingModule, "CreateBooking", "Error committing booking", billNumber, err)
		return nil, err
	}

	return &booking, nil
}

// UpdateBooking replays a bill: every old line is restored, then the new
// lines run through the same pipeline as creation. The bill number is kept;
// the document is regenerated under a fresh file identity.
func (s *BookingService) UpdateBooking(ctx context.Context, id int, input *NewBooking) (*Booking, error) {
	if err := input.validate(ctx); err != nil {
		return nil, err
	}

	existing, err := GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.FromChallan {
		return nil, utils.ErrorBookingFromChallan
	}

	locks, err := s.lockGodowns(ctx, utils.MergeIntSlices(existing.stockIds(), input.stockIds()), "UpdateBooking")
	if err != nil {
		return nil, err
	}
	defer releaseGodownLocks(ctx, locks)

	tx := s.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback().Error
			panic(r)
		}
	}()
	defer func() { _ = tx.Rollback().Error }()

	// Re-read under lock: the snapshot above is stale if a concurrent
	// edit or delete won the race for this booking.
	current, err := lockBookingRow(tx, id)
	if err != nil {
		return nil, err
	}
	if current.FromChallan {
		return nil, utils.ErrorBookingFromChallan
	}

	lockedStock, err := LockStockRows(tx, utils.MergeIntSlices(current.stockIds(), input.stockIds()))
	if err != nil {
		return nil, err
	}
	names, err := s.godownNames(ctx, lockedStock)
	if err != nil {
		return nil, err
	}

	// put every old line back before re-deducting
	for _, oldItem := range current.Items {
		if err := RestoreStockCases(tx, oldItem.StockId, oldItem.Cases, StockReasonBookingEdit); err != nil {
			return nil, err
		}
	}

	lineItems, subTotal, totalCases, err := s.buildLineItems(ctx, tx, input.Items, lockedStock, names, input.CustomerName, StockReasonBooking, true)
	if err != nil {
		return nil, err
	}

	totals := utils.CalculateBookingTotals(subTotal, input.totalsPolicy())

	settings, err := utils.MarshalToJSON(input.totalsPolicy())
	if err != nil {
		return nil, err
	}

	booking := Booking{
		ID:            current.ID,
		BillNumber:    current.BillNumber,
		BillDate:      input.BillDate,
		CustomerName:  input.CustomerName,
		CustomerPhone: input.CustomerPhone,
		Transport:     input.Transport,
		Destination:   input.Destination,
		Route:         input.Route,
		TotalCases:    totalCases,
		Settings:      settings,
		CreatedAt:     current.CreatedAt,
	}
	applyTotals(&booking, totals)

	for i := range lineItems {
		lineItems[i].BookingId = current.ID
	}
	booking.Items = lineItems

	pdfPath, err := s.docs.Generate(invoiceData(&booking, totals))
	if err != nil {
		config.LogError(s.logger, bookingModule, "UpdateBooking", "Error regenerating bill document", current.BillNumber, err)
		return nil, err
	}
	booking.PdfPath = pdfPath

	if err := tx.Where("booking_id = ?", current.ID).Delete(&BookingLineItem{}).Error; err != nil {
		return nil, err
	}
	if err := tx.Session(&gorm.Session{FullSaveAssociations: true}).Save(&booking).Error; err != nil {
		config.LogError(s.logger, bookingModule, "UpdateBooking", "Error saving booking", input, err)
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		config.LogError(s.logger, bookingModule, "UpdateBooking", "Error committing booking update", current.BillNumber, err)
		return nil, err
	}

	s.removeDocument(current.PdfPath, "UpdateBooking")

	return &booking, nil
}

// DeleteBooking reverses a bill: every line's cases are restored to stock
// with fresh history rows, the bill and its lines are removed, and the
// document artifact discarded.
func (s *BookingService) DeleteBooking(ctx context.Context, id int) error {
	existing, err := GetBooking(ctx, id)
	if err != nil {
		return err
	}
	if existing.FromChallan {
		return utils.ErrorBookingFromChallan
	}

	locks, err := s.lockGodowns(ctx, existing.stockIds(), "DeleteBooking")
	if err != nil {
		return err
	}
	defer releaseGodownLocks(ctx, locks)

	tx := s.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback().Error
			panic(r)
		}
	}()
	defer func() { _ = tx.Rollback().Error }()

	// Re-read under lock. A concurrent delete that already committed must
	// surface as NotFound here, not restore the same cases a second time.
	current, err := lockBookingRow(tx, id)
	if err != nil {
		return err
	}

	if _, err := LockStockRows(tx, current.stockIds()); err != nil {
		return err
	}

	for _, item := range current.Items {
		if err := RestoreStockCases(tx, item.StockId, item.Cases, StockReasonBookingDelete); err != nil {
			return err
		}
	}

	if err := tx.Where("booking_id = ?", current.ID).Delete(&BookingLineItem{}).Error; err != nil {
		return err
	}
	if err := tx.Delete(&Booking{}, current.ID).Error; err != nil {
		config.LogError(s.logger, bookingModule, "DeleteBooking", "Error deleting booking", id, err)
		return err
	}

	if err := tx.Commit().Error; err != nil {
		config.LogError(s.logger, bookingModule, "DeleteBooking", "Error committing booking delete", current.BillNumber, err)
		return err
	}

	s.removeDocument(current.PdfPath, "DeleteBooking")

	return nil
}

// CreateChallan sends goods out against a delivery note. Stock leaves the
// godown now; the bill is cut later by ConvertChallan.
func (s *BookingService) CreateChallan(ctx context.Context, input *NewChallan) (*Challan, error) {
	if err := input.validate(ctx); err != nil {
		return nil, err
	}

	var stockIds []int
	for _, item := range input.Items {
		stockIds = append(stockIds, item.StockId)
	}

	locks, err := s.lockGodowns(ctx, stockIds, "CreateChallan")
	if err != nil {
		return nil, err
	}
	defer releaseGodownLocks(ctx, locks)

	tx := s.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback().Error
			panic(r)
		}
	}()
	defer func() { _ = tx.Rollback().Error }()

	lockedStock, err := LockStockRows(tx, stockIds)
	if err != nil {
		return nil, err
	}
	names, err := s.godownNames(ctx, lockedStock)
	if err != nil {
		return nil, err
	}

	challanNumber, _, err := NextBillNumber(tx, BillSeriesChallan)
	if err != nil {
		return nil, err
	}

	challanItems := make([]ChallanItem, 0, len(input.Items))
	for i, inputItem := range input.Items {
		stockItem := lockedStock[inputItem.StockId]

		rate := inputItem.RatePerBox
		if rate.IsZero() {
			rate, err = s.rates.LookupRate(ctx, stockItem.ProductType, stockItem.ProductName, stockItem.Brand)
			if err != nil {
				return nil, err
			}
		}

		challanItems = append(challanItems, ChallanItem{
			SNo:         i + 1,
			StockId:     stockItem.ID,
			ProductType: stockItem.ProductType,
			ProductName: stockItem.ProductName,
			Brand:       stockItem.Brand,
			GodownName:  names[stockItem.GodownId],
			Cases:       inputItem.Cases,
			PerCase:     stockItem.PerCase,
			RatePerBox:  rate,
		})

		if err := DeductStockCases(tx, stockItem.ID, inputItem.Cases, input.CustomerName, StockReasonChallan); err != nil {
			return nil, err
		}
	}

	challan := Challan{
		ChallanNumber: challanNumber,
		ChallanDate:   input.ChallanDate,
		CustomerName:  input.CustomerName,
		CustomerPhone: input.CustomerPhone,
		Transport:     input.Transport,
		Destination:   input.Destination,
		Route:         input.Route,
		Items:         challanItems,
	}
	if err := tx.Create(&challan).Error; err != nil {
		config.LogError(s.logger, bookingModule, "CreateChallan", "Error creating challan", input, err)
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		config.LogError(s.logger, bookingModule, "CreateChallan", "Error committing challan", challanNumber, err)
		return nil, err
	}

	return &challan, nil
}

// ConvertChallan turns an unconverted challan into a booking exactly once.
// Stock already left when the challan was created, so conversion deducts
// nothing; the challan row itself is locked to keep racing conversions to
// a single winner.
func (s *BookingService) ConvertChallan(ctx context.Context, challanId int) (*Booking, error) {
	tx := s.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback().Error
			panic(r)
		}
	}()
	defer func() { _ = tx.Rollback().Error }()

	var challan Challan
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&challan, challanId).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: challan %d", utils.ErrorRecordNotFound, challanId)
		}
		return nil, err
	}
	if challan.ConvertedToBill {
		return nil, fmt.Errorf("%w: challan %s", utils.ErrorChallanAlreadyConverted, challan.ChallanNumber)
	}

	if err := tx.Where("challan_id = ?", challan.ID).Order("s_no").Find(&challan.Items).Error; err != nil {
		return nil, err
	}

	lineItems := make([]BookingLineItem, 0, len(challan.Items))
	subTotal := decimal.Zero
	totalCases := 0
	for _, challanItem := range challan.Items {
		amount := utils.CalculateLineAmount(challanItem.Cases, challanItem.PerCase, challanItem.RatePerBox, decimal.Zero)
		lineItems = append(lineItems, BookingLineItem{
			SNo:         challanItem.SNo,
			StockId:     challanItem.StockId,
			ProductType: challanItem.ProductType,
			ProductName: challanItem.ProductName,
			Brand:       challanItem.Brand,
			GodownName:  challanItem.GodownName,
			Cases:       challanItem.Cases,
			PerCase:     challanItem.PerCase,
			RatePerBox:  challanItem.RatePerBox,
			Amount:      amount,
		})
		subTotal = subTotal.Add(amount)
		totalCases += challanItem.Cases
	}

	policy := utils.TotalsPolicy{}
	totals := utils.CalculateBookingTotals(subTotal, policy)

	settings, err := utils.MarshalToJSON(policy)
	if err != nil {
		return nil, err
	}

	booking := Booking{
		BillNumber:    ChallanBillNumber(challan.ChallanNumber),
		BillDate:      challan.ChallanDate,
		CustomerName:  challan.CustomerName,
		CustomerPhone: challan.CustomerPhone,
		Transport:     challan.Transport,
		Destination:   challan.Destination,
		Route:         challan.Route,
		Items:         lineItems,
		TotalCases:    totalCases,
		Settings:      settings,
		FromChallan:   true,
		ChallanNumber: challan.ChallanNumber,
	}
	applyTotals(&booking, totals)

	pdfPath, err := s.docs.Generate(invoiceData(&booking, totals))
	if err != nil {
		config.LogError(s.logger, bookingModule, "ConvertChallan", "Error generating bill document", challan.ChallanNumber, err)
		return nil, err
	}
	booking.PdfPath = pdfPath

	if err := tx.Create(&booking).Error; err != nil {
		config.LogError(s.logger, bookingModule, "ConvertChallan", "Error creating booking from challan", challan.ChallanNumber, err)
		return nil, err
	}
	if err := tx.Model(&challan).Update("converted_to_bill", true).Error; err != nil {
		config.LogError(s.logger, bookingModule, "ConvertChallan", "Error flagging challan converted", challan.ChallanNumber, err)
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		config.LogError(s.logger, bookingModule, "ConvertChallan", "Error committing challan conversion", challan.ChallanNumber, err)
		return nil, err
	}

	return &booking, nil
}

// removeDocument discards an orphaned bill artifact after commit. Failure
// leaves a stray file, not an inconsistent ledger, so it is only logged.
func (s *BookingService) removeDocument(path string, funcName string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		config.LogError(s.logger, bookingModule, funcName, "Error removing bill document", path, err)
	}
}
