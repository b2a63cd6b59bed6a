package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mmsoftworks/godown_backend/config"
	"github.com/mmsoftworks/godown_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Booking is one confirmed sale bill. Line items are frozen snapshots of
// the stock items at booking time; later catalog or stock edits never
// change a bill that was already cut.
type Booking struct {
	ID                       int               `gorm:"primary_key" json:"id"`
	BillNumber               string            `gorm:"size:100;uniqueIndex;not null" json:"bill_number"`
	BillDate                 time.Time         `gorm:"not null" json:"bill_date"`
	CustomerName             string            `gorm:"size:100;not null" json:"customer_name"`
	CustomerPhone            string            `gorm:"size:20" json:"customer_phone"`
	Transport                string            `gorm:"size:100" json:"transport"`
	Destination              string            `gorm:"size:100" json:"destination"`
	Route                    string            `gorm:"size:100" json:"route"`
	Items                    []BookingLineItem `gorm:"foreignKey:BookingId" json:"items"`
	TotalCases               int               `gorm:"not null;default:0" json:"total_cases"`
	SubTotal                 decimal.Decimal   `gorm:"type:decimal(20,4);default:0" json:"sub_total"`
	PackingAmount            decimal.Decimal   `gorm:"type:decimal(20,4);default:0" json:"packing_amount"`
	ExtraAmount              decimal.Decimal   `gorm:"type:decimal(20,4);default:0" json:"extra_amount"`
	AdditionalDiscountAmount decimal.Decimal   `gorm:"type:decimal(20,4);default:0" json:"additional_discount_amount"`
	TaxAmount                decimal.Decimal   `gorm:"type:decimal(20,4);default:0" json:"tax_amount"`
	RoundOff                 decimal.Decimal   `gorm:"type:decimal(20,4);default:0" json:"round_off"`
	GrandTotal               decimal.Decimal   `gorm:"type:decimal(20,4);default:0" json:"grand_total"`
	Settings                 string            `gorm:"type:text" json:"settings"`
	FromChallan              bool              `gorm:"default:false" json:"from_challan"`
	ChallanNumber            string            `gorm:"size:100" json:"challan_number"`
	PdfPath                  string            `gorm:"size:255" json:"pdf_path"`
	CreatedAt                time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt                time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

type BookingLineItem struct {
	ID              int             `gorm:"primary_key" json:"id"`
	BookingId       int             `gorm:"index;not null" json:"booking_id"`
	SNo             int             `gorm:"not null" json:"s_no"`
	StockId         int             `gorm:"index;not null" json:"stock_id"`
	ProductType     string          `gorm:"size:100" json:"product_type"`
	ProductName     string          `gorm:"size:100;not null" json:"product_name"`
	Brand           string          `gorm:"size:100" json:"brand"`
	GodownName      string          `gorm:"size:100" json:"godown_name"`
	Cases           int             `gorm:"not null" json:"cases"`
	PerCase         int             `gorm:"not null" json:"per_case"`
	RatePerBox      decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"rate_per_box"`
	DiscountPercent decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"discount_percent"`
	Amount          decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewBooking struct {
	CustomerName              string               `json:"customer_name" binding:"required"`
	CustomerPhone             string               `json:"customer_phone"`
	Transport                 string               `json:"transport"`
	Destination               string               `json:"destination" binding:"required"`
	Route                     string               `json:"route" binding:"required"`
	BillDate                  time.Time            `json:"bill_date" binding:"required"`
	Items                     []NewBookingLineItem `json:"items" binding:"required,dive"`
	PackingEnabled            bool                 `json:"packing_enabled"`
	PackingPercent            decimal.Decimal      `json:"packing_percent"`
	ExtraAmount               decimal.Decimal      `json:"extra_amount"`
	AdditionalDiscountPercent decimal.Decimal      `json:"additional_discount_percent"`
	IgstEnabled               bool                 `json:"igst_enabled"`
	CgstSgstEnabled           bool                 `json:"cgst_sgst_enabled"`
}

type NewBookingLineItem struct {
	StockId         int             `json:"stock_id" binding:"required"`
	Cases           int             `json:"cases" binding:"required"`
	RatePerBox      decimal.Decimal `json:"rate_per_box"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
}

func (input *NewBooking) validate(ctx context.Context) error {
	if strings.TrimSpace(input.CustomerName) == "" {
		return fmt.Errorf("%w: customer name is required", utils.ErrorValidation)
	}
	if strings.TrimSpace(input.Destination) == "" {
		return fmt.Errorf("%w: destination is required", utils.ErrorValidation)
	}
	if strings.TrimSpace(input.Route) == "" {
		return fmt.Errorf("%w: route is required", utils.ErrorValidation)
	}
	if len(input.Items) == 0 {
		return fmt.Errorf("%w: booking needs at least one item", utils.ErrorValidation)
	}
	for _, item := range input.Items {
		if item.Cases <= 0 {
			return fmt.Errorf("%w: cases must be greater than zero", utils.ErrorValidation)
		}
		if item.RatePerBox.IsNegative() {
			return fmt.Errorf("%w: rate cannot be negative", utils.ErrorValidation)
		}
		if item.DiscountPercent.IsNegative() || item.DiscountPercent.GreaterThan(decimal.NewFromInt(100)) {
			return fmt.Errorf("%w: discount percent must be between 0 and 100", utils.ErrorValidation)
		}
	}
	if input.IgstEnabled && input.CgstSgstEnabled {
		return fmt.Errorf("%w: igst and cgst+sgst cannot both be selected", utils.ErrorValidation)
	}
	if input.CustomerPhone != "" {
		if err := utils.ValidatePhoneNumber(input.CustomerPhone, utils.CountryCode); err != nil {
			return fmt.Errorf("%w: %s", utils.ErrorValidation, err.Error())
		}
	}

	var stockIds []int
	for _, item := range input.Items {
		stockIds = append(stockIds, item.StockId)
	}
	if err := utils.ValidateResourcesId[StockItem](ctx, stockIds); err != nil {
		return err
	}

	return nil
}

func (input *NewBooking) totalsPolicy() utils.TotalsPolicy {
	return utils.TotalsPolicy{
		PackingEnabled:            input.PackingEnabled,
		PackingPercent:            input.PackingPercent,
		ExtraAmount:               input.ExtraAmount,
		AdditionalDiscountPercent: input.AdditionalDiscountPercent,
		IgstEnabled:               input.IgstEnabled,
		CgstSgstEnabled:           input.CgstSgstEnabled,
	}
}

func (input *NewBooking) stockIds() []int {
	var ids []int
	for _, item := range input.Items {
		ids = append(ids, item.StockId)
	}
	return ids
}

func (booking *Booking) stockIds() []int {
	var ids []int
	for _, item := range booking.Items {
		ids = append(ids, item.StockId)
	}
	return ids
}

func GetBooking(ctx context.Context, id int) (*Booking, error) {
	db := config.GetDB()

	var booking Booking
	err := db.WithContext(ctx).Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("s_no")
	}).First(&booking, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &booking, nil
}

// GetBookings lists bills in a date range, newest first.
func GetBookings(ctx context.Context, fromDate time.Time, toDate time.Time) ([]*Booking, error) {
	db := config.GetDB()

	var bookings []*Booking
	dbCtx := db.WithContext(ctx).Preload("Items")
	if !fromDate.IsZero() {
		dbCtx = dbCtx.Where("bill_date >= ?", fromDate)
	}
	if !toDate.IsZero() {
		dbCtx = dbCtx.Where("bill_date <= ?", toDate)
	}
	err := dbCtx.Order("bill_date DESC, id DESC").Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}
