package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mmsoftworks/godown_backend/config"
	"github.com/mmsoftworks/godown_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Challan is a delivery note: goods leave the godown when it is created,
// billing happens later through conversion. ConvertedToBill flips exactly
// once; the converted booking is immutable.
type Challan struct {
	ID              int           `gorm:"primary_key" json:"id"`
	ChallanNumber   string        `gorm:"size:100;uniqueIndex;not null" json:"challan_number"`
	ChallanDate     time.Time     `gorm:"not null" json:"challan_date"`
	CustomerName    string        `gorm:"size:100;not null" json:"customer_name"`
	CustomerPhone   string        `gorm:"size:20" json:"customer_phone"`
	Transport       string        `gorm:"size:100" json:"transport"`
	Destination     string        `gorm:"size:100" json:"destination"`
	Route           string        `gorm:"size:100" json:"route"`
	Items           []ChallanItem `gorm:"foreignKey:ChallanId" json:"items"`
	ConvertedToBill bool          `gorm:"default:false" json:"converted_to_bill"`
	CreatedAt       time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}

type ChallanItem struct {
	ID          int             `gorm:"primary_key" json:"id"`
	ChallanId   int             `gorm:"index;not null" json:"challan_id"`
	SNo         int             `gorm:"not null" json:"s_no"`
	StockId     int             `gorm:"index;not null" json:"stock_id"`
	ProductType string          `gorm:"size:100" json:"product_type"`
	ProductName string          `gorm:"size:100;not null" json:"product_name"`
	Brand       string          `gorm:"size:100" json:"brand"`
	GodownName  string          `gorm:"size:100" json:"godown_name"`
	Cases       int             `gorm:"not null" json:"cases"`
	PerCase     int             `gorm:"not null" json:"per_case"`
	RatePerBox  decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"rate_per_box"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewChallan struct {
	CustomerName  string               `json:"customer_name" binding:"required"`
	CustomerPhone string               `json:"customer_phone"`
	Transport     string               `json:"transport"`
	Destination   string               `json:"destination" binding:"required"`
	Route         string               `json:"route"`
	ChallanDate   time.Time            `json:"challan_date" binding:"required"`
	Items         []NewBookingLineItem `json:"items" binding:"required,dive"`
}

func (input *NewChallan) validate(ctx context.Context) error {
	if len(input.Items) == 0 {
		return fmt.Errorf("%w: challan needs at least one item", utils.ErrorValidation)
	}
	var stockIds []int
	for _, item := range input.Items {
		if item.Cases <= 0 {
			return fmt.Errorf("%w: cases must be greater than zero", utils.ErrorValidation)
		}
		stockIds = append(stockIds, item.StockId)
	}
	if input.CustomerPhone != "" {
		if err := utils.ValidatePhoneNumber(input.CustomerPhone, utils.CountryCode); err != nil {
			return fmt.Errorf("%w: %s", utils.ErrorValidation, err.Error())
		}
	}
	if err := utils.ValidateResourcesId[StockItem](ctx, stockIds); err != nil {
		return err
	}
	return nil
}

func GetChallan(ctx context.Context, id int) (*Challan, error) {
	db := config.GetDB()

	var challan Challan
	err := db.WithContext(ctx).Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("s_no")
	}).First(&challan, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &challan, nil
}

// GetChallans lists challans newest first, optionally only unconverted ones.
func GetChallans(ctx context.Context, pendingOnly bool) ([]*Challan, error) {
	db := config.GetDB()

	dbCtx := db.WithContext(ctx).Preload("Items")
	if pendingOnly {
		dbCtx = dbCtx.Where("converted_to_bill = ?", false)
	}
	var challans []*Challan
	if err := dbCtx.Order("challan_date DESC, id DESC").Find(&challans).Error; err != nil {
		return nil, err
	}
	return challans, nil
}
