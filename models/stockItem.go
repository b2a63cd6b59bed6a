package models

import (
	"context"
	"errors"
	"time"

	"github.com/mmsoftworks/godown_backend/config"
	"github.com/mmsoftworks/godown_backend/utils"
)

// StockItem is one product line held in a godown, counted in whole cases.
// PerCase (boxes per case) is fixed at creation; quantities only move
// through the ledger functions in stockLedger.go.
type StockItem struct {
	ID            int        `gorm:"primary_key" json:"id"`
	GodownId      int        `gorm:"index;not null" json:"godown_id"`
	Godown        *Godown    `json:"godown,omitempty"`
	ProductType   string     `gorm:"size:100;not null" json:"product_type"`
	ProductName   string     `gorm:"size:100;not null" json:"product_name"`
	Brand         string     `gorm:"size:100" json:"brand"`
	PerCase       int        `gorm:"not null" json:"per_case"`
	CurrentCases  int        `gorm:"not null;default:0" json:"current_cases"`
	TakenCases    int        `gorm:"not null;default:0" json:"taken_cases"`
	LastTakenDate *time.Time `json:"last_taken_date"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewStockItem struct {
	GodownId    int    `json:"godown_id" binding:"required"`
	ProductType string `json:"product_type" binding:"required"`
	ProductName string `json:"product_name" binding:"required"`
	Brand       string `json:"brand"`
	PerCase     int    `json:"per_case" binding:"required"`
	Cases       int    `json:"cases"`
}

func (input *NewStockItem) validate(ctx context.Context) error {
	if input.PerCase <= 0 {
		return errors.New("per_case must be greater than zero")
	}
	if input.Cases < 0 {
		return errors.New("cases cannot be negative")
	}
	if err := utils.ValidateResourceId[Godown](ctx, input.GodownId); err != nil {
		return err
	}
	return nil
}

func CreateStockItem(ctx context.Context, input *NewStockItem) (*StockItem, error) {
	logger := config.GetLogger()
	db := config.GetDB()

	if err := input.validate(ctx); err != nil {
		return nil, err
	}

	tx := db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	stockItem := StockItem{
		GodownId:     input.GodownId,
		ProductType:  input.ProductType,
		ProductName:  input.ProductName,
		Brand:        input.Brand,
		PerCase:      input.PerCase,
		CurrentCases: input.Cases,
	}
	if err := tx.Create(&stockItem).Error; err != nil {
		tx.Rollback()
		config.LogError(logger, "stockItem", "CreateStockItem", "Error creating stock item", input, err)
		return nil, err
	}

	if input.Cases > 0 {
		if err := appendStockHistory(tx, &stockItem, StockActionAdded, input.Cases, "", StockReasonOpening); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		config.LogError(logger, "stockItem", "CreateStockItem", "Error committing stock item", input, err)
		return nil, err
	}

	if err := utils.RemoveRedisList[StockItem](); err != nil {
		config.LogError(logger, "stockItem", "CreateStockItem", "Error clearing stock cache", nil, err)
	}

	return &stockItem, nil
}

func GetStockItem(ctx context.Context, id int) (*StockItem, error) {
	return utils.FetchSingleModel[StockItem](ctx, id, "Godown")
}

// GetStockItems lists stock of one godown. godownId 0 lists everything.
func GetStockItems(ctx context.Context, godownId int) ([]*StockItem, error) {
	db := config.GetDB()

	dbCtx := db.WithContext(ctx).Preload("Godown")
	if godownId > 0 {
		dbCtx = dbCtx.Where("godown_id = ?", godownId)
	}
	var stockItems []*StockItem
	if err := dbCtx.Order("product_type, product_name").Find(&stockItems).Error; err != nil {
		return nil, err
	}
	return stockItems, nil
}

// RestockStockItem adds incoming cases to an existing stock item.
func RestockStockItem(ctx context.Context, id int, cases int) (*StockItem, error) {
	logger := config.GetLogger()
	db := config.GetDB()

	if cases <= 0 {
		return nil, errors.New("cases must be greater than zero")
	}

	tx := db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := AddStockCases(tx, id, cases, StockReasonRestock); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		config.LogError(logger, "stockItem", "RestockStockItem", "Error committing restock", id, err)
		return nil, err
	}

	if err := utils.RemoveRedisList[StockItem](); err != nil {
		config.LogError(logger, "stockItem", "RestockStockItem", "Error clearing stock cache", nil, err)
	}

	return GetStockItem(ctx, id)
}
