package models

import (
	"context"
	"time"

	"github.com/mmsoftworks/godown_backend/config"
	"gorm.io/gorm"
)

// StockHistoryEntry is one append-only movement row. Entries are never
// updated or deleted; reversals are recorded as fresh "added" rows.
type StockHistoryEntry struct {
	ID           int         `gorm:"primary_key" json:"id"`
	StockId      int         `gorm:"index;not null" json:"stock_id"`
	Action       StockAction `gorm:"type:enum('added','taken');not null" json:"action"`
	Cases        int         `gorm:"not null" json:"cases"`
	PerCaseTotal int         `gorm:"not null" json:"per_case_total"`
	CustomerName string      `gorm:"size:100" json:"customer_name"`
	Reason       string      `gorm:"size:100" json:"reason"`
	CreatedAt    time.Time   `gorm:"autoCreateTime" json:"created_at"`
}

func (StockHistoryEntry) TableName() string {
	return "stock_histories"
}

// appendStockHistory records one movement inside the caller's transaction.
// PerCaseTotal captures boxes moved at the item's current PerCase.
func appendStockHistory(tx *gorm.DB, stockItem *StockItem, action StockAction, cases int, customerName string, reason string) error {
	entry := StockHistoryEntry{
		StockId:      stockItem.ID,
		Action:       action,
		Cases:        cases,
		PerCaseTotal: cases * stockItem.PerCase,
		CustomerName: customerName,
		Reason:       reason,
	}
	if err := tx.Create(&entry).Error; err != nil {
		config.LogError(config.GetLogger(), "stockHistory", "appendStockHistory", "Error appending stock history", entry, err)
		return err
	}
	return nil
}

// GetStockHistory returns an item's movements newest first.
func GetStockHistory(ctx context.Context, stockId int) ([]*StockHistoryEntry, error) {
	db := config.GetDB()

	var entries []*StockHistoryEntry
	err := db.WithContext(ctx).
		Where("stock_id = ?", stockId).
		Order("created_at DESC, id DESC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
