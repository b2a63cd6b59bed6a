package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/mmsoftworks/godown_backend/config"
	"github.com/mmsoftworks/godown_backend/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Ledger mutations run inside the caller's transaction and never commit.
// Callers must lock the touched rows first via LockStockRows so every
// writer takes row locks in the same ascending-id order.

// LockStockRows takes FOR UPDATE locks on the given stock items, ascending
// by id. Returns the locked rows keyed by id.
func LockStockRows(tx *gorm.DB, stockIds []int) (map[int]*StockItem, error) {
	sortedIds := utils.SortedUniqueInts(stockIds)

	var stockItems []*StockItem
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", sortedIds).
		Order("id").
		Find(&stockItems).Error; err != nil {
		return nil, err
	}
	if len(stockItems) != len(sortedIds) {
		return nil, fmt.Errorf("%w: one or more stock items do not exist", utils.ErrorRecordNotFound)
	}

	byId := make(map[int]*StockItem, len(stockItems))
	for _, item := range stockItems {
		byId[item.ID] = item
	}
	return byId, nil
}

// DeductStockCases takes cases out of a stock item for a sale. The row must
// already be locked in this transaction. Fails without partial effects when
// the item holds fewer cases than requested.
func DeductStockCases(tx *gorm.DB, stockId int, cases int, customerName string, reason string) error {
	logger := config.GetLogger()

	if cases <= 0 {
		return errors.New("cases must be greater than zero")
	}

	var stockItem StockItem
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&stockItem, stockId).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fmt.Errorf("%w: stock item %d", utils.ErrorRecordNotFound, stockId)
		}
		return err
	}

	if cases > stockItem.CurrentCases {
		return fmt.Errorf("%w: %s %s has %d cases, requested %d",
			utils.ErrorInsufficientStock, stockItem.ProductName, stockItem.Brand, stockItem.CurrentCases, cases)
	}

	now := time.Now()
	err := tx.Model(&stockItem).Updates(map[string]interface{}{
		"current_cases":   gorm.Expr("current_cases - ?", cases),
		"taken_cases":     gorm.Expr("taken_cases + ?", cases),
		"last_taken_date": now,
	}).Error
	if err != nil {
		config.LogError(logger, "stockLedger", "DeductStockCases", "Error deducting stock", stockId, err)
		return err
	}

	return appendStockHistory(tx, &stockItem, StockActionTaken, cases, customerName, reason)
}

// RestoreStockCases reverses an earlier deduction: cases go back into
// current_cases, taken_cases shrinks, and a fresh "added" history row is
// appended. The original "taken" row stays untouched.
func RestoreStockCases(tx *gorm.DB, stockId int, cases int, reason string) error {
	logger := config.GetLogger()

	if cases <= 0 {
		return errors.New("cases must be greater than zero")
	}

	var stockItem StockItem
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&stockItem, stockId).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fmt.Errorf("%w: stock item %d", utils.ErrorRecordNotFound, stockId)
		}
		return err
	}

	err := tx.Model(&stockItem).Updates(map[string]interface{}{
		"current_cases": gorm.Expr("current_cases + ?", cases),
		"taken_cases":   gorm.Expr("taken_cases - ?", cases),
	}).Error
	if err != nil {
		config.LogError(logger, "stockLedger", "RestoreStockCases", "Error restoring stock", stockId, err)
		return err
	}

	return appendStockHistory(tx, &stockItem, StockActionAdded, cases, "", reason)
}

// AddStockCases records new stock arriving. Unlike RestoreStockCases this
// leaves taken_cases alone.
func AddStockCases(tx *gorm.DB, stockId int, cases int, reason string) error {
	logger := config.GetLogger()

	if cases <= 0 {
		return errors.New("cases must be greater than zero")
	}

	var stockItem StockItem
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&stockItem, stockId).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fmt.Errorf("%w: stock item %d", utils.ErrorRecordNotFound, stockId)
		}
		return err
	}

	err := tx.Model(&stockItem).
		Update("current_cases", gorm.Expr("current_cases + ?", cases)).Error
	if err != nil {
		config.LogError(logger, "stockLedger", "AddStockCases", "Error adding stock", stockId, err)
		return err
	}

	return appendStockHistory(tx, &stockItem, StockActionAdded, cases, "", reason)
}
