package models

import (
	"context"
	"fmt"
	"time"

	"github.com/mmsoftworks/godown_backend/config"
	"github.com/mmsoftworks/godown_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CatalogRate is the price list: the default rate per box for a product.
type CatalogRate struct {
	ID          int             `gorm:"primary_key" json:"id"`
	ProductType string          `gorm:"size:100;not null;uniqueIndex:idx_catalog_product" json:"product_type"`
	ProductName string          `gorm:"size:100;not null;uniqueIndex:idx_catalog_product" json:"product_name"`
	Brand       string          `gorm:"size:100;uniqueIndex:idx_catalog_product" json:"brand"`
	RatePerBox  decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"rate_per_box"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCatalogRate struct {
	ProductType string          `json:"product_type" binding:"required"`
	ProductName string          `json:"product_name" binding:"required"`
	Brand       string          `json:"brand"`
	RatePerBox  decimal.Decimal `json:"rate_per_box" binding:"required"`
}

// RateCatalog resolves a product's rate when the booking line leaves it blank.
type RateCatalog interface {
	LookupRate(ctx context.Context, productType string, productName string, brand string) (decimal.Decimal, error)
}

type dbRateCatalog struct {
	db *gorm.DB
}

func NewRateCatalog(db *gorm.DB) RateCatalog {
	return &dbRateCatalog{db: db}
}

func (c *dbRateCatalog) LookupRate(ctx context.Context, productType string, productName string, brand string) (decimal.Decimal, error) {
	cacheKey := fmt.Sprintf("CatalogRate:%s:%s:%s", productType, productName, brand)

	var cached decimal.Decimal
	exists, err := config.GetRedisObject(cacheKey, &cached)
	if err == nil && exists {
		return cached, nil
	}

	var rate CatalogRate
	err = c.db.WithContext(ctx).
		Where("product_type = ? AND product_name = ? AND brand = ?", productType, productName, brand).
		First(&rate).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return decimal.Zero, fmt.Errorf("%w: no catalog rate for %s %s %s", utils.ErrorRecordNotFound, productType, productName, brand)
		}
		return decimal.Zero, err
	}

	if cerr := config.SetRedisObject(cacheKey, rate.RatePerBox, utils.GetCacheLifespan()); cerr != nil {
		config.LogError(config.GetLogger(), "catalog", "LookupRate", "Error caching catalog rate", cacheKey, cerr)
	}

	return rate.RatePerBox, nil
}

func UpsertCatalogRate(ctx context.Context, input *NewCatalogRate) (*CatalogRate, error) {
	logger := config.GetLogger()
	db := config.GetDB()

	rate := CatalogRate{
		ProductType: input.ProductType,
		ProductName: input.ProductName,
		Brand:       input.Brand,
	}
	err := db.WithContext(ctx).
		Where("product_type = ? AND product_name = ? AND brand = ?", input.ProductType, input.ProductName, input.Brand).
		FirstOrCreate(&rate).Error
	if err != nil {
		config.LogError(logger, "catalog", "UpsertCatalogRate", "Error upserting catalog rate", input, err)
		return nil, err
	}

	if !rate.RatePerBox.Equal(input.RatePerBox) {
		if err := db.WithContext(ctx).Model(&rate).Update("rate_per_box", input.RatePerBox).Error; err != nil {
			config.LogError(logger, "catalog", "UpsertCatalogRate", "Error updating catalog rate", input, err)
			return nil, err
		}
		rate.RatePerBox = input.RatePerBox
	}

	cacheKey := fmt.Sprintf("CatalogRate:%s:%s:%s", input.ProductType, input.ProductName, input.Brand)
	if err := config.RemoveRedisKey(cacheKey); err != nil {
		config.LogError(logger, "catalog", "UpsertCatalogRate", "Error clearing catalog rate cache", cacheKey, err)
	}

	return &rate, nil
}
