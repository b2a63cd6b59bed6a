// seed-demo loads a small demo dataset: one godown, a handful of stock
// items and their catalog rates. Useful for local frontend work.
//
// Usage (from backend directory):
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/seed-demo
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mmsoftworks/godown_backend/config"
	"github.com/mmsoftworks/godown_backend/models"
	"github.com/shopspring/decimal"
)

func main() {
	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	defer config.CloseDatabase()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	models.MigrateTable()

	godown, err := models.CreateGodown(ctx, &models.NewGodown{Name: "Main Godown", Location: "Sivakasi"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "create godown: %v\n", err)
		os.Exit(1)
	}

	type seedItem struct {
		name    string
		brand   string
		perCase int
		cases   int
		rate    string
	}
	items := []seedItem{
		{"Sparklers 12cm", "Std", 12, 50, "100"},
		{"Flower Pots Big", "Std", 10, 40, "150"},
		{"Ground Chakras", "Deluxe", 12, 60, "40"},
		{"Rockets", "Std", 24, 30, "50"},
	}
	for _, item := range items {
		rate, err := decimal.NewFromString(item.rate)
		if err != nil {
			fmt.Fprintf(os.Stderr, "bad rate %q: %v\n", item.rate, err)
			os.Exit(1)
		}
		if _, err := models.CreateStockItem(ctx, &models.NewStockItem{
			GodownId:    godown.ID,
			ProductType: "Cracker",
			ProductName: item.name,
			Brand:       item.brand,
			PerCase:     item.perCase,
			Cases:       item.cases,
		}); err != nil {
			fmt.Fprintf(os.Stderr, "create stock item %s: %v\n", item.name, err)
			os.Exit(1)
		}
		if _, err := models.UpsertCatalogRate(ctx, &models.NewCatalogRate{
			ProductType: "Cracker",
			ProductName: item.name,
			Brand:       item.brand,
			RatePerBox:  rate,
		}); err != nil {
			fmt.Fprintf(os.Stderr, "upsert catalog rate %s: %v\n", item.name, err)
			os.Exit(1)
		}
	}

	fmt.Printf("seeded godown %q with %d stock items\n", godown.Name, len(items))
}
