package models

import (
	"log"

	"github.com/mmsoftworks/godown_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Godown{}, &CatalogRate{},
		&StockItem{}, &StockHistoryEntry{},
		&Booking{}, &BookingLineItem{},
		&Challan{}, &ChallanItem{},
		&BillSequence{},
	)
	if err != nil {
		log.Fatal(err)
	}

	// Seed the counter rows up front. NextBillNumber then always locks an
	// existing row; two first-ever bookings racing an insert would otherwise
	// collide on the unique name index.
	for series, prefix := range seriesPrefixes {
		seq := BillSequence{Name: series, Prefix: prefix}
		if err := db.Where("name = ?", series).FirstOrCreate(&seq).Error; err != nil {
			log.Fatal(err)
		}
	}
}
