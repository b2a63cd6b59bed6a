package models

import (
	"fmt"

	"github.com/mmsoftworks/godown_backend/config"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BillSequence is a named counter row. NextBillNumber locks the row FOR
// UPDATE inside the caller's transaction, so a number is only consumed when
// that transaction commits; aborted bookings leave no gaps.
type BillSequence struct {
	ID     int        `gorm:"primary_key" json:"id"`
	Name   BillSeries `gorm:"size:50;uniqueIndex;not null" json:"name"`
	Prefix string     `gorm:"size:10" json:"prefix"`
	Value  int64      `gorm:"not null;default:0" json:"value"`
}

var seriesPrefixes = map[BillSeries]string{
	BillSeriesBooking: "B-",
	BillSeriesChallan: "CH-",
}

// NextBillNumber allocates the next number of a series. Concurrent callers
// serialize on the locked counter row and commit distinct values.
func NextBillNumber(tx *gorm.DB, series BillSeries) (string, int64, error) {
	logger := config.GetLogger()

	seq := BillSequence{
		Name:   series,
		Prefix: seriesPrefixes[series],
	}
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("name = ?", series).
		FirstOrCreate(&seq).Error
	if err != nil {
		config.LogError(logger, "billSequence", "NextBillNumber", "Error locking bill sequence", series, err)
		return "", 0, err
	}

	seq.Value++
	if err := tx.Model(&seq).Update("value", seq.Value).Error; err != nil {
		config.LogError(logger, "billSequence", "NextBillNumber", "Error advancing bill sequence", series, err)
		return "", 0, err
	}

	return fmt.Sprintf("%s%d", seq.Prefix, seq.Value), seq.Value, nil
}

// ChallanBillNumber derives the bill number of a converted challan from the
// challan's own number, so conversion never consumes the booking series.
func ChallanBillNumber(challanNumber string) string {
	return "CB-" + challanNumber
}
