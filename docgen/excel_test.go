package docgen

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestExcelGeneratorWritesDistinctFiles(t *testing.T) {
	dir := t.TempDir()
	g, err := NewExcelGenerator(dir)
	if err != nil {
		t.Fatalf("NewExcelGenerator: %v", err)
	}

	data := &InvoiceData{
		BillNumber:   "B-1",
		BillDate:     time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		CustomerName: "Murugan Stores",
		Destination:  "Madurai",
		Lines: []InvoiceLine{
			{SNo: 1, ProductName: "Sparklers", Cases: 4, PerCase: 12, RatePerBox: decimal.NewFromInt(100), Amount: decimal.NewFromInt(4800)},
		},
		TotalCases: 4,
		SubTotal:   decimal.NewFromInt(4800),
		GrandTotal: decimal.NewFromInt(4800),
	}

	first, err := g.Generate(data)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	second, err := g.Generate(data)
	if err != nil {
		t.Fatalf("Generate (second): %v", err)
	}
	if first == second {
		t.Fatalf("regenerating must produce a new file identity")
	}
	for _, path := range []string{first, second} {
		if filepath.Dir(path) != dir {
			t.Fatalf("file written outside dir: %s", path)
		}
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("stat %s: %v", path, err)
		}
		if info.Size() == 0 {
			t.Fatalf("empty bill file: %s", path)
		}
	}
}
