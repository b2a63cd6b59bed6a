package docgen

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Sheet1"

// ExcelGenerator writes bills as .xlsx files under Dir. Every render gets a
// fresh uuid filename, so regenerating an edited bill never clobbers the
// old artifact.
type ExcelGenerator struct {
	Dir string
}

func NewExcelGenerator(dir string) (*ExcelGenerator, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrorRender, err.Error())
	}
	return &ExcelGenerator{Dir: dir}, nil
}

func (g *ExcelGenerator) Generate(data *InvoiceData) (string, error) {
	f := excelize.NewFile()
	defer f.Close()

	f.SetCellValue(sheetName, "A1", "Bill Number")
	f.SetCellValue(sheetName, "B1", data.BillNumber)
	f.SetCellValue(sheetName, "A2", "Bill Date")
	f.SetCellValue(sheetName, "B2", data.BillDate.Format("02-01-2006"))
	f.SetCellValue(sheetName, "A3", "Customer")
	f.SetCellValue(sheetName, "B3", data.CustomerName)
	f.SetCellValue(sheetName, "A4", "Destination")
	f.SetCellValue(sheetName, "B4", data.Destination)
	f.SetCellValue(sheetName, "A5", "Route")
	f.SetCellValue(sheetName, "B5", data.Route)
	f.SetCellValue(sheetName, "A6", "Transport")
	f.SetCellValue(sheetName, "B6", data.Transport)
	if data.FromChallan {
		f.SetCellValue(sheetName, "A7", "Challan Number")
		f.SetCellValue(sheetName, "B7", data.ChallanNumber)
	}

	// line item grid
	headerRow := 9
	headers := []string{"S.No", "Product", "Brand", "Godown", "Cases", "Per Case", "Rate", "Disc %", "Amount"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, headerRow)
		f.SetCellValue(sheetName, cell, h)
	}
	for i, line := range data.Lines {
		row := headerRow + 1 + i
		values := []interface{}{
			line.SNo, line.ProductName, line.Brand, line.GodownName,
			line.Cases, line.PerCase,
			line.RatePerBox.String(), line.DiscountPercent.String(), line.Amount.String(),
		}
		for j, v := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, row)
			f.SetCellValue(sheetName, cell, v)
		}
	}

	row := headerRow + len(data.Lines) + 2
	writeTotal := func(label string, value string) {
		f.SetCellValue(sheetName, "H"+fmt.Sprint(row), label)
		f.SetCellValue(sheetName, "I"+fmt.Sprint(row), value)
		row++
	}
	writeTotal("Total Cases", fmt.Sprint(data.TotalCases))
	writeTotal("Sub Total", data.SubTotal.String())
	if !data.PackingAmount.IsZero() {
		writeTotal("Packing", data.PackingAmount.String())
	}
	if !data.ExtraAmount.IsZero() {
		writeTotal("Extra", data.ExtraAmount.String())
	}
	if !data.AdditionalDiscountAmount.IsZero() {
		writeTotal("Additional Discount", data.AdditionalDiscountAmount.String())
	}
	if !data.IgstAmount.IsZero() {
		writeTotal("IGST 18%", data.IgstAmount.String())
	}
	if !data.CgstAmount.IsZero() {
		writeTotal("CGST 9%", data.CgstAmount.String())
		writeTotal("SGST 9%", data.SgstAmount.String())
	}
	if !data.RoundOff.IsZero() {
		writeTotal("Round Off", data.RoundOff.String())
	}
	writeTotal("Grand Total", data.GrandTotal.String())

	path := filepath.Join(g.Dir, uuid.NewString()+".xlsx")
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("%w: %s", ErrorRender, err.Error())
	}
	return path, nil
}
