package aprun

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// WriteTemplate generates the AP run template workbook users download, fill
// in, and upload: the expected header row plus one example line.
func WriteTemplate(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	headers := []string{"Supplier", "Reference", "Category"}
	example := []string{"Acme Pty Ltd", "PO 1234", CanonicalCategories[0]}

	for col, value := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("[WriteTemplate] %w", err)
		}
		if err := f.SetCellValue(sheet, cell, value); err != nil {
			return fmt.Errorf("[WriteTemplate] %w", err)
		}
	}
	for col, value := range example {
		cell, err := excelize.CoordinatesToCellName(col+1, 2)
		if err != nil {
			return fmt.Errorf("[WriteTemplate] %w", err)
		}
		if err := f.SetCellValue(sheet, cell, value); err != nil {
			return fmt.Errorf("[WriteTemplate] %w", err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("[WriteTemplate] write workbook: %w", err)
	}
	return nil
}
