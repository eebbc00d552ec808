package aprun

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "github.com/expo-laith/xero-ap-automation/internal/errors"
)

// Row is one AP run line: which supplier's invoice to fetch and which
// category folder its attachments belong in.
type Row struct {
	Supplier  string
	Reference string
	Category  string
}

// ReadWorkbook parses the uploaded AP run workbook. The first sheet's header
// row must name a category column and either a supplier/contact column and a
// reference/invoice reference column. Rows without a reference or category
// are skipped.
func ReadWorkbook(r io.Reader) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidWorkbook, "open workbook: %v", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	cells, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("[ReadWorkbook] read sheet %q: %w", sheet, err)
	}
	if len(cells) == 0 {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidWorkbook, "sheet %q is empty", sheet)
	}

	headers := make(map[string]int)
	for col, value := range cells[0] {
		key := strings.ToLower(strings.TrimSpace(value))
		if key != "" {
			headers[key] = col
		}
	}

	supplierCol, supplierOK := headerColumn(headers, "supplier", "contact")
	referenceCol, referenceOK := headerColumn(headers, "reference", "invoice reference")
	categoryCol, categoryOK := headerColumn(headers, "category")
	if !supplierOK || !referenceOK || !categoryOK {
		found := make([]string, 0, len(headers))
		for k := range headers {
			found = append(found, k)
		}
		return nil, apperrors.Wrapf(apperrors.ErrInvalidWorkbook,
			"need 'category', ('supplier' or 'contact') and ('reference' or 'invoice reference'), found: %v", found)
	}

	rows := make([]Row, 0, len(cells)-1)
	for _, line := range cells[1:] {
		row := Row{
			Supplier:  cellValue(line, supplierCol),
			Reference: cellValue(line, referenceCol),
			Category:  cellValue(line, categoryCol),
		}
		if row.Reference == "" || row.Category == "" {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func headerColumn(headers map[string]int, names ...string) (int, bool) {
	for _, name := range names {
		if col, ok := headers[name]; ok {
			return col, true
		}
	}
	return 0, false
}

// cellValue returns the trimmed cell at col; excelize trims trailing empty
// cells from each row, so short rows read as empty.
func cellValue(line []string, col int) string {
	if col >= len(line) {
		return ""
	}
	return strings.TrimSpace(line[col])
}
