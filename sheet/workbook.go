/*
Package sheet encodes and decodes client spreadsheets (.xlsx).

PURPOSE:
  The office package only knows flat rows (office.ImportRow,
  office.ExportRow). This package owns the file format: it reads the first
  worksheet of an upload and writes a styled single-sheet workbook for
  downloads, with headers and status labels localized via x/text.

IMPORT LAYOUT:
  Row 1 is a header and is skipped. Columns A-D are name, contact,
  address, note; extra columns are ignored.

SEE ALSO:
  - office/rows.go: Row mapping
  - api/handlers.go: Upload and download endpoints
*/
package sheet

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/warp/backoffice/office"
)

// ContentType is the MIME type of the encoded workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ErrEmptyWorkbook is returned when an upload has no worksheet.
var ErrEmptyWorkbook = errors.New("workbook has no worksheet")

// Decode reads import rows from the first worksheet of r.
func Decode(r io.Reader) ([]office.ImportRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	name := f.GetSheetName(0)
	if name == "" {
		return nil, ErrEmptyWorkbook
	}
	rows, err := f.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", name, err)
	}

	out := make([]office.ImportRow, 0, len(rows))
	for i, cols := range rows {
		if i == 0 {
			continue
		}
		out = append(out, office.ImportRow{
			Name:    cell(cols, 0),
			Contact: cell(cols, 1),
			Address: cell(cols, 2),
			Note:    cell(cols, 3),
		})
	}
	return out, nil
}

func cell(cols []string, i int) string {
	if i < len(cols) {
		return strings.TrimSpace(cols[i])
	}
	return ""
}

// Encode writes rows as a single-sheet workbook to w.
func Encode(w io.Writer, rows []office.ExportRow, labels *Labels) error {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := labels.SheetTitle()
	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	headers := labels.Header()
	for i, h := range headers {
		if err := setCell(f, sheetName, i+1, 1, h); err != nil {
			return err
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err == nil {
		f.SetRowStyle(sheetName, 1, 1, headerStyle)
	}

	for i, r := range rows {
		values := []any{r.Name, r.Contact, r.Address, r.Consultant, r.CreatedAt, r.StatusLabel, r.Note}
		for col, v := range values {
			if err := setCell(f, sheetName, col+1, i+2, v); err != nil {
				return err
			}
		}
	}

	last, err := excelize.ColumnNumberToName(len(headers))
	if err == nil {
		f.SetColWidth(sheetName, "A", last, 18)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func setCell(f *excelize.File, sheet string, col, row int, v any) error {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	if err := f.SetCellValue(sheet, name, v); err != nil {
		return fmt.Errorf("failed to set %s: %w", name, err)
	}
	return nil
}
