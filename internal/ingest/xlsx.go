package ingest

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"asset-insights/internal/dataset"
)

func readXLSX(path, sheet string) ([]RawRecord, int, error) {
	book, err := excelize.OpenFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open workbook: %w", err)
	}
	defer book.Close()
	return readWorkbook(book, sheet)
}

func readWorkbook(book *excelize.File, sheet string) ([]RawRecord, int, error) {
	if sheet == "" {
		sheets := book.GetSheetList()
		if len(sheets) == 0 {
			return nil, 0, errors.New("workbook has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := book.Rows(sheet)
	if err != nil {
		return nil, 0, fmt.Errorf("open sheet %q: %w", sheet, err)
	}
	defer rows.Close()

	var (
		h       header
		seen    bool
		line    int
		records []RawRecord
		short   int
	)
	for rows.Next() {
		line++
		// Raw values keep date serials independent of the cell's number format.
		cells, err := rows.Columns(excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, 0, fmt.Errorf("read row %d: %w", line, err)
		}
		if !seen {
			if h, err = locateHeader(cells); err != nil {
				return nil, 0, err
			}
			seen = true
			continue
		}
		if len(cells) == 0 {
			continue
		}
		rec, ok := h.record(line, padRow(cells, h.width))
		if !ok {
			short++
			continue
		}
		rec.Date = serialDate(rec.Date)
		records = append(records, rec)
	}
	if err := rows.Error(); err != nil {
		return nil, 0, fmt.Errorf("iterate sheet %q: %w", sheet, err)
	}
	if !seen {
		return nil, 0, errors.New("empty input")
	}
	return records, short, nil
}

// serialDate rewrites an Excel date serial as dataset.DateLayout. Text dates
// pass through unchanged.
func serialDate(raw string) string {
	serial, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || serial <= 0 {
		return raw
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return raw
	}
	return t.Format(dataset.DateLayout)
}

// padRow extends rows whose trailing cells are blank; excelize trims them.
func padRow(cells []string, width int) []string {
	if len(cells) >= width {
		return cells
	}
	out := make([]string, width)
	copy(out, cells)
	return out
}
