package export

import (
	"fmt"
	"io"

	"github.com/guregu/null/v6"
	"github.com/xuri/excelize/v2"

	"asset-insights/internal/dataset"
)

// SheetName is the worksheet holding the enriched table.
const SheetName = "data"

// EncodeXLSX streams rows into a single-sheet workbook written to w. Null
// cells are left empty; numeric cells keep full precision.
func EncodeXLSX(w io.Writer, rows []dataset.EnrichedRow) error {
	book := excelize.NewFile()
	defer book.Close()

	if err := book.SetSheetName(book.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	stream, err := book.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("open stream writer: %w", err)
	}

	header := make([]any, len(dataset.Columns))
	for i, c := range dataset.Columns {
		header[i] = c
	}
	if err := stream.SetRow("A1", header); err != nil {
		return err
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []any{
			r.Date.Format(dataset.DateLayout),
			r.Ticker,
			cellFloat(r.Price),
			r.AssetClass,
			r.Sector.ValueOrZero(),
			cellFloat(r.Return),
			r.Year,
			cellFloat(r.Volatility30),
			cellFloat(r.Volatility30Annualized),
			cellFloat(r.DailyVolatility),
			r.Benchmark,
			cellFloat(r.RelativeToBenchmark),
		}
		if err := stream.SetRow(cell, values); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if err := stream.Flush(); err != nil {
		return fmt.Errorf("flush sheet: %w", err)
	}

	_, err = book.WriteTo(w)
	return err
}

func cellFloat(v null.Float) any {
	if !v.Valid {
		return nil
	}
	return v.Float64
}
