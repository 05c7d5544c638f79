package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/guregu/null/v6"

	"asset-insights/internal/dataset"
)

// EncodeCSV writes the header and rows to w.
func EncodeCSV(w io.Writer, rows []dataset.EnrichedRow) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(dataset.Columns); err != nil {
		return err
	}
	for _, r := range rows {
		if err := writer.Write(Record(r)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// Record renders one row in column order.
func Record(r dataset.EnrichedRow) []string {
	return []string{
		r.Date.Format(dataset.DateLayout),
		r.Ticker,
		formatFloat(r.Price),
		r.AssetClass,
		r.Sector.ValueOrZero(),
		formatFloat(r.Return),
		strconv.Itoa(r.Year),
		formatFloat(r.Volatility30),
		formatFloat(r.Volatility30Annualized),
		formatFloat(r.DailyVolatility),
		r.Benchmark,
		formatFloat(r.RelativeToBenchmark),
	}
}

func formatFloat(v null.Float) string {
	if !v.Valid {
		return ""
	}
	return strconv.FormatFloat(v.Float64, 'f', -1, 64)
}

// ReadCSVFile loads a table previously written with EncodeCSV.
func ReadCSVFile(path string) ([]dataset.EnrichedRow, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return DecodeCSV(file)
}

// DecodeCSV parses a published table.
func DecodeCSV(r io.Reader) ([]dataset.EnrichedRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(dataset.Columns)

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("empty table")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if strings.Join(header, ",") != strings.Join(dataset.Columns, ",") {
		return nil, fmt.Errorf("unexpected header %q", header)
	}

	var rows []dataset.EnrichedRow
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		row, err := parseRecord(rec)
		if err != nil {
			line, _ := reader.FieldPos(0)
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseRecord(rec []string) (dataset.EnrichedRow, error) {
	var (
		row  dataset.EnrichedRow
		errs []error
	)
	date, err := time.Parse(dataset.DateLayout, rec[0])
	if err != nil {
		errs = append(errs, fmt.Errorf("parse date: %w", err))
	}
	year, err := strconv.Atoi(rec[6])
	if err != nil {
		errs = append(errs, fmt.Errorf("parse year: %w", err))
	}

	floats := make([]null.Float, 0, 6)
	for _, idx := range []int{2, 5, 7, 8, 9, 11} {
		v, err := parseFloat(rec[idx])
		if err != nil {
			errs = append(errs, fmt.Errorf("parse %s: %w", dataset.Columns[idx], err))
		}
		floats = append(floats, v)
	}
	if len(errs) > 0 {
		return row, errors.Join(errs...)
	}

	row = dataset.EnrichedRow{
		Date:                   date,
		Ticker:                 rec[1],
		Price:                  floats[0],
		AssetClass:             rec[3],
		Sector:                 null.NewString(rec[4], rec[4] != ""),
		Return:                 floats[1],
		Year:                   year,
		Volatility30:           floats[2],
		Volatility30Annualized: floats[3],
		DailyVolatility:        floats[4],
		Benchmark:              rec[10],
		RelativeToBenchmark:    floats[5],
	}
	return row, nil
}

func parseFloat(s string) (null.Float, error) {
	if s == "" {
		return null.Float{}, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return null.Float{}, err
	}
	return null.FloatFrom(v), nil
}
