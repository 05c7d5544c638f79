package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

const bom = "\ufeff"

type header struct {
	date, ticker, price int
	width               int
}

func locateHeader(cells []string) (header, error) {
	h := header{date: -1, ticker: -1, price: -1}
	for i, c := range cells {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(c, bom)))
		switch name {
		case strings.ToLower(ColumnDate):
			h.date = i
		case strings.ToLower(ColumnTicker):
			h.ticker = i
		case strings.ToLower(ColumnPrice):
			h.price = i
		}
	}

	var missing []string
	if h.date < 0 {
		missing = append(missing, ColumnDate)
	}
	if h.ticker < 0 {
		missing = append(missing, ColumnTicker)
	}
	if h.price < 0 {
		missing = append(missing, ColumnPrice)
	}
	if len(missing) > 0 {
		return header{}, fmt.Errorf("missing columns: %s", strings.Join(missing, ", "))
	}
	h.width = max(h.date, h.ticker, h.price) + 1
	return h, nil
}

// record maps a row onto a RawRecord. Rows too short to hold every required
// column are rejected.
func (h header) record(line int, cells []string) (RawRecord, bool) {
	if len(cells) < h.width {
		return RawRecord{}, false
	}
	return RawRecord{
		Line:   line,
		Date:   cells[h.date],
		Ticker: cells[h.ticker],
		Price:  cells[h.price],
	}, true
}

// ReadCSV decodes a long-format CSV table. The returned short count is the
// number of records lacking a required column.
func ReadCSV(r io.Reader) (records []RawRecord, short int, err error) {
	return readCSV(r)
}

func readCSV(r io.Reader) ([]RawRecord, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	first, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, 0, errors.New("empty input")
	}
	if err != nil {
		return nil, 0, fmt.Errorf("read header: %w", err)
	}
	h, err := locateHeader(first)
	if err != nil {
		return nil, 0, err
	}

	var (
		records []RawRecord
		short   int
	)
	for {
		cells, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("read record: %w", err)
		}
		line, _ := reader.FieldPos(0)
		rec, ok := h.record(line, cells)
		if !ok {
			short++
			continue
		}
		records = append(records, rec)
	}
	return records, short, nil
}
