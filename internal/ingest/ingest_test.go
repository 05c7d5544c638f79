package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"asset-insights/internal/dataset"
)

func newNormalizer() *Normalizer {
	return NewNormalizer(Options{}, zerolog.Nop())
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

const sample = "\ufeffTicker,Prix,Date,Volume\n" +
	"BTC-USD,42000.5,2024-01-02,1\n" +
	"AAPL,185.2,2024-01-02 00:00:00,2\n" +
	"AAPL,,2024-01-03,3\n" +
	"AAPL,NaN,2024-01-04\n" +
	"AAPL,185.2,2024-01-02,4\n" +
	"AAPL,190,2024-01-02,5\n" +
	"AAPL,abc,2024-01-05,6\n" +
	"AAPL,1,not-a-date,7\n" +
	",1,2024-01-06,8\n" +
	"AAPL,1\n"

func TestReadCSVAndNormalize(t *testing.T) {
	records, short, err := ReadCSV(strings.NewReader(sample))
	require.NoError(t, err)
	assert.Equal(t, 1, short)
	require.Len(t, records, 9)
	assert.Equal(t, RawRecord{Line: 2, Date: "2024-01-02", Ticker: "BTC-USD", Price: "42000.5"}, records[0])

	frame, report := newNormalizer().Normalize(records)

	assert.Equal(t, 9, report.RowsRead)
	assert.Equal(t, 1, report.Dropped[DropBadPrice])
	assert.Equal(t, 1, report.Dropped[DropBadDate])
	assert.Equal(t, 1, report.Dropped[DropEmptyTicker])
	assert.Equal(t, 1, report.Duplicates)
	assert.Equal(t, 1, report.Conflicts)
	assert.Equal(t, 4, report.RowsKept)
	assert.Equal(t, 2, report.Instruments)

	assert.Equal(t, []dataset.Observation{
		{Ticker: "AAPL", Date: date(2024, 1, 2), Price: null.FloatFrom(185.2)},
		{Ticker: "AAPL", Date: date(2024, 1, 3)},
		{Ticker: "AAPL", Date: date(2024, 1, 4)},
		{Ticker: "BTC-USD", Date: date(2024, 1, 2), Price: null.FloatFrom(42000.5)},
	}, frame.Observations())
}

func TestNormalizeIsIdempotent(t *testing.T) {
	records, _, err := ReadCSV(strings.NewReader(sample))
	require.NoError(t, err)

	n := newNormalizer()
	first, _ := n.Normalize(records)

	again := make([]RawRecord, 0, first.Len())
	for _, o := range first.Observations() {
		price := ""
		if o.Price.Valid {
			price = strconv.FormatFloat(o.Price.Float64, 'f', -1, 64)
		}
		again = append(again, RawRecord{Date: o.Date.Format(dataset.DateLayout), Ticker: o.Ticker, Price: price})
	}
	second, report := n.Normalize(again)

	assert.Equal(t, first.Observations(), second.Observations())
	assert.Zero(t, report.Duplicates)
	assert.Zero(t, report.Conflicts)
	assert.Zero(t, report.DroppedTotal())
}

func TestParsePriceNullTokens(t *testing.T) {
	for _, tok := range []string{"", " ", "NaN", "nan", "NA", "null", "None", "N/A"} {
		p, ok := parsePrice(tok)
		assert.True(t, ok, tok)
		assert.False(t, p.Valid, tok)
	}

	p, ok := parsePrice(" 12.5 ")
	require.True(t, ok)
	assert.Equal(t, null.FloatFrom(12.5), p)

	for _, bad := range []string{"abc", "1,5", "Inf"} {
		_, ok := parsePrice(bad)
		assert.False(t, ok, bad)
	}
}

func TestParseDateLayouts(t *testing.T) {
	n := newNormalizer()
	for _, raw := range []string{
		"2024-03-09",
		"2024-03-09 00:00:00",
		"2024-03-09T15:04:05Z",
		"2024-03-09 23:30:00+01:00",
		"2024/03/09",
		"09/03/2024",
	} {
		got, ok := n.parseDate(raw)
		require.True(t, ok, raw)
		assert.Equal(t, date(2024, 3, 9), got, raw)
	}

	_, ok := n.parseDate("March 9th")
	assert.False(t, ok)

	custom := NewNormalizer(Options{DateLayouts: []string{"Jan 2 2006"}}, zerolog.Nop())
	got, ok := custom.parseDate("Mar 9 2024")
	require.True(t, ok)
	assert.Equal(t, date(2024, 3, 9), got)
}

func TestReadCSVHeaderErrors(t *testing.T) {
	_, _, err := ReadCSV(strings.NewReader(""))
	assert.Error(t, err)

	_, _, err = ReadCSV(strings.NewReader("Date,Ticker\n2024-01-01,AAA\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Prix")
}

func TestDeduplicateKeepsFirstOccurrence(t *testing.T) {
	obs := []dataset.Observation{
		{Ticker: "A", Date: date(2024, 1, 1), Price: null.FloatFrom(2)},
		{Ticker: "A", Date: date(2024, 1, 1), Price: null.FloatFrom(1)},
		{Ticker: "A", Date: date(2024, 1, 1)},
		{Ticker: "A", Date: date(2024, 1, 1), Price: null.FloatFrom(2)},
		{Ticker: "B", Date: date(2024, 1, 1)},
		{Ticker: "B", Date: date(2024, 1, 1)},
	}
	unique, dups, conflicts := Deduplicate(obs)
	assert.Equal(t, []dataset.Observation{obs[0], obs[4]}, unique)
	assert.Equal(t, 2, dups)
	assert.Equal(t, 2, conflicts)
}

func TestReadFileXLSX(t *testing.T) {
	book := excelize.NewFile()
	defer book.Close()
	sheet := book.GetSheetName(0)
	rows := [][]any{
		{"Date", "Ticker", "Prix"},
		{"2024-01-02", "SPY", 470.1},
		{"2024-01-03", "SPY", ""},
		{"2024-01-04", "SPY", "nan"},
		{"bad", "SPY", 1},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, book.SetSheetRow(sheet, cell, &row))
	}
	path := filepath.Join(t.TempDir(), "raw.xlsx")
	require.NoError(t, book.SaveAs(path))

	frame, report, err := newNormalizer().ReadFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 4, report.RowsRead)
	assert.Equal(t, 1, report.Dropped[DropBadDate])
	assert.Equal(t, 3, frame.Len())
	assert.Equal(t, null.FloatFrom(470.1), frame.Price(0))
	assert.Equal(t, 2, frame.NullCount())
}

func TestReadFileXLSXDateCells(t *testing.T) {
	book := excelize.NewFile()
	defer book.Close()
	sheet := book.GetSheetName(0)
	rows := [][]any{
		{"Date", "Ticker", "Prix"},
		{date(2024, 1, 2), "SPY", 470.1},
		{date(2024, 1, 3), "SPY", 471.5},
		{"2024-01-04", "SPY", 472},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, book.SetSheetRow(sheet, cell, &row))
	}
	path := filepath.Join(t.TempDir(), "raw.xlsx")
	require.NoError(t, book.SaveAs(path))

	for _, n := range []*Normalizer{
		newNormalizer(),
		NewNormalizer(Options{DateLayouts: []string{"02/01/2006"}}, zerolog.Nop()),
	} {
		frame, report, err := n.ReadFile(context.Background(), path)
		require.NoError(t, err)
		assert.Equal(t, 0, report.DroppedTotal())
		require.Equal(t, 3, frame.Len())
		assert.Equal(t, []time.Time{date(2024, 1, 2), date(2024, 1, 3), date(2024, 1, 4)}, frame.Dates)
		assert.Equal(t, null.FloatFrom(470.1), frame.Price(0))
	}
}

func TestSerialDate(t *testing.T) {
	assert.Equal(t, "2024-01-02", serialDate("45293"))
	assert.Equal(t, "2024-01-02", serialDate("45293.75"))
	assert.Equal(t, "2024-01-02", serialDate("2024-01-02"))
	assert.Equal(t, "bad", serialDate("bad"))
	assert.Equal(t, "", serialDate(""))
}

func TestReadFileCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raw.csv")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	frame, report, err := newNormalizer().ReadFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 10, report.RowsRead)
	assert.Equal(t, 1, report.Dropped[DropShortRecord])
	assert.Equal(t, 4, frame.Len())

	_, _, err = newNormalizer().ReadFile(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}
