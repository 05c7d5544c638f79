package ingest

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/guregu/null/v6"
	"github.com/rs/zerolog"

	"asset-insights/internal/dataset"
)

// Column names expected in the raw table.
const (
	ColumnDate   = "Date"
	ColumnTicker = "Ticker"
	ColumnPrice  = "Prix"
)

// DefaultDateLayouts are tried in order when parsing the Date column.
var DefaultDateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05-07:00",
	"2006/01/02",
	"02/01/2006",
}

var nullTokens = map[string]struct{}{
	"":     {},
	"nan":  {},
	"na":   {},
	"n/a":  {},
	"null": {},
	"none": {},
}

// DropReason classifies a row-level defect.
type DropReason string

const (
	DropBadDate     DropReason = "bad_date"
	DropEmptyTicker DropReason = "empty_ticker"
	DropBadPrice    DropReason = "bad_price"
	DropShortRecord DropReason = "short_record"
)

// RawRecord is one unparsed row. Line is the 1-based source line for logs.
type RawRecord struct {
	Line   int
	Date   string
	Ticker string
	Price  string
}

// Report summarises what normalisation kept and discarded.
type Report struct {
	RowsRead    int
	RowsKept    int
	Dropped     map[DropReason]int
	Duplicates  int
	Conflicts   int
	Instruments int
}

// DroppedTotal sums every row-level drop.
func (r Report) DroppedTotal() int {
	n := 0
	for _, c := range r.Dropped {
		n += c
	}
	return n
}

// Options tune parsing.
type Options struct {
	DateLayouts []string
	Sheet       string
}

// Normalizer turns raw long-format rows into a duplicate-free Frame.
type Normalizer struct {
	layouts []string
	sheet   string
	logger  zerolog.Logger
}

// NewNormalizer constructs a Normalizer. dataset.DateLayout is always
// accepted, after any configured layouts.
func NewNormalizer(opts Options, logger zerolog.Logger) *Normalizer {
	layouts := opts.DateLayouts
	if len(layouts) == 0 {
		layouts = DefaultDateLayouts
	}
	if !slices.Contains(layouts, dataset.DateLayout) {
		layouts = append(slices.Clone(layouts), dataset.DateLayout)
	}
	return &Normalizer{
		layouts: layouts,
		sheet:   opts.Sheet,
		logger:  logger.With().Str("component", "ingest").Logger(),
	}
}

// ReadFile loads path, choosing the decoder from the file extension.
func (n *Normalizer) ReadFile(ctx context.Context, path string) (*dataset.Frame, Report, error) {
	var (
		records []RawRecord
		short   int
		err     error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		records, short, err = readXLSX(path, n.sheet)
	default:
		var file *os.File
		file, err = os.Open(path)
		if err != nil {
			return nil, Report{}, fmt.Errorf("open input: %w", err)
		}
		defer file.Close()
		records, short, err = readCSV(file)
	}
	if err != nil {
		return nil, Report{}, fmt.Errorf("read %s: %w", path, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, Report{}, err
	}

	frame, report := n.Normalize(records)
	if short > 0 {
		report.RowsRead += short
		report.Dropped[DropShortRecord] += short
	}
	n.logReport(path, report)
	return frame, report, nil
}

// Normalize parses, deduplicates and sorts records.
func (n *Normalizer) Normalize(records []RawRecord) (*dataset.Frame, Report) {
	report := Report{RowsRead: len(records), Dropped: make(map[DropReason]int)}

	obs := make([]dataset.Observation, 0, len(records))
	for _, rec := range records {
		o, reason, ok := n.parse(rec)
		if !ok {
			report.Dropped[reason]++
			n.logger.Debug().Int("line", rec.Line).Str("reason", string(reason)).
				Str("date", rec.Date).Str("ticker", rec.Ticker).Str("price", rec.Price).
				Msg("dropping malformed row")
			continue
		}
		obs = append(obs, o)
	}

	unique, dups, conflicts := Deduplicate(obs)
	report.Duplicates = dups
	report.Conflicts = conflicts
	report.RowsKept = len(unique)

	frame := dataset.NewFrame(unique)
	report.Instruments = len(frame.Spans)
	return frame, report
}

func (n *Normalizer) parse(rec RawRecord) (dataset.Observation, DropReason, bool) {
	ticker := strings.TrimSpace(rec.Ticker)
	if ticker == "" {
		return dataset.Observation{}, DropEmptyTicker, false
	}

	date, ok := n.parseDate(rec.Date)
	if !ok {
		return dataset.Observation{}, DropBadDate, false
	}

	price, ok := parsePrice(rec.Price)
	if !ok {
		return dataset.Observation{}, DropBadPrice, false
	}

	return dataset.Observation{Ticker: ticker, Date: date, Price: price}, "", true
}

func (n *Normalizer) parseDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range n.layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return dataset.Day(t), true
		}
	}
	return time.Time{}, false
}

func parsePrice(raw string) (null.Float, bool) {
	s := strings.TrimSpace(raw)
	if _, isNull := nullTokens[strings.ToLower(s)]; isNull {
		return null.Float{}, true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) {
		return null.Float{}, false
	}
	if math.IsNaN(v) {
		return null.Float{}, true
	}
	return null.FloatFrom(v), true
}

// Deduplicate removes repeated observations. Rows equal on all three columns
// count as duplicates; rows sharing (ticker, date) with a different price
// count as conflicts. In both cases the first row in input order wins.
func Deduplicate(obs []dataset.Observation) (unique []dataset.Observation, duplicates, conflicts int) {
	order := make([]int, len(obs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return obs[order[i]].Key().Compare(obs[order[j]].Key()) < 0
	})

	unique = make([]dataset.Observation, 0, len(obs))
	for _, idx := range order {
		o := obs[idx]
		if last := len(unique) - 1; last >= 0 && unique[last].Key().Compare(o.Key()) == 0 {
			if samePrice(unique[last].Price, o.Price) {
				duplicates++
			} else {
				conflicts++
			}
			continue
		}
		unique = append(unique, o)
	}
	return unique, duplicates, conflicts
}

func samePrice(a, b null.Float) bool {
	if a.Valid != b.Valid {
		return false
	}
	return !a.Valid || a.Float64 == b.Float64
}

func (n *Normalizer) logReport(source string, r Report) {
	ev := n.logger.Info()
	if r.DroppedTotal() > 0 || r.Conflicts > 0 {
		ev = n.logger.Warn()
	}
	dict := zerolog.Dict()
	for reason, count := range r.Dropped {
		dict = dict.Int(string(reason), count)
	}
	ev.Str("source", source).
		Int("rows_read", r.RowsRead).
		Int("rows_kept", r.RowsKept).
		Int("duplicates", r.Duplicates).
		Int("conflicts", r.Conflicts).
		Int("instruments", r.Instruments).
		Dict("dropped", dict).
		Msg("raw table normalised")
}
