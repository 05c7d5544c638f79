// Package dataset holds the row and column types shared by every pipeline
// stage: raw observations, the column arena that stores all series back to
// back, and the enriched output row.
package dataset

import (
	"sort"
	"strings"
	"time"

	"github.com/guregu/null/v6"
)

// DateLayout is the on-disk representation of a calendar date.
const DateLayout = "2006-01-02"

// Day truncates t to its calendar date in UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Key identifies one observation.
type Key struct {
	Ticker string
	Date   time.Time
}

// Compare orders keys by ticker then date.
func (k Key) Compare(o Key) int {
	if c := strings.Compare(k.Ticker, o.Ticker); c != 0 {
		return c
	}
	return k.Date.Compare(o.Date)
}

func (k Key) String() string {
	return k.Ticker + "@" + k.Date.Format(DateLayout)
}

// Observation is one (ticker, date, price) triple. Price may be null.
type Observation struct {
	Ticker string
	Date   time.Time
	Price  null.Float
}

// Key returns the observation key.
func (o Observation) Key() Key { return Key{Ticker: o.Ticker, Date: o.Date} }

// SortObservations orders observations by (ticker, date), keeping input order
// for equal keys.
func SortObservations(obs []Observation) {
	sort.SliceStable(obs, func(i, j int) bool {
		return obs[i].Key().Compare(obs[j].Key()) < 0
	})
}
