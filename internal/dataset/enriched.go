package dataset

import (
	"time"

	"github.com/guregu/null/v6"
)

// Columns is the header of the published table, in order.
var Columns = []string{
	"Date",
	"Ticker",
	"Prix",
	"Type_actif",
	"Secteur",
	"Rendement",
	"Année",
	"Volatilité_30j",
	"Volatilité_30j_annualisée",
	"Volatilité_quotidienne",
	"Benchmark",
	"Performance_vs_Benchmark",
}

// EnrichedRow is one published row.
type EnrichedRow struct {
	Date                   time.Time
	Ticker                 string
	Price                  null.Float
	AssetClass             string
	Sector                 null.String
	Return                 null.Float
	Year                   int
	Volatility30           null.Float
	Volatility30Annualized null.Float
	DailyVolatility        null.Float
	Benchmark              string
	RelativeToBenchmark    null.Float
}

// Key returns the row key.
func (r EnrichedRow) Key() Key { return Key{Ticker: r.Ticker, Date: r.Date} }

// RowsFor filters rows of one ticker, preserving order.
func RowsFor(rows []EnrichedRow, ticker string) []EnrichedRow {
	var out []EnrichedRow
	for _, r := range rows {
		if r.Ticker == ticker {
			out = append(out, r)
		}
	}
	return out
}
