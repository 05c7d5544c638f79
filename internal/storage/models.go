package storage

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RunRecord is one persisted pipeline run.
type RunRecord struct {
	RunID          uuid.UUID
	StartedAt      time.Time
	FinishedAt     time.Time
	InputPath      string
	RowsIn         int
	RowsOut        int
	InstrumentsOut int
	Excluded       int
}

// ExclusionRecord is one excluded instrument of a run.
type ExclusionRecord struct {
	Ticker          string
	AssetClass      string
	MissingFraction decimal.Decimal
	Missing         int
	Total           int
	Reason          string
}
