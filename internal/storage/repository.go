package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/guregu/null/v6"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"asset-insights/internal/dataset"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
	// ErrLocked indicates another publisher holds the advisory lock.
	ErrLocked = errors.New("storage: publish lock held by another process")
)

const (
	insertRunSQL = `INSERT INTO pipeline_runs (
        run_id,
        started_at,
        finished_at,
        input_path,
        rows_in,
        rows_out,
        instruments_out,
        excluded
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8
    );`

	insertExclusionSQL = `INSERT INTO instrument_exclusions (
        run_id,
        ticker,
        asset_class,
        missing_fraction,
        missing,
        total,
        reason
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7
    );`

	truncateRowsSQL = `DELETE FROM enriched_rows;`

	listRowsSQL = `SELECT
        date,
        ticker,
        price,
        asset_class,
        sector,
        return_pct,
        year,
        volatility_30,
        volatility_30_annualized,
        daily_volatility,
        benchmark,
        relative_to_benchmark
    FROM enriched_rows
    WHERE ticker = $1
    ORDER BY date DESC
    LIMIT $2;`

	latestRunSQL = `SELECT
        run_id,
        started_at,
        finished_at,
        input_path,
        rows_in,
        rows_out,
        instruments_out,
        excluded
    FROM pipeline_runs
    ORDER BY started_at DESC
    LIMIT 1;`

	listExclusionsSQL = `SELECT
        ticker,
        asset_class,
        missing_fraction,
        missing,
        total,
        reason
    FROM instrument_exclusions
    WHERE run_id = $1
    ORDER BY ticker;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// enrichedColumns is the CopyFrom column list, in Record order.
var enrichedColumns = []string{
	"date",
	"ticker",
	"price",
	"asset_class",
	"sector",
	"return_pct",
	"year",
	"volatility_30",
	"volatility_30_annualized",
	"daily_volatility",
	"benchmark",
	"relative_to_benchmark",
	"run_id",
}

// RunStore persists run metadata and the published table.
type RunStore interface {
	PublishRun(ctx context.Context, run RunRecord, exclusions []ExclusionRecord, rows []dataset.EnrichedRow) error
	LatestRun(ctx context.Context) (RunRecord, error)
	ListExclusions(ctx context.Context, runID uuid.UUID) ([]ExclusionRecord, error)
}

// RowStore reads the published table.
type RowStore interface {
	ListRows(ctx context.Context, ticker string, limit int) ([]dataset.EnrichedRow, error)
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store aggregates access to runs and enriched rows.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		// the session lock dies with the connection if this fails
		_, _ = conn.Exec(ctxUnlock, advisoryUnlockSQL, key)
		conn.Release()
	}
	return unlock, true, nil
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// PublishRun records the run and replaces the published table in a single
// transaction.
func (s *Store) PublishRun(ctx context.Context, run RunRecord, exclusions []ExclusionRecord, rows []dataset.EnrichedRow) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin publish: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	runID := [16]byte(run.RunID)
	if _, err := tx.Exec(ctx, insertRunSQL,
		runID,
		run.StartedAt,
		run.FinishedAt,
		run.InputPath,
		run.RowsIn,
		run.RowsOut,
		run.InstrumentsOut,
		run.Excluded,
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	batch := &pgx.Batch{}
	for _, ex := range exclusions {
		batch.Queue(insertExclusionSQL,
			runID,
			ex.Ticker,
			ex.AssetClass,
			ex.MissingFraction.String(),
			ex.Missing,
			ex.Total,
			ex.Reason,
		)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert exclusions: %w", err)
		}
	}

	if _, err := tx.Exec(ctx, truncateRowsSQL); err != nil {
		return fmt.Errorf("clear enriched rows: %w", err)
	}

	copied, err := tx.CopyFrom(ctx, pgx.Identifier{"enriched_rows"}, enrichedColumns,
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			r := rows[i]
			return []any{
				r.Date,
				r.Ticker,
				floatArg(r.Price),
				r.AssetClass,
				r.Sector.Ptr(),
				floatArg(r.Return),
				r.Year,
				floatArg(r.Volatility30),
				floatArg(r.Volatility30Annualized),
				floatArg(r.DailyVolatility),
				r.Benchmark,
				floatArg(r.RelativeToBenchmark),
				runID,
			}, nil
		}))
	if err != nil {
		return fmt.Errorf("copy enriched rows: %w", err)
	}
	if copied != int64(len(rows)) {
		return fmt.Errorf("copy enriched rows: wrote %d of %d", copied, len(rows))
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit publish: %w", err)
	}
	return nil
}

// ListRows returns the latest rows of ticker, newest first. A limit of zero
// returns every row.
func (s *Store) ListRows(ctx context.Context, ticker string, limit int) ([]dataset.EnrichedRow, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	var limitArg any
	if limit > 0 {
		limitArg = limit
	}
	rows, queryErr := pool.Query(ctx, listRowsSQL, ticker, limitArg)
	if queryErr != nil {
		return nil, fmt.Errorf("list rows: %w", queryErr)
	}
	defer rows.Close()

	var out []dataset.EnrichedRow
	for rows.Next() {
		row, scanErr := scanEnrichedRow(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, row)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// LatestRun returns the most recently started run.
func (s *Store) LatestRun(ctx context.Context) (RunRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return RunRecord{}, err
	}

	var (
		rec   RunRecord
		runID string
	)
	if scanErr := pool.QueryRow(ctx, latestRunSQL).Scan(
		&runID,
		&rec.StartedAt,
		&rec.FinishedAt,
		&rec.InputPath,
		&rec.RowsIn,
		&rec.RowsOut,
		&rec.InstrumentsOut,
		&rec.Excluded,
	); scanErr != nil {
		return RunRecord{}, fmt.Errorf("latest run: %w", scanErr)
	}

	rec.RunID, err = uuid.Parse(runID)
	if err != nil {
		return RunRecord{}, fmt.Errorf("parse run id: %w", err)
	}
	return rec, nil
}

// ListExclusions returns the exclusions recorded for a run.
func (s *Store) ListExclusions(ctx context.Context, runID uuid.UUID) ([]ExclusionRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listExclusionsSQL, [16]byte(runID))
	if queryErr != nil {
		return nil, fmt.Errorf("list exclusions: %w", queryErr)
	}
	defer rows.Close()

	var out []ExclusionRecord
	for rows.Next() {
		var (
			rec         ExclusionRecord
			fractionStr string
		)
		if err := rows.Scan(
			&rec.Ticker,
			&rec.AssetClass,
			&fractionStr,
			&rec.Missing,
			&rec.Total,
			&rec.Reason,
		); err != nil {
			return nil, err
		}
		var convErr error
		rec.MissingFraction, convErr = decimal.NewFromString(fractionStr)
		if convErr != nil {
			return nil, fmt.Errorf("parse missing fraction: %w", convErr)
		}
		out = append(out, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func scanEnrichedRow(rows pgx.Rows) (dataset.EnrichedRow, error) {
	var (
		row                                   dataset.EnrichedRow
		price, ret, vol, annual, daily, relat *float64
		sector                                *string
	)
	if err := rows.Scan(
		&row.Date,
		&row.Ticker,
		&price,
		&row.AssetClass,
		&sector,
		&ret,
		&row.Year,
		&vol,
		&annual,
		&daily,
		&row.Benchmark,
		&relat,
	); err != nil {
		return dataset.EnrichedRow{}, err
	}

	row.Date = dataset.Day(row.Date)
	row.Price = null.FloatFromPtr(price)
	row.Sector = null.StringFromPtr(sector)
	row.Return = null.FloatFromPtr(ret)
	row.Volatility30 = null.FloatFromPtr(vol)
	row.Volatility30Annualized = null.FloatFromPtr(annual)
	row.DailyVolatility = null.FloatFromPtr(daily)
	row.RelativeToBenchmark = null.FloatFromPtr(relat)
	return row, nil
}

// floatArg maps a nullable float onto a pgx argument.
func floatArg(v null.Float) any {
	if !v.Valid {
		return nil
	}
	return v.Float64
}
