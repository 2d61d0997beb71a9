package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"oi-signal-engine/src/helpers"
	"oi-signal-engine/src/logger"
	"oi-signal-engine/src/models"

	"github.com/jmoiron/sqlx"
)

// Bulk insert sizing: stay under the bind-variable limit of both engines.
const (
	maxBindVars     = 32000
	paramsPerSample = 8
	sampleBatchSize = maxBindVars / paramsPerSample // 4000 rows
)

// dialect is what differs between the SQL backends.
type dialect struct {
	name   string
	serial string // auto-increment primary key column type
	bigint string
	float  string

	// table qualifies a bare table name.
	table func(name string) string

	// prelude runs before the DDL (pragmas, schema creation).
	prelude []string

	// misconfigured reports driver errors that retrying will not fix:
	// credentials, missing database, permissions.
	misconfigured func(err error) bool
}

// -----------------------------------------------------------------------------

// SQLStore is the catalog, tick store and signal store on one SQL database.
// The schema is created on the first operation that reaches the database, so
// an unreachable store at start-up only fails cycles, never the process.
type SQLStore struct {
	Config *models.MConfig
	DB     *sqlx.DB
	Logger *logger.Logger

	dialect  dialect
	migrated atomic.Bool
	mu       sync.Mutex
}

// -----------------------------------------------------------------------------

func newSQLStore(cfg *models.MConfig, db *sqlx.DB, d dialect, log *logger.Logger) *SQLStore {
	return &SQLStore{
		Config:  cfg,
		DB:      db,
		Logger:  log,
		dialect: d,
	}
}

// -----------------------------------------------------------------------------
// Schema
// -----------------------------------------------------------------------------

const schemaTemplate = `
CREATE TABLE IF NOT EXISTS {instruments} (
	token TEXT PRIMARY KEY,
	symbol TEXT NOT NULL,
	name TEXT NOT NULL,
	exchange TEXT NOT NULL,
	instrument_type TEXT NOT NULL,
	strike {float},
	expiry {bigint},
	lot_size INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS {market_data} (
	id {serial},
	token TEXT NOT NULL,
	timestamp {bigint} NOT NULL,
	last_price {float} NOT NULL,
	open_interest {bigint} NOT NULL,
	oi_change {bigint} NOT NULL DEFAULT 0,
	volume {bigint} NOT NULL DEFAULT 0,
	exchange TEXT NOT NULL DEFAULT '',
	instrument_type TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_market_data_token_ts ON {market_data} (token, timestamp);
CREATE TABLE IF NOT EXISTS {oi_signals} (
	id {serial},
	cycle_id TEXT NOT NULL DEFAULT '',
	timestamp {bigint} NOT NULL,
	token TEXT NOT NULL,
	symbol TEXT NOT NULL,
	current_oi {bigint} NOT NULL,
	previous_oi {bigint} NOT NULL,
	oi_change {bigint} NOT NULL,
	oi_change_percent {float} NOT NULL,
	current_price {float} NOT NULL,
	implied_volatility {float} NOT NULL,
	signal_strength TEXT NOT NULL,
	signal_type TEXT NOT NULL,
	exchange TEXT NOT NULL,
	instrument_type TEXT NOT NULL,
	underlying TEXT NOT NULL,
	strike_price {float},
	option_type TEXT NOT NULL,
	analysis_window TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_oi_signals_ts ON {oi_signals} (timestamp);
CREATE TABLE IF NOT EXISTS {oi_analytics} (
	id {serial},
	cycle_id TEXT NOT NULL DEFAULT '',
	timestamp {bigint} NOT NULL,
	underlying TEXT NOT NULL,
	total_oi_change {bigint} NOT NULL,
	call_oi_change {bigint} NOT NULL,
	put_oi_change {bigint} NOT NULL,
	max_call_oi_change {bigint} NOT NULL,
	max_put_oi_change {bigint} NOT NULL,
	max_call_oi_token TEXT NOT NULL DEFAULT '',
	max_put_oi_token TEXT NOT NULL DEFAULT '',
	avg_iv {float} NOT NULL,
	max_iv {float} NOT NULL,
	high_iv_count INTEGER NOT NULL,
	pcr_oi {float} NOT NULL,
	market_sentiment TEXT NOT NULL,
	sentiment_score {float} NOT NULL,
	signal_count INTEGER NOT NULL,
	exchange TEXT NOT NULL DEFAULT '',
	session_type TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_oi_analytics_ts ON {oi_analytics} (timestamp)`

func (s *SQLStore) schema() []string {
	d := s.dialect
	r := strings.NewReplacer(
		"{instruments}", d.table("instruments"),
		"{market_data}", d.table("market_data"),
		"{oi_signals}", d.table("oi_signals"),
		"{oi_analytics}", d.table("oi_analytics"),
		"{serial}", d.serial,
		"{bigint}", d.bigint,
		"{float}", d.float,
	)
	stmts := append([]string(nil), d.prelude...)
	for _, stmt := range strings.Split(r.Replace(schemaTemplate), ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}

// ready creates the schema once. A failed attempt is retried by the next call.
func (s *SQLStore) ready(ctx context.Context) error {
	if s.migrated.Load() {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.migrated.Load() {
		return nil
	}

	for _, stmt := range s.schema() {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			if s.dialect.misconfigured != nil && s.dialect.misconfigured(err) {
				return helpers.NewConfigurationError(s.dialect.name+" schema", err)
			}
			return fmt.Errorf("%s schema: %w", s.dialect.name, err)
		}
	}
	s.migrated.Store(true)
	s.Logger.Info("%s store schema ready", s.dialect.name)
	return nil
}

// -----------------------------------------------------------------------------
// Instrument catalog
// -----------------------------------------------------------------------------

const instrumentColumns = "token, symbol, name, exchange, instrument_type, strike, expiry, lot_size"

func (s *SQLStore) GetInstrument(ctx context.Context, token string) (*models.MInstrument, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	var row instrumentRow
	q := s.DB.Rebind(fmt.Sprintf("SELECT %s FROM %s WHERE token = ?", instrumentColumns, s.dialect.table("instruments")))
	if err := s.DB.GetContext(ctx, &row, q, token); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get instrument %s: %w", token, err)
	}
	inst := row.model()
	return &inst, nil
}

func (s *SQLStore) ListStreamingUniverse(ctx context.Context, underlyings []string, asOf time.Time) (models.MStreamingUniverse, error) {
	if err := s.ready(ctx); err != nil {
		return models.MStreamingUniverse{}, err
	}

	futureTypes := []string{models.InstrumentFutStk, models.InstrumentFutIdx, models.InstrumentFutCom}
	optionTypes := []string{models.InstrumentOptIdx, models.InstrumentOptStk, models.InstrumentOptFut}
	names := underlyings
	if len(names) == 0 {
		names = []string{""}
	}

	q, args, err := sqlx.In(fmt.Sprintf(
		"SELECT %s FROM %s WHERE expiry >= ? AND (instrument_type IN (?) OR (instrument_type IN (?) AND name IN (?) AND strike IS NOT NULL))",
		instrumentColumns, s.dialect.table("instruments")),
		dayStart(asOf).UnixMilli(), futureTypes, optionTypes, names)
	if err != nil {
		return models.MStreamingUniverse{}, err
	}

	var rows []instrumentRow
	if err := s.DB.SelectContext(ctx, &rows, s.DB.Rebind(q), args...); err != nil {
		return models.MStreamingUniverse{}, fmt.Errorf("list instruments: %w", err)
	}

	instruments := make([]models.MInstrument, len(rows))
	for i, r := range rows {
		instruments[i] = r.model()
	}
	eng := s.Config.Engine
	return SelectStreamingUniverse(instruments, underlyings, asOf, eng.MaxFutures, eng.MaxOptionsPerSide), nil
}

func (s *SQLStore) UpsertInstruments(ctx context.Context, instruments []models.MInstrument) error {
	if len(instruments) == 0 {
		return nil
	}
	if err := s.ready(ctx); err != nil {
		return err
	}

	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	q := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES (:token, :symbol, :name, :exchange, :instrument_type, :strike, :expiry, :lot_size)
		ON CONFLICT (token) DO UPDATE SET
			symbol = excluded.symbol,
			name = excluded.name,
			exchange = excluded.exchange,
			instrument_type = excluded.instrument_type,
			strike = excluded.strike,
			expiry = excluded.expiry,
			lot_size = excluded.lot_size
	`, s.dialect.table("instruments"), instrumentColumns)

	for _, inst := range instruments {
		if _, err := tx.NamedExecContext(ctx, q, newInstrumentRow(inst)); err != nil {
			return fmt.Errorf("upsert instrument %s: %w", inst.Token, err)
		}
	}
	return tx.Commit()
}

// -----------------------------------------------------------------------------
// Tick store
// -----------------------------------------------------------------------------

const sampleColumns = "token, timestamp, last_price, open_interest, oi_change, volume, exchange, instrument_type"

func (s *SQLStore) RecentSamples(ctx context.Context, token string, since time.Time, limit int) ([]models.MMarketSample, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	q := s.DB.Rebind(fmt.Sprintf(
		"SELECT %s FROM %s WHERE token = ? AND timestamp >= ? ORDER BY timestamp DESC, id DESC LIMIT ?",
		sampleColumns, s.dialect.table("market_data")))

	var rows []sampleRow
	if err := s.DB.SelectContext(ctx, &rows, q, token, since.UnixMilli(), limit); err != nil {
		return nil, fmt.Errorf("recent samples %s: %w", token, err)
	}

	out := make([]models.MMarketSample, len(rows))
	for i, r := range rows {
		out[i] = r.model()
	}
	return out, nil
}

// AppendSamples bulk-inserts ticks in one transaction.
func (s *SQLStore) AppendSamples(ctx context.Context, samples []models.MMarketSample) error {
	if len(samples) == 0 {
		return nil
	}
	if err := s.ready(ctx); err != nil {
		return err
	}

	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	q := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (:token, :timestamp, :last_price, :open_interest, :oi_change, :volume, :exchange, :instrument_type)`,
		s.dialect.table("market_data"), sampleColumns)

	for start := 0; start < len(samples); start += sampleBatchSize {
		end := min(start+sampleBatchSize, len(samples))
		batch := make([]sampleRow, 0, end-start)
		for _, sm := range samples[start:end] {
			batch = append(batch, newSampleRow(sm))
		}
		if _, err := tx.NamedExecContext(ctx, q, batch); err != nil {
			return fmt.Errorf("insert samples: %w", err)
		}
	}
	return tx.Commit()
}

// PruneBefore deletes ticks stamped before cutoff.
func (s *SQLStore) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}

	q := s.DB.Rebind(fmt.Sprintf("DELETE FROM %s WHERE timestamp < ?", s.dialect.table("market_data")))
	res, err := s.DB.ExecContext(ctx, q, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune market data: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	s.Logger.Info("Pruned %d tick(s) older than %s", n, cutoff.Format(time.RFC3339))
	return n, nil
}

// -----------------------------------------------------------------------------
// Signal store
// -----------------------------------------------------------------------------

const signalColumns = "cycle_id, timestamp, token, symbol, current_oi, previous_oi, oi_change, oi_change_percent, current_price, implied_volatility, signal_strength, signal_type, exchange, instrument_type, underlying, strike_price, option_type, analysis_window"

const analyticsColumns = "cycle_id, timestamp, underlying, total_oi_change, call_oi_change, put_oi_change, max_call_oi_change, max_put_oi_change, max_call_oi_token, max_put_oi_token, avg_iv, max_iv, high_iv_count, pcr_oi, market_sentiment, sentiment_score, signal_count, exchange, session_type"

func (s *SQLStore) AppendSignal(ctx context.Context, signal models.MOISignal) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		s.dialect.table("oi_signals"), signalColumns, namedParams(signalColumns))
	if _, err := s.DB.NamedExecContext(ctx, q, newSignalRow(signal)); err != nil {
		return fmt.Errorf("insert signal %s: %w", signal.Token, err)
	}
	return nil
}

func (s *SQLStore) AppendAnalytics(ctx context.Context, analytics models.MOIAnalytics) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		s.dialect.table("oi_analytics"), analyticsColumns, namedParams(analyticsColumns))
	if _, err := s.DB.NamedExecContext(ctx, q, newAnalyticsRow(analytics)); err != nil {
		return fmt.Errorf("insert analytics %s: %w", analytics.Underlying, err)
	}
	return nil
}

func (s *SQLStore) QuerySignals(ctx context.Context, filter models.MSignalFilter) ([]models.MOISignal, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	var where []string
	var args []any
	add := func(clause string, arg any) {
		where = append(where, clause)
		args = append(args, arg)
	}
	if filter.Strength != "" {
		add("signal_strength = ?", filter.Strength)
	}
	if filter.Underlying != "" {
		add("underlying = ?", filter.Underlying)
	}
	if filter.Exchange != "" {
		add("exchange = ?", filter.Exchange)
	}
	if !filter.Since.IsZero() {
		add("timestamp >= ?", filter.Since.UnixMilli())
	}

	q := fmt.Sprintf("SELECT id, %s FROM %s", signalColumns, s.dialect.table("oi_signals"))
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY timestamp DESC, id DESC LIMIT ?"
	args = append(args, limitOr(filter.Limit, 50))

	var rows []signalRow
	if err := s.DB.SelectContext(ctx, &rows, s.DB.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("query signals: %w", err)
	}
	out := make([]models.MOISignal, len(rows))
	for i, r := range rows {
		out[i] = r.model()
	}
	return out, nil
}

func (s *SQLStore) QueryAnalytics(ctx context.Context, underlying string, limit int) ([]models.MOIAnalytics, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	q := fmt.Sprintf("SELECT id, %s FROM %s", analyticsColumns, s.dialect.table("oi_analytics"))
	var args []any
	if underlying != "" {
		q += " WHERE underlying = ?"
		args = append(args, underlying)
	}
	q += " ORDER BY timestamp DESC, id DESC LIMIT ?"
	args = append(args, limitOr(limit, 20))

	var rows []analyticsRow
	if err := s.DB.SelectContext(ctx, &rows, s.DB.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("query analytics: %w", err)
	}
	out := make([]models.MOIAnalytics, len(rows))
	for i, r := range rows {
		out[i] = r.model()
	}
	return out, nil
}

// -----------------------------------------------------------------------------

func (s *SQLStore) Close() error {
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}

// -----------------------------------------------------------------------------

// namedParams turns "a, b" into ":a, :b".
func namedParams(columns string) string {
	cols := strings.Split(columns, ", ")
	for i, c := range cols {
		cols[i] = ":" + c
	}
	return strings.Join(cols, ", ")
}

func limitOr(limit, def int) int {
	if limit <= 0 {
		return def
	}
	return limit
}

func dayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
