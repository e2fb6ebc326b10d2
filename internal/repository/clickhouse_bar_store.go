package repository

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	"FinScope/internal/domain/models"
	domrepo "FinScope/internal/domain/repository"
	pkgch "FinScope/pkg/clickhouse"
	applogger "FinScope/pkg/logger"
)

// CHBarStore implements BarSource backed by per-interval ClickHouse tables.
type CHBarStore struct {
	db       *sql.DB
	database string
	l        *applogger.Logger
}

func NewCHBarStore(ch *pkgch.Client, database string) *CHBarStore {
	if database == "" {
		database = "finscope"
	}
	return &CHBarStore{db: ch.DB(), database: database}
}

// SetLogger injects a structured logger.
func (s *CHBarStore) SetLogger(l *applogger.Logger) { s.l = l }

// Schema returns the idempotent DDL for every bar table.
func (s *CHBarStore) Schema() []string {
	stmts := []string{fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", s.database)}
	for _, iv := range []domrepo.Interval{domrepo.Interval1h, domrepo.Interval1d, domrepo.Interval1wk} {
		table, _ := s.tableFor(iv)
		stmts = append(stmts, fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            ts     DateTime64(3, 'UTC'),
            symbol LowCardinality(String),
            open   Float64,
            high   Float64,
            low    Float64,
            close  Nullable(Float64),
            volume Float64
        )
        ENGINE = ReplacingMergeTree
        ORDER BY (symbol, ts)`, table))
	}
	return stmts
}

func (s *CHBarStore) GetBars(ctx context.Context, symbol string, from, to time.Time, iv domrepo.Interval) ([]models.PriceBar, error) {
	start := time.Now()
	table, err := s.tableFor(iv)
	if err != nil {
		return nil, err
	}
	from, to = domrepo.AlignRange(from, to, iv)
	const qtpl = `
        SELECT ts, open, high, low, close, volume
        FROM %s FINAL
        WHERE symbol = ? AND ts >= ? AND ts <= ?
        ORDER BY ts ASC
    `
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(qtpl, table), symbol, from, to)
	if err != nil {
		s.logErr("clickhouse get_bars query error", table, symbol, iv, err)
		return nil, fmt.Errorf("get bars: %w", err)
	}
	defer rows.Close()

	out, err := scanBars(rows, 1024)
	if err != nil {
		s.logErr("clickhouse get_bars scan error", table, symbol, iv, err)
		return nil, err
	}
	if s.l != nil {
		s.l.Info("clickhouse get_bars ok",
			applogger.String("table", table),
			applogger.String("symbol", symbol),
			applogger.String("interval", string(iv)),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	if len(out) == 0 {
		return nil, domrepo.ErrNoBars
	}
	return out, nil
}

func (s *CHBarStore) GetLatestBars(ctx context.Context, symbol string, n int, iv domrepo.Interval) ([]models.PriceBar, error) {
	start := time.Now()
	table, err := s.tableFor(iv)
	if err != nil {
		return nil, err
	}
	const qtpl = `
        SELECT ts, open, high, low, close, volume
        FROM %s FINAL
        WHERE symbol = ?
        ORDER BY ts DESC
        LIMIT ?
    `
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(qtpl, table), symbol, n)
	if err != nil {
		s.logErr("clickhouse latest_bars query error", table, symbol, iv, err)
		return nil, fmt.Errorf("get latest bars: %w", err)
	}
	defer rows.Close()

	tmp, err := scanBars(rows, n)
	if err != nil {
		s.logErr("clickhouse latest_bars scan error", table, symbol, iv, err)
		return nil, err
	}
	// reverse to ASC
	for i, j := 0, len(tmp)-1; i < j; i, j = i+1, j-1 {
		tmp[i], tmp[j] = tmp[j], tmp[i]
	}
	if s.l != nil {
		s.l.Info("clickhouse latest_bars ok",
			applogger.String("table", table),
			applogger.String("symbol", symbol),
			applogger.String("interval", string(iv)),
			applogger.Int("limit", n),
			applogger.Int("rows", len(tmp)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	if len(tmp) == 0 {
		return nil, domrepo.ErrNoBars
	}
	return tmp, nil
}

// StoreBars upserts bars in chunks; a missing close is stored as NULL.
func (s *CHBarStore) StoreBars(ctx context.Context, symbol string, iv domrepo.Interval, bars []models.PriceBar) error {
	if len(bars) == 0 {
		return nil
	}
	table, err := s.tableFor(iv)
	if err != nil {
		return err
	}
	const chunkSize = 2000
	for lo := 0; lo < len(bars); lo += chunkSize {
		hi := min(lo+chunkSize, len(bars))
		values := make([]string, 0, hi-lo)
		args := make([]interface{}, 0, (hi-lo)*7)
		for _, b := range bars[lo:hi] {
			values = append(values, "(?, ?, ?, ?, ?, ?, ?)")
			var c sql.NullFloat64
			if b.HasClose() {
				c = sql.NullFloat64{Float64: b.Close, Valid: true}
			}
			args = append(args, b.Time.UTC(), symbol, b.Open, b.High, b.Low, c, b.Volume)
		}
		q := fmt.Sprintf("INSERT INTO %s (ts, symbol, open, high, low, close, volume) VALUES %s", table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			s.logErr("clickhouse store_bars error", table, symbol, iv, err)
			return fmt.Errorf("store bars: %w", err)
		}
	}
	return nil
}

func scanBars(rows *sql.Rows, capHint int) ([]models.PriceBar, error) {
	out := make([]models.PriceBar, 0, capHint)
	for rows.Next() {
		var b models.PriceBar
		var c sql.NullFloat64
		if err := rows.Scan(&b.Time, &b.Open, &b.High, &b.Low, &c, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		b.Close = math.NaN()
		if c.Valid {
			b.Close = c.Float64
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (s *CHBarStore) logErr(msg, table, symbol string, iv domrepo.Interval, err error) {
	if s.l == nil {
		return
	}
	s.l.Error(msg,
		applogger.String("table", table),
		applogger.String("symbol", symbol),
		applogger.String("interval", string(iv)),
		applogger.Error(err),
	)
}

func (s *CHBarStore) tableFor(iv domrepo.Interval) (string, error) {
	switch iv {
	case domrepo.Interval1h:
		return s.database + ".bars_1h", nil
	case domrepo.Interval1d:
		return s.database + ".bars_1d", nil
	case domrepo.Interval1wk:
		return s.database + ".bars_1wk", nil
	default:
		return "", fmt.Errorf("unsupported interval: %s", iv)
	}
}

var _ domrepo.BarSource = (*CHBarStore)(nil)
