package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"PredWatch/internal/domain/models"
	"PredWatch/internal/domain/repository"
)

const dateLayout = "2006-01-02"

// SQLiteObservationStore is the local fallback observation store. It
// mirrors the ClickHouse history so reads survive a primary outage.
type SQLiteObservationStore struct {
	db *sql.DB
}

func NewSQLiteObservationStore(db *sql.DB) repository.ObservationStore {
	return &SQLiteObservationStore{db: db}
}

func (s *SQLiteObservationStore) Upsert(ctx context.Context, obs []models.Observation) (int, error) {
	if len(obs) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO observations
		(ticker, date, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (ticker, date) DO UPDATE SET
			open = excluded.open, high = excluded.high,
			low = excluded.low, close = excluded.close,
			volume = excluded.volume`)
	if err != nil {
		return 0, fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	written := 0
	for _, o := range obs {
		if o.Ticker == "" || o.Date.IsZero() {
			continue
		}
		if _, err := stmt.ExecContext(ctx, o.Ticker, o.Date.UTC().Format(dateLayout),
			o.Open, o.High, o.Low, o.Close, o.Volume); err != nil {
			return written, fmt.Errorf("upsert observation: %w", err)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return written, nil
}

func (s *SQLiteObservationStore) Read(ctx context.Context, ticker string, start, end time.Time) ([]models.Observation, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT ticker, date, open, high, low, close, volume
		FROM observations
		WHERE ticker = ? AND date >= ? AND date <= ?
		ORDER BY date ASC`,
		ticker, start.UTC().Format(dateLayout), end.UTC().Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("query observations: %w", err)
	}
	defer rows.Close()

	var out []models.Observation
	for rows.Next() {
		var o models.Observation
		var date string
		if err := rows.Scan(&o.Ticker, &date, &o.Open, &o.High, &o.Low, &o.Close, &o.Volume); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		if o.Date, err = time.Parse(dateLayout, date); err != nil {
			return nil, fmt.Errorf("parse date %q: %w", date, err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *SQLiteObservationStore) Stats(ctx context.Context, ticker string) (models.StoreStats, error) {
	st := models.StoreStats{Ticker: ticker}
	var minDate, maxDate sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*), MIN(date), MAX(date) FROM observations WHERE ticker = ?", ticker).
		Scan(&st.Count, &minDate, &maxDate)
	if err != nil {
		return st, fmt.Errorf("observation stats: %w", err)
	}
	if minDate.Valid {
		st.MinDate, _ = time.Parse(dateLayout, minDate.String)
	}
	if maxDate.Valid {
		st.MaxDate, _ = time.Parse(dateLayout, maxDate.String)
	}
	return st, nil
}

func (s *SQLiteObservationStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM observations").Scan(&n); err != nil {
		return 0, fmt.Errorf("count observations: %w", err)
	}
	return n, nil
}

func (s *SQLiteObservationStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
