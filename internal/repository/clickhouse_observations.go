package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"PredWatch/internal/domain/models"
	"PredWatch/internal/domain/repository"
)

// CHObservationStore keeps observation history in ClickHouse. The table
// dedupes on (ticker, date) via ReplacingMergeTree, so Upsert is a plain
// batched insert and reads go through FINAL.
type CHObservationStore struct {
	db *sql.DB
}

func NewCHObservationStore(db *sql.DB) repository.ObservationStore {
	return &CHObservationStore{db: db}
}

func (s *CHObservationStore) Upsert(ctx context.Context, obs []models.Observation) (int, error) {
	if len(obs) == 0 {
		return 0, nil
	}

	const chunkSize = 2000
	written := 0
	for start := 0; start < len(obs); start += chunkSize {
		end := start + chunkSize
		if end > len(obs) {
			end = len(obs)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*7)
		for _, o := range obs[start:end] {
			if o.Ticker == "" || o.Date.IsZero() {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?)")
			args = append(args, o.Ticker, o.Date, o.Open, o.High, o.Low, o.Close, o.Volume)
		}
		if len(values) == 0 {
			continue
		}

		q := "INSERT INTO observations (ticker, date, open, high, low, close, volume) VALUES " + strings.Join(values, ",")
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return written, fmt.Errorf("insert observations: %w", err)
		}
		written += len(values)
	}
	return written, nil
}

func (s *CHObservationStore) Read(ctx context.Context, ticker string, start, end time.Time) ([]models.Observation, error) {
	q := `SELECT ticker, date, open, high, low, close, volume
		FROM observations FINAL
		WHERE ticker = ? AND date >= ? AND date <= ?
		ORDER BY date ASC`
	rows, err := s.db.QueryContext(ctx, q, ticker, start, end)
	if err != nil {
		return nil, fmt.Errorf("query observations: %w", err)
	}
	defer rows.Close()

	var out []models.Observation
	for rows.Next() {
		var o models.Observation
		if err := rows.Scan(&o.Ticker, &o.Date, &o.Open, &o.High, &o.Low, &o.Close, &o.Volume); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *CHObservationStore) Stats(ctx context.Context, ticker string) (models.StoreStats, error) {
	q := `SELECT count(), min(date), max(date)
		FROM observations FINAL
		WHERE ticker = ?`
	st := models.StoreStats{Ticker: ticker}
	var minDate, maxDate time.Time
	if err := s.db.QueryRowContext(ctx, q, ticker).Scan(&st.Count, &minDate, &maxDate); err != nil {
		return st, fmt.Errorf("observation stats: %w", err)
	}
	if st.Count > 0 {
		st.MinDate = minDate
		st.MaxDate = maxDate
	}
	return st, nil
}

func (s *CHObservationStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT count() FROM observations FINAL").Scan(&n); err != nil {
		return 0, fmt.Errorf("count observations: %w", err)
	}
	return n, nil
}

func (s *CHObservationStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
