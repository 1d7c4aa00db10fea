package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"PredWatch/internal/domain/models"
	"PredWatch/internal/domain/repository"
)

// CHDriftStore appends drift reports to ClickHouse. The table is an
// audit trail; nothing updates or deletes rows.
type CHDriftStore struct {
	db *sql.DB
}

func NewCHDriftStore(db *sql.DB) repository.DriftStore {
	return &CHDriftStore{db: db}
}

func (s *CHDriftStore) Append(ctx context.Context, reports []models.DriftReport) error {
	if len(reports) == 0 {
		return nil
	}

	values := make([]string, 0, len(reports))
	args := make([]interface{}, 0, len(reports)*9)
	for _, r := range reports {
		values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args,
			r.Ticker, r.WindowStart, r.WindowEnd, r.Feature,
			r.Statistic, r.PValue, boolUInt8(r.Drifted), boolUInt8(r.Stale),
			r.EvaluatedAt,
		)
	}

	q := `INSERT INTO drift_reports
		(ticker, window_start, window_end, feature, statistic, p_value, drifted, stale, evaluated_at)
		VALUES ` + strings.Join(values, ",")
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("insert drift reports: %w", err)
	}
	return nil
}

func (s *CHDriftStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT count() FROM drift_reports").Scan(&n); err != nil {
		return 0, fmt.Errorf("count drift reports: %w", err)
	}
	return n, nil
}

func boolUInt8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
