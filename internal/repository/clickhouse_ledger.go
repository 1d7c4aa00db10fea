package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"PredWatch/internal/domain/models"
	"PredWatch/internal/domain/repository"
)

// CHLedger keeps the prediction ledger in ClickHouse. Status changes are
// versioned re-inserts on the same id; ReplacingMergeTree(updated_at)
// keeps the newest version and every read uses FINAL.
type CHLedger struct {
	db *sql.DB
}

func NewCHLedger(db *sql.DB) repository.PredictionStore {
	return &CHLedger{db: db}
}

const ledgerInsert = `INSERT INTO predictions
	(id, ticker, created_at, horizon_date, predicted_close,
	 realized_close, abs_error, pct_error, status, validated_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const ledgerColumns = `id, ticker, created_at, horizon_date, predicted_close,
	realized_close, abs_error, pct_error, status, validated_at, updated_at`

func (s *CHLedger) Append(ctx context.Context, rec models.PredictionRecord) error {
	return s.insert(ctx, rec)
}

// Update re-inserts the record with a newer updated_at version.
func (s *CHLedger) Update(ctx context.Context, rec models.PredictionRecord) error {
	return s.insert(ctx, rec)
}

func (s *CHLedger) insert(ctx context.Context, rec models.PredictionRecord) error {
	_, err := s.db.ExecContext(ctx, ledgerInsert,
		rec.ID, rec.Ticker, rec.CreatedAt, rec.HorizonDate, rec.PredictedClose,
		rec.RealizedClose, rec.AbsError, rec.PctError, string(rec.Status),
		rec.ValidatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert prediction: %w", err)
	}
	return nil
}

func (s *CHLedger) Get(ctx context.Context, id string) (*models.PredictionRecord, error) {
	q := fmt.Sprintf("SELECT %s FROM predictions FINAL WHERE id = ?", ledgerColumns)
	rec, err := scanPrediction(s.db.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get prediction: %w", err)
	}
	return rec, nil
}

func (s *CHLedger) ListPending(ctx context.Context, olderThan time.Time) ([]models.PredictionRecord, error) {
	q := fmt.Sprintf(`SELECT %s FROM predictions FINAL
		WHERE status = 'pending' AND horizon_date <= ?
		ORDER BY horizon_date ASC`, ledgerColumns)
	return s.list(ctx, q, olderThan)
}

func (s *CHLedger) ListValidated(ctx context.Context, since time.Time) ([]models.PredictionRecord, error) {
	q := fmt.Sprintf(`SELECT %s FROM predictions FINAL
		WHERE status = 'validated' AND validated_at >= ?
		ORDER BY validated_at ASC`, ledgerColumns)
	return s.list(ctx, q, since)
}

func (s *CHLedger) list(ctx context.Context, q string, args ...interface{}) ([]models.PredictionRecord, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query predictions: %w", err)
	}
	defer rows.Close()

	var out []models.PredictionRecord
	for rows.Next() {
		rec, err := scanPrediction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func (s *CHLedger) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT count() FROM predictions FINAL").Scan(&n); err != nil {
		return 0, fmt.Errorf("count predictions: %w", err)
	}
	return n, nil
}

func (s *CHLedger) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPrediction(row rowScanner) (*models.PredictionRecord, error) {
	var rec models.PredictionRecord
	var status string
	if err := row.Scan(
		&rec.ID, &rec.Ticker, &rec.CreatedAt, &rec.HorizonDate, &rec.PredictedClose,
		&rec.RealizedClose, &rec.AbsError, &rec.PctError, &status,
		&rec.ValidatedAt, &rec.UpdatedAt,
	); err != nil {
		return nil, err
	}
	rec.Status = models.PredictionStatus(status)
	return &rec, nil
}
