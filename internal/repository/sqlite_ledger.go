package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"PredWatch/internal/domain/models"
	"PredWatch/internal/domain/repository"
)

// SQLiteLedger is the local mirror of the prediction ledger. Rows written
// while ClickHouse was down carry reconciled = 0 until the reconciler
// replays them into the primary.
type SQLiteLedger struct {
	db *sql.DB
}

func NewSQLiteLedger(db *sql.DB) repository.MirrorStore {
	return &SQLiteLedger{db: db}
}

func (s *SQLiteLedger) Append(ctx context.Context, rec models.PredictionRecord) error {
	return s.upsert(ctx, rec, true)
}

func (s *SQLiteLedger) Update(ctx context.Context, rec models.PredictionRecord) error {
	return s.upsert(ctx, rec, true)
}

// AppendUnreconciled records a write that did not reach the primary.
func (s *SQLiteLedger) AppendUnreconciled(ctx context.Context, rec models.PredictionRecord) error {
	return s.upsert(ctx, rec, false)
}

func (s *SQLiteLedger) upsert(ctx context.Context, rec models.PredictionRecord, reconciled bool) error {
	rc := 0
	if reconciled {
		rc = 1
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO predictions
		(id, ticker, created_at, horizon_date, predicted_close,
		 realized_close, abs_error, pct_error, status, validated_at, updated_at, reconciled)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			realized_close = excluded.realized_close,
			abs_error      = excluded.abs_error,
			pct_error      = excluded.pct_error,
			status         = excluded.status,
			validated_at   = excluded.validated_at,
			updated_at     = excluded.updated_at,
			reconciled     = excluded.reconciled`,
		rec.ID, rec.Ticker, rec.CreatedAt.UTC().Format(time.RFC3339Nano),
		rec.HorizonDate.UTC().Format(dateLayout), rec.PredictedClose,
		rec.RealizedClose, rec.AbsError, rec.PctError, string(rec.Status),
		nullableTime(rec.ValidatedAt), rec.UpdatedAt.UTC().Format(time.RFC3339Nano), rc)
	if err != nil {
		return fmt.Errorf("upsert prediction: %w", err)
	}
	return nil
}

const mirrorColumns = `id, ticker, created_at, horizon_date, predicted_close,
	realized_close, abs_error, pct_error, status, validated_at, updated_at`

func (s *SQLiteLedger) Get(ctx context.Context, id string) (*models.PredictionRecord, error) {
	q := fmt.Sprintf("SELECT %s FROM predictions WHERE id = ?", mirrorColumns)
	rec, err := scanMirrorPrediction(s.db.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get prediction: %w", err)
	}
	return rec, nil
}

func (s *SQLiteLedger) ListPending(ctx context.Context, olderThan time.Time) ([]models.PredictionRecord, error) {
	q := fmt.Sprintf(`SELECT %s FROM predictions
		WHERE status = 'pending' AND horizon_date <= ?
		ORDER BY horizon_date ASC`, mirrorColumns)
	return s.list(ctx, q, olderThan.UTC().Format(dateLayout))
}

func (s *SQLiteLedger) ListValidated(ctx context.Context, since time.Time) ([]models.PredictionRecord, error) {
	q := fmt.Sprintf(`SELECT %s FROM predictions
		WHERE status = 'validated' AND validated_at >= ?
		ORDER BY validated_at ASC`, mirrorColumns)
	return s.list(ctx, q, since.UTC().Format(time.RFC3339Nano))
}

func (s *SQLiteLedger) ListUnreconciled(ctx context.Context, limit int) ([]models.PredictionRecord, error) {
	q := fmt.Sprintf(`SELECT %s FROM predictions
		WHERE reconciled = 0
		ORDER BY updated_at ASC
		LIMIT ?`, mirrorColumns)
	return s.list(ctx, q, limit)
}

func (s *SQLiteLedger) MarkReconciled(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "UPDATE predictions SET reconciled = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("mark reconciled: %w", err)
	}
	return nil
}

func (s *SQLiteLedger) CountUnreconciled(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM predictions WHERE reconciled = 0").Scan(&n); err != nil {
		return 0, fmt.Errorf("count unreconciled: %w", err)
	}
	return n, nil
}

func (s *SQLiteLedger) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM predictions").Scan(&n); err != nil {
		return 0, fmt.Errorf("count predictions: %w", err)
	}
	return n, nil
}

func (s *SQLiteLedger) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteLedger) list(ctx context.Context, q string, args ...interface{}) ([]models.PredictionRecord, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query predictions: %w", err)
	}
	defer rows.Close()

	var out []models.PredictionRecord
	for rows.Next() {
		rec, err := scanMirrorPrediction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func scanMirrorPrediction(row rowScanner) (*models.PredictionRecord, error) {
	var rec models.PredictionRecord
	var status, createdAt, horizonDate, updatedAt string
	var validatedAt sql.NullString
	if err := row.Scan(
		&rec.ID, &rec.Ticker, &createdAt, &horizonDate, &rec.PredictedClose,
		&rec.RealizedClose, &rec.AbsError, &rec.PctError, &status,
		&validatedAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	rec.Status = models.PredictionStatus(status)
	var err error
	if rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if rec.HorizonDate, err = time.Parse(dateLayout, horizonDate); err != nil {
		return nil, fmt.Errorf("parse horizon_date: %w", err)
	}
	if rec.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	if validatedAt.Valid {
		t, err := time.Parse(time.RFC3339Nano, validatedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse validated_at: %w", err)
		}
		rec.ValidatedAt = &t
	}
	return &rec, nil
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}
