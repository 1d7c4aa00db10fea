package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"PredWatch/internal/domain/models"
	"PredWatch/internal/domain/repository"
)

// SQLiteSnapshotRegistry owns model snapshot rows. Promote runs inside a
// single transaction so readers never observe zero or two active rows.
type SQLiteSnapshotRegistry struct {
	db *sql.DB
}

func NewSQLiteSnapshotRegistry(db *sql.DB) repository.SnapshotRegistry {
	return &SQLiteSnapshotRegistry{db: db}
}

func (s *SQLiteSnapshotRegistry) Save(ctx context.Context, snap models.ModelSnapshot) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO snapshots
		(version_id, ticker, rmse, mae, mape, r2, created_at, status, reject_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (version_id) DO UPDATE SET
			status = excluded.status, reject_reason = excluded.reject_reason`,
		snap.VersionID, snap.Ticker,
		snap.Metrics.RMSE, snap.Metrics.MAE, snap.Metrics.MAPE, snap.Metrics.R2,
		snap.CreatedAt.UTC().Format(time.RFC3339Nano), string(snap.Status), snap.RejectReason)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

const snapshotColumns = "version_id, ticker, rmse, mae, mape, r2, created_at, status, reject_reason"

func (s *SQLiteSnapshotRegistry) Get(ctx context.Context, versionID string) (*models.ModelSnapshot, error) {
	q := fmt.Sprintf("SELECT %s FROM snapshots WHERE version_id = ?", snapshotColumns)
	snap, err := scanSnapshot(s.db.QueryRowContext(ctx, q, versionID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	return snap, nil
}

func (s *SQLiteSnapshotRegistry) Active(ctx context.Context) (*models.ModelSnapshot, error) {
	q := fmt.Sprintf("SELECT %s FROM snapshots WHERE status = 'active' LIMIT 1", snapshotColumns)
	snap, err := scanSnapshot(s.db.QueryRowContext(ctx, q))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("active snapshot: %w", err)
	}
	return snap, nil
}

// Promote retires the current active snapshot and activates versionID
// atomically. Fails without side effects when versionID is unknown.
func (s *SQLiteSnapshotRegistry) Promote(ctx context.Context, versionID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"UPDATE snapshots SET status = 'active' WHERE version_id = ?", versionID)
	if err != nil {
		return fmt.Errorf("activate snapshot: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("promote: unknown snapshot %q", versionID)
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE snapshots SET status = 'retired' WHERE status = 'active' AND version_id != ?",
		versionID); err != nil {
		return fmt.Errorf("retire snapshot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit promote: %w", err)
	}
	return nil
}

func (s *SQLiteSnapshotRegistry) List(ctx context.Context, limit int) ([]models.ModelSnapshot, error) {
	q := fmt.Sprintf("SELECT %s FROM snapshots ORDER BY created_at DESC LIMIT ?", snapshotColumns)
	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var out []models.ModelSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, *snap)
	}
	return out, rows.Err()
}

func scanSnapshot(row rowScanner) (*models.ModelSnapshot, error) {
	var snap models.ModelSnapshot
	var createdAt, status string
	if err := row.Scan(
		&snap.VersionID, &snap.Ticker,
		&snap.Metrics.RMSE, &snap.Metrics.MAE, &snap.Metrics.MAPE, &snap.Metrics.R2,
		&createdAt, &status, &snap.RejectReason,
	); err != nil {
		return nil, err
	}
	snap.Status = models.SnapshotStatus(status)
	var err error
	if snap.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	return &snap, nil
}
