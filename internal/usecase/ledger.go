package usecase

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"PredWatch/internal/domain/models"
	"PredWatch/internal/domain/repository"
	applogger "PredWatch/pkg/logger"
)

// Ledger is the dual-write prediction ledger. Every write goes to the
// primary and to the local mirror; when the primary is down the mirror
// row is marked unreconciled and the write still succeeds. A write only
// fails when neither backend accepts the record.
type Ledger struct {
	primary repository.PredictionStore
	mirror  repository.MirrorStore
	metrics repository.Metrics
	logger  *applogger.Logger

	degraded atomic.Bool
}

func NewLedger(
	primary repository.PredictionStore,
	mirror repository.MirrorStore,
	metrics repository.Metrics,
	logger *applogger.Logger,
) *Ledger {
	return &Ledger{
		primary: primary,
		mirror:  mirror,
		metrics: metrics,
		logger:  logger,
	}
}

// Record appends a new pending prediction. The returned record carries
// the generated id.
func (l *Ledger) Record(ctx context.Context, ticker string, horizon time.Time, predictedClose float64) (*models.PredictionRecord, error) {
	now := time.Now().UTC()
	rec := models.PredictionRecord{
		ID:             uuid.NewString(),
		Ticker:         ticker,
		CreatedAt:      now,
		HorizonDate:    horizon,
		PredictedClose: predictedClose,
		Status:         models.StatusPending,
		UpdatedAt:      now,
	}

	if err := l.write(ctx, rec, l.primary.Append); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Update persists a status change through both backends.
func (l *Ledger) Update(ctx context.Context, rec models.PredictionRecord) error {
	return l.write(ctx, rec, l.primary.Update)
}

func (l *Ledger) write(ctx context.Context, rec models.PredictionRecord, primaryOp func(context.Context, models.PredictionRecord) error) error {
	perr := primaryOp(ctx, rec)
	if perr == nil {
		l.setDegraded(false)
		if err := l.mirror.Update(ctx, rec); err != nil {
			// Mirror lag is tolerable; the primary holds the truth.
			l.logger.Warn("mirror ledger write failed",
				applogger.String("id", rec.ID),
				applogger.Error(err))
		}
		return nil
	}

	l.setDegraded(true)
	l.logger.Error("primary ledger write failed, holding in mirror",
		applogger.String("id", rec.ID),
		applogger.Error(perr))
	if err := l.mirror.AppendUnreconciled(ctx, rec); err != nil {
		// Both backends down. The record landed nowhere.
		l.logger.Error("mirror ledger write failed, record dropped",
			applogger.String("id", rec.ID),
			applogger.Error(err))
		return fmt.Errorf("ledger write failed on both backends: %w", perr)
	}
	return nil
}

// Get prefers the primary and falls back to the mirror.
func (l *Ledger) Get(ctx context.Context, id string) (*models.PredictionRecord, error) {
	rec, err := l.primary.Get(ctx, id)
	if err == nil {
		return rec, nil
	}
	return l.mirror.Get(ctx, id)
}

// ListPending prefers the primary and falls back to the mirror.
func (l *Ledger) ListPending(ctx context.Context, olderThan time.Time) ([]models.PredictionRecord, error) {
	recs, err := l.primary.ListPending(ctx, olderThan)
	if err == nil {
		l.setDegraded(false)
		return recs, nil
	}
	l.setDegraded(true)
	l.logger.Warn("primary ledger read failed, using mirror", applogger.Error(err))
	return l.mirror.ListPending(ctx, olderThan)
}

// ListValidated prefers the primary and falls back to the mirror.
func (l *Ledger) ListValidated(ctx context.Context, since time.Time) ([]models.PredictionRecord, error) {
	recs, err := l.primary.ListValidated(ctx, since)
	if err == nil {
		l.setDegraded(false)
		return recs, nil
	}
	l.setDegraded(true)
	l.logger.Warn("primary ledger read failed, using mirror", applogger.Error(err))
	return l.mirror.ListValidated(ctx, since)
}

// Degraded reports whether the last primary operation failed.
func (l *Ledger) Degraded() bool {
	return l.degraded.Load()
}

func (l *Ledger) setDegraded(d bool) {
	if l.degraded.Swap(d) != d {
		l.metrics.SetPersistenceDegraded(d)
	}
}
