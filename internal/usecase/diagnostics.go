package usecase

import (
	"context"

	"PredWatch/internal/domain/models"
	"PredWatch/internal/domain/repository"
	xrepo "PredWatch/internal/repository"
	applogger "PredWatch/pkg/logger"
)

// Diagnoser assembles the backend health view served by the diagnostics
// endpoint. Each count is best-effort; a dead backend reports -1 rather
// than failing the whole response.
type Diagnoser struct {
	observations *xrepo.FailoverObservationStore
	ledger       *Ledger
	mirror       repository.MirrorStore
	drifts       repository.DriftStore
	primary      repository.PredictionStore
	snapshots    *SnapshotService
	logger       *applogger.Logger
}

func NewDiagnoser(
	observations *xrepo.FailoverObservationStore,
	ledger *Ledger,
	mirror repository.MirrorStore,
	drifts repository.DriftStore,
	primary repository.PredictionStore,
	snapshots *SnapshotService,
	logger *applogger.Logger,
) *Diagnoser {
	return &Diagnoser{
		observations: observations,
		ledger:       ledger,
		mirror:       mirror,
		drifts:       drifts,
		primary:      primary,
		snapshots:    snapshots,
		logger:       logger,
	}
}

func (d *Diagnoser) Collect(ctx context.Context) *models.Diagnostics {
	diag := &models.Diagnostics{
		LastReadBackend:     d.observations.LastReadBackend(),
		PersistenceDegraded: d.observations.Degraded() || d.ledger.Degraded(),
		RecordCounts:        make(map[string]int64),
	}

	diag.RecordCounts["observations"] = d.count(ctx, d.observations.Count)
	diag.RecordCounts["predictions"] = d.count(ctx, d.primary.Count)
	diag.RecordCounts["predictions_mirror"] = d.count(ctx, d.mirror.Count)
	diag.RecordCounts["drift_reports"] = d.count(ctx, d.drifts.Count)

	if n, err := d.mirror.CountUnreconciled(ctx); err == nil {
		diag.UnreconciledMirrored = n
	} else {
		d.logger.Warn("unreconciled count failed", applogger.Error(err))
		diag.UnreconciledMirrored = -1
	}

	if snap, err := d.snapshots.Active(ctx); err == nil && snap != nil {
		diag.ActiveSnapshot = snap.VersionID
	}

	return diag
}

func (d *Diagnoser) count(ctx context.Context, fn func(context.Context) (int64, error)) int64 {
	n, err := fn(ctx)
	if err != nil {
		return -1
	}
	return n
}
