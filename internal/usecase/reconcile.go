package usecase

import (
	"context"

	"PredWatch/internal/domain/repository"
	applogger "PredWatch/pkg/logger"
)

// reconcileBatch caps each pass so a long outage backlog drains in
// bounded slices.
const reconcileBatch = 500

// Reconciler replays mirror rows that never reached the primary. Replay
// is idempotent: a row already present in the primary with the same or a
// newer status is only marked reconciled, never rewritten.
type Reconciler struct {
	primary repository.PredictionStore
	mirror  repository.MirrorStore
	logger  *applogger.Logger
}

func NewReconciler(primary repository.PredictionStore, mirror repository.MirrorStore, logger *applogger.Logger) *Reconciler {
	return &Reconciler{primary: primary, mirror: mirror, logger: logger}
}

// Run drains the unreconciled backlog. Returns how many rows were
// replayed. Stops early if the primary is still unreachable.
func (r *Reconciler) Run(ctx context.Context) (int, error) {
	if err := r.primary.Health(ctx); err != nil {
		return 0, err
	}

	replayed := 0
	for {
		batch, err := r.mirror.ListUnreconciled(ctx, reconcileBatch)
		if err != nil {
			return replayed, err
		}
		if len(batch) == 0 {
			return replayed, nil
		}

		for _, rec := range batch {
			existing, err := r.primary.Get(ctx, rec.ID)
			if err != nil {
				// Primary went away mid-drain; the rest stays queued.
				return replayed, err
			}

			if existing == nil || existing.UpdatedAt.Before(rec.UpdatedAt) {
				if err := r.primary.Update(ctx, rec); err != nil {
					return replayed, err
				}
				replayed++
			}

			if err := r.mirror.MarkReconciled(ctx, rec.ID); err != nil {
				return replayed, err
			}
		}

		r.logger.Info("reconciled ledger batch", applogger.Int("rows", len(batch)))
		if ctx.Err() != nil {
			return replayed, ctx.Err()
		}
	}
}
