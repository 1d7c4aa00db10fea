package repository

import (
	"context"
	"time"

	"PredWatch/internal/domain/models"
)

// DataProvider is one acquisition strategy in the ordered fallback chain.
// Implementations must honor the context deadline and return an error (or
// an empty slice) rather than partial junk.
type DataProvider interface {
	Name() string
	Fetch(ctx context.Context, ticker string, start, end time.Time) ([]models.Observation, error)
}

// ObservationStore is the durable cache of historical observations.
// Upsert is idempotent on (ticker, date).
type ObservationStore interface {
	Upsert(ctx context.Context, obs []models.Observation) (int, error)
	Read(ctx context.Context, ticker string, start, end time.Time) ([]models.Observation, error)
	Stats(ctx context.Context, ticker string) (models.StoreStats, error)
	Count(ctx context.Context) (int64, error)
	Health(ctx context.Context) error
}

// PredictionStore is one backend of the prediction ledger.
type PredictionStore interface {
	Append(ctx context.Context, rec models.PredictionRecord) error
	Update(ctx context.Context, rec models.PredictionRecord) error
	Get(ctx context.Context, id string) (*models.PredictionRecord, error)
	ListPending(ctx context.Context, olderThan time.Time) ([]models.PredictionRecord, error)
	ListValidated(ctx context.Context, since time.Time) ([]models.PredictionRecord, error)
	Count(ctx context.Context) (int64, error)
	Health(ctx context.Context) error
}

// MirrorStore is the local file-backed ledger mirror. Records written while
// the primary was down stay unreconciled until the reconciler replays them.
type MirrorStore interface {
	PredictionStore
	AppendUnreconciled(ctx context.Context, rec models.PredictionRecord) error
	ListUnreconciled(ctx context.Context, limit int) ([]models.PredictionRecord, error)
	MarkReconciled(ctx context.Context, id string) error
	CountUnreconciled(ctx context.Context) (int64, error)
}

// DriftStore persists the append-only drift audit trail.
type DriftStore interface {
	Append(ctx context.Context, reports []models.DriftReport) error
	Count(ctx context.Context) (int64, error)
}

// SnapshotRegistry owns model snapshot rows and the Active pointer.
// Promote retires the current Active and activates the named candidate in
// a single transaction; readers never observe zero or two Active rows.
type SnapshotRegistry interface {
	Save(ctx context.Context, snap models.ModelSnapshot) error
	Get(ctx context.Context, versionID string) (*models.ModelSnapshot, error)
	Active(ctx context.Context) (*models.ModelSnapshot, error)
	Promote(ctx context.Context, versionID string) error
	List(ctx context.Context, limit int) ([]models.ModelSnapshot, error)
}

// Notifier delivers decided alerts to the notification sink. Best-effort:
// failures are logged by callers, never retried indefinitely.
type Notifier interface {
	Notify(ctx context.Context, alerts []models.Alert) error
	Close() error
}

// Trainer is the external training job collaborator.
type Trainer interface {
	Train(ctx context.Context, ticker string, start, end time.Time) (*models.ModelSnapshot, error)
}

// Inferencer is the external inference service collaborator.
type Inferencer interface {
	Predict(ctx context.Context, ticker string, window []models.Observation) (float64, error)
}

// Metrics records operational signals.
type Metrics interface {
	RecordFetch(source, ticker string)
	RecordProviderError(provider string)
	RecordValidation(outcome string)
	RecordDrift(feature string, drifted bool)
	RecordRetrain(result string)
	SetPersistenceDegraded(degraded bool)
	RecordLatency(op string, seconds float64)
}
