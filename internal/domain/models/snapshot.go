package models

import "time"

// SnapshotStatus is the lifecycle state of a model artifact.
type SnapshotStatus string

const (
	SnapshotCandidate SnapshotStatus = "candidate"
	SnapshotActive    SnapshotStatus = "active"
	SnapshotRetired   SnapshotStatus = "retired"
)

// ModelMetrics are held-out test metrics reported by the training job.
type ModelMetrics struct {
	RMSE float64 `json:"rmse"`
	MAE  float64 `json:"mae"`
	MAPE float64 `json:"mape"`
	R2   float64 `json:"r2"`
}

// ModelSnapshot is one trained model version. At most one snapshot is
// Active at any time; retired snapshots are retained for rollback.
type ModelSnapshot struct {
	VersionID    string         `json:"version_id"`
	Ticker       string         `json:"ticker"`
	Metrics      ModelMetrics   `json:"metrics"`
	CreatedAt    time.Time      `json:"created_at"`
	Status       SnapshotStatus `json:"status"`
	RejectReason string         `json:"reject_reason,omitempty"`
}
