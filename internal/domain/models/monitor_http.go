package models

// Requests for the monitoring HTTP endpoints. Defined in domain for consistency and reuse.

type PerformanceRequest struct {
	Ticker     string `query:"ticker" json:"ticker"`
	WindowDays int    `query:"window_days" json:"window_days" default:"7" validate:"gte=1,lte=365"`
}

type ValidateRequest struct {
	Ticker   string `query:"ticker" json:"ticker"`
	DaysBack int    `json:"days_back" default:"7" validate:"gte=1,lte=90"`
}

type DriftRequest struct {
	Ticker string `query:"ticker" json:"ticker"`
}

// DriftResponse wraps the latest report set with its staleness flag.
type DriftResponse struct {
	Reports []DriftReport `json:"reports"`
	Stale   bool          `json:"stale"`
}

// Diagnostics reports backend health for the dashboard layer.
type Diagnostics struct {
	LastReadBackend      string           `json:"last_read_backend"`
	PersistenceDegraded  bool             `json:"persistence_degraded"`
	RecordCounts         map[string]int64 `json:"record_counts"`
	ActiveSnapshot       string           `json:"active_snapshot,omitempty"`
	UnreconciledMirrored int64            `json:"unreconciled_mirrored"`
}
