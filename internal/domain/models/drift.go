package models

import "time"

// DriftReport is one feature's distribution-equality test result for an
// evaluation window. Reports are append-only; Stale marks a reused
// last-good report when the current window could not be fetched.
type DriftReport struct {
	Ticker      string    `json:"ticker"`
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`
	Feature     string    `json:"feature"`
	Statistic   float64   `json:"statistic"`
	PValue      float64   `json:"p_value"`
	Drifted     bool      `json:"drifted"`
	Stale       bool      `json:"stale"`
	EvaluatedAt time.Time `json:"evaluated_at"`
}
