package models

import (
	"math"
	"time"
)

// PredictionStatus is the validation state of a ledger entry.
// Transitions are monotonic: Pending -> Validated or Pending -> Expired.
type PredictionStatus string

const (
	StatusPending   PredictionStatus = "pending"
	StatusValidated PredictionStatus = "validated"
	StatusExpired   PredictionStatus = "expired"
)

// PredictionRecord is one tracked model prediction awaiting ground truth.
type PredictionRecord struct {
	ID             string           `json:"id"`
	Ticker         string           `json:"ticker"`
	CreatedAt      time.Time        `json:"created_at"`
	HorizonDate    time.Time        `json:"horizon_date"`
	PredictedClose float64          `json:"predicted_close"`
	RealizedClose  *float64         `json:"realized_close,omitempty"`
	AbsError       *float64         `json:"abs_error,omitempty"`
	PctError       *float64         `json:"pct_error,omitempty"`
	Status         PredictionStatus `json:"status"`
	ValidatedAt    *time.Time       `json:"validated_at,omitempty"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// Resolve fills the realized value and error fields and moves the record
// to Validated. No-op when the record already left Pending.
func (r *PredictionRecord) Resolve(realized float64, at time.Time) bool {
	if r.Status != StatusPending {
		return false
	}
	abs := math.Abs(r.PredictedClose - realized)
	pct := 0.0
	if realized != 0 {
		pct = abs / math.Abs(realized) * 100
	}
	r.RealizedClose = &realized
	r.AbsError = &abs
	r.PctError = &pct
	r.Status = StatusValidated
	r.ValidatedAt = &at
	r.UpdatedAt = at
	return true
}

// Expire moves a Pending record past its grace window to Expired.
func (r *PredictionRecord) Expire(at time.Time) bool {
	if r.Status != StatusPending {
		return false
	}
	r.Status = StatusExpired
	r.UpdatedAt = at
	return true
}

// PerformanceSummary is derived on demand from Validated records; it is
// never maintained as a running total.
type PerformanceSummary struct {
	WindowDays  int     `json:"window_days"`
	Validated   int     `json:"validated"`
	MAE         float64 `json:"mae"`
	MAPE        float64 `json:"mape"`
	RMSE        float64 `json:"rmse"`
	MinPctError float64 `json:"min_pct_error"`
	MaxPctError float64 `json:"max_pct_error"`
	Trend       string  `json:"trend"` // improving, stable, degrading, insufficient_data
	TrendSlope  float64 `json:"trend_slope"`
}
