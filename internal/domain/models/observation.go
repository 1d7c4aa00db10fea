package models

import "time"

// Data source names reported by the acquisition chain.
const (
	SourceYahoo    = "yahoo_v8"
	SourceStooq    = "stooq"
	SourceCache    = "cache"
	SourceSnapshot = "snapshot"
)

// Observation is a single daily OHLCV bar. Unique on (ticker, date);
// upserts on refresh overwrite the price fields for late revisions.
type Observation struct {
	Ticker string    `json:"ticker"`
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// Valid reports whether the bar is internally consistent: positive prices,
// low <= high, and open/close inside [low, high].
func (o Observation) Valid() bool {
	if o.Open <= 0 || o.High <= 0 || o.Low <= 0 || o.Close <= 0 {
		return false
	}
	if o.Low > o.High {
		return false
	}
	if o.Open < o.Low || o.Open > o.High {
		return false
	}
	if o.Close < o.Low || o.Close > o.High {
		return false
	}
	return o.Volume >= 0
}

// FilterValid drops malformed bars from a provider response.
func FilterValid(obs []Observation) []Observation {
	out := obs[:0:0]
	for _, o := range obs {
		if o.Valid() {
			out = append(out, o)
		}
	}
	return out
}

// StoreStats summarizes one ticker's coverage in an observation store.
type StoreStats struct {
	Ticker  string    `json:"ticker"`
	Count   int64     `json:"count"`
	MinDate time.Time `json:"min_date"`
	MaxDate time.Time `json:"max_date"`
}

// Feature names drift detection runs over, matching the OHLCV columns.
var DriftFeatures = []string{"open", "high", "low", "close", "volume"}

// FeatureValue extracts the named feature from an observation.
func (o Observation) FeatureValue(name string) float64 {
	switch name {
	case "open":
		return o.Open
	case "high":
		return o.High
	case "low":
		return o.Low
	case "close":
		return o.Close
	case "volume":
		return float64(o.Volume)
	}
	return 0
}
