package models

import "time"

// Severity levels for emitted alerts.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Threshold holds warn/critical levels for one metric, read-only at runtime.
type Threshold struct {
	Warn     float64 `yaml:"warn" json:"warn"`
	Critical float64 `yaml:"critical" json:"critical"`
}

// Alert is a decided notification. Delivery is a collaborator concern;
// the alert manager only decides content and severity.
type Alert struct {
	Name      string    `json:"name"` // metric or feature name
	Severity  Severity  `json:"severity"`
	Message   string    `json:"message"`
	Value     float64   `json:"value"`
	Limit     float64   `json:"limit"`
	Window    time.Time `json:"window"` // evaluation window identity
	EmittedAt time.Time `json:"emitted_at"`
}

// DedupKey identifies an alert within one evaluation window; at most one
// alert per key is emitted per evaluation.
func (a Alert) DedupKey() string {
	return a.Name + "|" + string(a.Severity) + "|" + a.Window.UTC().Format("2006-01-02T15")
}
