package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"PredWatch/internal/domain/models"
	"PredWatch/internal/domain/repository"
	applogger "PredWatch/pkg/logger"
)

// dedupRetention bounds how long emitted alert keys are remembered.
const dedupRetention = 6 * time.Hour

// AlertManager decides alerts from performance summaries and drift
// reports. Deciding is pure; delivery goes through the Notifier and a
// delivery failure never blocks the evaluation that raised the alert.
type AlertManager struct {
	thresholds map[string]models.Threshold
	notifier   repository.Notifier
	logger     *applogger.Logger

	mu      sync.Mutex
	emitted map[string]time.Time
}

func NewAlertManager(thresholds map[string]models.Threshold, notifier repository.Notifier, logger *applogger.Logger) *AlertManager {
	return &AlertManager{
		thresholds: thresholds,
		notifier:   notifier,
		logger:     logger,
		emitted:    make(map[string]time.Time),
	}
}

// EvaluatePerformance checks summary metrics against their thresholds.
func (a *AlertManager) EvaluatePerformance(ticker string, sum *models.PerformanceSummary, now time.Time) []models.Alert {
	if sum == nil || sum.Validated == 0 {
		return nil
	}

	window := now.UTC().Truncate(time.Hour)
	checks := []struct {
		name  string
		value float64
	}{
		{"mae", sum.MAE},
		{"mape", sum.MAPE},
		{"rmse", sum.RMSE},
	}

	var alerts []models.Alert
	for _, c := range checks {
		th, ok := a.thresholds[c.name]
		if !ok {
			continue
		}
		sev, limit := severityFor(c.value, th)
		if sev == "" {
			continue
		}
		alerts = append(alerts, models.Alert{
			Name:     c.name,
			Severity: sev,
			Message: fmt.Sprintf("%s %s=%.4f exceeds %s threshold %.4f over %dd window",
				ticker, c.name, c.value, sev, limit, sum.WindowDays),
			Value:     c.value,
			Limit:     limit,
			Window:    window,
			EmittedAt: now.UTC(),
		})
	}

	if sum.Trend == "degrading" {
		alerts = append(alerts, models.Alert{
			Name:     "error_trend",
			Severity: models.SeverityWarning,
			Message: fmt.Sprintf("%s error trend degrading, slope %.4f pct-points per validation",
				ticker, sum.TrendSlope),
			Value:     sum.TrendSlope,
			Window:    window,
			EmittedAt: now.UTC(),
		})
	}
	return alerts
}

// EvaluateDrift raises one warning per drifted feature, escalating to
// critical when every feature drifted at once.
func (a *AlertManager) EvaluateDrift(ticker string, reports []models.DriftReport, now time.Time) []models.Alert {
	window := now.UTC().Truncate(time.Hour)

	var alerts []models.Alert
	drifted := 0
	for _, r := range reports {
		if !r.Drifted || r.Stale {
			continue
		}
		drifted++
		alerts = append(alerts, models.Alert{
			Name:     "drift_" + r.Feature,
			Severity: models.SeverityWarning,
			Message: fmt.Sprintf("%s feature %q drifted: statistic=%.4f p=%.4f",
				ticker, r.Feature, r.Statistic, r.PValue),
			Value:     r.PValue,
			Limit:     0,
			Window:    window,
			EmittedAt: now.UTC(),
		})
	}

	if len(reports) > 0 && drifted == len(reports) {
		alerts = append(alerts, models.Alert{
			Name:      "drift_all_features",
			Severity:  models.SeverityCritical,
			Message:   fmt.Sprintf("%s: every monitored feature drifted", ticker),
			Value:     float64(drifted),
			Window:    window,
			EmittedAt: now.UTC(),
		})
	}
	return alerts
}

// Dispatch dedupes and delivers alerts. An alert with a key already seen
// inside the retention horizon is dropped.
func (a *AlertManager) Dispatch(ctx context.Context, alerts []models.Alert) {
	fresh := a.dedupe(alerts, time.Now())
	if len(fresh) == 0 {
		return
	}

	if err := a.notifier.Notify(ctx, fresh); err != nil {
		a.logger.Error("alert delivery failed",
			applogger.Int("count", len(fresh)),
			applogger.Error(err))
		return
	}
	for _, al := range fresh {
		a.logger.Info("alert dispatched",
			applogger.String("name", al.Name),
			applogger.String("severity", string(al.Severity)))
	}
}

func (a *AlertManager) dedupe(alerts []models.Alert, now time.Time) []models.Alert {
	a.mu.Lock()
	defer a.mu.Unlock()

	for key, at := range a.emitted {
		if now.Sub(at) > dedupRetention {
			delete(a.emitted, key)
		}
	}

	var fresh []models.Alert
	for _, al := range alerts {
		key := al.DedupKey()
		if _, seen := a.emitted[key]; seen {
			continue
		}
		a.emitted[key] = now
		fresh = append(fresh, al)
	}
	return fresh
}

func severityFor(value float64, th models.Threshold) (models.Severity, float64) {
	switch {
	case th.Critical > 0 && value >= th.Critical:
		return models.SeverityCritical, th.Critical
	case th.Warn > 0 && value >= th.Warn:
		return models.SeverityWarning, th.Warn
	default:
		return "", 0
	}
}
