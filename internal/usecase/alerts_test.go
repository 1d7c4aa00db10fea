package usecase

import (
	"context"
	"testing"
	"time"

	"PredWatch/internal/domain/models"
)

func testThresholds() map[string]models.Threshold {
	return map[string]models.Threshold{
		"mae":  {Warn: 2, Critical: 4},
		"mape": {Warn: 5, Critical: 10},
		"rmse": {Warn: 3, Critical: 6},
	}
}

func TestEvaluatePerformanceSeverities(t *testing.T) {
	am := NewAlertManager(testThresholds(), &memNotifier{}, testLogger())
	now := time.Date(2026, 8, 10, 14, 30, 0, 0, time.UTC)

	sum := &models.PerformanceSummary{
		WindowDays: 7,
		Validated:  10,
		MAE:        2.5,  // warn
		MAPE:       12.0, // critical
		RMSE:       1.0,  // clean
		Trend:      "stable",
	}
	alerts := am.EvaluatePerformance("AAPL", sum, now)
	if len(alerts) != 2 {
		t.Fatalf("expected 2 alerts, got %d: %+v", len(alerts), alerts)
	}

	bySev := map[string]models.Severity{}
	for _, a := range alerts {
		bySev[a.Name] = a.Severity
	}
	if bySev["mae"] != models.SeverityWarning {
		t.Fatalf("mae severity = %s", bySev["mae"])
	}
	if bySev["mape"] != models.SeverityCritical {
		t.Fatalf("mape severity = %s", bySev["mape"])
	}
}

func TestEvaluatePerformanceDegradingTrend(t *testing.T) {
	am := NewAlertManager(testThresholds(), &memNotifier{}, testLogger())

	sum := &models.PerformanceSummary{
		WindowDays: 7,
		Validated:  5,
		MAE:        0.5,
		MAPE:       0.5,
		RMSE:       0.5,
		Trend:      "degrading",
		TrendSlope: 0.8,
	}
	alerts := am.EvaluatePerformance("AAPL", sum, time.Now())
	if len(alerts) != 1 || alerts[0].Name != "error_trend" {
		t.Fatalf("expected only the trend alert, got %+v", alerts)
	}
	if alerts[0].Severity != models.SeverityWarning {
		t.Fatalf("trend severity = %s", alerts[0].Severity)
	}
}

func TestEvaluatePerformanceEmptySummary(t *testing.T) {
	am := NewAlertManager(testThresholds(), &memNotifier{}, testLogger())
	if alerts := am.EvaluatePerformance("AAPL", nil, time.Now()); alerts != nil {
		t.Fatalf("nil summary produced alerts: %+v", alerts)
	}
	if alerts := am.EvaluatePerformance("AAPL", &models.PerformanceSummary{}, time.Now()); alerts != nil {
		t.Fatalf("empty summary produced alerts: %+v", alerts)
	}
}

func TestEvaluateDriftEscalatesWhenAllFeaturesDrift(t *testing.T) {
	am := NewAlertManager(testThresholds(), &memNotifier{}, testLogger())
	now := time.Now()

	reports := []models.DriftReport{
		{Ticker: "AAPL", Feature: "close", Drifted: true, PValue: 0.001},
		{Ticker: "AAPL", Feature: "volume", Drifted: true, PValue: 0.002},
	}
	alerts := am.EvaluateDrift("AAPL", reports, now)
	if len(alerts) != 3 {
		t.Fatalf("expected 2 feature alerts plus escalation, got %d", len(alerts))
	}
	last := alerts[len(alerts)-1]
	if last.Name != "drift_all_features" || last.Severity != models.SeverityCritical {
		t.Fatalf("unexpected escalation alert %+v", last)
	}

	// Partial drift stays at warnings.
	reports[1].Drifted = false
	alerts = am.EvaluateDrift("AAPL", reports, now)
	if len(alerts) != 1 || alerts[0].Severity != models.SeverityWarning {
		t.Fatalf("partial drift: %+v", alerts)
	}
}

func TestEvaluateDriftIgnoresStaleReports(t *testing.T) {
	am := NewAlertManager(testThresholds(), &memNotifier{}, testLogger())

	reports := []models.DriftReport{
		{Ticker: "AAPL", Feature: "close", Drifted: true, Stale: true},
	}
	if alerts := am.EvaluateDrift("AAPL", reports, time.Now()); len(alerts) != 0 {
		t.Fatalf("stale reports raised alerts: %+v", alerts)
	}
}

func TestDispatchDedupesWithinWindow(t *testing.T) {
	n := &memNotifier{}
	am := NewAlertManager(testThresholds(), n, testLogger())
	now := time.Date(2026, 8, 10, 14, 0, 0, 0, time.UTC)

	alert := models.Alert{
		Name:     "mape",
		Severity: models.SeverityCritical,
		Window:   now.Truncate(time.Hour),
	}
	am.Dispatch(context.Background(), []models.Alert{alert})
	am.Dispatch(context.Background(), []models.Alert{alert})
	if got := len(n.delivered()); got != 1 {
		t.Fatalf("duplicate delivered, count=%d", got)
	}

	// A different window hour is a different alert.
	alert.Window = alert.Window.Add(time.Hour)
	am.Dispatch(context.Background(), []models.Alert{alert})
	if got := len(n.delivered()); got != 2 {
		t.Fatalf("new window suppressed, count=%d", got)
	}
}

func TestDispatchSurvivesNotifierFailure(t *testing.T) {
	n := &memNotifier{err: errDown}
	am := NewAlertManager(testThresholds(), n, testLogger())

	alert := models.Alert{Name: "mae", Severity: models.SeverityWarning, Window: time.Now().Truncate(time.Hour)}
	am.Dispatch(context.Background(), []models.Alert{alert}) // must not panic
	if got := len(n.delivered()); got != 0 {
		t.Fatalf("delivery recorded despite failure, count=%d", got)
	}
}
