package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"PredWatch/internal/domain/models"
	applogger "PredWatch/pkg/logger"
)

var errBackendDown = errors.New("backend down")

func failoverTestLogger() *applogger.Logger {
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "console", Output: "stderr"})
	if err != nil {
		panic(err)
	}
	return l
}

type noopMetrics struct{}

func (noopMetrics) RecordFetch(string, string)    {}
func (noopMetrics) RecordProviderError(string)    {}
func (noopMetrics) RecordValidation(string)       {}
func (noopMetrics) RecordDrift(string, bool)      {}
func (noopMetrics) RecordRetrain(string)          {}
func (noopMetrics) SetPersistenceDegraded(bool)   {}
func (noopMetrics) RecordLatency(string, float64) {}

// stubObsStore keeps bars in a slice with a failure toggle.
type stubObsStore struct {
	rows []models.Observation
	down bool
}

func (s *stubObsStore) Upsert(_ context.Context, obs []models.Observation) (int, error) {
	if s.down {
		return 0, errBackendDown
	}
	s.rows = append(s.rows, obs...)
	return len(obs), nil
}

func (s *stubObsStore) Read(_ context.Context, ticker string, start, end time.Time) ([]models.Observation, error) {
	if s.down {
		return nil, errBackendDown
	}
	var out []models.Observation
	for _, o := range s.rows {
		if o.Ticker == ticker && !o.Date.Before(start) && !o.Date.After(end) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *stubObsStore) Stats(_ context.Context, ticker string) (models.StoreStats, error) {
	if s.down {
		return models.StoreStats{}, errBackendDown
	}
	return models.StoreStats{Ticker: ticker, Count: int64(len(s.rows))}, nil
}

func (s *stubObsStore) Count(_ context.Context) (int64, error) {
	if s.down {
		return 0, errBackendDown
	}
	return int64(len(s.rows)), nil
}

func (s *stubObsStore) Health(_ context.Context) error {
	if s.down {
		return errBackendDown
	}
	return nil
}

func testBar(day int) models.Observation {
	return models.Observation{
		Ticker: "AAPL",
		Date:   time.Date(2026, 8, day, 0, 0, 0, 0, time.UTC),
		Open:   100, High: 102, Low: 99, Close: 101, Volume: 1000,
	}
}

func TestFailoverUpsertWritesBoth(t *testing.T) {
	primary, mirror := &stubObsStore{}, &stubObsStore{}
	s := NewFailoverObservationStore(primary, mirror, noopMetrics{}, failoverTestLogger())

	if _, err := s.Upsert(context.Background(), []models.Observation{testBar(3)}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if len(primary.rows) != 1 || len(mirror.rows) != 1 {
		t.Fatalf("rows primary=%d mirror=%d", len(primary.rows), len(mirror.rows))
	}
	if s.Degraded() {
		t.Fatal("healthy write marked degraded")
	}
}

func TestFailoverUpsertAbsorbsPrimaryOutage(t *testing.T) {
	primary, mirror := &stubObsStore{down: true}, &stubObsStore{}
	s := NewFailoverObservationStore(primary, mirror, noopMetrics{}, failoverTestLogger())

	if _, err := s.Upsert(context.Background(), []models.Observation{testBar(3)}); err != nil {
		t.Fatalf("upsert must not fail while the mirror holds the data: %v", err)
	}
	if len(mirror.rows) != 1 {
		t.Fatalf("mirror rows = %d", len(mirror.rows))
	}
	if !s.Degraded() {
		t.Fatal("primary outage not flagged")
	}

	// Primary recovery clears the flag on the next write.
	primary.down = false
	if _, err := s.Upsert(context.Background(), []models.Observation{testBar(4)}); err != nil {
		t.Fatalf("upsert after recovery: %v", err)
	}
	if s.Degraded() {
		t.Fatal("degraded flag stuck after recovery")
	}
}

func TestFailoverUpsertBothBackendsDown(t *testing.T) {
	primary, mirror := &stubObsStore{down: true}, &stubObsStore{down: true}
	s := NewFailoverObservationStore(primary, mirror, noopMetrics{}, failoverTestLogger())

	n, err := s.Upsert(context.Background(), []models.Observation{testBar(3)})
	if err == nil {
		t.Fatal("upsert reported success with nowhere to write")
	}
	if n != 0 {
		t.Fatalf("written = %d for a dropped batch", n)
	}
	if !s.Degraded() {
		t.Fatal("total write failure not flagged")
	}
}

func TestFailoverReadFallsBackToMirror(t *testing.T) {
	primary, mirror := &stubObsStore{}, &stubObsStore{}
	s := NewFailoverObservationStore(primary, mirror, noopMetrics{}, failoverTestLogger())

	bar := testBar(3)
	if _, err := s.Upsert(context.Background(), []models.Observation{bar}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	primary.down = true
	obs, err := s.Read(context.Background(), "AAPL", bar.Date, bar.Date)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(obs) != 1 {
		t.Fatalf("got %d bars from mirror", len(obs))
	}
	if s.LastReadBackend() != "mirror" {
		t.Fatalf("last backend = %s", s.LastReadBackend())
	}

	primary.down = false
	if _, err := s.Read(context.Background(), "AAPL", bar.Date, bar.Date); err != nil {
		t.Fatalf("read after recovery: %v", err)
	}
	if s.LastReadBackend() != "primary" {
		t.Fatalf("last backend = %s", s.LastReadBackend())
	}
}

func TestFailoverReadBothDown(t *testing.T) {
	s := NewFailoverObservationStore(&stubObsStore{down: true}, &stubObsStore{down: true},
		noopMetrics{}, failoverTestLogger())

	if _, err := s.Read(context.Background(), "AAPL", time.Now(), time.Now()); err == nil {
		t.Fatal("expected error with both backends down")
	}
}

func TestFailoverHealthPrefersAnyHealthyBackend(t *testing.T) {
	s := NewFailoverObservationStore(&stubObsStore{down: true}, &stubObsStore{},
		noopMetrics{}, failoverTestLogger())
	if err := s.Health(context.Background()); err != nil {
		t.Fatalf("health with live mirror: %v", err)
	}

	s = NewFailoverObservationStore(&stubObsStore{down: true}, &stubObsStore{down: true},
		noopMetrics{}, failoverTestLogger())
	if err := s.Health(context.Background()); err == nil {
		t.Fatal("expected health failure")
	}
}
