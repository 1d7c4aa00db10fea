package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"PredWatch/internal/domain/models"
	applogger "PredWatch/pkg/logger"
)

func testLogger() *applogger.Logger {
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "console", Output: "stderr"})
	if err != nil {
		panic(err)
	}
	return l
}

type nopMetrics struct{}

func (nopMetrics) RecordFetch(string, string)      {}
func (nopMetrics) RecordProviderError(string)      {}
func (nopMetrics) RecordValidation(string)         {}
func (nopMetrics) RecordDrift(string, bool)        {}
func (nopMetrics) RecordRetrain(string)            {}
func (nopMetrics) SetPersistenceDegraded(bool)     {}
func (nopMetrics) RecordLatency(string, float64)   {}

var errDown = errors.New("backend down")

// fakeProvider returns canned bars or a canned error.
type fakeProvider struct {
	name  string
	bars  []models.Observation
	err   error
	calls int
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Fetch(_ context.Context, _ string, _, _ time.Time) ([]models.Observation, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return p.bars, nil
}

// memObsStore is an in-memory observation store keyed on (ticker, date).
type memObsStore struct {
	mu       sync.Mutex
	rows     map[string]models.Observation
	down     bool
	upserted chan int // optional signal per upsert batch
}

func newMemObsStore() *memObsStore {
	return &memObsStore{rows: map[string]models.Observation{}}
}

func obsKey(o models.Observation) string {
	return o.Ticker + "|" + o.Date.Format("2006-01-02")
}

func (s *memObsStore) Upsert(_ context.Context, obs []models.Observation) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.down {
		return 0, errDown
	}
	for _, o := range obs {
		s.rows[obsKey(o)] = o
	}
	if s.upserted != nil {
		s.upserted <- len(obs)
	}
	return len(obs), nil
}

func (s *memObsStore) Read(_ context.Context, ticker string, start, end time.Time) ([]models.Observation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.down {
		return nil, errDown
	}
	var out []models.Observation
	for _, o := range s.rows {
		if o.Ticker == ticker && !o.Date.Before(start) && !o.Date.After(end) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *memObsStore) Stats(_ context.Context, ticker string) (models.StoreStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.down {
		return models.StoreStats{}, errDown
	}
	st := models.StoreStats{Ticker: ticker}
	for _, o := range s.rows {
		if o.Ticker != ticker {
			continue
		}
		st.Count++
		if st.MinDate.IsZero() || o.Date.Before(st.MinDate) {
			st.MinDate = o.Date
		}
		if o.Date.After(st.MaxDate) {
			st.MaxDate = o.Date
		}
	}
	return st, nil
}

func (s *memObsStore) Count(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.down {
		return 0, errDown
	}
	return int64(len(s.rows)), nil
}

func (s *memObsStore) Health(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.down {
		return errDown
	}
	return nil
}

// memPredStore is an in-memory prediction store with a failure toggle.
type memPredStore struct {
	mu   sync.Mutex
	rows map[string]models.PredictionRecord
	down bool
}

func newMemPredStore() *memPredStore {
	return &memPredStore{rows: map[string]models.PredictionRecord{}}
}

func (s *memPredStore) setDown(d bool) {
	s.mu.Lock()
	s.down = d
	s.mu.Unlock()
}

func (s *memPredStore) Append(_ context.Context, rec models.PredictionRecord) error {
	return s.put(rec)
}

func (s *memPredStore) Update(_ context.Context, rec models.PredictionRecord) error {
	return s.put(rec)
}

func (s *memPredStore) put(rec models.PredictionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.down {
		return errDown
	}
	s.rows[rec.ID] = rec
	return nil
}

func (s *memPredStore) Get(_ context.Context, id string) (*models.PredictionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.down {
		return nil, errDown
	}
	rec, ok := s.rows[id]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (s *memPredStore) ListPending(_ context.Context, olderThan time.Time) ([]models.PredictionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.down {
		return nil, errDown
	}
	var out []models.PredictionRecord
	for _, r := range s.rows {
		if r.Status == models.StatusPending && !r.HorizonDate.After(olderThan) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].HorizonDate.Before(out[j].HorizonDate) })
	return out, nil
}

func (s *memPredStore) ListValidated(_ context.Context, since time.Time) ([]models.PredictionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.down {
		return nil, errDown
	}
	var out []models.PredictionRecord
	for _, r := range s.rows {
		if r.Status == models.StatusValidated && r.ValidatedAt != nil && !r.ValidatedAt.Before(since) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ValidatedAt.Before(*out[j].ValidatedAt) })
	return out, nil
}

func (s *memPredStore) Count(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.down {
		return 0, errDown
	}
	return int64(len(s.rows)), nil
}

func (s *memPredStore) Health(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.down {
		return errDown
	}
	return nil
}

// memMirror extends memPredStore with the reconciliation flag.
type memMirror struct {
	memPredStore
	unreconciled map[string]bool
}

func newMemMirror() *memMirror {
	return &memMirror{
		memPredStore: memPredStore{rows: map[string]models.PredictionRecord{}},
		unreconciled: map[string]bool{},
	}
}

func (s *memMirror) AppendUnreconciled(_ context.Context, rec models.PredictionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.down {
		return errDown
	}
	s.rows[rec.ID] = rec
	s.unreconciled[rec.ID] = true
	return nil
}

func (s *memMirror) ListUnreconciled(_ context.Context, limit int) ([]models.PredictionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.PredictionRecord
	for id := range s.unreconciled {
		out = append(out, s.rows[id])
		if len(out) == limit {
			break
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	return out, nil
}

func (s *memMirror) MarkReconciled(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.unreconciled, id)
	return nil
}

func (s *memMirror) CountUnreconciled(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.unreconciled)), nil
}

// memRegistry is an in-memory snapshot registry.
type memRegistry struct {
	mu   sync.Mutex
	rows map[string]models.ModelSnapshot
}

func newMemRegistry() *memRegistry {
	return &memRegistry{rows: map[string]models.ModelSnapshot{}}
}

func (s *memRegistry) Save(_ context.Context, snap models.ModelSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[snap.VersionID] = snap
	return nil
}

func (s *memRegistry) Get(_ context.Context, id string) (*models.ModelSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.rows[id]
	if !ok {
		return nil, nil
	}
	return &snap, nil
}

func (s *memRegistry) Active(_ context.Context) (*models.ModelSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, snap := range s.rows {
		if snap.Status == models.SnapshotActive {
			return &snap, nil
		}
	}
	return nil, nil
}

func (s *memRegistry) Promote(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	target, ok := s.rows[id]
	if !ok {
		return errors.New("unknown snapshot")
	}
	for vid, snap := range s.rows {
		if snap.Status == models.SnapshotActive {
			snap.Status = models.SnapshotRetired
			s.rows[vid] = snap
		}
	}
	target.Status = models.SnapshotActive
	s.rows[id] = target
	return nil
}

func (s *memRegistry) List(_ context.Context, limit int) ([]models.ModelSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ModelSnapshot
	for _, snap := range s.rows {
		out = append(out, snap)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// memNotifier records delivered alerts.
type memNotifier struct {
	mu     sync.Mutex
	alerts []models.Alert
	err    error
}

func (n *memNotifier) Notify(_ context.Context, alerts []models.Alert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.alerts = append(n.alerts, alerts...)
	return nil
}

func (n *memNotifier) Close() error { return nil }

func (n *memNotifier) delivered() []models.Alert {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]models.Alert(nil), n.alerts...)
}

// fakeTrainer returns a canned candidate snapshot.
type fakeTrainer struct {
	snap *models.ModelSnapshot
	err  error
}

func (t *fakeTrainer) Train(_ context.Context, ticker string, _, _ time.Time) (*models.ModelSnapshot, error) {
	if t.err != nil {
		return nil, t.err
	}
	snap := *t.snap
	snap.Ticker = ticker
	return &snap, nil
}

// memDriftStore appends reports in memory.
type memDriftStore struct {
	mu      sync.Mutex
	reports []models.DriftReport
}

func (s *memDriftStore) Append(_ context.Context, reports []models.DriftReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, reports...)
	return nil
}

func (s *memDriftStore) Count(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.reports)), nil
}

// bars builds consecutive daily observations starting at start.
func bars(ticker string, start time.Time, closes ...float64) []models.Observation {
	out := make([]models.Observation, len(closes))
	for i, c := range closes {
		out[i] = models.Observation{
			Ticker: ticker,
			Date:   start.AddDate(0, 0, i),
			Open:   c * 0.99,
			High:   c * 1.01,
			Low:    c * 0.98,
			Close:  c,
			Volume: 1000,
		}
	}
	return out
}
