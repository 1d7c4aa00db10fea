package usecase

import (
	"context"
	"testing"
	"time"

	"PredWatch/internal/domain/models"
	"PredWatch/internal/domain/repository"
)

// fakeInferencer returns a canned forecast and remembers its input.
type fakeInferencer struct {
	predicted float64
	err       error
	gotBars   int
}

func (f *fakeInferencer) Predict(_ context.Context, _ string, window []models.Observation) (float64, error) {
	f.gotBars = len(window)
	if f.err != nil {
		return 0, f.err
	}
	return f.predicted, nil
}

func newTestPredictor(registry *memRegistry, inf *fakeInferencer, primary *memPredStore, providers ...*fakeProvider) (*Predictor, *Ledger) {
	ledger := NewLedger(primary, newMemMirror(), nopMetrics{}, testLogger())
	svc := NewSnapshotService(registry, nil, testLogger())
	ds := newTestSource(newMemObsStore(), providers...)
	return NewPredictor(inf, ds, ledger, svc, testLogger(), []string{"AAPL"}), ledger
}

func TestPredictRecordsPendingEntry(t *testing.T) {
	registry := newMemRegistry()
	seedActive(t, registry, "v1", 3.0, 0.80)
	primary := newMemPredStore()
	inf := &fakeInferencer{predicted: 123.45}
	provider := &fakeProvider{name: models.SourceYahoo, bars: bars("AAPL", day0.AddDate(0, 0, -3), 100, 101, 102)}
	p, _ := newTestPredictor(registry, inf, primary, provider)

	// day0 is a Monday; the horizon lands on Tuesday.
	rec, err := p.Predict(context.Background(), "AAPL", day0)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if rec.Status != models.StatusPending {
		t.Fatalf("status = %s", rec.Status)
	}
	if rec.PredictedClose != 123.45 {
		t.Fatalf("predicted = %v", rec.PredictedClose)
	}
	if want := day0.AddDate(0, 0, 1); !rec.HorizonDate.Equal(want) {
		t.Fatalf("horizon = %s, want %s", rec.HorizonDate, want)
	}
	if inf.gotBars != 3 {
		t.Fatalf("inference window had %d bars", inf.gotBars)
	}

	stored, _ := primary.Get(context.Background(), rec.ID)
	if stored == nil {
		t.Fatal("record not in primary ledger")
	}
}

func TestPredictHorizonSkipsWeekend(t *testing.T) {
	registry := newMemRegistry()
	seedActive(t, registry, "v1", 3.0, 0.80)
	provider := &fakeProvider{name: models.SourceYahoo, bars: bars("AAPL", day0, 100)}
	p, _ := newTestPredictor(registry, &fakeInferencer{predicted: 100}, newMemPredStore(), provider)

	friday := day0.AddDate(0, 0, 4)
	rec, err := p.Predict(context.Background(), "AAPL", friday)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if want := friday.AddDate(0, 0, 3); !rec.HorizonDate.Equal(want) {
		t.Fatalf("horizon = %s, want Monday %s", rec.HorizonDate, want)
	}
}

func TestPredictRequiresActiveSnapshot(t *testing.T) {
	provider := &fakeProvider{name: models.SourceYahoo, bars: bars("AAPL", day0, 100)}
	p, _ := newTestPredictor(newMemRegistry(), &fakeInferencer{predicted: 100}, newMemPredStore(), provider)

	if _, err := p.Predict(context.Background(), "AAPL", day0); err == nil {
		t.Fatal("expected failure without an active snapshot")
	}
}

// downRegistry fails every active-snapshot read.
type downRegistry struct {
	*memRegistry
}

func (r *downRegistry) Active(context.Context) (*models.ModelSnapshot, error) {
	return nil, errDown
}

func TestPredictFailsWhenSnapshotReadFails(t *testing.T) {
	inf := &fakeInferencer{predicted: 100}
	primary := newMemPredStore()
	provider := &fakeProvider{name: models.SourceYahoo, bars: bars("AAPL", day0, 100)}

	ledger := NewLedger(primary, newMemMirror(), nopMetrics{}, testLogger())
	svc := NewSnapshotService(&downRegistry{newMemRegistry()}, nil, testLogger())
	ds := newTestSource(newMemObsStore(), provider)
	p := NewPredictor(inf, ds, ledger, svc, testLogger(), []string{"AAPL"})

	if _, err := p.Predict(context.Background(), "AAPL", day0); err == nil {
		t.Fatal("registry failure must not let the prediction proceed")
	}
	if inf.gotBars != 0 {
		t.Fatal("inference ran without a confirmed active snapshot")
	}
	if n, _ := primary.Count(context.Background()); n != 0 {
		t.Fatalf("ledger entries recorded: %d", n)
	}
}

func TestPredictFailsWhenChainExhausted(t *testing.T) {
	registry := newMemRegistry()
	seedActive(t, registry, "v1", 3.0, 0.80)
	p, _ := newTestPredictor(registry, &fakeInferencer{predicted: 100}, newMemPredStore(),
		&fakeProvider{name: models.SourceYahoo, err: errDown})

	if _, err := p.Predict(context.Background(), "AAPL", day0); err == nil {
		t.Fatal("expected fetch failure to propagate")
	}
}

func TestPredictInferenceFailureDoesNotRecord(t *testing.T) {
	registry := newMemRegistry()
	seedActive(t, registry, "v1", 3.0, 0.80)
	primary := newMemPredStore()
	provider := &fakeProvider{name: models.SourceYahoo, bars: bars("AAPL", day0, 100)}
	p, _ := newTestPredictor(registry, &fakeInferencer{err: errDown}, primary, provider)

	if _, err := p.Predict(context.Background(), "AAPL", day0); err == nil {
		t.Fatal("expected inference error")
	}
	if n, _ := primary.Count(context.Background()); n != 0 {
		t.Fatalf("ledger entries recorded despite failure: %d", n)
	}
}

func TestPredictAllIsolatesFailures(t *testing.T) {
	registry := newMemRegistry()
	seedActive(t, registry, "v1", 3.0, 0.80)
	primary := newMemPredStore()
	ledger := NewLedger(primary, newMemMirror(), nopMetrics{}, testLogger())
	svc := NewSnapshotService(registry, nil, testLogger())

	// MSFT has no bars anywhere; AAPL succeeds.
	byTicker := &tickerProvider{bars: map[string][]models.Observation{"AAPL": bars("AAPL", day0, 100)}}
	ds := NewDataSource([]repository.DataProvider{byTicker}, newMemObsStore(), nopMetrics{}, testLogger(), time.Second)

	p := NewPredictor(&fakeInferencer{predicted: 100}, ds, ledger, svc, testLogger(), []string{"MSFT", "AAPL"})
	p.PredictAll(context.Background())

	if n, _ := primary.Count(context.Background()); n != 1 {
		t.Fatalf("expected the surviving ticker to record, got %d entries", n)
	}
}

// tickerProvider serves different bars per ticker.
type tickerProvider struct {
	bars map[string][]models.Observation
}

func (p *tickerProvider) Name() string { return models.SourceYahoo }

func (p *tickerProvider) Fetch(_ context.Context, ticker string, _, _ time.Time) ([]models.Observation, error) {
	obs, ok := p.bars[ticker]
	if !ok {
		return nil, errDown
	}
	return obs, nil
}
