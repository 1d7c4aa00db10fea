package usecase

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"PredWatch/internal/domain/models"
	"PredWatch/pkg/util"
)

func TestLedgerRecordWritesBothBackends(t *testing.T) {
	primary := newMemPredStore()
	mirror := newMemMirror()
	l := NewLedger(primary, mirror, nopMetrics{}, testLogger())

	rec, err := l.Record(context.Background(), "AAPL", day0, 123.45)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if rec.ID == "" {
		t.Fatal("expected generated id")
	}

	if got, _ := primary.Get(context.Background(), rec.ID); got == nil {
		t.Fatal("primary missing record")
	}
	if got, _ := mirror.Get(context.Background(), rec.ID); got == nil {
		t.Fatal("mirror missing record")
	}
	if n, _ := mirror.CountUnreconciled(context.Background()); n != 0 {
		t.Fatalf("expected 0 unreconciled, got %d", n)
	}
	if l.Degraded() {
		t.Fatal("not degraded when both writes succeed")
	}
}

func TestLedgerRecordSurvivesPrimaryOutage(t *testing.T) {
	primary := newMemPredStore()
	primary.setDown(true)
	mirror := newMemMirror()
	l := NewLedger(primary, mirror, nopMetrics{}, testLogger())

	rec, err := l.Record(context.Background(), "AAPL", day0, 123.45)
	if err != nil {
		t.Fatalf("record must succeed during outage: %v", err)
	}

	if got, _ := mirror.Get(context.Background(), rec.ID); got == nil {
		t.Fatal("mirror missing record")
	}
	if n, _ := mirror.CountUnreconciled(context.Background()); n != 1 {
		t.Fatalf("expected 1 unreconciled, got %d", n)
	}
	if !l.Degraded() {
		t.Fatal("expected degraded after primary failure")
	}
}

func TestLedgerReadsFallBackToMirror(t *testing.T) {
	primary := newMemPredStore()
	mirror := newMemMirror()
	l := NewLedger(primary, mirror, nopMetrics{}, testLogger())

	rec, _ := l.Record(context.Background(), "AAPL", day0, 100)
	primary.setDown(true)

	pending, err := l.ListPending(context.Background(), day0.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("list pending via mirror: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != rec.ID {
		t.Fatalf("unexpected pending set %+v", pending)
	}
}

func TestLedgerRecordFailsWhenBothBackendsDown(t *testing.T) {
	primary := newMemPredStore()
	primary.setDown(true)
	mirror := newMemMirror()
	mirror.setDown(true)
	l := NewLedger(primary, mirror, nopMetrics{}, testLogger())

	if _, err := l.Record(context.Background(), "AAPL", day0, 100); err == nil {
		t.Fatal("record reported success with nowhere to write")
	}
	if !l.Degraded() {
		t.Fatal("total write failure not flagged")
	}

	// Once the mirror is back, recording succeeds again.
	mirror.setDown(false)
	if _, err := l.Record(context.Background(), "AAPL", day0, 100); err != nil {
		t.Fatalf("record via mirror: %v", err)
	}
}

// Drives random record, bar-arrival, and sweep steps through the ledger
// and validator, checking that no record ever leaves a terminal state or
// has its resolution rewritten.
func TestLedgerStatusTransitionsMonotonic(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	primary := newMemPredStore()
	l := NewLedger(primary, newMemMirror(), nopMetrics{}, testLogger())

	prov := &fakeProvider{name: "random"}
	v := NewValidator(l, newTestSource(newMemObsStore(), prov), nopMetrics{}, testLogger(), 3)

	now := day0
	var ids []string
	terminal := map[string]models.PredictionRecord{}

	for step := 0; step < 300; step++ {
		switch rng.Intn(3) {
		case 0:
			horizon := util.Day(now).AddDate(0, 0, rng.Intn(4))
			rec, err := l.Record(context.Background(), "AAPL", horizon, 100+rng.Float64()*10)
			if err != nil {
				t.Fatalf("step %d record: %v", step, err)
			}
			ids = append(ids, rec.ID)
		case 1:
			d := util.Day(now).AddDate(0, 0, -rng.Intn(5))
			prov.bars = append(prov.bars, bars("AAPL", d, 100+rng.Float64()*10)...)
		case 2:
			now = now.AddDate(0, 0, rng.Intn(3))
			if _, _, err := v.ValidatePending(context.Background(), now, 0); err != nil {
				t.Fatalf("step %d sweep: %v", step, err)
			}
		}

		for _, id := range ids {
			rec, err := l.Get(context.Background(), id)
			if err != nil || rec == nil {
				t.Fatalf("step %d get %s: rec=%v err=%v", step, id, rec, err)
			}
			if prev, ok := terminal[id]; ok {
				if rec.Status != prev.Status {
					t.Fatalf("step %d: record %s moved %s -> %s after settling",
						step, id, prev.Status, rec.Status)
				}
				if prev.RealizedClose != nil &&
					(rec.RealizedClose == nil || *rec.RealizedClose != *prev.RealizedClose) {
					t.Fatalf("step %d: record %s realized close rewritten", step, id)
				}
				continue
			}
			switch rec.Status {
			case models.StatusValidated:
				if rec.RealizedClose == nil || rec.ValidatedAt == nil {
					t.Fatalf("step %d: validated record %s missing resolution", step, id)
				}
				terminal[id] = *rec
			case models.StatusExpired:
				if rec.RealizedClose != nil {
					t.Fatalf("step %d: expired record %s carries a realized close", step, id)
				}
				terminal[id] = *rec
			}
		}
	}
}

func TestLedgerDegradedRecoversOnNextWrite(t *testing.T) {
	primary := newMemPredStore()
	mirror := newMemMirror()
	l := NewLedger(primary, mirror, nopMetrics{}, testLogger())

	primary.setDown(true)
	rec, _ := l.Record(context.Background(), "AAPL", day0, 100)
	if !l.Degraded() {
		t.Fatal("expected degraded")
	}

	primary.setDown(false)
	rec.Resolve(101, time.Now())
	l.Update(context.Background(), *rec)
	if l.Degraded() {
		t.Fatal("expected recovery after successful primary write")
	}
}
