package usecase

import (
	"context"
	"testing"
	"time"
)

func TestReconcilerReplaysBacklog(t *testing.T) {
	primary := newMemPredStore()
	mirror := newMemMirror()
	l := NewLedger(primary, mirror, nopMetrics{}, testLogger())

	primary.setDown(true)
	r1, _ := l.Record(context.Background(), "AAPL", day0, 100)
	r2, _ := l.Record(context.Background(), "MSFT", day0, 200)
	primary.setDown(false)

	rec := NewReconciler(primary, mirror, testLogger())
	n, err := rec.Run(context.Background())
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 replayed, got %d", n)
	}

	for _, id := range []string{r1.ID, r2.ID} {
		if got, _ := primary.Get(context.Background(), id); got == nil {
			t.Fatalf("primary missing %s after replay", id)
		}
	}
	if left, _ := mirror.CountUnreconciled(context.Background()); left != 0 {
		t.Fatalf("expected drained backlog, got %d", left)
	}
}

func TestReconcilerIsIdempotent(t *testing.T) {
	primary := newMemPredStore()
	mirror := newMemMirror()
	l := NewLedger(primary, mirror, nopMetrics{}, testLogger())

	primary.setDown(true)
	l.Record(context.Background(), "AAPL", day0, 100)
	primary.setDown(false)

	rec := NewReconciler(primary, mirror, testLogger())
	if n, _ := rec.Run(context.Background()); n != 1 {
		t.Fatalf("first run should replay 1, got %d", n)
	}
	if n, _ := rec.Run(context.Background()); n != 0 {
		t.Fatalf("second run should replay nothing, got %d", n)
	}
}

func TestReconcilerSkipsNewerPrimaryVersion(t *testing.T) {
	primary := newMemPredStore()
	mirror := newMemMirror()

	// Mirror holds a stale pending copy; the primary already resolved it.
	now := time.Now().UTC()
	l := NewLedger(primary, mirror, nopMetrics{}, testLogger())
	rec, _ := l.Record(context.Background(), "AAPL", day0, 100)

	stale := *rec
	mirror.AppendUnreconciled(context.Background(), stale)

	resolved := *rec
	resolved.Resolve(101, now.Add(time.Minute))
	primary.Update(context.Background(), resolved)

	r := NewReconciler(primary, mirror, testLogger())
	if n, err := r.Run(context.Background()); err != nil || n != 0 {
		t.Fatalf("expected no replay over newer primary row, got n=%d err=%v", n, err)
	}

	got, _ := primary.Get(context.Background(), rec.ID)
	if got.Status != "validated" {
		t.Fatalf("primary row was clobbered: %+v", got)
	}
	if left, _ := mirror.CountUnreconciled(context.Background()); left != 0 {
		t.Fatalf("stale mirror row should still be marked reconciled, got %d", left)
	}
}

func TestReconcilerStopsWhenPrimaryDown(t *testing.T) {
	primary := newMemPredStore()
	mirror := newMemMirror()
	l := NewLedger(primary, mirror, nopMetrics{}, testLogger())

	primary.setDown(true)
	l.Record(context.Background(), "AAPL", day0, 100)

	rec := NewReconciler(primary, mirror, testLogger())
	if _, err := rec.Run(context.Background()); err == nil {
		t.Fatal("expected error while primary is down")
	}
	if left, _ := mirror.CountUnreconciled(context.Background()); left != 1 {
		t.Fatalf("backlog must stay queued, got %d", left)
	}
}
