package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"PredWatch/internal/domain/models"
	"PredWatch/pkg/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	client, err := sqlite.Open(t.TempDir(), "predwatch_test.db")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	if err := client.InitSchema(context.Background(), SQLiteSchema); err != nil {
		t.Fatalf("init schema: %v", err)
	}
	return client.DB()
}

func day(d int) time.Time {
	return time.Date(2026, 8, d, 0, 0, 0, 0, time.UTC)
}

func obs(ticker string, d int, close float64) models.Observation {
	return models.Observation{
		Ticker: ticker,
		Date:   day(d),
		Open:   close * 0.99,
		High:   close * 1.01,
		Low:    close * 0.98,
		Close:  close,
		Volume: 1000,
	}
}

func TestSQLiteObservationsUpsertIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewSQLiteObservationStore(openTestDB(t))

	bars := []models.Observation{obs("AAPL", 3, 100), obs("AAPL", 4, 101), obs("AAPL", 5, 102)}
	n, err := store.Upsert(ctx, bars)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if n != 3 {
		t.Fatalf("written = %d, want 3", n)
	}

	// Same keys again, one bar revised. Must update in place, not duplicate.
	bars[1].Close = 150
	if _, err := store.Upsert(ctx, bars); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	got, err := store.Read(ctx, "AAPL", day(1), day(31))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("rows = %d, want 3", len(got))
	}
	if got[1].Close != 150 {
		t.Fatalf("revised close = %v, want 150", got[1].Close)
	}
}

func TestSQLiteObservationsSkipsInvalidRows(t *testing.T) {
	ctx := context.Background()
	store := NewSQLiteObservationStore(openTestDB(t))

	rows := []models.Observation{
		obs("AAPL", 3, 100),
		{Ticker: "", Date: day(4), Close: 101},
		{Ticker: "AAPL", Close: 102},
	}
	n, err := store.Upsert(ctx, rows)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if n != 1 {
		t.Fatalf("written = %d, want 1", n)
	}
}

func TestSQLiteObservationsReadOrdering(t *testing.T) {
	ctx := context.Background()
	store := NewSQLiteObservationStore(openTestDB(t))

	// Insert out of date order, and one row for another ticker.
	in := []models.Observation{obs("AAPL", 7, 103), obs("AAPL", 3, 100), obs("AAPL", 5, 102), obs("MSFT", 4, 300)}
	if _, err := store.Upsert(ctx, in); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := store.Read(ctx, "AAPL", day(4), day(7))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("rows = %d, want 2", len(got))
	}
	if !got[0].Date.Equal(day(5)) || !got[1].Date.Equal(day(7)) {
		t.Fatalf("dates = %v, %v; want ascending 5th, 7th", got[0].Date, got[1].Date)
	}
	if got[0].Ticker != "AAPL" || got[1].Ticker != "AAPL" {
		t.Fatalf("leaked foreign ticker into read")
	}
}

func TestSQLiteObservationsStats(t *testing.T) {
	ctx := context.Background()
	store := NewSQLiteObservationStore(openTestDB(t))

	in := []models.Observation{obs("AAPL", 3, 100), obs("AAPL", 10, 105), obs("AAPL", 7, 103)}
	if _, err := store.Upsert(ctx, in); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	st, err := store.Stats(ctx, "AAPL")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.Count != 3 {
		t.Fatalf("count = %d, want 3", st.Count)
	}
	if !st.MinDate.Equal(day(3)) || !st.MaxDate.Equal(day(10)) {
		t.Fatalf("range = %v..%v, want 3rd..10th", st.MinDate, st.MaxDate)
	}

	empty, err := store.Stats(ctx, "NFLX")
	if err != nil {
		t.Fatalf("stats empty: %v", err)
	}
	if empty.Count != 0 || !empty.MinDate.IsZero() || !empty.MaxDate.IsZero() {
		t.Fatalf("empty ticker stats = %+v", empty)
	}
}

func mirrorRecord(id string, horizon time.Time) models.PredictionRecord {
	created := time.Date(2026, 8, 3, 9, 30, 0, 0, time.UTC)
	return models.PredictionRecord{
		ID:             id,
		Ticker:         "AAPL",
		CreatedAt:      created,
		HorizonDate:    horizon,
		PredictedClose: 100,
		Status:         models.StatusPending,
		UpdatedAt:      created,
	}
}

func TestSQLiteLedgerRoundTrip(t *testing.T) {
	ctx := context.Background()
	ledger := NewSQLiteLedger(openTestDB(t))

	rec := mirrorRecord("p1", day(4))
	if err := ledger.Append(ctx, rec); err != nil {
		t.Fatalf("append: %v", err)
	}

	got, err := ledger.Get(ctx, "p1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("record not found after append")
	}
	if got.Ticker != "AAPL" || got.Status != models.StatusPending || got.PredictedClose != 100 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if !got.CreatedAt.Equal(rec.CreatedAt) || !got.HorizonDate.Equal(rec.HorizonDate) {
		t.Fatalf("timestamps drifted: created=%v horizon=%v", got.CreatedAt, got.HorizonDate)
	}
	if got.RealizedClose != nil || got.ValidatedAt != nil {
		t.Fatalf("pending record carries resolution fields: %+v", got)
	}

	missing, err := ledger.Get(ctx, "nope")
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for unknown id, got %+v", missing)
	}
}

func TestSQLiteLedgerUpdatePersistsResolution(t *testing.T) {
	ctx := context.Background()
	ledger := NewSQLiteLedger(openTestDB(t))

	rec := mirrorRecord("p1", day(4))
	if err := ledger.Append(ctx, rec); err != nil {
		t.Fatalf("append: %v", err)
	}

	resolvedAt := time.Date(2026, 8, 4, 21, 0, 0, 0, time.UTC)
	if !rec.Resolve(104, resolvedAt) {
		t.Fatal("resolve refused")
	}
	if err := ledger.Update(ctx, rec); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := ledger.Get(ctx, "p1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != models.StatusValidated {
		t.Fatalf("status = %s, want validated", got.Status)
	}
	if got.RealizedClose == nil || *got.RealizedClose != 104 {
		t.Fatalf("realized = %v, want 104", got.RealizedClose)
	}
	if got.AbsError == nil || *got.AbsError != 4 {
		t.Fatalf("abs error = %v, want 4", got.AbsError)
	}
	if got.ValidatedAt == nil || !got.ValidatedAt.Equal(resolvedAt) {
		t.Fatalf("validated_at = %v, want %v", got.ValidatedAt, resolvedAt)
	}
}

func TestSQLiteLedgerListPendingAndValidated(t *testing.T) {
	ctx := context.Background()
	ledger := NewSQLiteLedger(openTestDB(t))

	due := mirrorRecord("due", day(4))
	future := mirrorRecord("future", day(20))
	done := mirrorRecord("done", day(3))
	done.Resolve(101, time.Date(2026, 8, 3, 21, 0, 0, 0, time.UTC))

	for _, r := range []models.PredictionRecord{due, future, done} {
		if err := ledger.Append(ctx, r); err != nil {
			t.Fatalf("append %s: %v", r.ID, err)
		}
	}

	pending, err := ledger.ListPending(ctx, day(10))
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != "due" {
		t.Fatalf("pending = %+v, want only 'due'", pending)
	}

	validated, err := ledger.ListValidated(ctx, day(1))
	if err != nil {
		t.Fatalf("list validated: %v", err)
	}
	if len(validated) != 1 || validated[0].ID != "done" {
		t.Fatalf("validated = %+v, want only 'done'", validated)
	}
}

func TestSQLiteLedgerReconciledFlagLifecycle(t *testing.T) {
	ctx := context.Background()
	ledger := NewSQLiteLedger(openTestDB(t))

	if err := ledger.Append(ctx, mirrorRecord("ok", day(4))); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := ledger.AppendUnreconciled(ctx, mirrorRecord("orphan", day(5))); err != nil {
		t.Fatalf("append unreconciled: %v", err)
	}

	n, err := ledger.CountUnreconciled(ctx)
	if err != nil {
		t.Fatalf("count unreconciled: %v", err)
	}
	if n != 1 {
		t.Fatalf("unreconciled = %d, want 1", n)
	}

	backlog, err := ledger.ListUnreconciled(ctx, 100)
	if err != nil {
		t.Fatalf("list unreconciled: %v", err)
	}
	if len(backlog) != 1 || backlog[0].ID != "orphan" {
		t.Fatalf("backlog = %+v, want only 'orphan'", backlog)
	}

	if err := ledger.MarkReconciled(ctx, "orphan"); err != nil {
		t.Fatalf("mark reconciled: %v", err)
	}
	if n, err = ledger.CountUnreconciled(ctx); err != nil || n != 0 {
		t.Fatalf("after mark: n=%d err=%v, want 0 and nil", n, err)
	}

	total, err := ledger.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if total != 2 {
		t.Fatalf("total = %d, want 2", total)
	}
}

func testSnapshot(version string, mape float64) models.ModelSnapshot {
	return models.ModelSnapshot{
		VersionID: version,
		Ticker:    "AAPL",
		Metrics:   models.ModelMetrics{RMSE: 2.5, MAE: 1.8, MAPE: mape, R2: 0.85},
		CreatedAt: time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC),
		Status:    models.SnapshotCandidate,
	}
}

func TestSQLiteSnapshotSaveAndGet(t *testing.T) {
	ctx := context.Background()
	reg := NewSQLiteSnapshotRegistry(openTestDB(t))

	snap := testSnapshot("v1", 3.2)
	if err := reg.Save(ctx, snap); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := reg.Get(ctx, "v1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || got.Metrics.MAPE != 3.2 || got.Status != models.SnapshotCandidate {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	// Re-save with a rejection verdict. Metrics stay, status fields update.
	snap.RejectReason = "mape 6.0 above ceiling"
	if err := reg.Save(ctx, snap); err != nil {
		t.Fatalf("re-save: %v", err)
	}
	got, err = reg.Get(ctx, "v1")
	if err != nil {
		t.Fatalf("get after re-save: %v", err)
	}
	if got.RejectReason == "" {
		t.Fatal("reject reason not persisted on conflict update")
	}

	missing, err := reg.Get(ctx, "v99")
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for unknown version, got %+v", missing)
	}
}

func TestSQLiteSnapshotPromoteSwapsActive(t *testing.T) {
	ctx := context.Background()
	reg := NewSQLiteSnapshotRegistry(openTestDB(t))

	if active, err := reg.Active(ctx); err != nil || active != nil {
		t.Fatalf("fresh registry: active=%+v err=%v, want nil and nil", active, err)
	}

	for _, v := range []string{"v1", "v2"} {
		if err := reg.Save(ctx, testSnapshot(v, 3.0)); err != nil {
			t.Fatalf("save %s: %v", v, err)
		}
	}

	if err := reg.Promote(ctx, "v1"); err != nil {
		t.Fatalf("promote v1: %v", err)
	}
	if err := reg.Promote(ctx, "v2"); err != nil {
		t.Fatalf("promote v2: %v", err)
	}

	active, err := reg.Active(ctx)
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	if active == nil || active.VersionID != "v2" {
		t.Fatalf("active = %+v, want v2", active)
	}

	old, err := reg.Get(ctx, "v1")
	if err != nil {
		t.Fatalf("get v1: %v", err)
	}
	if old.Status != models.SnapshotRetired {
		t.Fatalf("v1 status = %s, want retired", old.Status)
	}
}

func TestSQLiteSnapshotPromoteUnknownVersion(t *testing.T) {
	ctx := context.Background()
	reg := NewSQLiteSnapshotRegistry(openTestDB(t))

	if err := reg.Save(ctx, testSnapshot("v1", 3.0)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := reg.Promote(ctx, "v1"); err != nil {
		t.Fatalf("promote v1: %v", err)
	}

	if err := reg.Promote(ctx, "ghost"); err == nil {
		t.Fatal("expected error promoting unknown version")
	}

	// The failed promote must leave the current active untouched.
	active, err := reg.Active(ctx)
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	if active == nil || active.VersionID != "v1" {
		t.Fatalf("active = %+v, want v1", active)
	}
}

func TestSQLiteSnapshotList(t *testing.T) {
	ctx := context.Background()
	reg := NewSQLiteSnapshotRegistry(openTestDB(t))

	for i, v := range []string{"v1", "v2", "v3"} {
		snap := testSnapshot(v, 3.0)
		snap.CreatedAt = snap.CreatedAt.Add(time.Duration(i) * time.Hour)
		if err := reg.Save(ctx, snap); err != nil {
			t.Fatalf("save %s: %v", v, err)
		}
	}

	out, err := reg.List(ctx, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("rows = %d, want 2", len(out))
	}
	if out[0].VersionID != "v3" || out[1].VersionID != "v2" {
		t.Fatalf("order = %s, %s; want newest first", out[0].VersionID, out[1].VersionID)
	}
}
