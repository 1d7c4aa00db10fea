package repository

// ClickHouse DDL. Statements are idempotent and run at startup.
//
// observations dedupes on (ticker, date) so refresh overlaps collapse to
// the latest row. predictions is versioned on updated_at; status changes
// are re-inserts and reads use FINAL. drift_reports is append-only.
var ClickHouseSchema = []string{
	`CREATE TABLE IF NOT EXISTS observations (
		ticker  LowCardinality(String),
		date    Date,
		open    Float64,
		high    Float64,
		low     Float64,
		close   Float64,
		volume  Int64,
		ingested_at DateTime DEFAULT now()
	) ENGINE = ReplacingMergeTree(ingested_at)
	ORDER BY (ticker, date)`,

	`CREATE TABLE IF NOT EXISTS predictions (
		id              String,
		ticker          LowCardinality(String),
		created_at      DateTime64(3),
		horizon_date    Date,
		predicted_close Float64,
		realized_close  Nullable(Float64),
		abs_error       Nullable(Float64),
		pct_error       Nullable(Float64),
		status          LowCardinality(String),
		validated_at    Nullable(DateTime64(3)),
		updated_at      DateTime64(3)
	) ENGINE = ReplacingMergeTree(updated_at)
	ORDER BY (id)`,

	`CREATE TABLE IF NOT EXISTS drift_reports (
		ticker       LowCardinality(String),
		window_start Date,
		window_end   Date,
		feature      LowCardinality(String),
		statistic    Float64,
		p_value      Float64,
		drifted      UInt8,
		stale        UInt8,
		evaluated_at DateTime64(3)
	) ENGINE = MergeTree
	ORDER BY (ticker, evaluated_at, feature)`,
}

// SQLite DDL for the local mirror file. Covers three concerns: the
// observation fallback store, the ledger mirror with its reconciled
// flag, and the snapshot registry whose Promote must be transactional.
var SQLiteSchema = []string{
	`CREATE TABLE IF NOT EXISTS observations (
		ticker  TEXT NOT NULL,
		date    TEXT NOT NULL,
		open    REAL NOT NULL,
		high    REAL NOT NULL,
		low     REAL NOT NULL,
		close   REAL NOT NULL,
		volume  INTEGER NOT NULL,
		PRIMARY KEY (ticker, date)
	)`,

	`CREATE TABLE IF NOT EXISTS predictions (
		id              TEXT PRIMARY KEY,
		ticker          TEXT NOT NULL,
		created_at      TEXT NOT NULL,
		horizon_date    TEXT NOT NULL,
		predicted_close REAL NOT NULL,
		realized_close  REAL,
		abs_error       REAL,
		pct_error       REAL,
		status          TEXT NOT NULL,
		validated_at    TEXT,
		updated_at      TEXT NOT NULL,
		reconciled      INTEGER NOT NULL DEFAULT 1
	)`,

	`CREATE INDEX IF NOT EXISTS idx_predictions_status
		ON predictions (status, horizon_date)`,

	`CREATE INDEX IF NOT EXISTS idx_predictions_reconciled
		ON predictions (reconciled) WHERE reconciled = 0`,

	`CREATE TABLE IF NOT EXISTS snapshots (
		version_id    TEXT PRIMARY KEY,
		ticker        TEXT NOT NULL,
		rmse          REAL NOT NULL,
		mae           REAL NOT NULL,
		mape          REAL NOT NULL,
		r2            REAL NOT NULL,
		created_at    TEXT NOT NULL,
		status        TEXT NOT NULL,
		reject_reason TEXT NOT NULL DEFAULT ''
	)`,

	`CREATE INDEX IF NOT EXISTS idx_snapshots_status
		ON snapshots (status)`,
}
