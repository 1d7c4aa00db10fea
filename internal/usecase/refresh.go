package usecase

import (
	"context"
	"time"

	"PredWatch/internal/domain/repository"
	applogger "PredWatch/pkg/logger"
	"PredWatch/pkg/util"
)

// overlapDays re-fetches a few trailing sessions on every refresh so late
// price revisions land as upserts.
const overlapDays = 3

// Refresher performs incremental cache refresh per ticker: it resumes
// from the last stored date instead of re-pulling full history.
type Refresher struct {
	source  *DataSource
	store   repository.ObservationStore
	logger  *applogger.Logger
	tickers []string

	// backfill window used when a ticker has no stored history yet
	bootstrapDays int
}

func NewRefresher(source *DataSource, store repository.ObservationStore, logger *applogger.Logger, tickers []string) *Refresher {
	return &Refresher{
		source:        source,
		store:         store,
		logger:        logger,
		tickers:       tickers,
		bootstrapDays: 365 * 2,
	}
}

// RefreshAll refreshes every configured ticker. Per-ticker failures are
// logged and skipped so one dead symbol cannot stall the rest.
func (r *Refresher) RefreshAll(ctx context.Context) {
	for _, ticker := range r.tickers {
		if err := r.Refresh(ctx, ticker); err != nil {
			r.logger.Error("refresh failed",
				applogger.String("ticker", ticker),
				applogger.Error(err))
		}
		if ctx.Err() != nil {
			return
		}
	}
}

// Refresh pulls bars from the last stored date (minus overlap) to today.
func (r *Refresher) Refresh(ctx context.Context, ticker string) error {
	today := util.Day(time.Now())

	start := today.AddDate(0, 0, -r.bootstrapDays)
	st, err := r.store.Stats(ctx, ticker)
	if err != nil {
		r.logger.Warn("store stats unavailable, using bootstrap window",
			applogger.String("ticker", ticker),
			applogger.Error(err))
	} else if st.Count > 0 {
		start = st.MaxDate.AddDate(0, 0, -overlapDays)
	}

	if !start.Before(today) {
		return nil // already current
	}

	res, err := r.source.Fetch(ctx, ticker, start, today)
	if err != nil {
		return err
	}

	// The chain already wrote live results back asynchronously; cached
	// tiers are a no-op here because the data came from the store.
	r.logger.Info("refresh complete",
		applogger.String("ticker", ticker),
		applogger.String("source", res.Source),
		applogger.Int("bars", len(res.Observations)))
	return nil
}
