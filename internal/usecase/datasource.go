package usecase

import (
	"context"
	"time"

	"PredWatch/internal/domain/models"
	"PredWatch/internal/domain/repository"
	applogger "PredWatch/pkg/logger"
)

// FetchResult carries the bars plus which provider produced them.
type FetchResult struct {
	Observations []models.Observation
	Source       string
}

// DataSource walks an ordered provider chain until one returns usable
// bars. Providers are tried strictly in order; an error, an empty
// response, or a response that is entirely malformed moves to the next.
// Bars from live providers are written back to the store best-effort.
type DataSource struct {
	providers []repository.DataProvider
	store     repository.ObservationStore
	metrics   repository.Metrics
	logger    *applogger.Logger
	timeout   time.Duration

	// live names the providers whose results feed the write-back; cache
	// and snapshot tiers already came from storage.
	live map[string]bool
}

func NewDataSource(
	providers []repository.DataProvider,
	store repository.ObservationStore,
	metrics repository.Metrics,
	logger *applogger.Logger,
	timeout time.Duration,
) *DataSource {
	return &DataSource{
		providers: providers,
		store:     store,
		metrics:   metrics,
		logger:    logger,
		timeout:   timeout,
		live: map[string]bool{
			models.SourceYahoo: true,
			models.SourceStooq: true,
		},
	}
}

// Fetch returns daily bars for [start, end] from the first provider that
// delivers any valid ones. Returns ErrDataUnavailable after the chain is
// exhausted.
func (d *DataSource) Fetch(ctx context.Context, ticker string, start, end time.Time) (*FetchResult, error) {
	began := time.Now()
	defer func() {
		d.metrics.RecordLatency("fetch", time.Since(began).Seconds())
	}()

	for _, p := range d.providers {
		obs, err := d.tryProvider(ctx, p, ticker, start, end)
		if err != nil {
			d.metrics.RecordProviderError(p.Name())
			d.logger.Warn("provider failed",
				applogger.String("provider", p.Name()),
				applogger.String("ticker", ticker),
				applogger.Error(err))
			continue
		}

		valid := models.FilterValid(obs)
		if len(valid) == 0 {
			d.logger.Warn("provider returned no usable bars",
				applogger.String("provider", p.Name()),
				applogger.String("ticker", ticker),
				applogger.Int("raw", len(obs)))
			continue
		}
		if dropped := len(obs) - len(valid); dropped > 0 {
			d.logger.Warn("dropped malformed bars",
				applogger.String("provider", p.Name()),
				applogger.String("ticker", ticker),
				applogger.Int("dropped", dropped))
		}

		d.metrics.RecordFetch(p.Name(), ticker)
		d.logger.Info("fetched",
			applogger.String("source", p.Name()),
			applogger.String("ticker", ticker),
			applogger.Int("bars", len(valid)))

		if d.live[p.Name()] {
			d.writeBack(ticker, valid)
		}
		return &FetchResult{Observations: valid, Source: p.Name()}, nil
	}

	return nil, models.ErrDataUnavailable
}

func (d *DataSource) tryProvider(ctx context.Context, p repository.DataProvider, ticker string, start, end time.Time) ([]models.Observation, error) {
	pctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	return p.Fetch(pctx, ticker, start, end)
}

// writeBack persists freshly fetched bars asynchronously. A failure here
// never fails the fetch that produced the data.
func (d *DataSource) writeBack(ticker string, obs []models.Observation) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := d.store.Upsert(ctx, obs); err != nil {
			d.logger.Error("write-back failed",
				applogger.String("ticker", ticker),
				applogger.Error(err))
		}
	}()
}
