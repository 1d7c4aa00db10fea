package repository

import (
	"context"
	"time"

	"PredWatch/internal/domain/models"
	"PredWatch/internal/domain/repository"
)

// CacheProvider adapts the observation store into the acquisition chain.
// It sits below the live providers: data it returns was fetched earlier,
// so freshness is whatever the last successful refresh left behind.
type CacheProvider struct {
	store repository.ObservationStore
}

func NewCacheProvider(store repository.ObservationStore) repository.DataProvider {
	return &CacheProvider{store: store}
}

func (p *CacheProvider) Name() string {
	return models.SourceCache
}

func (p *CacheProvider) Fetch(ctx context.Context, ticker string, start, end time.Time) ([]models.Observation, error) {
	return p.store.Read(ctx, ticker, start, end)
}
