package repository

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"PredWatch/internal/domain/models"
	"PredWatch/internal/domain/repository"
	applogger "PredWatch/pkg/logger"
)

// FailoverObservationStore writes through to both backends and reads from
// the primary, falling back to the local mirror when the primary errors.
// Mirror write failures are logged and absorbed; the primary is the
// source of truth.
type FailoverObservationStore struct {
	primary repository.ObservationStore
	mirror  repository.ObservationStore
	metrics repository.Metrics
	logger  *applogger.Logger

	lastReadBackend atomic.Value // string
	degraded        atomic.Bool
}

func NewFailoverObservationStore(
	primary, mirror repository.ObservationStore,
	metrics repository.Metrics,
	logger *applogger.Logger,
) *FailoverObservationStore {
	s := &FailoverObservationStore{
		primary: primary,
		mirror:  mirror,
		metrics: metrics,
		logger:  logger,
	}
	s.lastReadBackend.Store("primary")
	return s
}

func (s *FailoverObservationStore) Upsert(ctx context.Context, obs []models.Observation) (int, error) {
	n, primaryErr := s.primary.Upsert(ctx, obs)

	mn, mirrorErr := s.mirror.Upsert(ctx, obs)
	if mirrorErr != nil {
		s.logger.Warn("mirror observation write failed", applogger.Error(mirrorErr))
	}

	if primaryErr != nil {
		s.setDegraded(true)
		if mirrorErr != nil {
			return 0, fmt.Errorf("observation write failed on both backends: %w", primaryErr)
		}
		s.logger.Error("primary observation write failed, mirror holds the data",
			applogger.Error(primaryErr))
		return mn, nil
	}
	s.setDegraded(false)
	return n, nil
}

func (s *FailoverObservationStore) Read(ctx context.Context, ticker string, start, end time.Time) ([]models.Observation, error) {
	obs, err := s.primary.Read(ctx, ticker, start, end)
	if err == nil {
		s.lastReadBackend.Store("primary")
		s.setDegraded(false)
		return obs, nil
	}

	s.logger.Warn("primary observation read failed, trying mirror", applogger.Error(err))
	obs, merr := s.mirror.Read(ctx, ticker, start, end)
	if merr != nil {
		return nil, err
	}
	s.lastReadBackend.Store("mirror")
	s.setDegraded(true)
	return obs, nil
}

func (s *FailoverObservationStore) Stats(ctx context.Context, ticker string) (models.StoreStats, error) {
	st, err := s.primary.Stats(ctx, ticker)
	if err == nil {
		return st, nil
	}
	return s.mirror.Stats(ctx, ticker)
}

func (s *FailoverObservationStore) Count(ctx context.Context) (int64, error) {
	n, err := s.primary.Count(ctx)
	if err == nil {
		return n, nil
	}
	return s.mirror.Count(ctx)
}

func (s *FailoverObservationStore) Health(ctx context.Context) error {
	if err := s.primary.Health(ctx); err == nil {
		return nil
	}
	return s.mirror.Health(ctx)
}

// LastReadBackend reports which backend served the most recent read.
func (s *FailoverObservationStore) LastReadBackend() string {
	return s.lastReadBackend.Load().(string)
}

// Degraded reports whether the primary failed its last operation.
func (s *FailoverObservationStore) Degraded() bool {
	return s.degraded.Load()
}

func (s *FailoverObservationStore) setDegraded(d bool) {
	if s.degraded.Swap(d) != d {
		s.metrics.SetPersistenceDegraded(d)
	}
}
