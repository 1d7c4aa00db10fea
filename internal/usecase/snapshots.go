package usecase

import (
	"context"
	"sync/atomic"
	"time"

	"PredWatch/internal/domain/models"
	"PredWatch/internal/domain/repository"
	"PredWatch/pkg/cache"
	applogger "PredWatch/pkg/logger"
)

const (
	activeSnapshotKey = "snapshot:active"
	snapshotCacheTTL  = time.Hour
)

// SnapshotService fronts the snapshot registry with two read-through
// layers: an in-process pointer for the hot path and Redis for cross-
// process sharing. Promote invalidates both after the registry commits.
type SnapshotService struct {
	registry repository.SnapshotRegistry
	cache    cache.Service // optional
	logger   *applogger.Logger

	active atomic.Pointer[models.ModelSnapshot]
}

func NewSnapshotService(registry repository.SnapshotRegistry, cacheSvc cache.Service, logger *applogger.Logger) *SnapshotService {
	return &SnapshotService{
		registry: registry,
		cache:    cacheSvc,
		logger:   logger,
	}
}

// Active returns the active snapshot, or nil when none has been promoted
// yet. Reads hit the in-process copy, then Redis, then the registry.
func (s *SnapshotService) Active(ctx context.Context) (*models.ModelSnapshot, error) {
	if snap := s.active.Load(); snap != nil {
		return snap, nil
	}

	if s.cache != nil {
		var snap models.ModelSnapshot
		if err := s.cache.Get(ctx, activeSnapshotKey, &snap); err == nil && snap.VersionID != "" {
			s.active.Store(&snap)
			return &snap, nil
		}
	}

	snap, err := s.registry.Active(ctx)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, nil
	}

	s.active.Store(snap)
	s.cacheActive(ctx, snap)
	return snap, nil
}

// Save registers a candidate snapshot.
func (s *SnapshotService) Save(ctx context.Context, snap models.ModelSnapshot) error {
	return s.registry.Save(ctx, snap)
}

// Promote atomically swaps the active snapshot and invalidates readers.
func (s *SnapshotService) Promote(ctx context.Context, versionID string) error {
	if err := s.registry.Promote(ctx, versionID); err != nil {
		return err
	}

	snap, err := s.registry.Get(ctx, versionID)
	if err != nil {
		// Swap committed; readers will reload from the registry.
		s.logger.Warn("promoted snapshot reload failed", applogger.Error(err))
		snap = nil
	}
	s.active.Store(snap)

	if s.cache != nil {
		if err := s.cache.Delete(ctx, activeSnapshotKey); err != nil {
			s.logger.Warn("snapshot cache invalidation failed", applogger.Error(err))
		}
	}
	if snap != nil {
		s.cacheActive(ctx, snap)
	}

	s.logger.Info("snapshot promoted", applogger.String("version", versionID))
	return nil
}

// Get looks a snapshot up by version.
func (s *SnapshotService) Get(ctx context.Context, versionID string) (*models.ModelSnapshot, error) {
	return s.registry.Get(ctx, versionID)
}

// List returns recent snapshots, newest first.
func (s *SnapshotService) List(ctx context.Context, limit int) ([]models.ModelSnapshot, error) {
	return s.registry.List(ctx, limit)
}

func (s *SnapshotService) cacheActive(ctx context.Context, snap *models.ModelSnapshot) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, activeSnapshotKey, snap, snapshotCacheTTL); err != nil {
		s.logger.Warn("snapshot cache write failed", applogger.Error(err))
	}
}
