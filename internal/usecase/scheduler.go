package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"PredWatch/internal/domain/models"
	applogger "PredWatch/pkg/logger"
	"PredWatch/pkg/config"
)

// Scheduler drives the periodic monitoring cycles. Each concern runs on
// its own cadence; a slow drift evaluation never delays validation.
type Scheduler struct {
	cfg        *config.Config
	refresher  *Refresher
	predictor  *Predictor
	validator  *Validator
	drift      *DriftDetector
	alerts     *AlertManager
	reconciler *Reconciler
	retrain    *RetrainEngine
	logger     *applogger.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func NewScheduler(
	cfg *config.Config,
	refresher *Refresher,
	predictor *Predictor,
	validator *Validator,
	drift *DriftDetector,
	alerts *AlertManager,
	reconciler *Reconciler,
	retrain *RetrainEngine,
	logger *applogger.Logger,
) *Scheduler {
	return &Scheduler{
		cfg:        cfg,
		refresher:  refresher,
		predictor:  predictor,
		validator:  validator,
		drift:      drift,
		alerts:     alerts,
		reconciler: reconciler,
		retrain:    retrain,
		logger:     logger,
	}
}

// Start launches the workers. Each runs its cycle once at startup, then
// on its ticker.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.spawn(ctx, "refresh", s.cfg.Monitor.RefreshEvery, s.refreshCycle)
	s.spawn(ctx, "predict", s.cfg.Monitor.PredictEvery, s.predictCycle)
	s.spawn(ctx, "validate", s.cfg.Monitor.ValidateEvery, s.validateCycle)
	s.spawn(ctx, "drift", s.cfg.Monitor.DriftEvery, s.driftCycle)
	s.spawn(ctx, "reconcile", s.cfg.Monitor.ReconcileEvery, s.reconcileCycle)
	if s.cfg.Monitor.RetrainEnabled {
		s.spawn(ctx, "retrain", s.cfg.Monitor.RetrainEvery, s.retrainCycle)
	}
}

// Shutdown stops the workers and waits for in-flight cycles.
func (s *Scheduler) Shutdown() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) spawn(ctx context.Context, name string, every time.Duration, cycle func(context.Context)) {
	if every <= 0 {
		s.logger.Warn("worker disabled, cadence not set", applogger.String("worker", name))
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Info("worker started",
			applogger.String("worker", name),
			applogger.Duration("every", every))

		cycle(ctx)
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				cycle(ctx)
			case <-ctx.Done():
				s.logger.Info("worker stopped", applogger.String("worker", name))
				return
			}
		}
	}()
}

func (s *Scheduler) refreshCycle(ctx context.Context) {
	s.refresher.RefreshAll(ctx)
}

func (s *Scheduler) predictCycle(ctx context.Context) {
	s.predictor.PredictAll(ctx)
}

func (s *Scheduler) validateCycle(ctx context.Context) {
	now := time.Now()
	resolved, expired, err := s.validator.ValidatePending(ctx, now, 0)
	if err != nil {
		s.logger.Error("validation cycle failed", applogger.Error(err))
		return
	}
	if resolved+expired > 0 {
		s.logger.Info("validation cycle",
			applogger.Int("resolved", resolved),
			applogger.Int("expired", expired))
	}

	for _, ticker := range s.cfg.Monitor.Tickers {
		sum, err := s.validator.Summary(ctx, ticker, s.cfg.Monitor.SummaryWindowDays, now)
		if err != nil {
			s.logger.Error("summary failed",
				applogger.String("ticker", ticker),
				applogger.Error(err))
			continue
		}
		s.alerts.Dispatch(ctx, s.alerts.EvaluatePerformance(ticker, sum, now))
	}
}

func (s *Scheduler) driftCycle(ctx context.Context) {
	now := time.Now()
	for _, ticker := range s.cfg.Monitor.Tickers {
		reports, err := s.drift.Evaluate(ctx, ticker, now)
		if err != nil && !errors.Is(err, models.ErrDriftStale) {
			s.logger.Error("drift cycle failed",
				applogger.String("ticker", ticker),
				applogger.Error(err))
			continue
		}
		s.alerts.Dispatch(ctx, s.alerts.EvaluateDrift(ticker, reports, now))
	}
}

func (s *Scheduler) reconcileCycle(ctx context.Context) {
	n, err := s.reconciler.Run(ctx)
	if err != nil {
		s.logger.Warn("reconcile cycle incomplete",
			applogger.Int("replayed", n),
			applogger.Error(err))
		return
	}
	if n > 0 {
		s.logger.Info("reconcile cycle", applogger.Int("replayed", n))
	}
}

func (s *Scheduler) retrainCycle(ctx context.Context) {
	for _, ticker := range s.cfg.Monitor.Tickers {
		if _, err := s.retrain.Run(ctx, ticker, RetrainOptions{}); err != nil {
			if errors.Is(err, models.ErrRetrainRejected) {
				continue // expected outcome, already logged
			}
			s.logger.Error("retrain cycle failed",
				applogger.String("ticker", ticker),
				applogger.Error(err))
		}
	}
}
