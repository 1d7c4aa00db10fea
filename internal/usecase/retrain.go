package usecase

import (
	"context"
	"fmt"
	"time"

	"PredWatch/internal/domain/models"
	"PredWatch/internal/domain/repository"
	"PredWatch/pkg/cache"
	applogger "PredWatch/pkg/logger"
	"PredWatch/pkg/util"
)

// RetrainState is the phase a retrain cycle reached.
type RetrainState string

const (
	RetrainTraining   RetrainState = "training"
	RetrainEvaluating RetrainState = "evaluating"
	RetrainApproved   RetrainState = "approved"
	RetrainRejected   RetrainState = "rejected"
	RetrainSwapped    RetrainState = "swapped"
)

// retrainLockTTL bounds how long a crashed cycle can hold the lock.
const retrainLockTTL = 45 * time.Minute

// RetrainOptions tune one cycle. Force skips the comparison against the
// active snapshot but never the absolute quality bars. DryRun runs the
// full evaluation and stops before persisting or swapping anything.
type RetrainOptions struct {
	Force  bool
	DryRun bool
}

// RetrainResult reports how a cycle ended.
type RetrainResult struct {
	Ticker    string                `json:"ticker"`
	State     RetrainState          `json:"state"`
	Candidate *models.ModelSnapshot `json:"candidate,omitempty"`
	Previous  *models.ModelSnapshot `json:"previous,omitempty"`
	Reason    string                `json:"reason,omitempty"`
}

// RetrainEngine owns the retrain decision: train a candidate, hold it to
// the absolute quality bars and against the active snapshot, and promote
// it atomically when it wins. A Redis lock keeps concurrent cycles for
// the same ticker from racing.
type RetrainEngine struct {
	trainer   repository.Trainer
	snapshots *SnapshotService
	drift     *DriftDetector
	locks     cache.Service // optional
	metrics   repository.Metrics
	logger    *applogger.Logger

	tolerance  float64 // allowed relative worsening vs the active snapshot
	maxMAPE    float64
	minR2      float64
	trainYears int
}

func NewRetrainEngine(
	trainer repository.Trainer,
	snapshots *SnapshotService,
	drift *DriftDetector,
	locks cache.Service,
	metrics repository.Metrics,
	logger *applogger.Logger,
	tolerance, maxMAPE, minR2 float64,
	trainYears int,
) *RetrainEngine {
	return &RetrainEngine{
		trainer:    trainer,
		snapshots:  snapshots,
		drift:      drift,
		locks:      locks,
		metrics:    metrics,
		logger:     logger,
		tolerance:  tolerance,
		maxMAPE:    maxMAPE,
		minR2:      minR2,
		trainYears: trainYears,
	}
}

// Run executes one retrain cycle for a ticker.
func (e *RetrainEngine) Run(ctx context.Context, ticker string, opts RetrainOptions) (*RetrainResult, error) {
	unlock, err := e.lock(ctx, ticker)
	if err != nil {
		return nil, err
	}
	defer unlock()

	end := util.Day(time.Now())
	start := end.AddDate(-e.trainYears, 0, 0)

	e.logger.Info("retrain cycle started",
		applogger.String("ticker", ticker),
		applogger.Bool("dry_run", opts.DryRun),
		applogger.Bool("force", opts.Force))

	candidate, err := e.trainer.Train(ctx, ticker, start, end)
	if err != nil {
		e.metrics.RecordRetrain("failed")
		return &RetrainResult{Ticker: ticker, State: RetrainTraining},
			fmt.Errorf("train candidate: %w", err)
	}

	active, err := e.snapshots.Active(ctx)
	if err != nil {
		e.metrics.RecordRetrain("failed")
		return &RetrainResult{Ticker: ticker, State: RetrainEvaluating, Candidate: candidate},
			fmt.Errorf("load active snapshot: %w", err)
	}

	result := &RetrainResult{
		Ticker:    ticker,
		State:     RetrainEvaluating,
		Candidate: candidate,
		Previous:  active,
	}

	if reason := e.evaluate(candidate, active, opts.Force); reason != "" {
		result.State = RetrainRejected
		result.Reason = reason
		if !opts.DryRun {
			// The loser stays a Candidate, never promoted, kept for audit.
			candidate.RejectReason = reason
			if err := e.snapshots.Save(ctx, *candidate); err != nil {
				e.logger.Warn("rejected candidate not persisted", applogger.Error(err))
			}
		}
		e.metrics.RecordRetrain("rejected")
		e.logger.Warn("retrain rejected",
			applogger.String("ticker", ticker),
			applogger.String("reason", reason))
		return result, models.ErrRetrainRejected
	}

	result.State = RetrainApproved
	if opts.DryRun {
		e.metrics.RecordRetrain("dry_run")
		e.logger.Info("retrain dry run approved, no swap",
			applogger.String("ticker", ticker),
			applogger.String("candidate", candidate.VersionID))
		return result, nil
	}

	if err := e.snapshots.Save(ctx, *candidate); err != nil {
		e.metrics.RecordRetrain("failed")
		return result, fmt.Errorf("save candidate: %w", err)
	}
	if err := e.snapshots.Promote(ctx, candidate.VersionID); err != nil {
		e.metrics.RecordRetrain("failed")
		return result, fmt.Errorf("promote candidate: %w", err)
	}

	// The drift reference belongs to the training period of the model in
	// service; repoint it at what the new snapshot saw.
	if e.drift != nil {
		e.drift.SetReferencePeriod(start, end)
	}

	result.State = RetrainSwapped
	e.metrics.RecordRetrain("approved")
	e.logger.Info("retrain swapped",
		applogger.String("ticker", ticker),
		applogger.String("candidate", candidate.VersionID))
	return result, nil
}

// evaluate returns an empty string when the candidate passes, or the
// rejection reason. The absolute bars apply even under force.
func (e *RetrainEngine) evaluate(candidate, active *models.ModelSnapshot, force bool) string {
	m := candidate.Metrics
	if e.maxMAPE > 0 && m.MAPE > e.maxMAPE {
		return fmt.Sprintf("MAPE %.4f above absolute bar %.4f", m.MAPE, e.maxMAPE)
	}
	if m.R2 < e.minR2 {
		return fmt.Sprintf("R2 %.4f below absolute bar %.4f", m.R2, e.minR2)
	}

	if force || active == nil {
		return ""
	}

	if m.RMSE > active.Metrics.RMSE*(1+e.tolerance) {
		return fmt.Sprintf("RMSE %.4f worse than active %.4f beyond tolerance %.2f",
			m.RMSE, active.Metrics.RMSE, e.tolerance)
	}
	if m.MAPE > active.Metrics.MAPE*(1+e.tolerance) {
		return fmt.Sprintf("MAPE %.4f worse than active %.4f beyond tolerance %.2f",
			m.MAPE, active.Metrics.MAPE, e.tolerance)
	}
	if m.R2 < active.Metrics.R2*(1-e.tolerance) {
		return fmt.Sprintf("R2 %.4f worse than active %.4f beyond tolerance %.2f",
			m.R2, active.Metrics.R2, e.tolerance)
	}
	return ""
}

func (e *RetrainEngine) lock(ctx context.Context, ticker string) (func(), error) {
	if e.locks == nil {
		return func() {}, nil
	}

	key := "retrain:lock:" + ticker
	ok, err := e.locks.TryLock(ctx, key, retrainLockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire retrain lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("retrain already running for %s", ticker)
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.locks.Unlock(ctx, key); err != nil {
			e.logger.Warn("retrain lock release failed", applogger.Error(err))
		}
	}, nil
}
