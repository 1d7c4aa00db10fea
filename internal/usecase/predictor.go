package usecase

import (
	"context"
	"fmt"
	"time"

	"PredWatch/internal/domain/models"
	"PredWatch/internal/domain/repository"
	applogger "PredWatch/pkg/logger"
	"PredWatch/pkg/util"
)

// inferenceWindowDays sizes the trailing window handed to the inference
// service.
const inferenceWindowDays = 90

// Predictor asks the inference service for next-day forecasts and
// records them in the ledger as pending predictions.
type Predictor struct {
	inferencer repository.Inferencer
	source     *DataSource
	ledger     *Ledger
	snapshots  *SnapshotService
	logger     *applogger.Logger
	tickers    []string
}

func NewPredictor(
	inferencer repository.Inferencer,
	source *DataSource,
	ledger *Ledger,
	snapshots *SnapshotService,
	logger *applogger.Logger,
	tickers []string,
) *Predictor {
	return &Predictor{
		inferencer: inferencer,
		source:     source,
		ledger:     ledger,
		snapshots:  snapshots,
		logger:     logger,
		tickers:    tickers,
	}
}

// PredictAll records one forecast per configured ticker.
func (p *Predictor) PredictAll(ctx context.Context) {
	for _, ticker := range p.tickers {
		if _, err := p.Predict(ctx, ticker, time.Now()); err != nil {
			p.logger.Error("prediction failed",
				applogger.String("ticker", ticker),
				applogger.Error(err))
		}
		if ctx.Err() != nil {
			return
		}
	}
}

// Predict fetches the trailing window, asks the inference service for
// the next close, and appends a pending ledger entry whose horizon is
// the next trading day.
func (p *Predictor) Predict(ctx context.Context, ticker string, now time.Time) (*models.PredictionRecord, error) {
	snap, err := p.snapshots.Active(ctx)
	if err != nil {
		return nil, fmt.Errorf("load active snapshot: %w", err)
	}
	if snap == nil {
		return nil, fmt.Errorf("no active model snapshot")
	}

	today := util.Day(now)
	res, err := p.source.Fetch(ctx, ticker, today.AddDate(0, 0, -inferenceWindowDays), today)
	if err != nil {
		return nil, fmt.Errorf("fetch inference window: %w", err)
	}

	predicted, err := p.inferencer.Predict(ctx, ticker, res.Observations)
	if err != nil {
		return nil, fmt.Errorf("inference: %w", err)
	}

	horizon := nextTradingDay(today)
	rec, err := p.ledger.Record(ctx, ticker, horizon, predicted)
	if err != nil {
		return nil, err
	}

	p.logger.Info("prediction recorded",
		applogger.String("ticker", ticker),
		applogger.String("id", rec.ID),
		applogger.String("horizon", horizon.Format("2006-01-02")))
	return rec, nil
}

func nextTradingDay(t time.Time) time.Time {
	d := util.Day(t).AddDate(0, 0, 1)
	for util.IsWeekend(d) {
		d = d.AddDate(0, 0, 1)
	}
	return d
}
