package usecase

import (
	"context"
	"math"
	"time"

	"PredWatch/internal/domain/models"
	"PredWatch/internal/domain/repository"
	applogger "PredWatch/pkg/logger"
	"PredWatch/pkg/util"
)

// searchForwardDays bounds the hunt for a realized close past the
// horizon; holidays and halts can push the first bar a few sessions out.
const searchForwardDays = 5

// trendMinSamples is the fewest validated records a trend needs.
const trendMinSamples = 3

// slopeStableBand treats tiny slopes as noise, in pct-error points per
// validated record.
const slopeStableBand = 0.05

// Validator resolves pending ledger entries against realized prices and
// derives performance summaries on demand.
type Validator struct {
	ledger  *Ledger
	source  *DataSource
	metrics repository.Metrics
	logger  *applogger.Logger

	graceDays int
}

func NewValidator(ledger *Ledger, source *DataSource, metrics repository.Metrics, logger *applogger.Logger, graceDays int) *Validator {
	return &Validator{
		ledger:    ledger,
		source:    source,
		metrics:   metrics,
		logger:    logger,
		graceDays: graceDays,
	}
}

// ValidatePending processes every pending record whose horizon has
// arrived. It resolves records whose realized close is known, expires
// records past the grace window, and leaves the rest pending. A positive
// daysBack bounds the sweep to horizons within that many days; zero
// sweeps everything. Returns (resolved, expired).
func (v *Validator) ValidatePending(ctx context.Context, now time.Time, daysBack int) (int, int, error) {
	today := util.Day(now)
	pending, err := v.ledger.ListPending(ctx, today)
	if err != nil {
		return 0, 0, err
	}

	resolved, expired := 0, 0
	for i := range pending {
		rec := pending[i]
		if daysBack > 0 && rec.HorizonDate.Before(today.AddDate(0, 0, -daysBack)) {
			continue
		}
		realized, err := v.realizedClose(ctx, rec.Ticker, rec.HorizonDate)
		switch {
		case err == nil:
			if rec.Resolve(realized, now.UTC()) {
				if uerr := v.ledger.Update(ctx, rec); uerr != nil {
					v.logger.Error("resolved record not persisted",
						applogger.String("id", rec.ID),
						applogger.Error(uerr))
					continue
				}
				v.metrics.RecordValidation("resolved")
				resolved++
			}
		case today.After(rec.HorizonDate.AddDate(0, 0, v.graceDays)):
			if rec.Expire(now.UTC()) {
				if uerr := v.ledger.Update(ctx, rec); uerr != nil {
					v.logger.Error("expired record not persisted",
						applogger.String("id", rec.ID),
						applogger.Error(uerr))
					continue
				}
				v.metrics.RecordValidation("expired")
				v.logger.Warn("prediction expired without ground truth",
					applogger.String("id", rec.ID),
					applogger.String("ticker", rec.Ticker))
				expired++
			}
		default:
			// Ground truth not knowable yet; try again next cycle.
			v.metrics.RecordValidation("pending")
		}
	}
	return resolved, expired, nil
}

// realizedClose finds the close at the horizon date, or at the first
// trading day within searchForwardDays after it. ErrValidationPending
// when no bar has appeared yet.
func (v *Validator) realizedClose(ctx context.Context, ticker string, horizon time.Time) (float64, error) {
	end := horizon.AddDate(0, 0, searchForwardDays)
	res, err := v.source.Fetch(ctx, ticker, horizon, end)
	if err != nil {
		return 0, err
	}
	for _, o := range res.Observations {
		if !o.Date.Before(horizon) {
			return o.Close, nil
		}
	}
	return 0, models.ErrValidationPending
}

// Summary derives trailing performance over windowDays of validated
// records. Nothing is maintained incrementally; every call recomputes
// from the ledger.
func (v *Validator) Summary(ctx context.Context, ticker string, windowDays int, now time.Time) (*models.PerformanceSummary, error) {
	since := util.Day(now).AddDate(0, 0, -windowDays)
	recs, err := v.ledger.ListValidated(ctx, since)
	if err != nil {
		return nil, err
	}

	sum := &models.PerformanceSummary{WindowDays: windowDays, Trend: "insufficient_data"}
	var absSum, pctSum, sqSum float64
	var pcts []float64
	for _, r := range recs {
		if ticker != "" && r.Ticker != ticker {
			continue
		}
		if r.AbsError == nil || r.PctError == nil {
			continue
		}
		sum.Validated++
		absSum += *r.AbsError
		pctSum += *r.PctError
		sqSum += *r.AbsError * *r.AbsError
		pcts = append(pcts, *r.PctError)
	}
	if sum.Validated == 0 {
		return sum, nil
	}

	n := float64(sum.Validated)
	sum.MAE = absSum / n
	sum.MAPE = pctSum / n
	sum.RMSE = math.Sqrt(sqSum / n)
	sum.MinPctError, sum.MaxPctError = minMax(pcts)
	sum.TrendSlope, sum.Trend = errorTrend(pcts)
	return sum, nil
}

// errorTrend fits a least squares line through the pct-error sequence.
// A rising slope means errors are growing.
func errorTrend(pcts []float64) (float64, string) {
	if len(pcts) < trendMinSamples {
		return 0, "insufficient_data"
	}

	n := float64(len(pcts))
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range pcts {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0, "stable"
	}
	slope := (n*sumXY - sumX*sumY) / denom

	switch {
	case slope > slopeStableBand:
		return slope, "degrading"
	case slope < -slopeStableBand:
		return slope, "improving"
	default:
		return slope, "stable"
	}
}

func minMax(vals []float64) (float64, float64) {
	lo, hi := vals[0], vals[0]
	for _, v := range vals[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}
