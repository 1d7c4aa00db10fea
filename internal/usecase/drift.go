package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"PredWatch/internal/domain/models"
	"PredWatch/internal/domain/repository"
	"PredWatch/pkg/cache"
	applogger "PredWatch/pkg/logger"
	"PredWatch/pkg/stats"
	"PredWatch/pkg/util"
)

// driftCacheTTL keeps the latest reports queryable without a store read.
const driftCacheTTL = 24 * time.Hour

// DriftDetector compares the live feature distributions of a recent
// window against the distribution the active model was trained on. The
// reference sample loads once per ticker and is reused; the training
// period is fixed, so it never changes until a retrain swaps snapshots.
type DriftDetector struct {
	source *DataSource
	store  repository.ObservationStore
	drifts repository.DriftStore
	test   stats.TwoSampleTest
	cache  cache.Service // optional
	metrcs repository.Metrics
	logger *applogger.Logger

	windowDays   int
	significance float64
	refStart     time.Time
	refEnd       time.Time

	mu       sync.Mutex
	refs     map[string][]models.Observation
	lastGood map[string][]models.DriftReport
}

func NewDriftDetector(
	source *DataSource,
	store repository.ObservationStore,
	drifts repository.DriftStore,
	test stats.TwoSampleTest,
	cacheSvc cache.Service,
	metrics repository.Metrics,
	logger *applogger.Logger,
	windowDays int,
	significance float64,
	refStart, refEnd time.Time,
) *DriftDetector {
	return &DriftDetector{
		source:       source,
		store:        store,
		drifts:       drifts,
		test:         test,
		cache:        cacheSvc,
		metrcs:       metrics,
		logger:       logger,
		windowDays:   windowDays,
		significance: significance,
		refStart:     refStart,
		refEnd:       refEnd,
		refs:         make(map[string][]models.Observation),
		lastGood:     make(map[string][]models.DriftReport),
	}
}

// InvalidateReference drops the cached reference sample, forcing a
// reload on the next evaluation. Called after a snapshot swap.
func (d *DriftDetector) InvalidateReference(ticker string) {
	d.mu.Lock()
	delete(d.refs, ticker)
	d.mu.Unlock()
}

// SetReferencePeriod repoints the reference window, as after a retrain
// that trained on newer data.
func (d *DriftDetector) SetReferencePeriod(start, end time.Time) {
	d.mu.Lock()
	d.refStart, d.refEnd = start, end
	d.refs = make(map[string][]models.Observation)
	d.mu.Unlock()
}

// Evaluate runs the distribution test per feature for one ticker. When
// the current window cannot be fetched it returns the last successful
// reports flagged Stale together with ErrDriftStale.
func (d *DriftDetector) Evaluate(ctx context.Context, ticker string, now time.Time) ([]models.DriftReport, error) {
	ref, err := d.reference(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("load reference window: %w", err)
	}

	end := util.Day(now)
	start := end.AddDate(0, 0, -d.windowDays)
	res, err := d.source.Fetch(ctx, ticker, start, end)
	if err != nil {
		return d.staleFallback(ticker, now)
	}

	reports := make([]models.DriftReport, 0, len(models.DriftFeatures))
	for _, feature := range models.DriftFeatures {
		refVals := featureSeries(ref, feature)
		curVals := featureSeries(res.Observations, feature)

		stat, p, err := d.test.Test(refVals, curVals)
		if err != nil {
			d.logger.Warn("drift test failed",
				applogger.String("ticker", ticker),
				applogger.String("feature", feature),
				applogger.Error(err))
			continue
		}

		drifted := p < d.significance
		d.metrcs.RecordDrift(feature, drifted)
		reports = append(reports, models.DriftReport{
			Ticker:      ticker,
			WindowStart: start,
			WindowEnd:   end,
			Feature:     feature,
			Statistic:   stat,
			PValue:      p,
			Drifted:     drifted,
			EvaluatedAt: now.UTC(),
		})
	}

	if len(reports) == 0 {
		return d.staleFallback(ticker, now)
	}

	if err := d.drifts.Append(ctx, reports); err != nil {
		d.logger.Error("drift report persist failed", applogger.Error(err))
	}
	d.cacheReports(ctx, ticker, reports)

	d.mu.Lock()
	d.lastGood[ticker] = reports
	d.mu.Unlock()
	return reports, nil
}

// Latest returns the cached reports for a ticker, trying Redis first and
// the in-process copy second.
func (d *DriftDetector) Latest(ctx context.Context, ticker string) ([]models.DriftReport, bool) {
	if d.cache != nil {
		var reports []models.DriftReport
		if err := d.cache.Get(ctx, driftCacheKey(ticker), &reports); err == nil && len(reports) > 0 {
			return reports, true
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	reports, ok := d.lastGood[ticker]
	return reports, ok
}

func (d *DriftDetector) staleFallback(ticker string, now time.Time) ([]models.DriftReport, error) {
	d.mu.Lock()
	last, ok := d.lastGood[ticker]
	d.mu.Unlock()
	if !ok {
		return nil, models.ErrDriftStale
	}

	stale := make([]models.DriftReport, len(last))
	for i, r := range last {
		r.Stale = true
		r.EvaluatedAt = now.UTC()
		stale[i] = r
	}
	d.logger.Warn("drift window unavailable, reusing last reports",
		applogger.String("ticker", ticker))
	return stale, models.ErrDriftStale
}

// reference returns the training-period sample, loading it from the
// observation store on first use.
func (d *DriftDetector) reference(ctx context.Context, ticker string) ([]models.Observation, error) {
	d.mu.Lock()
	ref, ok := d.refs[ticker]
	d.mu.Unlock()
	if ok {
		return ref, nil
	}

	ref, err := d.store.Read(ctx, ticker, d.refStart, d.refEnd)
	if err != nil {
		return nil, err
	}
	if len(ref) == 0 {
		return nil, fmt.Errorf("no reference observations for %s in [%s, %s]",
			ticker, d.refStart.Format("2006-01-02"), d.refEnd.Format("2006-01-02"))
	}

	d.mu.Lock()
	d.refs[ticker] = ref
	d.mu.Unlock()
	return ref, nil
}

func (d *DriftDetector) cacheReports(ctx context.Context, ticker string, reports []models.DriftReport) {
	if d.cache == nil {
		return
	}
	if err := d.cache.Set(ctx, driftCacheKey(ticker), reports, driftCacheTTL); err != nil {
		d.logger.Warn("drift cache write failed", applogger.Error(err))
	}
}

func driftCacheKey(ticker string) string {
	return "drift:latest:" + ticker
}

func featureSeries(obs []models.Observation, feature string) []float64 {
	out := make([]float64, len(obs))
	for i, o := range obs {
		out[i] = o.FeatureValue(feature)
	}
	return out
}
