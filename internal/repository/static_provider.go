package repository

import (
	"context"
	_ "embed"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"PredWatch/internal/domain/models"
	"PredWatch/internal/domain/repository"
)

//go:embed staticdata/snapshot.csv
var staticSnapshotCSV string

// StaticProvider is the last resort of the acquisition chain: a small
// OHLCV snapshot bundled with the binary. It keeps the pipeline alive
// during a total provider outage at the cost of stale data.
type StaticProvider struct {
	byTicker map[string][]models.Observation
}

func NewStaticProvider() (*StaticProvider, error) {
	return newStaticProviderFrom(staticSnapshotCSV)
}

func newStaticProviderFrom(data string) (*StaticProvider, error) {
	r := csv.NewReader(strings.NewReader(data))
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse snapshot csv: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("snapshot csv is empty")
	}

	p := &StaticProvider{byTicker: make(map[string][]models.Observation)}
	for i, rec := range records[1:] { // skip header
		if len(rec) != 7 {
			return nil, fmt.Errorf("snapshot csv row %d: want 7 fields, got %d", i+2, len(rec))
		}
		o := models.Observation{Ticker: rec[0]}
		if o.Date, err = time.Parse(dateLayout, rec[1]); err != nil {
			return nil, fmt.Errorf("snapshot csv row %d: %w", i+2, err)
		}
		floats := []*float64{&o.Open, &o.High, &o.Low, &o.Close}
		for j, dst := range floats {
			if *dst, err = strconv.ParseFloat(rec[2+j], 64); err != nil {
				return nil, fmt.Errorf("snapshot csv row %d: %w", i+2, err)
			}
		}
		if o.Volume, err = strconv.ParseInt(rec[6], 10, 64); err != nil {
			return nil, fmt.Errorf("snapshot csv row %d: %w", i+2, err)
		}
		p.byTicker[o.Ticker] = append(p.byTicker[o.Ticker], o)
	}
	return p, nil
}

func (p *StaticProvider) Name() string {
	return models.SourceSnapshot
}

func (p *StaticProvider) Fetch(_ context.Context, ticker string, start, end time.Time) ([]models.Observation, error) {
	var out []models.Observation
	for _, o := range p.byTicker[ticker] {
		if o.Date.Before(start) || o.Date.After(end) {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

var _ repository.DataProvider = (*StaticProvider)(nil)
