package stooq

import (
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"PredWatch/internal/domain/models"
	"PredWatch/internal/domain/repository"
	"PredWatch/pkg/config"
	xhttp "PredWatch/pkg/http"
)

// Client fetches daily bars from the Stooq CSV endpoint. Second provider
// in the acquisition chain, behind Yahoo.
type Client struct {
	baseURL string
	client  *xhttp.Client
}

func New(cfg *config.Config) *Client {
	return &Client{
		baseURL: cfg.Providers.StooqBaseURL,
		client:  xhttp.NewClient(xhttp.WithTimeout(cfg.Providers.ProviderTimeout)),
	}
}

func (c *Client) Name() string {
	return models.SourceStooq
}

func (c *Client) Fetch(ctx context.Context, ticker string, start, end time.Time) ([]models.Observation, error) {
	var body []byte
	err := c.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.baseURL + "/q/d/l/",
		QueryParams: map[string][]string{
			// Stooq symbols for US listings carry a .us suffix.
			"s":  {strings.ToLower(ticker) + ".us"},
			"d1": {start.Format("20060102")},
			"d2": {end.Format("20060102")},
			"i":  {"d"},
		},
	}, &body)
	if err != nil {
		return nil, fmt.Errorf("stooq request: %w", err)
	}

	return parseCSV(ticker, string(body))
}

// parseCSV decodes the Date,Open,High,Low,Close,Volume daily export.
func parseCSV(ticker, body string) ([]models.Observation, error) {
	if strings.HasPrefix(strings.TrimSpace(body), "No data") {
		return nil, fmt.Errorf("stooq: no data for %s", ticker)
	}

	r := csv.NewReader(strings.NewReader(body))
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("stooq csv: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("stooq csv: empty response for %s", ticker)
	}

	obs := make([]models.Observation, 0, len(records)-1)
	for _, rec := range records[1:] {
		if len(rec) < 6 {
			continue
		}
		date, err := time.Parse("2006-01-02", rec[0])
		if err != nil {
			continue
		}
		o := models.Observation{Ticker: ticker, Date: date}
		fields := []*float64{&o.Open, &o.High, &o.Low, &o.Close}
		ok := true
		for i, dst := range fields {
			if *dst, err = strconv.ParseFloat(rec[1+i], 64); err != nil {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		// Volume column can be empty for some listings.
		if v, err := strconv.ParseFloat(rec[5], 64); err == nil {
			o.Volume = int64(v)
		}
		obs = append(obs, o)
	}
	return obs, nil
}

var _ repository.DataProvider = (*Client)(nil)
