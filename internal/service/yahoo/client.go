package yahoo

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"PredWatch/internal/domain/models"
	"PredWatch/internal/domain/repository"
	"PredWatch/pkg/config"
	xhttp "PredWatch/pkg/http"
)

// Client fetches daily bars from the Yahoo Finance v8 chart API. It is
// the primary provider of the acquisition chain.
type Client struct {
	baseURL string
	client  *xhttp.Client
}

func New(cfg *config.Config) *Client {
	return &Client{
		baseURL: cfg.Providers.YahooBaseURL,
		client:  xhttp.NewClient(xhttp.WithTimeout(cfg.Providers.ProviderTimeout)),
	}
}

func (c *Client) Name() string {
	return models.SourceYahoo
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (c *Client) Fetch(ctx context.Context, ticker string, start, end time.Time) ([]models.Observation, error) {
	var cr chartResponse
	err := c.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    fmt.Sprintf("%s/v8/finance/chart/%s", c.baseURL, ticker),
		Headers: map[string]string{
			// Yahoo rejects default Go user agents.
			"User-Agent": "Mozilla/5.0 (X11; Linux x86_64)",
		},
		QueryParams: map[string][]string{
			"period1":  {strconv.FormatInt(start.Unix(), 10)},
			"period2":  {strconv.FormatInt(end.AddDate(0, 0, 1).Unix(), 10)},
			"interval": {"1d"},
			"events":   {"history"},
		},
	}, &cr)
	if err != nil {
		return nil, fmt.Errorf("yahoo chart request: %w", err)
	}

	if cr.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo chart error: %s: %s", cr.Chart.Error.Code, cr.Chart.Error.Description)
	}
	if len(cr.Chart.Result) == 0 || len(cr.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo chart: empty result for %s", ticker)
	}

	res := cr.Chart.Result[0]
	quote := res.Indicators.Quote[0]

	obs := make([]models.Observation, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		// Nil slots are half-days or suspended sessions; skip them.
		if i >= len(quote.Close) || quote.Close[i] == nil ||
			quote.Open[i] == nil || quote.High[i] == nil || quote.Low[i] == nil {
			continue
		}
		var vol int64
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			vol = *quote.Volume[i]
		}
		obs = append(obs, models.Observation{
			Ticker: ticker,
			Date:   time.Unix(ts, 0).UTC().Truncate(24 * time.Hour),
			Open:   *quote.Open[i],
			High:   *quote.High[i],
			Low:    *quote.Low[i],
			Close:  *quote.Close[i],
			Volume: vol,
		})
	}
	return obs, nil
}

var _ repository.DataProvider = (*Client)(nil)
