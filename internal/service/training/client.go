package training

import (
	"context"
	"fmt"
	"time"

	"PredWatch/internal/domain/models"
	"PredWatch/internal/domain/repository"
	"PredWatch/pkg/config"
	xhttp "PredWatch/pkg/http"
)

// Client talks to the external training job. Training is slow; the HTTP
// client timeout comes from config and should be generous.
type Client struct {
	baseURL string
	client  *xhttp.Client
}

func New(cfg *config.Config) *Client {
	return &Client{
		baseURL: cfg.Collaborators.TrainingURL,
		client:  xhttp.NewClient(xhttp.WithTimeout(cfg.Collaborators.Timeout)),
	}
}

type trainRequest struct {
	Ticker string `json:"ticker"`
	Start  string `json:"start"`
	End    string `json:"end"`
}

type trainResponse struct {
	VersionID string  `json:"version_id"`
	RMSE      float64 `json:"rmse"`
	MAE       float64 `json:"mae"`
	MAPE      float64 `json:"mape"`
	R2        float64 `json:"r2"`
}

// Train runs a training job over [start, end] and returns the candidate
// snapshot with its held-out test metrics.
func (c *Client) Train(ctx context.Context, ticker string, start, end time.Time) (*models.ModelSnapshot, error) {
	var tr trainResponse
	err := c.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    c.baseURL + "/train",
		Body: trainRequest{
			Ticker: ticker,
			Start:  start.Format("2006-01-02"),
			End:    end.Format("2006-01-02"),
		},
	}, &tr)
	if err != nil {
		return nil, fmt.Errorf("train request: %w", err)
	}
	if tr.VersionID == "" {
		return nil, fmt.Errorf("train response missing version_id")
	}

	return &models.ModelSnapshot{
		VersionID: tr.VersionID,
		Ticker:    ticker,
		Metrics: models.ModelMetrics{
			RMSE: tr.RMSE,
			MAE:  tr.MAE,
			MAPE: tr.MAPE,
			R2:   tr.R2,
		},
		CreatedAt: time.Now().UTC(),
		Status:    models.SnapshotCandidate,
	}, nil
}

var _ repository.Trainer = (*Client)(nil)
