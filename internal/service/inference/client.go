package inference

import (
	"context"
	"fmt"

	"PredWatch/internal/domain/models"
	"PredWatch/internal/domain/repository"
	"PredWatch/pkg/config"
	xhttp "PredWatch/pkg/http"
)

// Client talks to the external inference service.
type Client struct {
	baseURL string
	client  *xhttp.Client
}

func New(cfg *config.Config) *Client {
	return &Client{
		baseURL: cfg.Collaborators.InferenceURL,
		client:  xhttp.NewClient(xhttp.WithTimeout(cfg.Collaborators.Timeout)),
	}
}

type predictRequest struct {
	Ticker string    `json:"ticker"`
	Closes []float64 `json:"closes"`
}

type predictResponse struct {
	PredictedClose float64 `json:"predicted_close"`
}

// Predict returns the next-day close forecast given the trailing window.
func (c *Client) Predict(ctx context.Context, ticker string, window []models.Observation) (float64, error) {
	closes := make([]float64, len(window))
	for i, o := range window {
		closes[i] = o.Close
	}

	var pr predictResponse
	err := c.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    c.baseURL + "/predict",
		Body:   predictRequest{Ticker: ticker, Closes: closes},
	}, &pr)
	if err != nil {
		return 0, fmt.Errorf("predict request: %w", err)
	}
	return pr.PredictedClose, nil
}

var _ repository.Inferencer = (*Client)(nil)
