package pricing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"faredown/models"

	"go.uber.org/zap"
)

// HTTPClient talks to a remote pricing authority. When a Fallback is set,
// remote failures degrade to the local engine instead of failing the
// session.
type HTTPClient struct {
	BaseURL  string
	Client   *http.Client
	Fallback Service
	Logger   *zap.Logger
}

func NewHTTPClient(baseURL string, timeout time.Duration, fallback Service, logger *zap.Logger) *HTTPClient {
	return &HTTPClient{
		BaseURL:  baseURL,
		Client:   &http.Client{Timeout: timeout},
		Fallback: fallback,
		Logger:   logger,
	}
}

func (c *HTTPClient) CalculateInitialPricing(ctx context.Context, req *models.BargainPricingRequest) (*models.BargainPricingResult, error) {
	var result models.BargainPricingResult
	if err := c.post(ctx, "/calculate-initial", req, &result); err != nil {
		if c.Fallback != nil {
			c.Logger.Warn("remote pricing failed, using local engine", zap.Error(err))
			return c.Fallback.CalculateInitialPricing(ctx, req)
		}
		return nil, err
	}
	return &result, nil
}

func (c *HTTPClient) ProcessCounterOffer(ctx context.Context, req *models.CounterOfferRequest) (*models.CounterOfferResponse, error) {
	var result models.CounterOfferResponse
	if err := c.post(ctx, "/counter-offer", req, &result); err != nil {
		if c.Fallback != nil {
			c.Logger.Warn("remote counter-offer failed, using local engine", zap.Error(err))
			return c.Fallback.ProcessCounterOffer(ctx, req)
		}
		return nil, err
	}
	return &result, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode pricing request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build pricing request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("pricing service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("pricing service returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode pricing response: %w", err)
	}
	return nil
}
