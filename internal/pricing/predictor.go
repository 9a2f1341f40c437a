// Package pricing talks to the external price estimation service.
package pricing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"

	"asset-rental-backend/internal/domain"
	"asset-rental-backend/internal/logger"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var ErrNoEstimate = errors.New("predictor returned no estimate")

type predictRequest struct {
	domain.AssetFeatures
}

type predictResponse struct {
	MonthlyPrice float64 `json:"monthly_price"`
	Model        string  `json:"model,omitempty"`
}

// HTTPPredictor posts asset features as JSON and reads back a monthly price.
type HTTPPredictor struct {
	url    string
	client *http.Client
}

func NewHTTPPredictor(url string, timeout time.Duration) *HTTPPredictor {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPPredictor{url: url, client: &http.Client{Timeout: timeout}}
}

func (p *HTTPPredictor) Estimate(ctx context.Context, features domain.AssetFeatures) (int64, error) {
	body, err := json.Marshal(predictRequest{features})
	if err != nil {
		return 0, fmt.Errorf("encode features: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("call predictor: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("predictor returned %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var out predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("decode estimate: %w", err)
	}
	if out.MonthlyPrice <= 0 || math.IsNaN(out.MonthlyPrice) || math.IsInf(out.MonthlyPrice, 0) {
		return 0, ErrNoEstimate
	}

	logger.Debug("Price estimate received", "model", out.Model, "monthlyPrice", out.MonthlyPrice)
	return int64(math.Round(out.MonthlyPrice)), nil
}
