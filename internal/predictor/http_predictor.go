package predictor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/OldStager01/streetlight-controller/internal/logger"
	"github.com/OldStager01/streetlight-controller/pkg/models"
)

type HTTPPredictor struct {
	client   *http.Client
	endpoint string
}

type HTTPPredictorConfig struct {
	Endpoint string
	Timeout  time.Duration
}

func NewHTTPPredictor(cfg HTTPPredictorConfig) *HTTPPredictor {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &HTTPPredictor{
		client:   &http.Client{Timeout: timeout},
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
	}
}

func (p *HTTPPredictor) Predict(ctx context.Context, lightID string) (*models.PredictionRecord, error) {
	u := fmt.Sprintf("%s/predict/?light_id=%s", p.endpoint, url.QueryEscape(lightID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrPredictionFailed, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		var netErr interface{ Timeout() bool }
		if errors.Is(ctx.Err(), context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrPredictionFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %v", ErrPredictionFailed, err)
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("%w: unexpected status code %d", ErrPredictionFailed, resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidPrediction, err)
	}

	if msg, ok := raw["error"]; ok {
		return nil, fmt.Errorf("%w: %s", ErrPredictionFailed, cast.ToString(msg))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status code %d", ErrPredictionFailed, resp.StatusCode)
	}

	record, err := DecodeRecord(raw)
	if err != nil {
		return nil, err
	}

	logger.WithLight(lightID).Debugf("Prediction: recommended=%.1f on=%v confidence=%.2f",
		record.RecommendedIntensity, record.LightsShouldBeOn, record.Confidence)

	return record, nil
}

// DecodeRecord builds a validated prediction from loosely typed JSON. Numbers
// may arrive as strings and booleans as 0/1.
func DecodeRecord(raw map[string]interface{}) (*models.PredictionRecord, error) {
	intensity, err := requiredFloat(raw, "recommended_intensity")
	if err != nil {
		return nil, err
	}
	confidence, err := requiredFloat(raw, "confidence")
	if err != nil {
		return nil, err
	}

	v, ok := raw["lights_should_be_on"]
	if !ok || v == nil {
		return nil, fmt.Errorf("%w: lights_should_be_on is missing", models.ErrInvalidPrediction)
	}
	on, err := toBool(v)
	if err != nil {
		return nil, fmt.Errorf("%w: lights_should_be_on: %v", models.ErrInvalidPrediction, err)
	}

	record := models.NewPredictionRecord(intensity, on, confidence)
	if err := record.Validate(); err != nil {
		return nil, err
	}
	return record, nil
}

func toBool(v interface{}) (bool, error) {
	if n, ok := v.(float64); ok {
		return n != 0, nil
	}
	return cast.ToBoolE(v)
}

func requiredFloat(raw map[string]interface{}, key string) (float64, error) {
	v, ok := raw[key]
	if !ok || v == nil {
		return 0, fmt.Errorf("%w: %s is missing", models.ErrInvalidPrediction, key)
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", models.ErrInvalidPrediction, key, err)
	}
	return f, nil
}

func (p *HTTPPredictor) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}

func (p *HTTPPredictor) Close() error {
	p.client.CloseIdleConnections()
	return nil
}
