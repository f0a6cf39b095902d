package predictor

import (
	"context"
	"errors"
	"time"

	"github.com/OldStager01/streetlight-controller/internal/logger"
	"github.com/OldStager01/streetlight-controller/internal/resilience"
	"github.com/OldStager01/streetlight-controller/pkg/models"
)

type ResilientPredictor struct {
	predictor Predictor
	policy    *resilience.Policy
}

type ResilientPredictorConfig struct {
	Predictor     Predictor
	MaxFailures   int
	Timeout       time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
	OnStateChange resilience.StateChangeFunc
}

func NewResilientPredictor(cfg ResilientPredictorConfig) *ResilientPredictor {
	return &ResilientPredictor{
		predictor: cfg.Predictor,
		policy: resilience.NewPolicy(resilience.PolicyConfig{
			Name:          "predictor",
			MaxFailures:   cfg.MaxFailures,
			OpenTimeout:   cfg.Timeout,
			RetryAttempts: cfg.RetryAttempts,
			RetryDelay:    cfg.RetryDelay,
			OnStateChange: cfg.OnStateChange,
		}),
	}
}

// Predict retries transport failures. A malformed prediction is returned at
// once; asking again will not make it valid.
func (p *ResilientPredictor) Predict(ctx context.Context, lightID string) (*models.PredictionRecord, error) {
	var record *models.PredictionRecord
	var invalid error

	err := p.policy.Do(ctx, func(ctx context.Context) error {
		var err error
		record, err = p.predictor.Predict(ctx, lightID)
		if errors.Is(err, models.ErrInvalidPrediction) {
			invalid = err
			return nil
		}
		return err
	}, func(attempt int, err error) {
		logger.WithLight(lightID).Warnf("Prediction attempt %d failed: %v", attempt, err)
	})
	if err != nil {
		return nil, err
	}
	if invalid != nil {
		return nil, invalid
	}
	return record, nil
}

func (p *ResilientPredictor) HealthCheck(ctx context.Context) error {
	return p.predictor.HealthCheck(ctx)
}

func (p *ResilientPredictor) Close() error {
	return p.predictor.Close()
}

func (p *ResilientPredictor) CircuitState() resilience.State {
	return p.policy.State()
}
