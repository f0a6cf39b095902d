package actuator

import (
	"context"
	"time"

	"github.com/OldStager01/streetlight-controller/internal/logger"
	"github.com/OldStager01/streetlight-controller/internal/resilience"
	"github.com/OldStager01/streetlight-controller/pkg/models"
)

type ResilientActuator struct {
	actuator Actuator
	policy   *resilience.Policy
}

type ResilientActuatorConfig struct {
	Actuator      Actuator
	MaxFailures   int
	Timeout       time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
	OnStateChange resilience.StateChangeFunc
}

func NewResilientActuator(cfg ResilientActuatorConfig) *ResilientActuator {
	return &ResilientActuator{
		actuator: cfg.Actuator,
		policy: resilience.NewPolicy(resilience.PolicyConfig{
			Name:          "actuator",
			MaxFailures:   cfg.MaxFailures,
			OpenTimeout:   cfg.Timeout,
			RetryAttempts: cfg.RetryAttempts,
			RetryDelay:    cfg.RetryDelay,
			OnStateChange: cfg.OnStateChange,
		}),
	}
}

func (a *ResilientActuator) SetLight(ctx context.Context, lightID string, on bool) (*ActuationResult, error) {
	var result *ActuationResult

	err := a.policy.Do(ctx, func(ctx context.Context) error {
		var err error
		result, err = a.actuator.SetLight(ctx, lightID, on)
		return err
	}, func(attempt int, err error) {
		logger.WithLight(lightID).Warnf("Actuation attempt %d failed: %v", attempt, err)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (a *ResilientActuator) State(ctx context.Context, lightID string) (*models.LampState, error) {
	return a.actuator.State(ctx, lightID)
}

func (a *ResilientActuator) Close() error {
	return a.actuator.Close()
}

func (a *ResilientActuator) CircuitState() resilience.State {
	return a.policy.State()
}
