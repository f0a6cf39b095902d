package collector

import (
	"context"
	"errors"
	"time"

	"github.com/OldStager01/streetlight-controller/internal/logger"
	"github.com/OldStager01/streetlight-controller/internal/resilience"
	"github.com/OldStager01/streetlight-controller/pkg/models"
)

type ResilientCollector struct {
	collector Collector
	policy    *resilience.Policy
}

type ResilientCollectorConfig struct {
	Collector     Collector
	MaxFailures   int
	Timeout       time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
	OnStateChange resilience.StateChangeFunc
}

func NewResilientCollector(cfg ResilientCollectorConfig) *ResilientCollector {
	return &ResilientCollector{
		collector: cfg.Collector,
		policy: resilience.NewPolicy(resilience.PolicyConfig{
			Name:          "collector",
			MaxFailures:   cfg.MaxFailures,
			OpenTimeout:   cfg.Timeout,
			RetryAttempts: cfg.RetryAttempts,
			RetryDelay:    cfg.RetryDelay,
			OnStateChange: cfg.OnStateChange,
		}),
	}
}

func (c *ResilientCollector) Collect(ctx context.Context, lightID string) (*models.SensorReading, error) {
	var reading *models.SensorReading
	var missing error

	err := c.policy.Do(ctx, func(ctx context.Context) error {
		var err error
		reading, err = c.collector.Collect(ctx, lightID)
		// An unknown channel will not fix itself on retry.
		if errors.Is(err, ErrChannelNotFound) {
			missing = err
			return nil
		}
		return err
	}, func(attempt int, err error) {
		logger.WithLight(lightID).Warnf("Collection attempt %d failed: %v", attempt, err)
	})
	if err != nil {
		return nil, err
	}
	if missing != nil {
		return nil, missing
	}

	return reading, nil
}

func (c *ResilientCollector) CollectLogs(ctx context.Context, lightID string, results int) ([]models.SensorReading, error) {
	reader, ok := c.collector.(LogReader)
	if !ok {
		return nil, ErrNoData
	}
	return reader.CollectLogs(ctx, lightID, results)
}

func (c *ResilientCollector) RegisterChannel(lightID, channelID string) {
	if r, ok := c.collector.(ChannelRegistrar); ok {
		r.RegisterChannel(lightID, channelID)
	}
}

func (c *ResilientCollector) HealthCheck(ctx context.Context) error {
	return c.collector.HealthCheck(ctx)
}

func (c *ResilientCollector) Close() error {
	return c.collector.Close()
}

func (c *ResilientCollector) CircuitState() resilience.State {
	return c.policy.State()
}

func (c *ResilientCollector) ResetCircuit() {
	c.policy.Reset()
}
