package actuator

import (
	"context"
	"sync"
	"time"

	"github.com/OldStager01/streetlight-controller/internal/logger"
	"github.com/OldStager01/streetlight-controller/pkg/models"
)

// SimulatorActuator keeps lamp state in memory. It stands in for real lamp
// controllers in local runs and tests.
type SimulatorActuator struct {
	tracker *StateTracker
	latency time.Duration
	failErr error
	calls   int
	mu      sync.Mutex
}

type SimulatorConfig struct {
	// Latency delays each command to mimic the device round trip
	Latency   time.Duration
	Callbacks StateCallbacks
}

func NewSimulatorActuator(cfg SimulatorConfig) *SimulatorActuator {
	return &SimulatorActuator{
		tracker: NewStateTracker(cfg.Callbacks),
		latency: cfg.Latency,
	}
}

func (s *SimulatorActuator) SetLight(ctx context.Context, lightID string, on bool) (*ActuationResult, error) {
	s.mu.Lock()
	s.calls++
	failErr := s.failErr
	s.mu.Unlock()

	if s.latency > 0 {
		select {
		case <-ctx.Done():
			return nil, ErrTimeout
		case <-time.After(s.latency):
		}
	}

	if failErr != nil {
		logger.WithLight(lightID).Warnf("Simulated actuation failure: %v", failErr)
		return nil, failErr
	}

	_, changed := s.tracker.Apply(lightID, on)
	return &ActuationResult{
		LightID:   lightID,
		LightsOn:  on,
		Changed:   changed,
		Timestamp: time.Now(),
	}, nil
}

// SetFailure makes every following command fail with err. Pass nil to clear.
func (s *SimulatorActuator) SetFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failErr = err
}

func (s *SimulatorActuator) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *SimulatorActuator) State(ctx context.Context, lightID string) (*models.LampState, error) {
	return s.tracker.lookup(lightID)
}

func (s *SimulatorActuator) Tracker() *StateTracker {
	return s.tracker
}

func (s *SimulatorActuator) Close() error {
	return nil
}
