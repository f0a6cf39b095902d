package collector

import (
	"context"
	"sync"
	"time"

	"github.com/OldStager01/streetlight-controller/pkg/models"
)

// MockCollector replays scripted readings per light. Once a script runs out
// the last reading is repeated.
type MockCollector struct {
	scripts      map[string][]models.SensorReading
	positions    map[string]int
	entryIDs     map[string]int
	shouldFail   bool
	failureError error
	mu           sync.Mutex
}

func NewMockCollector() *MockCollector {
	return &MockCollector{
		scripts:   make(map[string][]models.SensorReading),
		positions: make(map[string]int),
		entryIDs:  make(map[string]int),
	}
}

func (c *MockCollector) SetReadings(lightID string, readings ...models.SensorReading) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.scripts[lightID] = readings
	c.positions[lightID] = 0
}

// SetValues scripts readings from raw (light, motion) pairs.
func (c *MockCollector) SetValues(lightID string, pairs ...[2]float64) {
	readings := make([]models.SensorReading, len(pairs))
	for i, p := range pairs {
		readings[i] = models.SensorReading{AmbientLight: p[0], Motion: p[1]}
	}
	c.SetReadings(lightID, readings...)
}

func (c *MockCollector) SetShouldFail(shouldFail bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.shouldFail = shouldFail
	c.failureError = err
}

func (c *MockCollector) Collect(ctx context.Context, lightID string) (*models.SensorReading, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.shouldFail {
		if c.failureError != nil {
			return nil, c.failureError
		}
		return nil, ErrCollectionFailed
	}

	script, exists := c.scripts[lightID]
	if !exists {
		return nil, ErrChannelNotFound
	}
	if len(script) == 0 {
		return nil, ErrNoData
	}

	pos := c.positions[lightID]
	if pos >= len(script) {
		pos = len(script) - 1
	} else {
		c.positions[lightID] = pos + 1
	}

	c.entryIDs[lightID]++
	reading := script[pos]
	reading.LightID = lightID
	if reading.EntryID == 0 {
		reading.EntryID = c.entryIDs[lightID]
	}
	if reading.Timestamp.IsZero() {
		reading.Timestamp = time.Now()
	}
	return &reading, nil
}

func (c *MockCollector) HealthCheck(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.shouldFail {
		return ErrCollectionFailed
	}
	return nil
}

func (c *MockCollector) Close() error {
	return nil
}
