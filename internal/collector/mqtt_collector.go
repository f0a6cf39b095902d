package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cast"

	"github.com/OldStager01/streetlight-controller/internal/logger"
	"github.com/OldStager01/streetlight-controller/internal/mqtt"
	"github.com/OldStager01/streetlight-controller/pkg/models"
)

// MQTTCollector keeps the latest reading each streetlight pushes to its sensor
// topic. Collect never blocks on the broker.
type MQTTCollector struct {
	messenger mqtt.Messenger
	topic     string
	maxAge    time.Duration
	latest    map[string]*models.SensorReading
	mu        sync.RWMutex
}

type MQTTCollectorConfig struct {
	Topic string
	QoS   byte
	// MaxAge discards cached readings older than this. Zero keeps them forever.
	MaxAge time.Duration
}

func NewMQTTCollector(messenger mqtt.Messenger, cfg MQTTCollectorConfig) (*MQTTCollector, error) {
	if cfg.Topic == "" {
		cfg.Topic = mqtt.DefaultSensorTopic
	}

	c := &MQTTCollector{
		messenger: messenger,
		topic:     mqtt.SubscriptionTopic(cfg.Topic),
		maxAge:    cfg.MaxAge,
		latest:    make(map[string]*models.SensorReading),
	}

	if err := messenger.Subscribe(c.topic, cfg.QoS, c.handleMessage); err != nil {
		return nil, fmt.Errorf("%w: subscribe %s: %v", ErrCollectionFailed, c.topic, err)
	}

	logger.WithField("topic", c.topic).Info("Subscribed to sensor topic")
	return c, nil
}

func (c *MQTTCollector) handleMessage(topic string, payload []byte) {
	lightID, ok := mqtt.LightIDFromTopic(c.topic, topic)
	if !ok {
		return
	}

	reading, err := decodeSensorPayload(lightID, payload)
	if err != nil {
		logger.WithLight(lightID).Warnf("Dropping sensor message: %v", err)
		return
	}

	c.mu.Lock()
	c.latest[lightID] = reading
	c.mu.Unlock()
}

func decodeSensorPayload(lightID string, payload []byte) (*models.SensorReading, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	light, err := fieldValue(raw["ambient_light_sensor"])
	if err != nil {
		return nil, fmt.Errorf("%w: ambient_light_sensor: %v", ErrInvalidResponse, err)
	}
	motion, err := fieldValue(raw["motion_sensor"])
	if err != nil {
		return nil, fmt.Errorf("%w: motion_sensor: %v", ErrInvalidResponse, err)
	}

	timestamp := time.Now()
	if ts, ok := raw["timestamp"]; ok {
		if parsed, err := cast.ToTimeE(ts); err == nil {
			timestamp = parsed
		}
	}

	return &models.SensorReading{
		LightID:      lightID,
		EntryID:      cast.ToInt(raw["entry_id"]),
		AmbientLight: light,
		Motion:       motion,
		Timestamp:    timestamp,
	}, nil
}

func (c *MQTTCollector) Collect(ctx context.Context, lightID string) (*models.SensorReading, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	reading, ok := c.latest[lightID]
	c.mu.RUnlock()

	if !ok {
		return nil, ErrNoData
	}
	if c.maxAge > 0 && time.Since(reading.Timestamp) > c.maxAge {
		return nil, fmt.Errorf("%w: last reading is %s old", ErrNoData, time.Since(reading.Timestamp).Round(time.Second))
	}

	copied := *reading
	return &copied, nil
}

func (c *MQTTCollector) HealthCheck(ctx context.Context) error {
	if !c.messenger.IsConnected() {
		return fmt.Errorf("%w: %v", ErrCollectionFailed, mqtt.ErrNotConnected)
	}
	return nil
}

func (c *MQTTCollector) Close() error {
	return c.messenger.Unsubscribe(c.topic)
}
