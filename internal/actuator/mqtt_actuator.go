package actuator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/OldStager01/streetlight-controller/internal/logger"
	"github.com/OldStager01/streetlight-controller/internal/mqtt"
	"github.com/OldStager01/streetlight-controller/pkg/models"
)

// MQTTActuator publishes retained control messages so a controller that
// reconnects picks up the latest command.
type MQTTActuator struct {
	messenger mqtt.Messenger
	topic     string
	qos       byte
	tracker   *StateTracker
}

type MQTTActuatorConfig struct {
	Topic     string
	QoS       byte
	Callbacks StateCallbacks
}

type controlMessage struct {
	LightsOn  int    `json:"lights_on"`
	Timestamp string `json:"timestamp"`
}

func NewMQTTActuator(messenger mqtt.Messenger, cfg MQTTActuatorConfig) *MQTTActuator {
	if cfg.Topic == "" {
		cfg.Topic = mqtt.DefaultControlTopic
	}
	if cfg.QoS == 0 {
		cfg.QoS = 1
	}

	return &MQTTActuator{
		messenger: messenger,
		topic:     cfg.Topic,
		qos:       cfg.QoS,
		tracker:   NewStateTracker(cfg.Callbacks),
	}
}

func (a *MQTTActuator) SetLight(ctx context.Context, lightID string, on bool) (*ActuationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(controlMessage{
		LightsOn:  lightsOnValue(on),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrActuationFailed, err)
	}

	topic := mqtt.FormatTopic(a.topic, lightID)
	if err := a.messenger.Publish(topic, a.qos, true, payload); err != nil {
		if errors.Is(err, mqtt.ErrTimeout) {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrActuationFailed, err)
	}

	_, changed := a.tracker.Apply(lightID, on)
	logger.WithLight(lightID).Debugf("Published lamp command to %s", topic)

	return &ActuationResult{
		LightID:   lightID,
		LightsOn:  on,
		Changed:   changed,
		Timestamp: time.Now(),
	}, nil
}

func (a *MQTTActuator) State(ctx context.Context, lightID string) (*models.LampState, error) {
	return a.tracker.lookup(lightID)
}

func (a *MQTTActuator) Tracker() *StateTracker {
	return a.tracker
}

func (a *MQTTActuator) Close() error {
	return nil
}
