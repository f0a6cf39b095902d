package websocket

import (
	"encoding/json"
	"time"

	"github.com/OldStager01/streetlight-controller/pkg/models"
)

type MessageType string

const (
	MessageTypeSensor       MessageType = "sensor"
	MessageTypeSensorHealth MessageType = "sensor_health"
	MessageTypePrediction   MessageType = "prediction"
	MessageTypeDecision     MessageType = "decision"
	MessageTypeActuation    MessageType = "actuation"
	MessageTypeOverride     MessageType = "override"
	MessageTypeAlert        MessageType = "alert"
	MessageTypeError        MessageType = "error"
	MessageTypeSubscription MessageType = "subscription_update"
)

type OutgoingMessage struct {
	Type      MessageType `json:"type"`
	Event     string      `json:"event,omitempty"`
	LightID   string      `json:"light_id"`
	Timestamp time.Time   `json:"timestamp"`
	Severity  string      `json:"severity,omitempty"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

func NewMessage(msgType MessageType, lightID string, data interface{}) *OutgoingMessage {
	return &OutgoingMessage{
		Type:      msgType,
		LightID:   lightID,
		Timestamp: time.Now(),
		Data:      data,
	}
}

// MessageFromEvent converts a bus event. It returns nil for events that
// are not forwarded to dashboards.
func MessageFromEvent(event *models.Event) *OutgoingMessage {
	msgType := mapEventType(event.Type)
	if msgType == "" {
		return nil
	}

	return &OutgoingMessage{
		Type:      msgType,
		Event:     string(event.Type),
		LightID:   event.LightID,
		Timestamp: event.Timestamp,
		Severity:  string(event.Severity),
		Message:   event.Message,
		Data:      event.Data,
	}
}

func (m *OutgoingMessage) JSON() []byte {
	data, _ := json.Marshal(m)
	return data
}

func mapEventType(eventType models.EventType) MessageType {
	switch eventType {
	case models.EventTypeSensorReading:
		return MessageTypeSensor
	case models.EventTypeSensorHealthChange:
		return MessageTypeSensorHealth
	case models.EventTypePrediction:
		return MessageTypePrediction
	case models.EventTypeDecisionMade:
		return MessageTypeDecision
	case models.EventTypeActuationStarted, models.EventTypeActuationComplete, models.EventTypeActuationFailed:
		return MessageTypeActuation
	case models.EventTypeOverrideSet, models.EventTypeOverrideCleared:
		return MessageTypeOverride
	case models.EventTypeAlert:
		return MessageTypeAlert
	case models.EventTypeError:
		return MessageTypeError
	default:
		return ""
	}
}
