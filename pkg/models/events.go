package models

import "time"

type EventType string

const (
	EventTypeSensorReading      EventType = "sensor_reading"
	EventTypeSensorHealthChange EventType = "sensor_health_changed"
	EventTypePrediction         EventType = "prediction_received"
	EventTypeDecisionMade       EventType = "decision_made"
	EventTypeActuationStarted   EventType = "actuation_started"
	EventTypeActuationComplete  EventType = "actuation_complete"
	EventTypeActuationFailed    EventType = "actuation_failed"
	EventTypeOverrideSet        EventType = "override_set"
	EventTypeOverrideCleared    EventType = "override_cleared"
	EventTypeAlert              EventType = "alert"
	EventTypeError              EventType = "error"
)

type EventSeverity string

const (
	SeverityInfo     EventSeverity = "info"
	SeverityWarning  EventSeverity = "warning"
	SeverityCritical EventSeverity = "critical"
)

// Event represents an internal system event
type Event struct {
	ID        string        `json:"id"`
	Type      EventType     `json:"type"`
	Severity  EventSeverity `json:"severity"`
	LightID   string        `json:"light_id,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	Message   string        `json:"message"`
	Data      interface{}   `json:"data,omitempty"`
	TraceID   string        `json:"trace_id,omitempty"`
}

func NewEvent(eventType EventType, lightID, message string) *Event {
	return &Event{
		ID:        NewUUID(),
		Type:      eventType,
		Severity:  SeverityInfo,
		LightID:   lightID,
		Timestamp: time.Now(),
		Message:   message,
	}
}

func (e *Event) WithSeverity(severity EventSeverity) *Event {
	e.Severity = severity
	return e
}

func (e *Event) WithData(data interface{}) *Event {
	e.Data = data
	return e
}

func (e *Event) WithTraceID(traceID string) *Event {
	e.TraceID = traceID
	return e
}

// HealthChange is the payload of a sensor_health_changed event
type HealthChange struct {
	Channel  Channel      `json:"channel"`
	Previous HealthStatus `json:"previous"`
	Current  HealthStatus `json:"current"`
	Value    float64      `json:"value"`
}
