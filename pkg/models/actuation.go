package models

import "time"

type ActuationStatus string

const (
	ActuationSuccess ActuationStatus = "success"
	ActuationFailed  ActuationStatus = "failed"
	ActuationHeld    ActuationStatus = "held"
)

type ActuationSource string

const (
	SourceAutomatic ActuationSource = "automatic"
	SourceManual    ActuationSource = "manual"
)

// ActuationEvent represents a recorded lamp switch
type ActuationEvent struct {
	ID        int             `json:"id"`
	LightID   string          `json:"light_id"`
	Timestamp time.Time       `json:"timestamp"`
	LightsOn  bool            `json:"lights_on"`
	Source    ActuationSource `json:"source"`
	Reason    string          `json:"reason"`
	Priority  Priority        `json:"priority,omitempty"`
	EntryID   string          `json:"entry_id,omitempty"`
	Status    ActuationStatus `json:"status"`
	Error     string          `json:"error,omitempty"`
}

func NewActuationEvent(decision LightingDecision, status ActuationStatus) *ActuationEvent {
	return &ActuationEvent{
		LightID:   decision.LightID,
		Timestamp: time.Now(),
		LightsOn:  decision.FinalStatus,
		Source:    SourceAutomatic,
		Reason:    decision.Reason,
		Priority:  decision.Priority,
		Status:    status,
	}
}

func NewManualActuationEvent(lightID string, on bool, status ActuationStatus) *ActuationEvent {
	return &ActuationEvent{
		LightID:   lightID,
		Timestamp: time.Now(),
		LightsOn:  on,
		Source:    SourceManual,
		Reason:    "manual override",
		Status:    status,
	}
}
