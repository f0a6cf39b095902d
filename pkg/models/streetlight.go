package models

import (
	"encoding/json"
	"time"
)

type StreetlightStatus string

const (
	StreetlightStatusActive StreetlightStatus = "active"
	StreetlightStatusPaused StreetlightStatus = "paused"
	StreetlightStatusError  StreetlightStatus = "error"
)

type ControlMode string

const (
	ModeAuto   ControlMode = "auto"
	ModeManual ControlMode = "manual"
)

type StreetlightConfig struct {
	ChannelID         string `json:"channel_id,omitempty"`
	FeedEndpoint      string `json:"feed_endpoint,omitempty"`
	HoldOnSensorFault *bool  `json:"hold_on_sensor_fault,omitempty"`
}

type Streetlight struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Location  string             `json:"location"`
	Status    StreetlightStatus  `json:"status"`
	Config    *StreetlightConfig `json:"config,omitempty"`
	UserID    *int               `json:"user_id,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

func NewStreetlight(name, location string) *Streetlight {
	now := time.Now()
	return &Streetlight{
		ID:        NewUUID(),
		Name:      name,
		Location:  location,
		Status:    StreetlightStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *Streetlight) IsActive() bool {
	return s.Status == StreetlightStatusActive
}

func (s *Streetlight) ConfigJSON() ([]byte, error) {
	if s.Config == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(s.Config)
}

func (s *Streetlight) ParseConfig(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	s.Config = &StreetlightConfig{}
	return json.Unmarshal(data, s.Config)
}

// LampState is the runtime state of a streetlight lamp
type LampState struct {
	LightID     string      `json:"light_id"`
	On          bool        `json:"on"`
	Mode        ControlMode `json:"mode"`
	LastChanged *time.Time  `json:"last_changed,omitempty"`
	Switches    int         `json:"switches"`
}
