package models

import "time"

// Channel is a named sensor stream tracked by the health monitor
type Channel string

const (
	ChannelLight  Channel = "light"
	ChannelMotion Channel = "motion"
)

func (c Channel) IsValid() bool {
	return c == ChannelLight || c == ChannelMotion
}

type HealthStatus string

const (
	HealthLive         HealthStatus = "live"
	HealthDisconnected HealthStatus = "disconnected"
)

func (s HealthStatus) IsLive() bool {
	return s == HealthLive
}

// SensorSample is a single raw reading for one channel
type SensorSample struct {
	Channel Channel `json:"channel"`
	Value   float64 `json:"value"`
}

// SensorReading is one entry of a streetlight's sensor feed
type SensorReading struct {
	LightID      string    `json:"light_id"`
	EntryID      int       `json:"entry_id,omitempty"`
	AmbientLight float64   `json:"ambient_light_sensor"`
	Motion       float64   `json:"motion_sensor"`
	Timestamp    time.Time `json:"timestamp"`
}

func (r *SensorReading) Samples() []SensorSample {
	return []SensorSample{
		{Channel: ChannelLight, Value: r.AmbientLight},
		{Channel: ChannelMotion, Value: r.Motion},
	}
}

// SensorHealth holds the health of both channels of a streetlight
type SensorHealth struct {
	Light  HealthStatus `json:"light"`
	Motion HealthStatus `json:"motion"`
}

func (h SensorHealth) AllLive() bool {
	return h.Light.IsLive() && h.Motion.IsLive()
}

// SensorSnapshot is a reading enriched with derived display values
type SensorSnapshot struct {
	Reading      *SensorReading `json:"reading"`
	Health       SensorHealth   `json:"health"`
	IntensityPct int            `json:"intensity_percent"`
	LightBand    string         `json:"light_band"`
	MotionStatus string         `json:"motion_status"`
}
