// Package health classifies sensor channels as live or disconnected from a
// rolling window of their recent readings.
package health

import (
	"sync"

	"github.com/OldStager01/streetlight-controller/pkg/models"
)

type Config struct {
	HistorySize  int
	StuckWindow  int
	FrozenWindow int
	MaxRawValue  float64
}

func DefaultConfig() Config {
	return Config{
		HistorySize:  10,
		StuckWindow:  3,
		FrozenWindow: 5,
		MaxRawValue:  1023,
	}
}

// Monitor keeps per-channel history for a single streetlight. Status is never
// cached; every query re-evaluates the history.
type Monitor struct {
	config   Config
	history  map[models.Channel]*ring
	baseline *float64
	mu       sync.RWMutex
}

func NewMonitor(cfg Config) *Monitor {
	defaults := DefaultConfig()
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = defaults.HistorySize
	}
	if cfg.StuckWindow <= 0 {
		cfg.StuckWindow = defaults.StuckWindow
	}
	if cfg.FrozenWindow <= 0 {
		cfg.FrozenWindow = defaults.FrozenWindow
	}
	if cfg.MaxRawValue == 0 {
		cfg.MaxRawValue = defaults.MaxRawValue
	}
	// The history must hold a full window or the stuck and frozen rules never fire.
	if cfg.HistorySize < cfg.StuckWindow {
		cfg.HistorySize = cfg.StuckWindow
	}
	if cfg.HistorySize < cfg.FrozenWindow {
		cfg.HistorySize = cfg.FrozenWindow
	}

	return &Monitor{
		config: cfg,
		history: map[models.Channel]*ring{
			models.ChannelLight:  newRing(cfg.HistorySize),
			models.ChannelMotion: newRing(cfg.HistorySize),
		},
	}
}

// RecordSample appends a reading to the channel's window. The light baseline
// is taken from the first light sample and is never replaced afterwards.
func (m *Monitor) RecordSample(channel models.Channel, value float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	h, ok := m.history[channel]
	if !ok {
		return
	}
	h.push(value)

	if channel == models.ChannelLight && m.baseline == nil {
		v := value
		m.baseline = &v
	}
}

func (m *Monitor) Record(sample models.SensorSample) {
	m.RecordSample(sample.Channel, sample.Value)
}

// IsLive evaluates current against the history recorded so far. The current
// value is not added to the history.
func (m *Monitor) IsLive(channel models.Channel, current float64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	h, ok := m.history[channel]
	if !ok || h.len() == 0 {
		return true
	}

	switch channel {
	case models.ChannelLight:
		return m.lightLive(h, current)
	case models.ChannelMotion:
		return current == 0 || current == 1
	default:
		return true
	}
}

func (m *Monitor) Status(channel models.Channel, current float64) models.HealthStatus {
	if m.IsLive(channel, current) {
		return models.HealthLive
	}
	return models.HealthDisconnected
}

// Evaluate returns the health of both channels for a reading.
func (m *Monitor) Evaluate(reading *models.SensorReading) models.SensorHealth {
	return models.SensorHealth{
		Light:  m.Status(models.ChannelLight, reading.AmbientLight),
		Motion: m.Status(models.ChannelMotion, reading.Motion),
	}
}

// Observe records a reading and then evaluates it, so the stuck and frozen
// windows include the reading itself.
func (m *Monitor) Observe(reading *models.SensorReading) models.SensorHealth {
	for _, s := range reading.Samples() {
		m.Record(s)
	}
	return m.Evaluate(reading)
}

func (m *Monitor) lightLive(h *ring, current float64) bool {
	if current == 0 && countMatching(h.last(m.config.StuckWindow), func(v float64) bool { return v == 0 }) >= m.config.StuckWindow {
		return false
	}

	if current >= m.config.MaxRawValue && countMatching(h.last(m.config.StuckWindow), func(v float64) bool { return v >= m.config.MaxRawValue }) >= m.config.StuckWindow {
		return false
	}

	if h.len() >= m.config.FrozenWindow {
		recent := h.last(m.config.FrozenWindow)
		if countMatching(recent, func(v float64) bool { return v == current }) == len(recent) &&
			(m.baseline == nil || current != *m.baseline) {
			return false
		}
	}

	return true
}

func (m *Monitor) Baseline() (float64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.baseline == nil {
		return 0, false
	}
	return *m.baseline, true
}

func (m *Monitor) History(channel models.Channel) []float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	h, ok := m.history[channel]
	if !ok {
		return nil
	}
	return h.values()
}

func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for ch := range m.history {
		m.history[ch] = newRing(m.config.HistorySize)
	}
	m.baseline = nil
}

func countMatching(values []float64, match func(float64) bool) int {
	n := 0
	for _, v := range values {
		if match(v) {
			n++
		}
	}
	return n
}
