package health

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/streetlight-controller/pkg/models"
)

func feed(m *Monitor, channel models.Channel, values ...float64) {
	for _, v := range values {
		m.RecordSample(channel, v)
	}
}

func TestMonitor_EmptyHistoryIsLive(t *testing.T) {
	m := NewMonitor(DefaultConfig())

	assert.True(t, m.IsLive(models.ChannelLight, 0))
	assert.True(t, m.IsLive(models.ChannelLight, 1024))
	assert.True(t, m.IsLive(models.ChannelMotion, 7))
}

func TestMonitor_LightHeuristics(t *testing.T) {
	tests := []struct {
		name     string
		history  []float64
		current  float64
		expected models.HealthStatus
	}{
		{name: "three zeros then zero", history: []float64{0, 0, 0}, current: 0, expected: models.HealthDisconnected},
		{name: "two zeros then zero", history: []float64{0, 0}, current: 0, expected: models.HealthLive},
		{name: "zeros broken by a reading", history: []float64{0, 0, 400, 0}, current: 0, expected: models.HealthLive},
		{name: "three zeros then non-zero", history: []float64{0, 0, 0}, current: 12, expected: models.HealthLive},
		{name: "stuck at max", history: []float64{1023, 1024, 1023}, current: 1024, expected: models.HealthDisconnected},
		{name: "two max readings", history: []float64{500, 1023, 1023}, current: 1023, expected: models.HealthLive},
		{name: "max readings then drop", history: []float64{1023, 1023, 1023}, current: 800, expected: models.HealthLive},
		{name: "frozen away from baseline", history: []float64{500, 300, 300, 300, 300, 300}, current: 300, expected: models.HealthDisconnected},
		{name: "stable at baseline", history: []float64{500, 500, 500, 500, 500}, current: 500, expected: models.HealthLive},
		{name: "four repeats is not frozen", history: []float64{500, 300, 300, 300}, current: 300, expected: models.HealthLive},
		{name: "varying readings", history: []float64{410, 415, 420, 418, 430}, current: 425, expected: models.HealthLive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMonitor(DefaultConfig())
			feed(m, models.ChannelLight, tt.history...)

			assert.Equal(t, tt.expected, m.Status(models.ChannelLight, tt.current))
		})
	}
}

func TestMonitor_MotionDomain(t *testing.T) {
	m := NewMonitor(DefaultConfig())
	feed(m, models.ChannelMotion, 0, 1)
	feed(m, models.ChannelMotion, 1, 1, 1, 1, 1)

	assert.True(t, m.IsLive(models.ChannelMotion, 1))
	assert.True(t, m.IsLive(models.ChannelMotion, 0))
	assert.False(t, m.IsLive(models.ChannelMotion, 2))
	assert.False(t, m.IsLive(models.ChannelMotion, 0.5))
	assert.False(t, m.IsLive(models.ChannelMotion, -1))
}

func TestMonitor_UnknownChannelIsLive(t *testing.T) {
	m := NewMonitor(DefaultConfig())
	m.RecordSample(models.Channel("humidity"), 3)

	assert.True(t, m.IsLive(models.Channel("humidity"), 3))
	assert.Nil(t, m.History(models.Channel("humidity")))
}

func TestMonitor_BaselineCapturedOnce(t *testing.T) {
	m := NewMonitor(DefaultConfig())

	_, ok := m.Baseline()
	assert.False(t, ok)

	feed(m, models.ChannelLight, 0, 250, 600)

	baseline, ok := m.Baseline()
	require.True(t, ok)
	assert.Equal(t, 0.0, baseline)
}

func TestMonitor_MotionDoesNotSetBaseline(t *testing.T) {
	m := NewMonitor(DefaultConfig())
	m.RecordSample(models.ChannelMotion, 1)

	_, ok := m.Baseline()
	assert.False(t, ok)
}

func TestMonitor_HistoryIsBounded(t *testing.T) {
	m := NewMonitor(Config{HistorySize: 5})
	feed(m, models.ChannelLight, 1, 2, 3, 4, 5, 6, 7)

	assert.Equal(t, []float64{3, 4, 5, 6, 7}, m.History(models.ChannelLight))
}

func TestMonitor_StatusIsRecomputed(t *testing.T) {
	m := NewMonitor(DefaultConfig())
	feed(m, models.ChannelLight, 0, 0, 0)
	require.False(t, m.IsLive(models.ChannelLight, 0))

	m.RecordSample(models.ChannelLight, 350)

	assert.True(t, m.IsLive(models.ChannelLight, 0))
}

func TestMonitor_ObserveIncludesCurrentReading(t *testing.T) {
	m := NewMonitor(DefaultConfig())
	reading := &models.SensorReading{AmbientLight: 0, Motion: 0}

	for i := 0; i < 2; i++ {
		h := m.Observe(reading)
		assert.Equal(t, models.HealthLive, h.Light, "observation %d", i)
	}

	h := m.Observe(reading)
	assert.Equal(t, models.HealthDisconnected, h.Light)
	assert.Equal(t, models.HealthLive, h.Motion)
	assert.Len(t, m.History(models.ChannelLight), 3)
}

func TestMonitor_ObserveFrozenOnFifthRepeat(t *testing.T) {
	m := NewMonitor(DefaultConfig())

	require.Equal(t, models.HealthLive, m.Observe(&models.SensorReading{AmbientLight: 500}).Light)

	reading := &models.SensorReading{AmbientLight: 300}
	for i := 0; i < 4; i++ {
		h := m.Observe(reading)
		assert.Equal(t, models.HealthLive, h.Light, "repeat %d", i+1)
	}

	assert.Equal(t, models.HealthDisconnected, m.Observe(reading).Light)
}

func TestMonitor_ObserveStuckAtMax(t *testing.T) {
	m := NewMonitor(DefaultConfig())
	reading := &models.SensorReading{AmbientLight: 1024}

	m.Observe(reading)
	m.Observe(reading)

	assert.Equal(t, models.HealthDisconnected, m.Observe(reading).Light)
}

func TestMonitor_Reset(t *testing.T) {
	m := NewMonitor(DefaultConfig())
	feed(m, models.ChannelLight, 0, 0, 0)
	m.Reset()

	assert.Empty(t, m.History(models.ChannelLight))
	assert.True(t, m.IsLive(models.ChannelLight, 0))
	_, ok := m.Baseline()
	assert.False(t, ok)
}

func TestNewMonitor_AppliesDefaults(t *testing.T) {
	m := NewMonitor(Config{})

	assert.Equal(t, DefaultConfig(), m.config)
}

func TestNewMonitor_HistoryCoversWindows(t *testing.T) {
	m := NewMonitor(Config{HistorySize: 2, StuckWindow: 3, FrozenWindow: 5})
	assert.Equal(t, 5, m.config.HistorySize)

	feed(m, models.ChannelLight, 0, 0, 0)
	assert.False(t, m.IsLive(models.ChannelLight, 0))

	m = NewMonitor(Config{HistorySize: 1, StuckWindow: 4, FrozenWindow: 2})
	assert.Equal(t, 4, m.config.HistorySize)
}
