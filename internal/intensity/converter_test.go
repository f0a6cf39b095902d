package intensity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPercent(t *testing.T) {
	tests := []struct {
		name      string
		raw       float64
		connected bool
		expected  int
	}{
		{name: "zero raw is fully bright", raw: 0, connected: true, expected: 100},
		{name: "max raw is dark", raw: 1024, connected: true, expected: 0},
		{name: "midpoint", raw: 512, connected: true, expected: 50},
		{name: "near dark rounds down", raw: 1019, connected: true, expected: 0},
		{name: "rounds to nearest", raw: 100, connected: true, expected: 90},
		{name: "negative raw clamps to bright", raw: -50, connected: true, expected: 100},
		{name: "raw above range clamps to dark", raw: 4095, connected: true, expected: 0},
		{name: "disconnected reads zero", raw: 0, connected: false, expected: 0},
		{name: "disconnected ignores raw", raw: 300, connected: false, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Percent(tt.raw, tt.connected))
		})
	}
}

func TestPercent_InvertedScale(t *testing.T) {
	brighter := Percent(200, true)
	darker := Percent(800, true)

	assert.Greater(t, brighter, darker, "lower raw readings must map to higher intensity")
}

func TestBand(t *testing.T) {
	tests := []struct {
		intensity int
		expected  string
	}{
		{100, BandVeryBright},
		{81, BandVeryBright},
		{80, BandBright},
		{61, BandBright},
		{60, BandMedium},
		{41, BandMedium},
		{40, BandDim},
		{21, BandDim},
		{20, BandVeryDim},
		{0, BandVeryDim},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, Band(tt.intensity), "intensity %d", tt.intensity)
	}
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, StatusDisconnected, Describe(90, false))
	assert.Equal(t, BandVeryBright, Describe(90, true))
}

func TestMotionStatus(t *testing.T) {
	assert.Equal(t, MotionDetected, MotionStatus(1, true))
	assert.Equal(t, NoMotion, MotionStatus(0, true))
	assert.Equal(t, StatusDisconnected, MotionStatus(1, false))
}
