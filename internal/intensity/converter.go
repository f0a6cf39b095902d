// Package intensity converts raw photoresistor readings into display values.
package intensity

import "math"

const (
	// MaxRaw is the nominal ceiling of the light sensor's analog range
	MaxRaw = 1024.0
	MinRaw = 0.0
)

const (
	BandVeryBright = "Very Bright"
	BandBright     = "Bright"
	BandMedium     = "Medium"
	BandDim        = "Dim"
	BandVeryDim    = "Very Dim"

	StatusDisconnected = "Sensor Disconnected"
	MotionDetected     = "Motion Detected"
	NoMotion           = "No Motion"
)

// Percent maps a raw reading to a 0-100 intensity. The scale is inverted:
// a photoresistor reads lower as the light gets brighter.
func Percent(raw float64, connected bool) int {
	if !connected {
		return 0
	}

	clamped := math.Max(MinRaw, math.Min(MaxRaw, raw))
	pct := (MaxRaw - clamped) / MaxRaw * 100
	return int(math.Round(pct))
}

func Band(intensity int) string {
	switch {
	case intensity > 80:
		return BandVeryBright
	case intensity > 60:
		return BandBright
	case intensity > 40:
		return BandMedium
	case intensity > 20:
		return BandDim
	default:
		return BandVeryDim
	}
}

func Describe(intensity int, connected bool) string {
	if !connected {
		return StatusDisconnected
	}
	return Band(intensity)
}

func MotionStatus(value float64, connected bool) string {
	if !connected {
		return StatusDisconnected
	}
	if value == 1 {
		return MotionDetected
	}
	return NoMotion
}
