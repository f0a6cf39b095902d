// Package actuator switches streetlight lamps on and off.
package actuator

import (
	"context"
	"errors"
	"time"

	"github.com/OldStager01/streetlight-controller/pkg/models"
)

var (
	ErrActuationFailed = errors.New("actuation failed")
	ErrWriteRejected   = errors.New("lamp controller rejected the write")
	ErrTimeout         = errors.New("actuation timeout")
	ErrUnknownLight    = errors.New("unknown streetlight")
)

// ActuationResult describes a completed lamp command
type ActuationResult struct {
	LightID   string
	LightsOn  bool
	Changed   bool
	EntryID   string
	Timestamp time.Time
}

// Actuator defines the interface for commanding lamps
type Actuator interface {
	// SetLight commands the lamp of a streetlight on or off
	SetLight(ctx context.Context, lightID string, on bool) (*ActuationResult, error)

	// State returns the last commanded state of a lamp
	State(ctx context.Context, lightID string) (*models.LampState, error)

	// Close releases resources
	Close() error
}

func lightsOnValue(on bool) int {
	if on {
		return 1
	}
	return 0
}
