// Package collector fetches sensor readings for streetlights.
package collector

import (
	"context"
	"errors"

	"github.com/OldStager01/streetlight-controller/pkg/models"
)

var (
	ErrCollectionFailed = errors.New("sensor collection failed")
	ErrTimeout          = errors.New("collection timeout")
	ErrChannelNotFound  = errors.New("sensor channel not found")
	ErrNoData           = errors.New("no sensor data available")
	ErrInvalidResponse  = errors.New("invalid response from sensor feed")
)

// Collector defines the interface for sensor collection
type Collector interface {
	// Collect fetches the latest reading for a streetlight
	Collect(ctx context.Context, lightID string) (*models.SensorReading, error)

	// HealthCheck verifies the collector can reach its data source
	HealthCheck(ctx context.Context) error

	// Close releases any resources held by the collector
	Close() error
}

// ChannelRegistrar is implemented by collectors that map streetlights onto
// upstream feed channels.
type ChannelRegistrar interface {
	RegisterChannel(lightID, channelID string)
}

// LogReader is implemented by collectors that can return recent history.
type LogReader interface {
	CollectLogs(ctx context.Context, lightID string, results int) ([]models.SensorReading, error)
}
