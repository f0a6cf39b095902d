// Package predictor fetches ambient light predictions from the external
// prediction service.
package predictor

import (
	"context"
	"errors"

	"github.com/OldStager01/streetlight-controller/pkg/models"
)

var (
	ErrPredictionFailed = errors.New("prediction request failed")
	ErrTimeout          = errors.New("prediction timeout")
)

type Predictor interface {
	Predict(ctx context.Context, lightID string) (*models.PredictionRecord, error)
	HealthCheck(ctx context.Context) error
	Close() error
}
