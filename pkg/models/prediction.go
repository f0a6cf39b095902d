package models

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var ErrInvalidPrediction = errors.New("invalid prediction")

// PredictionRecord is the output of the external light predictor.
// RecommendedIntensity is on the predictor's inverted scale, not ambient light.
type PredictionRecord struct {
	RecommendedIntensity float64 `json:"recommended_intensity"`
	LightsShouldBeOn     bool    `json:"lights_should_be_on"`
	Confidence           float64 `json:"confidence"`
}

func NewPredictionRecord(recommendedIntensity float64, lightsShouldBeOn bool, confidence float64) *PredictionRecord {
	return &PredictionRecord{
		RecommendedIntensity: recommendedIntensity,
		LightsShouldBeOn:     lightsShouldBeOn,
		Confidence:           confidence,
	}
}

// Validate rejects non-finite values before they reach the decision engine.
func (p *PredictionRecord) Validate() error {
	if p == nil {
		return fmt.Errorf("%w: missing prediction", ErrInvalidPrediction)
	}
	if !isFinite(p.RecommendedIntensity) {
		return fmt.Errorf("%w: recommended_intensity is not a finite number", ErrInvalidPrediction)
	}
	if !isFinite(p.Confidence) {
		return fmt.Errorf("%w: confidence is not a finite number", ErrInvalidPrediction)
	}
	return nil
}

func (p *PredictionRecord) AmbientIntensity() float64 {
	return 100 - p.RecommendedIntensity
}

func (p *PredictionRecord) ConfidencePercent() float64 {
	return p.Confidence * 100
}

// PredictionResult wraps a prediction with the light it was requested for
type PredictionResult struct {
	LightID    string            `json:"light_id"`
	ReceivedAt time.Time         `json:"received_at"`
	Prediction *PredictionRecord `json:"prediction"`
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
