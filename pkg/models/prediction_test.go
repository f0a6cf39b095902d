package models

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPredictionRecord_Scales(t *testing.T) {
	tests := []struct {
		name       string
		record     *PredictionRecord
		ambient    float64
		confidence float64
	}{
		{name: "dark prediction", record: NewPredictionRecord(90, true, 0.9), ambient: 10, confidence: 90},
		{name: "bright prediction", record: NewPredictionRecord(20, false, 0.25), ambient: 80, confidence: 25},
		{name: "certain midpoint", record: NewPredictionRecord(50, true, 1), ambient: 50, confidence: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.ambient, tt.record.AmbientIntensity(), 1e-9)
			// Confidence arrives as a 0..1 fraction and is compared as a percent.
			assert.InDelta(t, tt.confidence, tt.record.ConfidencePercent(), 1e-9)
		})
	}
}

func TestPredictionRecord_Validate(t *testing.T) {
	var missing *PredictionRecord
	assert.ErrorIs(t, missing.Validate(), ErrInvalidPrediction)

	assert.NoError(t, NewPredictionRecord(40, true, 0.8).Validate())
	assert.ErrorIs(t, NewPredictionRecord(math.NaN(), true, 0.8).Validate(), ErrInvalidPrediction)
	assert.ErrorIs(t, NewPredictionRecord(40, true, math.Inf(1)).Validate(), ErrInvalidPrediction)
}
