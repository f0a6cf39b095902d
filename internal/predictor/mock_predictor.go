package predictor

import (
	"context"
	"sync"

	"github.com/OldStager01/streetlight-controller/pkg/models"
)

type MockPredictor struct {
	records  map[string]*models.PredictionRecord
	fallback *models.PredictionRecord
	err      error
	calls    int
	mu       sync.Mutex
}

func NewMockPredictor(fallback *models.PredictionRecord) *MockPredictor {
	return &MockPredictor{
		records:  make(map[string]*models.PredictionRecord),
		fallback: fallback,
	}
}

func (p *MockPredictor) SetPrediction(lightID string, record *models.PredictionRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records[lightID] = record
}

func (p *MockPredictor) SetError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

func (p *MockPredictor) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func (p *MockPredictor) Predict(ctx context.Context, lightID string) (*models.PredictionRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls++
	if p.err != nil {
		return nil, p.err
	}

	record, ok := p.records[lightID]
	if !ok {
		record = p.fallback
	}
	if record == nil {
		return nil, ErrPredictionFailed
	}

	copied := *record
	return &copied, nil
}

func (p *MockPredictor) HealthCheck(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *MockPredictor) Close() error {
	return nil
}
