package queries

import (
	"context"
	"database/sql"

	"github.com/OldStager01/streetlight-controller/pkg/models"
)

// EventStore persists the pipeline records carried by events.
type EventStore struct {
	readings  *ReadingRepository
	decisions *DecisionRepository
}

func NewEventStore(db *sql.DB) *EventStore {
	return &EventStore{
		readings:  NewReadingRepository(db),
		decisions: NewDecisionRepository(db),
	}
}

func (s *EventStore) SaveReading(ctx context.Context, snapshot *models.SensorSnapshot) error {
	return s.readings.Insert(ctx, snapshot)
}

func (s *EventStore) SaveDecision(ctx context.Context, decision *models.LightingDecision) error {
	return s.decisions.Insert(ctx, decision)
}

func (s *EventStore) SaveActuation(ctx context.Context, event *models.ActuationEvent) error {
	return s.decisions.InsertActuation(ctx, event)
}
