package events

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"github.com/OldStager01/streetlight-controller/internal/logger"
	"github.com/OldStager01/streetlight-controller/pkg/models"
)

// Store persists the records carried by pipeline events.
type Store interface {
	SaveReading(ctx context.Context, snapshot *models.SensorSnapshot) error
	SaveDecision(ctx context.Context, decision *models.LightingDecision) error
	SaveActuation(ctx context.Context, event *models.ActuationEvent) error
}

type EventLogger struct {
	store     Store
	eventChan <-chan *models.Event
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	started   atomic.Bool
}

// NewEventLogger logs every event from eventChan. A nil store disables persistence.
func NewEventLogger(store Store, eventChan <-chan *models.Event) *EventLogger {
	ctx, cancel := context.WithCancel(context.Background())
	return &EventLogger{
		store:     store,
		eventChan: eventChan,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
}

func (l *EventLogger) Start() {
	if l.started.CompareAndSwap(false, true) {
		go l.run()
	}
}

func (l *EventLogger) Stop() {
	l.cancel()
	if l.started.Load() {
		<-l.done
	}
}

func (l *EventLogger) run() {
	defer close(l.done)
	for {
		select {
		case <-l.ctx.Done():
			return
		case event, ok := <-l.eventChan:
			if !ok {
				return
			}
			l.processEvent(event)
		}
	}
}

func (l *EventLogger) processEvent(event *models.Event) {
	entry := logger.WithFields(map[string]interface{}{
		"event_type": event.Type,
		"light_id":   event.LightID,
		"severity":   event.Severity,
		"trace_id":   event.TraceID,
	})

	switch event.Severity {
	case models.SeverityCritical:
		entry.Error(event.Message)
	case models.SeverityWarning:
		entry.Warn(event.Message)
	default:
		// Readings arrive every cycle
		if event.Type == models.EventTypeSensorReading {
			entry.Debug(event.Message)
		} else {
			entry.Info(event.Message)
		}
	}

	if l.store != nil {
		l.persist(event)
	}
}

func (l *EventLogger) persist(event *models.Event) {
	var err error

	switch event.Type {
	case models.EventTypeSensorReading:
		if snapshot, ok := event.Data.(*models.SensorSnapshot); ok {
			err = l.store.SaveReading(l.ctx, snapshot)
		}
	case models.EventTypeDecisionMade:
		if decision, ok := event.Data.(*models.LightingDecision); ok {
			err = l.store.SaveDecision(l.ctx, decision)
		}
	case models.EventTypeActuationComplete, models.EventTypeActuationFailed:
		if actuation, ok := event.Data.(*models.ActuationEvent); ok {
			err = l.store.SaveActuation(l.ctx, actuation)
		}
	}

	if err != nil {
		logger.Errorf("Failed to persist %s event: %v", event.Type, err)
	}
}

func (l *EventLogger) LogToJSON(event *models.Event) string {
	data, _ := json.Marshal(event)
	return string(data)
}
