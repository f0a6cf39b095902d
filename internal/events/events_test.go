package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/streetlight-controller/pkg/models"
)

type recordingStore struct {
	mu         sync.Mutex
	readings   []*models.SensorSnapshot
	decisions  []*models.LightingDecision
	actuations []*models.ActuationEvent
	err        error
}

func (s *recordingStore) SaveReading(_ context.Context, snapshot *models.SensorSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readings = append(s.readings, snapshot)
	return s.err
}

func (s *recordingStore) SaveDecision(_ context.Context, decision *models.LightingDecision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decisions = append(s.decisions, decision)
	return s.err
}

func (s *recordingStore) SaveActuation(_ context.Context, event *models.ActuationEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actuations = append(s.actuations, event)
	return s.err
}

func (s *recordingStore) counts() (int, int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.readings), len(s.decisions), len(s.actuations)
}

func receive(t *testing.T, ch <-chan *models.Event) *models.Event {
	t.Helper()
	select {
	case event := <-ch:
		return event
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestEventBus_SubscribeByType(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()

	decisions := bus.Subscribe(models.EventTypeDecisionMade)
	bus.Publish(models.NewEvent(models.EventTypeAlert, "light-1", "ignored"))
	bus.Publish(models.NewEvent(models.EventTypeDecisionMade, "light-1", "decided"))

	event := receive(t, decisions)
	assert.Equal(t, models.EventTypeDecisionMade, event.Type)
	assert.Empty(t, decisions)
}

func TestEventBus_SubscribeAllReceivesEveryType(t *testing.T) {
	bus := NewEventBus(len(allEventTypes()))
	defer bus.Close()

	all := bus.SubscribeAll()
	for _, eventType := range allEventTypes() {
		bus.Publish(models.NewEvent(eventType, "light-1", string(eventType)))
	}

	for _, eventType := range allEventTypes() {
		assert.Equal(t, eventType, receive(t, all).Type)
	}
}

func TestEventBus_DropsWhenFull(t *testing.T) {
	bus := NewEventBus(1)
	defer bus.Close()

	ch := bus.Subscribe(models.EventTypeAlert)
	bus.Publish(models.NewEvent(models.EventTypeAlert, "", "first"))
	bus.Publish(models.NewEvent(models.EventTypeAlert, "", "second"))

	assert.Equal(t, "first", receive(t, ch).Message)
	assert.Empty(t, ch)
}

func TestEventBus_Unsubscribe(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()

	all := bus.SubscribeAll()
	bus.Unsubscribe(all)

	_, ok := <-all
	assert.False(t, ok)

	// publishing after unsubscribe must not panic on the closed channel
	bus.Publish(models.NewEvent(models.EventTypeAlert, "", "after"))
}

func TestEventBus_CloseClosesChannels(t *testing.T) {
	bus := NewEventBus(10)
	typed := bus.Subscribe(models.EventTypeError)
	all := bus.SubscribeAll()

	bus.Close()
	bus.Close()

	_, ok := <-typed
	assert.False(t, ok)
	_, ok = <-all
	assert.False(t, ok)

	bus.Publish(models.NewEvent(models.EventTypeError, "", "after close"))
}

func TestPublisher_Events(t *testing.T) {
	bus := NewEventBus(20)
	defer bus.Close()
	all := bus.SubscribeAll()
	pub := NewPublisher(bus).WithTraceID("trace-1")

	snapshot := &models.SensorSnapshot{
		Reading: &models.SensorReading{LightID: "light-1"},
		Health:  models.SensorHealth{Light: models.HealthDisconnected, Motion: models.HealthLive},
	}
	pub.SensorReading("light-1", snapshot)
	event := receive(t, all)
	assert.Equal(t, models.EventTypeSensorReading, event.Type)
	assert.Equal(t, models.SeverityWarning, event.Severity)
	assert.Equal(t, "trace-1", event.TraceID)
	assert.Same(t, snapshot, event.Data)

	pub.SensorHealthChanged("light-1", models.HealthChange{
		Channel: models.ChannelLight, Previous: models.HealthLive, Current: models.HealthDisconnected,
	})
	event = receive(t, all)
	assert.Equal(t, "light sensor disconnected", event.Message)
	assert.Equal(t, models.SeverityWarning, event.Severity)

	pub.DecisionMade("light-1", &models.LightingDecision{Action: models.ActionTurnOn})
	event = receive(t, all)
	assert.Equal(t, "Lighting decision: TURN_ON", event.Message)
	assert.Equal(t, models.SeverityInfo, event.Severity)

	actuation := models.NewManualActuationEvent("light-1", true, models.ActuationSuccess)
	pub.ActuationFailed("light-1", actuation, errors.New("boom"))
	event = receive(t, all)
	assert.Equal(t, models.EventTypeActuationFailed, event.Type)
	assert.Equal(t, models.SeverityCritical, event.Severity)
	assert.Equal(t, models.ActuationFailed, actuation.Status)
	assert.Equal(t, "boom", actuation.Error)

	pub.OverrideSet("light-1", false)
	event = receive(t, all)
	assert.Equal(t, "Manual override: lights OFF", event.Message)

	pub.OverrideCleared("light-1")
	assert.Equal(t, models.EventTypeOverrideCleared, receive(t, all).Type)
}

func TestEventLogger_PersistsPipelineRecords(t *testing.T) {
	bus := NewEventBus(20)
	store := &recordingStore{}
	eventLogger := NewEventLogger(store, bus.SubscribeAll())
	eventLogger.Start()

	pub := NewPublisher(bus)
	pub.SensorReading("light-1", &models.SensorSnapshot{
		Reading: &models.SensorReading{LightID: "light-1"},
		Health:  models.SensorHealth{Light: models.HealthLive, Motion: models.HealthLive},
	})
	pub.DecisionMade("light-1", &models.LightingDecision{LightID: "light-1", Action: models.ActionWait})
	pub.ActuationComplete("light-1", models.NewManualActuationEvent("light-1", true, models.ActuationSuccess))
	pub.OverrideCleared("light-1")

	require.Eventually(t, func() bool {
		r, d, a := store.counts()
		return r == 1 && d == 1 && a == 1
	}, time.Second, 10*time.Millisecond)

	eventLogger.Stop()
	bus.Close()
}

func TestEventLogger_NilStore(t *testing.T) {
	bus := NewEventBus(5)
	eventLogger := NewEventLogger(nil, bus.SubscribeAll())
	eventLogger.Start()

	NewPublisher(bus).DecisionMade("light-1", &models.LightingDecision{Action: models.ActionWait})

	bus.Close()
	eventLogger.Stop()
}

func TestEventLogger_LogToJSON(t *testing.T) {
	eventLogger := NewEventLogger(nil, nil)
	event := models.NewEvent(models.EventTypeAlert, "light-1", "hello")

	assert.Contains(t, eventLogger.LogToJSON(event), `"message":"hello"`)
}
