package events

import (
	"fmt"

	"github.com/OldStager01/streetlight-controller/pkg/models"
)

type Publisher struct {
	bus     *EventBus
	traceID string
}

func NewPublisher(bus *EventBus) *Publisher {
	return &Publisher{bus: bus}
}

func (p *Publisher) WithTraceID(traceID string) *Publisher {
	return &Publisher{
		bus:     p.bus,
		traceID: traceID,
	}
}

func (p *Publisher) publish(event *models.Event) {
	if p.traceID != "" {
		event.TraceID = p.traceID
	}
	p.bus.Publish(event)
}

func (p *Publisher) SensorReading(lightID string, snapshot *models.SensorSnapshot) {
	event := models.NewEvent(models.EventTypeSensorReading, lightID, "Sensor reading collected").
		WithData(snapshot)

	if !snapshot.Health.AllLive() {
		event.WithSeverity(models.SeverityWarning)
	}

	p.publish(event)
}

func (p *Publisher) SensorHealthChanged(lightID string, change models.HealthChange) {
	msg := fmt.Sprintf("%s sensor %s", change.Channel, change.Current)
	event := models.NewEvent(models.EventTypeSensorHealthChange, lightID, msg).
		WithData(change)

	if !change.Current.IsLive() {
		event.WithSeverity(models.SeverityWarning)
	}

	p.publish(event)
}

func (p *Publisher) Prediction(lightID string, result *models.PredictionResult) {
	event := models.NewEvent(models.EventTypePrediction, lightID, "Prediction received").
		WithData(result)
	p.publish(event)
}

func (p *Publisher) DecisionMade(lightID string, decision *models.LightingDecision) {
	msg := "Lighting decision: " + string(decision.Action)
	event := models.NewEvent(models.EventTypeDecisionMade, lightID, msg).
		WithData(decision)
	p.publish(event)
}

func (p *Publisher) ActuationStarted(lightID string, decision *models.LightingDecision) {
	msg := "Actuation started: " + string(decision.Action)
	event := models.NewEvent(models.EventTypeActuationStarted, lightID, msg).
		WithData(decision)
	p.publish(event)
}

func (p *Publisher) ActuationComplete(lightID string, actuation *models.ActuationEvent) {
	msg := "Actuation complete: lights " + onOff(actuation.LightsOn)
	event := models.NewEvent(models.EventTypeActuationComplete, lightID, msg).
		WithData(actuation)
	p.publish(event)
}

func (p *Publisher) ActuationFailed(lightID string, actuation *models.ActuationEvent, err error) {
	msg := "Actuation failed: lights " + onOff(actuation.LightsOn)
	actuation.Status = models.ActuationFailed
	actuation.Error = err.Error()
	event := models.NewEvent(models.EventTypeActuationFailed, lightID, msg).
		WithSeverity(models.SeverityCritical).
		WithData(actuation)
	p.publish(event)
}

func (p *Publisher) OverrideSet(lightID string, on bool) {
	event := models.NewEvent(models.EventTypeOverrideSet, lightID, "Manual override: lights "+onOff(on)).
		WithData(map[string]interface{}{
			"lights_on": on,
		})
	p.publish(event)
}

func (p *Publisher) OverrideCleared(lightID string) {
	event := models.NewEvent(models.EventTypeOverrideCleared, lightID, "Manual override cleared")
	p.publish(event)
}

func (p *Publisher) Alert(lightID string, severity models.EventSeverity, message string, data interface{}) {
	event := models.NewEvent(models.EventTypeAlert, lightID, message).
		WithSeverity(severity).
		WithData(data)
	p.publish(event)
}

func (p *Publisher) Error(lightID string, message string, err error) {
	event := models.NewEvent(models.EventTypeError, lightID, message).
		WithSeverity(models.SeverityCritical).
		WithData(map[string]interface{}{
			"error": err.Error(),
		})
	p.publish(event)
}

func onOff(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}
