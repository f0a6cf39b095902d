package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/streetlight-controller/internal/actuator"
	"github.com/OldStager01/streetlight-controller/internal/collector"
	"github.com/OldStager01/streetlight-controller/internal/predictor"
	"github.com/OldStager01/streetlight-controller/pkg/config"
	"github.com/OldStager01/streetlight-controller/pkg/models"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Collector.Interval = 50 * time.Millisecond
	cfg.Decision = config.DecisionConfig{
		BrightThreshold:     65,
		DarkThreshold:       35,
		ConfidenceThreshold: 70,
		FallbackSplit:       50,
	}
	return cfg
}

func newTestOrchestrator(t *testing.T) (*Orchestrator, *collector.MockCollector, *actuator.SimulatorActuator) {
	t.Helper()

	coll := collector.NewMockCollector()
	act := actuator.NewSimulatorActuator(actuator.SimulatorConfig{})
	pred := predictor.NewMockPredictor(models.NewPredictionRecord(90, true, 0.9))

	o := New(testConfig(), nil, Components{
		Collector: coll,
		Predictor: pred,
		Actuator:  act,
	})
	require.NoError(t, o.Start())
	t.Cleanup(o.Stop)

	return o, coll, act
}

func lampOn(act *actuator.SimulatorActuator, lightID string) bool {
	lamp, err := act.State(context.Background(), lightID)
	return err == nil && lamp.On
}

func TestOrchestrator_StartLight(t *testing.T) {
	o, coll, act := newTestOrchestrator(t)
	light := models.NewStreetlight("main-st-01", "Main St")
	coll.SetValues(light.ID, [2]float64{900, 0})

	require.NoError(t, o.StartLight(light))

	require.Eventually(t, func() bool {
		return lampOn(act, light.ID)
	}, 2*time.Second, 10*time.Millisecond)

	assert.True(t, o.IsRunning(light.ID))
	assert.Equal(t, []string{light.ID}, o.ListRunning())

	err := o.StartLight(light)
	assert.ErrorIs(t, err, ErrPipelineExists)
}

func TestOrchestrator_StopLight(t *testing.T) {
	o, coll, _ := newTestOrchestrator(t)
	light := models.NewStreetlight("main-st-02", "Main St")
	coll.SetValues(light.ID, [2]float64{500, 0})

	require.NoError(t, o.StartLight(light))
	require.NoError(t, o.StopLight(light.ID))

	assert.False(t, o.IsRunning(light.ID))
	assert.ErrorIs(t, o.StopLight(light.ID), ErrPipelineNotFound)
}

func TestOrchestrator_UnknownLight(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)
	ctx := context.Background()

	_, err := o.Snapshot(ctx, "missing")
	assert.ErrorIs(t, err, ErrPipelineNotFound)
	assert.ErrorIs(t, o.SetOverride(ctx, "missing", true), ErrPipelineNotFound)
	assert.ErrorIs(t, o.ClearOverride("missing"), ErrPipelineNotFound)
	assert.False(t, o.IsRunning("missing"))
}

func TestOrchestrator_OverrideAndSnapshot(t *testing.T) {
	o, coll, act := newTestOrchestrator(t)
	light := models.NewStreetlight("park-lamp-1", "Park")
	coll.SetValues(light.ID, [2]float64{900, 0})
	ctx := context.Background()

	require.NoError(t, o.StartLight(light))
	require.Eventually(t, func() bool {
		return lampOn(act, light.ID)
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, o.SetOverride(ctx, light.ID, false))

	status, err := o.Snapshot(ctx, light.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ModeManual, status.Mode)
	require.NotNil(t, status.Lamp)
	assert.False(t, status.Lamp.On)
	assert.Equal(t, models.ModeManual, status.Lamp.Mode)

	// stays off across automatic cycles
	time.Sleep(150 * time.Millisecond)
	assert.False(t, lampOn(act, light.ID))

	require.NoError(t, o.ClearOverride(light.ID))
	require.Eventually(t, func() bool {
		return lampOn(act, light.ID)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestOrchestrator_PerLightHoldOverride(t *testing.T) {
	o, coll, _ := newTestOrchestrator(t)
	hold := true
	light := models.NewStreetlight("hold-lamp", "Depot")
	light.Config = &models.StreetlightConfig{HoldOnSensorFault: &hold}
	coll.SetValues(light.ID, [2]float64{500, 0})

	require.NoError(t, o.StartLight(light))

	p, err := o.pipeline(light.ID)
	require.NoError(t, err)
	assert.True(t, p.config.HoldOnSensorFault)
}

func TestOrchestrator_MissingComponents(t *testing.T) {
	o := New(testConfig(), nil, Components{})
	t.Cleanup(o.Stop)

	assert.ErrorIs(t, o.StartLight(models.NewStreetlight("x-lamp", "")), ErrNoCollector)

	o = New(testConfig(), nil, Components{Collector: collector.NewMockCollector()})
	t.Cleanup(o.Stop)
	assert.ErrorIs(t, o.StartLight(models.NewStreetlight("x-lamp", "")), ErrNoActuator)
}

func TestOrchestrator_Subscriptions(t *testing.T) {
	o, coll, _ := newTestOrchestrator(t)
	decisions := o.SubscribeEvents(models.EventTypeDecisionMade)
	light := models.NewStreetlight("sub-lamp", "")
	coll.SetValues(light.ID, [2]float64{900, 0})

	require.NoError(t, o.StartLight(light))

	select {
	case event := <-decisions:
		assert.Equal(t, light.ID, event.LightID)
	case <-time.After(2 * time.Second):
		t.Fatal("no decision event")
	}

	all := o.SubscribeAllEvents()
	o.Unsubscribe(all)
	_, ok := <-all
	assert.False(t, ok)
}

func TestOrchestrator_DecisionEngineUsesConfig(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)
	assert.Equal(t, 35.0, o.DecisionEngine().Config().DarkThreshold)
}
