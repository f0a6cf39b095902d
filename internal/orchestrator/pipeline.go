package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/OldStager01/streetlight-controller/internal/actuator"
	"github.com/OldStager01/streetlight-controller/internal/collector"
	"github.com/OldStager01/streetlight-controller/internal/decision"
	"github.com/OldStager01/streetlight-controller/internal/events"
	"github.com/OldStager01/streetlight-controller/internal/health"
	"github.com/OldStager01/streetlight-controller/internal/intensity"
	"github.com/OldStager01/streetlight-controller/internal/logger"
	"github.com/OldStager01/streetlight-controller/internal/metrics"
	"github.com/OldStager01/streetlight-controller/internal/predictor"
	"github.com/OldStager01/streetlight-controller/pkg/models"
)

type PipelineConfig struct {
	LightID         string
	CollectInterval time.Duration
	Collector       collector.Collector
	Monitor         *health.Monitor
	Transitions     *health.TransitionTracker
	DecisionEngine  *decision.Engine
	// Predictor may be nil; every cycle then decides WAIT
	Predictor      predictor.Predictor
	Actuator       actuator.Actuator
	EventPublisher *events.Publisher
	Metrics        *metrics.Metrics
	// HoldOnSensorFault keeps the lamp as is while the light sensor is disconnected
	HoldOnSensorFault bool
}

// Status is a point-in-time view of a pipeline
type Status struct {
	LightID        string                   `json:"light_id"`
	Running        bool                     `json:"running"`
	Mode           models.ControlMode       `json:"mode"`
	Lamp           *models.LampState        `json:"lamp,omitempty"`
	LastReading    *models.SensorSnapshot   `json:"last_reading,omitempty"`
	LastPrediction *models.PredictionRecord `json:"last_prediction,omitempty"`
	LastDecision   *models.LightingDecision `json:"last_decision,omitempty"`
	LastError      string                   `json:"last_error,omitempty"`
	LastCycle      *time.Time               `json:"last_cycle,omitempty"`
	LightBaseline  *float64                 `json:"light_baseline,omitempty"`
}

type Pipeline struct {
	config  PipelineConfig
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	trigger chan struct{}
	running bool
	mu      sync.Mutex

	// actuateMu serialises lamp commands from the cycle and from overrides
	actuateMu sync.Mutex

	stateMu        sync.RWMutex
	mode           models.ControlMode
	lastReading    *models.SensorSnapshot
	lastPrediction *models.PredictionRecord
	lastDecision   *models.LightingDecision
	lastError      string
	lastCycle      *time.Time
}

func NewPipeline(cfg PipelineConfig) *Pipeline {
	if cfg.CollectInterval == 0 {
		cfg.CollectInterval = 15 * time.Second
	}
	if cfg.Monitor == nil {
		cfg.Monitor = health.NewMonitor(health.DefaultConfig())
	}
	if cfg.Transitions == nil {
		cfg.Transitions = health.NewTransitionTracker()
	}
	if cfg.DecisionEngine == nil {
		cfg.DecisionEngine = decision.NewEngine(decision.DefaultConfig())
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.Get()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Pipeline{
		config:  cfg,
		ctx:     ctx,
		cancel:  cancel,
		trigger: make(chan struct{}, 1),
		mode:    models.ModeAuto,
	}
}

func (p *Pipeline) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return nil
	}

	p.running = true
	p.wg.Add(1)
	go p.run()

	logger.WithLight(p.config.LightID).Info("Pipeline started")
	return nil
}

func (p *Pipeline) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.mu.Unlock()

	p.cancel()
	p.wg.Wait()

	logger.WithLight(p.config.LightID).Info("Pipeline stopped")
}

func (p *Pipeline) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// RunNow asks the pipeline to run a cycle without waiting for the next tick.
func (p *Pipeline) RunNow() {
	select {
	case p.trigger <- struct{}{}:
	default:
	}
}

func (p *Pipeline) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.CollectInterval)
	defer ticker.Stop()

	// Run immediately on start
	p.runCycle()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.runCycle()
		case <-p.trigger:
			p.runCycle()
		}
	}
}

func (p *Pipeline) cycleTimeout() time.Duration {
	if p.config.CollectInterval > 2*time.Second {
		return p.config.CollectInterval - time.Second
	}
	return p.config.CollectInterval
}

func (p *Pipeline) runCycle() {
	ctx, cancel := context.WithTimeout(p.ctx, p.cycleTimeout())
	defer cancel()

	start := time.Now()
	lightID := p.config.LightID
	defer func() {
		p.config.Metrics.ObserveCycleLatency(lightID, time.Since(start))
		p.stateMu.Lock()
		p.lastCycle = &start
		p.stateMu.Unlock()
	}()

	// Step 1: Collect the sensor reading
	reading, err := p.collect(ctx)
	if err != nil {
		logger.WithLight(lightID).Errorf("Collection failed: %v", err)
		p.config.EventPublisher.Error(lightID, "Sensor collection failed", err)
		p.setError(err)
		return
	}

	// Step 2: Evaluate sensor health and derive display values
	snapshot := p.observe(reading)

	// Step 3: Ask the predictor
	prediction := p.predict(ctx)

	// Step 4: Decide
	lightingDecision := p.decide(prediction)
	p.setError(nil)

	// Step 5: Actuate when automatic control applies
	p.actuate(ctx, lightingDecision, snapshot.Health)
}

func (p *Pipeline) collect(ctx context.Context) (*models.SensorReading, error) {
	lightID := p.config.LightID
	p.config.Metrics.IncCollections(lightID)

	start := time.Now()
	reading, err := p.config.Collector.Collect(ctx, lightID)
	p.config.Metrics.ObserveCollectionLatency(lightID, time.Since(start))

	if err != nil {
		p.config.Metrics.IncCollectionErrors(lightID)
		return nil, err
	}
	if reading.LightID == "" {
		reading.LightID = lightID
	}
	return reading, nil
}

func (p *Pipeline) observe(reading *models.SensorReading) *models.SensorSnapshot {
	lightID := p.config.LightID

	sensorHealth := p.config.Monitor.Observe(reading)
	lightConnected := sensorHealth.Light.IsLive()
	pct := intensity.Percent(reading.AmbientLight, lightConnected)

	snapshot := &models.SensorSnapshot{
		Reading:      reading,
		Health:       sensorHealth,
		IntensityPct: pct,
		LightBand:    intensity.Describe(pct, lightConnected),
		MotionStatus: intensity.MotionStatus(reading.Motion, sensorHealth.Motion.IsLive()),
	}

	p.stateMu.Lock()
	p.lastReading = snapshot
	p.stateMu.Unlock()

	p.config.Metrics.SetIntensity(lightID, pct)
	p.config.Metrics.SetSensorLive(lightID, string(models.ChannelLight), lightConnected)
	p.config.Metrics.SetSensorLive(lightID, string(models.ChannelMotion), sensorHealth.Motion.IsLive())

	p.config.EventPublisher.SensorReading(lightID, snapshot)

	for _, change := range p.config.Transitions.Update(reading, sensorHealth) {
		p.config.EventPublisher.SensorHealthChanged(lightID, change)
		if !change.Current.IsLive() {
			p.config.EventPublisher.Alert(
				lightID,
				models.SeverityWarning,
				string(change.Channel)+" sensor disconnected",
				change,
			)
		}
	}

	return snapshot
}

func (p *Pipeline) predict(ctx context.Context) *models.PredictionRecord {
	if p.config.Predictor == nil {
		return nil
	}

	lightID := p.config.LightID
	prediction, err := p.config.Predictor.Predict(ctx, lightID)
	if err != nil {
		p.config.Metrics.IncPredictionErrors(lightID)
		logger.WithLight(lightID).Warnf("Prediction failed: %v", err)
		p.config.EventPublisher.Error(lightID, "Prediction failed", err)
		return nil
	}

	p.stateMu.Lock()
	p.lastPrediction = prediction
	p.stateMu.Unlock()

	p.config.EventPublisher.Prediction(lightID, &models.PredictionResult{
		LightID:    lightID,
		ReceivedAt: time.Now(),
		Prediction: prediction,
	})
	return prediction
}

func (p *Pipeline) decide(prediction *models.PredictionRecord) *models.LightingDecision {
	lightID := p.config.LightID
	lightingDecision := p.config.DecisionEngine.DecideFor(lightID, prediction)

	p.stateMu.Lock()
	p.lastDecision = lightingDecision
	p.stateMu.Unlock()

	p.config.Metrics.IncDecision(
		lightID,
		string(lightingDecision.Action),
		string(lightingDecision.Priority),
		string(lightingDecision.Rule),
	)
	p.config.EventPublisher.DecisionMade(lightID, lightingDecision)
	return lightingDecision
}

func (p *Pipeline) actuate(ctx context.Context, lightingDecision *models.LightingDecision, sensorHealth models.SensorHealth) {
	lightID := p.config.LightID

	p.actuateMu.Lock()
	defer p.actuateMu.Unlock()

	if p.Mode() == models.ModeManual {
		logger.WithLight(lightID).Debug("Manual override active, skipping actuation")
		return
	}
	if lightingDecision.Action == models.ActionWait {
		return
	}

	lamp, err := p.config.Actuator.State(ctx, lightID)
	switch {
	case errors.Is(err, actuator.ErrUnknownLight):
		// Never commanded: apply the decision to establish a known state
	case err != nil:
		p.config.EventPublisher.Error(lightID, "Failed to read lamp state", err)
		return
	case !lightingDecision.ShouldActuate(lamp.On):
		return
	}

	if p.config.HoldOnSensorFault && !sensorHealth.Light.IsLive() {
		held := models.NewActuationEvent(*lightingDecision, models.ActuationHeld)
		p.config.EventPublisher.Alert(
			lightID,
			models.SeverityWarning,
			"Actuation held: light sensor disconnected",
			held,
		)
		return
	}

	p.config.EventPublisher.ActuationStarted(lightID, lightingDecision)
	actuation := models.NewActuationEvent(*lightingDecision, models.ActuationSuccess)
	p.execute(ctx, actuation)
}

// execute sends the command and reports the outcome. Callers hold actuateMu.
func (p *Pipeline) execute(ctx context.Context, actuation *models.ActuationEvent) error {
	lightID := p.config.LightID

	result, err := p.config.Actuator.SetLight(ctx, lightID, actuation.LightsOn)
	if err != nil {
		p.config.Metrics.IncActuation(lightID, false)
		logger.WithLight(lightID).Errorf("Actuation failed: %v", err)
		p.config.EventPublisher.ActuationFailed(lightID, actuation, err)
		return err
	}

	actuation.EntryID = result.EntryID
	actuation.Timestamp = result.Timestamp
	p.config.Metrics.IncActuation(lightID, true)
	p.config.Metrics.SetLampOn(lightID, result.LightsOn)
	p.config.EventPublisher.ActuationComplete(lightID, actuation)

	logger.WithLight(lightID).Infof("Lights switched %s (%s)", onOff(actuation.LightsOn), actuation.Source)
	return nil
}

// SetOverride switches the lamp immediately and suspends automatic actuation.
func (p *Pipeline) SetOverride(ctx context.Context, on bool) error {
	lightID := p.config.LightID

	p.actuateMu.Lock()
	defer p.actuateMu.Unlock()

	actuation := models.NewManualActuationEvent(lightID, on, models.ActuationSuccess)
	if err := p.execute(ctx, actuation); err != nil {
		return err
	}

	p.setMode(models.ModeManual)
	p.config.EventPublisher.OverrideSet(lightID, on)
	return nil
}

// ClearOverride returns the pipeline to automatic control and runs a cycle.
func (p *Pipeline) ClearOverride() {
	p.actuateMu.Lock()
	p.setMode(models.ModeAuto)
	p.actuateMu.Unlock()

	p.config.EventPublisher.OverrideCleared(p.config.LightID)
	p.RunNow()
}

func (p *Pipeline) Mode() models.ControlMode {
	p.stateMu.RLock()
	defer p.stateMu.RUnlock()
	return p.mode
}

func (p *Pipeline) setMode(mode models.ControlMode) {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	p.mode = mode
}

func (p *Pipeline) setError(err error) {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	if err == nil {
		p.lastError = ""
		return
	}
	p.lastError = err.Error()
}

func (p *Pipeline) Snapshot(ctx context.Context) *Status {
	status := &Status{
		LightID: p.config.LightID,
		Running: p.IsRunning(),
	}

	p.stateMu.RLock()
	status.Mode = p.mode
	status.LastReading = p.lastReading
	status.LastPrediction = p.lastPrediction
	status.LastDecision = p.lastDecision
	status.LastError = p.lastError
	status.LastCycle = p.lastCycle
	p.stateMu.RUnlock()

	if baseline, ok := p.config.Monitor.Baseline(); ok {
		status.LightBaseline = &baseline
	}

	if lamp, err := p.config.Actuator.State(ctx, p.config.LightID); err == nil {
		lamp.Mode = status.Mode
		status.Lamp = lamp
	}

	return status
}

func onOff(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}
