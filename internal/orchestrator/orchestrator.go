package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/OldStager01/streetlight-controller/internal/actuator"
	"github.com/OldStager01/streetlight-controller/internal/collector"
	"github.com/OldStager01/streetlight-controller/internal/decision"
	"github.com/OldStager01/streetlight-controller/internal/events"
	"github.com/OldStager01/streetlight-controller/internal/health"
	"github.com/OldStager01/streetlight-controller/internal/logger"
	"github.com/OldStager01/streetlight-controller/internal/metrics"
	"github.com/OldStager01/streetlight-controller/internal/predictor"
	"github.com/OldStager01/streetlight-controller/pkg/config"
	"github.com/OldStager01/streetlight-controller/pkg/models"
)

var (
	ErrPipelineExists   = errors.New("pipeline already running")
	ErrPipelineNotFound = errors.New("no pipeline for streetlight")
	ErrNoCollector      = errors.New("no collector configured")
	ErrNoActuator       = errors.New("no actuator configured")
)

// Components are the transport adapters shared by every pipeline.
type Components struct {
	Collector collector.Collector
	Predictor predictor.Predictor
	Actuator  actuator.Actuator
}

type Orchestrator struct {
	config         *config.Config
	components     Components
	eventBus       *events.EventBus
	eventLogger    *events.EventLogger
	pipelines      map[string]*Pipeline
	mu             sync.RWMutex
	ctx            context.Context
	cancel         context.CancelFunc
	monitorConfig  health.Config
	decisionEngine *decision.Engine
	metrics        *metrics.Metrics
}

// New wires an orchestrator. store may be nil to skip persistence.
func New(cfg *config.Config, store events.Store, components Components) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())

	eventBus := events.NewEventBus(cfg.Events.BufferSize)

	// Subscribe event logger to all events
	allEvents := eventBus.SubscribeAll()
	eventLogger := events.NewEventLogger(store, allEvents)

	monitorCfg := health.Config{
		HistorySize:  cfg.Health.HistorySize,
		StuckWindow:  cfg.Health.StuckWindow,
		FrozenWindow: cfg.Health.FrozenWindow,
		MaxRawValue:  cfg.Health.MaxRawValue,
	}

	decisionCfg := decision.Config{
		BrightThreshold:     cfg.Decision.BrightThreshold,
		DarkThreshold:       cfg.Decision.DarkThreshold,
		ConfidenceThreshold: cfg.Decision.ConfidenceThreshold,
		FallbackSplit:       cfg.Decision.FallbackSplit,
	}

	return &Orchestrator{
		config:         cfg,
		components:     components,
		eventBus:       eventBus,
		eventLogger:    eventLogger,
		pipelines:      make(map[string]*Pipeline),
		ctx:            ctx,
		cancel:         cancel,
		monitorConfig:  monitorCfg,
		decisionEngine: decision.NewEngine(decisionCfg),
		metrics:        metrics.Get(),
	}
}

func (o *Orchestrator) Start() error {
	logger.Info("Orchestrator starting")
	o.eventLogger.Start()
	return nil
}

func (o *Orchestrator) Stop() {
	logger.Info("Orchestrator stopping")

	o.mu.Lock()
	for lightID, pipeline := range o.pipelines {
		logger.Infof("Stopping pipeline for streetlight %s", lightID)
		pipeline.Stop()
	}
	o.pipelines = make(map[string]*Pipeline)
	o.mu.Unlock()

	o.cancel()
	o.eventLogger.Stop()
	o.eventBus.Close()

	logger.Info("Orchestrator stopped")
}

// StartLight starts a control pipeline for light using the shared components.
func (o *Orchestrator) StartLight(light *models.Streetlight) error {
	if o.components.Collector == nil {
		return ErrNoCollector
	}
	if o.components.Actuator == nil {
		return ErrNoActuator
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if _, exists := o.pipelines[light.ID]; exists {
		return fmt.Errorf("%w: %s", ErrPipelineExists, light.ID)
	}

	hold := o.config.Decision.HoldOnSensorFault
	if light.Config != nil {
		if light.Config.HoldOnSensorFault != nil {
			hold = *light.Config.HoldOnSensorFault
		}
		if registrar, ok := o.components.Collector.(collector.ChannelRegistrar); ok && light.Config.ChannelID != "" {
			registrar.RegisterChannel(light.ID, light.Config.ChannelID)
		}
	}

	pipeline := NewPipeline(PipelineConfig{
		LightID:           light.ID,
		CollectInterval:   o.config.Collector.Interval,
		Collector:         o.components.Collector,
		Monitor:           health.NewMonitor(o.monitorConfig),
		Transitions:       health.NewTransitionTracker(),
		DecisionEngine:    o.decisionEngine,
		Predictor:         o.components.Predictor,
		Actuator:          o.components.Actuator,
		EventPublisher:    events.NewPublisher(o.eventBus),
		Metrics:           o.metrics,
		HoldOnSensorFault: hold,
	})

	if err := pipeline.Start(); err != nil {
		return fmt.Errorf("failed to start pipeline: %w", err)
	}

	o.pipelines[light.ID] = pipeline
	logger.WithLight(light.ID).Info("Streetlight pipeline started")

	return nil
}

func (o *Orchestrator) StopLight(lightID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	pipeline, exists := o.pipelines[lightID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrPipelineNotFound, lightID)
	}

	pipeline.Stop()
	delete(o.pipelines, lightID)
	o.metrics.RemoveLight(lightID)
	logger.WithLight(lightID).Info("Streetlight pipeline stopped")

	return nil
}

func (o *Orchestrator) pipeline(lightID string) (*Pipeline, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	pipeline, exists := o.pipelines[lightID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrPipelineNotFound, lightID)
	}
	return pipeline, nil
}

func (o *Orchestrator) IsRunning(lightID string) bool {
	pipeline, err := o.pipeline(lightID)
	if err != nil {
		return false
	}
	return pipeline.IsRunning()
}

func (o *Orchestrator) ListRunning() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()

	lights := make([]string, 0, len(o.pipelines))
	for lightID, pipeline := range o.pipelines {
		if pipeline.IsRunning() {
			lights = append(lights, lightID)
		}
	}
	return lights
}

func (o *Orchestrator) Snapshot(ctx context.Context, lightID string) (*Status, error) {
	pipeline, err := o.pipeline(lightID)
	if err != nil {
		return nil, err
	}
	return pipeline.Snapshot(ctx), nil
}

func (o *Orchestrator) SetOverride(ctx context.Context, lightID string, on bool) error {
	pipeline, err := o.pipeline(lightID)
	if err != nil {
		return err
	}
	return pipeline.SetOverride(ctx, on)
}

func (o *Orchestrator) ClearOverride(lightID string) error {
	pipeline, err := o.pipeline(lightID)
	if err != nil {
		return err
	}
	pipeline.ClearOverride()
	return nil
}

// DecisionEngine exposes the engine pipelines share, for ad-hoc decisions.
func (o *Orchestrator) DecisionEngine() *decision.Engine {
	return o.decisionEngine
}

func (o *Orchestrator) SubscribeEvents(eventType models.EventType) <-chan *models.Event {
	return o.eventBus.Subscribe(eventType)
}

func (o *Orchestrator) SubscribeAllEvents() <-chan *models.Event {
	return o.eventBus.SubscribeAll()
}

func (o *Orchestrator) Unsubscribe(ch <-chan *models.Event) {
	o.eventBus.Unsubscribe(ch)
}
