package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/OldStager01/streetlight-controller/internal/logger"
)

const namespace = "streetlight"

type Metrics struct {
	registry *prometheus.Registry

	// Counters
	collectionsTotal *prometheus.CounterVec
	collectionErrors *prometheus.CounterVec
	predictionErrors *prometheus.CounterVec
	decisionsTotal   *prometheus.CounterVec // light, action, priority, rule
	actuationsTotal  *prometheus.CounterVec // light, result

	// Gauges
	ambientIntensity    *prometheus.GaugeVec
	sensorHealth        *prometheus.GaugeVec // 1=live, 0=disconnected
	lampOn              *prometheus.GaugeVec
	circuitBreakerState *prometheus.GaugeVec // 0=closed, 1=open, 2=half-open

	collectionLatency *prometheus.HistogramVec
	decisionLatency   *prometheus.HistogramVec
}

var (
	instance *Metrics
	once     sync.Once
)

// Get returns the process-wide metrics set.
func Get() *Metrics {
	once.Do(func() {
		instance = New()
	})
	return instance
}

// New builds a metrics set on its own registry.
func New() *Metrics {
	lightLabel := []string{"light_id"}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
		collectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collections_total",
			Help:      "Sensor feed collections attempted per light.",
		}, lightLabel),
		collectionErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collection_errors_total",
			Help:      "Sensor feed collections that failed per light.",
		}, lightLabel),
		predictionErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prediction_errors_total",
			Help:      "Predictor calls that failed per light.",
		}, lightLabel),
		decisionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Lighting decisions by action, priority and rule.",
		}, []string{"light_id", "action", "priority", "rule"}),
		actuationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actuations_total",
			Help:      "Lamp switch attempts by result.",
		}, []string{"light_id", "result"}),
		ambientIntensity: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ambient_intensity_percent",
			Help:      "Last ambient light intensity percentage.",
		}, lightLabel),
		sensorHealth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sensor_live",
			Help:      "Sensor channel health (1 live, 0 disconnected).",
		}, []string{"light_id", "channel"}),
		lampOn: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "lamp_on",
			Help:      "Lamp state (1 on, 0 off).",
		}, lightLabel),
		circuitBreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0 closed, 1 open, 2 half-open).",
		}, []string{"name"}),
		collectionLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "collection_duration_seconds",
			Help:      "Sensor feed collection latency.",
			Buckets:   prometheus.DefBuckets,
		}, lightLabel),
		decisionLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Full control cycle latency.",
			Buckets:   prometheus.DefBuckets,
		}, lightLabel),
	}

	m.registry.MustRegister(
		m.collectionsTotal,
		m.collectionErrors,
		m.predictionErrors,
		m.decisionsTotal,
		m.actuationsTotal,
		m.ambientIntensity,
		m.sensorHealth,
		m.lampOn,
		m.circuitBreakerState,
		m.collectionLatency,
		m.decisionLatency,
	)

	return m
}

func (m *Metrics) IncCollections(lightID string) {
	m.collectionsTotal.WithLabelValues(lightID).Inc()
}

func (m *Metrics) IncCollectionErrors(lightID string) {
	m.collectionErrors.WithLabelValues(lightID).Inc()
}

func (m *Metrics) IncPredictionErrors(lightID string) {
	m.predictionErrors.WithLabelValues(lightID).Inc()
}

func (m *Metrics) IncDecision(lightID, action, priority, rule string) {
	m.decisionsTotal.WithLabelValues(lightID, action, priority, rule).Inc()
}

func (m *Metrics) IncActuation(lightID string, success bool) {
	result := "success"
	if !success {
		result = "failed"
	}
	m.actuationsTotal.WithLabelValues(lightID, result).Inc()
}

func (m *Metrics) SetIntensity(lightID string, pct int) {
	m.ambientIntensity.WithLabelValues(lightID).Set(float64(pct))
}

func (m *Metrics) SetSensorLive(lightID, channel string, live bool) {
	m.sensorHealth.WithLabelValues(lightID, channel).Set(boolValue(live))
}

func (m *Metrics) SetLampOn(lightID string, on bool) {
	m.lampOn.WithLabelValues(lightID).Set(boolValue(on))
}

func (m *Metrics) SetCircuitBreakerState(name string, state int) {
	m.circuitBreakerState.WithLabelValues(name).Set(float64(state))
}

func (m *Metrics) ObserveCollectionLatency(lightID string, d time.Duration) {
	m.collectionLatency.WithLabelValues(lightID).Observe(d.Seconds())
}

func (m *Metrics) ObserveCycleLatency(lightID string, d time.Duration) {
	m.decisionLatency.WithLabelValues(lightID).Observe(d.Seconds())
}

// RemoveLight drops every series labelled with lightID.
func (m *Metrics) RemoveLight(lightID string) {
	labels := prometheus.Labels{"light_id": lightID}
	m.collectionsTotal.DeletePartialMatch(labels)
	m.collectionErrors.DeletePartialMatch(labels)
	m.predictionErrors.DeletePartialMatch(labels)
	m.decisionsTotal.DeletePartialMatch(labels)
	m.actuationsTotal.DeletePartialMatch(labels)
	m.ambientIntensity.DeletePartialMatch(labels)
	m.sensorHealth.DeletePartialMatch(labels)
	m.lampOn.DeletePartialMatch(labels)
	m.collectionLatency.DeletePartialMatch(labels)
	m.decisionLatency.DeletePartialMatch(labels)
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// StartServer serves /metrics on port until ctx is cancelled.
func StartServer(ctx context.Context, port int) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Get().Handler())

	addr := ":" + strconv.Itoa(port)
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Infof("Prometheus metrics server listening on %s", addr)

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("Prometheus server error: %v", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	return server
}
