package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/OldStager01/streetlight-controller/api"
	"github.com/OldStager01/streetlight-controller/internal/actuator"
	"github.com/OldStager01/streetlight-controller/internal/auth"
	"github.com/OldStager01/streetlight-controller/internal/collector"
	"github.com/OldStager01/streetlight-controller/internal/logger"
	"github.com/OldStager01/streetlight-controller/internal/metrics"
	"github.com/OldStager01/streetlight-controller/internal/mqtt"
	"github.com/OldStager01/streetlight-controller/internal/orchestrator"
	"github.com/OldStager01/streetlight-controller/internal/predictor"
	"github.com/OldStager01/streetlight-controller/internal/resilience"
	"github.com/OldStager01/streetlight-controller/pkg/config"
	"github.com/OldStager01/streetlight-controller/pkg/database"
	"github.com/OldStager01/streetlight-controller/pkg/database/queries"
	"github.com/OldStager01/streetlight-controller/pkg/models"
	"github.com/OldStager01/streetlight-controller/pkg/validation"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	configPath := flag.String("config", "", "path to config file")
	migrate := flag.Bool("migrate", false, "run database migrations")
	createUser := flag.String("create-user", "", "create an operator account with this username and exit")
	password := flag.String("password", "", "password for -create-user (defaults to STREETLIGHT_ADMIN_PASSWORD)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger.Setup(cfg.App.LogLevel, cfg.App.Mode)
	logger.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Mode)

	db, err := database.New(cfg.Database.ToDBConfig())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	logger.Info("Database connection established")

	if *migrate {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Database.MigrationTimeout)
		defer cancel()

		logger.Info("Running database migrations")
		if err := database.NewMigrator(db).Run(ctx); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		logger.Info("Migrations completed successfully")
		return nil
	}

	if *createUser != "" {
		return runCreateUser(db, *createUser, *password)
	}

	var messenger *mqtt.Client
	if cfg.UsesMQTT() {
		messenger, err = mqtt.NewClient(mqtt.Config{
			Broker:         cfg.MQTT.Broker,
			ClientID:       cfg.MQTT.ClientID,
			Username:       cfg.MQTT.Username,
			Password:       cfg.MQTT.Password,
			KeepAlive:      cfg.MQTT.KeepAlive,
			ConnectTimeout: cfg.MQTT.ConnectTimeout,
			WriteTimeout:   cfg.MQTT.WriteTimeout,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to mqtt broker: %w", err)
		}
		defer messenger.Close()
		logger.Infof("Connected to MQTT broker %s", cfg.MQTT.Broker)
	}

	components, err := buildComponents(cfg, messenger)
	if err != nil {
		return err
	}
	defer closeComponents(components)

	orch := orchestrator.New(cfg, queries.NewEventStore(db.DB), components)
	if err := orch.Start(); err != nil {
		return fmt.Errorf("failed to start orchestrator: %w", err)
	}

	if cfg.App.AutoStart {
		startActiveLights(db, orch)
	}

	retentionCtx, stopRetention := context.WithCancel(context.Background())
	defer stopRetention()
	if cfg.Database.ReadingRetention > 0 {
		go pruneReadings(retentionCtx, queries.NewReadingRepository(db.DB), cfg.Database.ReadingRetention)
	}

	var metricsServer *http.Server
	if cfg.Prometheus.Enabled {
		metricsServer = metrics.StartServer(context.Background(), cfg.Prometheus.Port)
	}

	server := api.NewServer(cfg.API, &cfg.WebSocket, api.NewStores(db), orch, orch.DecisionEngine())

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		logger.Infof("API server listening on port %d", cfg.API.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	var runErr error
	select {
	case err := <-errChan:
		runErr = fmt.Errorf("server error: %w", err)
	case sig := <-shutdownChan:
		logger.Infof("Received signal %v, shutting down", sig)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("API shutdown error: %v", err)
	}

	stopRetention()
	orch.Stop()

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("Metrics shutdown error: %v", err)
		}
	}

	if runErr != nil {
		return runErr
	}

	logger.Info("Controller stopped gracefully")
	return nil
}

func buildComponents(cfg *config.Config, messenger mqtt.Messenger) (orchestrator.Components, error) {
	var components orchestrator.Components
	m := metrics.Get()

	onStateChange := func(name string, from, to resilience.State) {
		logger.WithFields(map[string]interface{}{
			"breaker": name,
			"from":    from.String(),
			"to":      to.String(),
		}).Warn("Circuit breaker state changed")
		m.SetCircuitBreakerState(name, int(to))
	}

	callbacks := actuator.StateCallbacks{
		OnSwitched: func(state models.LampState) {
			logger.WithLight(state.LightID).Infof("Lamp switched on=%t mode=%s", state.On, state.Mode)
		},
	}

	var coll collector.Collector
	switch cfg.Collector.Type {
	case "http":
		coll = collector.NewHTTPCollector(collector.HTTPCollectorConfig{
			Endpoint:       cfg.Collector.Endpoint,
			ReadAPIKey:     cfg.Collector.ReadAPIKey,
			DefaultChannel: cfg.Collector.Channel,
			Timeout:        cfg.Collector.Timeout,
		})
	case "mqtt":
		mqttColl, err := collector.NewMQTTCollector(messenger, collector.MQTTCollectorConfig{
			Topic:  cfg.MQTT.SensorTopic,
			QoS:    byte(cfg.MQTT.QoS),
			MaxAge: cfg.Collector.MaxAge,
		})
		if err != nil {
			return components, fmt.Errorf("failed to create mqtt collector: %w", err)
		}
		coll = mqttColl
	case "mock":
		coll = collector.NewMockCollector()
	default:
		return components, fmt.Errorf("unknown collector type %q", cfg.Collector.Type)
	}

	components.Collector = collector.NewResilientCollector(collector.ResilientCollectorConfig{
		Collector:     coll,
		MaxFailures:   cfg.Collector.CircuitBreaker.MaxFailures,
		Timeout:       cfg.Collector.CircuitBreaker.Timeout,
		RetryAttempts: cfg.Collector.RetryAttempts,
		RetryDelay:    cfg.Collector.RetryDelay,
		OnStateChange: onStateChange,
	})

	if cfg.Predictor.Enabled {
		var pred predictor.Predictor
		switch cfg.Predictor.Type {
		case "http":
			pred = predictor.NewHTTPPredictor(predictor.HTTPPredictorConfig{
				Endpoint: cfg.Predictor.Endpoint,
				Timeout:  cfg.Predictor.Timeout,
			})
		case "mock":
			pred = predictor.NewMockPredictor(models.NewPredictionRecord(50, true, 0.5))
		default:
			return components, fmt.Errorf("unknown predictor type %q", cfg.Predictor.Type)
		}

		components.Predictor = predictor.NewResilientPredictor(predictor.ResilientPredictorConfig{
			Predictor:     pred,
			MaxFailures:   cfg.Predictor.CircuitBreaker.MaxFailures,
			Timeout:       cfg.Predictor.CircuitBreaker.Timeout,
			RetryAttempts: cfg.Predictor.RetryAttempts,
			RetryDelay:    cfg.Predictor.RetryDelay,
			OnStateChange: onStateChange,
		})
	} else {
		logger.Warn("Predictor disabled, decisions will wait for manual control")
	}

	var act actuator.Actuator
	switch cfg.Actuator.Type {
	case "http":
		act = actuator.NewHTTPActuator(actuator.HTTPActuatorConfig{
			Endpoint:    cfg.Actuator.Endpoint,
			WriteAPIKey: cfg.Actuator.WriteAPIKey,
			Timeout:     cfg.Actuator.Timeout,
			Callbacks:   callbacks,
		})
	case "mqtt":
		act = actuator.NewMQTTActuator(messenger, actuator.MQTTActuatorConfig{
			Topic:     cfg.MQTT.ControlTopic,
			QoS:       byte(cfg.MQTT.QoS),
			Callbacks: callbacks,
		})
	case "simulator":
		act = actuator.NewSimulatorActuator(actuator.SimulatorConfig{
			Latency:   cfg.Actuator.Latency,
			Callbacks: callbacks,
		})
	default:
		return components, fmt.Errorf("unknown actuator type %q", cfg.Actuator.Type)
	}

	components.Actuator = actuator.NewResilientActuator(actuator.ResilientActuatorConfig{
		Actuator:      act,
		MaxFailures:   cfg.Actuator.CircuitBreaker.MaxFailures,
		Timeout:       cfg.Actuator.CircuitBreaker.Timeout,
		RetryAttempts: cfg.Actuator.RetryAttempts,
		RetryDelay:    cfg.Actuator.RetryDelay,
		OnStateChange: onStateChange,
	})

	logger.WithFields(map[string]interface{}{
		"collector": cfg.Collector.Type,
		"predictor": predictorLabel(cfg),
		"actuator":  cfg.Actuator.Type,
	}).Info("Components initialized")

	return components, nil
}

func predictorLabel(cfg *config.Config) string {
	if !cfg.Predictor.Enabled {
		return "disabled"
	}
	return cfg.Predictor.Type
}

func closeComponents(c orchestrator.Components) {
	if c.Collector != nil {
		if err := c.Collector.Close(); err != nil {
			logger.Errorf("Failed to close collector: %v", err)
		}
	}
	if c.Predictor != nil {
		if err := c.Predictor.Close(); err != nil {
			logger.Errorf("Failed to close predictor: %v", err)
		}
	}
	if c.Actuator != nil {
		if err := c.Actuator.Close(); err != nil {
			logger.Errorf("Failed to close actuator: %v", err)
		}
	}
}

func startActiveLights(db *database.DB, orch *orchestrator.Orchestrator) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	lights, err := queries.NewStreetlightRepository(db.DB).GetActive(ctx)
	if err != nil {
		logger.Errorf("Failed to load active streetlights: %v", err)
		return
	}

	for _, light := range lights {
		if err := orch.StartLight(light); err != nil {
			logger.WithLight(light.ID).Errorf("Failed to start control loop: %v", err)
			continue
		}
	}
	logger.Infof("Auto-started %d streetlight(s)", len(orch.ListRunning()))
}

// pruneReadings deletes readings older than retention once an hour.
func pruneReadings(ctx context.Context, readings *queries.ReadingRepository, retention time.Duration) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		deleted, err := readings.DeleteOlderThan(ctx, time.Now().Add(-retention))
		if err != nil && ctx.Err() == nil {
			logger.Errorf("Failed to prune sensor readings: %v", err)
		} else if deleted > 0 {
			logger.Infof("Pruned %d sensor readings older than %s", deleted, retention)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func runCreateUser(db *database.DB, username, password string) error {
	if password == "" {
		password = os.Getenv("STREETLIGHT_ADMIN_PASSWORD")
	}
	if err := validation.ValidateUsername(username); err != nil {
		return err
	}
	if err := validation.ValidatePassword(password); err != nil {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	user, err := queries.NewUserRepository(db.DB).Create(ctx, username, hash)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	logger.WithField("user_id", user.ID).Infof("Created operator account %s", user.Username)
	return nil
}
