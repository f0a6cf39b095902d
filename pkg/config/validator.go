package config

import (
	"errors"
	"fmt"
	"strings"
)

const DefaultJWTSecret = "change-me-in-production"

func (c *Config) Validate() error {
	var errs []error

	// App validation
	if c.App.Name == "" {
		errs = append(errs, errors.New("app.name is required"))
	}

	validModes := map[string]bool{"development": true, "production": true, "test": true}
	if !validModes[c.App.Mode] {
		errs = append(errs, errors.New("app.mode must be one of: development, production, test"))
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.App.LogLevel] {
		errs = append(errs, errors.New("app.log_level must be one of: debug, info, warn, error"))
	}

	// Database validation
	if c.Database.Host == "" {
		errs = append(errs, errors.New("database.host is required"))
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, errors.New("database.port must be between 1 and 65535"))
	}
	if c.Database.Name == "" {
		errs = append(errs, errors.New("database.name is required"))
	}
	if c.Database.MaxConnections <= 0 {
		errs = append(errs, errors.New("database.max_connections must be positive"))
	}
	if c.Database.ReadingRetention < 0 {
		errs = append(errs, errors.New("database.reading_retention cannot be negative"))
	}

	// Collector validation
	validCollectors := map[string]bool{"http": true, "mqtt": true, "mock": true}
	if !validCollectors[c.Collector.Type] {
		errs = append(errs, errors.New("collector.type must be one of: http, mqtt, mock"))
	}
	if c.Collector.Type == "http" && c.Collector.Endpoint == "" {
		errs = append(errs, errors.New("collector.endpoint is required for the http collector"))
	}
	if c.Collector.Interval <= 0 {
		errs = append(errs, errors.New("collector.interval must be positive"))
	}
	if c.Collector.Timeout <= 0 {
		errs = append(errs, errors.New("collector.timeout must be positive"))
	}
	if c.Collector.Timeout >= c.Collector.Interval {
		errs = append(errs, errors.New("collector.timeout must be less than collector.interval"))
	}

	// Predictor validation
	if c.Predictor.Enabled {
		validPredictors := map[string]bool{"http": true, "mock": true}
		if !validPredictors[c.Predictor.Type] {
			errs = append(errs, errors.New("predictor.type must be one of: http, mock"))
		}
		if c.Predictor.Type == "http" && c.Predictor.Endpoint == "" {
			errs = append(errs, errors.New("predictor.endpoint is required for the http predictor"))
		}
	}

	// Decision validation
	errs = append(errs, percentage("decision.bright_threshold", c.Decision.BrightThreshold)...)
	errs = append(errs, percentage("decision.dark_threshold", c.Decision.DarkThreshold)...)
	errs = append(errs, percentage("decision.confidence_threshold", c.Decision.ConfidenceThreshold)...)
	errs = append(errs, percentage("decision.fallback_split", c.Decision.FallbackSplit)...)
	if c.Decision.DarkThreshold >= c.Decision.BrightThreshold {
		errs = append(errs, errors.New("decision.dark_threshold must be less than bright_threshold"))
	}

	// Health validation
	if c.Health.HistorySize <= 0 {
		errs = append(errs, errors.New("health.history_size must be positive"))
	}
	if c.Health.StuckWindow <= 0 || c.Health.StuckWindow > c.Health.HistorySize {
		errs = append(errs, errors.New("health.stuck_window must be between 1 and history_size"))
	}
	if c.Health.FrozenWindow <= 0 || c.Health.FrozenWindow > c.Health.HistorySize {
		errs = append(errs, errors.New("health.frozen_window must be between 1 and history_size"))
	}
	if c.Health.MaxRawValue <= 0 {
		errs = append(errs, errors.New("health.max_raw_value must be positive"))
	}

	// Actuator validation
	validActuators := map[string]bool{"http": true, "mqtt": true, "simulator": true}
	if !validActuators[c.Actuator.Type] {
		errs = append(errs, errors.New("actuator.type must be one of: http, mqtt, simulator"))
	}
	if c.Actuator.Type == "http" && c.Actuator.WriteAPIKey == "" {
		errs = append(errs, errors.New("actuator.write_api_key is required for the http actuator"))
	}

	// MQTT validation
	if c.UsesMQTT() {
		if c.MQTT.Broker == "" {
			errs = append(errs, errors.New("mqtt.broker is required when collector or actuator uses mqtt"))
		}
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			errs = append(errs, errors.New("mqtt.qos must be 0, 1 or 2"))
		}
		if !strings.Contains(c.MQTT.ControlTopic, "{light_id}") {
			errs = append(errs, errors.New("mqtt.control_topic must contain {light_id}"))
		}
	}

	// API validation
	if c.API.Port <= 0 || c.API.Port > 65535 {
		errs = append(errs, errors.New("api.port must be between 1 and 65535"))
	}
	if c.App.Mode == "production" && c.API.JWTSecret == DefaultJWTSecret {
		errs = append(errs, errors.New("api.jwt_secret must be changed in production"))
	}

	if c.Prometheus.Enabled && c.Prometheus.Port == c.API.Port {
		errs = append(errs, errors.New("prometheus.port must differ from api.port"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %w", errors.Join(errs...))
	}

	return nil
}

// UsesMQTT reports whether any component needs a broker connection.
func (c *Config) UsesMQTT() bool {
	return c.Collector.Type == "mqtt" || c.Actuator.Type == "mqtt"
}

func percentage(name string, v float64) []error {
	if v < 0 || v > 100 {
		return []error{fmt.Errorf("%s must be between 0 and 100", name)}
	}
	return nil
}
