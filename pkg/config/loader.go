package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const envPrefix = "STREETLIGHT"

func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/streetlight")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file: defaults and env vars only
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "streetlight-controller")
	v.SetDefault("app.mode", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.shutdown_timeout", "30s")
	v.SetDefault("app.auto_start", true)

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "streetlight")
	v.SetDefault("database.user", "admin")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.conn_max_idle_time", "5m")
	v.SetDefault("database.ping_timeout", "5s")
	v.SetDefault("database.migration_timeout", "60s")
	v.SetDefault("database.reading_retention", "720h")

	// Collector defaults
	v.SetDefault("collector.type", "http")
	v.SetDefault("collector.endpoint", "http://localhost:9000")
	v.SetDefault("collector.interval", "15s")
	v.SetDefault("collector.timeout", "10s")
	v.SetDefault("collector.max_age", "2m")
	v.SetDefault("collector.retry_attempts", 3)
	v.SetDefault("collector.retry_delay", "1s")
	v.SetDefault("collector.circuit_breaker.max_failures", 5)
	v.SetDefault("collector.circuit_breaker.timeout", "30s")

	// Predictor defaults
	v.SetDefault("predictor.enabled", true)
	v.SetDefault("predictor.type", "http")
	v.SetDefault("predictor.endpoint", "http://localhost:9000")
	v.SetDefault("predictor.timeout", "10s")
	v.SetDefault("predictor.retry_attempts", 2)
	v.SetDefault("predictor.retry_delay", "1s")
	v.SetDefault("predictor.circuit_breaker.max_failures", 5)
	v.SetDefault("predictor.circuit_breaker.timeout", "30s")

	// Decision defaults
	v.SetDefault("decision.bright_threshold", 65.0)
	v.SetDefault("decision.dark_threshold", 35.0)
	v.SetDefault("decision.confidence_threshold", 70.0)
	v.SetDefault("decision.fallback_split", 50.0)
	v.SetDefault("decision.hold_on_sensor_fault", false)

	// Health defaults
	v.SetDefault("health.history_size", 10)
	v.SetDefault("health.stuck_window", 3)
	v.SetDefault("health.frozen_window", 5)
	v.SetDefault("health.max_raw_value", 1023.0)

	// Actuator defaults
	v.SetDefault("actuator.type", "simulator")
	v.SetDefault("actuator.endpoint", "http://localhost:9000")
	v.SetDefault("actuator.timeout", "10s")
	v.SetDefault("actuator.retry_attempts", 3)
	v.SetDefault("actuator.retry_delay", "1s")
	v.SetDefault("actuator.circuit_breaker.max_failures", 5)
	v.SetDefault("actuator.circuit_breaker.timeout", "30s")

	// MQTT defaults
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.client_id", "streetlight-controller")
	v.SetDefault("mqtt.sensor_topic", "streetlight/+/sensors")
	v.SetDefault("mqtt.control_topic", "streetlight/{light_id}/control")
	v.SetDefault("mqtt.qos", 1)
	v.SetDefault("mqtt.keep_alive", "30s")
	v.SetDefault("mqtt.connect_timeout", "10s")
	v.SetDefault("mqtt.write_timeout", "5s")

	// API defaults
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.read_timeout", "15s")
	v.SetDefault("api.write_timeout", "15s")
	v.SetDefault("api.idle_timeout", "60s")
	v.SetDefault("api.rate_limit", 100)
	v.SetDefault("api.jwt_secret", DefaultJWTSecret)
	v.SetDefault("api.jwt_duration", "24h")
	v.SetDefault("api.cookie_name", "auth_token")
	v.SetDefault("api.cookie_secure", true)
	v.SetDefault("api.default_limit", 50)
	v.SetDefault("api.max_limit", 500)
	v.SetDefault("api.request_timeout", "5s")
	v.SetDefault("api.cors.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("api.cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("api.cors.allowed_headers", []string{"Origin", "Content-Type", "Authorization", "X-Trace-ID"})
	v.SetDefault("api.cors.exposed_headers", []string{"X-Trace-ID"})
	v.SetDefault("api.cors.allow_credentials", true)

	// WebSocket defaults
	v.SetDefault("websocket.max_connections", 1000)
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.write_timeout", "10s")
	v.SetDefault("websocket.pong_timeout", "60s")
	v.SetDefault("websocket.max_message_size", 4096)
	v.SetDefault("websocket.read_buffer_size", 1024)
	v.SetDefault("websocket.write_buffer_size", 1024)
	v.SetDefault("websocket.broadcast_buffer", 256)
	v.SetDefault("websocket.client_buffer", 256)

	// Prometheus defaults
	v.SetDefault("prometheus.enabled", true)
	v.SetDefault("prometheus.port", 9090)

	// Events defaults
	v.SetDefault("events.buffer_size", 100)
}
