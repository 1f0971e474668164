package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

// DefaultFile is read when PAPLIN_CONFIG is unset and the file exists.
const DefaultFile = "paplin.yaml"

// Load merges Default() + optional YAML file (PAPLIN_CONFIG or paplin.yaml) + PAPLIN_* env overrides.
func Load() (*Config, error) {
	path := os.Getenv("PAPLIN_CONFIG")
	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}
	return LoadFile(path)
}

// LoadFile is Load with an explicit file path. An empty path skips the file layer.
func LoadFile(path string) (*Config, error) {
	config := Default()

	if path != "" {
		if err := loadFromFile(config, path); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := Validate(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// loadFromFile overlays YAML values onto config. Keys absent from the file keep their current value.
func loadFromFile(config *Config, filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, config)
}

// applyEnvOverrides applies PAPLIN_* environment variables to the config.
// Values that fail to parse are ignored.
func applyEnvOverrides(config *Config) {
	config.Server.Addr = GetEnvVar("PAPLIN_SERVER_ADDR", config.Server.Addr)

	// Timing
	t := &config.Timing
	t.HeartbeatInterval = GetEnvDuration("PAPLIN_TIMING_HEARTBEAT_INTERVAL", t.HeartbeatInterval)
	t.HeartbeatJitter = GetEnvDuration("PAPLIN_TIMING_HEARTBEAT_JITTER", t.HeartbeatJitter)
	t.HeartbeatTimeout = GetEnvDuration("PAPLIN_TIMING_HEARTBEAT_TIMEOUT", t.HeartbeatTimeout)
	t.TransmitTimeout = GetEnvDuration("PAPLIN_TIMING_TRANSMIT_TIMEOUT", t.TransmitTimeout)
	t.MaxSliceDuration = GetEnvDuration("PAPLIN_TIMING_MAX_SLICE_DURATION", t.MaxSliceDuration)
	t.EventBufferSize = GetEnvInt("PAPLIN_TIMING_EVENT_BUFFER_SIZE", t.EventBufferSize)
	t.EventBufferRetention = GetEnvDuration("PAPLIN_TIMING_EVENT_BUFFER_RETENTION", t.EventBufferRetention)

	// Every configured arm switches adapter, e.g. PAPLIN_ARM_ADAPTER=fake on a machine without the device.
	if val := os.Getenv("PAPLIN_ARM_ADAPTER"); val != "" {
		for i := range config.Arms {
			config.Arms[i].Adapter = strings.ToLower(val)
		}
	}

	// Audit
	config.Audit.Dir = GetEnvVar("PAPLIN_AUDIT_DIR", config.Audit.Dir)
	config.Audit.MaxSizeMB = GetEnvInt("PAPLIN_AUDIT_MAX_SIZE_MB", config.Audit.MaxSizeMB)

	// Auth
	config.Auth.Enabled = GetEnvBool("PAPLIN_AUTH_ENABLED", config.Auth.Enabled)
	config.Auth.Algorithm = GetEnvVar("PAPLIN_AUTH_ALGORITHM", config.Auth.Algorithm)
	config.Auth.Secret = GetEnvVar("PAPLIN_AUTH_SECRET", config.Auth.Secret)
	config.Auth.PublicKeyPEM = GetEnvVar("PAPLIN_AUTH_PUBLIC_KEY_PEM", config.Auth.PublicKeyPEM)
}

// GetEnvVar returns the value of an environment variable with a default.
func GetEnvVar(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvDuration returns the value of an environment variable as a duration with a default.
func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// GetEnvInt returns the value of an environment variable as an int with a default.
func GetEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// GetEnvBool returns the value of an environment variable as a bool with a default.
func GetEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
