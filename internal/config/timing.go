package config

import "time"

// TimingConfig holds the timing knobs shared by the engine, telemetry hub and API.
type TimingConfig struct {
	// Telemetry heartbeat
	HeartbeatInterval time.Duration `yaml:"heartbeatInterval" json:"heartbeatInterval"`
	HeartbeatJitter   time.Duration `yaml:"heartbeatJitter" json:"heartbeatJitter"`
	HeartbeatTimeout  time.Duration `yaml:"heartbeatTimeout" json:"heartbeatTimeout"`

	// Upper bound for a single device transmission.
	TransmitTimeout time.Duration `yaml:"transmitTimeout" json:"transmitTimeout"`

	// Longest duration accepted for one requested motion at the API/CLI boundary.
	MaxSliceDuration time.Duration `yaml:"maxSliceDuration" json:"maxSliceDuration"`

	// Telemetry replay buffer
	EventBufferSize      int           `yaml:"eventBufferSize" json:"eventBufferSize"`
	EventBufferRetention time.Duration `yaml:"eventBufferRetention" json:"eventBufferRetention"`
}

// LoadTimingBaseline returns the baseline timing values.
func LoadTimingBaseline() *TimingConfig {
	return &TimingConfig{
		HeartbeatInterval: 15 * time.Second,
		HeartbeatJitter:   2 * time.Second,
		HeartbeatTimeout:  45 * time.Second,

		TransmitTimeout:  time.Second,
		MaxSliceDuration: 30 * time.Second,

		EventBufferSize:      50,
		EventBufferRetention: 1 * time.Hour,
	}
}
