package config

import "time"

// Adapter kinds accepted in ArmConfig.Adapter.
const (
	AdapterUSB  = "usb"
	AdapterFake = "fake"
)

// Signing algorithms accepted in AuthConfig.Algorithm.
const (
	AlgorithmHS256 = "HS256"
	AlgorithmRS256 = "RS256"
)

// Config is the complete runtime configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Timing TimingConfig `yaml:"timing"`
	Arms   []ArmConfig  `yaml:"arms"`
	Audit  AuditConfig  `yaml:"audit"`
	Auth   AuthConfig   `yaml:"auth"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	IdleTimeout  time.Duration `yaml:"idleTimeout"`
}

// ArmConfig describes one attached arm.
type ArmConfig struct {
	ID        string `yaml:"id"`
	Model     string `yaml:"model"`
	Adapter   string `yaml:"adapter"`
	VendorID  int    `yaml:"vendorId"`
	ProductID int    `yaml:"productId"`
}

// AuditConfig configures the rotated audit log.
type AuditConfig struct {
	Dir        string `yaml:"dir"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
	Compress   bool   `yaml:"compress"`
}

// AuthConfig configures bearer token verification.
type AuthConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Algorithm    string `yaml:"algorithm"`
	Secret       string `yaml:"secret"`
	PublicKeyPEM string `yaml:"publicKeyPEM"`
}

// Default returns the configuration used when no file or environment overrides exist.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		Timing: *LoadTimingBaseline(),
		Arms: []ArmConfig{
			{ID: "arm-01", Model: "OWI-535", Adapter: AdapterUSB, VendorID: 0x1267},
		},
		Audit: AuditConfig{
			Dir:        "logs",
			MaxSizeMB:  10,
			MaxBackups: 5,
			MaxAgeDays: 30,
			Compress:   true,
		},
		Auth: AuthConfig{
			Enabled:   false,
			Algorithm: AlgorithmHS256,
		},
	}
}

// Arm returns the configuration for the arm with the given id.
func (c *Config) Arm(id string) (ArmConfig, bool) {
	for _, a := range c.Arms {
		if a.ID == id {
			return a, true
		}
	}
	return ArmConfig{}, false
}
