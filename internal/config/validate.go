package config

import (
	"fmt"
	"time"
)

// Validate checks the merged configuration.
func Validate(config *Config) error {
	if config == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if config.Server.Addr == "" {
		return fmt.Errorf("server addr must not be empty")
	}

	if err := ValidateTimingComplete(&config.Timing); err != nil {
		return fmt.Errorf("timing validation failed: %w", err)
	}

	if err := validateArms(config.Arms); err != nil {
		return fmt.Errorf("arm validation failed: %w", err)
	}

	if err := validateAudit(&config.Audit); err != nil {
		return fmt.Errorf("audit validation failed: %w", err)
	}

	if err := validateAuth(&config.Auth); err != nil {
		return fmt.Errorf("auth validation failed: %w", err)
	}

	return nil
}

// ValidateTiming enforces the timing rules.
func ValidateTiming(config *TimingConfig) error {
	if config == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if err := validateHeartbeat(config); err != nil {
		return fmt.Errorf("heartbeat validation failed: %w", err)
	}

	if config.TransmitTimeout <= 0 {
		return fmt.Errorf("transmit timeout must be positive, got %v", config.TransmitTimeout)
	}
	if config.MaxSliceDuration <= 0 {
		return fmt.Errorf("max slice duration must be positive, got %v", config.MaxSliceDuration)
	}

	if err := validateEventBuffer(config); err != nil {
		return fmt.Errorf("event buffer validation failed: %w", err)
	}

	return nil
}

// validateHeartbeat validates heartbeat timing parameters.
func validateHeartbeat(config *TimingConfig) error {
	if config.HeartbeatInterval <= 0 {
		return fmt.Errorf("heartbeat interval must be positive, got %v", config.HeartbeatInterval)
	}

	// Jitter is at most half the interval
	maxJitter := config.HeartbeatInterval / 2
	if config.HeartbeatJitter < 0 {
		return fmt.Errorf("heartbeat jitter must be non-negative, got %v", config.HeartbeatJitter)
	}
	if config.HeartbeatJitter > maxJitter {
		return fmt.Errorf("heartbeat jitter %v exceeds 50%% of interval %v", config.HeartbeatJitter, config.HeartbeatInterval)
	}

	if config.HeartbeatTimeout < config.HeartbeatInterval {
		return fmt.Errorf("heartbeat timeout %v must be >= interval %v", config.HeartbeatTimeout, config.HeartbeatInterval)
	}

	return nil
}

// validateEventBuffer validates event buffer parameters.
func validateEventBuffer(config *TimingConfig) error {
	if config.EventBufferSize <= 0 {
		return fmt.Errorf("event buffer size must be positive, got %d", config.EventBufferSize)
	}
	if config.EventBufferRetention <= 0 {
		return fmt.Errorf("event buffer retention must be positive, got %v", config.EventBufferRetention)
	}
	return nil
}

// ValidateTimingConstraints rejects values that are legal but unreasonable for a hobby-grade arm.
func ValidateTimingConstraints(config *TimingConfig) error {
	minTimeout := 10 * time.Millisecond
	maxTimeout := 30 * time.Second

	if config.TransmitTimeout < minTimeout || config.TransmitTimeout > maxTimeout {
		return fmt.Errorf("transmit timeout %v is outside reasonable range [%v, %v]",
			config.TransmitTimeout, minTimeout, maxTimeout)
	}

	if config.MaxSliceDuration > 10*time.Minute {
		return fmt.Errorf("max slice duration %v exceeds 10m", config.MaxSliceDuration)
	}

	return nil
}

// ValidateTimingComplete performs complete timing validation including constraints.
func ValidateTimingComplete(config *TimingConfig) error {
	if err := ValidateTiming(config); err != nil {
		return err
	}
	return ValidateTimingConstraints(config)
}

func validateArms(arms []ArmConfig) error {
	if len(arms) == 0 {
		return fmt.Errorf("at least one arm must be configured")
	}

	seen := make(map[string]bool, len(arms))
	for _, a := range arms {
		if a.ID == "" {
			return fmt.Errorf("arm id must not be empty")
		}
		if seen[a.ID] {
			return fmt.Errorf("duplicate arm id %s", a.ID)
		}
		seen[a.ID] = true

		switch a.Adapter {
		case AdapterFake:
		case AdapterUSB:
			if a.VendorID <= 0 || a.VendorID > 0xffff {
				return fmt.Errorf("arm %s: vendor id %#x is outside [0x1, 0xffff]", a.ID, a.VendorID)
			}
			if a.ProductID < 0 || a.ProductID > 0xffff {
				return fmt.Errorf("arm %s: product id %#x is outside [0x0, 0xffff]", a.ID, a.ProductID)
			}
		default:
			return fmt.Errorf("arm %s: invalid adapter %q, must be one of: %s, %s", a.ID, a.Adapter, AdapterUSB, AdapterFake)
		}
	}
	return nil
}

func validateAudit(config *AuditConfig) error {
	if config.Dir == "" {
		return fmt.Errorf("audit dir must not be empty")
	}
	if config.MaxSizeMB <= 0 {
		return fmt.Errorf("audit max size must be positive, got %d", config.MaxSizeMB)
	}
	if config.MaxBackups < 0 || config.MaxAgeDays < 0 {
		return fmt.Errorf("audit retention must be non-negative, got backups=%d age=%d", config.MaxBackups, config.MaxAgeDays)
	}
	return nil
}

func validateAuth(config *AuthConfig) error {
	if !config.Enabled {
		return nil
	}
	switch config.Algorithm {
	case AlgorithmHS256:
		if config.Secret == "" {
			return fmt.Errorf("HS256 requires a secret")
		}
	case AlgorithmRS256:
		if config.PublicKeyPEM == "" {
			return fmt.Errorf("RS256 requires a public key")
		}
	default:
		return fmt.Errorf("invalid algorithm %s, must be one of: %s, %s", config.Algorithm, AlgorithmHS256, AlgorithmRS256)
	}
	return nil
}
