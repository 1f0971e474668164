package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	t.Setenv("PAPLIN_CONFIG", "")

	config, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if config.Server.Addr != ":8080" {
		t.Errorf("Server.Addr = %q, want :8080", config.Server.Addr)
	}
	if config.Timing.HeartbeatInterval != 15*time.Second {
		t.Errorf("HeartbeatInterval = %v, want 15s", config.Timing.HeartbeatInterval)
	}
	if len(config.Arms) != 1 || config.Arms[0].ID != "arm-01" {
		t.Errorf("Arms = %+v, want single arm-01", config.Arms)
	}
	if config.Auth.Enabled {
		t.Error("auth should be disabled by default")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("PAPLIN_CONFIG", "")
	t.Setenv("PAPLIN_SERVER_ADDR", "127.0.0.1:9000")
	t.Setenv("PAPLIN_TIMING_HEARTBEAT_INTERVAL", "20s")
	t.Setenv("PAPLIN_TIMING_TRANSMIT_TIMEOUT", "250ms")
	t.Setenv("PAPLIN_TIMING_MAX_SLICE_DURATION", "5s")
	t.Setenv("PAPLIN_TIMING_EVENT_BUFFER_SIZE", "100")
	t.Setenv("PAPLIN_ARM_ADAPTER", "FAKE")
	t.Setenv("PAPLIN_AUDIT_DIR", "/tmp/paplin-audit")

	config, err := Load()
	if err != nil {
		t.Fatalf("Load() with env overrides failed: %v", err)
	}

	if config.Server.Addr != "127.0.0.1:9000" {
		t.Errorf("Server.Addr = %q, want 127.0.0.1:9000", config.Server.Addr)
	}
	if config.Timing.HeartbeatInterval != 20*time.Second {
		t.Errorf("HeartbeatInterval = %v, want 20s", config.Timing.HeartbeatInterval)
	}
	if config.Timing.TransmitTimeout != 250*time.Millisecond {
		t.Errorf("TransmitTimeout = %v, want 250ms", config.Timing.TransmitTimeout)
	}
	if config.Timing.MaxSliceDuration != 5*time.Second {
		t.Errorf("MaxSliceDuration = %v, want 5s", config.Timing.MaxSliceDuration)
	}
	if config.Timing.EventBufferSize != 100 {
		t.Errorf("EventBufferSize = %d, want 100", config.Timing.EventBufferSize)
	}
	if config.Arms[0].Adapter != AdapterFake {
		t.Errorf("Adapter = %q, want fake", config.Arms[0].Adapter)
	}
	if config.Audit.Dir != "/tmp/paplin-audit" {
		t.Errorf("Audit.Dir = %q, want /tmp/paplin-audit", config.Audit.Dir)
	}
}

func TestLoadIgnoresUnparsableEnv(t *testing.T) {
	t.Setenv("PAPLIN_CONFIG", "")
	t.Setenv("PAPLIN_TIMING_HEARTBEAT_INTERVAL", "soon")
	t.Setenv("PAPLIN_TIMING_EVENT_BUFFER_SIZE", "many")

	config, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if config.Timing.HeartbeatInterval != 15*time.Second {
		t.Errorf("HeartbeatInterval = %v, want baseline 15s", config.Timing.HeartbeatInterval)
	}
	if config.Timing.EventBufferSize != 50 {
		t.Errorf("EventBufferSize = %d, want baseline 50", config.Timing.EventBufferSize)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "paplin.yaml")
	data := `
server:
  addr: ":9090"
timing:
  heartbeatInterval: 10s
  maxSliceDuration: 2s
arms:
  - id: left
    model: OWI-535
    adapter: fake
  - id: right
    model: OWI-535
    adapter: usb
    vendorId: 4711
    productId: 1
auth:
  enabled: true
  algorithm: HS256
  secret: s3cret
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	config, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}

	if config.Server.Addr != ":9090" {
		t.Errorf("Server.Addr = %q, want :9090", config.Server.Addr)
	}
	// Unset keys keep their defaults
	if config.Server.ReadTimeout != 30*time.Second {
		t.Errorf("ReadTimeout = %v, want 30s", config.Server.ReadTimeout)
	}
	if config.Timing.HeartbeatInterval != 10*time.Second {
		t.Errorf("HeartbeatInterval = %v, want 10s", config.Timing.HeartbeatInterval)
	}
	if config.Timing.MaxSliceDuration != 2*time.Second {
		t.Errorf("MaxSliceDuration = %v, want 2s", config.Timing.MaxSliceDuration)
	}
	if config.Timing.TransmitTimeout != time.Second {
		t.Errorf("TransmitTimeout = %v, want 1s", config.Timing.TransmitTimeout)
	}
	if len(config.Arms) != 2 {
		t.Fatalf("len(Arms) = %d, want 2", len(config.Arms))
	}
	right, ok := config.Arm("right")
	if !ok {
		t.Fatal("arm right not found")
	}
	if right.VendorID != 4711 || right.ProductID != 1 {
		t.Errorf("right = %+v, want vendor 4711 product 1", right)
	}
	if !config.Auth.Enabled || config.Auth.Secret != "s3cret" {
		t.Errorf("Auth = %+v, want enabled HS256 with secret", config.Auth)
	}
}

func TestLoadFromEnvPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	if err := os.WriteFile(path, []byte("server:\n  addr: \":7070\"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("PAPLIN_CONFIG", path)

	config, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if config.Server.Addr != ":7070" {
		t.Errorf("Server.Addr = %q, want :7070", config.Server.Addr)
	}
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("server: [unclosed"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadFile(bad); err == nil {
		t.Error("expected error for malformed YAML")
	}

	invalid := filepath.Join(dir, "invalid.yaml")
	if err := os.WriteFile(invalid, []byte("arms:\n  - id: a\n    adapter: serial\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadFile(invalid); err == nil {
		t.Error("expected validation error for unknown adapter")
	}

	slow := filepath.Join(dir, "slow.yaml")
	if err := os.WriteFile(slow, []byte("timing:\n  maxSliceDuration: 1h\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadFile(slow); err == nil {
		t.Error("expected validation error for a max slice duration over 10m")
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("PAPLIN_TEST_STRING", "value")
	t.Setenv("PAPLIN_TEST_DURATION", "3s")
	t.Setenv("PAPLIN_TEST_INT", "7")
	t.Setenv("PAPLIN_TEST_BOOL", "true")

	if got := GetEnvVar("PAPLIN_TEST_STRING", "default"); got != "value" {
		t.Errorf("GetEnvVar = %q, want value", got)
	}
	if got := GetEnvVar("PAPLIN_TEST_UNSET", "default"); got != "default" {
		t.Errorf("GetEnvVar = %q, want default", got)
	}
	if got := GetEnvDuration("PAPLIN_TEST_DURATION", time.Second); got != 3*time.Second {
		t.Errorf("GetEnvDuration = %v, want 3s", got)
	}
	if got := GetEnvInt("PAPLIN_TEST_INT", 1); got != 7 {
		t.Errorf("GetEnvInt = %d, want 7", got)
	}
	if got := GetEnvBool("PAPLIN_TEST_BOOL", false); !got {
		t.Error("GetEnvBool = false, want true")
	}
}
