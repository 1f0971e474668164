package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/ArranJacques/paplin/internal/adapter"
	"github.com/ArranJacques/paplin/internal/adapter/fake"
	"github.com/ArranJacques/paplin/internal/adapter/usb"
	"github.com/ArranJacques/paplin/internal/arm"
	"github.com/ArranJacques/paplin/internal/audit"
	"github.com/ArranJacques/paplin/internal/command"
	"github.com/ArranJacques/paplin/internal/config"
	"github.com/ArranJacques/paplin/internal/telemetry"
)

// app holds the components shared by every command.
type app struct {
	cfg   *config.Config
	hub   *telemetry.Hub
	audit *audit.Logger
	arms  *arm.Manager
}

// loadDotEnv loads environment variables from path. Missing files are ignored.
func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func loadConfig() (*config.Config, error) {
	if err := loadDotEnv(envFile); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}
	if cfgFile != "" {
		return config.LoadFile(cfgFile)
	}
	return config.Load()
}

// newApp opens the arms named in only, or every configured arm when only is empty.
func newApp(cfg *config.Config, only ...string) (*app, error) {
	auditLogger, err := audit.NewLogger(cfg.Audit)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audit logger: %w", err)
	}

	rt := &app{
		cfg:   cfg,
		hub:   telemetry.NewHub(&cfg.Timing),
		audit: auditLogger,
		arms:  arm.NewManager(),
	}
	rt.hub.SetSnapshotProvider(rt.arms.Snapshot)

	for _, a := range cfg.Arms {
		if len(only) > 0 && !contains(only, a.ID) {
			continue
		}
		dev, err := openAdapter(a, cfg.Timing.TransmitTimeout)
		if err != nil {
			rt.close()
			return nil, fmt.Errorf("arm %s: %w", a.ID, err)
		}
		engine := command.NewEngine(a.ID, dev, &cfg.Timing)
		engine.SetAuditLogger(auditLogger)
		engine.SetTelemetry(rt.hub)
		if err := rt.arms.Register(a, dev, engine); err != nil {
			_ = dev.Close()
			rt.close()
			return nil, err
		}
		log.Printf("Arm %s ready (%s, adapter %s)", a.ID, a.Model, a.Adapter)
	}

	if len(rt.arms.List().Items) == 0 {
		rt.close()
		return nil, fmt.Errorf("no arm matches %v: %w", only, arm.ErrNotFound)
	}
	return rt, nil
}

func openAdapter(a config.ArmConfig, timeout time.Duration) (adapter.IArmAdapter, error) {
	switch a.Adapter {
	case config.AdapterFake:
		return fake.NewFakeAdapter(a.ID), nil
	case config.AdapterUSB:
		dev, err := usb.Open(a.ID, usb.Options{
			VendorID:  uint16(a.VendorID),
			ProductID: uint16(a.ProductID),
			Model:     a.Model,
			Timeout:   timeout,
		})
		if err != nil {
			return nil, err
		}
		return dev, nil
	default:
		return nil, fmt.Errorf("unknown adapter %q", a.Adapter)
	}
}

// engine returns the engine for the --arm flag, or the active arm.
func (rt *app) engine() (*command.Engine, error) {
	if armID != "" {
		return rt.arms.Engine(armID)
	}
	e, _, err := rt.arms.ActiveEngine()
	return e, err
}

func (rt *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rt.arms.Close(ctx); err != nil {
		log.Printf("Error closing arms: %v", err)
	}
	rt.hub.Stop()
	if err := rt.audit.Close(); err != nil {
		log.Printf("Error closing audit logger: %v", err)
	}
}

// targetArms returns the arm ids a control command opens.
func targetArms(cfg *config.Config) []string {
	if armID != "" {
		return []string{armID}
	}
	if len(cfg.Arms) > 0 {
		return []string{cfg.Arms[0].ID}
	}
	return nil
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
