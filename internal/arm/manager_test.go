package arm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ArranJacques/paplin/internal/adapter"
	"github.com/ArranJacques/paplin/internal/adapter/fake"
	"github.com/ArranJacques/paplin/internal/command"
	"github.com/ArranJacques/paplin/internal/config"
	"github.com/ArranJacques/paplin/internal/move"
)

func register(t *testing.T, m *Manager, id string) *fake.FakeAdapter {
	t.Helper()
	dev := fake.NewFakeAdapter(id)
	e := command.NewEngine(id, dev, config.LoadTimingBaseline())
	cfg := config.ArmConfig{ID: id, Model: "OWI-535", Adapter: config.AdapterFake}
	if err := m.Register(cfg, dev, e); err != nil {
		t.Fatalf("Register(%s) failed: %v", id, err)
	}
	return dev
}

func TestRegisterFirstArmBecomesActive(t *testing.T) {
	m := NewManager()
	register(t, m, "arm-01")
	register(t, m, "arm-02")

	if got := m.GetActive(); got != "arm-01" {
		t.Errorf("Expected active arm-01, got %s", got)
	}

	list := m.List()
	if len(list.Items) != 2 {
		t.Fatalf("Expected 2 arms, got %d", len(list.Items))
	}
	if list.Items[0].ID != "arm-01" || list.Items[1].ID != "arm-02" {
		t.Errorf("Expected registration order, got %s, %s", list.Items[0].ID, list.Items[1].ID)
	}
	if list.Items[0].Status != adapter.StatusOnline {
		t.Errorf("Expected status online, got %s", list.Items[0].Status)
	}
	if list.Items[0].State != command.StateIdle {
		t.Errorf("Expected state idle, got %s", list.Items[0].State)
	}
}

func TestRegisterRejectsInvalid(t *testing.T) {
	m := NewManager()
	register(t, m, "arm-01")

	dev := fake.NewFakeAdapter("arm-01")
	e := command.NewEngine("arm-01", dev, config.LoadTimingBaseline())

	if err := m.Register(config.ArmConfig{ID: "arm-01"}, dev, e); err == nil {
		t.Error("Expected duplicate registration to fail")
	}
	if err := m.Register(config.ArmConfig{ID: ""}, dev, e); err == nil {
		t.Error("Expected empty id to fail")
	}
	if err := m.Register(config.ArmConfig{ID: "arm-02"}, nil, e); err == nil {
		t.Error("Expected nil adapter to fail")
	}
}

func TestSetActive(t *testing.T) {
	m := NewManager()
	register(t, m, "arm-01")
	register(t, m, "arm-02")

	if err := m.SetActive("arm-02"); err != nil {
		t.Fatalf("SetActive() failed: %v", err)
	}
	e, id, err := m.ActiveEngine()
	if err != nil {
		t.Fatalf("ActiveEngine() failed: %v", err)
	}
	if id != "arm-02" || e.ArmID() != "arm-02" {
		t.Errorf("Expected arm-02 engine, got %s/%s", id, e.ArmID())
	}

	err = m.SetActive("arm-99")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if m.GetActive() != "arm-02" {
		t.Error("Failed SetActive must not change the selection")
	}
}

func TestEnginesAreIndependent(t *testing.T) {
	m := NewManager()
	dev1 := register(t, m, "arm-01")
	dev2 := register(t, m, "arm-02")

	e1, err := m.Engine("arm-01")
	if err != nil {
		t.Fatalf("Engine() failed: %v", err)
	}
	if err := e1.TurnLightOn(context.Background()); err != nil {
		t.Fatalf("TurnLightOn() failed: %v", err)
	}

	a1, _ := m.Get("arm-01")
	a2, _ := m.Get("arm-02")
	if !a1.LightOn || a2.LightOn {
		t.Errorf("Expected light only on arm-01, got %v/%v", a1.LightOn, a2.LightOn)
	}
	if len(dev1.Instructions()) != 1 || len(dev2.Instructions()) != 0 {
		t.Errorf("Expected one transmission on arm-01 only, got %d/%d", len(dev1.Instructions()), len(dev2.Instructions()))
	}
}

func TestGetUnknown(t *testing.T) {
	m := NewManager()

	if _, err := m.Get("arm-01"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if _, err := m.Engine("arm-01"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if _, _, err := m.ActiveEngine(); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestStatusFollowsAdapter(t *testing.T) {
	m := NewManager()
	dev := register(t, m, "arm-01")

	if err := dev.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	a, err := m.Get("arm-01")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if a.Status != adapter.StatusOffline {
		t.Errorf("Expected offline after the device closed, got %s", a.Status)
	}

	arms := m.Snapshot()["arms"].([]Arm)
	if arms[0].Status != adapter.StatusOffline {
		t.Errorf("Expected offline in snapshot, got %s", arms[0].Status)
	}
}

func TestModelFallsBackToAdapter(t *testing.T) {
	m := NewManager()
	dev := fake.NewFakeAdapter("arm-01")
	e := command.NewEngine("arm-01", dev, config.LoadTimingBaseline())
	if err := m.Register(config.ArmConfig{ID: "arm-01", Adapter: config.AdapterFake}, dev, e); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	a, _ := m.Get("arm-01")
	if a.Model != "Fake-Arm" {
		t.Errorf("Expected adapter model Fake-Arm, got %s", a.Model)
	}
}

func TestStatusReadDuringPlayback(t *testing.T) {
	m := NewManager()
	register(t, m, "arm-01")
	e, _ := m.Engine("arm-01")

	done := make(chan error, 1)
	go func() {
		done <- e.MoveShoulderUp(context.Background(), time.Millisecond)
	}()
	for i := 0; i < 100; i++ {
		if a, _ := m.Get("arm-01"); a.Status != adapter.StatusOnline {
			t.Fatalf("Expected online during playback, got %s", a.Status)
		}
	}
	if err := <-done; err != nil {
		t.Fatalf("MoveShoulderUp() failed: %v", err)
	}
}

func TestRemove(t *testing.T) {
	m := NewManager()
	dev1 := register(t, m, "arm-01")
	register(t, m, "arm-02")

	if err := m.Remove(context.Background(), "arm-01"); err != nil {
		t.Fatalf("Remove() failed: %v", err)
	}
	if m.GetActive() != "arm-02" {
		t.Errorf("Expected arm-02 to become active, got %s", m.GetActive())
	}
	if len(m.List().Items) != 1 {
		t.Errorf("Expected 1 arm left, got %d", len(m.List().Items))
	}
	if dev1.GetStatus() != adapter.StatusOffline {
		t.Error("Expected removed arm's adapter to be closed")
	}
	if dev1.Current() != move.Neutral {
		t.Errorf("Expected neutral after removal, got %v", dev1.Current())
	}
	if err := m.Remove(context.Background(), "arm-01"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestClose(t *testing.T) {
	m := NewManager()
	dev1 := register(t, m, "arm-01")
	dev2 := register(t, m, "arm-02")

	if err := m.Close(context.Background()); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	if dev1.GetStatus() != adapter.StatusOffline || dev2.GetStatus() != adapter.StatusOffline {
		t.Error("Expected all adapters closed")
	}
	if len(m.List().Items) != 0 || m.GetActive() != "" {
		t.Error("Expected empty inventory after Close")
	}
}

func TestSnapshot(t *testing.T) {
	m := NewManager()
	register(t, m, "arm-01")

	snap := m.Snapshot()
	if snap["activeArmId"] != "arm-01" {
		t.Errorf("Expected activeArmId arm-01, got %v", snap["activeArmId"])
	}
	arms, ok := snap["arms"].([]Arm)
	if !ok || len(arms) != 1 {
		t.Errorf("Expected one arm in snapshot, got %v", snap["arms"])
	}
}
