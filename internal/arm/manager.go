package arm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ArranJacques/paplin/internal/adapter"
	"github.com/ArranJacques/paplin/internal/command"
	"github.com/ArranJacques/paplin/internal/config"
)

// ErrNotFound indicates a requested arm is not registered.
var ErrNotFound = errors.New("NOT_FOUND")

// Arm is the inventory view of one arm.
type Arm struct {
	ID       string        `json:"id"`
	Model    string        `json:"model"`
	Adapter  string        `json:"adapter"`
	Status   string        `json:"status"`
	State    command.State `json:"state"`
	LightOn  bool          `json:"lightOn"`
	RunID    string        `json:"runId,omitempty"`
	LastSeen time.Time     `json:"lastSeen,omitempty"`
}

// ArmList is the response format for GET /arms.
type ArmList struct {
	ActiveArmID string `json:"activeArmId"`
	Items       []Arm  `json:"items"`
}

type entry struct {
	cfg      config.ArmConfig
	lastSeen time.Time
	adapter  adapter.IArmAdapter
	engine   *command.Engine
}

// view reports the device status as the adapter last saw it. Adapters that
// do not track reachability are reported online.
func (e *entry) view() Arm {
	s := e.engine.Status()
	model, status := e.cfg.Model, adapter.StatusOnline
	if d, ok := e.adapter.(adapter.Describer); ok {
		status = d.GetStatus()
		if model == "" {
			model = d.GetModel()
		}
	}
	return Arm{
		ID:       e.cfg.ID,
		Model:    model,
		Adapter:  e.cfg.Adapter,
		Status:   status,
		State:    s.State,
		LightOn:  s.LightOn,
		RunID:    s.RunID,
		LastSeen: e.lastSeen,
	}
}

// Manager manages arm inventory and active selection.
type Manager struct {
	mu          sync.RWMutex
	arms        map[string]*entry
	order       []string
	activeArmID string
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{arms: make(map[string]*entry)}
}

// Register adds an arm with its adapter and engine. The first arm becomes active.
func (m *Manager) Register(cfg config.ArmConfig, a adapter.IArmAdapter, e *command.Engine) error {
	if cfg.ID == "" {
		return fmt.Errorf("arm id must not be empty")
	}
	if a == nil || e == nil {
		return fmt.Errorf("arm %s: adapter and engine are required", cfg.ID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.arms[cfg.ID]; exists {
		return fmt.Errorf("arm %s already registered", cfg.ID)
	}

	m.arms[cfg.ID] = &entry{
		cfg:      cfg,
		lastSeen: time.Now(),
		adapter:  a,
		engine:   e,
	}
	m.order = append(m.order, cfg.ID)

	if m.activeArmID == "" {
		m.activeArmID = cfg.ID
	}
	return nil
}

// SetActive sets the active arm with existence check.
func (m *Manager) SetActive(armID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.arms[armID]; !exists {
		return fmt.Errorf("arm %s: %w", armID, ErrNotFound)
	}
	m.activeArmID = armID
	return nil
}

// GetActive returns the active arm ID.
func (m *Manager) GetActive() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activeArmID
}

// ActiveEngine returns the engine of the active arm.
func (m *Manager) ActiveEngine() (*command.Engine, string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.activeArmID == "" {
		return nil, "", fmt.Errorf("no active arm: %w", ErrNotFound)
	}
	return m.arms[m.activeArmID].engine, m.activeArmID, nil
}

// Engine returns the engine for an arm.
func (m *Manager) Engine(armID string) (*command.Engine, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, exists := m.arms[armID]
	if !exists {
		return nil, fmt.Errorf("arm %s: %w", armID, ErrNotFound)
	}
	return e.engine, nil
}

// Get returns a specific arm by ID.
func (m *Manager) Get(armID string) (Arm, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, exists := m.arms[armID]
	if !exists {
		return Arm{}, fmt.Errorf("arm %s: %w", armID, ErrNotFound)
	}
	return e.view(), nil
}

// List returns every arm in registration order.
func (m *Manager) List() *ArmList {
	m.mu.RLock()
	defer m.mu.RUnlock()

	items := make([]Arm, 0, len(m.order))
	for _, id := range m.order {
		items = append(items, m.arms[id].view())
	}
	return &ArmList{ActiveArmID: m.activeArmID, Items: items}
}

// Remove stops an arm, releases its device and drops it from the inventory.
func (m *Manager) Remove(ctx context.Context, armID string) error {
	m.mu.Lock()
	e, exists := m.arms[armID]
	if !exists {
		m.mu.Unlock()
		return fmt.Errorf("arm %s: %w", armID, ErrNotFound)
	}
	delete(m.arms, armID)
	for i, id := range m.order {
		if id == armID {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	if m.activeArmID == armID {
		m.activeArmID = ""
		if len(m.order) > 0 {
			m.activeArmID = m.order[0]
		}
	}
	m.mu.Unlock()

	e.engine.Stop(ctx)
	return e.adapter.Close()
}

// Close stops every arm and releases every device.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	entries := make([]*entry, 0, len(m.order))
	for _, id := range m.order {
		entries = append(entries, m.arms[id])
	}
	m.arms = make(map[string]*entry)
	m.order = nil
	m.activeArmID = ""
	m.mu.Unlock()

	var errs []error
	for _, e := range entries {
		e.engine.Stop(ctx)
		if err := e.adapter.Close(); err != nil {
			errs = append(errs, fmt.Errorf("arm %s: %w", e.cfg.ID, err))
		}
	}
	return errors.Join(errs...)
}

// Snapshot returns the inventory in the shape of the telemetry ready event.
func (m *Manager) Snapshot() map[string]interface{} {
	list := m.List()
	return map[string]interface{}{
		"activeArmId": list.ActiveArmID,
		"arms":        list.Items,
	}
}
