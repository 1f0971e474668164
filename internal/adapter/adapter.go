package adapter

import (
	"context"
	"sync"

	"github.com/ArranJacques/paplin/internal/move"
)

// Arm status values reported by adapters.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// IArmAdapter is the southbound contract every arm transport implements.
type IArmAdapter interface {
	// Transmit sends one instruction to the device. It returns once the
	// device has accepted the instruction; it does not wait for motion.
	Transmit(ctx context.Context, ins move.Instruction) error

	// Close releases the device. Implementations send a neutral
	// instruction first when the device is still reachable.
	Close() error
}

// Describer is implemented by adapters that report the device model and
// its reachability. AdapterBase satisfies it.
type Describer interface {
	GetModel() string
	GetStatus() string
}

// AdapterBase provides common functionality for adapter implementations.
// Status is read and written concurrently once the adapter is in use, so
// after construction it is accessed only through GetStatus and SetStatus.
type AdapterBase struct {
	// ArmID identifies the arm this adapter controls
	ArmID string

	Model string

	// Status indicates the current arm status
	Status string

	statusMu sync.RWMutex
}

// GetArmID returns the arm identifier.
func (a *AdapterBase) GetArmID() string {
	return a.ArmID
}

// GetModel returns the arm model.
func (a *AdapterBase) GetModel() string {
	return a.Model
}

// GetStatus returns the arm status.
func (a *AdapterBase) GetStatus() string {
	a.statusMu.RLock()
	defer a.statusMu.RUnlock()
	return a.Status
}

// SetStatus updates the arm status.
func (a *AdapterBase) SetStatus(status string) {
	a.statusMu.Lock()
	defer a.statusMu.Unlock()
	a.Status = status
}
