// Package fake provides an in-memory arm adapter for tests and dry runs.
//
// It records every instruction it receives with the time it arrived and can
// be told to fail with any normalized error class.
package fake

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ArranJacques/paplin/internal/adapter"
	"github.com/ArranJacques/paplin/internal/move"
)

// Transmission is one recorded instruction.
type Transmission struct {
	Instruction move.Instruction
	At          time.Time
}

// FakeAdapter implements IArmAdapter in memory.
type FakeAdapter struct {
	adapter.AdapterBase

	mu      sync.Mutex
	sent    []Transmission
	current move.Instruction
	closed  bool

	// Error simulation
	simulateErrors bool
	errorType      string
	failAfter      int

	// OnTransmit, when set, runs after an instruction has been recorded.
	OnTransmit func(ins move.Instruction)
}

// NewFakeAdapter creates a fake adapter for armID.
func NewFakeAdapter(armID string) *FakeAdapter {
	return &FakeAdapter{
		AdapterBase: adapter.AdapterBase{
			ArmID:  armID,
			Model:  "Fake-Arm",
			Status: adapter.StatusOnline,
		},
		failAfter: -1,
	}
}

// Transmit records ins as the instruction the device now holds.
func (f *FakeAdapter) Transmit(ctx context.Context, ins move.Instruction) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return adapter.NormalizeVendorError(fmt.Errorf("UNAVAILABLE: device closed"), nil)
	}
	if f.shouldFail() {
		err := f.getSimulatedError()
		f.mu.Unlock()
		return err
	}
	if _, err := ins.Bytes(); err != nil {
		f.mu.Unlock()
		return adapter.NormalizeVendorError(err, ins)
	}

	f.sent = append(f.sent, Transmission{Instruction: ins, At: time.Now()})
	f.current = ins
	hook := f.OnTransmit
	f.mu.Unlock()

	if hook != nil {
		hook(ins)
	}
	return nil
}

// Close marks the device released after sending a neutral instruction.
func (f *FakeAdapter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil
	}
	f.sent = append(f.sent, Transmission{Instruction: move.Neutral, At: time.Now()})
	f.current = move.Neutral
	f.closed = true
	f.SetStatus(adapter.StatusOffline)
	return nil
}

func (f *FakeAdapter) shouldFail() bool {
	if !f.simulateErrors {
		return false
	}
	if f.failAfter < 0 {
		return true
	}
	return len(f.sent) >= f.failAfter
}

// Helper methods for testing

// SetErrorSimulation makes every following Transmit fail with errorType.
func (f *FakeAdapter) SetErrorSimulation(errorType string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.simulateErrors = true
	f.errorType = errorType
	f.failAfter = -1
}

// FailAfter lets n more successful transmissions through before failing
// with errorType.
func (f *FakeAdapter) FailAfter(n int, errorType string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.simulateErrors = true
	f.errorType = errorType
	f.failAfter = len(f.sent) + n
}

// DisableErrorSimulation disables error simulation.
func (f *FakeAdapter) DisableErrorSimulation() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.simulateErrors = false
	f.errorType = ""
	f.failAfter = -1
}

func (f *FakeAdapter) getSimulatedError() error {
	var err error
	switch f.errorType {
	case "INVALID_RANGE":
		err = fmt.Errorf("INVALID_RANGE: simulated range error")
	case "BUSY":
		err = fmt.Errorf("BUSY: simulated busy error")
	case "UNAVAILABLE":
		err = fmt.Errorf("UNAVAILABLE: simulated unavailable error")
	default:
		err = fmt.Errorf("INTERNAL: simulated internal error")
	}
	return adapter.NormalizeVendorError(err, nil)
}

// Transmissions returns a copy of everything sent so far.
func (f *FakeAdapter) Transmissions() []Transmission {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Transmission, len(f.sent))
	copy(out, f.sent)
	return out
}

// Instructions returns the instructions sent so far, in order.
func (f *FakeAdapter) Instructions() []move.Instruction {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]move.Instruction, len(f.sent))
	for i, tx := range f.sent {
		out[i] = tx.Instruction
	}
	return out
}

// Current returns the instruction the device currently holds.
func (f *FakeAdapter) Current() move.Instruction {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}
