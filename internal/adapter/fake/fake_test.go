package fake

import (
	"context"
	"errors"
	"testing"

	"github.com/ArranJacques/paplin/internal/adapter"
	"github.com/ArranJacques/paplin/internal/adaptertest"
	"github.com/ArranJacques/paplin/internal/move"
)

func TestFakeAdapterConformance(t *testing.T) {
	adaptertest.RunConformance(t, func() adapter.IArmAdapter {
		return NewFakeAdapter("fake-arm-01")
	}, adaptertest.Capabilities{Name: "fake"})
}

func TestFakeAdapterRecordsTransmissions(t *testing.T) {
	a := NewFakeAdapter("arm")
	ctx := context.Background()

	if err := a.Transmit(ctx, move.Must(move.ShoulderUp)); err != nil {
		t.Fatalf("Transmit failed: %v", err)
	}
	if err := a.Transmit(ctx, move.Halt(true)); err != nil {
		t.Fatalf("Transmit failed: %v", err)
	}

	got := a.Instructions()
	want := []move.Instruction{{Magnitude: 64}, {FlagsB: 1}}
	if len(got) != len(want) {
		t.Fatalf("Expected %d transmissions, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Transmission %d: expected %v, got %v", i, want[i], got[i])
		}
	}
	if a.Current() != move.Halt(true) {
		t.Errorf("Expected current instruction %v, got %v", move.Halt(true), a.Current())
	}
}

func TestFakeAdapterErrorSimulation(t *testing.T) {
	tests := []struct {
		errorType string
		want      error
	}{
		{"INVALID_RANGE", adapter.ErrInvalidRange},
		{"BUSY", adapter.ErrBusy},
		{"UNAVAILABLE", adapter.ErrUnavailable},
		{"INTERNAL", adapter.ErrInternal},
	}

	for _, tt := range tests {
		t.Run(tt.errorType, func(t *testing.T) {
			a := NewFakeAdapter("arm")
			a.SetErrorSimulation(tt.errorType)

			err := a.Transmit(context.Background(), move.Neutral)
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}

			a.DisableErrorSimulation()
			if err := a.Transmit(context.Background(), move.Neutral); err != nil {
				t.Errorf("Expected success after disabling simulation, got %v", err)
			}
		})
	}
}

func TestFakeAdapterFailAfter(t *testing.T) {
	a := NewFakeAdapter("arm")
	a.FailAfter(2, "BUSY")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := a.Transmit(ctx, move.Neutral); err != nil {
			t.Fatalf("Transmit %d failed early: %v", i, err)
		}
	}
	if err := a.Transmit(ctx, move.Neutral); !errors.Is(err, adapter.ErrBusy) {
		t.Errorf("Expected BUSY on third transmit, got %v", err)
	}
}

func TestFakeAdapterOnTransmitHook(t *testing.T) {
	a := NewFakeAdapter("arm")
	var seen []move.Instruction
	a.OnTransmit = func(ins move.Instruction) { seen = append(seen, ins) }

	_ = a.Transmit(context.Background(), move.Must(move.GripOpen))

	if len(seen) != 1 || seen[0] != move.Must(move.GripOpen) {
		t.Errorf("Expected hook to observe grip-open, got %v", seen)
	}
}
