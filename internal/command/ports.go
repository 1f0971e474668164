package command

import (
	"context"
	"errors"
	"time"

	"github.com/ArranJacques/paplin/internal/move"
	"github.com/ArranJacques/paplin/internal/sequencer"
	"github.com/ArranJacques/paplin/internal/telemetry"
)

// ErrSequenceInProgress rejects a play or light change while a sequence is running.
var ErrSequenceInProgress = errors.New("SEQUENCE_IN_PROGRESS")

// ErrSequenceStopped is the result of a run ended by Stop or StopMovement.
var ErrSequenceStopped = errors.New("SEQUENCE_STOPPED")

// Audit actions.
const (
	ActionPlay         = "play"
	ActionLight        = "light"
	ActionStop         = "stop"
	ActionStopMovement = "stopMovement"
)

// AuditLogger records engine actions.
type AuditLogger interface {
	LogControlAction(ctx context.Context, action, armID string, params map[string]interface{}, latency time.Duration, err error)
}

// TelemetryPublisher receives engine events.
type TelemetryPublisher interface {
	PublishArm(armID string, event telemetry.Event) error
}

// EnginePort is what the API and CLI need from an engine.
type EnginePort interface {
	Start(ctx context.Context, seq move.Sequence) (*Run, error)
	Play(ctx context.Context, seq move.Sequence) error
	Move(ctx context.Context, motion move.Motion, d time.Duration) error
	Concurrent(ctx context.Context, build func(*sequencer.Builder)) error
	TurnLightOn(ctx context.Context) error
	TurnLightOff(ctx context.Context) error
	StopMovement(ctx context.Context)
	Stop(ctx context.Context)
	Status() Status
}

var _ EnginePort = (*Engine)(nil)
