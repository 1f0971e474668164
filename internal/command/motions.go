package command

import (
	"context"
	"fmt"
	"time"

	"github.com/ArranJacques/paplin/internal/move"
	"github.com/ArranJacques/paplin/internal/sequencer"
)

// Move plays a single motion for d.
func (e *Engine) Move(ctx context.Context, motion move.Motion, d time.Duration) error {
	ins, ok := move.Table[motion]
	if !ok {
		return fmt.Errorf("%w: %s", move.ErrUnknownMotion, motion)
	}
	return e.Play(ctx, move.Sequence{{Instruction: ins, Duration: d}})
}

// Concurrent builds a sequence with build and plays it.
func (e *Engine) Concurrent(ctx context.Context, build func(*sequencer.Builder)) error {
	b := sequencer.New()
	build(b)
	return e.Play(ctx, b.Sequence())
}

func (e *Engine) MoveShoulderUp(ctx context.Context, d time.Duration) error {
	return e.Move(ctx, move.ShoulderUp, d)
}

func (e *Engine) MoveShoulderDown(ctx context.Context, d time.Duration) error {
	return e.Move(ctx, move.ShoulderDown, d)
}

func (e *Engine) MoveShoulderClockwise(ctx context.Context, d time.Duration) error {
	return e.Move(ctx, move.ShoulderClockwise, d)
}

func (e *Engine) MoveShoulderCounterClockwise(ctx context.Context, d time.Duration) error {
	return e.Move(ctx, move.ShoulderCounterClockwise, d)
}

func (e *Engine) MoveElbowUp(ctx context.Context, d time.Duration) error {
	return e.Move(ctx, move.ElbowUp, d)
}

func (e *Engine) MoveElbowDown(ctx context.Context, d time.Duration) error {
	return e.Move(ctx, move.ElbowDown, d)
}

func (e *Engine) MoveWristUp(ctx context.Context, d time.Duration) error {
	return e.Move(ctx, move.WristUp, d)
}

func (e *Engine) MoveWristDown(ctx context.Context, d time.Duration) error {
	return e.Move(ctx, move.WristDown, d)
}

func (e *Engine) OpenGrip(ctx context.Context, d time.Duration) error {
	return e.Move(ctx, move.GripOpen, d)
}

func (e *Engine) CloseGrip(ctx context.Context, d time.Duration) error {
	return e.Move(ctx, move.GripClose, d)
}
