// Package sequencer flattens overlapping timed motion requests into a single
// ordered sequence of non-overlapping steps.
//
// Every request is measured from the same origin. The resulting slice
// boundaries are the union of all request end points, and each slice carries
// the combination of exactly the requests active during it.
package sequencer

import (
	"time"

	"github.com/ArranJacques/paplin/internal/move"
)

// Unspecified marks a request issued without a duration.
//
// Against an empty builder it becomes the sole step with the marker stored
// as-is. Against a populated builder it is combined into the first step and
// the step keeps its duration. The engine plays an Unspecified step without
// waiting.
const Unspecified time.Duration = -1

// Builder accumulates timed requests. A Builder is meant for one concurrent
// scope and is not safe for concurrent use.
type Builder struct {
	steps move.Sequence
}

// New returns an empty builder.
func New() *Builder {
	return &Builder{}
}

// Merge folds one request into the sequence.
func (b *Builder) Merge(ins move.Instruction, d time.Duration) {
	if len(b.steps) == 0 {
		b.steps = append(b.steps, move.TimedInstruction{Instruction: ins, Duration: d})
		return
	}

	if d < 0 {
		b.steps[0].Instruction = move.Combine(b.steps[0].Instruction, ins)
		return
	}

	remaining := d
	for i := 0; ; i++ {
		if i == len(b.steps) {
			b.steps = append(b.steps, move.TimedInstruction{Instruction: ins, Duration: remaining})
			return
		}

		step := b.steps[i]
		switch {
		case step.Duration < 0:
			// A step stored without a duration cannot be split.
			b.steps[i].Instruction = move.Combine(step.Instruction, ins)
			return

		case remaining < step.Duration:
			tail := move.TimedInstruction{
				Instruction: step.Instruction,
				Duration:    step.Duration - remaining,
			}
			b.steps[i] = move.TimedInstruction{
				Instruction: move.Combine(step.Instruction, ins),
				Duration:    remaining,
			}
			b.steps = append(b.steps, move.TimedInstruction{})
			copy(b.steps[i+2:], b.steps[i+1:])
			b.steps[i+1] = tail
			return

		case remaining > step.Duration:
			b.steps[i].Instruction = move.Combine(step.Instruction, ins)
			remaining -= step.Duration

		default:
			b.steps[i].Instruction = move.Combine(step.Instruction, ins)
			return
		}
	}
}

// Add merges a request by motion name.
func (b *Builder) Add(motion string, d time.Duration) error {
	ins, err := move.Lookup(motion)
	if err != nil {
		return err
	}
	b.Merge(ins, d)
	return nil
}

// Sequence returns the accumulated steps. The returned slice is a copy.
func (b *Builder) Sequence() move.Sequence {
	return b.steps.Clone()
}

// Len reports the number of steps built so far.
func (b *Builder) Len() int {
	return len(b.steps)
}

func (b *Builder) MoveShoulderUp(d time.Duration) { b.Merge(move.Must(move.ShoulderUp), d) }

func (b *Builder) MoveShoulderDown(d time.Duration) { b.Merge(move.Must(move.ShoulderDown), d) }

func (b *Builder) MoveShoulderClockwise(d time.Duration) {
	b.Merge(move.Must(move.ShoulderClockwise), d)
}

func (b *Builder) MoveShoulderCounterClockwise(d time.Duration) {
	b.Merge(move.Must(move.ShoulderCounterClockwise), d)
}

func (b *Builder) MoveElbowUp(d time.Duration) { b.Merge(move.Must(move.ElbowUp), d) }

func (b *Builder) MoveElbowDown(d time.Duration) { b.Merge(move.Must(move.ElbowDown), d) }

func (b *Builder) MoveWristUp(d time.Duration) { b.Merge(move.Must(move.WristUp), d) }

func (b *Builder) MoveWristDown(d time.Duration) { b.Merge(move.Must(move.WristDown), d) }

func (b *Builder) OpenGrip(d time.Duration) { b.Merge(move.Must(move.GripOpen), d) }

func (b *Builder) CloseGrip(d time.Duration) { b.Merge(move.Must(move.GripClose), d) }
