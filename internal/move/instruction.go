package move

import (
	"fmt"
	"time"
)

// LightBit is OR-ed into FlagsB while the indicator light is on.
const LightBit = 1

// Instruction is a single device command.
type Instruction struct {
	Magnitude int `json:"magnitude" yaml:"magnitude"`
	FlagsA    int `json:"flagsA" yaml:"flagsA"`
	FlagsB    int `json:"flagsB" yaml:"flagsB"`
}

// Neutral is the all-off instruction: no motion, light off.
var Neutral = Instruction{}

// Combine merges two instructions that must be active at the same time.
// Magnitudes add; flag fields are XOR-ed.
func Combine(a, b Instruction) Instruction {
	return Instruction{
		Magnitude: a.Magnitude + b.Magnitude,
		FlagsA:    a.FlagsA ^ b.FlagsA,
		FlagsB:    a.FlagsB ^ b.FlagsB,
	}
}

// WithLight returns a copy of i with the light bit set.
func (i Instruction) WithLight() Instruction {
	i.FlagsB |= LightBit
	return i
}

// Halt returns the instruction that stops all motion while keeping the
// light in the requested state.
func Halt(lightOn bool) Instruction {
	if lightOn {
		return Neutral.WithLight()
	}
	return Neutral
}

// Bytes encodes the instruction as the 3-byte control payload.
func (i Instruction) Bytes() ([]byte, error) {
	fields := [3]int{i.Magnitude, i.FlagsA, i.FlagsB}
	out := make([]byte, 3)
	for n, v := range fields {
		if v < 0 || v > 0xff {
			return nil, fmt.Errorf("instruction field %d out of byte range: %d", n, v)
		}
		out[n] = byte(v)
	}
	return out, nil
}

func (i Instruction) String() string {
	return fmt.Sprintf("(%d,%d,%d)", i.Magnitude, i.FlagsA, i.FlagsB)
}

// TimedInstruction is one playback step: hold Instruction for Duration.
type TimedInstruction struct {
	Instruction Instruction   `json:"instruction"`
	Duration    time.Duration `json:"duration"`
}

// Sequence is an ordered list of consecutive, non-overlapping steps starting
// at time zero.
type Sequence []TimedInstruction

// TotalDuration sums the step durations. Negative (unspecified) durations
// count as zero.
func (s Sequence) TotalDuration() time.Duration {
	var total time.Duration
	for _, step := range s {
		if step.Duration > 0 {
			total += step.Duration
		}
	}
	return total
}

// Clone returns an independent copy of the sequence.
func (s Sequence) Clone() Sequence {
	if s == nil {
		return nil
	}
	out := make(Sequence, len(s))
	copy(out, s)
	return out
}
