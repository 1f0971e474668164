package move

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Motion names a single joint direction on the arm.
type Motion string

// Motions supported by the arm.
const (
	ShoulderUp               Motion = "shoulder-up"
	ShoulderDown             Motion = "shoulder-down"
	ShoulderClockwise        Motion = "shoulder-clockwise"
	ShoulderCounterClockwise Motion = "shoulder-counter-clockwise"
	ElbowUp                  Motion = "elbow-up"
	ElbowDown                Motion = "elbow-down"
	WristUp                  Motion = "wrist-up"
	WristDown                Motion = "wrist-down"
	GripOpen                 Motion = "grip-open"
	GripClose                Motion = "grip-close"
)

// ErrUnknownMotion is returned by Lookup for names not in Table.
var ErrUnknownMotion = errors.New("UNKNOWN_MOTION")

// Table maps each motion to the bits the controller board expects.
var Table = map[Motion]Instruction{
	ShoulderUp:               {Magnitude: 64},
	ShoulderDown:             {Magnitude: 128},
	ShoulderClockwise:        {FlagsA: 1},
	ShoulderCounterClockwise: {FlagsA: 2},
	ElbowUp:                  {Magnitude: 4},
	ElbowDown:                {Magnitude: 8},
	WristUp:                  {Magnitude: 32},
	WristDown:                {Magnitude: 16},
	GripOpen:                 {Magnitude: 2},
	GripClose:                {Magnitude: 1},
}

// Lookup resolves a motion name. Names are matched case-insensitively.
func Lookup(name string) (Instruction, error) {
	ins, ok := Table[Motion(strings.ToLower(strings.TrimSpace(name)))]
	if !ok {
		return Instruction{}, fmt.Errorf("%w: %q", ErrUnknownMotion, name)
	}
	return ins, nil
}

// Must returns the instruction for a motion from Table.
// It panics on a motion that is not in the table.
func Must(m Motion) Instruction {
	ins, ok := Table[m]
	if !ok {
		panic(fmt.Sprintf("move: no instruction for motion %q", m))
	}
	return ins
}

// Names returns all motion names in sorted order.
func Names() []string {
	names := make([]string, 0, len(Table))
	for m := range Table {
		names = append(names, string(m))
	}
	sort.Strings(names)
	return names
}
