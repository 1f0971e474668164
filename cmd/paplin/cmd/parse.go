package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ArranJacques/paplin/internal/move"
)

// step is one parsed motion request.
type step struct {
	Motion      string
	Instruction move.Instruction
	Duration    time.Duration
}

// parseDuration accepts a Go duration ("1.5s", "300ms") or a bare number of milliseconds.
func parseDuration(s string, max time.Duration) (time.Duration, error) {
	var d time.Duration
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		d = time.Duration(ms) * time.Millisecond
	} else {
		d, err = time.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
	}

	if d <= 0 {
		return 0, fmt.Errorf("duration %q must be positive", s)
	}
	if max > 0 && d > max {
		return 0, fmt.Errorf("duration %s exceeds the maximum of %s", d, max)
	}
	return d, nil
}

// parseMotion normalises a motion name the way move.Lookup matches it.
func parseMotion(name string) (move.Motion, move.Instruction, error) {
	motion := move.Motion(strings.ToLower(strings.TrimSpace(name)))
	ins, err := move.Lookup(string(motion))
	if err != nil {
		return "", move.Instruction{}, err
	}
	return motion, ins, nil
}

// parseStep parses "motion=duration".
func parseStep(arg string, max time.Duration) (step, error) {
	name, dur, ok := strings.Cut(arg, "=")
	if !ok || name == "" || dur == "" {
		return step{}, fmt.Errorf("expected motion=duration, got %q", arg)
	}
	motion, ins, err := parseMotion(name)
	if err != nil {
		return step{}, err
	}
	d, err := parseDuration(dur, max)
	if err != nil {
		return step{}, err
	}
	return step{Motion: string(motion), Instruction: ins, Duration: d}, nil
}

func parseSteps(args []string, max time.Duration) ([]step, error) {
	steps := make([]step, 0, len(args))
	for _, arg := range args {
		s, err := parseStep(arg, max)
		if err != nil {
			return nil, err
		}
		steps = append(steps, s)
	}
	return steps, nil
}

func parseLight(arg string) (bool, error) {
	switch strings.ToLower(arg) {
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("light must be on or off, got %q", arg)
}
