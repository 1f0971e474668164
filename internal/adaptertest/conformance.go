// Package adaptertest provides a vendor-agnostic conformance suite for arm
// adapters. Any transport that the command engine drives must pass it.
package adaptertest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/ArranJacques/paplin/internal/adapter"
	"github.com/ArranJacques/paplin/internal/move"
)

// Capabilities describes what the suite may assume about the adapter.
type Capabilities struct {
	// Name is shown in the report.
	Name string

	// Motions the device accepts; defaults to every motion in move.Table.
	Motions []move.Motion

	// MaxTransmitLatency bounds a single Transmit call.
	MaxTransmitLatency time.Duration
}

// ConformanceResult represents the result of one check.
type ConformanceResult struct {
	TestName string
	Passed   bool
	Error    string
	Duration time.Duration
}

// ConformanceReport collects every check run against one adapter.
type ConformanceReport struct {
	AdapterName   string
	TotalTests    int
	PassedTests   int
	FailedTests   int
	Results       []ConformanceResult
	OverallPassed bool
	Duration      time.Duration
}

// RunConformance runs the complete conformance suite. newAdapter must
// return a fresh, open adapter on every call.
func RunConformance(t *testing.T, newAdapter func() adapter.IArmAdapter, caps Capabilities) {
	t.Helper()
	startTime := time.Now()

	if len(caps.Motions) == 0 {
		for _, name := range move.Names() {
			caps.Motions = append(caps.Motions, move.Motion(name))
		}
	}
	if caps.MaxTransmitLatency == 0 {
		caps.MaxTransmitLatency = 50 * time.Millisecond
	}
	if caps.Name == "" {
		caps.Name = "Unknown Adapter"
	}

	report := &ConformanceReport{
		AdapterName:   caps.Name,
		OverallPassed: true,
	}

	runMotionTests(newAdapter, caps, report)
	runLightTests(newAdapter, report)
	runRangeTests(newAdapter, report)
	runCancellationTests(newAdapter, report)
	runCloseTests(newAdapter, report)

	report.Duration = time.Since(startTime)
	printConformanceReport(t, report)

	if !report.OverallPassed {
		t.Fatalf("Adapter conformance test failed: %d/%d tests passed", report.PassedTests, report.TotalTests)
	}
}

func runMotionTests(newAdapter func() adapter.IArmAdapter, caps Capabilities, report *ConformanceReport) {
	a := newAdapter()
	defer func() { _ = a.Close() }()
	ctx := context.Background()

	for _, m := range caps.Motions {
		result := ConformanceResult{TestName: fmt.Sprintf("Transmit_%s", m)}
		start := time.Now()

		err := a.Transmit(ctx, move.Must(m))
		result.Duration = time.Since(start)

		switch {
		case err != nil:
			result.Error = fmt.Sprintf("Transmit(%s) failed: %v", m, err)
		case result.Duration > caps.MaxTransmitLatency:
			result.Error = fmt.Sprintf("Transmit(%s) took %v, limit %v", m, result.Duration, caps.MaxTransmitLatency)
		default:
			result.Passed = true
		}
		report.addResult(result)
	}

	result := ConformanceResult{TestName: "Transmit_Neutral"}
	start := time.Now()
	err := a.Transmit(ctx, move.Neutral)
	result.Duration = time.Since(start)
	if err != nil {
		result.Error = fmt.Sprintf("Transmit(neutral) failed: %v", err)
	} else {
		result.Passed = true
	}
	report.addResult(result)
}

func runLightTests(newAdapter func() adapter.IArmAdapter, report *ConformanceReport) {
	a := newAdapter()
	defer func() { _ = a.Close() }()
	ctx := context.Background()

	for _, on := range []bool{true, false} {
		result := ConformanceResult{TestName: fmt.Sprintf("Transmit_Light_%t", on)}
		start := time.Now()
		err := a.Transmit(ctx, move.Halt(on))
		result.Duration = time.Since(start)
		if err != nil {
			result.Error = fmt.Sprintf("Transmit(light=%t) failed: %v", on, err)
		} else {
			result.Passed = true
		}
		report.addResult(result)
	}
}

// runRangeTests checks that instructions that cannot be encoded are rejected
// with INVALID_RANGE instead of being truncated.
func runRangeTests(newAdapter func() adapter.IArmAdapter, report *ConformanceReport) {
	a := newAdapter()
	defer func() { _ = a.Close() }()
	ctx := context.Background()

	invalid := []move.Instruction{
		{Magnitude: 256},
		{Magnitude: -1},
		{FlagsA: 300},
		{FlagsB: -2},
	}

	for _, ins := range invalid {
		result := ConformanceResult{TestName: fmt.Sprintf("Transmit_Invalid_%s", ins)}
		start := time.Now()
		err := a.Transmit(ctx, ins)
		result.Duration = time.Since(start)

		switch {
		case err == nil:
			result.Error = fmt.Sprintf("Transmit(%s) should have failed but succeeded", ins)
		case !errors.Is(err, adapter.ErrInvalidRange):
			result.Error = fmt.Sprintf("Transmit(%s) should return INVALID_RANGE, got: %v", ins, err)
		default:
			result.Passed = true
		}
		report.addResult(result)
	}
}

func runCancellationTests(newAdapter func() adapter.IArmAdapter, report *ConformanceReport) {
	a := newAdapter()
	defer func() { _ = a.Close() }()

	result := ConformanceResult{TestName: "Transmit_CancelledContext"}
	start := time.Now()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := a.Transmit(ctx, move.Must(move.ShoulderUp))
	result.Duration = time.Since(start)

	if err == nil {
		result.Error = "Transmit with cancelled context should have failed"
	} else if !errors.Is(err, context.Canceled) {
		result.Error = fmt.Sprintf("Transmit with cancelled context returned %v", err)
	} else {
		result.Passed = true
	}
	report.addResult(result)
}

func runCloseTests(newAdapter func() adapter.IArmAdapter, report *ConformanceReport) {
	a := newAdapter()

	result := ConformanceResult{TestName: "Close_Idempotent"}
	start := time.Now()
	err1 := a.Close()
	err2 := a.Close()
	result.Duration = time.Since(start)

	if err1 != nil || err2 != nil {
		result.Error = fmt.Sprintf("Close returned %v, %v", err1, err2)
	} else {
		result.Passed = true
	}
	report.addResult(result)

	result = ConformanceResult{TestName: "Transmit_AfterClose"}
	start = time.Now()
	err := a.Transmit(context.Background(), move.Neutral)
	result.Duration = time.Since(start)

	if err == nil {
		result.Error = "Transmit after Close should have failed"
	} else if !errors.Is(err, adapter.ErrUnavailable) {
		result.Error = fmt.Sprintf("Transmit after Close should return UNAVAILABLE, got: %v", err)
	} else {
		result.Passed = true
	}
	report.addResult(result)
}

func (r *ConformanceReport) addResult(result ConformanceResult) {
	r.TotalTests++
	if result.Passed {
		r.PassedTests++
	} else {
		r.FailedTests++
		r.OverallPassed = false
	}
	r.Results = append(r.Results, result)
}

func printConformanceReport(t *testing.T, report *ConformanceReport) {
	t.Logf("\n%s", strings.Repeat("=", 80))
	t.Logf("ARM ADAPTER CONFORMANCE REPORT")
	t.Logf("%s", strings.Repeat("=", 80))
	t.Logf("Adapter: %s", report.AdapterName)
	t.Logf("Passed: %d/%d", report.PassedTests, report.TotalTests)
	t.Logf("Duration: %v", report.Duration)
	t.Logf("%s", strings.Repeat("-", 80))

	for _, result := range report.Results {
		status := "PASS"
		if !result.Passed {
			status = "FAIL"
		}
		t.Logf("%-40s %-6s %-12s %s", result.TestName, status, result.Duration, result.Error)
	}
}
