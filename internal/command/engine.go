package command

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ArranJacques/paplin/internal/adapter"
	"github.com/ArranJacques/paplin/internal/config"
	"github.com/ArranJacques/paplin/internal/move"
	"github.com/ArranJacques/paplin/internal/telemetry"
)

// State is the engine's execution state.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
)

// Status is a point-in-time view of an engine.
type Status struct {
	ArmID   string `json:"armId"`
	State   State  `json:"state"`
	LightOn bool   `json:"lightOn"`
	RunID   string `json:"runId,omitempty"`
}

// Run is one accepted sequence. It completes exactly once.
type Run struct {
	ID        string
	ArmID     string
	Steps     int
	Total     time.Duration
	StartedAt time.Time

	cancelled bool // guarded by Engine.mu
	done      chan struct{}
	err       error
}

// Done is closed when the run has finished.
func (r *Run) Done() <-chan struct{} { return r.done }

// Err returns the run's result, or nil while it is still running.
func (r *Run) Err() error {
	select {
	case <-r.done:
		return r.err
	default:
		return nil
	}
}

// Wait blocks until the run finishes and returns its result.
func (r *Run) Wait() error {
	<-r.done
	return r.err
}

// Engine plays sequences on one arm.
//
// mu guards current and lightOn and is held for every transmission, so a
// stop's neutral instruction is never interleaved with a step.
type Engine struct {
	armID   string
	adapter adapter.IArmAdapter
	config  *config.TimingConfig

	telemetry   TelemetryPublisher
	auditLogger AuditLogger
	wait        func(time.Duration)

	mu      sync.Mutex
	current *Run
	lightOn bool
}

// NewEngine creates an idle engine with the light off.
func NewEngine(armID string, a adapter.IArmAdapter, timingConfig *config.TimingConfig) *Engine {
	return &Engine{
		armID:   armID,
		adapter: a,
		config:  timingConfig,
		wait:    sleep,
	}
}

func sleep(d time.Duration) {
	if d > 0 {
		time.Sleep(d)
	}
}

// SetAuditLogger sets the audit logger.
func (e *Engine) SetAuditLogger(logger AuditLogger) {
	e.auditLogger = logger
}

// SetTelemetry sets the event publisher.
func (e *Engine) SetTelemetry(publisher TelemetryPublisher) {
	e.telemetry = publisher
}

// ArmID returns the arm this engine drives.
func (e *Engine) ArmID() string {
	return e.armID
}

// Start transmits the first step of seq and returns with the rest of the
// run in progress. A second call while a run is in progress fails with
// ErrSequenceInProgress and changes nothing. A transport error on the first
// step is returned as is and leaves the engine idle. ctx is checked between
// steps; when it ends the arm is halted and the run finishes with ctx.Err().
func (e *Engine) Start(ctx context.Context, seq move.Sequence) (*Run, error) {
	steps := seq.Clone()
	params := map[string]interface{}{"steps": len(steps)}

	e.mu.Lock()
	if e.current != nil {
		e.mu.Unlock()
		e.logAudit(ctx, ActionPlay, params, 0, ErrSequenceInProgress)
		return nil, ErrSequenceInProgress
	}
	if err := ctx.Err(); err != nil {
		e.mu.Unlock()
		e.logAudit(ctx, ActionPlay, params, 0, err)
		return nil, err
	}
	run := &Run{
		ID:        uuid.NewString(),
		ArmID:     e.armID,
		Steps:     len(steps),
		Total:     steps.TotalDuration(),
		StartedAt: time.Now(),
		done:      make(chan struct{}),
	}
	var first move.Instruction
	if len(steps) > 0 {
		first = e.overlay(steps[0].Instruction)
		if err := e.transmit(ctx, first); err != nil {
			e.mu.Unlock()
			params["runId"] = run.ID
			e.logAudit(ctx, ActionPlay, params, time.Since(run.StartedAt), err)
			log.Printf("arm %s: run %s failed on first step: %v", e.armID, run.ID, err)
			e.publishFault(err, "Sequence aborted")
			return nil, err
		}
	}
	e.current = run
	e.mu.Unlock()

	e.publishSequenceStarted(run)

	go e.perform(ctx, run, steps, first)
	return run, nil
}

// Play starts seq and waits for it to finish.
func (e *Engine) Play(ctx context.Context, seq move.Sequence) error {
	run, err := e.Start(ctx, seq)
	if err != nil {
		return err
	}
	return run.Wait()
}

// perform holds the already transmitted first step and plays the rest.
func (e *Engine) perform(ctx context.Context, run *Run, steps move.Sequence, first move.Instruction) {
	var err error
	for i, step := range steps {
		sent := first
		if i > 0 {
			if sent, err = e.transmitStep(ctx, run, step); err != nil {
				break
			}
		}
		e.publishStep(run, i, sent, step.Duration)
		e.wait(step.Duration)
	}
	if err == nil {
		err = e.complete(ctx, run)
	}
	e.finish(ctx, run, err)
}

// transmitStep sends one step unless the run was stopped or ctx ended, and
// returns the instruction that went out.
func (e *Engine) transmitStep(ctx context.Context, run *Run, step move.TimedInstruction) (move.Instruction, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkpoint(ctx, run); err != nil {
		return move.Instruction{}, err
	}

	ins := e.overlay(step.Instruction)
	if err := e.transmit(ctx, ins); err != nil {
		e.release(run)
		return move.Instruction{}, err
	}
	return ins, nil
}

// overlay applies the light state to ins. Caller holds e.mu.
func (e *Engine) overlay(ins move.Instruction) move.Instruction {
	if e.lightOn {
		return ins.WithLight()
	}
	return ins
}

// complete sends the closing neutral instruction with the light preserved.
func (e *Engine) complete(ctx context.Context, run *Run) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkpoint(ctx, run); err != nil {
		return err
	}
	err := e.transmit(ctx, move.Halt(e.lightOn))
	e.release(run)
	return err
}

// checkpoint reports whether the run may continue. Caller holds e.mu.
func (e *Engine) checkpoint(ctx context.Context, run *Run) error {
	if run.cancelled {
		return ErrSequenceStopped
	}
	if err := ctx.Err(); err != nil {
		if haltErr := e.transmit(context.WithoutCancel(ctx), move.Halt(e.lightOn)); haltErr != nil {
			log.Printf("arm %s: halt after cancelled context failed: %v", e.armID, haltErr)
		}
		e.release(run)
		return err
	}
	return nil
}

// release returns the engine to idle if run still owns it. Caller holds e.mu.
func (e *Engine) release(run *Run) {
	if e.current == run {
		e.current = nil
	}
}

// finish records the outcome before completing the run.
func (e *Engine) finish(ctx context.Context, run *Run, err error) {
	run.err = err
	defer close(run.done)

	params := map[string]interface{}{
		"runId":   run.ID,
		"steps":   run.Steps,
		"totalMs": run.Total.Milliseconds(),
	}
	e.logAudit(ctx, ActionPlay, params, time.Since(run.StartedAt), err)

	switch {
	case err == nil:
		e.publishRunEnd(run, telemetry.EventSequenceCompleted)
	case errors.Is(err, ErrSequenceStopped):
		e.publishRunEnd(run, telemetry.EventSequenceStopped)
	default:
		log.Printf("arm %s: run %s failed: %v", e.armID, run.ID, err)
		e.publishFault(err, "Sequence aborted")
	}
}

// transmit sends one instruction with the configured timeout. Caller holds e.mu.
func (e *Engine) transmit(ctx context.Context, ins move.Instruction) error {
	if e.config != nil && e.config.TransmitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.TransmitTimeout)
		defer cancel()
	}
	return e.adapter.Transmit(ctx, ins)
}

// cancelCurrent flags the in-flight run and forces idle. Caller holds e.mu.
func (e *Engine) cancelCurrent() string {
	if e.current == nil {
		return ""
	}
	id := e.current.ID
	e.current.cancelled = true
	e.current = nil
	return id
}

// StopMovement halts all motion and keeps the light as it is. A running
// sequence finishes its current step and then ends with ErrSequenceStopped.
func (e *Engine) StopMovement(ctx context.Context) {
	start := time.Now()

	e.mu.Lock()
	runID := e.cancelCurrent()
	err := e.transmit(ctx, move.Halt(e.lightOn))
	e.mu.Unlock()

	e.afterStop(ctx, ActionStopMovement, runID, start, err)
}

// Stop halts all motion and switches the light off.
func (e *Engine) Stop(ctx context.Context) {
	start := time.Now()

	e.mu.Lock()
	runID := e.cancelCurrent()
	wasOn := e.lightOn
	e.lightOn = false
	err := e.transmit(ctx, move.Neutral)
	e.mu.Unlock()

	if wasOn {
		e.publishLightChanged(false)
	}
	e.afterStop(ctx, ActionStop, runID, start, err)
}

func (e *Engine) afterStop(ctx context.Context, action, runID string, start time.Time, err error) {
	params := map[string]interface{}{}
	if runID != "" {
		params["runId"] = runID
	}
	e.logAudit(ctx, action, params, time.Since(start), err)

	if err != nil {
		log.Printf("arm %s: %s transmit failed: %v", e.armID, action, err)
		e.publishFault(err, "Failed to halt arm")
	}
}

// TurnLightOn switches the light on. It is refused while a sequence is running.
func (e *Engine) TurnLightOn(ctx context.Context) error {
	return e.setLight(ctx, true)
}

// TurnLightOff switches the light off. It is refused while a sequence is running.
func (e *Engine) TurnLightOff(ctx context.Context) error {
	return e.setLight(ctx, false)
}

// setLight transmits the neutral instruction for the requested light state
// and keeps the new state only if the device accepted it.
func (e *Engine) setLight(ctx context.Context, on bool) error {
	start := time.Now()
	params := map[string]interface{}{"on": on}

	e.mu.Lock()
	if e.current != nil {
		e.mu.Unlock()
		e.logAudit(ctx, ActionLight, params, 0, ErrSequenceInProgress)
		return ErrSequenceInProgress
	}
	err := e.transmit(ctx, move.Halt(on))
	if err == nil {
		e.lightOn = on
	}
	e.mu.Unlock()

	e.logAudit(ctx, ActionLight, params, time.Since(start), err)
	if err != nil {
		e.publishFault(err, "Failed to switch light")
		return err
	}
	e.publishLightChanged(on)
	return nil
}

// State returns Idle or Running.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current != nil {
		return StateRunning
	}
	return StateIdle
}

// LightOn reports the light overlay.
func (e *Engine) LightOn() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lightOn
}

// Status returns a snapshot of the engine.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Status{ArmID: e.armID, State: StateIdle, LightOn: e.lightOn}
	if e.current != nil {
		s.State = StateRunning
		s.RunID = e.current.ID
	}
	return s
}

func (e *Engine) logAudit(ctx context.Context, action string, params map[string]interface{}, latency time.Duration, err error) {
	if e.auditLogger != nil {
		e.auditLogger.LogControlAction(ctx, action, e.armID, params, latency, err)
	}
}
