package command

import (
	"time"

	"github.com/ArranJacques/paplin/internal/move"
	"github.com/ArranJacques/paplin/internal/telemetry"
)

func (e *Engine) publishSequenceStarted(run *Run) {
	e.publish(telemetry.EventSequenceStarted, map[string]interface{}{
		"runId":   run.ID,
		"steps":   run.Steps,
		"totalMs": run.Total.Milliseconds(),
	})
}

// publishStep reports the instruction as transmitted, light included.
func (e *Engine) publishStep(run *Run, index int, sent move.Instruction, d time.Duration) {
	e.publish(telemetry.EventStep, map[string]interface{}{
		"runId":       run.ID,
		"index":       index,
		"instruction": sent,
		"durationMs":  d.Milliseconds(),
	})
}

func (e *Engine) publishRunEnd(run *Run, eventType string) {
	e.publish(eventType, map[string]interface{}{
		"runId":     run.ID,
		"elapsedMs": time.Since(run.StartedAt).Milliseconds(),
	})
}

func (e *Engine) publishLightChanged(on bool) {
	e.publish(telemetry.EventLightChanged, map[string]interface{}{"on": on})
}

// publishFault reports a device error. A failure to publish it is dropped.
func (e *Engine) publishFault(err error, message string) {
	e.publish(telemetry.EventFault, map[string]interface{}{
		"code":    err.Error(),
		"message": message,
	})
}

func (e *Engine) publish(eventType string, data map[string]interface{}) {
	if e.telemetry == nil {
		return
	}
	data["ts"] = time.Now().UTC().Format(time.RFC3339)
	_ = e.telemetry.PublishArm(e.armID, telemetry.Event{Type: eventType, Data: data})
}
