package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ArranJacques/paplin/internal/audit"
	"github.com/ArranJacques/paplin/internal/auth"
	"github.com/ArranJacques/paplin/internal/command"
	"github.com/ArranJacques/paplin/internal/move"
	"github.com/ArranJacques/paplin/internal/sequencer"
)

// ActionSelect is the audit action for arm selection.
const ActionSelect = "select"

type stepRequest struct {
	Motion     string `json:"motion"`
	DurationMs int64  `json:"durationMs"`
}

type moveRequest struct {
	Motion     string `json:"motion"`
	DurationMs int64  `json:"durationMs"`
	Wait       bool   `json:"wait"`
}

type concurrentRequest struct {
	Steps []stepRequest `json:"steps"`
	Wait  bool          `json:"wait"`
}

type lightRequest struct {
	On *bool `json:"on"`
}

type selectRequest struct {
	ArmID string `json:"armId"`
}

// RegisterRoutes registers all v1 endpoints.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	apiV1 := "/api/v1"

	// Health endpoint (no auth required)
	mux.HandleFunc(apiV1+"/health", s.handleHealth)

	mux.HandleFunc(apiV1+"/capabilities", s.guard(s.handleCapabilities, auth.ScopeRead))
	mux.HandleFunc(apiV1+"/arms", s.guard(s.handleArms, auth.ScopeRead))
	mux.HandleFunc(apiV1+"/arms/select", s.guard(s.handleSelectArm, auth.ScopeControl))
	mux.HandleFunc(apiV1+"/arms/{id}", s.guard(s.handleArmByID, auth.ScopeRead))

	// Control endpoints
	mux.HandleFunc(apiV1+"/arms/{id}/move", s.guard(s.handleMove, auth.ScopeControl))
	mux.HandleFunc(apiV1+"/arms/{id}/concurrent", s.guard(s.handleConcurrent, auth.ScopeControl))
	mux.HandleFunc(apiV1+"/arms/{id}/light", s.guard(s.handleLight, auth.ScopeControl))
	mux.HandleFunc(apiV1+"/arms/{id}/stop", s.guard(s.handleStop, auth.ScopeControl))
	mux.HandleFunc(apiV1+"/arms/{id}/stop-movement", s.guard(s.handleStopMovement, auth.ScopeControl))

	mux.HandleFunc(apiV1+"/telemetry", s.guard(s.handleTelemetry, auth.ScopeTelemetry))
}

// guard wraps h with authentication and the given scopes when auth is configured.
func (s *Server) guard(h http.HandlerFunc, scopes ...string) http.HandlerFunc {
	if s.authMiddleware == nil {
		return h
	}
	return s.authMiddleware.RequireAuth(s.authMiddleware.RequireScope(scopes...)(h))
}

func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
			fmt.Sprintf("Only %s method is allowed", method), nil)
		return false
	}
	return true
}

// decodeJSON decodes a strict JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "Malformed JSON or unknown fields", nil)
		return false
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "Trailing data after JSON object", nil)
		return false
	}
	return true
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	subsystems := map[string]bool{
		"telemetry": s.telemetryHub != nil,
		"arms":      s.arms != nil,
		"auth":      true,
	}

	armCount := 0
	if s.arms != nil {
		armCount = len(s.arms.List().Items)
	}

	health := map[string]interface{}{
		"status":     "ok",
		"uptimeSec":  time.Since(s.startTime).Seconds(),
		"version":    Version,
		"arms":       armCount,
		"subsystems": subsystems,
	}

	if !subsystems["telemetry"] || !subsystems["arms"] {
		health["status"] = "degraded"
		WriteError(w, http.StatusServiceUnavailable, "SERVICE_DEGRADED",
			"One or more subsystems are unavailable", health)
		return
	}
	WriteSuccess(w, health)
}

// handleCapabilities handles GET /capabilities
func (s *Server) handleCapabilities(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	WriteSuccess(w, map[string]interface{}{
		"telemetry":          []string{"sse"},
		"commands":           []string{"http-json"},
		"version":            Version,
		"motions":            move.Names(),
		"maxSliceDurationMs": s.timing.MaxSliceDuration.Milliseconds(),
	})
}

// handleArms handles GET /arms
func (s *Server) handleArms(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	if s.arms == nil {
		WriteError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "Arm manager not available", nil)
		return
	}
	WriteSuccess(w, s.arms.List())
}

// handleSelectArm handles POST /arms/select
func (s *Server) handleSelectArm(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req selectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ArmID == "" {
		WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "armId is required", nil)
		return
	}
	if s.arms == nil {
		WriteError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "Arm manager not available", nil)
		return
	}

	start := time.Now()
	err := s.arms.SetActive(req.ArmID)
	if s.auditLogger != nil {
		ctx := audit.WithParams(r.Context(), map[string]interface{}{"armId": req.ArmID})
		result := audit.CodeSuccess
		if err != nil {
			result = audit.CodeFromError(err)
		}
		s.auditLogger.LogAction(ctx, ActionSelect, req.ArmID, result, time.Since(start))
	}
	if err != nil {
		writeAPIError(w, err)
		return
	}

	WriteSuccess(w, map[string]string{"activeArmId": req.ArmID})
}

// handleArmByID handles GET /arms/{id}
func (s *Server) handleArmByID(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	if s.arms == nil {
		WriteError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "Arm manager not available", nil)
		return
	}

	a, err := s.arms.Get(r.PathValue("id"))
	if err != nil {
		writeAPIError(w, err)
		return
	}
	WriteSuccess(w, a)
}

// handleMove handles POST /arms/{id}/move
func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	engine, ok := s.engineFor(w, r)
	if !ok {
		return
	}

	var req moveRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	seq, err := s.buildSequence([]stepRequest{{Motion: req.Motion, DurationMs: req.DurationMs}})
	if err != nil {
		writeAPIError(w, err)
		return
	}
	s.play(w, r, engine, seq, req.Wait)
}

// handleConcurrent handles POST /arms/{id}/concurrent
func (s *Server) handleConcurrent(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	engine, ok := s.engineFor(w, r)
	if !ok {
		return
	}

	var req concurrentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	seq, err := s.buildSequence(req.Steps)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	s.play(w, r, engine, seq, req.Wait)
}

// handleLight handles POST /arms/{id}/light
func (s *Server) handleLight(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	engine, ok := s.engineFor(w, r)
	if !ok {
		return
	}

	var req lightRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.On == nil {
		WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "on is required", nil)
		return
	}

	var err error
	if *req.On {
		err = engine.TurnLightOn(r.Context())
	} else {
		err = engine.TurnLightOff(r.Context())
	}
	if err != nil {
		writeAPIError(w, err)
		return
	}
	WriteSuccess(w, engine.Status())
}

// handleStop handles POST /arms/{id}/stop
func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	engine, ok := s.engineFor(w, r)
	if !ok {
		return
	}
	engine.Stop(r.Context())
	WriteSuccess(w, engine.Status())
}

// handleStopMovement handles POST /arms/{id}/stop-movement
func (s *Server) handleStopMovement(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	engine, ok := s.engineFor(w, r)
	if !ok {
		return
	}
	engine.StopMovement(r.Context())
	WriteSuccess(w, engine.Status())
}

// handleTelemetry handles GET /telemetry
func (s *Server) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	if s.telemetryHub == nil {
		WriteError(w, http.StatusServiceUnavailable, "UNAVAILABLE",
			"Telemetry service not available", nil)
		return
	}

	if err := s.telemetryHub.Subscribe(r.Context(), w, r); err != nil {
		WriteError(w, http.StatusInternalServerError, "INTERNAL",
			"Failed to subscribe to telemetry stream", nil)
	}
}

func (s *Server) engineFor(w http.ResponseWriter, r *http.Request) (*command.Engine, bool) {
	if s.arms == nil {
		WriteError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "Arm manager not available", nil)
		return nil, false
	}
	engine, err := s.arms.Engine(r.PathValue("id"))
	if err != nil {
		writeAPIError(w, err)
		return nil, false
	}
	return engine, true
}

// buildSequence folds the requested steps into one sequence. Every duration
// must be positive and no longer than the configured maximum slice.
func (s *Server) buildSequence(steps []stepRequest) (move.Sequence, error) {
	if len(steps) == 0 {
		return nil, NewAPIError("BAD_REQUEST", "At least one step is required", http.StatusBadRequest, nil)
	}

	b := sequencer.New()
	for i, step := range steps {
		d := time.Duration(step.DurationMs) * time.Millisecond
		if d <= 0 || d > s.timing.MaxSliceDuration {
			return nil, NewAPIError("INVALID_RANGE",
				fmt.Sprintf("durationMs must be between 1 and %d", s.timing.MaxSliceDuration.Milliseconds()),
				http.StatusBadRequest, map[string]interface{}{"step": i, "durationMs": step.DurationMs})
		}
		if err := b.Add(step.Motion, d); err != nil {
			return nil, err
		}
	}
	return b.Sequence(), nil
}

// play starts seq on engine. With wait the reply is sent once the run has
// finished; otherwise the run continues after a 202 reply.
func (s *Server) play(w http.ResponseWriter, r *http.Request, engine *command.Engine, seq move.Sequence, wait bool) {
	ctx := r.Context()
	if !wait {
		ctx = context.WithoutCancel(ctx)
	}

	run, err := engine.Start(ctx, seq)
	if err != nil {
		writeAPIError(w, err)
		return
	}

	if !wait {
		WriteAccepted(w, runView(run, command.StateRunning))
		return
	}
	if err := run.Wait(); err != nil {
		writeAPIError(w, err)
		return
	}
	WriteSuccess(w, runView(run, "completed"))
}

func runView(run *command.Run, state command.State) map[string]interface{} {
	return map[string]interface{}{
		"runId":     run.ID,
		"armId":     run.ArmID,
		"steps":     run.Steps,
		"totalMs":   run.Total.Milliseconds(),
		"startedAt": run.StartedAt,
		"state":     state,
	}
}
