package api

import (
	"context"
	"net/http"
	"time"

	"github.com/ArranJacques/paplin/internal/arm"
	"github.com/ArranJacques/paplin/internal/audit"
	"github.com/ArranJacques/paplin/internal/command"
	"github.com/ArranJacques/paplin/internal/telemetry"
)

// TelemetryPort defines the minimal interface the API needs from the telemetry hub.
type TelemetryPort interface {
	Subscribe(ctx context.Context, w http.ResponseWriter, r *http.Request) error
}

// ArmPort defines the arm inventory operations the API uses.
type ArmPort interface {
	List() *arm.ArmList
	Get(armID string) (arm.Arm, error)
	SetActive(armID string) error
	Engine(armID string) (*command.Engine, error)
}

// AuditPort records API-level actions that do not pass through an engine.
type AuditPort interface {
	LogAction(ctx context.Context, action, armID, result string, latency time.Duration)
}

var _ TelemetryPort = (*telemetry.Hub)(nil)
var _ ArmPort = (*arm.Manager)(nil)
var _ AuditPort = (*audit.Logger)(nil)
