package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ArranJacques/paplin/internal/adapter"
	"github.com/ArranJacques/paplin/internal/auth"
	"github.com/ArranJacques/paplin/internal/config"
)

// FileName is the active audit log inside the configured directory.
const FileName = "audit.jsonl"

// AuditEntry represents a single audit log entry.
type AuditEntry struct {
	Timestamp time.Time              `json:"ts"`
	User      string                 `json:"user"`
	ArmID     string                 `json:"armId"`
	Action    string                 `json:"action"`
	Params    map[string]interface{} `json:"params"`
	Outcome   string                 `json:"outcome"`
	Code      string                 `json:"code"`
	LatencyMs int64                  `json:"latencyMs"`
}

// Logger appends audit entries to a rotated file.
type Logger struct {
	mu       sync.Mutex
	filePath string
	out      *lumberjack.Logger
}

// NewLogger creates the audit directory and opens the rotated log inside it.
func NewLogger(cfg config.AuditConfig) (*Logger, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	filePath := filepath.Join(cfg.Dir, FileName)
	return &Logger{
		filePath: filePath,
		out: &lumberjack.Logger{
			Filename:   filePath,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		},
	}, nil
}

// LogAction records an action whose outcome is already reduced to a code.
func (l *Logger) LogAction(ctx context.Context, action, armID, result string, latency time.Duration) {
	l.writeEntry(AuditEntry{
		Timestamp: time.Now().UTC(),
		User:      auth.SubjectFromContext(ctx),
		ArmID:     armID,
		Action:    action,
		Params:    ParamsFromContext(ctx),
		Outcome:   outcomeFor(result),
		Code:      result,
		LatencyMs: latency.Milliseconds(),
	})
}

// LogControlAction records an engine action with its parameters and error.
func (l *Logger) LogControlAction(ctx context.Context, action, armID string, params map[string]interface{}, latency time.Duration, err error) {
	if params == nil {
		params = ParamsFromContext(ctx)
	}
	code := CodeFromError(err)
	l.writeEntry(AuditEntry{
		Timestamp: time.Now().UTC(),
		User:      auth.SubjectFromContext(ctx),
		ArmID:     armID,
		Action:    action,
		Params:    params,
		Outcome:   outcomeFor(code),
		Code:      code,
		LatencyMs: latency.Milliseconds(),
	})
}

func (l *Logger) writeEntry(entry AuditEntry) {
	jsonData, err := json.Marshal(entry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to marshal audit entry: %v\n", err)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.out == nil {
		return
	}
	if _, err := l.out.Write(append(jsonData, '\n')); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write audit entry: %v\n", err)
	}
}

func outcomeFor(code string) string {
	if code == CodeSuccess {
		return "success"
	}
	return "failure"
}

// Result codes recorded besides the adapter codes.
const (
	CodeSuccess            = "SUCCESS"
	CodeCancelled          = "CANCELLED"
	CodeTimeout            = "TIMEOUT"
	CodeSequenceInProgress = "SEQUENCE_IN_PROGRESS"
	CodeSequenceStopped    = "SEQUENCE_STOPPED"
	CodeUnknownMotion      = "UNKNOWN_MOTION"
	CodeNotFound           = "NOT_FOUND"
)

// CodeFromError maps an error to the code stored in the audit entry.
func CodeFromError(err error) string {
	if err == nil {
		return CodeSuccess
	}
	if errors.Is(err, context.Canceled) {
		return CodeCancelled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CodeTimeout
	}

	msg := err.Error()
	for _, code := range []string{CodeSequenceInProgress, CodeSequenceStopped, CodeUnknownMotion, CodeNotFound} {
		if strings.Contains(msg, code) {
			return code
		}
	}

	return adapter.Code(err).Error()
}

type paramsKey struct{}

// WithParams attaches request parameters that LogAction records.
func WithParams(ctx context.Context, params map[string]interface{}) context.Context {
	return context.WithValue(ctx, paramsKey{}, params)
}

// ParamsFromContext returns the parameters attached with WithParams, or an empty map.
func ParamsFromContext(ctx context.Context) map[string]interface{} {
	if params, ok := ctx.Value(paramsKey{}).(map[string]interface{}); ok {
		return params
	}
	return make(map[string]interface{})
}

// Rotate closes the current file and starts a new one. The old file is kept as a backup.
func (l *Logger) Rotate() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.out == nil {
		return fmt.Errorf("audit logger closed")
	}
	return l.out.Rotate()
}

// Close closes the audit log. Later entries are dropped.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.out == nil {
		return nil
	}
	err := l.out.Close()
	l.out = nil
	return err
}

// GetFilePath returns the path to the active audit log file.
func (l *Logger) GetFilePath() string {
	return l.filePath
}
