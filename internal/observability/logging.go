// Package observability provides logging, metrics, and tracing.
package observability

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
)

// Logger wraps slog.Logger to provide specialized logging methods.
type Logger struct {
	*slog.Logger
}

// GlobalLogger is the default logger instance for the client.
var GlobalLogger *Logger

var logLevel = new(slog.LevelVar)

func init() {
	logLevel.Set(slog.LevelInfo)
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	GlobalLogger = &Logger{Logger: slog.New(handler)}
}

// SetLevel changes the level of GlobalLogger ("debug", "info", "warn", "error").
// Unknown values leave the level unchanged.
func SetLevel(level string) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		logLevel.Set(slog.LevelDebug)
	case "info", "":
		logLevel.Set(slog.LevelInfo)
	case "warn":
		logLevel.Set(slog.LevelWarn)
	case "error":
		logLevel.Set(slog.LevelError)
	}
}

// LogContextKey is a type for context keys used by the logging package.
type LogContextKey string

// CorrelationID is the context key holding the correlation id of a user action.
const CorrelationID LogContextKey = "correlation_id"

// GenerateCorrelationID creates a new unique correlation ID.
func GenerateCorrelationID() string {
	return uuid.NewString()
}

// WithCorrelationID returns a new context with the given correlation ID.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CorrelationID, id)
}

// EnsureCorrelationID returns ctx unchanged when it already carries a
// correlation id, otherwise a child context with a fresh one.
func EnsureCorrelationID(ctx context.Context) context.Context {
	if ExtractCorrelationID(ctx) != "" {
		return ctx
	}
	return WithCorrelationID(ctx, GenerateCorrelationID())
}

// ExtractCorrelationID retrieves the correlation ID from the context.
func ExtractCorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(CorrelationID).(string); ok {
		return id
	}
	return ""
}

// EngineLogger logs the lifecycle of optimistic operations: applied locally,
// confirmed by the backend, or rolled back.
type EngineLogger struct {
	component string
	logger    *Logger
}

// NewEngineLogger creates a new EngineLogger for the given component.
func NewEngineLogger(component string) *EngineLogger {
	return NewEngineLoggerWith(component, GlobalLogger)
}

// NewEngineLoggerWith is NewEngineLogger writing to logger.
func NewEngineLoggerWith(component string, logger *Logger) *EngineLogger {
	return &EngineLogger{
		component: component,
		logger:    logger,
	}
}

func (l *EngineLogger) attrs(ctx context.Context, operation, target string, fields map[string]interface{}) []any {
	attrs := []any{
		slog.String("component", l.component),
		slog.String("operation", operation),
		slog.String("target", target),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
	}
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	return attrs
}

// LogApplied logs a local optimistic mutation.
func (l *EngineLogger) LogApplied(ctx context.Context, operation, target string, fields map[string]interface{}) {
	OptimisticOperations.WithLabelValues(operation, OutcomeApplied).Inc()
	l.logger.DebugContext(ctx, "optimistic change applied", l.attrs(ctx, operation, target, fields)...)
}

// LogConfirmed logs a backend confirmation of an optimistic mutation.
func (l *EngineLogger) LogConfirmed(ctx context.Context, operation, target string, fields map[string]interface{}) {
	OptimisticOperations.WithLabelValues(operation, OutcomeConfirmed).Inc()
	l.logger.InfoContext(ctx, "optimistic change confirmed", l.attrs(ctx, operation, target, fields)...)
}

// LogMismatch logs a confirmation whose payload disagrees with the local
// change it confirms.
func (l *EngineLogger) LogMismatch(ctx context.Context, operation, target string, fields map[string]interface{}) {
	l.logger.WarnContext(ctx, "confirmation does not match the optimistic change", l.attrs(ctx, operation, target, fields)...)
}

// LogRolledBack logs the revert of an optimistic mutation after a failed call.
func (l *EngineLogger) LogRolledBack(ctx context.Context, operation, target string, err error) {
	OptimisticOperations.WithLabelValues(operation, OutcomeRolledBack).Inc()
	attrs := l.attrs(ctx, operation, target, nil)
	attrs = append(attrs, slog.String("error", err.Error()))
	l.logger.WarnContext(ctx, "optimistic change rolled back", attrs...)
}

// LogLocal logs a mutation that never reaches the backend.
func (l *EngineLogger) LogLocal(ctx context.Context, operation, target string, reason string) {
	OptimisticOperations.WithLabelValues(operation, OutcomeLocal).Inc()
	attrs := l.attrs(ctx, operation, target, nil)
	attrs = append(attrs, slog.String("reason", reason))
	l.logger.InfoContext(ctx, "local-only change", attrs...)
}
