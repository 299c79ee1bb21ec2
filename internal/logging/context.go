package logging

import (
	"context"
	"log/slog"
)

type contextKey string

const (
	sessionKey   contextKey = "session"
	stageKey     contextKey = "stage"
	requestIDKey contextKey = "request_id"
)

// WithSession annotates context with the progress session identifier.
func WithSession(ctx context.Context, session string) context.Context {
	if session == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionKey, session)
}

// SessionFromContext extracts the session identifier if present.
func SessionFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(sessionKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithStage annotates context with the orchestration stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(stageKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithContext returns a logger enriched with any session, stage, and request
// identifiers carried by ctx.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	if ctx == nil {
		return logger
	}
	if session, ok := SessionFromContext(ctx); ok {
		logger = logger.With(String(FieldSession, session))
	}
	if stage, ok := StageFromContext(ctx); ok {
		logger = logger.With(String(FieldStage, stage))
	}
	if id, ok := RequestIDFromContext(ctx); ok {
		logger = logger.With(String(FieldRequestID, id))
	}
	return logger
}
