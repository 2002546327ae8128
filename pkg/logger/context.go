package logger

import (
	"context"

	"go.uber.org/zap"
)

type contextKey string

const (
	appKey       contextKey = "app"
	actionKey    contextKey = "action"
	triggerKey   contextKey = "trigger"
	requestIDKey contextKey = "request_id"
	loggerKey    contextKey = "logger"
)

// WithApp adds the application name to ctx.
func WithApp(ctx context.Context, app string) context.Context {
	return context.WithValue(ctx, appKey, app)
}

// WithAction adds the action (turn_on / turn_off) to ctx.
func WithAction(ctx context.Context, action string) context.Context {
	return context.WithValue(ctx, actionKey, action)
}

// WithTrigger records whether the work was started by cron or by a person.
func WithTrigger(ctx context.Context, trigger string) context.Context {
	return context.WithValue(ctx, triggerKey, trigger)
}

// WithRequestID adds an HTTP request ID to ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// WithLogger stores a prepared logger in ctx.
func WithLogger(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext returns a logger carrying every field accumulated in ctx.
// Callers log on it directly, so the wrapper caller skip of the global
// logger is undone.
func FromContext(ctx context.Context) *zap.Logger {
	base := Logger.WithOptions(zap.AddCallerSkip(-1))
	if ctx == nil {
		return base
	}
	if l, ok := ctx.Value(loggerKey).(*zap.Logger); ok && l != nil {
		return l
	}

	var fields []zap.Field
	for _, key := range []contextKey{appKey, actionKey, triggerKey, requestIDKey} {
		if v, ok := ctx.Value(key).(string); ok && v != "" {
			fields = append(fields, zap.String(string(key), v))
		}
	}
	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}

// AppField returns a zap field for an application name
func AppField(app string) zap.Field {
	return zap.String("app", app)
}

// ActionField returns a zap field for an action name
func ActionField(action string) zap.Field {
	return zap.String("action", action)
}
