package logger

import (
	"context"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observeGlobal(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	prev := Logger
	Logger = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	t.Cleanup(func() { Logger = prev })
	return logs
}

func TestFromContextReportsCallerSite(t *testing.T) {
	logs := observeGlobal(t)

	ctx := WithTrigger(WithApp(context.Background(), "alpha"), "manual")
	FromContext(ctx).Info("turning on")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if !e.Caller.Defined || filepath.Base(e.Caller.File) != "context_test.go" {
		t.Errorf("expected caller in context_test.go, got %s", e.Caller.File)
	}
	fields := e.ContextMap()
	if fields["app"] != "alpha" || fields["trigger"] != "manual" {
		t.Errorf("unexpected fields %v", fields)
	}
}

func TestFromContextWithoutFields(t *testing.T) {
	logs := observeGlobal(t)

	FromContext(context.Background()).Warn("plain")
	Info("wrapped")

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	for _, e := range entries {
		if filepath.Base(e.Caller.File) != "context_test.go" {
			t.Errorf("%q: expected caller in context_test.go, got %s", e.Message, e.Caller.File)
		}
		if len(e.Context) != 0 {
			t.Errorf("%q: expected no fields, got %v", e.Message, e.ContextMap())
		}
	}
}

func TestFromContextPrefersStoredLogger(t *testing.T) {
	stored := zap.NewNop()
	if got := FromContext(WithLogger(context.Background(), stored)); got != stored {
		t.Errorf("expected stored logger to be returned")
	}
}
