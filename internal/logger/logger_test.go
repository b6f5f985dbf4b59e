package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger(t *testing.T) {
	for _, env := range []string{"prod", "local", "dev", "docker"} {
		l, err := NewLogger(env)
		if err != nil {
			t.Fatalf("%s: %v", env, err)
		}
		if l == nil {
			t.Fatalf("%s: nil logger", env)
		}
	}
}

func TestNewLogger_UnknownEnv(t *testing.T) {
	if _, err := NewLogger("staging"); err == nil {
		t.Fatal("expected error for unknown env")
	}
}

func TestNewLogger_LevelOverride(t *testing.T) {
	l, err := NewLogger("prod", "warn")
	if err != nil {
		t.Fatal(err)
	}
	if l.Core().Enabled(zapcore.InfoLevel) {
		t.Error("info must be disabled at warn level")
	}
	if !l.Core().Enabled(zapcore.WarnLevel) {
		t.Error("warn must be enabled")
	}

	if _, err := NewLogger("prod", "loud"); err == nil {
		t.Error("expected error for invalid level")
	}
}

func TestNamed(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	Named(zap.New(core), "resolver").Info("loaded")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries", len(entries))
	}
	if entries[0].LoggerName != "resolver" {
		t.Errorf("logger name = %q", entries[0].LoggerName)
	}
	if entries[0].ContextMap()["component"] != "resolver" {
		t.Errorf("component field = %v", entries[0].ContextMap()["component"])
	}

	if Named(nil, "x") == nil {
		t.Error("nil logger must yield a no-op logger")
	}
}

func TestContextLogger(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatal("missing logger must yield a no-op logger")
	}
	l := zap.NewExample()
	if FromContext(WithLogger(context.Background(), l)) != l {
		t.Error("logger not round-tripped through context")
	}
}

func TestWith_AddsFieldsToRequestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	ctx := WithLogger(context.Background(), zap.New(core).With(zap.String("request_id", "r1")))

	ctx = With(ctx, zap.String("tenant_id", "t1"))
	FromContext(ctx).Debug("Retrieval completed")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["request_id"] != "r1" || fields["tenant_id"] != "t1" {
		t.Errorf("fields = %v", fields)
	}

	if With(ctx) != ctx {
		t.Error("no fields must return ctx unchanged")
	}
}
