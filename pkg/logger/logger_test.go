package logger

import (
	"context"
	"testing"
)

func TestLoggerInit(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	if Get() == nil {
		t.Fatal("logger is nil after initialization")
	}
}

func TestLoggerBasic(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	log := Get()
	ctx := context.Background()
	log.Info(ctx, "test message", String("k", "v"), Uint64("day", 3))
	log.Debug(ctx, "debug message", Int("n", 1))
	log.Warn(ctx, "warn message", Int64("ts", 86400))
	log.Error(ctx, "error message", Error(nil))
}

func TestLoggerNamed(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	named := Named("engine")
	if named == nil {
		t.Fatal("named logger is nil")
	}
	named.Info(context.Background(), "named message")
}

func TestSetLevelString(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	for _, lvl := range []string{"debug", "info", "warn", "warning", "error", ""} {
		if err := SetLevelString(lvl); err != nil {
			t.Errorf("SetLevelString(%q) failed: %v", lvl, err)
		}
	}
	if err := SetLevelString("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}
