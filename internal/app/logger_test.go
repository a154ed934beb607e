package app

import (
	"context"
	"log/slog"
	"testing"
)

func TestLoggerHonorsConfiguredLevel(t *testing.T) {
	ctx := context.Background()

	logger := NewLogger(&Config{LogFormat: "json", LogLevel: "warn"})
	if logger.Enabled(ctx, slog.LevelInfo) {
		t.Fatal("info should be suppressed at warn level")
	}
	if !logger.Enabled(ctx, slog.LevelWarn) {
		t.Fatal("warn should be enabled at warn level")
	}

	logger = NewLogger(&Config{LogLevel: "debug"})
	if !logger.Enabled(ctx, slog.LevelDebug) {
		t.Fatal("debug should be enabled at debug level")
	}

	logger = NewLogger(nil)
	if logger.Enabled(ctx, slog.LevelDebug) {
		t.Fatal("debug should be suppressed at the default level")
	}
	if !logger.Enabled(ctx, slog.LevelInfo) {
		t.Fatal("info should be enabled at the default level")
	}
}
