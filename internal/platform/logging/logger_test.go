package logging

import (
	"context"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggerWritesFieldsAndInheritedArgs(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := FromZap(zap.New(core)).With("component", "delta")

	logger.Info("snapshot stored", "key", "games_snapshot:abc", "count", 3)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["component"] != "delta" || fields["key"] != "games_snapshot:abc" {
		t.Fatalf("unexpected fields: %+v", fields)
	}
}

func TestSetMirrorReceivesRecords(t *testing.T) {
	var (
		mu       sync.Mutex
		messages []string
		argCount int
	)
	SetMirror(func(_ context.Context, level Level, msg string, args ...any) {
		mu.Lock()
		defer mu.Unlock()
		if level == LevelWarn {
			messages = append(messages, msg)
			argCount = len(args)
		}
	})
	t.Cleanup(func() { SetMirror(nil) })

	core, _ := observer.New(zapcore.InfoLevel)
	logger := FromZap(zap.New(core)).With("sport", "nba")
	logger.WarnContext(context.Background(), "upstream degraded", "source", "espn")
	logger.Debug("filtered by level")

	mu.Lock()
	defer mu.Unlock()
	if len(messages) != 1 || messages[0] != "upstream degraded" {
		t.Fatalf("unexpected mirrored messages: %v", messages)
	}
	if argCount != 4 {
		t.Fatalf("mirror should see inherited and call args, got %d values", argCount)
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]Level{
		"debug":   LevelDebug,
		"WARN":    LevelWarn,
		"warning": LevelWarn,
		"error":   LevelError,
		"":        LevelInfo,
		"verbose": LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
