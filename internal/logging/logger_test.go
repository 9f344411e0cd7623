package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestConsoleHandlerOutput(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, lvl))

	WithComponent(logger, "server").Info("review ready", slog.String("id", "review-003"))

	line := buf.String()
	if !strings.Contains(line, "[server]") {
		t.Fatalf("missing component tag: %q", line)
	}
	if !strings.Contains(line, "review ready") {
		t.Fatalf("missing message: %q", line)
	}
	if !strings.Contains(line, "id=review-003") {
		t.Fatalf("missing attribute: %q", line)
	}
}

func TestConsoleHandlerHonorsLevel(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	lvl.Set(slog.LevelWarn)
	h := newConsoleHandler(&buf, lvl)

	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatal("info should be suppressed at warn level")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("error should pass at warn level")
	}
}
