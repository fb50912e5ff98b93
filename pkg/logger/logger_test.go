package logger

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoggerInit(t *testing.T) {
	err := Init()
	if err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	logger := Get()
	if logger == nil {
		t.Fatal("logger is nil after initialization")
	}

	// Re-initialising must be safe.
	if err := Init(WithLevel("debug")); err != nil {
		t.Fatalf("failed to re-initialize logger: %v", err)
	}
	if Level() != "debug" {
		t.Errorf("expected debug level, got %s", Level())
	}
}

func TestLoggerBasic(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(WithWriter(&buf)); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	ctx := context.Background()
	Get().Info(ctx, "test message",
		String("k", "v"),
		Int("n", 3),
		Bool("ok", true),
		Duration("took", time.Second),
		Error(errors.New("boom")),
	)
	Get().Debug(ctx, "hidden at info")

	out := buf.String()
	for _, want := range []string{"test message", `"k": "v"`, `"n": 3`, `"ok": true`, "boom"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got %s", want, out)
		}
	}
	if strings.Contains(out, "hidden at info") {
		t.Errorf("debug line written at info level: %s", out)
	}
}

func TestLoggerNamed(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(WithWriter(&buf)); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	namedLogger := Named("test")
	if namedLogger == nil {
		t.Fatal("named logger is nil")
	}
	namedLogger.Named("child").Warn(context.Background(), "test message")
	if !strings.Contains(buf.String(), "test.child") {
		t.Errorf("expected logger name in output, got %s", buf.String())
	}
}

func TestLoggerFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "posture.log")
	if err := Init(WithWriter(&bytes.Buffer{}), WithFile(path)); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	Get().Error(context.Background(), "to file", String("where", "disk"))
	if err := Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"to file"`) || !strings.Contains(string(data), `"where":"disk"`) {
		t.Errorf("unexpected file contents: %s", data)
	}
}

func TestSetLevelString(t *testing.T) {
	defer func() { _ = SetLevelString("info") }()
	for _, lvl := range []string{"debug", "INFO", " warn ", "warning", "error", ""} {
		if err := SetLevelString(lvl); err != nil {
			t.Errorf("level %q: unexpected error %v", lvl, err)
		}
	}
	if err := SetLevelString("verbose"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestInitUnknownLevelFallsBackToInfo(t *testing.T) {
	if err := Init(WithWriter(&bytes.Buffer{}), WithLevel("chatty")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if Level() != "info" {
		t.Errorf("expected info, got %s", Level())
	}
}
