package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
		"info":  slog.LevelInfo,
		"":      slog.LevelInfo,
		"loud":  slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSetupWriterWritesConsoleAndFile(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var console bytes.Buffer
	file := filepath.Join(t.TempDir(), "logs", "run.log")
	if err := SetupWriter(&console, "info", file); err != nil {
		t.Fatalf("SetupWriter() error = %v", err)
	}
	slog.Info("runner scenario done", "title", "basic")
	slog.Debug("hidden")

	if !strings.Contains(console.String(), "runner scenario done") {
		t.Fatalf("console output = %q, want record", console.String())
	}
	if strings.Contains(console.String(), "hidden") {
		t.Fatalf("console output = %q, debug record should be filtered", console.String())
	}
	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), "title=basic") {
		t.Fatalf("log file = %q, want record attrs", data)
	}
}

func TestCaptureRecordsAndForwards(t *testing.T) {
	var buf bytes.Buffer
	next := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	capture := NewCapture(next)
	logger := slog.New(capture).With("scenario", "dialogs").WithGroup("dialog")

	logger.Info("dialog opened", "kind", "prompt", "message", "Your name?")
	logger.Debug("only forwarded")

	entries := capture.Entries()
	if len(entries) != 1 {
		t.Fatalf("len(Entries()) = %d, want 1", len(entries))
	}
	e := entries[0]
	if e.Message != "dialog opened" || e.Level != "INFO" {
		t.Fatalf("entry = %+v, want INFO dialog opened", e)
	}
	if got := e.Attrs["scenario"]; got != "dialogs" {
		t.Fatalf("Attrs[scenario] = %q, want dialogs", got)
	}
	if got := e.Attrs["dialog.kind"]; got != "prompt" {
		t.Fatalf("Attrs[dialog.kind] = %q, want prompt", got)
	}
	if !strings.Contains(buf.String(), "only forwarded") {
		t.Fatalf("forwarded output = %q, want debug record", buf.String())
	}
	if !strings.Contains(e.String(), "dialog.kind=prompt") {
		t.Fatalf("String() = %q, want rendered attrs", e.String())
	}
}

func TestCaptureWithoutNext(t *testing.T) {
	capture := NewCapture(nil)
	slog.New(capture).Warn("route aborted", "url", "http://x/a.png")
	if got := len(capture.Entries()); got != 1 {
		t.Fatalf("len(Entries()) = %d, want 1", got)
	}
}
