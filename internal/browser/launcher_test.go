package browser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func TestDetectBrowserUsesPath(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "microsoft-edge")
	if err := os.WriteFile(bin, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	t.Setenv("PATH", dir)

	got, err := detectBrowser(Edge)
	if err != nil {
		t.Fatalf("detectBrowser() error = %v", err)
	}
	if got != bin {
		t.Fatalf("detectBrowser() = %q, want %q", got, bin)
	}
}

func TestDetectBrowserUnknown(t *testing.T) {
	if _, err := detectBrowser("firefox"); err == nil {
		t.Fatal("detectBrowser(firefox) error = nil, want error")
	}
}

func TestLauncherArgs(t *testing.T) {
	l := NewLauncher(Config{CDPPort: 9333, Headless: true})
	args := l.args("/tmp/profile")

	for _, want := range []string{
		"--remote-debugging-port=9333",
		"--remote-debugging-address=127.0.0.1",
		"--user-data-dir=/tmp/profile",
		"--headless=new",
		"about:blank",
	} {
		if !slices.Contains(args, want) {
			t.Errorf("args missing %q: %v", want, args)
		}
	}
	if got, want := l.CDPURL(), "http://127.0.0.1:9333"; got != want {
		t.Fatalf("CDPURL() = %q, want %q", got, want)
	}

	headed := NewLauncher(Config{CDPPort: 9333}).args("/tmp/profile")
	if slices.Contains(headed, "--headless=new") {
		t.Fatalf("headed args contain --headless=new: %v", headed)
	}
}

func TestWaitForCDP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/json/version" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	if err := waitForCDP(context.Background(), srv.URL, 2*time.Second); err != nil {
		t.Fatalf("waitForCDP() error = %v", err)
	}
}

func TestWaitForCDPGivesUp(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	if err := waitForCDP(context.Background(), srv.URL, 600*time.Millisecond); err == nil {
		t.Fatal("waitForCDP() error = nil, want timeout")
	}
}
