package browser

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"syscall"
	"time"
)

// Browser names accepted by Config.Browser.
const (
	Chromium = "chromium"
	Chrome   = "chrome"
	Edge     = "msedge"
)

// Config holds browser launch configuration.
type Config struct {
	Browser    string
	BinaryPath string
	Headless   bool
	CDPAddress string
	CDPPort    int
	ProfileDir string
	WindowSize string
}

// Launcher manages the lifecycle of a browser process.
type Launcher struct {
	cfg        Config
	cmd        *exec.Cmd
	running    bool
	tmpProfile string
}

// NewLauncher creates a new browser launcher with the given config.
func NewLauncher(cfg Config) *Launcher {
	if cfg.Browser == "" {
		cfg.Browser = Chromium
	}
	if cfg.CDPAddress == "" {
		cfg.CDPAddress = "127.0.0.1"
	}
	if cfg.WindowSize == "" {
		cfg.WindowSize = "1280,720"
	}
	return &Launcher{cfg: cfg}
}

var candidates = map[string][]string{
	Chromium: {"chromium-browser", "chromium", "google-chrome", "google-chrome-stable"},
	Chrome:   {"google-chrome", "google-chrome-stable", "chrome"},
	Edge:     {"microsoft-edge", "microsoft-edge-stable", "msedge"},
}

var macPaths = map[string]string{
	Chromium: "/Applications/Chromium.app/Contents/MacOS/Chromium",
	Chrome:   "/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	Edge:     "/Applications/Microsoft Edge.app/Contents/MacOS/Microsoft Edge",
}

// detectBrowser finds an installed binary for the named browser.
func detectBrowser(name string) (string, error) {
	names, ok := candidates[name]
	if !ok {
		return "", fmt.Errorf("unsupported browser %q", name)
	}
	for _, n := range names {
		if path, err := exec.LookPath(n); err == nil {
			return path, nil
		}
	}
	if runtime.GOOS == "darwin" {
		if _, err := os.Stat(macPaths[name]); err == nil {
			return macPaths[name], nil
		}
	}
	return "", fmt.Errorf("no %s binary found (tried %s)", name, strings.Join(names, ", "))
}

// isPortInUse checks whether a TCP port is already listening.
func isPortInUse(address string, port int) bool {
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("%s:%d", address, port), time.Second)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// args builds the browser command line.
func (l *Launcher) args(profileDir string) []string {
	args := []string{
		fmt.Sprintf("--remote-debugging-port=%d", l.cfg.CDPPort),
		fmt.Sprintf("--remote-debugging-address=%s", l.cfg.CDPAddress),
		fmt.Sprintf("--user-data-dir=%s", profileDir),
		"--no-first-run",
		"--no-default-browser-check",
		"--disable-dev-shm-usage",
		"--disable-breakpad",
		"--disable-crash-reporter",
		fmt.Sprintf("--window-size=%s", l.cfg.WindowSize),
	}
	if l.cfg.Headless {
		args = append(args, "--headless=new", "--hide-scrollbars", "--mute-audio")
	}
	return append(args, "about:blank")
}

// Launch starts the browser process unless the CDP port is already in use,
// in which case the running browser is reused.
func (l *Launcher) Launch(ctx context.Context) error {
	if isPortInUse(l.cfg.CDPAddress, l.cfg.CDPPort) {
		slog.Info("browser already running, skipping launch",
			"address", l.cfg.CDPAddress, "port", l.cfg.CDPPort)
		return nil
	}

	browserPath := l.cfg.BinaryPath
	if browserPath == "" {
		var err error
		browserPath, err = detectBrowser(l.cfg.Browser)
		if err != nil {
			return err
		}
	}
	slog.Info("detected browser", "browser", l.cfg.Browser, "path", browserPath)

	profileDir := l.cfg.ProfileDir
	if profileDir == "" {
		dir, err := os.MkdirTemp("", "pagecheck-profile-")
		if err != nil {
			return fmt.Errorf("create profile dir: %w", err)
		}
		profileDir = dir
		l.tmpProfile = dir
	} else if err := os.MkdirAll(profileDir, 0o755); err != nil {
		return fmt.Errorf("create profile dir: %w", err)
	}

	l.cmd = exec.Command(browserPath, l.args(profileDir)...)
	l.cmd.Stdout = os.Stderr
	l.cmd.Stderr = os.Stderr

	if err := l.cmd.Start(); err != nil {
		l.cleanup()
		return fmt.Errorf("start browser: %w", err)
	}
	l.running = true
	slog.Info("browser process started", "pid", l.cmd.Process.Pid, "headless", l.cfg.Headless)

	if err := waitForCDP(ctx, l.CDPURL(), 15*time.Second); err != nil {
		l.Stop()
		return fmt.Errorf("waiting for CDP: %w", err)
	}
	slog.Info("CDP endpoint ready",
		"address", l.cfg.CDPAddress, "port", l.cfg.CDPPort)

	return nil
}

// CDPURL is the HTTP endpoint of the browser's debugging interface.
func (l *Launcher) CDPURL() string {
	return fmt.Sprintf("http://%s:%d", l.cfg.CDPAddress, l.cfg.CDPPort)
}

// waitForCDP polls the CDP /json/version endpoint until it responds.
func waitForCDP(ctx context.Context, base string, within time.Duration) error {
	url := base + "/json/version"
	deadline := time.After(within)
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	client := &http.Client{Timeout: time.Second}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			return fmt.Errorf("CDP did not become ready within %s at %s", within, url)
		case <-ticker.C:
			resp, err := client.Get(url)
			if err != nil {
				continue
			}
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
	}
}

// Running reports whether this launcher spawned a browser process.
func (l *Launcher) Running() bool {
	return l.running
}

// Stop terminates the browser process with SIGTERM, falling back to SIGKILL,
// and removes a temporary profile.
func (l *Launcher) Stop() {
	defer l.cleanup()
	if l.cmd == nil || l.cmd.Process == nil {
		return
	}
	slog.Info("stopping browser", "pid", l.cmd.Process.Pid)
	_ = l.cmd.Process.Signal(syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		_ = l.cmd.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("browser stopped gracefully")
	case <-time.After(5 * time.Second):
		slog.Warn("browser did not exit, sending SIGKILL")
		_ = l.cmd.Process.Kill()
		<-done
	}
	l.cmd = nil
	l.running = false
}

func (l *Launcher) cleanup() {
	if l.tmpProfile == "" {
		return
	}
	if err := os.RemoveAll(l.tmpProfile); err != nil {
		slog.Warn("remove temporary profile failed", "dir", l.tmpProfile, "error", err)
	}
	l.tmpProfile = ""
}
