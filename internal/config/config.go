package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Browser identifiers accepted by the Browser option.
const (
	BrowserChromium = "chromium"
	BrowserChrome   = "chrome"
	BrowserEdge     = "msedge"
)

// ArtifactMode controls when failure screenshots are captured.
type ArtifactMode string

const (
	ArtifactNone      ArtifactMode = "none"
	ArtifactAlways    ArtifactMode = "always"
	ArtifactOnFailure ArtifactMode = "on-failure"
)

// Report formats.
const (
	ReportList     = "list"
	ReportJSON     = "json"
	ReportJUnit    = "junit"
	ReportMarkdown = "markdown"
	ReportHTML     = "html"
)

var (
	validBrowsers = []string{BrowserChromium, BrowserChrome, BrowserEdge}
	validModes    = []string{string(ArtifactNone), string(ArtifactAlways), string(ArtifactOnFailure)}
	validReports  = []string{ReportList, ReportJSON, ReportJUnit, ReportMarkdown, ReportHTML}
)

// RunConfig holds every option of a run. It is loaded once and must not be
// mutated after Validate succeeds.
type RunConfig struct {
	// Browser selection
	Browser     string `yaml:"browser"`
	BrowserPath string `yaml:"browser_path"`
	Headless    bool   `yaml:"headless"`
	// CDPURL attaches to an already running browser instead of launching one.
	CDPURL  string `yaml:"cdp_url"`
	CDPPort int    `yaml:"cdp_port"`

	BaseURL string `yaml:"base_url"`

	// Timeouts
	ScenarioTimeout   time.Duration `yaml:"timeout"`
	ActionTimeout     time.Duration `yaml:"action_timeout"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout"`
	ExpectTimeout     time.Duration `yaml:"expect_timeout"`

	// Output
	ArtifactMode ArtifactMode `yaml:"screenshot"`
	ArtifactDir  string       `yaml:"artifact_dir"`
	ReportFormat string       `yaml:"reporter"`
	ReportDir    string       `yaml:"report_dir"`
	MetricsPath  string       `yaml:"metrics_path"`
	NotifyURL    string       `yaml:"notify_url"`

	// Selection and scheduling
	Workers   int    `yaml:"workers"`
	Grep      string `yaml:"grep"`
	SuiteFile string `yaml:"suite"`

	// PerfBudget fails a measured navigation slower than the budget. Zero
	// keeps performance scenarios purely observational.
	PerfBudget time.Duration `yaml:"perf_budget"`

	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`
}

// Defaults returns the baseline configuration.
func Defaults() RunConfig {
	return RunConfig{
		Browser:           BrowserChromium,
		Headless:          true,
		CDPPort:           9222,
		BaseURL:           "http://localhost:3000",
		ScenarioTimeout:   30 * time.Second,
		ActionTimeout:     30 * time.Second,
		NavigationTimeout: 30 * time.Second,
		ExpectTimeout:     5 * time.Second,
		ArtifactMode:      ArtifactOnFailure,
		ArtifactDir:       "test-results",
		ReportFormat:      ReportHTML,
		ReportDir:         "pagecheck-report",
		Workers:           1,
		LogLevel:          "info",
		LogFile:           "logs/pagecheck.log",
	}
}

// LoadOptions selects the sources Load merges.
type LoadOptions struct {
	// File is an optional YAML config path. When empty, DefaultFile is used
	// if it exists.
	File string
	// EnvFile is the dotenv file to load; ".env" when empty.
	EnvFile string
}

// DefaultFile is read when no config file is named and it exists.
const DefaultFile = "pagecheck.yaml"

// Load merges defaults, the YAML file and the environment, in that order of
// increasing precedence. Command line flags are applied by the caller on
// top of the result before calling Validate.
func Load(opts LoadOptions) (RunConfig, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		slog.Debug("failed to load .env file", "path", envFile, "error", err)
	}

	cfg := Defaults()

	path := opts.File
	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return RunConfig{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return RunConfig{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *RunConfig) error {
	cfg.Browser = strings.ToLower(getEnvOrDefault("PAGECHECK_BROWSER", cfg.Browser))
	cfg.BrowserPath = getEnvOrDefault("PAGECHECK_BROWSER_PATH", cfg.BrowserPath)
	cfg.CDPURL = getEnvOrDefault("PAGECHECK_CDP_URL", cfg.CDPURL)
	cfg.BaseURL = getEnvOrDefault("PAGECHECK_BASE_URL", getEnvOrDefault("DEMO_URL", cfg.BaseURL))
	cfg.ArtifactMode = ArtifactMode(strings.ToLower(getEnvOrDefault("PAGECHECK_SCREENSHOT", string(cfg.ArtifactMode))))
	cfg.ArtifactDir = getEnvOrDefault("PAGECHECK_ARTIFACT_DIR", cfg.ArtifactDir)
	cfg.ReportFormat = strings.ToLower(getEnvOrDefault("PAGECHECK_REPORTER", cfg.ReportFormat))
	cfg.ReportDir = getEnvOrDefault("PAGECHECK_REPORT_DIR", cfg.ReportDir)
	cfg.MetricsPath = getEnvOrDefault("PAGECHECK_METRICS_PATH", cfg.MetricsPath)
	cfg.NotifyURL = getEnvOrDefault("PAGECHECK_NOTIFY_URL", cfg.NotifyURL)
	cfg.Grep = getEnvOrDefault("PAGECHECK_GREP", cfg.Grep)
	cfg.SuiteFile = getEnvOrDefault("PAGECHECK_SUITE", cfg.SuiteFile)
	cfg.LogLevel = strings.ToLower(getEnvOrDefault("PAGECHECK_LOG_LEVEL", cfg.LogLevel))
	cfg.LogFile = getEnvOrDefault("PAGECHECK_LOG_FILE", cfg.LogFile)

	var err error
	if cfg.Headless, err = getEnvBoolOrDefault("PAGECHECK_HEADLESS", cfg.Headless); err != nil {
		return err
	}
	if cfg.CDPPort, err = getEnvIntOrDefault("PAGECHECK_CDP_PORT", cfg.CDPPort); err != nil {
		return err
	}
	if cfg.Workers, err = getEnvIntOrDefault("PAGECHECK_WORKERS", cfg.Workers); err != nil {
		return err
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"PAGECHECK_TIMEOUT", &cfg.ScenarioTimeout},
		{"PAGECHECK_ACTION_TIMEOUT", &cfg.ActionTimeout},
		{"PAGECHECK_NAVIGATION_TIMEOUT", &cfg.NavigationTimeout},
		{"PAGECHECK_EXPECT_TIMEOUT", &cfg.ExpectTimeout},
		{"PAGECHECK_PERF_BUDGET", &cfg.PerfBudget},
	}
	for _, d := range durations {
		v, err := getEnvDurationOrDefault(d.key, *d.dst)
		if err != nil {
			return err
		}
		*d.dst = v
	}
	return nil
}

// Validate checks every option and returns an *Error naming the first
// offending field.
func (c RunConfig) Validate() error {
	if !contains(validBrowsers, c.Browser) {
		return fieldError("browser", "unknown browser %q (want one of %s)", c.Browser, strings.Join(validBrowsers, ", "))
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fieldError("base_url", "malformed base URL %q", c.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fieldError("base_url", "unsupported scheme %q", u.Scheme)
	}
	if c.CDPURL != "" {
		cu, err := url.Parse(c.CDPURL)
		if err != nil || cu.Host == "" {
			return fieldError("cdp_url", "malformed CDP URL %q", c.CDPURL)
		}
	} else if c.CDPPort < 1 || c.CDPPort > 65535 {
		return fieldError("cdp_port", "port %d out of range", c.CDPPort)
	}

	timeouts := []struct {
		field string
		value time.Duration
	}{
		{"timeout", c.ScenarioTimeout},
		{"action_timeout", c.ActionTimeout},
		{"navigation_timeout", c.NavigationTimeout},
		{"expect_timeout", c.ExpectTimeout},
	}
	for _, t := range timeouts {
		if t.value <= 0 {
			return fieldError(t.field, "must be positive, got %s", t.value)
		}
	}
	if c.PerfBudget < 0 {
		return fieldError("perf_budget", "must not be negative, got %s", c.PerfBudget)
	}

	if !contains(validModes, string(c.ArtifactMode)) {
		return fieldError("screenshot", "unknown artifact mode %q (want one of %s)", c.ArtifactMode, strings.Join(validModes, ", "))
	}
	if !contains(validReports, c.ReportFormat) {
		return fieldError("reporter", "unknown report format %q (want one of %s)", c.ReportFormat, strings.Join(validReports, ", "))
	}
	if c.ArtifactDir == "" {
		return fieldError("artifact_dir", "must not be empty")
	}
	if c.ReportDir == "" {
		return fieldError("report_dir", "must not be empty")
	}
	if c.Workers < 1 {
		return fieldError("workers", "must be at least 1, got %d", c.Workers)
	}
	return nil
}

// Error is a configuration problem. It is fatal: no scenario runs.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	if e.Field == "" {
		return "config: " + e.Message
	}
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

func fieldError(field, format string, args ...any) error {
	return &Error{Field: field, Message: fmt.Sprintf(format, args...)}
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, &Error{Field: key, Message: fmt.Sprintf("malformed integer %q", val)}
	}
	return i, nil
}

func getEnvBoolOrDefault(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, &Error{Field: key, Message: fmt.Sprintf("malformed boolean %q", val)}
	}
	return b, nil
}

// Durations accept Go syntax ("5s") or bare milliseconds ("5000").
func getEnvDurationOrDefault(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	if ms, err := strconv.Atoi(val); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, &Error{Field: key, Message: fmt.Sprintf("malformed duration %q", val)}
	}
	return d, nil
}
