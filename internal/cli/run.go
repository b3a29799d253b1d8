package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dgnsrekt/pagecheck/internal/artifacts"
	"github.com/dgnsrekt/pagecheck/internal/browser"
	"github.com/dgnsrekt/pagecheck/internal/cdpcontrol"
	"github.com/dgnsrekt/pagecheck/internal/config"
	"github.com/dgnsrekt/pagecheck/internal/events"
	"github.com/dgnsrekt/pagecheck/internal/metrics"
	"github.com/dgnsrekt/pagecheck/internal/notify"
	"github.com/dgnsrekt/pagecheck/internal/report"
	"github.com/dgnsrekt/pagecheck/internal/runner"
	"github.com/dgnsrekt/pagecheck/internal/scenario"
	"github.com/dgnsrekt/pagecheck/internal/storage"
	"github.com/spf13/cobra"
)

const (
	resultsFile      = "results.jsonl"
	resultsMaxSizeMB = 50
	notifyTimeout    = 10 * time.Second
)

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the scenario suite",
		Long: `Run every selected scenario in a fresh, isolated browser context and
write the report.

Exit codes:
  0   - All scenarios passed
  1   - One or more scenarios failed or timed out
  2   - Configuration or startup error
  130 - Interrupted

Examples:
  pagecheck run
  pagecheck run --base-url http://localhost:3000 --workers 4
  pagecheck run --grep dialog --reporter junit
  pagecheck run --cdp-url http://127.0.0.1:9222 --screenshot always`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSuite(cmd, rootOpts.Config)
		},
	}

	f := &rootOpts.flags
	fs := cmd.Flags()
	fs.StringVar(&f.browser, "browser", config.BrowserChromium, "browser to launch (chromium|chrome|msedge)")
	fs.StringVar(&f.browserPath, "browser-path", "", "browser binary; detected from PATH when empty")
	fs.BoolVar(&f.headed, "headed", false, "show the browser window")
	fs.StringVar(&f.cdpURL, "cdp-url", "", "attach to a running browser's CDP endpoint instead of launching one")
	fs.IntVar(&f.cdpPort, "cdp-port", 9222, "remote debugging port for a launched browser")
	fs.StringVar(&f.baseURL, "base-url", "", "URL of the application under test")
	fs.DurationVar(&f.timeout, "timeout", 30*time.Second, "per-scenario timeout")
	fs.DurationVar(&f.actionTimeout, "action-timeout", 30*time.Second, "per-action timeout")
	fs.DurationVar(&f.navTimeout, "navigation-timeout", 30*time.Second, "per-navigation timeout")
	fs.DurationVar(&f.expectTimeout, "expect-timeout", 5*time.Second, "assertion auto-wait timeout")
	fs.DurationVar(&f.perfBudget, "perf-budget", 0, "fail measured navigations slower than this (0 disables)")
	fs.StringVar(&f.screenshot, "screenshot", string(config.ArtifactOnFailure), "failure screenshots (none|always|on-failure)")
	fs.StringVar(&f.reporter, "reporter", config.ReportHTML, "report format (list|json|junit|markdown|html)")
	fs.StringVar(&f.metricsPath, "metrics-path", "", "write Prometheus metrics to this textfile")
	fs.StringVar(&f.notifyURL, "notify-url", "", "ntfy topic URL for a run summary")
	fs.IntVar(&f.workers, "workers", 1, "scenarios run in parallel")

	return cmd
}

func runSuite(cmd *cobra.Command, cfg config.RunConfig) error {
	if err := cfg.Validate(); err != nil {
		return WrapExitError(ExitConfigError, "invalid configuration", err)
	}
	suite, err := loadSuite(cfg)
	if err != nil {
		return WrapExitError(ExitConfigError, "load suite", err)
	}
	if len(suite.Scenarios) == 0 {
		return NewExitError(ExitConfigError, fmt.Sprintf("no scenarios match %q", cfg.Grep))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cdpURL, shutdown, err := startBrowser(ctx, cfg)
	if err != nil {
		return WrapExitError(ExitConfigError, "start browser", err)
	}
	defer shutdown()

	version, err := browser.Probe(ctx, cdpURL)
	if err != nil {
		slog.Warn("browser version probe failed", "cdp_url", cdpURL, "error", err)
	} else {
		slog.Info("browser ready", "product", version.Product, "protocol", version.ProtocolVersion)
	}

	b, err := cdpcontrol.Connect(ctx, cdpURL)
	if err != nil {
		return WrapExitError(ExitConfigError, "connect to browser", err)
	}
	defer func() { _ = b.Close() }()

	store, err := artifacts.NewStore(cfg.ArtifactDir)
	if err != nil {
		return WrapExitError(ExitConfigError, "open artifact store", err)
	}
	results, err := storage.NewJSONLWriter(filepath.Join(cfg.ReportDir, resultsFile), resultsMaxSizeMB)
	if err != nil {
		return WrapExitError(ExitConfigError, "open results file", err)
	}
	defer func() { _ = results.Close() }()

	var collector *metrics.Collector
	if cfg.MetricsPath != "" {
		collector = metrics.NewCollector()
	}

	broker := events.NewBroker()
	subID, ch := broker.Subscribe()
	progressDone := make(chan struct{})
	go func() {
		defer close(progressDone)
		printProgress(cmd.ErrOrStderr(), ch)
	}()

	r := runner.New(runner.Options{
		Config:         cfg,
		Driver:         chromeDriver{b: b},
		Artifacts:      store,
		Results:        results,
		Events:         broker,
		Metrics:        collector,
		Logger:         slog.Default(),
		BrowserVersion: version.Product,
	})
	rep := r.Run(ctx, suite)

	broker.Unsubscribe(subID)
	<-progressDone

	if collector != nil {
		if err := collector.Write(cfg.MetricsPath); err != nil {
			slog.Error("metrics write failed", "path", cfg.MetricsPath, "error", err)
		}
	}

	out := cmd.OutOrStdout()
	if err := report.List(out, rep); err != nil {
		slog.Error("report print failed", "error", err)
	}
	path, err := report.Write(cfg.ReportDir, cfg.ReportFormat, rep)
	if err != nil {
		return WrapExitError(ExitFailure, "write report", err)
	}
	fmt.Fprintf(out, "\nreport: %s\nresults: %s\n", path, results.Path())

	if cfg.NotifyURL != "" {
		nctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		err := notify.SendRunSummary(nctx, &http.Client{Timeout: notifyTimeout}, cfg.NotifyURL, rep)
		cancel()
		if err != nil {
			slog.Warn("run notification failed", "error", err)
		}
	}

	switch {
	case rep.Interrupted:
		return NewExitError(ExitInterrupted, "run interrupted")
	case !rep.OK():
		return NewExitError(ExitFailure, report.SummaryLine(rep))
	}
	return nil
}

// startBrowser returns the CDP endpoint to use and a function releasing
// whatever was started for it.
func startBrowser(ctx context.Context, cfg config.RunConfig) (string, func(), error) {
	if cfg.CDPURL != "" {
		return cfg.CDPURL, func() {}, nil
	}
	launcher := browser.NewLauncher(browser.Config{
		Browser:    cfg.Browser,
		BinaryPath: cfg.BrowserPath,
		Headless:   cfg.Headless,
		CDPPort:    cfg.CDPPort,
	})
	if err := launcher.Launch(ctx); err != nil {
		return "", nil, err
	}
	return launcher.CDPURL(), launcher.Stop, nil
}

func loadSuite(cfg config.RunConfig) (scenario.Suite, error) {
	suite := scenario.Demo()
	if cfg.SuiteFile != "" {
		extra, err := scenario.LoadFile(cfg.SuiteFile)
		if err != nil {
			return scenario.Suite{}, err
		}
		suite = suite.Merge(extra)
	}
	suite, err := suite.Filter(cfg.Grep)
	if err != nil {
		return scenario.Suite{}, err
	}
	if err := suite.Validate(); err != nil {
		return scenario.Suite{}, err
	}
	return suite, nil
}

// chromeDriver opens one isolated browser context per scenario.
type chromeDriver struct {
	b *cdpcontrol.Browser
}

func (d chromeDriver) NewPage(ctx context.Context, logger *slog.Logger) (runner.Page, error) {
	s, err := d.b.NewSession(ctx, logger)
	if err != nil {
		return nil, err
	}
	return s, nil
}

var _ runner.Driver = chromeDriver{}
