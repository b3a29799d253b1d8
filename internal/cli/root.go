// Package cli implements the pagecheck command line.
package cli

import (
	"time"

	"github.com/dgnsrekt/pagecheck/internal/config"
	"github.com/dgnsrekt/pagecheck/internal/logging"
	"github.com/spf13/cobra"
)

// RootOptions holds the configuration shared by every command. Config is
// resolved in PersistentPreRunE: defaults, then file, then environment,
// then flags the user actually set.
type RootOptions struct {
	ConfigFile string
	EnvFile    string
	Config     config.RunConfig

	flags flagValues
}

// flagValues receives flag values. A value is applied to the config only
// when its flag was changed on the command line.
type flagValues struct {
	browser       string
	browserPath   string
	headed        bool
	cdpURL        string
	cdpPort       int
	baseURL       string
	timeout       time.Duration
	actionTimeout time.Duration
	navTimeout    time.Duration
	expectTimeout time.Duration
	perfBudget    time.Duration
	screenshot    string
	reporter      string
	reportDir     string
	artifactDir   string
	metricsPath   string
	notifyURL     string
	workers       int
	grep          string
	suite         string
	logLevel      string
	logFile       string
}

// NewRootCommand creates the root command for the pagecheck CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "pagecheck",
		Short: "pagecheck - declarative browser scenarios",
		Long: `Run declarative end-to-end scenarios against a web application in a
Chromium-family browser and report the outcome of each one.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(config.LoadOptions{File: opts.ConfigFile, EnvFile: opts.EnvFile})
			if err != nil {
				return WrapExitError(ExitConfigError, "load configuration", err)
			}
			applyFlags(cmd, &opts.flags, &cfg)
			opts.Config = cfg
			if err := logging.SetupWriter(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFile); err != nil {
				return WrapExitError(ExitConfigError, "set up logging", err)
			}
			return nil
		},
	}

	f := &opts.flags
	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.ConfigFile, "config", "", "YAML config file (default "+config.DefaultFile+" when present)")
	pf.StringVar(&opts.EnvFile, "env-file", "", "dotenv file to load (default .env)")
	pf.StringVar(&f.suite, "suite", "", "YAML suite file merged after the built-in scenarios")
	pf.StringVar(&f.grep, "grep", "", "only scenarios whose title matches this regular expression")
	pf.StringVar(&f.artifactDir, "artifact-dir", "", "directory for failure screenshots")
	pf.StringVar(&f.reportDir, "report-dir", "", "directory for reports and results.jsonl")
	pf.StringVar(&f.logLevel, "log-level", "", "log level (debug|info|warn|error)")
	pf.StringVar(&f.logFile, "log-file", "", "rotating log file; empty logs to stderr only")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewArtifactsCommand(opts))

	return cmd
}

// applyFlags copies the flags set on the command line over cfg.
func applyFlags(cmd *cobra.Command, f *flagValues, cfg *config.RunConfig) {
	fs := cmd.Flags()
	set := func(name string, apply func()) {
		if fs.Lookup(name) != nil && fs.Changed(name) {
			apply()
		}
	}
	set("browser", func() { cfg.Browser = f.browser })
	set("browser-path", func() { cfg.BrowserPath = f.browserPath })
	set("headed", func() { cfg.Headless = !f.headed })
	set("cdp-url", func() { cfg.CDPURL = f.cdpURL })
	set("cdp-port", func() { cfg.CDPPort = f.cdpPort })
	set("base-url", func() { cfg.BaseURL = f.baseURL })
	set("timeout", func() { cfg.ScenarioTimeout = f.timeout })
	set("action-timeout", func() { cfg.ActionTimeout = f.actionTimeout })
	set("navigation-timeout", func() { cfg.NavigationTimeout = f.navTimeout })
	set("expect-timeout", func() { cfg.ExpectTimeout = f.expectTimeout })
	set("perf-budget", func() { cfg.PerfBudget = f.perfBudget })
	set("screenshot", func() { cfg.ArtifactMode = config.ArtifactMode(f.screenshot) })
	set("reporter", func() { cfg.ReportFormat = f.reporter })
	set("report-dir", func() { cfg.ReportDir = f.reportDir })
	set("artifact-dir", func() { cfg.ArtifactDir = f.artifactDir })
	set("metrics-path", func() { cfg.MetricsPath = f.metricsPath })
	set("notify-url", func() { cfg.NotifyURL = f.notifyURL })
	set("workers", func() { cfg.Workers = f.workers })
	set("grep", func() { cfg.Grep = f.grep })
	set("suite", func() { cfg.SuiteFile = f.suite })
	set("log-level", func() { cfg.LogLevel = f.logLevel })
	set("log-file", func() { cfg.LogFile = f.logFile })
}
