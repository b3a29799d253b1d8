package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgnsrekt/pagecheck/internal/artifacts"
	"github.com/dgnsrekt/pagecheck/internal/cdpcontrol"
	"github.com/dgnsrekt/pagecheck/internal/config"
	"github.com/dgnsrekt/pagecheck/internal/events"
	"github.com/dgnsrekt/pagecheck/internal/logging"
	"github.com/dgnsrekt/pagecheck/internal/metrics"
	"github.com/dgnsrekt/pagecheck/internal/scenario"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// artifactTimeout bounds the failure screenshot taken after a scenario ends.
const artifactTimeout = 5 * time.Second

// errInterrupted is recorded for scenarios abandoned by run cancellation.
var errInterrupted = errors.New("run interrupted")

// Options wires a Runner. Config and Driver are required.
type Options struct {
	Config         config.RunConfig
	Driver         Driver
	Artifacts      *artifacts.Store
	Results        ResultWriter
	Events         *events.Broker
	Metrics        *metrics.Collector
	Logger         *slog.Logger
	BrowserVersion string
}

// Runner executes suites.
type Runner struct {
	cfg            config.RunConfig
	driver         Driver
	store          *artifacts.Store
	results        ResultWriter
	broker         *events.Broker
	metrics        *metrics.Collector
	logger         *slog.Logger
	browserVersion string
}

// New creates a Runner.
func New(opts Options) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		cfg:            opts.Config,
		driver:         opts.Driver,
		store:          opts.Artifacts,
		results:        opts.Results,
		broker:         opts.Events,
		metrics:        opts.Metrics,
		logger:         logger,
		browserVersion: opts.BrowserVersion,
	}
}

// Run executes every scenario of suite with at most Workers in flight and
// returns the report. Cancelling ctx abandons in-flight scenarios, which end
// as timedOut; scenarios not yet started produce no result.
func (r *Runner) Run(ctx context.Context, suite scenario.Suite) RunReport {
	report := RunReport{
		RunID:          uuid.NewString(),
		Suite:          suite.Name,
		Browser:        r.cfg.Browser,
		BrowserVersion: r.browserVersion,
		BaseURL:        r.cfg.BaseURL,
		StartedAt:      time.Now().UTC(),
	}
	r.logger.Info("runner run start", "run_id", report.RunID, "suite", suite.Name,
		"scenarios", len(suite.Scenarios), "workers", r.cfg.Workers)
	r.broker.Publish(events.Event{Type: events.RunStarted, Detail: suite.Name})

	workers := r.cfg.Workers
	if workers < 1 {
		workers = 1
	}
	slots := make([]*ScenarioResult, len(suite.Scenarios))
	var g errgroup.Group
	g.SetLimit(workers)
	for i, sc := range suite.Scenarios {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			res := r.runScenario(ctx, sc)
			slots[i] = &res
			r.record(res)
			return nil
		})
	}
	_ = g.Wait()

	for _, res := range slots {
		if res != nil {
			report.Results = append(report.Results, *res)
		}
	}
	report.Summary = Summarize(report.Results)
	report.Duration = time.Since(report.StartedAt)
	report.Interrupted = ctx.Err() != nil

	r.broker.Publish(events.Event{Type: events.RunFinished, Duration: report.Duration,
		Detail: fmt.Sprintf("%d passed, %d failed, %d timed out", report.Summary.Passed, report.Summary.Failed, report.Summary.TimedOut)})
	r.logger.Info("runner run done", "run_id", report.RunID, "total", report.Summary.Total,
		"passed", report.Summary.Passed, "failed", report.Summary.Failed,
		"timed_out", report.Summary.TimedOut, "interrupted", report.Interrupted,
		"duration_ms", report.Duration.Milliseconds())
	return report
}

// record streams a final result to the writer, metrics and subscribers.
func (r *Runner) record(res ScenarioResult) {
	if r.results != nil {
		if err := r.results.Write(res); err != nil {
			r.logger.Error("runner result write failed", "scenario", res.Title, "error", err)
		}
	}
	if r.metrics != nil {
		r.metrics.ObserveScenario(res.Title, string(res.Outcome), res.Duration)
		for name, v := range res.Metrics {
			r.metrics.ObservePageMetric(res.Title, name, v)
		}
	}
	r.broker.Publish(events.Event{Type: events.ScenarioFinished, Scenario: res.Title,
		Step: res.FailedStep, Outcome: string(res.Outcome), Detail: res.Error, Duration: res.Duration})
}

// runScenario drives one scenario to a terminal outcome. It never returns
// an error: everything is folded into the result.
func (r *Runner) runScenario(runCtx context.Context, sc scenario.Scenario) ScenarioResult {
	state := newScenarioState()
	capture := logging.NewCapture(r.logger.Handler())
	logger := slog.New(capture).With("scenario", sc.Title)

	res := ScenarioResult{
		Title:      sc.Title,
		FailedStep: -1,
		StartedAt:  time.Now().UTC(),
		Metrics:    map[string]float64{},
		Steps:      []StepResult{},
	}

	timeout := sc.Timeout
	if timeout <= 0 {
		timeout = r.cfg.ScenarioTimeout
	}
	ctx, cancel := context.WithTimeout(runCtx, timeout)
	defer cancel()

	_ = state.transition(Running)
	logger.Info("runner scenario start", "timeout", timeout.String())
	r.broker.Publish(events.Event{Type: events.ScenarioStarted, Scenario: sc.Title})

	if r.store != nil {
		if err := r.store.Clear(sc.Title); err != nil {
			logger.Warn("runner clear artifacts failed", "error", err)
		}
	}

	exec := &execution{r: r, sc: sc, logger: logger, res: &res}
	err := exec.run(ctx)

	outcome := classify(err, ctx, runCtx)
	if err != nil {
		if runCtx.Err() != nil {
			err = errInterrupted
		}
		res.Error = err.Error()
		res.ErrorCode = cdpcontrol.CodeOf(err)
		if res.FailedStepDescription == "" && res.FailedStep >= 0 && res.FailedStep < len(sc.Steps) {
			res.FailedStepDescription = sc.Steps[res.FailedStep].Describe()
		}
	}
	if transErr := state.transition(outcome); transErr != nil {
		logger.Error("runner state", "error", transErr)
	}
	res.Outcome = state.current()

	r.captureArtifact(runCtx, exec.page, &res, logger)
	if exec.page != nil {
		if err := exec.page.Close(); err != nil {
			logger.Warn("runner page close failed", "error", err)
		}
	}

	res.Duration = time.Since(res.StartedAt)
	attrs := []any{"outcome", string(res.Outcome), "duration_ms", res.Duration.Milliseconds()}
	if res.Outcome != Passed {
		attrs = append(attrs, "failed_step", res.FailedStep, "error", res.Error)
		logger.Warn("runner scenario done", attrs...)
	} else {
		logger.Info("runner scenario done", attrs...)
	}
	res.Logs = capture.Entries()
	return res
}

// classify maps the error that ended a scenario to its outcome. A step that
// reports a locator, strictness or assertion failure has failed even when the
// scenario deadline cut its wait short.
func classify(err error, scenarioCtx, runCtx context.Context) Outcome {
	if err == nil {
		return Passed
	}
	if runCtx.Err() != nil {
		return TimedOut
	}
	switch cdpcontrol.CodeOf(err) {
	case cdpcontrol.CodeLocatorTimeout, cdpcontrol.CodeStrictMode, cdpcontrol.CodeAssertion:
		return Failed
	case cdpcontrol.CodeDialogUnhandled, cdpcontrol.CodeNavigationTimeout:
		return TimedOut
	}
	if errors.Is(scenarioCtx.Err(), context.DeadlineExceeded) {
		return TimedOut
	}
	return Failed
}

// captureArtifact writes failure.png for failed scenarios and final.png for
// passed ones in always mode.
func (r *Runner) captureArtifact(runCtx context.Context, page Page, res *ScenarioResult, logger *slog.Logger) {
	if page == nil || r.store == nil || runCtx.Err() != nil {
		return
	}
	kind := artifacts.KindFailure
	switch {
	case r.cfg.ArtifactMode == config.ArtifactNone:
		return
	case res.Outcome == Passed && r.cfg.ArtifactMode == config.ArtifactAlways:
		kind = artifacts.KindFinal
	case res.Outcome == Passed:
		return
	}

	ctx, cancel := context.WithTimeout(runCtx, artifactTimeout)
	defer cancel()
	data, err := page.Screenshot(ctx, nil, true)
	if err != nil {
		logger.Warn("runner artifact capture failed", "kind", string(kind), "error", err)
		return
	}
	path, err := r.store.Save(artifacts.Meta{Scenario: res.Title, Kind: kind, Step: res.FailedStep}, data)
	if err != nil {
		logger.Warn("runner artifact save failed", "kind", string(kind), "error", err)
		return
	}
	res.Artifacts = append(res.Artifacts, path)
	logger.Info("runner artifact saved", "kind", string(kind), "path", path)
}
