package runner

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/dgnsrekt/pagecheck/internal/artifacts"
	"github.com/dgnsrekt/pagecheck/internal/cdpcontrol"
	"github.com/dgnsrekt/pagecheck/internal/config"
	"github.com/dgnsrekt/pagecheck/internal/events"
	"github.com/dgnsrekt/pagecheck/internal/scenario"
)

const baseURL = "http://localhost:3000"

func testConfig() config.RunConfig {
	cfg := config.Defaults()
	cfg.BaseURL = baseURL
	cfg.ScenarioTimeout = 2 * time.Second
	cfg.ActionTimeout = time.Second
	cfg.NavigationTimeout = time.Second
	cfg.ExpectTimeout = time.Second
	return cfg
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRunner(t *testing.T, cfg config.RunConfig, driver Driver) (*Runner, *artifacts.Store, *recordingWriter) {
	t.Helper()
	store, err := artifacts.NewStore(filepath.Join(t.TempDir(), "test-results"))
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	w := &recordingWriter{}
	r := New(Options{Config: cfg, Driver: driver, Artifacts: store, Results: w, Logger: quietLogger()})
	return r, store, w
}

func demoPages(p *fakePage) {
	p.evals["fetch"] = scenario.MockedItems
	p.evals["window.performance"] = `{"navigationStart":1000,"domInteractive":1300,"loadEventEnd":1800,"name":"x"}`
}

func TestRunDemoSuiteAllPass(t *testing.T) {
	t.Chdir(t.TempDir())
	driver := &fakeDriver{setup: demoPages}
	r, _, w := newTestRunner(t, testConfig(), driver)

	suite := scenario.Demo()
	report := r.Run(context.Background(), suite)

	if !report.OK() {
		for _, res := range report.Results {
			if res.Outcome != Passed {
				t.Errorf("%s: %s at step %d: %s", res.Title, res.Outcome, res.FailedStep, res.Error)
			}
		}
		t.Fatalf("report.OK() = false, summary %+v", report.Summary)
	}
	if got, want := report.Summary, (Summary{Total: 9, Passed: 9}); got != want {
		t.Fatalf("Summary = %+v, want %+v", got, want)
	}
	for i, res := range report.Results {
		if res.Title != suite.Scenarios[i].Title {
			t.Fatalf("Results[%d] = %q, want suite order %q", i, res.Title, suite.Scenarios[i].Title)
		}
		if res.FailedStep != -1 {
			t.Fatalf("%s FailedStep = %d, want -1", res.Title, res.FailedStep)
		}
	}
	if len(w.records) != 9 {
		t.Fatalf("streamed %d results, want 9", len(w.records))
	}
	if report.RunID == "" {
		t.Fatal("RunID is empty")
	}

	for _, path := range []string{"screenshots/full-page.png", "screenshots/section-element.png"} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("screenshot %s: %v", path, err)
		}
	}

	perf := report.Results[8]
	if _, ok := perf.Metrics["load_time_ms"]; !ok {
		t.Fatalf("performance metrics = %v, want load_time_ms", perf.Metrics)
	}
	if got := perf.Metrics["timing.loadEventEnd_ms"]; got != 800 {
		t.Fatalf("timing.loadEventEnd_ms = %v, want 800", got)
	}
	if _, ok := perf.Metrics["timing.name"]; ok {
		t.Fatal("non-numeric timing field recorded as metric")
	}
}

func TestEveryScenarioGetsItsOwnPage(t *testing.T) {
	driver := &fakeDriver{setup: demoPages}
	r, _, _ := newTestRunner(t, testConfig(), driver)
	suite := scenario.Suite{Name: "iso", Scenarios: []scenario.Scenario{
		{Title: "a", Steps: []scenario.Step{scenario.Click(scenario.Page("#clickButton"))}},
		{Title: "b", Steps: []scenario.Step{scenario.Click(scenario.Page("#clickButton"))}},
	}}
	r.Run(context.Background(), suite)

	if len(driver.pages) != 2 {
		t.Fatalf("pages = %d, want 2", len(driver.pages))
	}
	for i, p := range driver.pages {
		if !p.closed {
			t.Errorf("page %d not closed", i)
		}
		if calls := p.Calls(); calls[0] != "navigate "+baseURL {
			t.Errorf("page %d first call = %q, want setup navigation", i, calls[0])
		}
	}
}

func TestLocatorTimeoutFailsAtStep(t *testing.T) {
	driver := &fakeDriver{setup: func(p *fakePage) {
		p.errs["click #submitButton"] = &cdpcontrol.CodedError{Code: cdpcontrol.CodeLocatorTimeout, Message: "element not found"}
	}}
	r, store, _ := newTestRunner(t, testConfig(), driver)
	suite := scenario.Suite{Scenarios: []scenario.Scenario{{
		Title: "form",
		Steps: []scenario.Step{
			scenario.Fill(scenario.Page("#username"), "testuser"),
			scenario.Click(scenario.Page("#submitButton")),
			scenario.ExpectVisible(scenario.Page("#formResult")),
		},
	}}}

	report := r.Run(context.Background(), suite)
	res := report.Results[0]
	if res.Outcome != Failed {
		t.Fatalf("Outcome = %s, want failed", res.Outcome)
	}
	if res.FailedStep != 1 {
		t.Fatalf("FailedStep = %d, want 1", res.FailedStep)
	}
	if res.ErrorCode != cdpcontrol.CodeLocatorTimeout {
		t.Fatalf("ErrorCode = %q, want %q", res.ErrorCode, cdpcontrol.CodeLocatorTimeout)
	}
	if got, want := res.FailedStepDescription, "click #submitButton"; got != want {
		t.Fatalf("FailedStepDescription = %q, want %q", got, want)
	}
	if slices.Contains(driver.pages[0].Calls(), "visible #formResult") {
		t.Fatal("step after the failure was executed")
	}

	want := filepath.Join(store.Dir(), artifacts.Slug("form"), "failure.png")
	if len(res.Artifacts) != 1 || res.Artifacts[0] != want {
		t.Fatalf("Artifacts = %v, want [%s]", res.Artifacts, want)
	}
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("failure screenshot: %v", err)
	}
	if report.OK() {
		t.Fatal("report.OK() = true with a failed scenario")
	}
}

func TestArtifactModes(t *testing.T) {
	failing := func(p *fakePage) {
		p.errs["click #x"] = &cdpcontrol.CodedError{Code: cdpcontrol.CodeLocatorTimeout, Message: "not found"}
	}
	tests := []struct {
		name      string
		mode      config.ArtifactMode
		setup     func(*fakePage)
		artifacts int
	}{
		{name: "none on failure", mode: config.ArtifactNone, setup: failing, artifacts: 0},
		{name: "on-failure on pass", mode: config.ArtifactOnFailure, artifacts: 0},
		{name: "always on pass", mode: config.ArtifactAlways, artifacts: 1},
		{name: "always on failure", mode: config.ArtifactAlways, setup: failing, artifacts: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.ArtifactMode = tt.mode
			r, _, _ := newTestRunner(t, cfg, &fakeDriver{setup: tt.setup})
			report := r.Run(context.Background(), scenario.Suite{Scenarios: []scenario.Scenario{{
				Title: "s", Steps: []scenario.Step{scenario.Click(scenario.Page("#x"))},
			}}})
			if got := len(report.Results[0].Artifacts); got != tt.artifacts {
				t.Fatalf("artifacts = %d, want %d", got, tt.artifacts)
			}
		})
	}
}

func TestSimilarTitlesKeepSeparateArtifacts(t *testing.T) {
	driver := &fakeDriver{setup: func(p *fakePage) {
		p.errs["click #missing"] = &cdpcontrol.CodedError{Code: cdpcontrol.CodeLocatorTimeout, Message: "not found"}
	}}
	r, _, _ := newTestRunner(t, testConfig(), driver)
	report := r.Run(context.Background(), scenario.Suite{Scenarios: []scenario.Scenario{
		{Title: "Login flow", Steps: []scenario.Step{scenario.Click(scenario.Page("#missing"))}},
		{Title: "login-flow", Steps: []scenario.Step{scenario.Click(scenario.Page("#clickButton"))}},
	}})

	failed := report.Results[0]
	if failed.Outcome != Failed || len(failed.Artifacts) != 1 {
		t.Fatalf("first result = %s with artifacts %v, want failed with one artifact", failed.Outcome, failed.Artifacts)
	}
	if _, err := os.Stat(failed.Artifacts[0]); err != nil {
		t.Fatalf("failure artifact of %q: %v", failed.Title, err)
	}
}

func TestSetupNavigationFailure(t *testing.T) {
	tests := []struct {
		name string
		code string
		want Outcome
	}{
		{name: "network error", code: cdpcontrol.CodeNavigation, want: Failed},
		{name: "timeout", code: cdpcontrol.CodeNavigationTimeout, want: TimedOut},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			driver := &fakeDriver{setup: func(p *fakePage) {
				p.errs["navigate "+baseURL] = &cdpcontrol.CodedError{Code: tt.code, Message: "navigate to " + baseURL}
			}}
			r, _, _ := newTestRunner(t, testConfig(), driver)
			report := r.Run(context.Background(), scenario.Suite{Scenarios: []scenario.Scenario{{
				Title: "s", Steps: []scenario.Step{scenario.Click(scenario.Page("#clickButton"))},
			}}})

			res := report.Results[0]
			if res.Outcome != tt.want {
				t.Fatalf("Outcome = %s, want %s", res.Outcome, tt.want)
			}
			if res.FailedStep != -1 {
				t.Fatalf("FailedStep = %d, want -1", res.FailedStep)
			}
			if len(res.Steps) != 0 {
				t.Fatalf("Steps = %+v, want none executed", res.Steps)
			}
			if !strings.HasPrefix(res.FailedStepDescription, "setup") {
				t.Fatalf("FailedStepDescription = %q, want setup", res.FailedStepDescription)
			}
		})
	}
}

func TestScenarioDeadlineIsTimedOut(t *testing.T) {
	cfg := testConfig()
	cfg.ScenarioTimeout = 50 * time.Millisecond
	cfg.ActionTimeout = 5 * time.Second
	driver := &fakeDriver{setup: func(p *fakePage) { p.block["evaluate"] = true }}
	r, _, _ := newTestRunner(t, cfg, driver)

	report := r.Run(context.Background(), scenario.Suite{Scenarios: []scenario.Scenario{{
		Title: "slow", Steps: []scenario.Step{scenario.Evaluate("new Promise(() => {})")},
	}}})
	res := report.Results[0]
	if res.Outcome != TimedOut {
		t.Fatalf("Outcome = %s, want timedOut", res.Outcome)
	}
	if res.FailedStep != 0 {
		t.Fatalf("FailedStep = %d, want 0", res.FailedStep)
	}
}

func TestScenarioDeadlineBetweenStepsIsTimedOut(t *testing.T) {
	cfg := testConfig()
	cfg.ScenarioTimeout = 30 * time.Millisecond
	driver := &fakeDriver{setup: func(p *fakePage) { p.navDelay = 80 * time.Millisecond }}
	r, _, _ := newTestRunner(t, cfg, driver)

	report := r.Run(context.Background(), scenario.Suite{Scenarios: []scenario.Scenario{{
		Title: "late", Steps: []scenario.Step{scenario.Click(scenario.Page("#clickButton"))},
	}}})
	res := report.Results[0]
	if res.Outcome != TimedOut {
		t.Fatalf("Outcome = %s, want timedOut (error %s)", res.Outcome, res.Error)
	}
	if res.FailedStep != 0 {
		t.Fatalf("FailedStep = %d, want 0", res.FailedStep)
	}
	if slices.Contains(driver.pages[0].Calls(), "click #clickButton") {
		t.Fatal("step ran after the scenario deadline")
	}
}

// With the shipped defaults the action timeout equals the scenario timeout,
// so the scenario deadline always ends a missing-element wait first.
func TestLocatorTimeoutAtScenarioDeadlineIsFailed(t *testing.T) {
	defaults := config.Defaults()
	if defaults.ActionTimeout < defaults.ScenarioTimeout {
		t.Fatalf("defaults: ActionTimeout %s < ScenarioTimeout %s", defaults.ActionTimeout, defaults.ScenarioTimeout)
	}

	cfg := defaults
	cfg.BaseURL = baseURL
	cfg.ScenarioTimeout = 80 * time.Millisecond
	cfg.ActionTimeout = cfg.ScenarioTimeout
	driver := &fakeDriver{setup: func(p *fakePage) {
		p.navDelay = 10 * time.Millisecond
		p.block["click #missing"] = true
	}}
	r, _, _ := newTestRunner(t, cfg, driver)

	report := r.Run(context.Background(), scenario.Suite{Scenarios: []scenario.Scenario{{
		Title: "missing", Steps: []scenario.Step{scenario.Click(scenario.Page("#missing"))},
	}}})
	res := report.Results[0]
	if res.Outcome != Failed {
		t.Fatalf("Outcome = %s, want failed (code %s, error %s)", res.Outcome, res.ErrorCode, res.Error)
	}
	if res.ErrorCode != cdpcontrol.CodeLocatorTimeout {
		t.Fatalf("ErrorCode = %q, want %q", res.ErrorCode, cdpcontrol.CodeLocatorTimeout)
	}
	if res.FailedStep != 0 {
		t.Fatalf("FailedStep = %d, want 0", res.FailedStep)
	}
}

func TestActionTimeoutIsFailed(t *testing.T) {
	cfg := testConfig()
	cfg.ActionTimeout = 30 * time.Millisecond
	driver := &fakeDriver{setup: func(p *fakePage) { p.block["click #slow"] = true }}
	r, _, _ := newTestRunner(t, cfg, driver)

	report := r.Run(context.Background(), scenario.Suite{Scenarios: []scenario.Scenario{{
		Title: "slow", Steps: []scenario.Step{scenario.Click(scenario.Page("#slow"))},
	}}})
	if got := report.Results[0].Outcome; got != Failed {
		t.Fatalf("Outcome = %s, want failed", got)
	}
}

func TestUnhandledDialogIsTimedOut(t *testing.T) {
	driver := &fakeDriver{setup: func(p *fakePage) {
		p.errs["click #alertButton"] = &cdpcontrol.CodedError{Code: cdpcontrol.CodeDialogUnhandled, Message: "alert dialog opened with no handler registered"}
	}}
	r, _, _ := newTestRunner(t, testConfig(), driver)
	report := r.Run(context.Background(), scenario.Suite{Scenarios: []scenario.Scenario{{
		Title: "dialog", Steps: []scenario.Step{scenario.Click(scenario.Page("#alertButton"))},
	}}})
	if got := report.Results[0].Outcome; got != TimedOut {
		t.Fatalf("Outcome = %s, want timedOut", got)
	}
}

func TestDialogHandlerRegisteredBeforeTrigger(t *testing.T) {
	driver := &fakeDriver{setup: demoPages}
	r, _, _ := newTestRunner(t, testConfig(), driver)
	suite := scenario.Demo()
	dialogs, err := suite.Filter("dialogs")
	if err != nil {
		t.Fatalf("Filter() error = %v", err)
	}
	r.Run(context.Background(), dialogs)

	calls := driver.pages[0].Calls()
	reg := slices.Index(calls, "dialog")
	click := slices.Index(calls, "click #alertButton")
	if reg < 0 || click < 0 || reg > click {
		t.Fatalf("calls = %v, want dialog registration before the alert click", calls)
	}
}

func TestEvaluateExpectationMismatch(t *testing.T) {
	driver := &fakeDriver{setup: func(p *fakePage) {
		p.evals["fetch"] = `[{"id":1,"name":"Item 1","value":"Value 1"}]`
	}}
	r, _, _ := newTestRunner(t, testConfig(), driver)
	suite, err := scenario.Demo().Filter("network")
	if err != nil {
		t.Fatalf("Filter() error = %v", err)
	}
	report := r.Run(context.Background(), suite)
	res := report.Results[0]
	if res.Outcome != Failed || res.ErrorCode != cdpcontrol.CodeAssertion {
		t.Fatalf("result = %s/%s, want failed/%s", res.Outcome, res.ErrorCode, cdpcontrol.CodeAssertion)
	}
	if res.FailedStep != 3 {
		t.Fatalf("FailedStep = %d, want 3", res.FailedStep)
	}
}

func TestObservationalScenario(t *testing.T) {
	t.Run("evaluate failure is a warning", func(t *testing.T) {
		driver := &fakeDriver{setup: func(p *fakePage) {
			p.errs["evaluate"] = &cdpcontrol.CodedError{Code: cdpcontrol.CodeEvalFailure, Message: "performance is not defined"}
		}}
		r, _, _ := newTestRunner(t, testConfig(), driver)
		suite, _ := scenario.Demo().Filter("performance")
		res := r.Run(context.Background(), suite).Results[0]
		if res.Outcome != Passed {
			t.Fatalf("Outcome = %s, want passed (%s)", res.Outcome, res.Error)
		}
		if got := res.Steps[1].Status; got != StepWarning {
			t.Fatalf("evaluate step status = %q, want %q", got, StepWarning)
		}
	})

	t.Run("budget exceeded fails", func(t *testing.T) {
		cfg := testConfig()
		cfg.PerfBudget = time.Millisecond
		driver := &fakeDriver{setup: func(p *fakePage) { p.navDelay = 20 * time.Millisecond }}
		r, _, _ := newTestRunner(t, cfg, driver)
		suite, _ := scenario.Demo().Filter("performance")
		res := r.Run(context.Background(), suite).Results[0]
		if res.Outcome != Failed {
			t.Fatalf("Outcome = %s, want failed", res.Outcome)
		}
		if !strings.Contains(res.Error, "exceeds budget") {
			t.Fatalf("Error = %q, want budget message", res.Error)
		}
	})
}

func TestCancellationInterruptsRun(t *testing.T) {
	cfg := testConfig()
	cfg.Workers = 1
	cfg.ScenarioTimeout = 10 * time.Second
	cfg.ActionTimeout = 10 * time.Second
	started := make(chan struct{})
	driver := &fakeDriver{setup: func(p *fakePage) { p.block["click #hang"] = true }}
	r, _, w := newTestRunner(t, cfg, driver)

	broker := events.NewBroker()
	r.broker = broker
	_, ch := broker.Subscribe()
	go func() {
		for evt := range ch {
			if evt.Type == events.StepFinished || evt.Type == events.ScenarioStarted {
				select {
				case <-started:
				default:
					close(started)
				}
			}
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	report := r.Run(ctx, scenario.Suite{Scenarios: []scenario.Scenario{
		{Title: "hangs", Steps: []scenario.Step{scenario.Click(scenario.Page("#hang"))}},
		{Title: "never starts", Steps: []scenario.Step{scenario.Click(scenario.Page("#x"))}},
	}})

	if !report.Interrupted {
		t.Fatal("Interrupted = false")
	}
	if len(report.Results) != 1 {
		t.Fatalf("results = %d, want only the in-flight scenario", len(report.Results))
	}
	res := report.Results[0]
	if res.Outcome != TimedOut || res.Error != "run interrupted" {
		t.Fatalf("result = %s %q, want timedOut \"run interrupted\"", res.Outcome, res.Error)
	}
	if len(w.records) != 1 {
		t.Fatalf("streamed %d results, want 1", len(w.records))
	}
}

func TestOpenPageFailure(t *testing.T) {
	driver := &fakeDriver{err: &cdpcontrol.CodedError{Code: cdpcontrol.CodeCDPUnavailable, Message: "open page failed"}}
	r, _, _ := newTestRunner(t, testConfig(), driver)
	report := r.Run(context.Background(), scenario.Suite{Scenarios: []scenario.Scenario{{
		Title: "s", Steps: []scenario.Step{scenario.Click(scenario.Page("#x"))},
	}}})
	res := report.Results[0]
	if res.Outcome != Failed || res.ErrorCode != cdpcontrol.CodeCDPUnavailable {
		t.Fatalf("result = %s/%s, want failed/%s", res.Outcome, res.ErrorCode, cdpcontrol.CodeCDPUnavailable)
	}
}

func TestScenarioLogsCaptured(t *testing.T) {
	r, _, _ := newTestRunner(t, testConfig(), &fakeDriver{})
	report := r.Run(context.Background(), scenario.Suite{Scenarios: []scenario.Scenario{{
		Title: "logged", Steps: []scenario.Step{scenario.Click(scenario.Page("#x"))},
	}}})
	logs := report.Results[0].Logs
	if len(logs) == 0 {
		t.Fatal("no logs captured")
	}
	if logs[0].Message != "runner scenario start" || logs[0].Attrs["scenario"] != "logged" {
		t.Fatalf("first log = %+v", logs[0])
	}
}

func TestScenarioStateTransitions(t *testing.T) {
	s := newScenarioState()
	if err := s.transition(Passed); err == nil {
		t.Fatal("pending -> passed allowed")
	}
	if err := s.transition(Running); err != nil {
		t.Fatalf("pending -> running: %v", err)
	}
	if err := s.transition(Failed); err != nil {
		t.Fatalf("running -> failed: %v", err)
	}
	if err := s.transition(Running); err == nil {
		t.Fatal("failed -> running allowed")
	}
	if err := s.transition(Passed); err == nil {
		t.Fatal("failed -> passed allowed")
	}
	if got := s.current(); got != Failed {
		t.Fatalf("current() = %s, want failed", got)
	}
}

func TestClassify(t *testing.T) {
	live := context.Background()
	expired, cancel := context.WithTimeout(context.Background(), 0)
	defer cancel()
	<-expired.Done()

	interrupted, stop := context.WithCancel(context.Background())
	stop()

	tests := []struct {
		name     string
		err      error
		scenario context.Context
		run      context.Context
		want     Outcome
	}{
		{name: "nil", err: nil, scenario: live, run: live, want: Passed},
		{name: "assertion", err: &cdpcontrol.CodedError{Code: cdpcontrol.CodeAssertion}, scenario: live, run: live, want: Failed},
		{name: "plain", err: errors.New("boom"), scenario: live, run: live, want: Failed},
		{name: "dialog", err: &cdpcontrol.CodedError{Code: cdpcontrol.CodeDialogUnhandled}, scenario: live, run: live, want: TimedOut},
		{name: "locator at deadline", err: &cdpcontrol.CodedError{Code: cdpcontrol.CodeLocatorTimeout}, scenario: expired, run: live, want: Failed},
		{name: "strict at deadline", err: &cdpcontrol.CodedError{Code: cdpcontrol.CodeStrictMode}, scenario: expired, run: live, want: Failed},
		{name: "eval at deadline", err: &cdpcontrol.CodedError{Code: cdpcontrol.CodeEvalFailure}, scenario: expired, run: live, want: TimedOut},
		{name: "between steps", err: errScenarioDeadline, scenario: expired, run: live, want: TimedOut},
		{name: "interrupted", err: &cdpcontrol.CodedError{Code: cdpcontrol.CodeLocatorTimeout}, scenario: live, run: interrupted, want: TimedOut},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classify(tt.err, tt.scenario, tt.run); got != tt.want {
				t.Fatalf("classify() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestResolveURL(t *testing.T) {
	tests := []struct {
		ref  string
		want string
	}{
		{ref: "", want: "http://localhost:3000"},
		{ref: "/frame", want: "http://localhost:3000/frame"},
		{ref: "https://example.com/x", want: "https://example.com/x"},
	}
	for _, tt := range tests {
		got, err := resolveURL(baseURL, tt.ref)
		if err != nil {
			t.Fatalf("resolveURL(%q) error = %v", tt.ref, err)
		}
		if got != tt.want {
			t.Fatalf("resolveURL(%q) = %q, want %q", tt.ref, got, tt.want)
		}
	}
}

func TestJSONEqual(t *testing.T) {
	ok, err := jsonEqual([]byte(scenario.MockedItems), []any{map[string]any{"id": 99, "name": "Mocked Item", "value": "Mocked Value"}})
	if err != nil {
		t.Fatalf("jsonEqual() error = %v", err)
	}
	if !ok {
		t.Fatal("jsonEqual() = false, want true")
	}
	ok, err = jsonEqual([]byte(`{"a":1}`), map[string]int{"a": 2})
	if err != nil {
		t.Fatalf("jsonEqual() error = %v", err)
	}
	if ok {
		t.Fatal("jsonEqual() = true, want false")
	}
}
