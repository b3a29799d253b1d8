package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"reflect"
	"sort"
	"time"

	"github.com/dgnsrekt/pagecheck/internal/artifacts"
	"github.com/dgnsrekt/pagecheck/internal/cdpcontrol"
	"github.com/dgnsrekt/pagecheck/internal/events"
	"github.com/dgnsrekt/pagecheck/internal/scenario"
)

// ErrPerfBudget marks a measured navigation slower than the run's budget.
var ErrPerfBudget = errors.New("performance budget exceeded")

var errScenarioDeadline = errors.New("scenario timeout exceeded")

// execution is the state of one scenario run.
type execution struct {
	r      *Runner
	sc     scenario.Scenario
	logger *slog.Logger
	res    *ScenarioResult
	page   Page
}

func (e *execution) run(ctx context.Context) (err error) {
	defer func() {
		if p := recover(); p != nil {
			e.logger.Error("runner scenario panic", "panic", fmt.Sprint(p))
			err = fmt.Errorf("panic: %v", p)
		}
	}()

	page, err := e.r.driver.NewPage(ctx, e.logger)
	if err != nil {
		e.res.FailedStepDescription = "open page"
		return err
	}
	e.page = page

	base := e.r.cfg.BaseURL
	navCtx, cancel := context.WithTimeout(ctx, e.r.cfg.NavigationTimeout)
	err = page.Navigate(navCtx, base)
	cancel()
	if err != nil {
		e.res.FailedStepDescription = "setup: navigate to " + base
		return err
	}

	for i, step := range e.sc.Steps {
		if ctx.Err() != nil {
			e.res.FailedStep = i
			e.res.FailedStepDescription = step.Describe()
			return fmt.Errorf("%w before step %d: %w", errScenarioDeadline, i, ctx.Err())
		}
		start := time.Now()
		stepErr := e.step(ctx, step)
		sr := StepResult{
			Index:       i,
			Kind:        string(step.Kind),
			Description: step.Describe(),
			Status:      StepPassed,
			Duration:    time.Since(start),
		}

		if stepErr != nil && e.tolerated(ctx, step, stepErr) {
			sr.Status = StepWarning
			sr.Error = stepErr.Error()
			e.logger.Warn("runner observational step failed", "step", i, "description", sr.Description, "error", stepErr)
			stepErr = nil
		} else if stepErr != nil {
			sr.Status = StepFailed
			sr.Error = stepErr.Error()
		}
		e.res.Steps = append(e.res.Steps, sr)
		if e.r.metrics != nil {
			e.r.metrics.ObserveStep(sr.Kind, sr.Status, sr.Duration)
		}
		e.r.broker.Publish(events.Event{Type: events.StepFinished, Scenario: e.sc.Title, Step: i,
			Detail: sr.Description, Outcome: sr.Status, Duration: sr.Duration})

		if stepErr != nil {
			e.res.FailedStep = i
			e.res.FailedStepDescription = sr.Description
			e.logger.Info("runner step failed", "step", i, "description", sr.Description, "error", stepErr)
			return stepErr
		}
		e.logger.Debug("runner step ok", "step", i, "description", sr.Description, "duration_ms", sr.Duration.Milliseconds())
	}
	return nil
}

// tolerated reports whether an observational scenario may continue past err.
func (e *execution) tolerated(ctx context.Context, step scenario.Step, err error) bool {
	if !e.sc.Observational || ctx.Err() != nil || errors.Is(err, ErrPerfBudget) {
		return false
	}
	return step.Kind == scenario.KindEvaluate || step.Kind == scenario.KindMeasure
}

// timeoutFor picks the step's deadline: an explicit override, the expect
// timeout for assertions, the navigation timeout for loads, the action
// timeout otherwise.
func (e *execution) timeoutFor(step scenario.Step) time.Duration {
	if step.Timeout > 0 {
		return step.Timeout
	}
	switch {
	case step.Kind.Assertion():
		return e.r.cfg.ExpectTimeout
	case step.Kind == scenario.KindNavigate || step.Kind == scenario.KindMeasure:
		return e.r.cfg.NavigationTimeout
	}
	return e.r.cfg.ActionTimeout
}

func (e *execution) step(ctx context.Context, step scenario.Step) error {
	if step.Kind == scenario.KindOnDialog {
		e.page.OnDialog(*step.Dialogs)
		e.logger.Debug("runner dialog handler registered")
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeoutFor(step))
	defer cancel()

	p := e.page
	switch step.Kind {
	case scenario.KindNavigate:
		u, err := resolveURL(e.r.cfg.BaseURL, step.URL)
		if err != nil {
			return err
		}
		return p.Navigate(ctx, u)
	case scenario.KindClick:
		return p.Click(ctx, *step.Target)
	case scenario.KindFill:
		return p.Fill(ctx, *step.Target, step.Value)
	case scenario.KindCheck:
		return p.Check(ctx, *step.Target)
	case scenario.KindSelectOption:
		return p.SelectOption(ctx, *step.Target, step.Value)
	case scenario.KindUploadFile:
		return p.SetInputFiles(ctx, *step.Target, step.Files)
	case scenario.KindWaitFor:
		return p.WaitFor(ctx, *step.Target)
	case scenario.KindAssertVisible:
		return p.ExpectVisible(ctx, *step.Target)
	case scenario.KindAssertText:
		return p.ExpectText(ctx, *step.Target, step.Value)
	case scenario.KindAssertContains:
		return p.ExpectContainsText(ctx, *step.Target, step.Value)
	case scenario.KindAssertCount:
		return p.ExpectCount(ctx, *step.Target, step.Count)
	case scenario.KindAssertChecked:
		return p.ExpectChecked(ctx, *step.Target)
	case scenario.KindRoute:
		return p.Route(ctx, *step.Route)
	case scenario.KindScreenshot:
		return e.screenshot(ctx, step)
	case scenario.KindEvaluate:
		return e.evaluate(ctx, step)
	case scenario.KindMeasure:
		return e.measure(ctx, step)
	}
	return fmt.Errorf("unsupported step kind %q", step.Kind)
}

func (e *execution) screenshot(ctx context.Context, step scenario.Step) error {
	data, err := e.page.Screenshot(ctx, step.Target, step.FullPage)
	if err != nil {
		return err
	}
	if err := artifacts.WriteFile(step.Path, data); err != nil {
		return err
	}
	e.res.Artifacts = append(e.res.Artifacts, step.Path)
	e.logger.Info("screenshot saved", "path", step.Path, "size_bytes", len(data))
	return nil
}

func (e *execution) evaluate(ctx context.Context, step scenario.Step) error {
	raw, err := e.page.Evaluate(ctx, step.Script)
	if err != nil {
		return err
	}
	e.logger.Info("evaluate result", "script", truncateText(step.Script, 60), "value", truncateText(string(raw), 200))

	if step.Metric != "" {
		e.storeMetrics(step.Metric, raw)
	}
	if step.Expect == nil {
		return nil
	}
	ok, err := jsonEqual(raw, step.Expect)
	if err != nil {
		return &cdpcontrol.CodedError{Code: cdpcontrol.CodeValidation, Message: "compare evaluate result", Cause: err}
	}
	if !ok {
		want, _ := json.Marshal(step.Expect)
		return &cdpcontrol.CodedError{
			Code:    cdpcontrol.CodeAssertion,
			Message: fmt.Sprintf("evaluate: got %s, want %s", truncateText(string(raw), 200), want),
		}
	}
	return nil
}

func (e *execution) measure(ctx context.Context, step scenario.Step) error {
	u, err := resolveURL(e.r.cfg.BaseURL, step.URL)
	if err != nil {
		return err
	}
	start := time.Now()
	if err := e.page.Navigate(ctx, u); err != nil {
		return err
	}
	elapsed := time.Since(start)
	e.res.Metrics["load_time_ms"] = float64(elapsed.Milliseconds())
	e.logger.Info("page load time", "url", u, "load_time_ms", elapsed.Milliseconds())

	if budget := e.r.cfg.PerfBudget; budget > 0 && elapsed > budget {
		return &cdpcontrol.CodedError{
			Code:    cdpcontrol.CodeAssertion,
			Message: fmt.Sprintf("load time %s exceeds budget %s", elapsed.Round(time.Millisecond), budget),
			Cause:   ErrPerfBudget,
		}
	}
	return nil
}

// storeMetrics records a numeric result as name, or the numeric fields of
// an object result as name.field. Navigation timing objects also yield
// derived durations relative to navigationStart.
func (e *execution) storeMetrics(name string, raw json.RawMessage) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		e.logger.Warn("runner metric decode failed", "metric", name, "error", err)
		return
	}
	switch val := v.(type) {
	case float64:
		e.res.Metrics[name] = val
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if f, ok := val[k].(float64); ok {
				e.res.Metrics[name+"."+k] = f
			}
		}
		if start, ok := val["navigationStart"].(float64); ok && start > 0 {
			for _, k := range []string{"domInteractive", "domContentLoadedEventEnd", "loadEventEnd"} {
				if end, ok := val[k].(float64); ok && end >= start {
					e.res.Metrics[name+"."+k+"_ms"] = end - start
				}
			}
		}
	default:
		e.logger.Warn("runner metric is not numeric", "metric", name)
	}
}

// resolveURL resolves ref against base; an empty ref is base itself.
func resolveURL(base, ref string) (string, error) {
	if ref == "" {
		return base, nil
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base URL: %w", err)
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("parse URL %q: %w", ref, err)
	}
	return b.ResolveReference(r).String(), nil
}

// jsonEqual compares a JSON document with a Go value by their JSON forms.
func jsonEqual(raw json.RawMessage, want any) (bool, error) {
	var got any
	if err := json.Unmarshal(raw, &got); err != nil {
		return false, err
	}
	b, err := json.Marshal(want)
	if err != nil {
		return false, err
	}
	var norm any
	if err := json.Unmarshal(b, &norm); err != nil {
		return false, err
	}
	return reflect.DeepEqual(got, norm), nil
}

func truncateText(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
