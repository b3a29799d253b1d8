package runner

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dgnsrekt/pagecheck/internal/cdpcontrol"
	"github.com/dgnsrekt/pagecheck/internal/scenario"
)

// fakePage records every call as "<method> <arg>" and answers from the
// configured errors and results.
type fakePage struct {
	mu       sync.Mutex
	calls    []string
	errs     map[string]error
	block    map[string]bool
	evals    map[string]string
	navDelay time.Duration
	dialogs  *scenario.DialogPolicy
	closed   bool
	logger   *slog.Logger
}

func newFakePage() *fakePage {
	return &fakePage{errs: map[string]error{}, block: map[string]bool{}, evals: map[string]string{}}
}

func (f *fakePage) do(ctx context.Context, call string) error {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	err := f.errs[call]
	block := f.block[call]
	f.mu.Unlock()
	if block {
		<-ctx.Done()
		code := cdpcontrol.CodeLocatorTimeout
		if call == "evaluate" {
			code = cdpcontrol.CodeEvalFailure
		}
		return &cdpcontrol.CodedError{Code: code, Message: call, Cause: ctx.Err()}
	}
	return err
}

func (f *fakePage) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakePage) Navigate(ctx context.Context, url string) error {
	if f.navDelay > 0 {
		time.Sleep(f.navDelay)
	}
	return f.do(ctx, "navigate "+url)
}

func (f *fakePage) Click(ctx context.Context, loc scenario.Locator) error {
	return f.do(ctx, "click "+loc.String())
}

func (f *fakePage) Fill(ctx context.Context, loc scenario.Locator, text string) error {
	return f.do(ctx, "fill "+loc.String())
}

func (f *fakePage) Check(ctx context.Context, loc scenario.Locator) error {
	return f.do(ctx, "check "+loc.String())
}

func (f *fakePage) SelectOption(ctx context.Context, loc scenario.Locator, value string) error {
	return f.do(ctx, "select "+loc.String())
}

func (f *fakePage) SetInputFiles(ctx context.Context, loc scenario.Locator, files []scenario.FilePayload) error {
	return f.do(ctx, "files "+loc.String())
}

func (f *fakePage) WaitFor(ctx context.Context, loc scenario.Locator) error {
	return f.do(ctx, "wait "+loc.String())
}

func (f *fakePage) ExpectVisible(ctx context.Context, loc scenario.Locator) error {
	return f.do(ctx, "visible "+loc.String())
}

func (f *fakePage) ExpectText(ctx context.Context, loc scenario.Locator, text string) error {
	return f.do(ctx, "text "+loc.String())
}

func (f *fakePage) ExpectContainsText(ctx context.Context, loc scenario.Locator, text string) error {
	return f.do(ctx, "contains "+loc.String())
}

func (f *fakePage) ExpectCount(ctx context.Context, loc scenario.Locator, n int) error {
	return f.do(ctx, "count "+loc.String())
}

func (f *fakePage) ExpectChecked(ctx context.Context, loc scenario.Locator) error {
	return f.do(ctx, "checked "+loc.String())
}

func (f *fakePage) OnDialog(policy scenario.DialogPolicy) {
	f.mu.Lock()
	f.dialogs = &policy
	f.calls = append(f.calls, "dialog")
	f.mu.Unlock()
}

func (f *fakePage) Route(ctx context.Context, rule scenario.RouteRule) error {
	return f.do(ctx, "route "+rule.Pattern)
}

func (f *fakePage) Screenshot(ctx context.Context, target *scenario.Locator, fullPage bool) ([]byte, error) {
	call := "screenshot page"
	if target != nil {
		call = "screenshot " + target.String()
	}
	if err := f.do(ctx, call); err != nil {
		return nil, err
	}
	return []byte("\x89PNG fake"), nil
}

func (f *fakePage) Evaluate(ctx context.Context, expr string) (json.RawMessage, error) {
	if err := f.do(ctx, "evaluate"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for prefix, out := range f.evals {
		if strings.HasPrefix(expr, prefix) {
			return json.RawMessage(out), nil
		}
	}
	return json.RawMessage("null"), nil
}

func (f *fakePage) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

// fakeDriver hands out pages built by setup, one per scenario.
type fakeDriver struct {
	mu    sync.Mutex
	setup func(*fakePage)
	pages []*fakePage
	err   error
}

func (d *fakeDriver) NewPage(ctx context.Context, logger *slog.Logger) (Page, error) {
	if d.err != nil {
		return nil, d.err
	}
	p := newFakePage()
	p.logger = logger
	if d.setup != nil {
		d.setup(p)
	}
	d.mu.Lock()
	d.pages = append(d.pages, p)
	d.mu.Unlock()
	return p, nil
}

// recordingWriter collects streamed results.
type recordingWriter struct {
	mu      sync.Mutex
	records []ScenarioResult
}

func (w *recordingWriter) Write(record any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.records = append(w.records, record.(ScenarioResult))
	return nil
}
