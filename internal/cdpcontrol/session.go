package cdpcontrol

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/dgnsrekt/pagecheck/internal/scenario"
)

// Session drives one page. All methods are safe to call from a single
// scenario goroutine; event handlers run concurrently with them.
type Session struct {
	ctx          context.Context
	cancel       context.CancelFunc
	logger       *slog.Logger
	pollInterval time.Duration

	mu        sync.Mutex
	dialogs   *scenario.DialogPolicy
	dialogErr error
	routes    []compiledRoute
	fetchOn   bool
	closed    bool
}

// bind derives an operation context from the page context that also
// carries ctx's deadline and cancellation.
func (s *Session) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	opCtx, cancel := context.WithCancel(s.ctx)
	if dl, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		opCtx, cancelDeadline = context.WithDeadline(opCtx, dl)
		prev := cancel
		cancel = func() { cancelDeadline(); prev() }
	}
	stop := context.AfterFunc(ctx, cancel)
	return opCtx, func() {
		stop()
		cancel()
	}
}

func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	opCtx, cancel := s.bind(ctx)
	defer cancel()
	return chromedp.Run(opCtx, actions...)
}

// eval evaluates an envelope-returning snippet and decodes its data into out.
func (s *Session) eval(ctx context.Context, js string, out any) error {
	var raw string
	err := s.run(ctx, chromedp.Evaluate(js, &raw, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
		return p.WithAwaitPromise(true)
	}))
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return newError(CodeEvalFailure, "evaluation failed", err)
	}
	return decodeEnvelope(raw, out)
}

// Navigate loads url and waits for the load event. Network failures and
// non-2xx document responses fail the navigation.
func (s *Session) Navigate(ctx context.Context, url string) error {
	opCtx, cancel := s.bind(ctx)
	defer cancel()

	start := time.Now()
	resp, err := chromedp.RunResponse(opCtx, chromedp.Navigate(url))
	if err != nil {
		if opCtx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
			return newError(CodeNavigationTimeout, "navigate to "+url+" timed out", err)
		}
		return newError(CodeNavigation, "navigate to "+url, err)
	}
	if resp != nil && (resp.Status < 200 || resp.Status > 299) {
		return newError(CodeNavigation, fmt.Sprintf("navigate to %s: HTTP %d", url, resp.Status), nil)
	}
	if err := s.takeDialogErr(); err != nil {
		return err
	}
	s.logger.Debug("cdpcontrol navigated", "url", url, "duration_ms", time.Since(start).Milliseconds())
	return nil
}

// OnDialog installs policy for every later dialog. It takes effect before
// it returns.
func (s *Session) OnDialog(policy scenario.DialogPolicy) {
	s.mu.Lock()
	s.dialogs = &policy
	s.mu.Unlock()
}

func (s *Session) takeDialogErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.dialogErr
	s.dialogErr = nil
	return err
}

func (s *Session) onEvent(ev any) {
	switch e := ev.(type) {
	case *page.EventJavascriptDialogOpening:
		s.handleDialog(e)
	case *fetch.EventRequestPaused:
		go s.handlePaused(e)
	}
}

func (s *Session) handleDialog(e *page.EventJavascriptDialogOpening) {
	kind := scenario.DialogKind(e.Type)
	s.logger.Info("dialog opened", "kind", string(kind), "message", e.Message)

	s.mu.Lock()
	policy := s.dialogs
	var resp scenario.DialogResponse
	if policy == nil {
		// Dismiss so the page unblocks; the pending step reports the error.
		s.dialogErr = newError(CodeDialogUnhandled, fmt.Sprintf("%s dialog %q opened with no handler registered", kind, e.Message), nil)
	} else {
		resp = policy.Respond(kind)
	}
	s.mu.Unlock()

	action := page.HandleJavaScriptDialog(resp.Accept)
	if kind == scenario.DialogPrompt && resp.Accept && resp.PromptText != "" {
		action = action.WithPromptText(resp.PromptText)
	}
	go func() {
		if err := chromedp.Run(s.ctx, action); err != nil {
			s.logger.Warn("dialog handling failed", "kind", string(kind), "error", err)
			return
		}
		s.logger.Debug("dialog answered", "kind", string(kind), "accept", resp.Accept)
	}()
}

// Evaluate runs expr in the page and returns its JSON-encoded result.
func (s *Session) Evaluate(ctx context.Context, expr string) (json.RawMessage, error) {
	var out json.RawMessage
	if err := s.eval(ctx, jsEvaluate(expr), &out); err != nil {
		if ctx.Err() != nil {
			return nil, newError(CodeEvalFailure, "evaluation timed out", err)
		}
		return nil, err
	}
	if len(out) == 0 {
		out = json.RawMessage("null")
	}
	return out, s.takeDialogErr()
}

// Close closes the page and disposes its browser context.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	s.cancel()
	return nil
}
