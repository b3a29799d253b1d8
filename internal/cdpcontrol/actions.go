package cdpcontrol

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/dgnsrekt/pagecheck/internal/scenario"
)

// poll calls fn until it reports done, returns a fatal error, or ctx ends.
// fn errors that are not fatal are retried; the last one is returned with
// the context error.
func poll(ctx context.Context, interval time.Duration, fn func(context.Context) (bool, error)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		done, err := fn(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// retryable reports whether a probe error may clear up by itself, such as
// an evaluation racing a navigation.
func retryable(err error) bool {
	switch CodeOf(err) {
	case CodeEvalFailure:
		return true
	}
	return false
}

// act waits for the locator to become actionable and performs action.
func (s *Session) act(ctx context.Context, loc scenario.Locator, action string, arg any) (actResult, error) {
	js := jsAct(loc, action, arg, !loc.Indexed())
	var last actResult
	var lastErr error
	err := poll(ctx, s.pollInterval, func(ctx context.Context) (bool, error) {
		var res actResult
		if err := s.eval(ctx, js, &res); err != nil {
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			if !retryable(err) {
				return false, err
			}
			lastErr = err
			return false, nil
		}
		last = res
		return res.Done, nil
	})
	if dlgErr := s.takeDialogErr(); dlgErr != nil {
		return last, dlgErr
	}
	if err == nil {
		return last, nil
	}
	if ctx.Err() == nil {
		return last, err
	}
	reason := last.Reason
	if reason == "" && lastErr != nil {
		reason = lastErr.Error()
	}
	if reason == "" {
		reason = "element not found"
	}
	return last, newError(CodeLocatorTimeout, fmt.Sprintf("%s %s: %s", action, loc, reason), ctx.Err())
}

// Click clicks the single element matched by loc once it is visible and
// enabled.
func (s *Session) Click(ctx context.Context, loc scenario.Locator) error {
	_, err := s.act(ctx, loc, actClick, nil)
	return err
}

// Fill replaces the value of an input, textarea or contenteditable element.
func (s *Session) Fill(ctx context.Context, loc scenario.Locator, text string) error {
	_, err := s.act(ctx, loc, actFill, text)
	return err
}

// Check ticks a checkbox or radio input; already checked inputs are left alone.
func (s *Session) Check(ctx context.Context, loc scenario.Locator) error {
	_, err := s.act(ctx, loc, actCheck, nil)
	return err
}

// SelectOption selects the option whose value or label equals value,
// waiting for the option to exist.
func (s *Session) SelectOption(ctx context.Context, loc scenario.Locator, value string) error {
	_, err := s.act(ctx, loc, actSelect, value)
	return err
}

// SetInputFiles replaces the files of a file input. The input need not be
// visible.
func (s *Session) SetInputFiles(ctx context.Context, loc scenario.Locator, files []scenario.FilePayload) error {
	if len(files) == 0 {
		return newError(CodeValidation, "at least one file is required", nil)
	}
	_, err := s.act(ctx, loc, actFiles, toJSFiles(files))
	return err
}

// Screenshot captures a PNG of the element matched by target, the full
// scrollable page, or the current viewport.
func (s *Session) Screenshot(ctx context.Context, target *scenario.Locator, fullPage bool) ([]byte, error) {
	var buf []byte
	if target != nil {
		rect, err := s.act(ctx, *target, actRect, nil)
		if err != nil {
			return nil, err
		}
		if rect.Width <= 0 || rect.Height <= 0 {
			return nil, newError(CodeEvalFailure, fmt.Sprintf("screenshot %s: element has no size", target), nil)
		}
		err = s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			buf, err = page.CaptureScreenshot().
				WithFormat(page.CaptureScreenshotFormatPng).
				WithCaptureBeyondViewport(true).
				WithClip(&page.Viewport{X: rect.X, Y: rect.Y, Width: rect.Width, Height: rect.Height, Scale: 1}).
				Do(ctx)
			return err
		}))
		if err != nil {
			return nil, newError(CodeEvalFailure, "capture element screenshot", err)
		}
		return buf, nil
	}

	action := chromedp.CaptureScreenshot(&buf)
	if fullPage {
		action = chromedp.FullScreenshot(&buf, 100)
	}
	if err := s.run(ctx, action); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return nil, newError(CodeEvalFailure, "screenshot timed out", err)
		}
		return nil, newError(CodeEvalFailure, "capture screenshot", err)
	}
	return buf, nil
}
