package cdpcontrol

import (
	"context"
	"fmt"
	"strings"

	"github.com/dgnsrekt/pagecheck/internal/scenario"
)

// matcher inspects a probe and reports whether the expectation holds, plus
// a description of what was observed for the failure message.
type matcher func(probeState) (ok bool, observed string)

// expect re-probes loc until match holds or ctx ends. A locator matching
// more than one element fails immediately when strict is set.
func (s *Session) expect(ctx context.Context, loc scenario.Locator, what string, strict bool, match matcher) error {
	js := jsProbe(loc)
	var (
		last     probeState
		observed string
		seen     bool
	)
	err := poll(ctx, s.pollInterval, func(ctx context.Context) (bool, error) {
		var st probeState
		if err := s.eval(ctx, js, &st); err != nil {
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			if !retryable(err) {
				return false, err
			}
			return false, nil
		}
		last = st
		if strict && st.Count > 1 {
			return false, newError(CodeStrictMode, fmt.Sprintf("%s resolved to %d elements", loc, st.Count), nil)
		}
		if st.Count > 0 {
			seen = true
		}
		ok, obs := match(st)
		observed = obs
		return ok, nil
	})
	if dlgErr := s.takeDialogErr(); dlgErr != nil {
		return dlgErr
	}
	if err == nil {
		return nil
	}
	if ctx.Err() == nil {
		return err
	}
	if !seen && strict {
		reason := last.Pending
		if reason == "" {
			reason = "element not found"
		}
		return newError(CodeLocatorTimeout, fmt.Sprintf("expect %s %s: %s", loc, what, reason), ctx.Err())
	}
	return newError(CodeAssertion, fmt.Sprintf("expect %s %s: got %s", loc, what, observed), ctx.Err())
}

// WaitFor waits until loc matches a visible element.
func (s *Session) WaitFor(ctx context.Context, loc scenario.Locator) error {
	return s.ExpectVisible(ctx, loc)
}

// ExpectVisible waits until loc resolves to exactly one visible element.
func (s *Session) ExpectVisible(ctx context.Context, loc scenario.Locator) error {
	return s.expect(ctx, loc, "to be visible", !loc.Indexed(), func(st probeState) (bool, string) {
		if st.Count == 0 {
			return false, "no element"
		}
		if !st.Visible {
			return false, "hidden"
		}
		return true, "visible"
	})
}

// ExpectText waits until the element's normalized text equals text.
func (s *Session) ExpectText(ctx context.Context, loc scenario.Locator, text string) error {
	want := normalizeSpace(text)
	return s.expect(ctx, loc, fmt.Sprintf("to have text %q", want), !loc.Indexed(), func(st probeState) (bool, string) {
		if st.Count == 0 {
			return false, "no element"
		}
		return st.Text == want, fmt.Sprintf("%q", st.Text)
	})
}

// ExpectContainsText waits until the element's normalized text contains text.
func (s *Session) ExpectContainsText(ctx context.Context, loc scenario.Locator, text string) error {
	want := normalizeSpace(text)
	return s.expect(ctx, loc, fmt.Sprintf("to contain text %q", want), !loc.Indexed(), func(st probeState) (bool, string) {
		if st.Count == 0 {
			return false, "no element"
		}
		return strings.Contains(st.Text, want), fmt.Sprintf("%q", st.Text)
	})
}

// ExpectCount waits until loc matches exactly n elements. It is never strict.
func (s *Session) ExpectCount(ctx context.Context, loc scenario.Locator, n int) error {
	return s.expect(ctx, loc, fmt.Sprintf("to have count %d", n), false, func(st probeState) (bool, string) {
		return st.Count == n, fmt.Sprintf("%d", st.Count)
	})
}

// ExpectChecked waits until the checkbox or radio matched by loc is checked.
func (s *Session) ExpectChecked(ctx context.Context, loc scenario.Locator) error {
	return s.expect(ctx, loc, "to be checked", !loc.Indexed(), func(st probeState) (bool, string) {
		if st.Count == 0 {
			return false, "no element"
		}
		if st.Checked {
			return true, "checked"
		}
		return false, "unchecked"
	})
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
