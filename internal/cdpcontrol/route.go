package cdpcontrol

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/dgnsrekt/pagecheck/internal/scenario"
	"github.com/gobwas/glob"
)

type compiledRoute struct {
	rule scenario.RouteRule
	g    glob.Glob
}

func compileRoute(rule scenario.RouteRule) (compiledRoute, error) {
	if err := rule.Validate(); err != nil {
		return compiledRoute{}, newError(CodeValidation, err.Error(), nil)
	}
	g, err := glob.Compile(rule.Pattern, '/')
	if err != nil {
		return compiledRoute{}, newError(CodeValidation, "compile route pattern", err)
	}
	return compiledRoute{rule: rule, g: g}, nil
}

// matchRoute returns the most recently registered route matching url.
// The query string and fragment are ignored when the full URL does not match.
func matchRoute(routes []compiledRoute, url string) (scenario.RouteRule, bool) {
	bare := url
	if i := strings.IndexAny(bare, "?#"); i >= 0 {
		bare = bare[:i]
	}
	for i := len(routes) - 1; i >= 0; i-- {
		if routes[i].g.Match(url) || routes[i].g.Match(bare) {
			return routes[i].rule, true
		}
	}
	return scenario.RouteRule{}, false
}

// Route registers an interception rule for every later request on the page.
// Rules registered later take precedence over earlier ones.
func (s *Session) Route(ctx context.Context, rule scenario.RouteRule) error {
	cr, err := compileRoute(rule)
	if err != nil {
		return err
	}

	s.mu.Lock()
	enable := !s.fetchOn
	s.mu.Unlock()
	if enable {
		err := s.run(ctx, fetch.Enable().WithPatterns([]*fetch.RequestPattern{{
			URLPattern:   "*",
			RequestStage: fetch.RequestStageRequest,
		}}))
		if err != nil {
			return newError(CodeEvalFailure, "enable request interception", err)
		}
	}

	s.mu.Lock()
	s.fetchOn = true
	s.routes = append(s.routes, cr)
	s.mu.Unlock()
	s.logger.Debug("route registered", "pattern", rule.Pattern, "action", string(rule.Action))
	return nil
}

// handlePaused answers an intercepted request. Requests matching no rule
// continue untouched.
func (s *Session) handlePaused(e *fetch.EventRequestPaused) {
	s.mu.Lock()
	rule, ok := matchRoute(s.routes, e.Request.URL)
	s.mu.Unlock()

	var action chromedp.Action = fetch.ContinueRequest(e.RequestID)
	if ok {
		switch rule.Action {
		case scenario.RouteAbort:
			action = fetch.FailRequest(e.RequestID, network.ErrorReasonFailed)
		case scenario.RouteFulfill:
			action = fulfill(e.RequestID, rule)
		}
		s.logger.Info("route matched", "url", e.Request.URL, "pattern", rule.Pattern, "action", string(rule.Action))
	}
	if err := chromedp.Run(s.ctx, action); err != nil && s.ctx.Err() == nil {
		s.logger.Warn("route handling failed", "url", e.Request.URL, "error", err)
	}
}

func fulfill(id fetch.RequestID, rule scenario.RouteRule) *fetch.FulfillRequestParams {
	status := rule.Status
	if status == 0 {
		status = http.StatusOK
	}
	contentType := rule.ContentType
	if contentType == "" {
		contentType = "text/plain"
	}
	headers := []*fetch.HeaderEntry{
		{Name: "Content-Type", Value: contentType},
		{Name: "Content-Length", Value: fmt.Sprintf("%d", len(rule.Body))},
	}
	return fetch.FulfillRequest(id, int64(status)).
		WithResponseHeaders(headers).
		WithBody(base64.StdEncoding.EncodeToString([]byte(rule.Body)))
}
