package scenario

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gobwas/glob"
)

// Kind tags the variant a Step carries.
type Kind string

const (
	KindNavigate       Kind = "navigate"
	KindClick          Kind = "click"
	KindFill           Kind = "fill"
	KindCheck          Kind = "check"
	KindSelectOption   Kind = "selectOption"
	KindUploadFile     Kind = "uploadFile"
	KindAssertVisible  Kind = "assertVisible"
	KindAssertText     Kind = "assertText"
	KindAssertContains Kind = "assertContains"
	KindAssertCount    Kind = "assertCount"
	KindAssertChecked  Kind = "assertChecked"
	KindRoute          Kind = "route"
	KindWaitFor        Kind = "waitFor"
	KindOnDialog       Kind = "onDialog"
	KindScreenshot     Kind = "screenshot"
	KindEvaluate       Kind = "evaluate"
	KindMeasure        Kind = "measureNavigation"
)

var kinds = map[Kind]bool{
	KindNavigate: true, KindClick: true, KindFill: true, KindCheck: true,
	KindSelectOption: true, KindUploadFile: true, KindAssertVisible: true,
	KindAssertText: true, KindAssertContains: true, KindAssertCount: true,
	KindAssertChecked: true, KindRoute: true, KindWaitFor: true,
	KindOnDialog: true, KindScreenshot: true, KindEvaluate: true, KindMeasure: true,
}

// Known reports whether k is a supported step kind.
func (k Kind) Known() bool { return kinds[k] }

// Assertion reports whether the step auto-waits against the expect timeout
// rather than the action timeout.
func (k Kind) Assertion() bool {
	switch k {
	case KindAssertVisible, KindAssertText, KindAssertContains, KindAssertCount, KindAssertChecked:
		return true
	}
	return false
}

// FilePayload is an in-memory file handed to a file input.
type FilePayload struct {
	Name     string `json:"name"`
	MimeType string `json:"mime_type"`
	Content  []byte `json:"-"`
}

// RouteAction selects what an interception rule does with a matching request.
type RouteAction string

const (
	RouteAbort    RouteAction = "abort"
	RouteFulfill  RouteAction = "fulfill"
	RouteContinue RouteAction = "continue"
)

// RouteRule intercepts requests whose URL matches Pattern. Patterns are
// globs: `*` stays within a path segment, `**` crosses segments and
// `{a,b}` matches alternatives.
type RouteRule struct {
	Pattern     string      `json:"pattern"`
	Action      RouteAction `json:"action"`
	Status      int         `json:"status,omitempty"`
	ContentType string      `json:"content_type,omitempty"`
	Body        string      `json:"body,omitempty"`
}

// Validate checks the rule and that its pattern compiles.
func (r RouteRule) Validate() error {
	if strings.TrimSpace(r.Pattern) == "" {
		return fmt.Errorf("route pattern is required")
	}
	if _, err := glob.Compile(r.Pattern, '/'); err != nil {
		return fmt.Errorf("route pattern %q: %w", r.Pattern, err)
	}
	switch r.Action {
	case RouteAbort, RouteContinue:
	case RouteFulfill:
		if r.Status != 0 && (r.Status < 100 || r.Status > 599) {
			return fmt.Errorf("route status %d out of range", r.Status)
		}
	default:
		return fmt.Errorf("unknown route action %q", r.Action)
	}
	return nil
}

// DialogKind is the type of a native JavaScript dialog.
type DialogKind string

const (
	DialogAlert        DialogKind = "alert"
	DialogConfirm      DialogKind = "confirm"
	DialogPrompt       DialogKind = "prompt"
	DialogBeforeUnload DialogKind = "beforeunload"
)

// DialogResponse is how a single dialog is answered.
type DialogResponse struct {
	Accept     bool   `json:"accept"`
	PromptText string `json:"prompt_text,omitempty"`
}

// DialogPolicy answers dialogs by kind, falling back to Default.
type DialogPolicy struct {
	Default DialogResponse                `json:"default"`
	ByKind  map[DialogKind]DialogResponse `json:"by_kind,omitempty"`
}

// Respond returns the response for a dialog of the given kind.
func (p DialogPolicy) Respond(kind DialogKind) DialogResponse {
	if r, ok := p.ByKind[kind]; ok {
		return r
	}
	return p.Default
}

// Step is a single declarative action or assertion. Kind selects which
// fields are meaningful.
type Step struct {
	Kind Kind
	// Name overrides the generated description in reports.
	Name string

	URL    string   // navigate, measureNavigation; empty means the base URL
	Target *Locator // element steps and element screenshots
	Value  string   // fill text, option value, expected text
	Count  int      // assertCount

	Files   []FilePayload
	Route   *RouteRule
	Dialogs *DialogPolicy

	Path     string // screenshot output
	FullPage bool

	Script string // evaluate: a JavaScript expression, may return a promise
	Expect any    // evaluate: expected JSON value; nil skips the comparison
	Metric string // evaluate: records numeric results under this metric name

	// Timeout overrides the action or expect timeout for this step.
	Timeout time.Duration
	// OpensDialog marks actions that raise a native dialog. A dialog handler
	// must be registered by an earlier step.
	OpensDialog bool
}

// Navigate loads url in the scenario page.
func Navigate(url string) Step { return Step{Kind: KindNavigate, URL: url} }

// Click clicks the element.
func Click(l Locator) Step { return Step{Kind: KindClick, Target: &l} }

// Fill replaces the value of an input with text.
func Fill(l Locator, text string) Step { return Step{Kind: KindFill, Target: &l, Value: text} }

// Check ticks a checkbox or radio input.
func Check(l Locator) Step { return Step{Kind: KindCheck, Target: &l} }

// SelectOption selects the option with the given value.
func SelectOption(l Locator, value string) Step {
	return Step{Kind: KindSelectOption, Target: &l, Value: value}
}

// UploadFile sets the files of a file input.
func UploadFile(l Locator, files ...FilePayload) Step {
	return Step{Kind: KindUploadFile, Target: &l, Files: files}
}

// ExpectVisible waits until the element is visible.
func ExpectVisible(l Locator) Step { return Step{Kind: KindAssertVisible, Target: &l} }

// ExpectText waits until the element's text equals text.
func ExpectText(l Locator, text string) Step {
	return Step{Kind: KindAssertText, Target: &l, Value: text}
}

// ExpectContains waits until the element's text contains text.
func ExpectContains(l Locator, text string) Step {
	return Step{Kind: KindAssertContains, Target: &l, Value: text}
}

// ExpectCount waits until exactly n elements match.
func ExpectCount(l Locator, n int) Step { return Step{Kind: KindAssertCount, Target: &l, Count: n} }

// ExpectChecked waits until the checkbox is checked.
func ExpectChecked(l Locator) Step { return Step{Kind: KindAssertChecked, Target: &l} }

// WaitFor waits until the element is visible.
func WaitFor(l Locator) Step { return Step{Kind: KindWaitFor, Target: &l} }

// RouteAbortRequests fails every request matching pattern.
func RouteAbortRequests(pattern string) Step {
	return Step{Kind: KindRoute, Route: &RouteRule{Pattern: pattern, Action: RouteAbort}}
}

// RouteFulfillRequests answers every request matching pattern with a canned response.
func RouteFulfillRequests(pattern string, status int, contentType, body string) Step {
	return Step{Kind: KindRoute, Route: &RouteRule{
		Pattern:     pattern,
		Action:      RouteFulfill,
		Status:      status,
		ContentType: contentType,
		Body:        body,
	}}
}

// OnDialog registers the dialog policy for the rest of the scenario.
func OnDialog(p DialogPolicy) Step { return Step{Kind: KindOnDialog, Dialogs: &p} }

// Screenshot captures the viewport, or the full page, to path.
func Screenshot(path string, fullPage bool) Step {
	return Step{Kind: KindScreenshot, Path: path, FullPage: fullPage}
}

// ScreenshotElement captures the element's bounding box to path.
func ScreenshotElement(l Locator, path string) Step {
	return Step{Kind: KindScreenshot, Target: &l, Path: path}
}

// Evaluate runs a JavaScript expression in the page.
func Evaluate(script string) Step { return Step{Kind: KindEvaluate, Script: script} }

// MeasureNavigation navigates to url and records the wall-clock load time.
func MeasureNavigation(url string) Step { return Step{Kind: KindMeasure, URL: url} }

// WithTimeout overrides the step's timeout.
func (s Step) WithTimeout(d time.Duration) Step {
	s.Timeout = d
	return s
}

// TriggersDialog marks the step as raising a native dialog.
func (s Step) TriggersDialog() Step {
	s.OpensDialog = true
	return s
}

// Expecting sets the value an evaluate step must produce.
func (s Step) Expecting(v any) Step {
	s.Expect = v
	return s
}

// StoreAs records an evaluate result as metrics under name.
func (s Step) StoreAs(name string) Step {
	s.Metric = name
	return s
}

// Named sets the report description.
func (s Step) Named(name string) Step {
	s.Name = name
	return s
}

// Describe renders a one-line human description of the step.
func (s Step) Describe() string {
	if s.Name != "" {
		return s.Name
	}
	target := ""
	if s.Target != nil {
		target = s.Target.String()
	}
	switch s.Kind {
	case KindNavigate:
		return "navigate to " + orBase(s.URL)
	case KindClick:
		return "click " + target
	case KindFill:
		return fmt.Sprintf("fill %s with %q", target, s.Value)
	case KindCheck:
		return "check " + target
	case KindSelectOption:
		return fmt.Sprintf("select %q in %s", s.Value, target)
	case KindUploadFile:
		names := make([]string, 0, len(s.Files))
		for _, f := range s.Files {
			names = append(names, f.Name)
		}
		return fmt.Sprintf("upload %s to %s", strings.Join(names, ", "), target)
	case KindAssertVisible:
		return "expect " + target + " to be visible"
	case KindAssertText:
		return fmt.Sprintf("expect %s to have text %q", target, s.Value)
	case KindAssertContains:
		return fmt.Sprintf("expect %s to contain text %q", target, s.Value)
	case KindAssertCount:
		return "expect " + target + " to have count " + strconv.Itoa(s.Count)
	case KindAssertChecked:
		return "expect " + target + " to be checked"
	case KindWaitFor:
		return "wait for " + target
	case KindRoute:
		if s.Route == nil {
			return "route"
		}
		return fmt.Sprintf("route %s -> %s", s.Route.Pattern, s.Route.Action)
	case KindOnDialog:
		return "register dialog handler"
	case KindScreenshot:
		if s.Target != nil {
			return "screenshot " + target + " to " + s.Path
		}
		if s.FullPage {
			return "full page screenshot to " + s.Path
		}
		return "screenshot to " + s.Path
	case KindEvaluate:
		return "evaluate " + truncate(s.Script, 60)
	case KindMeasure:
		return "measure navigation to " + orBase(s.URL)
	}
	return string(s.Kind)
}

// Validate checks that the fields required by the step's kind are present.
func (s Step) Validate() error {
	if !s.Kind.Known() {
		return fmt.Errorf("unknown step kind %q", s.Kind)
	}
	if s.Timeout < 0 {
		return fmt.Errorf("negative timeout %s", s.Timeout)
	}
	switch s.Kind {
	case KindClick, KindFill, KindCheck, KindSelectOption, KindUploadFile,
		KindAssertVisible, KindAssertText, KindAssertContains, KindAssertCount,
		KindAssertChecked, KindWaitFor:
		if s.Target == nil {
			return fmt.Errorf("%s requires a target", s.Kind)
		}
		if err := s.Target.Validate(); err != nil {
			return fmt.Errorf("%s target: %w", s.Kind, err)
		}
	}
	switch s.Kind {
	case KindSelectOption:
		if s.Value == "" {
			return fmt.Errorf("selectOption requires a value")
		}
	case KindUploadFile:
		if len(s.Files) == 0 {
			return fmt.Errorf("uploadFile requires at least one file")
		}
		for i, f := range s.Files {
			if f.Name == "" {
				return fmt.Errorf("files[%d] missing name", i)
			}
		}
	case KindAssertCount:
		if s.Count < 0 {
			return fmt.Errorf("assertCount requires a non-negative count")
		}
	case KindRoute:
		if s.Route == nil {
			return fmt.Errorf("route requires a rule")
		}
		return s.Route.Validate()
	case KindOnDialog:
		if s.Dialogs == nil {
			return fmt.Errorf("onDialog requires a policy")
		}
	case KindScreenshot:
		if s.Path == "" {
			return fmt.Errorf("screenshot requires a path")
		}
		if s.Target != nil {
			if err := s.Target.Validate(); err != nil {
				return fmt.Errorf("screenshot target: %w", err)
			}
		}
	case KindEvaluate:
		if strings.TrimSpace(s.Script) == "" {
			return fmt.Errorf("evaluate requires a script")
		}
	}
	return nil
}

func orBase(url string) string {
	if url == "" {
		return "base URL"
	}
	return url
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
