package runner

import (
	"fmt"
	"sync"
	"time"

	"github.com/dgnsrekt/pagecheck/internal/logging"
)

// Outcome is the state of a scenario.
type Outcome string

const (
	Pending  Outcome = "pending"
	Running  Outcome = "running"
	Passed   Outcome = "passed"
	Failed   Outcome = "failed"
	TimedOut Outcome = "timedOut"
)

// Terminal reports whether no further transition is allowed.
func (o Outcome) Terminal() bool {
	return o == Passed || o == Failed || o == TimedOut
}

// scenarioState guards pending -> running -> terminal.
type scenarioState struct {
	mu      sync.Mutex
	outcome Outcome
}

func newScenarioState() *scenarioState {
	return &scenarioState{outcome: Pending}
}

func (s *scenarioState) transition(to Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.outcome == Pending && to == Running:
	case s.outcome == Running && to.Terminal():
	default:
		return fmt.Errorf("invalid scenario transition %s -> %s", s.outcome, to)
	}
	s.outcome = to
	return nil
}

func (s *scenarioState) current() Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome
}

// StepResult records one executed step.
type StepResult struct {
	Index       int           `json:"index"`
	Kind        string        `json:"kind"`
	Description string        `json:"description"`
	Status      string        `json:"status"`
	Duration    time.Duration `json:"duration"`
	Error       string        `json:"error,omitempty"`
}

// Step statuses.
const (
	StepPassed  = "passed"
	StepFailed  = "failed"
	StepWarning = "warning"
)

// ScenarioResult is produced exactly once per executed scenario.
type ScenarioResult struct {
	Title                 string             `json:"title"`
	Outcome               Outcome            `json:"outcome"`
	FailedStep            int                `json:"failed_step"`
	FailedStepDescription string             `json:"failed_step_description,omitempty"`
	Error                 string             `json:"error,omitempty"`
	ErrorCode             string             `json:"error_code,omitempty"`
	Artifacts             []string           `json:"artifacts,omitempty"`
	StartedAt             time.Time          `json:"started_at"`
	Duration              time.Duration      `json:"duration"`
	Metrics               map[string]float64 `json:"metrics,omitempty"`
	Steps                 []StepResult       `json:"steps"`
	Logs                  []logging.Entry    `json:"logs,omitempty"`
}

// Summary counts results by outcome.
type Summary struct {
	Total    int `json:"total"`
	Passed   int `json:"passed"`
	Failed   int `json:"failed"`
	TimedOut int `json:"timed_out"`
}

// Summarize counts outcomes.
func Summarize(results []ScenarioResult) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		switch r.Outcome {
		case Passed:
			s.Passed++
		case Failed:
			s.Failed++
		case TimedOut:
			s.TimedOut++
		}
	}
	return s
}

// RunReport is the outcome of a whole run.
type RunReport struct {
	RunID          string           `json:"run_id"`
	Suite          string           `json:"suite"`
	Browser        string           `json:"browser"`
	BrowserVersion string           `json:"browser_version,omitempty"`
	BaseURL        string           `json:"base_url"`
	StartedAt      time.Time        `json:"started_at"`
	Duration       time.Duration    `json:"duration"`
	Results        []ScenarioResult `json:"results"`
	Summary        Summary          `json:"summary"`
	Interrupted    bool             `json:"interrupted"`
}

// OK reports whether every scenario passed and the run was not interrupted.
func (r RunReport) OK() bool {
	return !r.Interrupted && r.Summary.Total == r.Summary.Passed
}
