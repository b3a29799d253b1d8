package scenario

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Scenario is a titled, ordered list of steps run against a fresh page.
type Scenario struct {
	Title string
	Tags  []string
	// Observational scenarios report measurements; failing evaluate or
	// measure steps are logged rather than failing the scenario.
	Observational bool
	// Timeout overrides the run's scenario timeout.
	Timeout time.Duration
	Steps   []Step
}

// Suite is an ordered collection of scenarios sharing one setup.
type Suite struct {
	Name      string
	Scenarios []Scenario
}

// Validate checks every scenario and step. All problems are reported
// together.
func (s Suite) Validate() error {
	var errs []error
	seen := make(map[string]int, len(s.Scenarios))
	for i, sc := range s.Scenarios {
		title := strings.TrimSpace(sc.Title)
		if title == "" {
			errs = append(errs, fmt.Errorf("scenarios[%d] missing title", i))
			continue
		}
		if prev, ok := seen[title]; ok {
			errs = append(errs, fmt.Errorf("scenarios[%d] duplicates title %q of scenarios[%d]", i, title, prev))
		}
		seen[title] = i
		if err := sc.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Validate checks the scenario's steps and the dialog ordering rule: a step
// that opens a dialog must come after a dialog handler is registered.
func (sc Scenario) Validate() error {
	if len(sc.Steps) == 0 {
		return fmt.Errorf("scenario %q has no steps", sc.Title)
	}
	if sc.Timeout < 0 {
		return fmt.Errorf("scenario %q has negative timeout", sc.Title)
	}
	var errs []error
	handler := false
	for i, st := range sc.Steps {
		if err := st.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("scenario %q: steps[%d]: %w", sc.Title, i, err))
			continue
		}
		if st.Kind == KindOnDialog {
			handler = true
		}
		if st.OpensDialog && !handler {
			errs = append(errs, fmt.Errorf("scenario %q: steps[%d]: %s opens a dialog before a dialog handler is registered", sc.Title, i, st.Describe()))
		}
	}
	return errors.Join(errs...)
}

// Filter returns the scenarios whose titles match the grep pattern. An
// empty pattern keeps everything.
func (s Suite) Filter(pattern string) (Suite, error) {
	if strings.TrimSpace(pattern) == "" {
		return s, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Suite{}, fmt.Errorf("grep %q: %w", pattern, err)
	}
	out := Suite{Name: s.Name}
	for _, sc := range s.Scenarios {
		if re.MatchString(sc.Title) {
			out.Scenarios = append(out.Scenarios, sc)
		}
	}
	return out, nil
}

// Merge appends the scenarios of other suites, keeping this suite's name.
func (s Suite) Merge(others ...Suite) Suite {
	out := Suite{Name: s.Name, Scenarios: append([]Scenario(nil), s.Scenarios...)}
	for _, o := range others {
		out.Scenarios = append(out.Scenarios, o.Scenarios...)
	}
	return out
}
