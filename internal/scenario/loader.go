package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type suiteSpec struct {
	Name      string         `yaml:"name"`
	Scenarios []scenarioSpec `yaml:"scenarios"`
}

type scenarioSpec struct {
	Title         string        `yaml:"title"`
	Tags          []string      `yaml:"tags"`
	Observational bool          `yaml:"observational"`
	Timeout       time.Duration `yaml:"timeout"`
	Steps         []stepSpec    `yaml:"steps"`
}

type stepSpec struct {
	Action      string        `yaml:"action"`
	Name        string        `yaml:"name"`
	URL         string        `yaml:"url"`
	Target      *Locator      `yaml:"target"`
	Value       string        `yaml:"value"`
	Count       int           `yaml:"count"`
	Files       []fileSpec    `yaml:"files"`
	Route       *routeSpec    `yaml:"route"`
	Dialogs     *dialogSpec   `yaml:"dialogs"`
	Path        string        `yaml:"path"`
	FullPage    bool          `yaml:"full_page"`
	Script      string        `yaml:"script"`
	Expect      any           `yaml:"expect"`
	Metric      string        `yaml:"metric"`
	Timeout     time.Duration `yaml:"timeout"`
	OpensDialog bool          `yaml:"opens_dialog"`
}

type fileSpec struct {
	Name     string `yaml:"name"`
	MimeType string `yaml:"mime_type"`
	Content  string `yaml:"content"`
	// Source reads the content from a file when Content is empty.
	Source string `yaml:"source"`
}

type routeSpec struct {
	Pattern     string `yaml:"pattern"`
	Action      string `yaml:"action"`
	Status      int    `yaml:"status"`
	ContentType string `yaml:"content_type"`
	Body        string `yaml:"body"`
}

type dialogResponseSpec struct {
	Accept     *bool  `yaml:"accept"`
	PromptText string `yaml:"prompt_text"`
}

type dialogSpec struct {
	Default dialogResponseSpec            `yaml:"default"`
	ByKind  map[string]dialogResponseSpec `yaml:"by_kind"`
}

// LoadFile reads one or more suites from a YAML file. Multiple YAML
// documents in the file are merged into a single suite named after the
// first document.
func LoadFile(path string) (Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Suite{}, fmt.Errorf("suite file: %w", err)
	}
	suite, err := parse(data, filepath.Dir(path))
	if err != nil {
		return Suite{}, fmt.Errorf("suite file %s: %w", path, err)
	}
	if suite.Name == "" {
		suite.Name = path
	}
	return suite, nil
}

// Parse decodes YAML suite documents. Relative upload sources are read from
// the working directory.
func Parse(data []byte) (Suite, error) {
	return parse(data, "")
}

// parse resolves relative upload sources against baseDir.
func parse(data []byte, baseDir string) (Suite, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	var out Suite
	for {
		var doc suiteSpec
		if err := decoder.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return Suite{}, err
		}
		if doc.Name == "" && len(doc.Scenarios) == 0 {
			continue
		}
		if out.Name == "" {
			out.Name = doc.Name
		}
		for i, sc := range doc.Scenarios {
			converted, err := sc.toScenario(baseDir)
			if err != nil {
				return Suite{}, fmt.Errorf("scenarios[%d]: %w", i, err)
			}
			out.Scenarios = append(out.Scenarios, converted)
		}
	}
	return out, nil
}

func (s scenarioSpec) toScenario(baseDir string) (Scenario, error) {
	sc := Scenario{
		Title:         s.Title,
		Tags:          s.Tags,
		Observational: s.Observational,
		Timeout:       s.Timeout,
		Steps:         make([]Step, 0, len(s.Steps)),
	}
	for i, st := range s.Steps {
		step, err := st.toStep(baseDir)
		if err != nil {
			return Scenario{}, fmt.Errorf("steps[%d]: %w", i, err)
		}
		sc.Steps = append(sc.Steps, step)
	}
	return sc, nil
}

func (s stepSpec) toStep(baseDir string) (Step, error) {
	kind := Kind(s.Action)
	if !kind.Known() {
		return Step{}, fmt.Errorf("unknown action %q", s.Action)
	}
	step := Step{
		Kind:        kind,
		Name:        s.Name,
		URL:         s.URL,
		Target:      s.Target,
		Value:       s.Value,
		Count:       s.Count,
		Path:        s.Path,
		FullPage:    s.FullPage,
		Script:      s.Script,
		Expect:      s.Expect,
		Metric:      s.Metric,
		Timeout:     s.Timeout,
		OpensDialog: s.OpensDialog,
	}
	for i, f := range s.Files {
		payload := FilePayload{Name: f.Name, MimeType: f.MimeType, Content: []byte(f.Content)}
		if f.Content == "" && f.Source != "" {
			src := f.Source
			if baseDir != "" && !filepath.IsAbs(src) {
				src = filepath.Join(baseDir, src)
			}
			data, err := os.ReadFile(src)
			if err != nil {
				return Step{}, fmt.Errorf("files[%d]: %w", i, err)
			}
			payload.Content = data
		}
		if payload.MimeType == "" {
			payload.MimeType = "application/octet-stream"
		}
		step.Files = append(step.Files, payload)
	}
	if s.Route != nil {
		step.Route = &RouteRule{
			Pattern:     s.Route.Pattern,
			Action:      RouteAction(s.Route.Action),
			Status:      s.Route.Status,
			ContentType: s.Route.ContentType,
			Body:        s.Route.Body,
		}
	}
	if s.Dialogs != nil {
		policy := DialogPolicy{Default: s.Dialogs.Default.toResponse()}
		if len(s.Dialogs.ByKind) > 0 {
			policy.ByKind = make(map[DialogKind]DialogResponse, len(s.Dialogs.ByKind))
			for k, v := range s.Dialogs.ByKind {
				policy.ByKind[DialogKind(k)] = v.toResponse()
			}
		}
		step.Dialogs = &policy
	}
	return step, nil
}

// Dialogs are accepted unless accept is explicitly false.
func (d dialogResponseSpec) toResponse() DialogResponse {
	accept := true
	if d.Accept != nil {
		accept = *d.Accept
	}
	return DialogResponse{Accept: accept, PromptText: d.PromptText}
}
