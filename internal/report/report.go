package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dgnsrekt/pagecheck/internal/runner"
)

// Formats understood by Render.
const (
	FormatList     = "list"
	FormatJSON     = "json"
	FormatJUnit    = "junit"
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
)

var extensions = map[string]string{
	FormatList:     "txt",
	FormatJSON:     "json",
	FormatJUnit:    "xml",
	FormatMarkdown: "md",
	FormatHTML:     "html",
}

// Filename returns the report file name for format.
func Filename(format string) (string, error) {
	ext, ok := extensions[format]
	if !ok {
		return "", fmt.Errorf("unknown report format %q", format)
	}
	return "report." + ext, nil
}

// Write renders rep into <dir>/report.<ext> and returns the path. Artifact
// links are made relative to dir.
func Write(dir, format string, rep runner.RunReport) (string, error) {
	name, err := Filename(format)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("report: mkdir %s: %w", dir, err)
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("report: create %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	if err := Render(f, format, relativize(dir, rep)); err != nil {
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("report: close %s: %w", path, err)
	}
	return path, nil
}

// Render writes rep in format to w.
func Render(w io.Writer, format string, rep runner.RunReport) error {
	switch format {
	case FormatList:
		return List(w, rep)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	case FormatJUnit:
		return JUnit(w, rep)
	case FormatMarkdown:
		_, err := io.WriteString(w, Markdown(rep))
		return err
	case FormatHTML:
		return HTML(w, rep)
	}
	return fmt.Errorf("unknown report format %q", format)
}

var marks = map[runner.Outcome]string{
	runner.Passed:   "ok",
	runner.Failed:   "FAIL",
	runner.TimedOut: "TIMEOUT",
}

// List prints one line per scenario followed by failure details and the
// summary, in the manner of a console test reporter.
func List(w io.Writer, rep runner.RunReport) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Running %d scenarios using %s against %s\n\n", len(rep.Results), browserLabel(rep), rep.BaseURL)
	for i, res := range rep.Results {
		fmt.Fprintf(&b, "  %-7s %2d %s (%s)\n", marks[res.Outcome], i+1, res.Title, formatDuration(res.Duration))
	}

	failures := 0
	for _, res := range rep.Results {
		if res.Outcome == runner.Passed {
			continue
		}
		failures++
		fmt.Fprintf(&b, "\n  %d) %s\n", failures, res.Title)
		fmt.Fprintf(&b, "     %s at %s\n", res.Outcome, stepLabel(res))
		if res.Error != "" {
			fmt.Fprintf(&b, "     %s\n", res.Error)
		}
		for _, a := range res.Artifacts {
			fmt.Fprintf(&b, "     attachment: %s\n", a)
		}
	}

	fmt.Fprintf(&b, "\n  %s\n", SummaryLine(rep))
	_, err := io.WriteString(w, b.String())
	return err
}

// SummaryLine renders the counts of a run on one line.
func SummaryLine(rep runner.RunReport) string {
	s := rep.Summary
	line := fmt.Sprintf("%d passed, %d failed, %d timed out (%s)", s.Passed, s.Failed, s.TimedOut, formatDuration(rep.Duration))
	if rep.Interrupted {
		line += ", interrupted"
	}
	return line
}

func stepLabel(res runner.ScenarioResult) string {
	if res.FailedStep < 0 {
		if res.FailedStepDescription != "" {
			return res.FailedStepDescription
		}
		return "scenario"
	}
	return fmt.Sprintf("step %d: %s", res.FailedStep, res.FailedStepDescription)
}

func browserLabel(rep runner.RunReport) string {
	if rep.BrowserVersion != "" {
		return rep.BrowserVersion
	}
	return rep.Browser
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(10 * time.Millisecond).String()
}

// relativize rewrites artifact paths relative to the report directory so
// links in the report resolve from where it is written.
func relativize(dir string, rep runner.RunReport) runner.RunReport {
	out := rep
	out.Results = make([]runner.ScenarioResult, len(rep.Results))
	for i, res := range rep.Results {
		res.Artifacts = append([]string(nil), res.Artifacts...)
		for j, a := range res.Artifacts {
			absA, errA := filepath.Abs(a)
			absDir, errD := filepath.Abs(dir)
			if errA != nil || errD != nil {
				continue
			}
			if rel, err := filepath.Rel(absDir, absA); err == nil {
				res.Artifacts[j] = filepath.ToSlash(rel)
			}
		}
		out.Results[i] = res
	}
	return out
}
