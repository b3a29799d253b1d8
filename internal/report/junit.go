package report

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/dgnsrekt/pagecheck/internal/runner"
)

type junitSuites struct {
	XMLName  xml.Name     `xml:"testsuites"`
	Name     string       `xml:"name,attr"`
	Tests    int          `xml:"tests,attr"`
	Failures int          `xml:"failures,attr"`
	Errors   int          `xml:"errors,attr"`
	Time     string       `xml:"time,attr"`
	Suites   []junitSuite `xml:"testsuite"`
}

type junitSuite struct {
	Name      string          `xml:"name,attr"`
	Tests     int             `xml:"tests,attr"`
	Failures  int             `xml:"failures,attr"`
	Errors    int             `xml:"errors,attr"`
	Time      string          `xml:"time,attr"`
	Timestamp string          `xml:"timestamp,attr"`
	Hostname  string          `xml:"hostname,attr"`
	Props     []junitProperty `xml:"properties>property"`
	Cases     []junitCase     `xml:"testcase"`
}

type junitProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

type junitCase struct {
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	Time      string        `xml:"time,attr"`
	Failure   *junitProblem `xml:"failure,omitempty"`
	Error     *junitProblem `xml:"error,omitempty"`
	SystemOut string        `xml:"system-out,omitempty"`
}

type junitProblem struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

// JUnit writes rep as JUnit XML. Failed scenarios are failures, timed out
// ones are errors.
func JUnit(w io.Writer, rep runner.RunReport) error {
	suite := junitSuite{
		Name:      rep.Suite,
		Tests:     rep.Summary.Total,
		Failures:  rep.Summary.Failed,
		Errors:    rep.Summary.TimedOut,
		Time:      seconds(rep.Duration.Seconds()),
		Timestamp: rep.StartedAt.Format("2006-01-02T15:04:05"),
		Hostname:  rep.BaseURL,
		Props: []junitProperty{
			{Name: "run_id", Value: rep.RunID},
			{Name: "browser", Value: browserLabel(rep)},
		},
	}
	for _, res := range rep.Results {
		c := junitCase{Name: res.Title, Classname: rep.Suite, Time: seconds(res.Duration.Seconds())}
		if res.Outcome != runner.Passed {
			p := &junitProblem{
				Message: res.Error,
				Type:    res.ErrorCode,
				Body:    problemBody(res),
			}
			if res.Outcome == runner.TimedOut {
				c.Error = p
			} else {
				c.Failure = p
			}
		}
		if len(res.Logs) > 0 {
			var b strings.Builder
			for _, e := range res.Logs {
				b.WriteString(e.String())
				b.WriteByte('\n')
			}
			c.SystemOut = b.String()
		}
		suite.Cases = append(suite.Cases, c)
	}

	doc := junitSuites{
		Name:     rep.Suite,
		Tests:    suite.Tests,
		Failures: suite.Failures,
		Errors:   suite.Errors,
		Time:     suite.Time,
		Suites:   []junitSuite{suite},
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("report: encode junit: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func problemBody(res runner.ScenarioResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s at %s\n", res.Outcome, stepLabel(res))
	for _, a := range res.Artifacts {
		fmt.Fprintf(&b, "[[ATTACHMENT|%s]]\n", a)
	}
	return b.String()
}

func seconds(s float64) string {
	return fmt.Sprintf("%.3f", s)
}
