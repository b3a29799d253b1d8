package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dgnsrekt/pagecheck/internal/runner"
)

// maxListed caps the scenarios named in one notification.
const maxListed = 10

// Message renders a run summary as plain text.
func Message(rep runner.RunReport) string {
	var b strings.Builder
	s := rep.Summary
	fmt.Fprintf(&b, "%d passed, %d failed, %d timed out in %s", s.Passed, s.Failed, s.TimedOut, rep.Duration.Round(100*time.Millisecond))
	if rep.Interrupted {
		b.WriteString(" (interrupted)")
	}
	b.WriteString("\n")
	listed := 0
	for _, res := range rep.Results {
		if res.Outcome == runner.Passed {
			continue
		}
		if listed == maxListed {
			fmt.Fprintf(&b, "... and %d more\n", s.Failed+s.TimedOut-listed)
			break
		}
		listed++
		fmt.Fprintf(&b, "%s: %s", res.Outcome, res.Title)
		if res.FailedStepDescription != "" {
			fmt.Fprintf(&b, " (%s)", res.FailedStepDescription)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// SendRunSummary posts the run summary to an ntfy topic URL. Failed runs are
// sent with high priority.
func SendRunSummary(ctx context.Context, client *http.Client, endpoint string, rep runner.RunReport) error {
	title := "pagecheck: " + rep.Suite
	headers := map[string]string{"Title": title, "Tags": "white_check_mark"}
	if !rep.OK() {
		headers["Priority"] = "high"
		headers["Tags"] = "x"
	}
	return Send(ctx, client, endpoint, Message(rep), headers)
}

// Send sends a message to the requested endpoint using HTTP POST.
func Send(ctx context.Context, client *http.Client, endpoint, message string, headers map[string]string) error {
	c := client
	if c == nil {
		c = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(message))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "text/plain")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("ntfy notification failed: status=%d", resp.StatusCode)
	}
	return nil
}
