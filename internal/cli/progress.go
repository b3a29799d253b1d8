package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/dgnsrekt/pagecheck/internal/events"
)

// printProgress writes one line per scenario lifecycle event until ch is
// closed.
func printProgress(w io.Writer, ch <-chan events.Event) {
	for evt := range ch {
		switch evt.Type {
		case events.RunStarted:
			fmt.Fprintf(w, "running %s\n", evt.Detail)
		case events.ScenarioStarted:
			fmt.Fprintf(w, "  start    %s\n", evt.Scenario)
		case events.StepFinished:
			if evt.Outcome != "passed" {
				fmt.Fprintf(w, "    step %d %s: %s\n", evt.Step, evt.Outcome, evt.Detail)
			}
		case events.ScenarioFinished:
			fmt.Fprintf(w, "  %-8s %s (%s)\n", evt.Outcome, evt.Scenario, evt.Duration.Round(time.Millisecond))
		case events.RunFinished:
			fmt.Fprintf(w, "finished in %s: %s\n", evt.Duration.Round(time.Millisecond), evt.Detail)
		}
	}
}
