package report

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"sort"
	"strings"

	"github.com/dgnsrekt/pagecheck/internal/runner"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

// Markdown renders rep as a GitHub-flavoured markdown document.
func Markdown(rep runner.RunReport) string {
	var b strings.Builder
	title := rep.Suite
	if title == "" {
		title = "pagecheck run"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "- Run: `%s`\n", rep.RunID)
	fmt.Fprintf(&b, "- Browser: %s\n", browserLabel(rep))
	fmt.Fprintf(&b, "- Base URL: %s\n", rep.BaseURL)
	fmt.Fprintf(&b, "- Started: %s\n", rep.StartedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "- Result: **%s**\n\n", SummaryLine(rep))

	b.WriteString("## Scenarios\n\n")
	b.WriteString("| # | Scenario | Outcome | Duration | Failed step |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for i, res := range rep.Results {
		failed := ""
		if res.Outcome != runner.Passed {
			failed = escapeCell(stepLabel(res))
		}
		fmt.Fprintf(&b, "| %d | %s | %s | %s | %s |\n", i+1, escapeCell(res.Title), res.Outcome, formatDuration(res.Duration), failed)
	}

	for _, res := range rep.Results {
		if res.Outcome == runner.Passed && len(res.Metrics) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n## %s\n\n", res.Title)
		if res.Outcome != runner.Passed {
			fmt.Fprintf(&b, "**%s** at %s\n\n", res.Outcome, stepLabel(res))
			if res.Error != "" {
				f := fence(res.Error)
				fmt.Fprintf(&b, "%s\n%s\n%s\n\n", f, res.Error, f)
			}
		}
		for _, a := range res.Artifacts {
			if strings.HasSuffix(a, ".png") {
				fmt.Fprintf(&b, "![%s](%s)\n\n", a, a)
			} else {
				fmt.Fprintf(&b, "- [%s](%s)\n", a, a)
			}
		}
		if len(res.Metrics) > 0 {
			b.WriteString("| Metric | Value |\n|---|---|\n")
			keys := make([]string, 0, len(res.Metrics))
			for k := range res.Metrics {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(&b, "| %s | %g |\n", k, res.Metrics[k])
			}
			b.WriteString("\n")
		}
		if res.Outcome != runner.Passed && len(res.Logs) > 0 {
			var lines strings.Builder
			for _, e := range res.Logs {
				lines.WriteString(e.String())
				lines.WriteByte('\n')
			}
			f := fence(lines.String())
			fmt.Fprintf(&b, "Log:\n\n%s\n%s%s\n", f, lines.String(), f)
		}
	}
	return b.String()
}

// fence returns a backtick fence longer than any backtick run in s.
func fence(s string) string {
	longest, run := 0, 0
	for _, r := range s {
		if r == '`' {
			run++
			longest = max(longest, run)
		} else {
			run = 0
		}
	}
	return strings.Repeat("`", max(3, longest+1))
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithParserOptions(parser.WithAutoHeadingID()),
)

const htmlHead = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { font-family: -apple-system, "Segoe UI", Helvetica, Arial, sans-serif; margin: 2rem auto; max-width: 70rem; color: #1f2328; }
table { border-collapse: collapse; margin: 1rem 0; }
th, td { border: 1px solid #d0d7de; padding: .35rem .7rem; text-align: left; }
pre { background: #f6f8fa; padding: .8rem; overflow-x: auto; }
img { max-width: 100%%; border: 1px solid #d0d7de; }
</style>
</head>
<body>
`

// HTML renders the markdown report to a standalone HTML page.
func HTML(w io.Writer, rep runner.RunReport) error {
	var body bytes.Buffer
	if err := md.Convert([]byte(Markdown(rep)), &body); err != nil {
		return fmt.Errorf("report: render html: %w", err)
	}
	title := rep.Suite
	if title == "" {
		title = "pagecheck run"
	}
	if _, err := fmt.Fprintf(w, htmlHead, html.EscapeString(title)); err != nil {
		return err
	}
	if _, err := w.Write(body.Bytes()); err != nil {
		return err
	}
	_, err := io.WriteString(w, "</body>\n</html>\n")
	return err
}
