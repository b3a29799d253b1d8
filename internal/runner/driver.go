package runner

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/dgnsrekt/pagecheck/internal/scenario"
)

// Page is the automation capability a scenario runs against. Every blocking
// method honours ctx's deadline; expectations auto-wait until it.
type Page interface {
	Navigate(ctx context.Context, url string) error
	Click(ctx context.Context, loc scenario.Locator) error
	Fill(ctx context.Context, loc scenario.Locator, text string) error
	Check(ctx context.Context, loc scenario.Locator) error
	SelectOption(ctx context.Context, loc scenario.Locator, value string) error
	SetInputFiles(ctx context.Context, loc scenario.Locator, files []scenario.FilePayload) error
	WaitFor(ctx context.Context, loc scenario.Locator) error

	ExpectVisible(ctx context.Context, loc scenario.Locator) error
	ExpectText(ctx context.Context, loc scenario.Locator, text string) error
	ExpectContainsText(ctx context.Context, loc scenario.Locator, text string) error
	ExpectCount(ctx context.Context, loc scenario.Locator, n int) error
	ExpectChecked(ctx context.Context, loc scenario.Locator) error

	// OnDialog takes effect before it returns.
	OnDialog(policy scenario.DialogPolicy)
	Route(ctx context.Context, rule scenario.RouteRule) error
	Screenshot(ctx context.Context, target *scenario.Locator, fullPage bool) ([]byte, error)
	Evaluate(ctx context.Context, expr string) (json.RawMessage, error)
	Close() error
}

// Driver opens isolated pages. Pages from one Driver share no cookies,
// storage, routes or dialog handlers.
type Driver interface {
	NewPage(ctx context.Context, logger *slog.Logger) (Page, error)
}

// ResultWriter receives each ScenarioResult as soon as it is final.
type ResultWriter interface {
	Write(record any) error
}
