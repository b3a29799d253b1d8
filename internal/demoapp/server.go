// Package demoapp serves the page the built-in suite exercises.
package demoapp

import (
	"context"
	"embed"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

//go:embed assets/*.html
var assets embed.FS

// Item is one row of the data table.
type Item struct {
	ID    int    `json:"id" doc:"Row identifier"`
	Name  string `json:"name" doc:"Display name"`
	Value string `json:"value" doc:"Row value"`
}

// DemoItems returns the rows served by /api/data.
func DemoItems() []Item {
	return []Item{
		{ID: 1, Name: "Item 1", Value: "Value 1"},
		{ID: 2, Name: "Item 2", Value: "Value 2"},
		{ID: 3, Name: "Item 3", Value: "Value 3"},
	}
}

type dataInput struct {
	DelayMS int `query:"delay" minimum:"0" maximum:"5000" doc:"Milliseconds to wait before answering"`
}

type dataOutput struct {
	Body []Item
}

type healthOutput struct {
	Body struct {
		Status string `json:"status"`
	}
}

// NewServer builds the demo app handler serving items from /api/data.
func NewServer(items []Item, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(requestLogger(logger))
	router.Use(middleware.Recoverer)

	cfg := huma.DefaultConfig("Pagecheck Demo App", "1.0.0")
	cfg.DocsPath = ""
	api := humachi.New(router, cfg)

	router.Get("/", servePage(logger, "assets/index.html"))
	router.Get("/frame", servePage(logger, "assets/frame.html"))
	router.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if _, err := w.Write([]byte(docsHTML)); err != nil {
			logger.Debug("docs response write failed", "error", err)
		}
	})
	router.Get("/static/{name}", serveImage(logger))

	registerDataHandlers(api, items)
	return router
}

func registerDataHandlers(api huma.API, items []Item) {
	huma.Register(api, huma.Operation{
		OperationID: "list-data",
		Method:      http.MethodGet,
		Path:        "/api/data",
		Summary:     "List the demo table rows",
		Tags:        []string{"Data"},
	}, func(ctx context.Context, input *dataInput) (*dataOutput, error) {
		if input.DelayMS > 0 {
			t := time.NewTimer(time.Duration(input.DelayMS) * time.Millisecond)
			defer t.Stop()
			select {
			case <-ctx.Done():
				return nil, huma.Error503ServiceUnavailable("request cancelled")
			case <-t.C:
			}
		}
		out := &dataOutput{Body: items}
		if out.Body == nil {
			out.Body = []Item{}
		}
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/api/health",
		Summary:     "Report that the demo app is serving",
		Tags:        []string{"Health"},
	}, func(ctx context.Context, input *struct{}) (*healthOutput, error) {
		out := &healthOutput{}
		out.Body.Status = "ok"
		return out, nil
	})
}

func servePage(logger *slog.Logger, name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := assets.ReadFile(name)
		if err != nil {
			http.Error(w, "page not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if _, err := w.Write(data); err != nil {
			logger.Debug("page response write failed", "page", name, "error", err)
		}
	}
}
