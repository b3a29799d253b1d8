package cdpcontrol

import (
	"context"
	"log/slog"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// defaultPollInterval is how often auto-waiting probes re-check the page.
const defaultPollInterval = 100 * time.Millisecond

// Browser is a connection to a running Chromium-family browser over CDP.
type Browser struct {
	cdpURL string

	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// Connect attaches to the browser behind cdpURL (the HTTP endpoint serving
// /json/version).
func Connect(ctx context.Context, cdpURL string) (*Browser, error) {
	if cdpURL == "" {
		return nil, newError(CodeCDPUnavailable, "missing CDP URL", nil)
	}
	slog.Info("cdpcontrol connect start", "cdp_url", cdpURL)

	allocCtx, allocCancel := chromedp.NewRemoteAllocator(context.Background(), cdpURL)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	connected := make(chan error, 1)
	go func() { connected <- chromedp.Run(browserCtx) }()
	select {
	case err := <-connected:
		if err != nil {
			browserCancel()
			allocCancel()
			return nil, newError(CodeCDPUnavailable, "connect to CDP failed", err)
		}
	case <-ctx.Done():
		browserCancel()
		allocCancel()
		return nil, newError(CodeCDPUnavailable, "connect to CDP interrupted", ctx.Err())
	}

	slog.Info("cdpcontrol connect ok", "cdp_url", cdpURL)
	return &Browser{
		cdpURL:        cdpURL,
		allocCtx:      allocCtx,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}, nil
}

// NewSession opens a page in a fresh browser context, isolated from every
// other session's cookies, storage and cache. Events on the page are logged
// through logger.
func (b *Browser) NewSession(ctx context.Context, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}
	tabCtx, tabCancel := chromedp.NewContext(b.browserCtx, chromedp.WithNewBrowserContext())
	s := &Session{
		ctx:          tabCtx,
		cancel:       tabCancel,
		logger:       logger,
		pollInterval: defaultPollInterval,
	}

	opened := make(chan error, 1)
	go func() { opened <- chromedp.Run(tabCtx, network.Enable(), page.Enable()) }()
	select {
	case err := <-opened:
		if err != nil {
			tabCancel()
			return nil, newError(CodeCDPUnavailable, "open page failed", err)
		}
	case <-ctx.Done():
		tabCancel()
		return nil, newError(CodeCDPUnavailable, "open page interrupted", ctx.Err())
	}

	chromedp.ListenTarget(tabCtx, s.onEvent)
	logger.Debug("cdpcontrol session opened")
	return s, nil
}

// Close disconnects from the browser. The browser process itself is left
// to whoever started it.
func (b *Browser) Close() error {
	b.browserCancel()
	b.allocCancel()
	slog.Info("cdpcontrol disconnected", "cdp_url", b.cdpURL)
	return nil
}
