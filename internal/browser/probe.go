package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// Version identifies the browser behind a CDP endpoint.
type Version struct {
	Product         string `json:"product"`
	ProtocolVersion string `json:"protocolVersion"`
	Revision        string `json:"revision"`
	UserAgent       string `json:"userAgent"`
	JSVersion       string `json:"jsVersion"`
}

// browserWSURL fetches the browser-level WebSocket endpoint from /json/version.
func browserWSURL(ctx context.Context, httpBase string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(httpBase, "/")+"/json/version", nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("/json/version status %d", resp.StatusCode)
	}

	var info struct {
		WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", fmt.Errorf("decode /json/version: %w", err)
	}
	if info.WebSocketDebuggerURL == "" {
		return "", fmt.Errorf("/json/version has no webSocketDebuggerUrl")
	}
	return info.WebSocketDebuggerURL, nil
}

// Probe asks the browser behind httpBase for its version over a raw CDP
// WebSocket. It verifies the endpoint speaks CDP before any page is opened.
func Probe(ctx context.Context, httpBase string) (Version, error) {
	wsURL, err := browserWSURL(ctx, httpBase)
	if err != nil {
		return Version{}, fmt.Errorf("probe: browser ws url: %w", err)
	}

	slog.Debug("probe connecting", "ws_url", wsURL)
	conn, _, _, err := ws.Dial(ctx, wsURL)
	if err != nil {
		return Version{}, fmt.Errorf("probe: dial: %w", err)
	}
	defer conn.Close()
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}

	const id = 1
	req, _ := json.Marshal(struct {
		ID     int64  `json:"id"`
		Method string `json:"method"`
	}{ID: id, Method: "Browser.getVersion"})
	if err := wsutil.WriteClientText(conn, req); err != nil {
		return Version{}, fmt.Errorf("probe: send: %w", err)
	}

	for {
		data, err := wsutil.ReadServerText(conn)
		if err != nil {
			return Version{}, fmt.Errorf("probe: read: %w", err)
		}
		var msg struct {
			ID     int64   `json:"id"`
			Result Version `json:"result"`
			Error  *struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(data, &msg) != nil || msg.ID != id {
			continue
		}
		if msg.Error != nil {
			return Version{}, fmt.Errorf("probe: Browser.getVersion: %s", msg.Error.Message)
		}
		return msg.Result, nil
	}
}
