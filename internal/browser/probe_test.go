package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// fakeCDP serves /json/version and answers Browser.getVersion over a WebSocket.
func fakeCDP(t *testing.T, product string) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/json/version", func(w http.ResponseWriter, r *http.Request) {
		wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/devtools/browser/test"
		_ = json.NewEncoder(w).Encode(map[string]string{"webSocketDebuggerUrl": wsURL})
	})
	mux.HandleFunc("/devtools/browser/test", func(w http.ResponseWriter, r *http.Request) {
		conn, _, _, err := ws.UpgradeHTTP(r, w)
		if err != nil {
			return
		}
		defer conn.Close()
		data, err := wsutil.ReadClientText(conn)
		if err != nil {
			return
		}
		var req struct {
			ID     int64  `json:"id"`
			Method string `json:"method"`
		}
		if json.Unmarshal(data, &req) != nil || req.Method != "Browser.getVersion" {
			return
		}
		// An unrelated event arrives before the response.
		_ = wsutil.WriteServerText(conn, []byte(`{"method":"Target.targetCreated","params":{}}`))
		resp := fmt.Sprintf(`{"id":%d,"result":{"product":%q,"protocolVersion":"1.3"}}`, req.ID, product)
		_ = wsutil.WriteServerText(conn, []byte(resp))
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestProbe(t *testing.T) {
	srv := fakeCDP(t, "HeadlessChrome/126.0.0.0")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	v, err := Probe(ctx, srv.URL+"/")
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	if got, want := v.Product, "HeadlessChrome/126.0.0.0"; got != want {
		t.Fatalf("Product = %q, want %q", got, want)
	}
	if got, want := v.ProtocolVersion, "1.3"; got != want {
		t.Fatalf("ProtocolVersion = %q, want %q", got, want)
	}
}

func TestProbeRejectsNonCDPEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := Probe(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("Probe() error = nil, want error")
	}
	if !strings.Contains(err.Error(), "status 404") {
		t.Fatalf("Probe() error = %v, want status 404", err)
	}
}
