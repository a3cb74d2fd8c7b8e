package asuswrt

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nerrad567/home-presence-core/internal/infrastructure/logging"
)

// newRouterStub spins up a fake router serving login.cgi and appGet.cgi.
func newRouterStub(t *testing.T, clientListBody string) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/login.cgi", func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("login_authorization") == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"asus_token": "stub-token"}) //nolint:errcheck
	})
	mux.HandleFunc("/appGet.cgi", func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("asus_token")
		if err != nil || cookie.Value != "stub-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(clientListBody)) //nolint:errcheck
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()

	c, err := New(Config{
		URL:      srv.URL,
		Username: "admin",
		Password: "secret",
		Timeout:  2 * time.Second,
	}, logging.Default())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestClientList_ArrayShapeWithMeshNodes(t *testing.T) {
	body := `[
		{"mac": "ro:ut:er:00:00:01", "connectedDevices": [
			{"mac": "AA:BB:CC:DD:EE:FF", "online": "1", "connectionMethod": "5GHz", "ip": "192.168.1.20", "rssi": "-52"}
		]},
		{"mac": "ro:ut:er:00:00:02", "connectedDevices": []}
	]`
	srv := newRouterStub(t, body)
	c := newTestClient(t, srv)

	clients, err := c.ClientList(context.Background())
	if err != nil {
		t.Fatalf("ClientList() error = %v", err)
	}

	if len(clients) != 2 {
		t.Fatalf("got %d nodes, want 2", len(clients))
	}
	nested := clients[0].ConnectedDevices
	if len(nested) != 1 {
		t.Fatalf("got %d nested clients, want 1", len(nested))
	}
	got := nested[0]
	if got.MAC != "AA:BB:CC:DD:EE:FF" {
		t.Errorf("MAC = %q", got.MAC)
	}
	if !got.Online.Set || !got.Online.Value {
		t.Errorf("Online = %+v, want set true", got.Online)
	}
	if got.ConnectionMethod != "5GHz" {
		t.Errorf("ConnectionMethod = %q, want 5GHz", got.ConnectionMethod)
	}
	if !got.RSSI.Set || got.RSSI.Value != -52 {
		t.Errorf("RSSI = %+v, want -52", got.RSSI)
	}
}

func TestClientList_WrappedMapShape(t *testing.T) {
	body := `{"get_clientlist": {
		"maclist": ["AA:BB:CC:DD:EE:FF"],
		"AA:BB:CC:DD:EE:FF": {"isOnline": 1, "ipAddress": "192.168.1.30", "name": "printer"}
	}}`
	srv := newRouterStub(t, body)
	c := newTestClient(t, srv)

	clients, err := c.ClientList(context.Background())
	if err != nil {
		t.Fatalf("ClientList() error = %v", err)
	}

	if len(clients) != 1 {
		t.Fatalf("got %d clients, want 1", len(clients))
	}
	got := clients[0]
	if got.MAC != "AA:BB:CC:DD:EE:FF" {
		t.Errorf("MAC = %q (should fall back to map key)", got.MAC)
	}
	if !got.IsOnline.Set || !got.IsOnline.Value {
		t.Errorf("IsOnline = %+v, want set true", got.IsOnline)
	}
	if got.IPAddress != "192.168.1.30" {
		t.Errorf("IPAddress = %q", got.IPAddress)
	}
}

func TestClientList_ReauthenticatesOnExpiredToken(t *testing.T) {
	srv := newRouterStub(t, `[]`)
	c := newTestClient(t, srv)

	// Poison the cached token; the stub rejects it with 401 and the
	// client must transparently log in again.
	c.mu.Lock()
	c.token = "stale"
	c.mu.Unlock()

	if _, err := c.ClientList(context.Background()); err != nil {
		t.Fatalf("ClientList() error = %v", err)
	}
}

func TestClientList_AuthFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/login.cgi", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"error_status": "3"}`)) //nolint:errcheck
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c := newTestClient(t, srv)
	if _, err := c.ClientList(context.Background()); !errors.Is(err, ErrAuthFailed) {
		t.Errorf("ClientList() error = %v, want ErrAuthFailed", err)
	}
}

func TestNew_RejectsBadScheme(t *testing.T) {
	if _, err := New(Config{URL: "ftp://router"}, logging.Default()); err == nil {
		t.Error("New() with ftp scheme succeeded, want error")
	}
}

func TestFlagUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantSet bool
		want    bool
	}{
		{"bool true", `true`, true, true},
		{"bool false", `false`, true, false},
		{"number one", `1`, true, true},
		{"number zero", `0`, true, false},
		{"string one", `"1"`, true, true},
		{"string zero", `"0"`, true, false},
		{"string true", `"true"`, true, true},
		{"null", `null`, false, false},
		{"object", `{}`, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f Flag
			if err := json.Unmarshal([]byte(tt.input), &f); err != nil {
				t.Fatalf("Unmarshal(%s) error = %v", tt.input, err)
			}
			if f.Set != tt.wantSet || f.Value != tt.want {
				t.Errorf("Flag = %+v, want {Set:%v Value:%v}", f, tt.wantSet, tt.want)
			}
		})
	}
}

func TestOptionalIntUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantSet bool
		want    int
	}{
		{"number", `-52`, true, -52},
		{"string", `"-52"`, true, -52},
		{"null", `null`, false, 0},
		{"garbage string", `"n/a"`, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var o OptionalInt
			if err := json.Unmarshal([]byte(tt.input), &o); err != nil {
				t.Fatalf("Unmarshal(%s) error = %v", tt.input, err)
			}
			if o.Set != tt.wantSet || o.Value != tt.want {
				t.Errorf("OptionalInt = %+v, want {Set:%v Value:%v}", o, tt.wantSet, tt.want)
			}
		})
	}
}
