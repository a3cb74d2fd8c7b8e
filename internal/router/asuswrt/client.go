package asuswrt

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/home-presence-core/internal/infrastructure/logging"
)

// userAgent is what the stock ASUS companion app sends. The firmware's
// login endpoint rejects unrecognised user agents.
const userAgent = "asusrouter-Android-DUTUtil-1.0.0.245"

// maxResponseSize caps router response bodies (1 MiB).
const maxResponseSize = 1 << 20

// Config contains router connection options.
type Config struct {
	// URL is the router's admin interface base URL (http://192.168.1.1).
	URL string

	// Username and Password are the admin credentials.
	Username string
	Password string

	// Timeout bounds each HTTP request to the router.
	Timeout time.Duration
}

// Client talks to an ASUS-WRT router's web interface.
//
// Authentication uses the same flow as the official mobile app: a login
// request exchanges credentials for a session token, which is then sent
// as a cookie. The token is cached and refreshed on rejection.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Client struct {
	baseURL    *url.URL
	username   string
	password   string
	httpClient *http.Client
	logger     *logging.Logger

	mu    sync.Mutex
	token string
}

// New creates a router client. It does not contact the router; the first
// request authenticates lazily.
//
// Parameters:
//   - cfg: Router connection options
//   - logger: Structured logger
//
// Returns:
//   - *Client: Configured client
//   - error: If the base URL is invalid
func New(cfg Config, logger *logging.Logger) (*Client, error) {
	base, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing router url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported router url scheme %q", ErrRequestFailed, base.Scheme)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL:    base,
		username:   cfg.Username,
		password:   cfg.Password,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With("component", "asuswrt"),
	}, nil
}

// ClientList fetches the router's connected-client list.
//
// The returned slice preserves the router's structure: AiMesh setups
// return one entry per node with clients nested under ConnectedDevices,
// standalone routers return a flat list. Callers flatten as needed.
//
// An expired session token is refreshed transparently (one retry).
func (c *Client) ClientList(ctx context.Context) ([]RawClient, error) {
	body, err := c.appGet(ctx, "get_clientlist()")
	if err != nil {
		return nil, err
	}

	clients, err := decodeClientList(body)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding client list: %s", ErrRequestFailed, err)
	}
	return clients, nil
}

// HealthCheck verifies the router is reachable and credentials work.
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.ClientList(ctx)
	return err
}

// appGet calls appGet.cgi with the given hook, re-authenticating once if
// the session token has expired.
func (c *Client) appGet(ctx context.Context, hook string) ([]byte, error) {
	body, err := c.doAppGet(ctx, hook)
	if err == nil && !isAuthRejection(body) {
		return body, nil
	}
	if err != nil && !errors.Is(err, errTokenExpired) {
		return nil, err
	}

	c.logger.Debug("session token rejected, re-authenticating")
	if err := c.login(ctx); err != nil {
		return nil, err
	}
	body, err = c.doAppGet(ctx, hook)
	if err != nil {
		return nil, err
	}
	if isAuthRejection(body) {
		return nil, ErrAuthFailed
	}
	return body, nil
}

// errTokenExpired signals an auth-shaped HTTP failure worth one retry.
var errTokenExpired = fmt.Errorf("%w: session token expired", ErrAuthFailed)

// doAppGet performs one appGet.cgi request with the cached token.
func (c *Client) doAppGet(ctx context.Context, hook string) ([]byte, error) {
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()

	if token == "" {
		return nil, errTokenExpired
	}

	endpoint := c.baseURL.JoinPath("appGet.cgi")
	q := endpoint.Query()
	q.Set("hook", hook)
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %s", ErrRequestFailed, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.AddCookie(&http.Cookie{Name: "asus_token", Value: token})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrRequestFailed, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, errTokenExpired
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrRequestFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %s", ErrRequestFailed, err)
	}
	return body, nil
}

// login exchanges credentials for a session token.
func (c *Client) login(ctx context.Context) error {
	auth := base64.StdEncoding.EncodeToString([]byte(c.username + ":" + c.password))
	form := url.Values{"login_authorization": {auth}}

	endpoint := c.baseURL.JoinPath("login.cgi")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		endpoint.String(), strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: building login request: %s", ErrRequestFailed, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrRequestFailed, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: login status %d", ErrAuthFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("%w: reading login response: %s", ErrRequestFailed, err)
	}

	var loginResp struct {
		Token string `json:"asus_token"`
	}
	if err := json.Unmarshal(body, &loginResp); err != nil || loginResp.Token == "" {
		return ErrAuthFailed
	}

	c.mu.Lock()
	c.token = loginResp.Token
	c.mu.Unlock()

	c.logger.Debug("authenticated with router")
	return nil
}

// isAuthRejection detects the firmware's in-band auth error, which comes
// back with HTTP 200 and an error_status field.
func isAuthRejection(body []byte) bool {
	var probe struct {
		ErrorStatus json.Number `json:"error_status"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return false
	}
	return probe.ErrorStatus != ""
}

// decodeClientList handles the two response shapes in the wild: a bare
// JSON array of clients (mesh nodes or flat), or an object wrapping a
// MAC-keyed map under get_clientlist.
func decodeClientList(body []byte) ([]RawClient, error) {
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "[") {
		var clients []RawClient
		if err := json.Unmarshal(body, &clients); err != nil {
			return nil, err
		}
		return clients, nil
	}

	var wrapper struct {
		ClientList map[string]json.RawMessage `json:"get_clientlist"`
	}
	if err := json.Unmarshal(body, &wrapper); err != nil {
		return nil, err
	}

	var clients []RawClient
	for key, raw := range wrapper.ClientList {
		// The map mixes clients (MAC keys) with metadata like maclist.
		if !looksLikeMAC(key) {
			continue
		}
		var client RawClient
		if err := json.Unmarshal(raw, &client); err != nil {
			continue
		}
		if client.MAC == "" {
			client.MAC = key
		}
		clients = append(clients, client)
	}
	return clients, nil
}

// looksLikeMAC reports whether a map key is a hardware address.
func looksLikeMAC(s string) bool {
	if len(s) != 17 {
		return false
	}
	for i, r := range s {
		if (i+1)%3 == 0 {
			if r != ':' && r != '-' {
				return false
			}
			continue
		}
		isHex := (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
		if !isHex {
			return false
		}
	}
	return true
}
