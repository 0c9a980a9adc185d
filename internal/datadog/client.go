package datadog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultSite is the Datadog site used when none is configured.
	DefaultSite = "datadoghq.com"

	// DefaultTimeout bounds a single HTTP request.
	DefaultTimeout = 30 * time.Second

	// DefaultUserAgent identifies the operator to Datadog.
	DefaultUserAgent = "dogkop"

	monitorPath       = "/api/v1/monitor"
	monitorSearchPath = "/api/v1/monitor/search"

	// maxResponseBytes caps how much of a response body is read.
	maxResponseBytes = 8 << 20
)

// ClientConfig configures a Client. It is built once at process start.
type ClientConfig struct {
	// BaseURL overrides the URL derived from Site, e.g. for tests or proxies.
	BaseURL string

	// Site is the Datadog site, e.g. "datadoghq.eu".
	Site string

	Credentials Credentials

	Timeout time.Duration

	// RateLimit is the maximum number of requests per second. Zero disables limiting.
	RateLimit float64
	RateBurst int

	UserAgent  string
	HTTPClient *http.Client
}

// Client talks to the Datadog monitor API.
type Client struct {
	baseURL     *url.URL
	credentials Credentials
	httpClient  *http.Client
	limiter     *rate.Limiter
	userAgent   string
}

// NewClient validates cfg and returns a ready client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.Credentials == nil {
		return nil, errors.New("datadog client requires credentials")
	}

	base := cfg.BaseURL
	if base == "" {
		site := cfg.Site
		if site == "" {
			site = DefaultSite
		}
		base = "https://api." + strings.TrimPrefix(site, "api.")
	}
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid datadog base URL %q: %w", base, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid datadog base URL %q: scheme must be http or https", base)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	return &Client{
		baseURL:     u,
		credentials: cfg.Credentials,
		httpClient:  httpClient,
		limiter:     limiter,
		userAgent:   userAgent,
	}, nil
}

// CreateMonitor creates a monitor from config.
func (c *Client) CreateMonitor(ctx context.Context, config map[string]interface{}) (Monitor, error) {
	body, err := c.do(ctx, http.MethodPost, monitorPath, nil, config)
	if err != nil {
		return Monitor{}, err
	}
	return decodeMonitor(body)
}

// UpdateMonitor replaces the definition of monitor id with config.
func (c *Client) UpdateMonitor(ctx context.Context, id int64, config map[string]interface{}) (Monitor, error) {
	body, err := c.do(ctx, http.MethodPut, monitorIDPath(id), nil, config)
	if err != nil {
		return Monitor{}, err
	}
	return decodeMonitor(body)
}

// GetMonitor fetches monitor id.
func (c *Client) GetMonitor(ctx context.Context, id int64) (Monitor, error) {
	body, err := c.do(ctx, http.MethodGet, monitorIDPath(id), nil, nil)
	if err != nil {
		return Monitor{}, err
	}
	return decodeMonitor(body)
}

// DeleteMonitor deletes monitor id.
func (c *Client) DeleteMonitor(ctx context.Context, id int64) error {
	_, err := c.do(ctx, http.MethodDelete, monitorIDPath(id), nil, nil)
	return err
}

// SearchMonitors runs a monitor search and returns the matches in the order Datadog
// returned them.
func (c *Client) SearchMonitors(ctx context.Context, query string) ([]Monitor, error) {
	body, err := c.do(ctx, http.MethodGet, monitorSearchPath, url.Values{"query": {query}}, nil)
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode monitor search response: %w", err)
	}

	monitors := make([]Monitor, 0, len(resp.Monitors))
	for _, raw := range resp.Monitors {
		m, err := decodeMonitor(raw)
		if err != nil {
			return nil, err
		}
		monitors = append(monitors, m)
	}
	return monitors, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload interface{}) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s %s: rate limiter: %w", method, path, err)
	}

	u := *c.baseURL
	u.Path = u.Path + path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%s %s: failed to encode request: %w", method, path, err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}

	apiKey, appKey := c.credentials.Keys()
	req.Header.Set("DD-API-KEY", apiKey)
	req.Header.Set("DD-APPLICATION-KEY", appKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%s %s: failed to read response: %w", method, path, err)
	}

	if err := translateResponse(resp.StatusCode, body); err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return body, nil
}

func monitorIDPath(id int64) string {
	return monitorPath + "/" + strconv.FormatInt(id, 10)
}
