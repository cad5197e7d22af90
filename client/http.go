package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/miosa/modq/metrics"
)

type Client struct {
	BaseURL    string
	Token      string
	CSRFToken  string
	HTTPClient *http.Client

	cache   *responseCache
	flight  singleflight.Group
	limiter *rate.Limiter
	log     *zap.Logger
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	httpClient *http.Client
	ttl        time.Duration
	limit      rate.Limit
	burst      int
	log        *zap.Logger
	csrf       string
}

func WithHTTPClient(hc *http.Client) Option {
	return func(o *clientOptions) { o.httpClient = hc }
}

// WithCacheTTL sets how long GET responses are reused. Zero disables the cache.
func WithCacheTTL(ttl time.Duration) Option {
	return func(o *clientOptions) { o.ttl = ttl }
}

// WithRateLimit throttles outgoing requests. rps <= 0 means unlimited.
func WithRateLimit(rps float64, burst int) Option {
	return func(o *clientOptions) {
		if rps <= 0 {
			o.limit = rate.Inf
		} else {
			o.limit = rate.Limit(rps)
		}
		o.burst = burst
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(o *clientOptions) { o.log = log }
}

func WithCSRFToken(token string) Option {
	return func(o *clientOptions) { o.csrf = token }
}

func New(baseURL string, opts ...Option) *Client {
	o := clientOptions{
		ttl:   DefaultCacheTTL,
		limit: rate.Inf,
		burst: 1,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if o.log == nil {
		o.log = zap.NewNop()
	}
	if o.burst < 1 {
		o.burst = 1
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		CSRFToken:  o.csrf,
		HTTPClient: o.httpClient,
		cache:      newResponseCache(o.ttl),
		limiter:    rate.NewLimiter(o.limit, o.burst),
		log:        o.log,
	}
}

func (c *Client) SetToken(token string) {
	c.Token = token
}

// ClearCache drops every cached response.
func (c *Client) ClearCache() {
	c.cache.clear()
}

// ClearCacheKey drops cached responses whose key starts with prefix. An
// endpoint path clears every parameter combination of that endpoint.
func (c *Client) ClearCacheKey(prefix string) {
	if n := c.cache.clearPrefix(prefix); n > 0 {
		c.log.Debug("cache cleared", zap.String("prefix", prefix), zap.Int("entries", n))
	}
}

// APIError is a non-2xx board response.
type APIError struct {
	Status  int
	Message string
	Code    string
	Details string
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("API %d: %s: %s", e.Status, e.Message, e.Details)
	}
	return fmt.Sprintf("API %d: %s", e.Status, e.Message)
}

// IsNotFound reports whether err is a 404 from the board.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// IsUnauthorized reports whether the board refused the session. The board
// answers 403 for missing mod permissions and 401 for a bad session.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden
}

func cacheKey(path string, params url.Values) string {
	p, _ := json.Marshal(params)
	return path + "_" + string(p)
}

// getJSON decodes a GET response into out, going through the response cache
// unless the query asks for a random sort. A Fresh ctx skips cached bodies.
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	key := cacheKey(path, params)
	cacheable := params.Get("sort") != "random"
	fresh := isFresh(ctx)
	if cacheable && !fresh {
		if body, ok := c.cache.get(key); ok {
			metrics.CacheLookup(true)
			return decodeBody(body, out)
		}
		metrics.CacheLookup(false)
	}

	// requests issued after a clear never share a flight with older ones
	gen := c.cache.generation()
	flightKey := fmt.Sprintf("%s#%d", key, gen)
	if fresh {
		flightKey += "#fresh"
	}
	v, err, _ := c.flight.Do(flightKey, func() (any, error) {
		resp, err := c.get(ctx, path, params)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, c.parseError(resp)
		}
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		if cacheable {
			c.cache.set(key, body, gen)
		}
		return body, nil
	})
	if err != nil {
		return err
	}
	return decodeBody(v.([]byte), out)
}

func decodeBody(body []byte, out any) error {
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

// send runs a mutating request and decodes an optional JSON result.
func (c *Client) send(ctx context.Context, method, path string, params url.Values, body, out any) error {
	resp, err := c.do(ctx, method, path, params, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.parseError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	return decodeBody(data, out)
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	return c.send(ctx, http.MethodPost, path, nil, body, out)
}

func (c *Client) putJSON(ctx context.Context, path string, body, out any) error {
	return c.send(ctx, http.MethodPut, path, nil, body, out)
}

func (c *Client) deleteJSON(ctx context.Context, path string, params url.Values) error {
	return c.send(ctx, http.MethodDelete, path, params, nil, nil)
}

func (c *Client) get(ctx context.Context, path string, params url.Values) (*http.Response, error) {
	return c.do(ctx, http.MethodGet, path, params, nil)
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, body any) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	target := c.BaseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.setHeaders(req)

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.log.Debug("request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err))
		return nil, err
	}
	metrics.APIRequest(method, path, resp.StatusCode, elapsed)
	c.log.Debug("request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", elapsed))
	return resp, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.CSRFToken != "" {
		req.Header.Set("x-csrf-token", c.CSRFToken)
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
}

func (c *Client) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	apiErr := &APIError{Status: resp.StatusCode}
	var er ErrorResponse
	if json.Unmarshal(body, &er) == nil && er.Error != "" {
		apiErr.Message, apiErr.Code, apiErr.Details = er.Error, er.Code, er.Details
		return apiErr
	}
	apiErr.Message = strings.TrimSpace(string(body))
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
