// Package kalshi is an authenticated client for the Kalshi trade API.
// It signs every request with RSA-PSS, coordinates request rate through
// a pluggable limiter, retries transient failures with exponential
// backoff, and maps error responses onto a typed taxonomy.
package kalshi

import (
	"bytes"
	"context"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
	json "github.com/goccy/go-json"

	"github.com/praetor-labs/kalshi-go/auth"
	"github.com/praetor-labs/kalshi-go/ratelimit"
)

// API environments. The demo environment uses play money.
const (
	ProductionBaseURL = "https://api.elections.kalshi.com" + auth.APIPrefix
	DemoBaseURL       = "https://demo-api.elections.kalshi.com" + auth.APIPrefix
)

// Environment variables consulted when credentials are not passed
// explicitly.
const (
	EnvAPIKeyID       = "KALSHI_API_KEY_ID"
	EnvPrivateKeyPath = "KALSHI_PRIVATE_KEY_PATH"
)

const (
	defaultTimeout    = 10 * time.Second
	defaultMaxRetries = 3
	retryBaseDelay    = 500 * time.Millisecond
	retryMaxDelay     = 30 * time.Second
)

// Client is the authenticated API client. A Client is safe for use from
// multiple goroutines; the signer is immutable and the rate limiter
// serializes its own state.
type Client struct {
	baseURL    string
	httpc      *http.Client
	signer     *auth.Signer
	limiter    ratelimit.Limiter
	maxRetries int
	retryBase  time.Duration

	// Domain accessors.
	Portfolio      *PortfolioService
	Communications *CommunicationsService
	Exchange       *ExchangeService

	keyID   string
	keyPath string
	demo    bool
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL (takes precedence over WithDemo).
func WithBaseURL(u string) Option { return func(c *Client) { c.baseURL = u } }

// WithDemo targets the demo environment.
func WithDemo() Option { return func(c *Client) { c.demo = true } }

// WithCredentials sets the API key ID and private key path explicitly
// instead of reading them from the environment.
func WithCredentials(keyID, privateKeyPath string) Option {
	return func(c *Client) {
		c.keyID = keyID
		c.keyPath = privateKeyPath
	}
}

// WithSigner injects an already-constructed signer.
func WithSigner(s *auth.Signer) Option { return func(c *Client) { c.signer = s } }

// WithTimeout bounds each HTTP attempt.
func WithTimeout(d time.Duration) Option { return func(c *Client) { c.httpc.Timeout = d } }

// WithMaxRetries sets the number of additional attempts after the first.
func WithMaxRetries(n int) Option { return func(c *Client) { c.maxRetries = n } }

// WithRateLimiter injects a shared rate limiter instance.
func WithRateLimiter(l ratelimit.Limiter) Option { return func(c *Client) { c.limiter = l } }

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.httpc = h } }

// New constructs a Client. Credentials come from WithCredentials /
// WithSigner or, failing that, the KALSHI_API_KEY_ID and
// KALSHI_PRIVATE_KEY_PATH environment variables. Missing or invalid key
// material is a *ConfigError here, before any request is made.
func New(opts ...Option) (*Client, error) {
	c := &Client{
		httpc:      &http.Client{Timeout: defaultTimeout},
		limiter:    ratelimit.NoOp{},
		maxRetries: defaultMaxRetries,
		retryBase:  retryBaseDelay,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.baseURL == "" {
		if c.demo {
			c.baseURL = DemoBaseURL
		} else {
			c.baseURL = ProductionBaseURL
		}
	}

	if c.signer == nil {
		keyID := c.keyID
		if keyID == "" {
			keyID = os.Getenv(EnvAPIKeyID)
		}
		keyPath := c.keyPath
		if keyPath == "" {
			keyPath = os.Getenv(EnvPrivateKeyPath)
		}
		if keyID == "" {
			return nil, &ConfigError{Reason: "API key ID required: set " + EnvAPIKeyID + " or use WithCredentials"}
		}
		if keyPath == "" {
			return nil, &ConfigError{Reason: "private key path required: set " + EnvPrivateKeyPath + " or use WithCredentials"}
		}
		signer, err := auth.LoadSigner(keyID, keyPath)
		if err != nil {
			return nil, &ConfigError{Reason: "load private key", Err: err}
		}
		c.signer = signer
	}

	c.Portfolio = &PortfolioService{client: c}
	c.Communications = &CommunicationsService{client: c}
	c.Exchange = &ExchangeService{client: c}
	return c, nil
}

// Signer exposes the request signer (the feed reuses it for the
// WebSocket handshake).
func (c *Client) Signer() *auth.Signer { return c.signer }

// retryable reports whether a status code is worth another attempt.
func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// do runs the full request pipeline: rate-limiter acquire, signing,
// dispatch, limiter update, retry with backoff, and error mapping.
// Retries are invisible to callers; they see one final result.
func (c *Client) do(ctx context.Context, method, endpoint string, body []byte) ([]byte, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.retryBase
	bo.MaxInterval = retryMaxDelay

	for attempt := 0; ; attempt++ {
		if _, err := c.limiter.Acquire(ctx); err != nil {
			return nil, err
		}

		headers, err := c.signer.Headers(method, endpoint)
		if err != nil {
			return nil, err
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
		if err != nil {
			return nil, err
		}
		req.Header = headers

		resp, err := c.httpc.Do(req)
		if err != nil {
			// Transport failure (connection error or timeout). Propagate
			// as-is once attempts run out so callers can tell network
			// problems from API errors.
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if attempt == c.maxRetries {
				return nil, err
			}
			delay := bo.NextBackOff()
			log.Printf("kalshi: %s %s failed (%v), retry %d/%d in %s",
				method, endpoint, err, attempt+1, c.maxRetries, delay)
			if err := sleep(ctx, delay); err != nil {
				return nil, err
			}
			continue
		}

		data, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		c.limiter.Update(resp.Header)
		if readErr != nil {
			if attempt == c.maxRetries {
				return nil, readErr
			}
			if err := sleep(ctx, bo.NextBackOff()); err != nil {
				return nil, err
			}
			continue
		}

		status := resp.StatusCode
		if status < 400 {
			return data, nil
		}

		if retryable(status) {
			if attempt < c.maxRetries {
				delay := retryAfter(resp.Header)
				if delay <= 0 {
					delay = bo.NextBackOff()
				}
				log.Printf("kalshi: %s %s returned %d, retry %d/%d in %s",
					method, endpoint, status, attempt+1, c.maxRetries, delay)
				if err := sleep(ctx, delay); err != nil {
					return nil, err
				}
				continue
			}
			if status == http.StatusTooManyRequests {
				return nil, &RateLimitError{
					APIError: APIError{StatusCode: status, Message: "rate limit exceeded after retries"},
					Method:   method,
					Endpoint: endpoint,
				}
			}
			// Retries exhausted on 5xx: hand the response to normal
			// error mapping rather than swallowing it.
		}

		return nil, errorFromBody(status, data)
	}
}

// errorFromBody maps an error response onto the typed taxonomy, falling
// back to the raw body text when it is not JSON.
func errorFromBody(status int, body []byte) error {
	var payload struct {
		Message      string `json:"message"`
		ErrorMessage string `json:"error_message"`
		Code         string `json:"code"`
		ErrorCode    string `json:"error_code"`
	}
	message := ""
	code := ""
	if err := json.Unmarshal(body, &payload); err == nil {
		message = payload.Message
		if message == "" {
			message = payload.ErrorMessage
		}
		code = payload.Code
		if code == "" {
			code = payload.ErrorCode
		}
	}
	if message == "" {
		message = string(body)
	}
	return mapAPIError(status, message, code)
}

// retryAfter parses a Retry-After header given as delta seconds.
func retryAfter(h http.Header) time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Get performs an authenticated GET and decodes the JSON body into out
// (pass nil to discard).
func (c *Client) Get(ctx context.Context, endpoint string, out any) error {
	data, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	return decode(data, out)
}

// Post performs an authenticated POST with a compact JSON body.
func (c *Client) Post(ctx context.Context, endpoint string, body, out any) error {
	data, err := c.doJSON(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return err
	}
	return decode(data, out)
}

// Put performs an authenticated PUT with a compact JSON body.
func (c *Client) Put(ctx context.Context, endpoint string, body, out any) error {
	data, err := c.doJSON(ctx, http.MethodPut, endpoint, body)
	if err != nil {
		return err
	}
	return decode(data, out)
}

// Delete performs an authenticated DELETE. body may be nil.
func (c *Client) Delete(ctx context.Context, endpoint string, body, out any) error {
	data, err := c.doJSON(ctx, http.MethodDelete, endpoint, body)
	if err != nil {
		return err
	}
	return decode(data, out)
}

func (c *Client) doJSON(ctx context.Context, method, endpoint string, body any) ([]byte, error) {
	var encoded []byte
	if body != nil {
		var err error
		encoded, err = json.Marshal(body)
		if err != nil {
			return nil, err
		}
	}
	return c.do(ctx, method, endpoint, encoded)
}

func decode(data []byte, out any) error {
	if out == nil || len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}

// buildEndpoint appends the non-empty params to path as a query string.
func buildEndpoint(path string, params url.Values) string {
	filtered := url.Values{}
	for k, vs := range params {
		for _, v := range vs {
			if v != "" {
				filtered.Add(k, v)
			}
		}
	}
	if len(filtered) == 0 {
		return path
	}
	return path + "?" + filtered.Encode()
}
