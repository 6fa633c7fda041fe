package shopapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"storefront/internal/apperror"
)

// DefaultBaseURL is the public demo API.
const DefaultBaseURL = "https://dummyjson.com"

// TokenSource supplies the bearer token for authenticated requests.
type TokenSource interface {
	AccessToken(ctx context.Context) string
}

// Config tunes the client. Zero values get defaults.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	// BreakerThreshold is the number of consecutive failures that opens the breaker.
	BreakerThreshold uint32
	BreakerCooldown  time.Duration
}

// Client talks to the remote product/cart/user API.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	tokens  TokenSource
	breaker *gobreaker.CircuitBreaker[[]byte]
	logger  *log.Logger
}

// New builds a Client. tokens may be nil when no request needs auth.
func New(cfg Config, tokens TokenSource, logger *log.Logger) (*Client, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid api base url %q", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.BreakerThreshold == 0 {
		cfg.BreakerThreshold = 5
	}
	if cfg.BreakerCooldown <= 0 {
		cfg.BreakerCooldown = 30 * time.Second
	}

	httpClient := &http.Client{Timeout: cfg.Timeout}
	if cfg.HTTPClient != nil {
		cp := *cfg.HTTPClient
		httpClient = &cp
	}
	transport := httpClient.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	httpClient.Transport = otelhttp.NewTransport(transport)

	threshold := cfg.BreakerThreshold
	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "shopapi",
		MaxRequests: 1,
		Timeout:     cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: countsAsSuccess,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Printf("shopapi: breaker %s %s -> %s", name, from, to)
		},
	})

	return &Client{
		baseURL: base,
		http:    httpClient,
		tokens:  tokens,
		breaker: breaker,
		logger:  logger,
	}, nil
}

// countsAsSuccess keeps client errors and caller cancellation from tripping the breaker.
func countsAsSuccess(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status < 500
	}
	return false
}

type request struct {
	method string
	path   string
	query  url.Values
	body   any
	auth   bool
}

// do sends req and decodes a 2xx JSON body into out (which may be nil).
func (c *Client) do(ctx context.Context, req request, out any) error {
	raw, err := c.breaker.Execute(func() ([]byte, error) {
		return c.roundTrip(ctx, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %s %s: %w", apperror.ErrNetwork, req.method, req.path, err)
	}
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		c.logger.Printf("shopapi: decode failed method=%s path=%s error=%v", req.method, req.path, err)
		return &APIError{Status: http.StatusOK, StatusText: http.StatusText(http.StatusOK), Message: "Failed to parse response as JSON"}
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, req request) ([]byte, error) {
	u := c.baseURL.JoinPath(req.path)
	if len(req.query) > 0 {
		u.RawQuery = req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		payload, err := json.Marshal(req.body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, u.String(), body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if req.auth && c.tokens != nil {
		if token := c.tokens.AccessToken(ctx); token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, transportError(req, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(req, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusText := strings.TrimSpace(strings.TrimPrefix(resp.Status, fmt.Sprint(resp.StatusCode)))
		var eb errorBody
		_ = json.Unmarshal(raw, &eb)
		c.logger.Printf("shopapi: request failed method=%s path=%s status=%d", req.method, req.path, resp.StatusCode)
		return nil, &APIError{
			Status:     resp.StatusCode,
			StatusText: statusText,
			Message:    messageFor(resp.StatusCode, statusText, eb),
			Errors:     eb.Errors,
		}
	}

	if len(bytes.TrimSpace(raw)) > 0 && !json.Valid(raw) {
		return nil, &APIError{Status: resp.StatusCode, StatusText: http.StatusText(resp.StatusCode), Message: "Failed to parse response as JSON"}
	}
	return raw, nil
}

// transportError leaves timeouts and cancellation untouched and marks every
// other transport failure as a network error.
func transportError(req request, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return err
	}
	return fmt.Errorf("%w: %s %s: %w", apperror.ErrNetwork, req.method, req.path, err)
}
