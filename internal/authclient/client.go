// Package authclient calls the authentication service's verify endpoint.
// The listings gateway depends only on the Verifier interface, so the
// transport can be swapped (HTTP here, in-process in tests).
package authclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/iliyamo/listing-platform/internal/apperror"
	"github.com/iliyamo/listing-platform/internal/logging"
	"github.com/iliyamo/listing-platform/internal/model"
)

// Verifier translates a token into a verdict. A nil error with
// Valid=false means the token was checked and rejected; errors mean the
// check itself failed.
type Verifier interface {
	Verify(ctx context.Context, token string) (model.VerifyResult, error)
}

// VerifierFunc adapts a function to Verifier.
type VerifierFunc func(ctx context.Context, token string) (model.VerifyResult, error)

func (f VerifierFunc) Verify(ctx context.Context, token string) (model.VerifyResult, error) {
	return f(ctx, token)
}

const (
	msgUnavailable     = "Authentication service unavailable"
	msgServiceError    = "Authentication service error"
	msgInvalidResponse = "Authentication service returned an invalid response"
	maxBodyBytes       = 1 << 20
)

// Client is the HTTP Verifier.
type Client struct {
	baseURL string
	timeout time.Duration
	retries int
	backoff time.Duration
	http    *http.Client
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithRetries retries transport failures and 502/503/504 answers up to n
// extra times, sleeping backoff, 2*backoff, ... between attempts.
func WithRetries(n int, backoff time.Duration) Option {
	return func(c *Client) {
		if n > 0 {
			c.retries = n
		}
		if backoff > 0 {
			c.backoff = backoff
		}
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New returns a client for the auth service mounted at baseURL (for
// example http://localhost:8001/api/auth). timeout bounds each attempt.
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		backoff: 200 * time.Millisecond,
		http:    &http.Client{},
	}
	for _, o := range opts {
		o(c)
	}
	c.logger = logging.Resolve(c.logger)
	return c
}

// BaseURL returns the configured service URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Verify posts the token to {base}/verify/ using the Token scheme.
func (c *Client) Verify(ctx context.Context, token string) (model.VerifyResult, error) {
	wait := c.backoff
	for attempt := 0; ; attempt++ {
		res, retryable, err := c.verifyOnce(ctx, token)
		if err == nil || !retryable || attempt >= c.retries || ctx.Err() != nil {
			return res, err
		}
		c.logger.Warn("verify attempt failed, retrying",
			"event", "auth_verify_retry",
			"module", "listings/authclient",
			"layer", "adapter",
			"attempt", attempt+1,
			"retry_in", wait.String(),
			"error", err.Error(),
		)
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return res, err
		case <-t.C:
		}
		wait *= 2
	}
}

func (c *Client) verifyOnce(ctx context.Context, token string) (model.VerifyResult, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/verify/", nil)
	if err != nil {
		return model.VerifyResult{}, false, apperror.Internal(fmt.Errorf("build verify request: %w", err))
	}
	req.Header.Set("Authorization", "Token "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return model.VerifyResult{}, true, apperror.Unavailable(msgUnavailable+": "+describe(err), err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return model.VerifyResult{}, true, apperror.Unavailable(msgUnavailable+": "+describe(err), err)
	}

	if resp.StatusCode != http.StatusOK {
		retryable := resp.StatusCode == http.StatusBadGateway ||
			resp.StatusCode == http.StatusServiceUnavailable ||
			resp.StatusCode == http.StatusGatewayTimeout
		return model.VerifyResult{}, retryable, apperror.Upstream(resp.StatusCode, upstreamMessage(body))
	}
	res, err := decodeResult(body)
	if err != nil {
		return model.VerifyResult{}, false, apperror.Unavailable(msgInvalidResponse, err)
	}
	return res, false, nil
}

type wireResult struct {
	Valid *bool            `json:"valid"`
	User  *model.Principal `json:"user"`
	Error string           `json:"error"`
}

// decodeResult requires a boolean "valid" and, when true, a user object.
func decodeResult(body []byte) (model.VerifyResult, error) {
	var w wireResult
	if err := json.Unmarshal(body, &w); err != nil {
		return model.VerifyResult{}, fmt.Errorf("decode verify response: %w", err)
	}
	if w.Valid == nil {
		return model.VerifyResult{}, errors.New("verify response without valid flag")
	}
	if *w.Valid && w.User == nil {
		return model.VerifyResult{}, errors.New("valid verify response without user")
	}
	res := model.VerifyResult{Valid: *w.Valid, Error: w.Error}
	if *w.Valid {
		res.User = w.User
	}
	return res, nil
}

// upstreamMessage extracts "error" then "detail" from a JSON error body.
func upstreamMessage(body []byte) string {
	var m map[string]any
	if json.Unmarshal(body, &m) == nil {
		for _, k := range []string{"error", "detail"} {
			if s, ok := m[k].(string); ok && s != "" {
				return s
			}
		}
	}
	return msgServiceError
}

func describe(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "request timed out"
	}
	return err.Error()
}

// Probe issues a GET against the base URL and reports the status code.
func (c *Client) Probe(ctx context.Context) (int, string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return 0, "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 100))
	return resp.StatusCode, string(snippet), nil
}
