// Package api is the HTTP client for the task API. Every request carries
// the stored bearer credential, and any 401 clears that credential.
package api

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
	"sync"

	"go.uber.org/zap"
)

// DefaultBaseURL is used when no base URL is configured.
const DefaultBaseURL = "http://127.0.0.1:8000"

// TokenStore is the credential storage the client reads and clears.
type TokenStore interface {
	Get() (string, bool)
	Save(token string) error
	Clear() error
	ClearUser() error
}

// Options configures a Client.
type Options struct {
	// BaseURL is the API root, e.g. http://127.0.0.1:8000.
	BaseURL string
	// HTTPClient defaults to &http.Client{}.
	HTTPClient *http.Client
	// Tokens holds the credential. Required.
	Tokens TokenStore
	// OnUnauthorized runs after a 401 has cleared the credential.
	OnUnauthorized func()
	Logger         *zap.Logger
}

// Client calls the task API.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenStore
	log     *zap.Logger

	mu             sync.Mutex
	onUnauthorized func()
}

// New validates opts and returns a Client.
func New(opts Options) (*Client, error) {
	if opts.Tokens == nil {
		return nil, errors.New("api: token store is required")
	}
	base := opts.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("api: parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("api: base url %q must be http or https", base)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Client{
		baseURL:        strings.TrimRight(base, "/"),
		http:           httpClient,
		tokens:         opts.Tokens,
		log:            log,
		onUnauthorized: opts.OnUnauthorized,
	}, nil
}

// SetOnUnauthorized replaces the callback run after a 401.
func (c *Client) SetOnUnauthorized(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUnauthorized = fn
}

// do sends one request. body is JSON-encoded when non-nil; out receives the
// decoded response unless it is nil or the status is 204.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok, ok := c.tokens.Get(); ok {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return &NetworkError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	c.log.Debug("request done",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
	)

	if resp.StatusCode == http.StatusUnauthorized {
		c.handleUnauthorized()
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("invalid response: %w", err)
	}
	return nil
}

// handleUnauthorized drops the credential and notifies the owner so the
// user is sent back to login.
func (c *Client) handleUnauthorized() {
	c.log.Warn("credential rejected, clearing session")
	if err := c.tokens.Clear(); err != nil {
		c.log.Error("failed to clear token", zap.Error(err))
	}
	if err := c.tokens.ClearUser(); err != nil {
		c.log.Error("failed to clear cached user", zap.Error(err))
	}

	c.mu.Lock()
	fn := c.onUnauthorized
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}
