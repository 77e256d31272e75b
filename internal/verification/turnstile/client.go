// Package turnstile checks Cloudflare Turnstile challenge tokens against the
// siteverify endpoint. Every failure mode counts as a failed check.
package turnstile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"folio/pkg/requestcontext"
)

// DefaultVerifyURL is Cloudflare's siteverify endpoint.
const DefaultVerifyURL = "https://challenges.cloudflare.com/turnstile/v0/siteverify"

const (
	defaultTimeout  = 5 * time.Second
	maxResponseBody = 16 * 1024
)

var (
	ErrNotConfigured = errors.New("turnstile secret not configured")
	ErrRejected      = errors.New("turnstile token rejected")
)

// HTTPDoer is the minimal interface needed from an HTTP client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Config struct {
	Secret     string
	VerifyURL  string
	Timeout    time.Duration
	HTTPClient HTTPDoer
}

type Client struct {
	secret    string
	verifyURL string
	client    HTTPDoer
}

// siteverifyResponse is the subset of the siteverify reply we read.
type siteverifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.VerifyURL == "" {
		cfg.VerifyURL = DefaultVerifyURL
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		secret:    cfg.Secret,
		verifyURL: cfg.VerifyURL,
		client:    client,
	}
}

// Configured reports whether a secret is set.
func (c *Client) Configured() bool {
	return c.secret != ""
}

// Verify returns nil only when siteverify answers success=true for token.
// remoteIP is forwarded as a hint and omitted when unknown.
func (c *Client) Verify(ctx context.Context, token, remoteIP string) error {
	if c.secret == "" {
		return ErrNotConfigured
	}

	form := url.Values{}
	form.Set("secret", c.secret)
	form.Set("response", token)
	if remoteIP != "" && remoteIP != requestcontext.UnknownClient {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build siteverify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("siteverify request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("siteverify returned status %d", resp.StatusCode)
	}

	var out siteverifyResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBody)).Decode(&out); err != nil {
		return fmt.Errorf("decode siteverify response: %w", err)
	}
	if !out.Success {
		if len(out.ErrorCodes) > 0 {
			return fmt.Errorf("%w: %s", ErrRejected, strings.Join(out.ErrorCodes, ","))
		}
		return ErrRejected
	}
	return nil
}
