// Package api is the HTTP client for the webverse remote authority.
// Endpoints are split across files by concern, one method each.
package api

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/imroc/req/v3"

	"github.com/webverselabs/webverse/internal/webverse/common"
	wverrors "github.com/webverselabs/webverse/internal/webverse/errors"
	"github.com/webverselabs/webverse/internal/log"
)

// DefaultBaseURL is the public authority endpoint; override with
// WEBVERSE_API_BASE_URL.
const DefaultBaseURL = "https://api-opensource.webverselabs.com"

const defaultTimeout = 6 * time.Second

// Version is the client version reported in the User-Agent and in
// submissions. Overridden at build time.
var Version = "dev"

// Client talks to the remote authority. Calls carry a bounded timeout
// and mutating GET-like reads are retried with a short backoff.
type Client struct {
	baseURL string
	client  *req.Client
	retry   *common.RetryHandler

	// token supplies the current bearer credential; empty means the
	// call goes out anonymous.
	token func() string

	// onUnauthorized runs when an authenticated call is rejected with
	// 401, so auth state fails toward "logged out" proactively.
	onUnauthorized func()
}

// BaseURL resolves the authority base URL from the environment
func BaseURL() string {
	for _, key := range []string{"WEBVERSE_API_BASE_URL", "WEBVERSE_API_URL"} {
		if v := strings.TrimRight(strings.TrimSpace(os.Getenv(key)), "/"); v != "" {
			return v
		}
	}
	return DefaultBaseURL
}

func timeout() time.Duration {
	if v := os.Getenv("WEBVERSE_API_TIMEOUT"); v != "" {
		if secs, err := strconv.ParseFloat(v, 64); err == nil && secs > 0 {
			return time.Duration(secs * float64(time.Second))
		}
	}
	return defaultTimeout
}

// New creates a client. token may be nil for a fully anonymous client.
func New(baseURL string, token func() string, onUnauthorized func()) *Client {
	if token == nil {
		token = func() string { return "" }
	}
	if onUnauthorized == nil {
		onUnauthorized = func() {}
	}
	client := req.C().
		SetUserAgent("WebVerse-OSS/" + Version).
		SetTimeout(timeout()).
		EnableKeepAlives()

	return &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		client:         client,
		retry:          common.NewRetryHandler(2, 200*time.Millisecond, 2*time.Second),
		token:          token,
		onUnauthorized: onUnauthorized,
	}
}

type requestExecutor func(*req.Request, string) (*req.Response, error)

// doRequest handles common HTTP request logic
func (c *Client) doRequest(ctx context.Context, method, path string, authed bool, out any, executor requestExecutor) error {
	if c == nil || c.client == nil {
		return fmt.Errorf("api client is not initialized")
	}

	var urlBuilder strings.Builder
	urlBuilder.Grow(len(c.baseURL) + len(path))
	urlBuilder.WriteString(c.baseURL)
	urlBuilder.WriteString(path)
	fullURL := urlBuilder.String()

	log.Debug("Making %s request to: %s", method, fullURL)

	r := c.client.R().SetContext(ctx)
	if authed {
		tok := c.token()
		if tok == "" {
			return wverrors.ErrAuthRequired
		}
		r.SetBearerAuthToken(tok)
	}

	resp, err := executor(r, fullURL)
	if err != nil {
		return wverrors.Wrapf(wverrors.ErrAPIConnection, "%s %s: %v", method, fullURL, err)
	}

	if resp.StatusCode == 401 && authed {
		// The local token is stale; clear auth state so the caller
		// fails toward logged-out rather than silently stale logged-in.
		c.onUnauthorized()
		return wverrors.Wrapf(wverrors.ErrAuthRequired, "%s %s", method, fullURL)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return wverrors.Wrapf(wverrors.ErrAPIResponse, "%s %s returned %d: %s",
			method, fullURL, resp.StatusCode, resp.String())
	}

	if out != nil && len(resp.Bytes()) > 0 {
		if err := resp.UnmarshalJson(out); err != nil {
			return wverrors.Wrapf(wverrors.ErrAPIResponse, "unmarshal %s: %v", fullURL, err)
		}
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, authed bool, out any) error {
	return c.doRequest(ctx, "GET", path, authed, out, func(r *req.Request, url string) (*req.Response, error) {
		return r.Get(url)
	})
}

func (c *Client) post(ctx context.Context, path string, authed bool, body, out any) error {
	return c.doRequest(ctx, "POST", path, authed, out, func(r *req.Request, url string) (*req.Response, error) {
		if body != nil {
			r.SetBodyJsonMarshal(body)
		}
		return r.Post(url)
	})
}

// getWithRetries performs a GET with connection-level retry. Auth
// failures are terminal and never retried.
func (c *Client) getWithRetries(ctx context.Context, path string, authed bool, out any) error {
	var lastErr error
	err := c.retry.Execute(ctx, func() error {
		err := c.get(ctx, path, authed, out)
		if wverrors.Is(err, wverrors.ErrAuthRequired) {
			lastErr = err
			return nil
		}
		lastErr = err
		return err
	})
	if err != nil {
		return err
	}
	return lastErr
}
