package bluesky

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coryb-xyz/sklonger/internal/thread"
)

const defaultAppView = "https://public.api.bsky.app"

// Client is a read-only Bluesky AppView client implementing
// thread.Fetcher. It holds no per-call mutable state and is safe to share
// across concurrent assemblies.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client against the given AppView base URL. If
// baseURL is empty, it defaults to the public AppView.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultAppView
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ResolveHandle resolves a handle to its DID via
// com.atproto.identity.resolveHandle.
func (c *Client) ResolveHandle(ctx context.Context, handle string) (string, error) {
	if handle == "" {
		return "", thread.Errorf(thread.KindInvalidInput, "handle is empty")
	}

	params := url.Values{}
	params.Set("handle", handle)

	var resp resolveHandleResponse
	if err := c.get(ctx, "/xrpc/com.atproto.identity.resolveHandle", params, &resp); err != nil {
		return "", err
	}
	if resp.DID == "" {
		return "", thread.Errorf(thread.KindMalformed, "resolveHandle returned no did for %s", handle)
	}
	return resp.DID, nil
}

// FetchContext fetches shallow context for a post via
// app.bsky.feed.getPostThread. Depth and parent height are pinned to one
// hop regardless of caller intent: it bounds response size and keeps the
// decoder free of deeply nested structures.
func (c *Client) FetchContext(ctx context.Context, uri string) (*thread.PostContext, error) {
	if uri == "" {
		return nil, thread.Errorf(thread.KindInvalidInput, "post uri is empty")
	}

	params := url.Values{}
	params.Set("uri", uri)
	params.Set("depth", "1")
	params.Set("parentHeight", "1")

	var resp postThreadResponse
	if err := c.get(ctx, "/xrpc/app.bsky.feed.getPostThread", params, &resp); err != nil {
		return nil, err
	}
	return decodeThreadView(resp.Thread)
}

func (c *Client) get(ctx context.Context, path string, params url.Values, result any) error {
	reqURL := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return thread.WrapError(thread.KindInvalidInput, err, "create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return thread.WrapError(thread.KindTransient, err, "send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return thread.WrapError(thread.KindTransient, err, "read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return classifyStatus(resp.StatusCode, respBody)
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return thread.WrapError(thread.KindMalformed, err, "unmarshal response")
	}
	return nil
}

// classifyStatus maps an XRPC error response onto the closed taxonomy.
func classifyStatus(status int, body []byte) error {
	var xe xrpcError
	_ = json.Unmarshal(body, &xe)
	detail := xe.Message
	if detail == "" {
		detail = strings.TrimSpace(string(body))
	}

	switch {
	case status == http.StatusNotFound:
		return thread.Errorf(thread.KindNotFound, "not found: %s", detail)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return thread.Errorf(thread.KindBlocked, "access denied: %s", detail)
	case status == http.StatusTooManyRequests:
		return thread.Errorf(thread.KindRateLimited, "rate limited: %s", detail)
	case status >= 500:
		return thread.Errorf(thread.KindTransient, "upstream error (status %d): %s", status, detail)
	case status == http.StatusBadRequest:
		// The AppView reports missing posts and unresolvable handles as
		// 400 with a named XRPC error rather than 404.
		lower := strings.ToLower(xe.Error + " " + xe.Message)
		if strings.Contains(lower, "notfound") || strings.Contains(lower, "not found") ||
			strings.Contains(lower, "resolve handle") {
			return thread.Errorf(thread.KindNotFound, "not found: %s", detail)
		}
		return thread.Errorf(thread.KindInvalidInput, "rejected request: %s", detail)
	default:
		return thread.Errorf(thread.KindTransient, "unexpected status %d: %s", status, detail)
	}
}
