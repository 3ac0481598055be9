package locators

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/brettbedarf/resourcefs"
	"github.com/brettbedarf/resourcefs/internal/util"
)

// HTTPClient is the subset of *http.Client used by [HTTPLocator]
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPOptions are shared by every HTTP locator built from one registry
type HTTPOptions struct {
	Client    HTTPClient // Defaults to http.DefaultClient
	UserAgent string
	Headers   map[string]string
}

// HTTPLocator implements [resourcefs.Locator] for http and https URLs.
// Metadata comes from a HEAD request and content from a GET.
type HTTPLocator struct {
	url     *url.URL
	client  HTTPClient
	agent   string
	headers map[string]string
}

// NewHTTPLocator validates u and returns a locator for it
func NewHTTPLocator(u *url.URL, opts HTTPOptions) (*HTTPLocator, error) {
	if u.Scheme != HTTPScheme && u.Scheme != HTTPSScheme {
		return nil, fmt.Errorf("http locator %q: unsupported scheme %q", u, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("http locator %q: missing host", u)
	}
	if u.User != nil {
		return nil, fmt.Errorf("http locator %q: user info not allowed", u.Redacted())
	}

	client := opts.Client
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPLocator{
		url:     u,
		client:  client,
		agent:   opts.UserAgent,
		headers: opts.Headers,
	}, nil
}

func (h *HTTPLocator) Path() string {
	return h.url.EscapedPath()
}

// URL returns the source URL
func (h *HTTPLocator) URL() string {
	return h.url.String()
}

func (h *HTTPLocator) String() string {
	return h.url.String()
}

func (h *HTTPLocator) do(ctx context.Context, method string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, h.url.String(), nil)
	if err != nil {
		return nil, err
	}
	for k, v := range h.headers {
		req.Header.Set(k, v)
	}
	if h.agent != "" {
		req.Header.Set("User-Agent", h.agent)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("%s %s: unexpected status %s", method, h.url, resp.Status)
	}
	return resp, nil
}

// Open issues a GET and returns the response body
func (h *HTTPLocator) Open(ctx context.Context) (io.ReadCloser, error) {
	logger := util.GetLogger("HTTPLocator.Open")
	resp, err := h.do(ctx, http.MethodGet)
	if err != nil {
		return nil, err
	}
	logger.Trace().Str("url", h.url.String()).Int64("length", resp.ContentLength).Msg("Opened stream")
	return resp.Body, nil
}

// Metadata issues a HEAD. Last-Modified becomes the modification time and
// Date the creation time; a missing or malformed header leaves it unset.
func (h *HTTPLocator) Metadata(ctx context.Context) (*resourcefs.Metadata, error) {
	resp, err := h.do(ctx, http.MethodHead)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return &resourcefs.Metadata{
		Size:         resp.ContentLength,
		LastModified: headerTime(resp.Header, "Last-Modified"),
		Created:      headerTime(resp.Header, "Date"),
	}, nil
}

func headerTime(h http.Header, key string) *time.Time {
	v := h.Get(key)
	if v == "" {
		return nil
	}
	t, err := http.ParseTime(v)
	if err != nil {
		logger := util.GetLogger("HTTPLocator.Metadata")
		logger.Debug().Str("header", key).Str("value", v).Err(err).Msg("Ignoring malformed time header")
		return nil
	}
	t = t.UTC()
	return &t
}

var _ resourcefs.Locator = (*HTTPLocator)(nil)
