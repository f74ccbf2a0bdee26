package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"path"
	"strings"
)

var _ Fetcher = (*httpFetcher)(nil)

// httpFetcher implements Fetcher for http and https locators with a single
// GET per object.
type httpFetcher struct {
	locator string
	opts    *Options
	client  *http.Client
	name    string
	size    int64
	probed  bool
}

func newHTTPFetcher(locator string, opts *Options, client *http.Client) (*httpFetcher, error) {
	parsed, err := url.Parse(locator)
	if err != nil {
		return nil, NewPermanentError("http", "factory:parse", err)
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, NewPermanentError("http", "factory:scheme",
			fmt.Errorf("unsupported scheme %q, expected http or https", scheme))
	}
	if parsed.Host == "" {
		return nil, NewPermanentError("http", "factory:host", errors.New("missing host"))
	}
	return &httpFetcher{
		locator: locator,
		opts:    opts,
		client:  client,
		name:    path.Base(parsed.Path),
		size:    -1,
	}, nil
}

func (h *httpFetcher) newRequest(ctx context.Context, method string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, h.locator, nil)
	if err != nil {
		return nil, err
	}
	if h.opts != nil && h.opts.UserAgent != "" {
		req.Header.Set("User-Agent", h.opts.UserAgent)
	}
	return req, nil
}

// Probe issues a HEAD request. Servers that reject HEAD leave the size unknown.
func (h *httpFetcher) Probe(ctx context.Context) (ProbeResult, error) {
	req, err := h.newRequest(ctx, http.MethodHead)
	if err != nil {
		return ProbeResult{}, NewPermanentError("http", "probe:request", err)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return ProbeResult{}, classifyHTTPError("probe:head", err)
	}
	resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusMethodNotAllowed || resp.StatusCode == http.StatusNotImplemented:
		h.size = -1
	case resp.StatusCode >= 300:
		return ProbeResult{}, classifyHTTPStatus("probe:head", resp)
	default:
		h.size = resp.ContentLength
	}
	h.probed = true
	return ProbeResult{Name: h.name, ContentLength: h.size}, nil
}

// Fetch streams the response body into w.
func (h *httpFetcher) Fetch(ctx context.Context, w io.Writer, handlers *Handlers) (int64, error) {
	if !h.probed {
		return 0, ErrProbeRequired
	}
	req, err := h.newRequest(ctx, http.MethodGet)
	if err != nil {
		return 0, NewPermanentError("http", "fetch:request", err)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return 0, classifyHTTPError("fetch:get", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return 0, classifyHTTPStatus("fetch:get", resp)
	}
	n, err := copyObject("http", w, resp.Body, h.opts.maxBytes(), handlers, h.locator)
	if err != nil {
		var fe *FetchError
		if errors.As(err, &fe) {
			return n, fe
		}
		return n, classifyHTTPError("fetch:copy", err)
	}
	return n, nil
}

func (h *httpFetcher) Close() error {
	return nil
}

// classifyHTTPStatus maps 408, 429 and 5xx to transient errors and every
// other status to a permanent one.
func classifyHTTPStatus(op string, resp *http.Response) *FetchError {
	cause := fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
	switch {
	case resp.StatusCode == http.StatusRequestTimeout,
		resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode >= 500:
		return NewTransientError("http", op, cause)
	default:
		return NewPermanentError("http", op, cause)
	}
}

func classifyHTTPError(op string, err error) *FetchError {
	if errors.Is(err, context.Canceled) {
		return NewPermanentError("http", op, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, io.ErrUnexpectedEOF) {
		return NewTransientError("http", op, err)
	}
	return NewPermanentError("http", op, err)
}
