package fetch

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"github.com/warpdl/warpstream/pkg/logger"
)

// Cache stores fetched objects by locator. Implementations must be safe for
// concurrent use because fetches run on their own goroutines.
type Cache interface {
	Get(ctx context.Context, locator string) ([]byte, bool, error)
	Put(ctx context.Context, locator string, data []byte) error
}

// Router maps locator schemes to Factory implementations and is the single
// entry point the stream uses to obtain tile bytes.
// The zero value is not usable; use NewRouter.
type Router struct {
	routes   map[string]Factory
	opts     *Options
	cache    Cache
	handlers *Handlers
	log      logger.Logger
}

// NewRouter creates a Router with http, https, ftp, ftps, sftp and file
// routes. Bare paths without a scheme are served by the file route from fs.
// client and fs may be nil.
func NewRouter(client *http.Client, fs afero.Fs, opts *Options) *Router {
	if client == nil {
		client = http.DefaultClient
	}
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if opts == nil {
		opts = &Options{}
	}
	r := &Router{
		routes: make(map[string]Factory),
		opts:   opts,
		log:    logger.NewNopLogger(),
	}
	httpFactory := func(locator string, opts *Options) (Fetcher, error) {
		return newHTTPFetcher(locator, opts, client)
	}
	r.routes["http"] = httpFactory
	r.routes["https"] = httpFactory

	ftpFactory := func(locator string, opts *Options) (Fetcher, error) {
		return newFTPFetcher(locator, opts)
	}
	r.routes["ftp"] = ftpFactory
	r.routes["ftps"] = ftpFactory

	r.routes["sftp"] = func(locator string, opts *Options) (Fetcher, error) {
		return newSFTPFetcher(locator, opts)
	}
	r.routes["file"] = func(locator string, opts *Options) (Fetcher, error) {
		return newFileFetcher(locator, opts, fs)
	}
	return r
}

// Register adds or replaces the factory for scheme.
func (r *Router) Register(scheme string, factory Factory) {
	r.routes[strings.ToLower(scheme)] = factory
}

// SetCache installs a read-through cache. nil disables caching.
func (r *Router) SetCache(c Cache) {
	r.cache = c
}

// SetHandlers installs transfer event handlers. nil disables them.
func (r *Router) SetHandlers(h *Handlers) {
	r.handlers = h
}

// SetLogger sets the logger used for cache diagnostics.
func (r *Router) SetLogger(l logger.Logger) {
	r.log = logger.OrNop(l)
}

// NewFetcher creates a Fetcher for locator.
// The scheme is matched case-insensitively; no scheme means a local path.
func (r *Router) NewFetcher(locator string) (Fetcher, error) {
	if locator == "" {
		return nil, fmt.Errorf("%w: empty locator", ErrUnsupportedScheme)
	}
	scheme := "file"
	if !isLocalPath(locator) {
		parsed, err := url.Parse(locator)
		if err != nil {
			return nil, fmt.Errorf("invalid locator %q: %w", Redact(locator), err)
		}
		if parsed.Scheme != "" {
			scheme = strings.ToLower(parsed.Scheme)
		}
	}
	factory, ok := r.routes[scheme]
	if !ok {
		return nil, fmt.Errorf(
			"%w %q, supported: %s",
			ErrUnsupportedScheme,
			scheme,
			strings.Join(SupportedSchemes(r), ", "),
		)
	}
	return factory(locator, r.opts)
}

// Probe returns metadata for locator without transferring it.
func (r *Router) Probe(ctx context.Context, locator string) (ProbeResult, error) {
	f, err := r.NewFetcher(locator)
	if err != nil {
		return ProbeResult{}, err
	}
	defer f.Close()
	return f.Probe(ctx)
}

// Fetch returns the full contents of locator, consulting the cache first.
// Cache failures are logged and otherwise ignored.
func (r *Router) Fetch(ctx context.Context, locator string) ([]byte, error) {
	if r.cache != nil {
		data, ok, err := r.cache.Get(ctx, locator)
		if err != nil {
			r.log.Warning("tile cache lookup for %s: %v", Redact(locator), err)
		} else if ok {
			r.handlers.start(locator, int64(len(data)))
			r.handlers.complete(locator, int64(len(data)))
			return data, nil
		}
	}
	data, err := r.fetch(ctx, locator)
	if err != nil {
		r.handlers.fail(locator, err)
		return nil, err
	}
	if r.cache != nil {
		// A complete tile is worth keeping even if the caller gave up on it.
		if err := r.cache.Put(context.WithoutCancel(ctx), locator, data); err != nil {
			r.log.Warning("tile cache store for %s: %v", Redact(locator), err)
		}
	}
	return data, nil
}

func (r *Router) fetch(ctx context.Context, locator string) ([]byte, error) {
	f, err := r.NewFetcher(locator)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	probe, err := f.Probe(ctx)
	if err != nil {
		return nil, err
	}
	if max := r.opts.maxBytes(); max > 0 && probe.ContentLength > max {
		return nil, NewPermanentError(schemeOf(locator), "probe:limit",
			fmt.Errorf("%w: %s > %s", ErrTooLarge, ByteSize(probe.ContentLength), ByteSize(max)))
	}
	r.handlers.start(locator, probe.ContentLength)

	var buf bytes.Buffer
	if probe.ContentLength > 0 {
		buf.Grow(int(probe.ContentLength))
	}
	n, err := f.Fetch(ctx, &buf, r.handlers)
	if err != nil {
		return nil, err
	}
	r.handlers.complete(locator, n)
	return buf.Bytes(), nil
}

// SupportedSchemes returns the registered schemes in sorted order.
func SupportedSchemes(r *Router) []string {
	schemes := make([]string, 0, len(r.routes))
	for s := range r.routes {
		schemes = append(schemes, s)
	}
	sort.Strings(schemes)
	return schemes
}

// Redact removes userinfo from URL locators so they can be logged.
func Redact(locator string) string {
	if isLocalPath(locator) {
		return locator
	}
	parsed, err := url.Parse(locator)
	if err != nil || parsed.User == nil {
		return locator
	}
	parsed.User = nil
	return parsed.String()
}

func isLocalPath(locator string) bool {
	if strings.HasPrefix(locator, "/") || strings.HasPrefix(locator, ".") {
		return true
	}
	// Windows drive letters parse as a one-letter scheme.
	return len(locator) > 2 && locator[1] == ':' && (locator[2] == '\\' || locator[2] == '/')
}

func schemeOf(locator string) string {
	if isLocalPath(locator) {
		return "file"
	}
	if u, err := url.Parse(locator); err == nil && u.Scheme != "" {
		return strings.ToLower(u.Scheme)
	}
	return "file"
}
