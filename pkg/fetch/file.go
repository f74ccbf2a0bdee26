package fetch

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

var _ Fetcher = (*fileFetcher)(nil)

// fileFetcher reads tiles from an afero filesystem. It serves file:// URLs
// and bare paths.
type fileFetcher struct {
	locator string
	opts    *Options
	fs      afero.Fs
	path    string
	size    int64
	probed  bool
}

func newFileFetcher(locator string, opts *Options, fsys afero.Fs) (*fileFetcher, error) {
	p := locator
	if strings.HasPrefix(strings.ToLower(locator), "file:") {
		u, err := url.Parse(locator)
		if err != nil {
			return nil, NewPermanentError("file", "factory:parse", err)
		}
		p = u.Path
		if p == "" {
			p = u.Opaque
		}
	}
	if p == "" {
		return nil, NewPermanentError("file", "factory:path", errors.New("empty path"))
	}
	return &fileFetcher{
		locator: locator,
		opts:    opts,
		fs:      fsys,
		path:    filepath.FromSlash(p),
		size:    -1,
	}, nil
}

func (f *fileFetcher) Probe(_ context.Context) (ProbeResult, error) {
	info, err := f.fs.Stat(f.path)
	if err != nil {
		return ProbeResult{}, classifyFileError("probe:stat", err)
	}
	if info.IsDir() {
		return ProbeResult{}, NewPermanentError("file", "probe:stat", errors.New("is a directory"))
	}
	f.size = info.Size()
	f.probed = true
	return ProbeResult{Name: filepath.Base(f.path), ContentLength: f.size}, nil
}

func (f *fileFetcher) Fetch(ctx context.Context, w io.Writer, handlers *Handlers) (int64, error) {
	if !f.probed {
		return 0, ErrProbeRequired
	}
	if err := ctx.Err(); err != nil {
		return 0, NewPermanentError("file", "fetch:open", err)
	}
	src, err := f.fs.Open(f.path)
	if err != nil {
		return 0, classifyFileError("fetch:open", err)
	}
	defer src.Close()
	n, err := copyObject("file", w, src, f.opts.maxBytes(), handlers, f.locator)
	if err != nil {
		var fe *FetchError
		if errors.As(err, &fe) {
			return n, fe
		}
		return n, classifyFileError("fetch:copy", err)
	}
	return n, nil
}

func (f *fileFetcher) Close() error {
	return nil
}

func classifyFileError(op string, err error) *FetchError {
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
		return NewPermanentError("file", op, err)
	}
	return NewTransientError("file", op, err)
}
