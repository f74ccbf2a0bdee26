package fetch

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/textproto"
	"net/url"
	"path"
	"strings"

	"github.com/jlaffaye/ftp"
)

var _ Fetcher = (*ftpFetcher)(nil)

// ftpFetcher implements Fetcher for ftp and ftps (explicit TLS) locators.
// Credentials from the locator are used for login and never logged.
type ftpFetcher struct {
	locator  string
	opts     *Options
	host     string // host:port
	ftpPath  string
	user     string
	password string
	useTLS   bool
	name     string
	size     int64
	probed   bool
}

// newFTPFetcher parses an ftp:// or ftps:// locator. Missing credentials
// default to anonymous login.
func newFTPFetcher(locator string, opts *Options) (*ftpFetcher, error) {
	parsed, err := url.Parse(locator)
	if err != nil {
		return nil, NewPermanentError("ftp", "factory:parse", err)
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "ftp" && scheme != "ftps" {
		return nil, NewPermanentError("ftp", "factory:scheme",
			fmt.Errorf("unsupported scheme %q, expected ftp or ftps", scheme))
	}
	ftpPath := parsed.Path
	if ftpPath == "" || ftpPath == "/" {
		return nil, NewPermanentError("ftp", "factory:path",
			errors.New("empty or root path in FTP locator: file path is required"))
	}

	user, password := "anonymous", "anonymous"
	if parsed.User != nil {
		user = parsed.User.Username()
		if p, ok := parsed.User.Password(); ok {
			password = p
		}
	}
	host := parsed.Host
	if parsed.Port() == "" {
		host = net.JoinHostPort(parsed.Hostname(), "21")
	}
	return &ftpFetcher{
		locator:  locator,
		opts:     opts,
		host:     host,
		ftpPath:  ftpPath,
		user:     user,
		password: password,
		useTLS:   scheme == "ftps",
		name:     path.Base(ftpPath),
		size:     -1,
	}, nil
}

func (d *ftpFetcher) connect(ctx context.Context) (*ftp.ServerConn, error) {
	dialOpts := []ftp.DialOption{
		ftp.DialWithTimeout(d.opts.dialTimeout()),
		ftp.DialWithContext(ctx),
	}
	if d.useTLS {
		hostname := d.host
		if h, _, err := net.SplitHostPort(d.host); err == nil {
			hostname = h
		}
		dialOpts = append(dialOpts, ftp.DialWithExplicitTLS(&tls.Config{
			ServerName: hostname,
			MinVersion: tls.VersionTLS12,
		}))
	}
	conn, err := ftp.Dial(d.host, dialOpts...)
	if err != nil {
		return nil, err
	}
	if err := conn.Login(d.user, d.password); err != nil {
		conn.Quit()
		return nil, err
	}
	return conn, nil
}

// Probe reads the remote file size with SIZE.
func (d *ftpFetcher) Probe(ctx context.Context) (ProbeResult, error) {
	conn, err := d.connect(ctx)
	if err != nil {
		return ProbeResult{}, classifyFTPError("probe:connect", err)
	}
	defer conn.Quit()

	size, err := conn.FileSize(d.ftpPath)
	if err != nil {
		return ProbeResult{}, classifyFTPError("probe:size", err)
	}
	d.size = size
	d.probed = true
	return ProbeResult{Name: d.name, ContentLength: size}, nil
}

// Fetch retrieves the file in binary mode.
func (d *ftpFetcher) Fetch(ctx context.Context, w io.Writer, handlers *Handlers) (int64, error) {
	if !d.probed {
		return 0, ErrProbeRequired
	}
	conn, err := d.connect(ctx)
	if err != nil {
		return 0, classifyFTPError("fetch:connect", err)
	}
	defer conn.Quit()

	if err := conn.Type(ftp.TransferTypeBinary); err != nil {
		return 0, NewPermanentError("ftp", "fetch:type", err)
	}
	resp, err := conn.Retr(d.ftpPath)
	if err != nil {
		return 0, classifyFTPError("fetch:retr", err)
	}
	defer resp.Close()

	n, err := copyObject("ftp", w, resp, d.opts.maxBytes(), handlers, d.locator)
	if err != nil {
		var fe *FetchError
		if errors.As(err, &fe) {
			return n, fe
		}
		return n, classifyFTPError("fetch:copy", err)
	}
	return n, nil
}

func (d *ftpFetcher) Close() error {
	return nil
}

// classifyFTPError follows RFC 959: 4xx replies are transient, 5xx permanent.
// Network errors are transient.
func classifyFTPError(op string, err error) *FetchError {
	var tpErr *textproto.Error
	if errors.As(err, &tpErr) {
		if tpErr.Code >= 400 && tpErr.Code < 500 {
			return NewTransientError("ftp", op, err)
		}
		return NewPermanentError("ftp", op, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return NewTransientError("ftp", op, err)
	}
	return NewPermanentError("ftp", op, err)
}
