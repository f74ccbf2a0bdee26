package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/sftp"
	"github.com/warpdl/warpstream/common"
	"golang.org/x/crypto/ssh"
)

var _ Fetcher = (*sftpFetcher)(nil)

// sftpFetcher implements Fetcher for sftp:// locators over an SSH transport.
type sftpFetcher struct {
	locator        string
	opts           *Options
	host           string // host:port
	remotePath     string
	user           string
	password       string
	sshKeyPath     string
	knownHostsPath string
	name           string
	size           int64
	probed         bool
}

// newSFTPFetcher parses an sftp:// locator. Without a password in the
// locator, key authentication is used.
func newSFTPFetcher(locator string, opts *Options) (*sftpFetcher, error) {
	if opts == nil {
		opts = &Options{}
	}
	parsed, err := url.Parse(locator)
	if err != nil {
		return nil, NewPermanentError("sftp", "factory:parse", err)
	}
	if scheme := strings.ToLower(parsed.Scheme); scheme != "sftp" {
		return nil, NewPermanentError("sftp", "factory:scheme",
			fmt.Errorf("unsupported scheme %q, expected sftp", scheme))
	}
	remotePath := parsed.Path
	if remotePath == "" || remotePath == "/" {
		return nil, NewPermanentError("sftp", "factory:path",
			errors.New("empty or root path in SFTP locator: file path is required"))
	}
	var user, password string
	if parsed.User != nil {
		user = parsed.User.Username()
		if p, ok := parsed.User.Password(); ok {
			password = p
		}
	}
	host := parsed.Host
	if parsed.Port() == "" {
		host = net.JoinHostPort(parsed.Hostname(), "22")
	}
	kh := opts.KnownHostsPath
	if kh == "" {
		kh = common.KnownHostsPath()
	}
	return &sftpFetcher{
		locator:        locator,
		opts:           opts,
		host:           host,
		remotePath:     remotePath,
		user:           user,
		password:       password,
		sshKeyPath:     opts.SSHKeyPath,
		knownHostsPath: kh,
		name:           path.Base(remotePath),
		size:           -1,
	}, nil
}

// connect dials with ctx, performs the SSH handshake and opens the SFTP
// subsystem. Both clients must be closed by the caller.
func (d *sftpFetcher) connect(ctx context.Context) (*ssh.Client, *sftp.Client, error) {
	authMethods, err := buildAuthMethods(d.password, d.sshKeyPath)
	if err != nil {
		return nil, nil, err
	}
	config := &ssh.ClientConfig{
		User:            d.user,
		Auth:            authMethods,
		HostKeyCallback: newTOFUHostKeyCallback(d.knownHostsPath),
		Timeout:         d.opts.dialTimeout(),
	}
	dialer := net.Dialer{Timeout: d.opts.dialTimeout()}
	conn, err := dialer.DialContext(ctx, "tcp", d.host)
	if err != nil {
		return nil, nil, err
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, d.host, config)
	if err != nil {
		conn.Close()
		return nil, nil, err
	}
	sshConn := ssh.NewClient(c, chans, reqs)
	sftpClient, err := sftp.NewClient(sshConn)
	if err != nil {
		sshConn.Close()
		return nil, nil, err
	}
	return sshConn, sftpClient, nil
}

// Probe stats the remote file.
func (d *sftpFetcher) Probe(ctx context.Context) (ProbeResult, error) {
	sshConn, sftpClient, err := d.connect(ctx)
	if err != nil {
		return ProbeResult{}, classifySFTPError("probe:connect", err)
	}
	defer sshConn.Close()
	defer sftpClient.Close()

	info, err := sftpClient.Stat(d.remotePath)
	if err != nil {
		return ProbeResult{}, classifySFTPError("probe:stat", err)
	}
	d.size = info.Size()
	d.probed = true
	return ProbeResult{Name: d.name, ContentLength: d.size}, nil
}

// Fetch streams the remote file into w.
func (d *sftpFetcher) Fetch(ctx context.Context, w io.Writer, handlers *Handlers) (int64, error) {
	if !d.probed {
		return 0, ErrProbeRequired
	}
	sshConn, sftpClient, err := d.connect(ctx)
	if err != nil {
		return 0, classifySFTPError("fetch:connect", err)
	}
	defer sshConn.Close()
	defer sftpClient.Close()

	remoteFile, err := sftpClient.Open(d.remotePath)
	if err != nil {
		return 0, classifySFTPError("fetch:open", err)
	}
	defer remoteFile.Close()

	// Closing the connection is the only way to abort an in-flight read.
	stop := context.AfterFunc(ctx, func() { sshConn.Close() })
	defer stop()

	n, err := copyObject("sftp", w, remoteFile, d.opts.maxBytes(), handlers, d.locator)
	if err != nil {
		var fe *FetchError
		if errors.As(err, &fe) {
			return n, fe
		}
		if ctx.Err() != nil {
			return n, NewPermanentError("sftp", "fetch:copy", ctx.Err())
		}
		return n, classifySFTPError("fetch:copy", err)
	}
	return n, nil
}

func (d *sftpFetcher) Close() error {
	return nil
}

// buildAuthMethods prefers password auth, then the explicit key, then the
// default key paths.
func buildAuthMethods(password, sshKeyPath string) ([]ssh.AuthMethod, error) {
	if password != "" {
		return []ssh.AuthMethod{ssh.Password(password)}, nil
	}
	keyPaths := resolveSSHKeyPaths(sshKeyPath)
	for _, kp := range keyPaths {
		pemBytes, err := os.ReadFile(kp)
		if err != nil {
			continue
		}
		signer, err := ssh.ParsePrivateKey(pemBytes)
		if err != nil {
			var ppErr *ssh.PassphraseMissingError
			if errors.As(err, &ppErr) {
				return nil, fmt.Errorf("sftp: SSH key %q is passphrase-protected; passphrase-protected keys are not supported", kp)
			}
			continue
		}
		return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil
	}
	return nil, fmt.Errorf("sftp: no authentication method available: provide a password in the locator or an SSH key at %s",
		strings.Join(keyPaths, ", "))
}

// resolveSSHKeyPaths returns only explicitPath when set, otherwise the
// default ~/.ssh keys.
func resolveSSHKeyPaths(explicitPath string) []string {
	if explicitPath != "" {
		return []string{explicitPath}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	return []string{
		filepath.Join(home, ".ssh", "id_ed25519"),
		filepath.Join(home, ".ssh", "id_rsa"),
	}
}

// classifySFTPError treats missing files and remote exits as permanent and
// network errors as transient.
func classifySFTPError(op string, err error) *FetchError {
	if errors.Is(err, os.ErrNotExist) {
		return NewPermanentError("sftp", op, err)
	}
	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		return NewPermanentError("sftp", op, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return NewTransientError("sftp", op, err)
	}
	return NewPermanentError("sftp", op, err)
}
