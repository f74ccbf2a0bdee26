package fetch

import "time"

// Options configures protocol fetchers. The zero value is usable.
type Options struct {
	// UserAgent is sent with HTTP requests.
	UserAgent string
	// SSHKeyPath is the private key for sftp:// when the locator has no password.
	// Empty means ~/.ssh/id_ed25519 then ~/.ssh/id_rsa.
	SSHKeyPath string
	// KnownHostsPath is the TOFU known_hosts file for sftp://.
	// Empty means common.KnownHostsPath().
	KnownHostsPath string
	// MaxBytes rejects objects larger than this. Zero disables the limit.
	MaxBytes int64
	// DialTimeout bounds connection setup for ftp and sftp. Zero means 30s.
	DialTimeout time.Duration
}

const defaultDialTimeout = 30 * time.Second

func (o *Options) dialTimeout() time.Duration {
	if o == nil || o.DialTimeout <= 0 {
		return defaultDialTimeout
	}
	return o.DialTimeout
}

func (o *Options) maxBytes() int64 {
	if o == nil {
		return 0
	}
	return o.MaxBytes
}
