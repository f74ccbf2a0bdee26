package cmd

import (
	"github.com/spf13/afero"
	"github.com/urfave/cli"
	"github.com/warpdl/warpstream/common"
	"github.com/warpdl/warpstream/internal/tilestore"
	"github.com/warpdl/warpstream/pkg/fetch"
	"github.com/warpdl/warpstream/pkg/logger"
)

var (
	proxyURL  string
	sshKey    string
	userAgent string
	cacheDB   string
	noCache   bool
	maxTileMB int

	sourceFlags = []cli.Flag{
		cli.StringFlag{
			Name:        "proxy",
			Usage:       "proxy for http(s) tiles: http://, https:// or socks5://",
			EnvVar:      common.ProxyEnv,
			Destination: &proxyURL,
		},
		cli.StringFlag{
			Name:        "ssh-key",
			Usage:       "private key for sftp:// tiles (default: ~/.ssh/id_ed25519, ~/.ssh/id_rsa)",
			EnvVar:      common.SSHKeyEnv,
			Destination: &sshKey,
		},
		cli.StringFlag{
			Name:        "user-agent",
			Usage:       "HTTP user agent for tile requests",
			Value:       "warpstream",
			Destination: &userAgent,
		},
		cli.StringFlag{
			Name:        "cache-db",
			Usage:       "sqlite tile cache (default: <config dir>/tiles.db)",
			EnvVar:      common.CacheDBEnv,
			Destination: &cacheDB,
		},
		cli.BoolFlag{
			Name:        "no-cache",
			Usage:       "fetch every tile from its source",
			Destination: &noCache,
		},
		cli.IntFlag{
			Name:        "max-tile-mb",
			Usage:       "reject tiles larger than this",
			Value:       DEF_MAX_TILE_MB,
			Destination: &maxTileMB,
		},
	}
)

// sourceConfig describes how tiles are fetched.
type sourceConfig struct {
	Proxy     string
	SSHKey    string
	UserAgent string
	CacheDB   string
	NoCache   bool
	MaxTileMB int
}

func sourceConfigFromFlags() sourceConfig {
	return sourceConfig{
		Proxy:     proxyURL,
		SSHKey:    sshKey,
		UserAgent: userAgent,
		CacheDB:   cacheDB,
		NoCache:   noCache,
		MaxTileMB: maxTileMB,
	}
}

func (c sourceConfig) cachePath() string {
	if c.CacheDB != "" {
		return c.CacheDB
	}
	return common.DefaultCacheDB()
}

// newRouter builds the tile router. The returned store is nil when caching
// is disabled; the caller closes it.
func newRouter(cfg sourceConfig, fs afero.Fs, l logger.Logger) (*fetch.Router, *tilestore.Store, error) {
	client, err := fetch.NewHTTPClientWithProxy(cfg.Proxy)
	if err != nil {
		return nil, nil, err
	}
	r := fetch.NewRouter(client, fs, &fetch.Options{
		UserAgent:      cfg.UserAgent,
		SSHKeyPath:     cfg.SSHKey,
		KnownHostsPath: common.KnownHostsPath(),
		MaxBytes:       int64(cfg.MaxTileMB) << 20,
	})
	r.SetLogger(l)
	if cfg.NoCache {
		return r, nil, nil
	}
	store, err := tilestore.Open(cfg.cachePath())
	if err != nil {
		l.Warning("tile cache disabled: %v", err)
		return r, nil, nil
	}
	r.SetCache(store)
	return r, store, nil
}
