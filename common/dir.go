package common

import (
	"os"
	"path/filepath"
)

// ConfigDir returns the warpstream configuration directory. The directory is
// not created.
func ConfigDir() string {
	if dir := os.Getenv(ConfigDirEnv); dir != "" {
		return dir
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "warpstream")
	}
	return filepath.Join(base, "warpstream")
}

// KnownHostsPath is the TOFU known_hosts file used for sftp:// tiles.
// It is kept apart from ~/.ssh/known_hosts.
func KnownHostsPath() string {
	return filepath.Join(ConfigDir(), "known_hosts")
}

// DefaultCacheDB is the default sqlite tile cache location.
func DefaultCacheDB() string {
	return filepath.Join(ConfigDir(), "tiles.db")
}
