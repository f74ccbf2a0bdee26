// Package common provides shared types and constants used by the warpstream
// player, its control endpoint and its clients.
package common

// Environment variable names for configuration.
const (
	// ConfigDirEnv overrides the configuration directory (tile cache, known_hosts).
	ConfigDirEnv = "WARPSTREAM_CONFIG_DIR"

	// RPCSecretEnv is the bearer token required by the control endpoint.
	RPCSecretEnv = "WARPSTREAM_RPC_SECRET"

	// RPCListenEnv is the listen address of the control endpoint.
	RPCListenEnv = "WARPSTREAM_RPC_LISTEN"

	// CacheDBEnv is the path of the sqlite tile cache.
	CacheDBEnv = "WARPSTREAM_CACHE_DB"

	// ProxyEnv is the proxy URL used for HTTP(S) tile fetches.
	ProxyEnv = "WARPSTREAM_PROXY"

	// SSHKeyEnv is the private key used for sftp:// tiles.
	SSHKeyEnv = "WARPSTREAM_SSH_KEY"

	// DebugEnv enables debug logging.
	DebugEnv = "WARPSTREAM_DEBUG"
)

// VersionCheckEnv suppresses the player/client version mismatch warning when
// set to any non-empty value.
const VersionCheckEnv = "WARPSTREAM_SUPPRESS_VERSION_CHECK"
