package conventions

import "path/filepath"

const (
	// DefaultDataDir is the default stackrun data directory name (relative to home).
	DefaultDataDir = ".stackrun"
	// DBFile is the run history database filename.
	DBFile = "stackrun.db"

	// DefaultConfigFile is the default config file base name.
	DefaultConfigFile = "stack.config"
	// DotenvFile is the dotenv file loaded from the working directory.
	DotenvFile = ".env"

	// RunTmpDir is the per run temporary directory (relative to the working directory).
	RunTmpDir = ".stackrun-tmp"
	// CloudflaredConfigFile is the cloudflared config filename written by the tunnel agent.
	CloudflaredConfigFile = "config.yml"

	// TunnelProcessName is the default label of the tunnel process.
	TunnelProcessName = "TUNN"
	// TunnelCommandName is the hidden command that runs the tunnel agent.
	TunnelCommandName = "tunnel"
	// DefaultTunnelName is the tunnel name used when none is configured.
	DefaultTunnelName = "stackrun"
)

// Environment variables.
const (
	EnvTunnelPayload        = "STACKRUN_TUNNEL_PAYLOAD"
	EnvDBPath               = "STACKRUN_DB_PATH"
	EnvTunnel               = "TUNNEL"
	EnvCFToken              = "CF_TOKEN"
	EnvCloudflareToken      = "CLOUDFLARE_TOKEN"
	EnvCFTunnelName         = "CF_TUNNEL_NAME"
	EnvCloudflareTunnelName = "CLOUDFLARE_TUNNEL_NAME"
	// EnvTunnelToken is the tunnel token env var read by `cloudflared tunnel run`.
	EnvTunnelToken = "TUNNEL_TOKEN"
	// EnvCloudflareAPIToken is the API token env var, never forwarded to cloudflared.
	EnvCloudflareAPIToken = "CLOUDFLARE_API_TOKEN"
)

// ConfigExtensions are the extensions tried when discovering a config file, in order.
var ConfigExtensions = []string{".yaml", ".yml", ".json", ".toml"}

// DBPath returns the run history database path inside a data dir.
func DBPath(dataDir string) string {
	return filepath.Join(dataDir, DBFile)
}

// RunTmpPath returns the run temporary directory inside a working dir.
func RunTmpPath(workDir string) string {
	return filepath.Join(workDir, RunTmpDir)
}
