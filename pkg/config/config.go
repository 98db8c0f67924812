package config

import (
	"time"

	"github.com/arthur-debert/dopkg/pkg/paths"
)

// Config is the complete dopkg configuration
type Config struct {
	Jobs      int             `koanf:"jobs"`
	Paths     PathsConfig     `koanf:"paths"`
	Fetch     FetchConfig     `koanf:"fetch"`
	Build     BuildConfig     `koanf:"build"`
	Toolchain ToolchainConfig `koanf:"toolchain"`
	Lock      LockConfig      `koanf:"lock"`
	Verify    VerifyConfig    `koanf:"verify"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

// PathsConfig overrides the XDG-derived store locations
type PathsConfig struct {
	Store   string `koanf:"store"`
	Cellar  string `koanf:"cellar"`
	Opt     string `koanf:"opt"`
	Cache   string `koanf:"cache"`
	Staging string `koanf:"staging"`
}

// FetchConfig controls downloads
type FetchConfig struct {
	Retries int           `koanf:"retries"`
	Backoff time.Duration `koanf:"backoff"`
	Timeout time.Duration `koanf:"timeout"`
	S3      S3Config      `koanf:"s3"`
	SFTP    SFTPConfig    `koanf:"sftp"`
}

// S3Config holds credentials for s3:// sources
type S3Config struct {
	Endpoint  string `koanf:"endpoint"`
	AccessKey string `koanf:"access_key"`
	SecretKey string `koanf:"secret_key"`
	Region    string `koanf:"region"`
	UseSSL    bool   `koanf:"use_ssl"`
}

// SFTPConfig holds credentials for sftp:// sources
type SFTPConfig struct {
	KeyFile    string `koanf:"key_file"`
	KnownHosts string `koanf:"known_hosts"`
}

// BuildConfig controls install step execution
type BuildConfig struct {
	Interpreter []string      `koanf:"interpreter"`
	OutputLimit int           `koanf:"output_limit"`
	Timeout     time.Duration `koanf:"timeout"`
}

// ToolchainConfig lists build tools assumed to be present
type ToolchainConfig struct {
	Tools []string `koanf:"tools"`

	// SearchPath also accepts build tools found on PATH
	SearchPath bool `koanf:"search_path"`
}

// LockConfig selects the per-package lock implementation
type LockConfig struct {
	Backend  string        `koanf:"backend"`
	RedisURL string        `koanf:"redis_url"`
	TTL      time.Duration `koanf:"ttl"`
}

// VerifyConfig controls post-install self tests
type VerifyConfig struct {
	Strict  bool          `koanf:"strict"`
	Timeout time.Duration `koanf:"timeout"`
}

// TelemetryConfig toggles trace export
type TelemetryConfig struct {
	Enabled bool `koanf:"enabled"`
}

// Lock backends
const (
	LockBackendLocal = "local"
	LockBackendRedis = "redis"
)

// Layout resolves the store layout from the configured path overrides.
func (c *Config) Layout() (paths.Paths, error) {
	return paths.New(paths.Overrides{
		Store:   c.Paths.Store,
		Cellar:  c.Paths.Cellar,
		Opt:     c.Paths.Opt,
		Cache:   c.Paths.Cache,
		Staging: c.Paths.Staging,
	})
}
