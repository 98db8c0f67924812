package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/arthur-debert/dopkg/pkg/errors"
)

// Environment variable names
const (
	// EnvDopkgHome overrides the XDG data directory that holds the store
	EnvDopkgHome = "DOPKG_HOME"

	// EnvDopkgCacheDir overrides the XDG cache directory for downloads
	EnvDopkgCacheDir = "DOPKG_CACHE_DIR"

	// EnvDopkgConfigDir overrides the XDG config directory for dopkg
	EnvDopkgConfigDir = "DOPKG_CONFIG_DIR"

	// EnvHome is the standard home directory variable
	EnvHome = "HOME"
)

// Store layout. These names are part of the on-disk format and are not
// user-configurable; only the roots are.
const (
	DopkgDirName   = "dopkg"
	RecordsDir     = "records"
	CellarDir      = "cellar"
	OptDir         = "opt"
	LocksDir       = "locks"
	DownloadsDir   = "downloads"
	StagingDir     = "staging"
	ConfigFileName = "config.toml"
	LogFileName    = "dopkg.log"
)

// Paths provides centralized path management for dopkg
type Paths interface {
	DataDir() string
	ConfigDir() string
	CacheDir() string
	ConfigFile() string
	RecordsDir() string
	RecordPath(name string) string
	CellarDir() string
	PackageDir(name string) string
	PrefixDir(name, version string) string
	OptDir() string
	OptLink(name string) string
	LocksDir() string
	LockPath(name string) string
	DownloadsDir() string
	StagingDir() string
	LogFilePath() string
}

// Overrides replaces individual roots; empty fields keep the XDG default.
type Overrides struct {
	Store   string
	Cellar  string
	Opt     string
	Cache   string
	Staging string
}

type paths struct {
	xdgData   string
	xdgConfig string
	xdgCache  string
	xdgState  string

	cellar  string
	opt     string
	staging string
}

// New creates a Paths instance. Roots come from the environment overrides,
// then XDG, then the explicit overrides, in increasing priority.
func New(o Overrides) (Paths, error) {
	p := &paths{}

	if dir := os.Getenv(EnvDopkgHome); dir != "" {
		p.xdgData = expandHome(dir)
	} else {
		p.xdgData = filepath.Join(xdg.DataHome, DopkgDirName)
	}

	if dir := os.Getenv(EnvDopkgConfigDir); dir != "" {
		p.xdgConfig = expandHome(dir)
	} else {
		p.xdgConfig = filepath.Join(xdg.ConfigHome, DopkgDirName)
	}

	if dir := os.Getenv(EnvDopkgCacheDir); dir != "" {
		p.xdgCache = expandHome(dir)
	} else {
		p.xdgCache = filepath.Join(xdg.CacheHome, DopkgDirName)
	}

	// XDG state is read manually so tests can redirect it with t.Setenv
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		p.xdgState = filepath.Join(dir, DopkgDirName)
	} else {
		homeDir, _ := os.UserHomeDir()
		p.xdgState = filepath.Join(homeDir, ".local", "state", DopkgDirName)
	}

	if o.Store != "" {
		p.xdgData = expandHome(o.Store)
	}
	if o.Cache != "" {
		p.xdgCache = expandHome(o.Cache)
	}
	p.cellar = pick(o.Cellar, filepath.Join(p.xdgData, CellarDir))
	p.opt = pick(o.Opt, filepath.Join(p.xdgData, OptDir))
	p.staging = pick(o.Staging, filepath.Join(p.xdgCache, StagingDir))

	for _, dir := range []*string{&p.xdgData, &p.xdgCache, &p.cellar, &p.opt, &p.staging} {
		abs, err := filepath.Abs(*dir)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrConfigValid, "failed to resolve %s", *dir)
		}
		*dir = abs
	}

	return p, nil
}

func pick(override, fallback string) string {
	if override != "" {
		return expandHome(override)
	}
	return fallback
}

// expandHome expands ~ to the home directory
func expandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = os.Getenv(EnvHome)
		if homeDir == "" {
			return path
		}
	}

	if len(path) == 1 {
		return homeDir
	}
	if path[1] == '/' || path[1] == filepath.Separator {
		return filepath.Join(homeDir, path[2:])
	}

	// ~user is not expanded
	return path
}

// ExpandHome expands a leading ~ in path.
func ExpandHome(path string) string {
	return expandHome(path)
}

func (p *paths) DataDir() string   { return p.xdgData }
func (p *paths) ConfigDir() string { return p.xdgConfig }
func (p *paths) CacheDir() string  { return p.xdgCache }

// ConfigFile returns the user configuration file path
func (p *paths) ConfigFile() string {
	return filepath.Join(p.xdgConfig, ConfigFileName)
}

// RecordsDir returns the directory holding one manifest per installed package
func (p *paths) RecordsDir() string {
	return filepath.Join(p.xdgData, RecordsDir)
}

// RecordPath returns the manifest path for a package
func (p *paths) RecordPath(name string) string {
	return filepath.Join(p.RecordsDir(), name+".toml")
}

// CellarDir returns the root of the versioned install prefixes
func (p *paths) CellarDir() string {
	return p.cellar
}

// PackageDir returns the directory holding every version of a package
func (p *paths) PackageDir(name string) string {
	return filepath.Join(p.cellar, name)
}

// PrefixDir returns the permanent install prefix for name@version
func (p *paths) PrefixDir(name, version string) string {
	return filepath.Join(p.PackageDir(name), version)
}

// OptDir returns the directory of stable per-package links
func (p *paths) OptDir() string {
	return p.opt
}

// OptLink returns the stable link that points at the active version
func (p *paths) OptLink(name string) string {
	return filepath.Join(p.opt, name)
}

// LocksDir returns the directory of per-package lock files
func (p *paths) LocksDir() string {
	return filepath.Join(p.xdgData, LocksDir)
}

// LockPath returns the lock file for a package name
func (p *paths) LockPath(name string) string {
	return filepath.Join(p.LocksDir(), name+".lock")
}

// DownloadsDir returns the verified download cache
func (p *paths) DownloadsDir() string {
	return filepath.Join(p.xdgCache, DownloadsDir)
}

// StagingDir returns the root under which per-attempt staging dirs are created
func (p *paths) StagingDir() string {
	return p.staging
}

// LogFilePath returns the path to the log file
func (p *paths) LogFilePath() string {
	return filepath.Join(p.xdgState, LogFileName)
}
