// Package paths provides centralized path handling for cellar.
// It implements XDG Base Directory specification compliance and
// provides a consistent API for all path operations in the codebase.
package paths

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
)

// Environment variable names
const (
	// EnvCellarDataDir overrides the XDG data directory for cellar
	EnvCellarDataDir = "CELLAR_DATA_DIR"

	// EnvCellarConfigDir overrides the XDG config directory for cellar
	EnvCellarConfigDir = "CELLAR_CONFIG_DIR"

	// EnvCellarCacheDir overrides the XDG cache directory for cellar
	EnvCellarCacheDir = "CELLAR_CACHE_DIR"
)

// Default directories and files
// IMPORTANT: These constants define cellar's on-disk layout and are NOT
// user-configurable. They must remain consistent across installations so
// environments created by one version stay usable by the next.
const (
	// CellarDirName is the directory name for cellar-specific files
	CellarDirName = "cellar"

	// EnvironmentsDirName is the subdirectory holding environments
	EnvironmentsDirName = "environments"

	// StagingDirName is the subdirectory for downloaded assets
	StagingDirName = "staging"

	// ComponentsDirName is the subdirectory for compatibility components
	ComponentsDirName = "components"

	// ApplicationsDirName is the desktop-entry directory under XDG data
	ApplicationsDirName = "applications"

	// MenuFileName is the XDG menu file listing cellar launcher entries
	MenuFileName = "cellar-apps.menu"

	// EnvConfigFileName is the per-environment configuration file
	EnvConfigFileName = "cellar.yml"

	// IconsDirName is the per-environment icon cache
	IconsDirName = "icons"

	// DriveDirName is the simulated system drive inside an environment
	DriveDirName = "drive_c"

	// LogFileName is the name of the log file
	LogFileName = "cellar.log"
)

// Paths provides centralized path management for cellar
type Paths interface {
	DataDir() string
	ConfigDir() string
	CacheDir() string
	EnvironmentsDir() string
	EnvironmentDir(envPath string) string
	EnvironmentConfigPath(envPath string) string
	IconsDir(envPath string) string
	DriveDir(envPath string) string
	StagingDir() string
	StagingKindDir(kind string) string
	ComponentsDir() string
	ApplicationsDir() string
	MenuFilePath() string
	ConfigFilePath() string
	LogFilePath() string
}

type paths struct {
	xdgData   string
	xdgConfig string
	xdgCache  string
	xdgState  string
}

// New creates a Paths instance, respecting CELLAR_* environment
// overrides and falling back to the XDG base directories.
func New() Paths {
	p := &paths{}

	if dataDir := os.Getenv(EnvCellarDataDir); dataDir != "" {
		p.xdgData = expandHome(dataDir)
	} else {
		p.xdgData = filepath.Join(xdg.DataHome, CellarDirName)
	}

	if configDir := os.Getenv(EnvCellarConfigDir); configDir != "" {
		p.xdgConfig = expandHome(configDir)
	} else {
		p.xdgConfig = filepath.Join(xdg.ConfigHome, CellarDirName)
	}

	if cacheDir := os.Getenv(EnvCellarCacheDir); cacheDir != "" {
		p.xdgCache = expandHome(cacheDir)
	} else {
		p.xdgCache = filepath.Join(xdg.CacheHome, CellarDirName)
	}

	// XDG doesn't provide StateHome in older adrg/xdg, so check manually
	if stateDir := os.Getenv("XDG_STATE_HOME"); stateDir != "" {
		p.xdgState = filepath.Join(stateDir, CellarDirName)
	} else {
		homeDir, _ := os.UserHomeDir()
		p.xdgState = filepath.Join(homeDir, ".local", "state", CellarDirName)
	}

	return p
}

func (p *paths) DataDir() string   { return p.xdgData }
func (p *paths) ConfigDir() string { return p.xdgConfig }
func (p *paths) CacheDir() string  { return p.xdgCache }

// EnvironmentsDir returns the directory holding all environments
func (p *paths) EnvironmentsDir() string {
	return filepath.Join(p.xdgData, EnvironmentsDirName)
}

// EnvironmentDir returns the directory of a single environment
func (p *paths) EnvironmentDir(envPath string) string {
	return filepath.Join(p.EnvironmentsDir(), envPath)
}

// EnvironmentConfigPath returns the configuration file of an environment
func (p *paths) EnvironmentConfigPath(envPath string) string {
	return filepath.Join(p.EnvironmentDir(envPath), EnvConfigFileName)
}

// IconsDir returns the icon cache inside an environment
func (p *paths) IconsDir(envPath string) string {
	return filepath.Join(p.EnvironmentDir(envPath), IconsDirName)
}

// DriveDir returns the simulated system drive inside an environment
func (p *paths) DriveDir(envPath string) string {
	return filepath.Join(p.EnvironmentDir(envPath), DriveDirName)
}

// StagingDir returns the root of the download staging area
func (p *paths) StagingDir() string {
	return filepath.Join(p.xdgCache, StagingDirName)
}

// StagingKindDir returns the staging directory for one asset kind
func (p *paths) StagingKindDir(kind string) string {
	return filepath.Join(p.StagingDir(), kind)
}

// ComponentsDir returns the directory for compatibility components
func (p *paths) ComponentsDir() string {
	return filepath.Join(p.xdgData, ComponentsDirName)
}

// ApplicationsDir returns the desktop-entry directory
func (p *paths) ApplicationsDir() string {
	return filepath.Join(filepath.Dir(p.xdgData), ApplicationsDirName)
}

// MenuFilePath returns the cellar XDG menu file
func (p *paths) MenuFilePath() string {
	return filepath.Join(p.xdgConfig, MenuFileName)
}

// ConfigFilePath returns the user configuration file
func (p *paths) ConfigFilePath() string {
	return filepath.Join(p.xdgConfig, "config.toml")
}

// LogFilePath returns the log file path
func (p *paths) LogFilePath() string {
	return filepath.Join(p.xdgState, LogFileName)
}

// expandHome expands a leading ~ to the user's home directory
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~/"))
}
