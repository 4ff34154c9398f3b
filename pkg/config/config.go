// Package config loads cellar's layered configuration: embedded
// defaults, the user config file, then CELLAR_* environment variables.
package config

import "time"

// Strictness controls how a step sequence reacts to a failed step.
type Strictness string

const (
	// StrictnessBestEffort logs step failures and continues
	StrictnessBestEffort Strictness = "best-effort"

	// StrictnessAbort stops the step sequence at the first failure
	StrictnessAbort Strictness = "abort"
)

// Valid reports whether the strictness value is recognized.
func (s Strictness) Valid() bool {
	return s == StrictnessBestEffort || s == StrictnessAbort
}

// RepositoriesConfig holds the remote catalog locations.
type RepositoriesConfig struct {
	// Installers is the base URL of the installer catalog
	Installers string `koanf:"installers" toml:"installers"`

	// Components is the base URL of the compatibility component repository
	Components string `koanf:"components" toml:"components"`
}

// InstallConfig holds installer-execution settings.
type InstallConfig struct {
	// Strictness selects best-effort or abort-on-first-failure
	Strictness Strictness `koanf:"strictness" toml:"strictness"`

	// DownloadTimeout bounds a single asset download, in seconds
	DownloadTimeout int `koanf:"download_timeout" toml:"download_timeout"`
}

// DesktopConfig holds launcher-entry settings.
type DesktopConfig struct {
	// PublishEntries toggles .desktop entry creation after installs
	PublishEntries bool `koanf:"publish_entries" toml:"publish_entries"`

	// UpdateMenu toggles maintenance of the cellar menu file
	UpdateMenu bool `koanf:"update_menu" toml:"update_menu"`
}

// NetworkConfig holds connectivity-probe settings.
type NetworkConfig struct {
	// ProbeHost is dialed to test catalog reachability
	ProbeHost string `koanf:"probe_host" toml:"probe_host"`

	// ProbeTimeout bounds the probe dial, in seconds
	ProbeTimeout int `koanf:"probe_timeout" toml:"probe_timeout"`
}

// Config is the fully resolved cellar configuration.
type Config struct {
	Repositories RepositoriesConfig `koanf:"repositories" toml:"repositories"`
	Install      InstallConfig      `koanf:"install" toml:"install"`
	Desktop      DesktopConfig      `koanf:"desktop" toml:"desktop"`
	Network      NetworkConfig      `koanf:"network" toml:"network"`
}

// DownloadTimeout returns the download timeout as a duration.
func (c *Config) DownloadTimeout() time.Duration {
	return time.Duration(c.Install.DownloadTimeout) * time.Second
}

// ProbeTimeout returns the connectivity probe timeout as a duration.
func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Network.ProbeTimeout) * time.Second
}
