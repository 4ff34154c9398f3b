// Package envman is cellar's environment manager: it owns the
// per-environment configuration record, persists it as cellar.yml
// inside the environment directory, and provides the install routines
// the installer engine drives through the EnvironmentManager contract.
package envman

import (
	"context"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/usecellar/cellar/pkg/components"
	"github.com/usecellar/cellar/pkg/errors"
	"github.com/usecellar/cellar/pkg/logging"
	"github.com/usecellar/cellar/pkg/paths"
	"github.com/usecellar/cellar/pkg/steps"
	"github.com/usecellar/cellar/pkg/types"
)

// StepRunner runs a dependency's install steps inside an environment.
type StepRunner interface {
	Run(ctx context.Context, env *types.EnvironmentConfig, installSteps []types.InstallStep) ([]steps.Result, error)
}

// Options configures a Manager.
type Options struct {
	// Paths resolves the on-disk layout
	Paths paths.Paths

	// Components installs compatibility components
	Components *components.Installer

	// ComponentsRepo is the component repository base URL
	ComponentsRepo string

	// Runner executes dependency install steps; nil disables dependency
	// installs (tickets resolve with an error)
	Runner StepRunner
}

// Manager implements types.EnvironmentManager on the local filesystem.
type Manager struct {
	paths          paths.Paths
	components     *components.Installer
	componentsRepo string
	runner         StepRunner

	// mu serializes configuration writes per manager
	mu sync.Mutex
}

// New creates a Manager.
func New(opts Options) *Manager {
	return &Manager{
		paths:          opts.Paths,
		components:     opts.Components,
		componentsRepo: opts.ComponentsRepo,
		runner:         opts.Runner,
	}
}

// SetRunner installs the step runner after construction. The runner
// usually launches processes through this manager, so callers wire it
// in once both ends exist.
func (m *Manager) SetRunner(runner StepRunner) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runner = runner
}

// EnvironmentPath resolves the absolute directory of an environment.
func (m *Manager) EnvironmentPath(config *types.EnvironmentConfig) string {
	return m.paths.EnvironmentDir(config.Path)
}

// Load reads an environment's configuration from its directory.
func (m *Manager) Load(envPath string) (*types.EnvironmentConfig, error) {
	configPath := m.paths.EnvironmentConfigPath(envPath)
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Newf(errors.ErrEnvNotFound, "no environment at %s", envPath)
		}
		return nil, errors.Wrapf(err, errors.ErrEnvLoad, "cannot read %s", configPath)
	}

	var config types.EnvironmentConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.Wrapf(err, errors.ErrEnvLoad, "cannot parse %s", configPath)
	}
	if config.Path == "" {
		config.Path = envPath
	}
	return &config, nil
}

// LoadByName finds an environment whose configured Name matches.
func (m *Manager) LoadByName(name string) (*types.EnvironmentConfig, error) {
	entries, err := os.ReadDir(m.paths.EnvironmentsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Newf(errors.ErrEnvNotFound, "no environment named %s", name)
		}
		return nil, errors.Wrap(err, errors.ErrEnvLoad, "cannot list environments")
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		config, err := m.Load(entry.Name())
		if err != nil {
			continue
		}
		if config.Name == name {
			return config, nil
		}
	}
	return nil, errors.Newf(errors.ErrEnvNotFound, "no environment named %s", name)
}

// Create makes a new environment directory with an empty drive and
// persists its initial configuration. The directory name doubles as
// the environment's Path.
func (m *Manager) Create(name string) (*types.EnvironmentConfig, error) {
	config := &types.EnvironmentConfig{Name: name, Path: name}

	if _, err := m.Load(config.Path); err == nil {
		return nil, errors.Newf(errors.ErrInvalidInput, "environment %s already exists", name)
	}

	driveDir := m.paths.DriveDir(config.Path)
	if err := os.MkdirAll(driveDir, 0755); err != nil {
		return nil, errors.Wrapf(err, errors.ErrDirCreate, "cannot create %s", driveDir)
	}
	if err := m.Save(config); err != nil {
		return nil, err
	}
	return config, nil
}

// List loads every environment with a readable configuration.
func (m *Manager) List() ([]*types.EnvironmentConfig, error) {
	entries, err := os.ReadDir(m.paths.EnvironmentsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, errors.ErrEnvLoad, "cannot list environments")
	}

	var configs []*types.EnvironmentConfig
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		config, err := m.Load(entry.Name())
		if err != nil {
			continue
		}
		configs = append(configs, config)
	}
	return configs, nil
}

// Save persists the configuration into the environment directory.
func (m *Manager) Save(config *types.EnvironmentConfig) error {
	dir := m.paths.EnvironmentDir(config.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, errors.ErrDirCreate, "cannot create %s", dir)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "cannot marshal environment configuration")
	}

	configPath := m.paths.EnvironmentConfigPath(config.Path)
	tmpPath := configPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "cannot write %s", tmpPath)
	}
	if err := os.Rename(tmpPath, configPath); err != nil {
		_ = os.Remove(tmpPath)
		return errors.Wrapf(err, errors.ErrFileWrite, "cannot replace %s", configPath)
	}
	return nil
}

// UpdateConfiguration persists one key/value into the given scope and
// returns the updated configuration. The stored file is the source of
// truth: the update is applied on top of what is on disk, so successive
// updates accumulate, and the caller's copy is refreshed with the
// persisted state.
func (m *Manager) UpdateConfiguration(ctx context.Context, config *types.EnvironmentConfig, key string, value any, scope types.Scope) (*types.EnvironmentConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	updated, err := m.Load(config.Path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfigUpdate, "cannot persist %s", key)
	}
	switch scope {
	case types.ScopeParameters:
		if updated.Parameters == nil {
			updated.Parameters = make(map[string]any)
		}
		updated.Parameters[key] = value
	case types.ScopePrograms:
		arguments, ok := value.(string)
		if !ok {
			return nil, errors.Newf(errors.ErrInvalidInput,
				"Programs scope takes string arguments, got %T", value)
		}
		if updated.Programs == nil {
			updated.Programs = make(map[string]string)
		}
		updated.Programs[key] = arguments
	default:
		return nil, errors.Newf(errors.ErrInvalidInput, "unknown configuration scope %q", scope)
	}

	if err := m.Save(updated); err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfigUpdate, "cannot persist %s", key)
	}
	*config = *updated

	logger := logging.GetLogger("envman")
	logger.Debug().
		Str("environment", updated.Name).
		Str("key", key).
		Str("scope", string(scope)).
		Msg("Updated configuration")
	return updated, nil
}

// InstallDxvk installs the pinned dxvk component.
func (m *Manager) InstallDxvk(ctx context.Context, config *types.EnvironmentConfig) error {
	return m.installComponent(ctx, config, components.DxvkSpec(m.componentsRepo))
}

// InstallVkd3d installs the pinned vkd3d component.
func (m *Manager) InstallVkd3d(ctx context.Context, config *types.EnvironmentConfig) error {
	return m.installComponent(ctx, config, components.Vkd3dSpec(m.componentsRepo))
}

func (m *Manager) installComponent(ctx context.Context, config *types.EnvironmentConfig, spec components.Spec) error {
	if m.components == nil {
		return errors.New(errors.ErrNotImplemented, "no component installer configured")
	}

	dir, err := m.components.Install(ctx, spec)
	if err != nil {
		return err
	}

	logger := logging.GetLogger("envman")
	logger.Info().
		Str("environment", config.Name).
		Str("component", spec.Name).
		Str("path", dir).
		Msg("Component available for environment")
	return nil
}

// AsyncInstallDependency runs the dependency's install steps on a
// background goroutine and returns a ticket resolved on completion.
// On success the dependency id is recorded in the environment's
// installed set.
func (m *Manager) AsyncInstallDependency(ctx context.Context, config *types.EnvironmentConfig, id string, descriptor types.DependencyDescriptor) *types.DependencyTicket {
	logger := logging.GetLogger("envman")
	ticket := types.NewDependencyTicket(id)

	m.mu.Lock()
	runner := m.runner
	m.mu.Unlock()
	if runner == nil {
		ticket.Resolve(errors.New(errors.ErrNotImplemented, "no step runner configured"))
		return ticket
	}

	go func() {
		results, err := runner.Run(ctx, config, descriptor.Steps)
		if err == nil {
			for _, result := range results {
				if result.Failed() {
					err = errors.Wrapf(result.Err, errors.ErrDependency,
						"dependency %s step failed", id)
					break
				}
			}
		}

		if err == nil {
			err = m.recordDependency(config, id)
		}

		if err != nil {
			logger.Error().Err(err).Str("dependency", id).Msg("Dependency install failed")
		} else {
			logger.Info().Str("dependency", id).Str("environment", config.Name).Msg("Dependency installed")
		}
		ticket.Resolve(err)
	}()

	return ticket
}

func (m *Manager) recordDependency(config *types.EnvironmentConfig, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	updated, err := m.Load(config.Path)
	if err != nil {
		return err
	}
	if !updated.HasDependency(id) {
		updated.InstalledDependencies = append(updated.InstalledDependencies, id)
		if err := m.Save(updated); err != nil {
			return err
		}
	}
	*config = *updated
	return nil
}
