// Package params applies a manifest's declared parameters to an
// environment and registers the installed executable's default
// arguments.
package params

import (
	"context"
	"sort"

	"github.com/usecellar/cellar/pkg/errors"
	"github.com/usecellar/cellar/pkg/logging"
	"github.com/usecellar/cellar/pkg/types"
)

// Applier persists manifest parameters through the environment
// manager's update contract.
type Applier struct {
	manager types.EnvironmentManager
}

// New creates a parameter applier.
func New(manager types.EnvironmentManager) *Applier {
	return &Applier{manager: manager}
}

// Apply installs the compatibility-layer toggles that transition from
// disabled to enabled, then persists every declared parameter into the
// environment's Parameters scope. A toggle that is already enabled is
// never reinstalled; its value is still written (idempotent write).
func (a *Applier) Apply(ctx context.Context, env *types.EnvironmentConfig, parameters map[string]any) error {
	logger := logging.GetLogger("params")

	if wantsToggle(parameters, types.ParamDXVK) && !env.BoolParameter(types.ParamDXVK) {
		logger.Info().Str("environment", env.Name).Msg("Enabling dxvk")
		if err := a.manager.InstallDxvk(ctx, env); err != nil {
			return errors.Wrap(err, errors.ErrComponent, "dxvk install failed")
		}
	}

	if wantsToggle(parameters, types.ParamVKD3D) && !env.BoolParameter(types.ParamVKD3D) {
		logger.Info().Str("environment", env.Name).Msg("Enabling vkd3d")
		if err := a.manager.InstallVkd3d(ctx, env); err != nil {
			return errors.Wrap(err, errors.ErrComponent, "vkd3d install failed")
		}
	}

	// Deterministic write order keeps logs and tests stable.
	keys := make([]string, 0, len(parameters))
	for key := range parameters {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if _, err := a.manager.UpdateConfiguration(ctx, env, key, parameters[key], types.ScopeParameters); err != nil {
			return errors.Wrapf(err, errors.ErrConfigUpdate, "cannot persist parameter %s", key)
		}
	}
	return nil
}

// RegisterArguments persists the executable's default invocation
// arguments into the Programs scope, keyed by the executable file.
// Nothing is written when the manifest declares no arguments.
func (a *Applier) RegisterArguments(ctx context.Context, env *types.EnvironmentConfig, executable types.ExecutableSpec) error {
	if executable.Arguments == "" {
		return nil
	}
	if _, err := a.manager.UpdateConfiguration(ctx, env, executable.File, executable.Arguments, types.ScopePrograms); err != nil {
		return errors.Wrapf(err, errors.ErrConfigUpdate,
			"cannot register arguments for %s", executable.File)
	}
	return nil
}

// wantsToggle reads a parameter as a requested-on toggle.
func wantsToggle(parameters map[string]any, key string) bool {
	v, ok := parameters[key].(bool)
	return ok && v
}
