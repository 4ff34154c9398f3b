// Package steps interprets an installer's ordered step list: stage each
// step's payload, then run it inside the target environment.
package steps

import (
	"context"

	"github.com/usecellar/cellar/pkg/config"
	"github.com/usecellar/cellar/pkg/errors"
	"github.com/usecellar/cellar/pkg/logging"
	"github.com/usecellar/cellar/pkg/staging"
	"github.com/usecellar/cellar/pkg/types"
)

// AssetStager is the slice of the staging API the executor needs.
type AssetStager interface {
	EnsureAsset(ctx context.Context, req staging.Request) (string, error)
}

// Result is the outcome of one step.
type Result struct {
	// Step is the executed step
	Step types.InstallStep

	// AssetPath is where the payload was staged, when staging succeeded
	AssetPath string

	// Skipped is true when the step's action is not a recognized
	// install action
	Skipped bool

	// Err records the staging or launch failure, if any
	Err error
}

// Failed reports whether the step ran and failed.
func (r *Result) Failed() bool {
	return r.Err != nil
}

// Executor runs install steps sequentially and in manifest order.
type Executor struct {
	stager     AssetStager
	launcher   types.ProcessLauncher
	strictness config.Strictness
}

// Options configures an Executor.
type Options struct {
	Stager   AssetStager
	Launcher types.ProcessLauncher

	// Strictness selects the failure policy; empty means best-effort
	Strictness config.Strictness
}

// New creates a step executor.
func New(opts Options) *Executor {
	strictness := opts.Strictness
	if strictness == "" {
		strictness = config.StrictnessBestEffort
	}
	return &Executor{
		stager:     opts.Stager,
		launcher:   opts.Launcher,
		strictness: strictness,
	}
}

// Run executes the steps in order, one at a time. Each step stages its
// payload first; a staging failure skips that step's process launch.
// Under best-effort strictness failures are recorded per step and the
// sequence continues; under abort strictness the first failure stops
// the sequence and is returned.
func (e *Executor) Run(ctx context.Context, env *types.EnvironmentConfig, installSteps []types.InstallStep) ([]Result, error) {
	logger := logging.GetLogger("steps")
	results := make([]Result, 0, len(installSteps))

	for i, step := range installSteps {
		result := e.runStep(ctx, env, step)
		results = append(results, result)

		if result.Skipped {
			logger.Debug().
				Int("step", i).
				Str("action", string(step.Action)).
				Msg("Unrecognized step action, skipping")
			continue
		}

		if result.Failed() {
			logger.Error().
				Err(result.Err).
				Int("step", i).
				Str("file", step.StagedName()).
				Msg("Step failed")

			if e.strictness == config.StrictnessAbort {
				return results, errors.Wrapf(result.Err, errors.ErrStepFailed,
					"step %d (%s) failed", i, step.StagedName())
			}
		}
	}

	return results, nil
}

func (e *Executor) runStep(ctx context.Context, env *types.EnvironmentConfig, step types.InstallStep) Result {
	result := Result{Step: step}

	if !step.Action.IsInstallAction() {
		result.Skipped = true
		return result
	}

	path, err := e.stager.EnsureAsset(ctx, staging.Request{
		Kind:     staging.KindInstaller,
		URL:      step.URL,
		FileName: step.FileName,
		Rename:   step.Rename,
		Checksum: step.Checksum,
	})
	if err != nil {
		// No payload, no launch. Sibling steps are unaffected.
		result.Err = err
		return result
	}
	result.AssetPath = path

	if err := e.launcher.RunExecutable(ctx, env, path, step.Arguments, step.Environment); err != nil {
		result.Err = err
	}
	return result
}
