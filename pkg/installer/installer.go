// Package installer orchestrates the full installation of a cataloged
// application into an environment: manifest retrieval, icon and payload
// staging, dependency resolution, step execution, configuration updates
// and desktop entry publication.
package installer

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/usecellar/cellar/pkg/catalog"
	"github.com/usecellar/cellar/pkg/config"
	"github.com/usecellar/cellar/pkg/deps"
	"github.com/usecellar/cellar/pkg/desktop"
	"github.com/usecellar/cellar/pkg/errors"
	"github.com/usecellar/cellar/pkg/logging"
	"github.com/usecellar/cellar/pkg/params"
	"github.com/usecellar/cellar/pkg/staging"
	"github.com/usecellar/cellar/pkg/steps"
	"github.com/usecellar/cellar/pkg/types"
)

// Notifier delivers completion callbacks outside the install goroutine.
type Notifier interface {
	Notify(fn func())
}

// GoroutineNotifier runs callbacks on their own goroutine. It is the
// default; UI frontends substitute a notifier that hops onto their
// event loop.
type GoroutineNotifier struct{}

// Notify implements Notifier.
func (GoroutineNotifier) Notify(fn func()) { go fn() }

// Job is the handle for one asynchronous install.
type Job struct {
	// Environment names the target environment
	Environment string

	// Installer names the manifest being installed
	Installer string

	done chan struct{}

	mu        sync.Mutex
	err       error
	results   []steps.Result
	entryPath string
}

func newJob(envName, installerName string) *Job {
	return &Job{
		Environment: envName,
		Installer:   installerName,
		done:        make(chan struct{}),
	}
}

// Done returns a channel closed when the install has finished.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Wait blocks until the install finishes or ctx is canceled, then
// returns the job's error.
func (j *Job) Wait(ctx context.Context) error {
	select {
	case <-j.done:
		return j.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err returns the install's failure, if any. Valid once Done is closed.
func (j *Job) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

// Results returns the per-step outcomes. Valid once Done is closed.
func (j *Job) Results() []steps.Result {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.results
}

// EntryPath returns the published desktop entry path, or "" when no
// entry was written. Valid once Done is closed.
func (j *Job) EntryPath() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.entryPath
}

func (j *Job) finish(results []steps.Result, entryPath string, err error) {
	j.mu.Lock()
	j.results = results
	j.entryPath = entryPath
	j.err = err
	j.mu.Unlock()
	close(j.done)
}

// Orchestrator drives installs end to end. Installs into the same
// environment are serialized; installs into distinct environments run
// concurrently.
type Orchestrator struct {
	catalog    *catalog.Client
	stager     *staging.Stager
	steps      *steps.Executor
	deps       *deps.Installer
	params     *params.Applier
	desktop    *desktop.Publisher
	manager    types.EnvironmentManager
	strictness config.Strictness
	notifier   Notifier
	logger     zerolog.Logger

	mu       sync.Mutex
	envLocks map[string]*sync.Mutex
}

// Options configures an Orchestrator.
type Options struct {
	Catalog *catalog.Client
	Stager  *staging.Stager
	Steps   *steps.Executor
	Deps    *deps.Installer
	Params  *params.Applier
	Desktop *desktop.Publisher
	Manager types.EnvironmentManager

	// Strictness selects the failure policy for dependency
	// installation; empty means best-effort
	Strictness config.Strictness

	// Notifier delivers completion callbacks; nil means
	// GoroutineNotifier
	Notifier Notifier
}

// New creates an Orchestrator.
func New(opts Options) *Orchestrator {
	strictness := opts.Strictness
	if strictness == "" {
		strictness = config.StrictnessBestEffort
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = GoroutineNotifier{}
	}
	return &Orchestrator{
		catalog:    opts.Catalog,
		stager:     opts.Stager,
		steps:      opts.Steps,
		deps:       opts.Deps,
		params:     opts.Params,
		desktop:    opts.Desktop,
		manager:    opts.Manager,
		strictness: strictness,
		notifier:   notifier,
		logger:     logging.GetLogger("installer"),
		envLocks:   make(map[string]*sync.Mutex),
	}
}

// Install starts an asynchronous install of the named manifest into the
// environment and returns its job handle. When done is non-nil it is
// delivered through the notifier after the job finishes, success or
// failure.
func (o *Orchestrator) Install(ctx context.Context, env *types.EnvironmentConfig, name, category string, done func()) *Job {
	job := newJob(env.Name, name)

	go func() {
		lock := o.envLock(env)
		lock.Lock()
		defer lock.Unlock()

		results, entryPath, err := o.run(ctx, env, name, category)
		if err != nil {
			o.logger.Error().Err(err).
				Str("environment", env.Name).
				Str("installer", name).
				Msg("Install failed")
		} else {
			o.logger.Info().
				Str("environment", env.Name).
				Str("installer", name).
				Msg("Install finished")
		}
		job.finish(results, entryPath, err)

		if done != nil {
			o.notifier.Notify(done)
		}
	}()

	return job
}

// envLock returns the mutex serializing installs for one environment.
func (o *Orchestrator) envLock(env *types.EnvironmentConfig) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	lock, ok := o.envLocks[env.Path]
	if !ok {
		lock = &sync.Mutex{}
		o.envLocks[env.Path] = lock
	}
	return lock
}

func (o *Orchestrator) run(ctx context.Context, env *types.EnvironmentConfig, name, category string) ([]steps.Result, string, error) {
	complete := logging.LogOperationStart(o.logger.With().
		Str("environment", env.Name).
		Str("installer", name).
		Str("category", category).
		Logger(), "install")
	defer complete()

	manifest, err := o.catalog.Fetch(ctx, name, category)
	if err != nil {
		return nil, "", err
	}

	// A missing icon degrades the desktop entry, never the install.
	if err := o.placeIcon(ctx, env, manifest); err != nil {
		o.logger.Warn().Err(err).
			Str("icon", manifest.Executable.Icon).
			Msg("Could not retrieve icon, using the default")
		manifest.Executable.Icon = ""
	}

	if err := o.installDependencies(ctx, env, manifest.Dependencies); err != nil {
		return nil, "", err
	}

	results, err := o.steps.Run(ctx, env, manifest.Steps)
	if err != nil {
		return results, "", err
	}

	if err := o.params.Apply(ctx, env, manifest.Parameters); err != nil {
		return results, "", err
	}
	if err := o.params.RegisterArguments(ctx, env, manifest.Executable); err != nil {
		return results, "", err
	}

	// A nil publisher means entry publication is turned off.
	if o.desktop == nil {
		return results, "", nil
	}
	entryPath, err := o.desktop.Publish(env, manifest, manifest.Executable)
	if err != nil {
		return results, "", err
	}
	return results, entryPath, nil
}

// placeIcon stages the manifest's icon and copies it into the
// environment's icons directory, where the desktop entry expects it.
func (o *Orchestrator) placeIcon(ctx context.Context, env *types.EnvironmentConfig, manifest *types.Manifest) error {
	icon := manifest.Executable.Icon
	if icon == "" {
		return nil
	}

	staged, err := o.stager.EnsureAsset(ctx, staging.Request{
		Kind:     staging.KindIcon,
		URL:      o.catalog.IconURL(manifest.Name, icon),
		FileName: icon,
	})
	if err != nil {
		return err
	}

	iconsDir := filepath.Join(o.manager.EnvironmentPath(env), "icons")
	if err := os.MkdirAll(iconsDir, 0755); err != nil {
		return errors.Wrapf(err, errors.ErrDirCreate, "cannot create %s", iconsDir)
	}
	return copyFile(staged, filepath.Join(iconsDir, icon))
}

func (o *Orchestrator) installDependencies(ctx context.Context, env *types.EnvironmentConfig, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	tickets := o.deps.InstallMissing(ctx, env, ids)
	failed := deps.Await(ctx, tickets)
	if len(failed) == 0 {
		return nil
	}

	if o.strictness == config.StrictnessAbort {
		return errors.Newf(errors.ErrDependency, "dependencies failed: %v", failed)
	}
	o.logger.Warn().
		Strs("dependencies", failed).
		Msg("Some dependencies failed, continuing")
	return nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.Wrapf(err, errors.ErrFileAccess, "cannot open %s", src)
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dest)
	if err != nil {
		return errors.Wrapf(err, errors.ErrFileCreate, "cannot create %s", dest)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dest)
		return errors.Wrapf(err, errors.ErrFileWrite, "cannot write %s", dest)
	}
	return out.Close()
}
