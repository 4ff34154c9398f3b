package envman_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/usecellar/cellar/pkg/envman"
	"github.com/usecellar/cellar/pkg/errors"
	"github.com/usecellar/cellar/pkg/paths"
	"github.com/usecellar/cellar/pkg/steps"
	"github.com/usecellar/cellar/pkg/types"
)

// failRunner fails every dependency step sequence.
type failRunner struct{}

func (failRunner) Run(ctx context.Context, env *types.EnvironmentConfig, installSteps []types.InstallStep) ([]steps.Result, error) {
	return nil, errors.New(errors.ErrProcessLaunch, "boom")
}

// okRunner succeeds without doing anything.
type okRunner struct{}

func (okRunner) Run(ctx context.Context, env *types.EnvironmentConfig, installSteps []types.InstallStep) ([]steps.Result, error) {
	return nil, nil
}

func newManager(t *testing.T, runner envman.StepRunner) (*envman.Manager, paths.Paths) {
	t.Helper()
	t.Setenv(paths.EnvCellarDataDir, t.TempDir())
	t.Setenv(paths.EnvCellarCacheDir, t.TempDir())
	t.Setenv(paths.EnvCellarConfigDir, t.TempDir())
	p := paths.New()
	return envman.New(envman.Options{Paths: p, Runner: runner}), p
}

func seedEnvironment(t *testing.T, manager *envman.Manager) *types.EnvironmentConfig {
	t.Helper()
	config := &types.EnvironmentConfig{
		Name:       "gaming",
		Path:       "gaming-1",
		Parameters: map[string]any{"dxvk": false},
	}
	require.NoError(t, manager.Save(config))
	return config
}

func TestSaveAndLoad(t *testing.T) {
	manager, p := newManager(t, nil)
	config := seedEnvironment(t, manager)

	assert.FileExists(t, p.EnvironmentConfigPath("gaming-1"))

	loaded, err := manager.Load("gaming-1")
	require.NoError(t, err)
	assert.Equal(t, config.Name, loaded.Name)
	assert.Equal(t, false, loaded.Parameters["dxvk"])
}

func TestLoad_MissingEnvironment(t *testing.T) {
	manager, _ := newManager(t, nil)
	_, err := manager.Load("nope")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrEnvNotFound))
}

func TestLoadByName(t *testing.T) {
	manager, _ := newManager(t, nil)
	seedEnvironment(t, manager)

	config, err := manager.LoadByName("gaming")
	require.NoError(t, err)
	assert.Equal(t, "gaming-1", config.Path)

	_, err = manager.LoadByName("office")
	assert.True(t, errors.IsErrorCode(err, errors.ErrEnvNotFound))
}

func TestUpdateConfiguration_Parameters(t *testing.T) {
	manager, _ := newManager(t, nil)
	config := seedEnvironment(t, manager)

	updated, err := manager.UpdateConfiguration(context.Background(), config, "dxvk", true, types.ScopeParameters)
	require.NoError(t, err)

	assert.Equal(t, true, updated.Parameters["dxvk"])
	assert.Equal(t, true, config.Parameters["dxvk"], "caller's copy follows the persisted state")

	// The change is durable.
	loaded, err := manager.Load("gaming-1")
	require.NoError(t, err)
	assert.Equal(t, true, loaded.Parameters["dxvk"])
}

func TestUpdateConfiguration_SuccessiveUpdatesAccumulate(t *testing.T) {
	manager, _ := newManager(t, nil)
	config := seedEnvironment(t, manager)

	_, err := manager.UpdateConfiguration(context.Background(), config, "dxvk", true, types.ScopeParameters)
	require.NoError(t, err)
	_, err = manager.UpdateConfiguration(context.Background(), config, "esync", true, types.ScopeParameters)
	require.NoError(t, err)
	_, err = manager.UpdateConfiguration(context.Background(), config, "app.exe", "--fast", types.ScopePrograms)
	require.NoError(t, err)

	// Every write survives on disk, not just the last one.
	loaded, err := manager.Load("gaming-1")
	require.NoError(t, err)
	assert.Equal(t, true, loaded.Parameters["dxvk"])
	assert.Equal(t, true, loaded.Parameters["esync"])
	assert.Equal(t, "--fast", loaded.Programs["app.exe"])
}

func TestUpdateConfiguration_UnsavedEnvironment(t *testing.T) {
	manager, _ := newManager(t, nil)
	config := &types.EnvironmentConfig{Name: "ghost", Path: "ghost-1"}

	_, err := manager.UpdateConfiguration(context.Background(), config, "dxvk", true, types.ScopeParameters)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrConfigUpdate))
}

func TestUpdateConfiguration_Programs(t *testing.T) {
	manager, _ := newManager(t, nil)
	config := seedEnvironment(t, manager)

	updated, err := manager.UpdateConfiguration(context.Background(), config, "game.exe", "-windowed", types.ScopePrograms)
	require.NoError(t, err)
	assert.Equal(t, "-windowed", updated.Programs["game.exe"])

	_, err = manager.UpdateConfiguration(context.Background(), config, "game.exe", 42, types.ScopePrograms)
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))
}

func TestUpdateConfiguration_UnknownScope(t *testing.T) {
	manager, _ := newManager(t, nil)
	config := seedEnvironment(t, manager)

	_, err := manager.UpdateConfiguration(context.Background(), config, "k", "v", types.Scope("Nope"))
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))
}

func TestEnvironmentPath(t *testing.T) {
	manager, p := newManager(t, nil)
	config := &types.EnvironmentConfig{Name: "gaming", Path: "gaming-1"}
	assert.Equal(t, p.EnvironmentDir("gaming-1"), manager.EnvironmentPath(config))
}

func TestAsyncInstallDependency_Success(t *testing.T) {
	manager, _ := newManager(t, okRunner{})
	config := seedEnvironment(t, manager)

	ticket := manager.AsyncInstallDependency(context.Background(), config, "corefonts", types.DependencyDescriptor{})
	<-ticket.Done()
	require.NoError(t, ticket.Err())

	assert.True(t, config.HasDependency("corefonts"))
	loaded, err := manager.Load("gaming-1")
	require.NoError(t, err)
	assert.True(t, loaded.HasDependency("corefonts"))
}

func TestAsyncInstallDependency_Failure(t *testing.T) {
	manager, _ := newManager(t, failRunner{})
	config := seedEnvironment(t, manager)

	ticket := manager.AsyncInstallDependency(context.Background(), config, "corefonts", types.DependencyDescriptor{})
	<-ticket.Done()
	require.Error(t, ticket.Err())
	assert.False(t, config.HasDependency("corefonts"))
}

func TestParseDependencyIndex(t *testing.T) {
	data := []byte(`
corefonts:
  Description: Microsoft core fonts
  Category: fonts
  Steps:
    - action: install_exe
      url: https://example.com/corefonts.exe
      file_name: corefonts.exe
`)
	index, err := envman.ParseDependencyIndex(data)
	require.NoError(t, err)

	descriptor, ok := index.Lookup("corefonts")
	require.True(t, ok)
	assert.Equal(t, "fonts", descriptor.Category)
	require.Len(t, descriptor.Steps, 1)
	assert.Equal(t, types.ActionInstallExe, descriptor.Steps[0].Action)

	_, ok = index.Lookup("unknown")
	assert.False(t, ok)
}

func TestLoadDependencyIndex(t *testing.T) {
	index, err := envman.LoadDependencyIndex("/does/not/exist.yml")
	require.NoError(t, err)
	assert.Empty(t, index, "missing index file reads as empty")

	path := filepath.Join(t.TempDir(), "dependencies.yml")
	require.NoError(t, os.WriteFile(path, []byte("vcredist2019:\n  Category: runtimes\n"), 0644))

	index, err = envman.LoadDependencyIndex(path)
	require.NoError(t, err)
	_, ok := index.Lookup("vcredist2019")
	assert.True(t, ok)
}

func TestCreate(t *testing.T) {
	manager, p := newManager(t, nil)

	config, err := manager.Create("studio")
	require.NoError(t, err)
	assert.Equal(t, "studio", config.Name)
	assert.DirExists(t, p.DriveDir(config.Path))
	assert.FileExists(t, p.EnvironmentConfigPath(config.Path))

	_, err = manager.Create("studio")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))
}

func TestList(t *testing.T) {
	manager, _ := newManager(t, nil)

	configs, err := manager.List()
	require.NoError(t, err)
	assert.Empty(t, configs)

	seedEnvironment(t, manager)
	_, err = manager.Create("studio")
	require.NoError(t, err)

	configs, err = manager.List()
	require.NoError(t, err)
	assert.Len(t, configs, 2)
}

func TestSetRunner(t *testing.T) {
	manager, _ := newManager(t, nil)
	config := seedEnvironment(t, manager)

	ticket := manager.AsyncInstallDependency(context.Background(), config, "corefonts", types.DependencyDescriptor{})
	<-ticket.Done()
	require.Error(t, ticket.Err(), "no runner configured yet")

	manager.SetRunner(okRunner{})
	ticket = manager.AsyncInstallDependency(context.Background(), config, "corefonts", types.DependencyDescriptor{})
	<-ticket.Done()
	assert.NoError(t, ticket.Err())
}
