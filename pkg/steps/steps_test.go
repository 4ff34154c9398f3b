package steps_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/usecellar/cellar/pkg/config"
	"github.com/usecellar/cellar/pkg/errors"
	"github.com/usecellar/cellar/pkg/staging"
	"github.com/usecellar/cellar/pkg/steps"
	"github.com/usecellar/cellar/pkg/types"
)

// recordingStager stages into a fake path and records call order.
type recordingStager struct {
	calls   []string
	failOn  map[string]error
	journal *[]string
}

func (s *recordingStager) EnsureAsset(ctx context.Context, req staging.Request) (string, error) {
	name := req.FileName
	if req.Rename != "" {
		name = req.Rename
	}
	s.calls = append(s.calls, name)
	if s.journal != nil {
		*s.journal = append(*s.journal, "stage:"+name)
	}
	if err, ok := s.failOn[name]; ok {
		return "", err
	}
	return "/staging/installer/" + name, nil
}

// recordingLauncher records launched payloads and their arguments.
type recordingLauncher struct {
	launched []string
	args     []string
	failOn   map[string]error
	journal  *[]string
}

func (l *recordingLauncher) RunExecutable(ctx context.Context, env *types.EnvironmentConfig, filePath string, arguments string, environment map[string]string) error {
	l.launched = append(l.launched, filePath)
	l.args = append(l.args, arguments)
	if l.journal != nil {
		*l.journal = append(*l.journal, "launch:"+filePath)
	}
	if err, ok := l.failOn[filePath]; ok {
		return err
	}
	return nil
}

func testEnv() *types.EnvironmentConfig {
	return &types.EnvironmentConfig{Name: "gaming", Path: "gaming-1"}
}

func TestRun_SingleExeStep(t *testing.T) {
	stager := &recordingStager{}
	launcher := &recordingLauncher{}
	executor := steps.New(steps.Options{Stager: stager, Launcher: launcher})

	results, err := executor.Run(context.Background(), testEnv(), []types.InstallStep{
		{Action: types.ActionInstallExe, URL: "https://example.com/setup.exe", FileName: "setup.exe", Checksum: "abc"},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)

	require.Len(t, launcher.launched, 1)
	assert.True(t, strings.HasSuffix(launcher.launched[0], "setup.exe"))
	assert.Equal(t, "", launcher.args[0], "no arguments declared means none passed")
	assert.False(t, results[0].Failed())
	assert.False(t, results[0].Skipped)
}

func TestRun_PreservesOrder(t *testing.T) {
	var journal []string
	stager := &recordingStager{journal: &journal}
	launcher := &recordingLauncher{journal: &journal}
	executor := steps.New(steps.Options{Stager: stager, Launcher: launcher})

	_, err := executor.Run(context.Background(), testEnv(), []types.InstallStep{
		{Action: types.ActionInstallExe, FileName: "a.exe"},
		{Action: types.ActionInstallMSI, FileName: "b.msi"},
		{Action: types.ActionInstallExe, FileName: "c.exe"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"stage:a.exe", "launch:/staging/installer/a.exe",
		"stage:b.msi", "launch:/staging/installer/b.msi",
		"stage:c.exe", "launch:/staging/installer/c.exe",
	}, journal, "step N+1 must not start before step N's launch returns")
}

func TestRun_StagingFailureSkipsLaunchOnly(t *testing.T) {
	downloadErr := errors.New(errors.ErrAssetDownload, "download failed")
	stager := &recordingStager{failOn: map[string]error{"b.exe": downloadErr}}
	launcher := &recordingLauncher{}
	executor := steps.New(steps.Options{Stager: stager, Launcher: launcher})

	results, err := executor.Run(context.Background(), testEnv(), []types.InstallStep{
		{Action: types.ActionInstallExe, FileName: "a.exe"},
		{Action: types.ActionInstallExe, FileName: "b.exe"},
		{Action: types.ActionInstallExe, FileName: "c.exe"},
	})
	require.NoError(t, err, "best-effort mode never fails the sequence")
	require.Len(t, results, 3)

	// b.exe's process never launched, but a and c both ran.
	assert.Equal(t, []string{"/staging/installer/a.exe", "/staging/installer/c.exe"}, launcher.launched)
	assert.True(t, results[1].Failed())
	assert.True(t, errors.IsErrorCode(results[1].Err, errors.ErrAssetDownload))
}

func TestRun_AbortStrictnessStopsAtFirstFailure(t *testing.T) {
	downloadErr := errors.New(errors.ErrChecksumMismatch, "mismatch")
	stager := &recordingStager{failOn: map[string]error{"b.exe": downloadErr}}
	launcher := &recordingLauncher{}
	executor := steps.New(steps.Options{
		Stager:     stager,
		Launcher:   launcher,
		Strictness: config.StrictnessAbort,
	})

	results, err := executor.Run(context.Background(), testEnv(), []types.InstallStep{
		{Action: types.ActionInstallExe, FileName: "a.exe"},
		{Action: types.ActionInstallExe, FileName: "b.exe"},
		{Action: types.ActionInstallExe, FileName: "c.exe"},
	})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrStepFailed))
	assert.Len(t, results, 2, "c.exe must not run after the abort")
	assert.Equal(t, []string{"a.exe", "b.exe"}, stager.calls)
}

func TestRun_UnrecognizedActionSkipped(t *testing.T) {
	stager := &recordingStager{}
	launcher := &recordingLauncher{}
	executor := steps.New(steps.Options{Stager: stager, Launcher: launcher})

	results, err := executor.Run(context.Background(), testEnv(), []types.InstallStep{
		{Action: "write_registry", FileName: "keys.reg"},
		{Action: types.ActionInstallExe, FileName: "setup.exe"},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.True(t, results[0].Skipped)
	assert.Equal(t, []string{"setup.exe"}, stager.calls, "skipped step must not stage anything")
	assert.Len(t, launcher.launched, 1)
}

func TestRun_LaunchFailureRecorded(t *testing.T) {
	launchErr := errors.New(errors.ErrProcessLaunch, "exit status 1")
	stager := &recordingStager{}
	launcher := &recordingLauncher{failOn: map[string]error{"/staging/installer/a.exe": launchErr}}
	executor := steps.New(steps.Options{Stager: stager, Launcher: launcher})

	results, err := executor.Run(context.Background(), testEnv(), []types.InstallStep{
		{Action: types.ActionInstallExe, FileName: "a.exe"},
		{Action: types.ActionInstallExe, FileName: "b.exe"},
	})
	require.NoError(t, err)
	assert.True(t, results[0].Failed())
	assert.False(t, results[1].Failed(), "launch failure must not abort sibling steps")
	assert.Len(t, launcher.launched, 2, "no retry, single launch per step")
}

func TestRun_RenameUsedForStagedPath(t *testing.T) {
	stager := &recordingStager{}
	launcher := &recordingLauncher{}
	executor := steps.New(steps.Options{Stager: stager, Launcher: launcher})

	_, err := executor.Run(context.Background(), testEnv(), []types.InstallStep{
		{Action: types.ActionInstallExe, FileName: "download-1.2.exe", Rename: "setup.exe"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"/staging/installer/setup.exe"}, launcher.launched)
}
