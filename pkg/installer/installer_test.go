package installer_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/usecellar/cellar/pkg/catalog"
	"github.com/usecellar/cellar/pkg/config"
	"github.com/usecellar/cellar/pkg/deps"
	"github.com/usecellar/cellar/pkg/desktop"
	"github.com/usecellar/cellar/pkg/errors"
	"github.com/usecellar/cellar/pkg/installer"
	"github.com/usecellar/cellar/pkg/params"
	"github.com/usecellar/cellar/pkg/staging"
	"github.com/usecellar/cellar/pkg/steps"
	"github.com/usecellar/cellar/pkg/testutil"
	"github.com/usecellar/cellar/pkg/types"
)

// syncNotifier delivers callbacks inline so tests observe them
// deterministically.
type syncNotifier struct{}

func (syncNotifier) Notify(fn func()) { fn() }

type harness struct {
	server   *httptest.Server
	manager  *testutil.MockEnvironmentManager
	launcher *testutil.RecordingLauncher
	orch     *installer.Orchestrator
	appsDir  string
}

type harnessOptions struct {
	launcher   types.ProcessLauncher
	strictness config.Strictness
	resolveErr error
	withIcon   bool
	serveIcon  bool
}

func newHarness(t *testing.T, opts harnessOptions) *harness {
	t.Helper()

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	mux.HandleFunc("/software/photoditor.yml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, manifestYAML(server.URL, opts.withIcon))
	})
	mux.HandleFunc("/assets/setup.exe", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "payload")
	})
	if opts.serveIcon {
		mux.HandleFunc("/data/photoditor/photoditor.png", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, "pixels")
		})
	}

	manager := testutil.NewMockEnvironmentManager()
	manager.Root = t.TempDir()
	manager.ResolveErr = opts.resolveErr

	recording := &testutil.RecordingLauncher{}
	launcher := opts.launcher
	if launcher == nil {
		launcher = recording
	}

	stager := staging.New(staging.Options{Root: t.TempDir()})
	appsDir := t.TempDir()

	orch := installer.New(installer.Options{
		Catalog:    catalog.New(catalog.Options{BaseURL: server.URL}),
		Stager:     stager,
		Steps:      steps.New(steps.Options{Stager: stager, Launcher: launcher, Strictness: opts.strictness}),
		Deps:       deps.New(manager, testutil.StaticCatalog{"dotnet48": {Description: ".NET 4.8"}}),
		Params:     params.New(manager),
		Desktop:    desktop.New(desktop.Options{ApplicationsDir: appsDir, Manager: manager, Now: func() time.Time { return time.Unix(1700000000, 0) }}),
		Manager:    manager,
		Strictness: opts.strictness,
		Notifier:   syncNotifier{},
	})

	return &harness{
		server:   server,
		manager:  manager,
		launcher: recording,
		orch:     orch,
		appsDir:  appsDir,
	}
}

func manifestYAML(baseURL string, withIcon bool) string {
	icon := ""
	if withIcon {
		icon = "\n  icon: photoditor.png"
	}
	return fmt.Sprintf(`Name: photoditor
Description: A photo editor
Category: software
Dependencies:
  - dotnet48
Parameters:
  dxvk: true
Executable:
  name: Photoditor
  file: photoditor.exe
  path: Program Files/Photoditor%s
  arguments: --fast
Steps:
  - action: install_exe
    url: %s/assets/setup.exe
    file_name: setup.exe
`, icon, baseURL)
}

func testEnvironment() *types.EnvironmentConfig {
	return &types.EnvironmentConfig{Name: "work", Path: "work-1"}
}

func TestInstall_FullPipeline(t *testing.T) {
	h := newHarness(t, harnessOptions{withIcon: true, serveIcon: true})
	env := testEnvironment()

	job := h.orch.Install(context.Background(), env, "photoditor", "software", nil)
	require.NoError(t, job.Wait(context.Background()))

	// The staged payload was launched.
	require.Len(t, h.launcher.Launched, 1)
	assert.Equal(t, "setup.exe", filepath.Base(h.launcher.Launched[0]))

	results := job.Results()
	require.Len(t, results, 1)
	assert.False(t, results[0].Failed())

	// The dependency was submitted and recorded.
	assert.Equal(t, []string{"dotnet48"}, h.manager.Submissions)

	// dxvk was toggled on and persisted.
	assert.Equal(t, 1, h.manager.DxvkInstalls)
	assert.Equal(t, true, env.Parameters["dxvk"])

	// Default invocation arguments were registered.
	assert.Equal(t, "--fast", env.Programs["photoditor.exe"])

	// The icon landed in the environment's icons directory.
	iconPath := filepath.Join(h.manager.Root, "work-1", "icons", "photoditor.png")
	data, err := os.ReadFile(iconPath)
	require.NoError(t, err)
	assert.Equal(t, "pixels", string(data))

	// A desktop entry was published under a timestamped name.
	entryPath := job.EntryPath()
	assert.Equal(t, "work--photoditor--1700000000.desktop", filepath.Base(entryPath))
	content, err := os.ReadFile(entryPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "Exec=cellar -e '")
	assert.Contains(t, string(content), "-b 'work'")
	assert.Contains(t, string(content), "Icon="+iconPath)
}

func TestInstall_ManifestFetchFailureAbortsJob(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	env := testEnvironment()

	job := h.orch.Install(context.Background(), env, "missing", "software", nil)
	err := job.Wait(context.Background())

	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrManifestNotFound))
	assert.Empty(t, h.launcher.Launched)
	assert.Empty(t, h.manager.Calls())
	assert.Empty(t, job.EntryPath())
}

func TestInstall_IconFailureIsNotFatal(t *testing.T) {
	// The manifest declares an icon the server does not have.
	h := newHarness(t, harnessOptions{withIcon: true, serveIcon: false})
	env := testEnvironment()

	job := h.orch.Install(context.Background(), env, "photoditor", "software", nil)
	require.NoError(t, job.Wait(context.Background()))

	content, err := os.ReadFile(job.EntryPath())
	require.NoError(t, err)
	assert.Contains(t, string(content), "Icon="+desktop.DefaultIcon)
}

func TestInstall_DependencyFailure(t *testing.T) {
	depErr := errors.New(errors.ErrDependency, "install failed")

	t.Run("best-effort continues", func(t *testing.T) {
		h := newHarness(t, harnessOptions{resolveErr: depErr})
		env := testEnvironment()

		job := h.orch.Install(context.Background(), env, "photoditor", "software", nil)
		require.NoError(t, job.Wait(context.Background()))
		assert.Len(t, h.launcher.Launched, 1)
	})

	t.Run("abort stops before steps", func(t *testing.T) {
		h := newHarness(t, harnessOptions{resolveErr: depErr, strictness: config.StrictnessAbort})
		env := testEnvironment()

		job := h.orch.Install(context.Background(), env, "photoditor", "software", nil)
		err := job.Wait(context.Background())

		require.Error(t, err)
		assert.True(t, errors.IsErrorCode(err, errors.ErrDependency))
		assert.Empty(t, h.launcher.Launched)
	})
}

func TestInstall_CompletionCallback(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	env := testEnvironment()

	var mu sync.Mutex
	invocations := 0
	job := h.orch.Install(context.Background(), env, "photoditor", "software", func() {
		mu.Lock()
		invocations++
		mu.Unlock()
	})
	require.NoError(t, job.Wait(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, invocations)
}

// overlapLauncher fails the test if two launches ever run concurrently.
type overlapLauncher struct {
	t      *testing.T
	active atomic.Int32
}

func (l *overlapLauncher) RunExecutable(ctx context.Context, config *types.EnvironmentConfig, filePath string, arguments string, environment map[string]string) error {
	if l.active.Add(1) > 1 {
		l.t.Error("concurrent launches in the same environment")
	}
	time.Sleep(20 * time.Millisecond)
	l.active.Add(-1)
	return nil
}

func TestInstall_SameEnvironmentIsSerialized(t *testing.T) {
	launcher := &overlapLauncher{t: t}
	h := newHarness(t, harnessOptions{launcher: launcher})
	env := testEnvironment()

	first := h.orch.Install(context.Background(), env, "photoditor", "software", nil)
	second := h.orch.Install(context.Background(), env, "photoditor", "software", nil)

	require.NoError(t, first.Wait(context.Background()))
	require.NoError(t, second.Wait(context.Background()))
}
