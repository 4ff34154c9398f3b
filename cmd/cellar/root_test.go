package main

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/usecellar/cellar/pkg/paths"
)

// setWorkspace points every cellar directory and the catalog at
// test-controlled locations.
func setWorkspace(t *testing.T, server *httptest.Server) {
	t.Helper()
	t.Setenv(paths.EnvCellarDataDir, filepath.Join(t.TempDir(), "data"))
	t.Setenv(paths.EnvCellarCacheDir, t.TempDir())
	t.Setenv(paths.EnvCellarConfigDir, t.TempDir())
	if server != nil {
		t.Setenv("CELLAR_REPOSITORIES_INSTALLERS", server.URL)
		t.Setenv("CELLAR_NETWORK_PROBE_HOST", server.Listener.Addr().String())
	}
}

func newCatalogServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	mux.HandleFunc("/software/photoditor.yml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `Name: photoditor
Description: A photo editor
Category: software
Executable:
  file: photoditor.exe
  path: Program Files/Photoditor
Steps:
  - action: install_exe
    url: %s/assets/setup.exe
    file_name: setup.exe
`, server.URL)
	})
	mux.HandleFunc("/assets/setup.exe", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "payload")
	})

	return server
}

func TestRootCmd_NoArguments(t *testing.T) {
	setWorkspace(t, nil)

	rootCmd := NewRootCmd()
	rootCmd.SetArgs([]string{})
	err := rootCmd.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no command specified")
}

func TestVersionCmd(t *testing.T) {
	setWorkspace(t, nil)

	rootCmd := NewRootCmd()
	rootCmd.SetArgs([]string{"version"})
	require.NoError(t, rootCmd.Execute())
}

func TestNewAndEnvsCmd(t *testing.T) {
	setWorkspace(t, nil)

	rootCmd := NewRootCmd()
	rootCmd.SetArgs([]string{"new", "work"})
	require.NoError(t, rootCmd.Execute())

	p := paths.New()
	assert.FileExists(t, p.EnvironmentConfigPath("work"))
	assert.DirExists(t, p.DriveDir("work"))

	rootCmd = NewRootCmd()
	rootCmd.SetArgs([]string{"envs"})
	require.NoError(t, rootCmd.Execute())

	// Creating the same environment twice fails.
	rootCmd = NewRootCmd()
	rootCmd.SetArgs([]string{"new", "work"})
	require.Error(t, rootCmd.Execute())
}

func TestInstallCmd_RequiresEnvironment(t *testing.T) {
	setWorkspace(t, nil)

	rootCmd := NewRootCmd()
	rootCmd.SetArgs([]string{"install", "photoditor"})
	err := rootCmd.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "-b")
}

func TestInstallCmd(t *testing.T) {
	server := newCatalogServer(t)
	setWorkspace(t, server)

	rootCmd := NewRootCmd()
	rootCmd.SetArgs([]string{"new", "work"})
	require.NoError(t, rootCmd.Execute())

	// The step's process launch fails (no runner binary in the test
	// environment) but best-effort strictness carries the install
	// through to the desktop entry.
	rootCmd = NewRootCmd()
	rootCmd.SetArgs([]string{"install", "photoditor", "-b", "work"})
	require.NoError(t, rootCmd.Execute())

	p := paths.New()
	assert.FileExists(t, filepath.Join(p.StagingKindDir("installer"), "setup.exe"))

	entries, err := filepath.Glob(filepath.Join(p.ApplicationsDir(), "work--photoditor--*.desktop"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestInfoCmd(t *testing.T) {
	server := newCatalogServer(t)
	setWorkspace(t, server)

	rootCmd := NewRootCmd()
	rootCmd.SetArgs([]string{"info", "photoditor"})
	require.NoError(t, rootCmd.Execute())

	rootCmd = NewRootCmd()
	rootCmd.SetArgs([]string{"info", "photoditor", "--raw"})
	require.NoError(t, rootCmd.Execute())

	rootCmd = NewRootCmd()
	rootCmd.SetArgs([]string{"info", "missing"})
	require.Error(t, rootCmd.Execute())
}

func TestGenConfigCmd(t *testing.T) {
	setWorkspace(t, nil)

	rootCmd := NewRootCmd()
	rootCmd.SetArgs([]string{"genconfig"})
	require.NoError(t, rootCmd.Execute())

	rootCmd = NewRootCmd()
	rootCmd.SetArgs([]string{"genconfig", "--write"})
	require.NoError(t, rootCmd.Execute())

	assert.FileExists(t, paths.New().ConfigFilePath())

	rootCmd = NewRootCmd()
	rootCmd.SetArgs([]string{"genconfig", "--current"})
	require.NoError(t, rootCmd.Execute())
}
