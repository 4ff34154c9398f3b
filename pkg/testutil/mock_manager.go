// Package testutil provides testing utilities shared by the installer
// engine's test suites: a call-recording environment manager, a static
// dependency catalog, and a recording process launcher.
package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/usecellar/cellar/pkg/types"
)

// MockEnvironmentManager is a call-recording implementation of
// types.EnvironmentManager. Configuration updates are applied to an
// in-memory copy so tests can assert on the resulting state.
type MockEnvironmentManager struct {
	mu sync.Mutex

	// Root is prepended to the environment's Path by EnvironmentPath
	Root string

	// DxvkInstalls counts InstallDxvk invocations
	DxvkInstalls int

	// Vkd3dInstalls counts InstallVkd3d invocations
	Vkd3dInstalls int

	// Submissions records the ids handed to AsyncInstallDependency
	Submissions []string

	// ResolveSubmissions makes AsyncInstallDependency resolve tickets
	// immediately with ResolveErr
	ResolveSubmissions bool

	// ResolveErr is the outcome used when resolving submissions
	ResolveErr error

	calls         []string
	errorOn       string
	errorToReturn error
}

// NewMockEnvironmentManager creates a mock manager.
func NewMockEnvironmentManager() *MockEnvironmentManager {
	return &MockEnvironmentManager{Root: "/envs", ResolveSubmissions: true}
}

// FailOn makes the named method return err.
func (m *MockEnvironmentManager) FailOn(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorOn = method
	m.errorToReturn = err
}

// Calls returns the recorded call journal.
func (m *MockEnvironmentManager) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// EnvironmentPath resolves the environment directory under Root.
func (m *MockEnvironmentManager) EnvironmentPath(config *types.EnvironmentConfig) string {
	return m.Root + "/" + config.Path
}

// UpdateConfiguration applies the update and, like the real manager,
// refreshes the caller's config with the result.
func (m *MockEnvironmentManager) UpdateConfiguration(ctx context.Context, config *types.EnvironmentConfig, key string, value any, scope types.Scope) (*types.EnvironmentConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, fmt.Sprintf("UpdateConfiguration(%s,%v,%s)", key, value, scope))
	if m.errorOn == "UpdateConfiguration" {
		return nil, m.errorToReturn
	}

	updated := config.Clone()
	switch scope {
	case types.ScopeParameters:
		if updated.Parameters == nil {
			updated.Parameters = make(map[string]any)
		}
		updated.Parameters[key] = value
	case types.ScopePrograms:
		if updated.Programs == nil {
			updated.Programs = make(map[string]string)
		}
		updated.Programs[key], _ = value.(string)
	}
	*config = *updated
	return updated, nil
}

// InstallDxvk records the invocation.
func (m *MockEnvironmentManager) InstallDxvk(ctx context.Context, config *types.EnvironmentConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "InstallDxvk")
	m.DxvkInstalls++
	if m.errorOn == "InstallDxvk" {
		return m.errorToReturn
	}
	return nil
}

// InstallVkd3d records the invocation.
func (m *MockEnvironmentManager) InstallVkd3d(ctx context.Context, config *types.EnvironmentConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "InstallVkd3d")
	m.Vkd3dInstalls++
	if m.errorOn == "InstallVkd3d" {
		return m.errorToReturn
	}
	return nil
}

// AsyncInstallDependency records the submission and returns a ticket,
// resolved immediately when ResolveSubmissions is set.
func (m *MockEnvironmentManager) AsyncInstallDependency(ctx context.Context, config *types.EnvironmentConfig, id string, descriptor types.DependencyDescriptor) *types.DependencyTicket {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, fmt.Sprintf("AsyncInstallDependency(%s)", id))
	m.Submissions = append(m.Submissions, id)

	ticket := types.NewDependencyTicket(id)
	if m.ResolveSubmissions {
		ticket.Resolve(m.ResolveErr)
	}
	return ticket
}

// StaticCatalog is a map-backed types.DependencyCatalog.
type StaticCatalog map[string]types.DependencyDescriptor

// Lookup returns the descriptor for id.
func (c StaticCatalog) Lookup(id string) (types.DependencyDescriptor, bool) {
	descriptor, ok := c[id]
	return descriptor, ok
}

// RecordingLauncher is a types.ProcessLauncher that records launches.
type RecordingLauncher struct {
	mu sync.Mutex

	// Launched records the file paths handed to RunExecutable
	Launched []string

	// Err, when set, is returned by every launch
	Err error
}

// RunExecutable records the launch.
func (l *RecordingLauncher) RunExecutable(ctx context.Context, config *types.EnvironmentConfig, filePath string, arguments string, environment map[string]string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Launched = append(l.Launched, filePath)
	return l.Err
}
