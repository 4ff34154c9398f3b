package types

import "context"

// DependencyDescriptor is one entry of the supported-dependency catalog.
type DependencyDescriptor struct {
	// Description is a short human-readable summary
	Description string `yaml:"Description,omitempty"`

	// Category groups the dependency in the catalog
	Category string `yaml:"Category,omitempty"`

	// Steps install the dependency inside an environment
	Steps []InstallStep `yaml:"Steps,omitempty"`
}

// DependencyTicket is the handle returned for one asynchronous
// dependency-install submission. The channel is closed when the install
// finishes; Err reports the outcome after that.
type DependencyTicket struct {
	// ID is the dependency identifier the ticket tracks
	ID string

	done chan struct{}
	err  error
}

// NewDependencyTicket creates an unresolved ticket for the given id.
func NewDependencyTicket(id string) *DependencyTicket {
	return &DependencyTicket{ID: id, done: make(chan struct{})}
}

// Done returns a channel closed once the install has finished.
func (t *DependencyTicket) Done() <-chan struct{} {
	return t.done
}

// Resolve records the outcome and releases waiters. It must be called
// exactly once.
func (t *DependencyTicket) Resolve(err error) {
	t.err = err
	close(t.done)
}

// Err returns the install outcome. Only valid after Done is closed.
func (t *DependencyTicket) Err() error {
	return t.err
}

// EnvironmentManager is the contract of the external environment
// manager that owns environment configurations.
type EnvironmentManager interface {
	// EnvironmentPath resolves the absolute directory of an environment
	EnvironmentPath(config *EnvironmentConfig) string

	// UpdateConfiguration persists one key/value into the given scope,
	// refreshes the caller's config with the persisted state and returns
	// the updated configuration. Successive updates accumulate
	UpdateConfiguration(ctx context.Context, config *EnvironmentConfig, key string, value any, scope Scope) (*EnvironmentConfig, error)

	// InstallDxvk installs the dxvk compatibility component
	InstallDxvk(ctx context.Context, config *EnvironmentConfig) error

	// InstallVkd3d installs the vkd3d compatibility component
	InstallVkd3d(ctx context.Context, config *EnvironmentConfig) error

	// AsyncInstallDependency submits a dependency install and returns a
	// ticket resolved on completion
	AsyncInstallDependency(ctx context.Context, config *EnvironmentConfig, id string, descriptor DependencyDescriptor) *DependencyTicket
}

// ProcessLauncher runs executables inside an environment's context and
// blocks until they exit.
type ProcessLauncher interface {
	RunExecutable(ctx context.Context, config *EnvironmentConfig, filePath string, arguments string, environment map[string]string) error
}

// DependencyCatalog looks up supported-dependency definitions.
type DependencyCatalog interface {
	// Lookup returns the descriptor for id; ok is false for unknown ids
	Lookup(id string) (DependencyDescriptor, bool)
}
