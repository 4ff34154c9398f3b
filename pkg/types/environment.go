package types

// Scope identifies which section of an environment's configuration an
// update targets.
type Scope string

const (
	// ScopeParameters holds feature toggles and runtime settings
	ScopeParameters Scope = "Parameters"

	// ScopePrograms maps executable files to default invocation arguments
	ScopePrograms Scope = "Programs"
)

// Known parameter keys with dedicated install routines on the
// environment manager.
const (
	ParamDXVK  = "dxvk"
	ParamVKD3D = "vkd3d"
)

// EnvironmentConfig is the persisted record of one isolated environment.
// It is owned by the environment manager; the installer engine reads it
// and requests mutations through UpdateConfiguration rather than
// writing it directly.
type EnvironmentConfig struct {
	// Name uniquely identifies the environment
	Name string `yaml:"Name"`

	// Path is the environment's directory name under the environments root
	Path string `yaml:"Path"`

	// Parameters holds feature toggles such as dxvk and vkd3d
	Parameters map[string]any `yaml:"Parameters,omitempty"`

	// InstalledDependencies lists dependency identifiers already present
	InstalledDependencies []string `yaml:"Installed_Dependencies,omitempty"`

	// Programs maps executable paths to their default arguments
	Programs map[string]string `yaml:"Programs,omitempty"`
}

// HasDependency reports whether the dependency id is already installed.
func (c *EnvironmentConfig) HasDependency(id string) bool {
	for _, dep := range c.InstalledDependencies {
		if dep == id {
			return true
		}
	}
	return false
}

// BoolParameter returns the parameter's value as a bool. Missing keys
// and non-boolean values read as false.
func (c *EnvironmentConfig) BoolParameter(key string) bool {
	if c.Parameters == nil {
		return false
	}
	v, ok := c.Parameters[key].(bool)
	return ok && v
}

// Clone returns a deep copy so callers can hand out mutated copies
// without aliasing the original maps.
func (c *EnvironmentConfig) Clone() *EnvironmentConfig {
	clone := &EnvironmentConfig{
		Name: c.Name,
		Path: c.Path,
	}
	if c.Parameters != nil {
		clone.Parameters = make(map[string]any, len(c.Parameters))
		for k, v := range c.Parameters {
			clone.Parameters[k] = v
		}
	}
	if c.InstalledDependencies != nil {
		clone.InstalledDependencies = append([]string(nil), c.InstalledDependencies...)
	}
	if c.Programs != nil {
		clone.Programs = make(map[string]string, len(c.Programs))
		for k, v := range c.Programs {
			clone.Programs[k] = v
		}
	}
	return clone
}
