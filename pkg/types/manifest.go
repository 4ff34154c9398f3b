package types

// StepAction identifies the kind of work an install step performs.
type StepAction string

// Recognized step actions. Steps with any other action are skipped.
const (
	ActionInstallExe StepAction = "install_exe"
	ActionInstallMSI StepAction = "install_msi"
)

// IsInstallAction reports whether the action runs a downloaded installer.
func (a StepAction) IsInstallAction() bool {
	return a == ActionInstallExe || a == ActionInstallMSI
}

// InstallStep is one unit of installation work: download a payload and
// run it inside the target environment. Order within a manifest is
// significant; steps execute sequentially.
type InstallStep struct {
	// Action constrains how the step is interpreted (install_exe, install_msi)
	Action StepAction `yaml:"action"`

	// URL is the remote location of the step's payload
	URL string `yaml:"url"`

	// FileName is the local name the payload is staged under
	FileName string `yaml:"file_name"`

	// Rename optionally renames the staged payload before execution
	Rename string `yaml:"rename,omitempty"`

	// Checksum is an optional sha256 the downloaded bytes must match
	Checksum string `yaml:"file_checksum,omitempty"`

	// Arguments are passed verbatim to the launched process
	Arguments string `yaml:"arguments,omitempty"`

	// Environment holds extra environment variables for the process
	Environment map[string]string `yaml:"environment,omitempty"`
}

// StagedName returns the file name the payload ends up under after
// staging, taking the optional rename into account.
func (s *InstallStep) StagedName() string {
	if s.Rename != "" {
		return s.Rename
	}
	return s.FileName
}

// ExecutableSpec describes the executable an installer leaves behind.
type ExecutableSpec struct {
	// Name is the display name used for the launcher entry
	Name string `yaml:"name,omitempty"`

	// File is the executable's file name inside the environment
	File string `yaml:"file"`

	// Path is the directory holding File, relative to the environment's drive
	Path string `yaml:"path"`

	// Icon is an optional icon file published alongside the manifest
	Icon string `yaml:"icon,omitempty"`

	// Arguments are the default invocation arguments, registered in the
	// environment's Programs scope when declared
	Arguments string `yaml:"arguments,omitempty"`
}

// Manifest is the declarative description of one installer. It is
// immutable once fetched; identity is (Category, Name).
type Manifest struct {
	Name         string         `yaml:"Name"`
	Description  string         `yaml:"Description"`
	Category     string         `yaml:"Category"`
	Dependencies []string       `yaml:"Dependencies,omitempty"`
	Parameters   map[string]any `yaml:"Parameters,omitempty"`
	Executable   ExecutableSpec `yaml:"Executable"`
	Steps        []InstallStep  `yaml:"Steps,omitempty"`
}
