package main

// Short messages (one-liners)
const (
	// Command descriptions
	MsgRootShort = "Install and run Windows applications in managed environments"
	MsgRootLong  = `cellar installs cataloged Windows applications into isolated
compatibility environments: it fetches the installer's manifest,
downloads and verifies its payloads, runs them through the
compatibility runner, resolves dependencies, and publishes a desktop
launcher entry for the result.`

	MsgInstallShort = "Install a cataloged application into an environment"
	MsgInstallLong  = `Install fetches the named installer manifest from the catalog and runs
it against the target environment: dependencies first, then each
install step in manifest order, then configuration updates and the
desktop launcher entry.`
	MsgInstallExample = `  cellar install photoditor -b work
  cellar install gameclient -b gaming --category games`

	MsgInfoShort = "Show a cataloged installer's manifest"
	MsgInfoLong  = "Info fetches an installer manifest from the catalog and displays its steps, dependencies and executable."
	MsgInfoExample = `  cellar info photoditor
  cellar info gameclient --category games --raw`

	MsgEnvsShort  = "List environments and their installed state"
	MsgNewShort   = "Create a new empty environment"
	MsgNewExample = `  cellar new work`

	MsgGenConfigShort = "Print a commented default configuration file"
	MsgGenConfigLong  = `Genconfig prints the default configuration with every value commented
out, ready to drop into the config directory and edit.`

	MsgVersionShort    = "Print version information"
	MsgCompletionShort = "Generate shell completion script"

	// Status messages
	MsgInstallStarted = "Installing %s into %s"
	MsgInstallDone    = "Installed %s into %s"
	MsgEntryPublished = "Launcher entry: %s"
	MsgNoEnvironments = "No environments found."
	MsgEnvCreated     = "Created environment '%s'\n"
	MsgConfigWritten  = "Wrote %s\n"

	// Error messages
	MsgErrInitEngine = "failed to initialize: %w"
	MsgErrInstall    = "install failed: %w"
	MsgErrNoEnvFlag  = "an environment is required, pass -b <name>"
	MsgErrLaunch     = "failed to launch executable: %w"
	MsgErrNoCommand  = "no command specified"

	// Flag descriptions
	MsgFlagVerbose     = "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)"
	MsgFlagEnvironment = "Target environment name"
	MsgFlagExecutable  = "Executable to run inside the environment"
	MsgFlagCategory    = "Catalog category of the installer"
	MsgFlagRaw         = "Print the raw manifest instead of the summary"
	MsgFlagWrite       = "Write the configuration file instead of printing it"
	MsgFlagCurrent     = "Print the fully resolved configuration instead of the starter file"
)
