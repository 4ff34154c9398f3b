package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/usecellar/cellar/internal/version"
	"github.com/usecellar/cellar/pkg/cobrax/topics"
	"github.com/usecellar/cellar/pkg/logging"
	"github.com/usecellar/cellar/pkg/style"
)

// NewRootCmd creates and returns the root command
func NewRootCmd() *cobra.Command {
	// Initialize custom template formatting functions
	initTemplateFormatting()

	var (
		verbosity  int
		executable string
		envName    string
	)

	rootCmd := &cobra.Command{
		Use:     "cellar",
		Short:   MsgRootShort,
		Long:    MsgRootLong,
		Version: version.Version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Setup logging based on verbosity
			logging.SetupLogger(verbosity)
			log.Debug().Str("command", cmd.Name()).Msg("Command started")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// The bare invocation doubles as the desktop-entry entry
			// point: `cellar -e <path> -b <env>` runs an installed
			// executable, `cellar -b <env>` shows the environment.
			if executable != "" {
				return runExecutable(cmd, envName, executable)
			}
			if envName != "" {
				return showEnvironment(envName)
			}

			_ = cmd.Help()
			return fmt.Errorf(MsgErrNoCommand)
		},
		SilenceUsage:      true,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
	}

	// Global flags
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", MsgFlagVerbose)
	rootCmd.PersistentFlags().StringVarP(&envName, "environment", "b", "", MsgFlagEnvironment)
	rootCmd.Flags().StringVarP(&executable, "executable", "e", "", MsgFlagExecutable)
	_ = rootCmd.RegisterFlagCompletionFunc("environment", environmentNamesCompletion)

	// Disable automatic help command (the topics system brings its own)
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	// Define command groups
	rootCmd.AddGroup(&cobra.Group{
		ID:    "core",
		Title: "COMMANDS:",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "misc",
		Title: "MISC:",
	})

	// Add all commands
	rootCmd.AddCommand(newInstallCmd())
	rootCmd.AddCommand(newInfoCmd())
	rootCmd.AddCommand(newEnvsCmd())
	rootCmd.AddCommand(newNewCmd())
	rootCmd.AddCommand(newGenConfigCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newCompletionCmd())

	// Initialize topic-based help system relative to the executable
	exe, err := os.Executable()
	if err == nil {
		possiblePaths := []string{
			filepath.Join(filepath.Dir(exe), "topics"),                              // Same directory as binary (production)
			filepath.Join(filepath.Dir(exe), "..", "..", "cmd", "cellar", "topics"), // Development
			"cmd/cellar/topics", // Current directory fallback
		}

		for _, helpPath := range possiblePaths {
			if _, err := os.Stat(helpPath); err == nil {
				opts := topics.Options{
					Extensions: []string{".txt", ".md"},
					Renderer:   topics.NewGlamourRenderer(),
				}
				if err := topics.InitializeWithOptions(rootCmd, helpPath, opts); err == nil {
					break
				}
			}
		}
	}

	return rootCmd
}

// runExecutable launches an installed executable inside its
// environment, with the invocation arguments registered for it.
func runExecutable(cmd *cobra.Command, envName, executable string) error {
	if envName == "" {
		return fmt.Errorf(MsgErrNoEnvFlag)
	}

	eng, err := newEngine()
	if err != nil {
		return fmt.Errorf(MsgErrInitEngine, err)
	}

	env, err := eng.manager.LoadByName(envName)
	if err != nil {
		return err
	}

	arguments := env.Programs[filepath.Base(executable)]
	log.Info().
		Str("environment", envName).
		Str("executable", executable).
		Msg("Launching installed executable")

	if err := eng.launcher.RunExecutable(cmd.Context(), env, executable, arguments, nil); err != nil {
		return fmt.Errorf(MsgErrLaunch, err)
	}
	return nil
}

// showEnvironment prints one environment's installed state.
func showEnvironment(envName string) error {
	eng, err := newEngine()
	if err != nil {
		return fmt.Errorf(MsgErrInitEngine, err)
	}

	env, err := eng.manager.LoadByName(envName)
	if err != nil {
		return err
	}

	fmt.Println(style.RenderEnvironmentStatus(style.EnvironmentStatusOf(env)))
	return nil
}
