package main

import (
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/usecellar/cellar/internal/version"
	"github.com/usecellar/cellar/pkg/config"
	"github.com/usecellar/cellar/pkg/style"
)

// environmentNamesCompletion provides shell completion for environment names
func environmentNamesCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	eng, err := newEngine()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}

	configs, err := eng.manager.List()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}

	var names []string
	for _, env := range configs {
		names = append(names, env.Name)
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}

func newInstallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "install <installer>",
		Short:   MsgInstallShort,
		Long:    MsgInstallLong,
		Example: MsgInstallExample,
		Args:    cobra.ExactArgs(1),
		GroupID: "core",
		RunE: func(cmd *cobra.Command, args []string) error {
			envName, _ := cmd.Root().PersistentFlags().GetString("environment")
			if envName == "" {
				return fmt.Errorf(MsgErrNoEnvFlag)
			}
			category, _ := cmd.Flags().GetString("category")
			installerName := args[0]

			eng, err := newEngine()
			if err != nil {
				return fmt.Errorf(MsgErrInitEngine, err)
			}

			env, err := eng.manager.LoadByName(envName)
			if err != nil {
				return err
			}

			log.Info().
				Str("environment", envName).
				Str("installer", installerName).
				Str("category", category).
				Msg("Starting install")

			spinner, _ := pterm.DefaultSpinner.Start(fmt.Sprintf(MsgInstallStarted, installerName, envName))

			job := eng.orchestrator.Install(cmd.Context(), env, installerName, category, nil)
			err = job.Wait(cmd.Context())

			renderer := style.NewRenderer()
			if err != nil {
				if spinner != nil {
					spinner.Fail(renderer.RenderError(err))
				}
				if results := job.Results(); len(results) > 0 {
					fmt.Println(renderer.RenderResults(results))
				}
				return fmt.Errorf(MsgErrInstall, err)
			}

			if spinner != nil {
				spinner.Success(fmt.Sprintf(MsgInstallDone, installerName, envName))
			}
			fmt.Println(renderer.RenderResults(job.Results()))
			if entry := job.EntryPath(); entry != "" {
				fmt.Println(style.MutedStyle.Render(fmt.Sprintf(MsgEntryPublished, entry)))
			}

			return nil
		},
	}

	cmd.Flags().String("category", "software", MsgFlagCategory)

	return cmd
}

func newInfoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "info <installer>",
		Short:   MsgInfoShort,
		Long:    MsgInfoLong,
		Example: MsgInfoExample,
		Args:    cobra.ExactArgs(1),
		GroupID: "core",
		RunE: func(cmd *cobra.Command, args []string) error {
			category, _ := cmd.Flags().GetString("category")
			raw, _ := cmd.Flags().GetBool("raw")

			eng, err := newEngine()
			if err != nil {
				return fmt.Errorf(MsgErrInitEngine, err)
			}

			if raw {
				content, err := eng.catalog.FetchRaw(cmd.Context(), args[0], category)
				if err != nil {
					return err
				}
				fmt.Print(content)
				return nil
			}

			manifest, err := eng.catalog.Fetch(cmd.Context(), args[0], category)
			if err != nil {
				return err
			}

			fmt.Println(style.NewRenderer().RenderManifest(manifest))
			return nil
		},
	}

	cmd.Flags().String("category", "software", MsgFlagCategory)
	cmd.Flags().Bool("raw", false, MsgFlagRaw)

	return cmd
}

func newEnvsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "envs",
		Short:   MsgEnvsShort,
		GroupID: "core",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := newEngine()
			if err != nil {
				return fmt.Errorf(MsgErrInitEngine, err)
			}

			configs, err := eng.manager.List()
			if err != nil {
				return err
			}
			if len(configs) == 0 {
				fmt.Println(MsgNoEnvironments)
				return nil
			}

			for _, env := range configs {
				fmt.Println(style.RenderEnvironmentStatus(style.EnvironmentStatusOf(env)))
				fmt.Println()
			}
			return nil
		},
	}
}

func newNewCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "new <name>",
		Short:   MsgNewShort,
		Example: MsgNewExample,
		Args:    cobra.ExactArgs(1),
		GroupID: "core",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := newEngine()
			if err != nil {
				return fmt.Errorf(MsgErrInitEngine, err)
			}

			env, err := eng.manager.Create(args[0])
			if err != nil {
				return err
			}

			fmt.Printf(MsgEnvCreated, env.Name)
			return nil
		},
	}
}

func newGenConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "genconfig",
		Short:   MsgGenConfigShort,
		Long:    MsgGenConfigLong,
		GroupID: "misc",
		RunE: func(cmd *cobra.Command, args []string) error {
			if current, _ := cmd.Flags().GetBool("current"); current {
				eng, err := newEngine()
				if err != nil {
					return fmt.Errorf(MsgErrInitEngine, err)
				}
				resolved, err := config.Dump(eng.cfg)
				if err != nil {
					return err
				}
				fmt.Print(resolved)
				return nil
			}

			content := config.GenerateConfigContent()

			write, _ := cmd.Flags().GetBool("write")
			if !write {
				fmt.Print(content)
				return nil
			}

			eng, err := newEngine()
			if err != nil {
				return fmt.Errorf(MsgErrInitEngine, err)
			}

			target := eng.paths.ConfigFilePath()
			if err := os.MkdirAll(eng.paths.ConfigDir(), 0755); err != nil {
				return err
			}
			if err := os.WriteFile(target, []byte(content), 0644); err != nil {
				return err
			}
			fmt.Printf(MsgConfigWritten, target)
			return nil
		},
	}

	cmd.Flags().Bool("write", false, MsgFlagWrite)
	cmd.Flags().Bool("current", false, MsgFlagCurrent)

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Short:   MsgVersionShort,
		GroupID: "misc",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("cellar version %s\n", version.Version)
			fmt.Printf("  commit: %s\n", version.Commit)
			fmt.Printf("  built:  %s\n", version.Date)
		},
	}
}

func newCompletionCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "completion [bash|zsh|fish|powershell]",
		Short:     MsgCompletionShort,
		GroupID:   "misc",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
			}
			return nil
		},
	}
}
