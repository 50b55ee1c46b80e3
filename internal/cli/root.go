package cli

import (
	"github.com/arthur-debert/roost/internal/version"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the command tree bound to a
func (a *App) NewRootCmd() *cobra.Command {
	initTemplateFormatting(a.Stdout)

	rootCmd := &cobra.Command{
		Use:     "roost",
		Short:   MsgRootShort,
		Long:    MsgRootLong,
		Version: version.Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(); err != nil {
				return err
			}
			log.Debug().Str("command", cmd.Name()).Str("home", a.paths.Home()).Msg("Command started")
			return nil
		},
		// A bare invocation installs the bundle in the current directory
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runInstall(cmd, nil)
		},
		SilenceUsage:      true,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
	}

	rootCmd.SetIn(a.Stdin)
	rootCmd.SetOut(a.Stdout)
	rootCmd.SetErr(a.Stderr)

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.CountVarP(&a.flags.verbosity, "verbose", "v", MsgFlagVerbose)
	flags.StringVar(&a.flags.home, "home", "", MsgFlagHome)
	flags.StringVar(&a.flags.configFile, "config", "", MsgFlagConfig)
	flags.StringVarP(&a.flags.output, "output", "o", "text", MsgFlagOutput)

	rootCmd.AddGroup(&cobra.Group{ID: "core", Title: "Commands"})
	rootCmd.AddGroup(&cobra.Group{ID: "misc", Title: "Misc"})
	rootCmd.SetUsageTemplate(MsgUsageTemplate)

	rootCmd.AddCommand(a.newInstallCmd())
	rootCmd.AddCommand(a.newLoadCmd())
	rootCmd.AddCommand(a.newRunCmd())
	rootCmd.AddCommand(a.newInitshCmd())
	rootCmd.AddCommand(a.newEnvCmd())
	rootCmd.AddCommand(a.newDeployCmd())
	rootCmd.AddCommand(a.newUpdateCmd())
	rootCmd.AddCommand(a.newConfigCmd())
	rootCmd.AddCommand(a.newVersionCmd())
	rootCmd.AddCommand(newCompletionCmd())

	rootCmd.SetHelpCommandGroupID("misc")
	rootCmd.SetCompletionCommandGroupID("misc")
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	return rootCmd
}
