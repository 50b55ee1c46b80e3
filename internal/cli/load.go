package cli

import (
	"fmt"
	"io"

	"github.com/arthur-debert/roost/pkg/modules"
	"github.com/spf13/cobra"
)

func (a *App) newLoadCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:     "load <module|path>...",
		Short:   MsgLoadShort,
		Long:    MsgLoadLong,
		GroupID: "core",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.session.Apply(cmd.Context()); err != nil {
				return err
			}

			loader := modules.NewLoader(a.session, modules.WithOutput(a.Stdout, a.Stderr))
			result, err := loader.Load(cmd.Context(), force, args...)
			if err != nil {
				return err
			}
			return a.printer.Result(result, func(w io.Writer) error {
				for _, name := range result.Loaded {
					if _, err := fmt.Fprintf(w, MsgModuleLoaded, name); err != nil {
						return err
					}
				}
				for _, name := range result.Skipped {
					if _, err := fmt.Fprintf(w, MsgModuleSkipped, name); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, MsgFlagForce)
	return cmd
}
