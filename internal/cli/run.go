package cli

import (
	"path/filepath"
	"strings"

	"github.com/arthur-debert/roost/pkg/errors"
	"github.com/arthur-debert/roost/pkg/executor"
	"github.com/arthur-debert/roost/pkg/paths"
	"github.com/spf13/cobra"
)

func (a *App) newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run <name> [args...]",
		Short:   MsgRunShort,
		GroupID: "core",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if name == "" || name == "." || name == ".." || strings.ContainsRune(name, filepath.Separator) {
				return errors.Newf(errors.ErrInvalidInput, "invalid command name %q", name).WithOp("cli.run")
			}

			target, err := paths.NewResolver(a.fs).Resolve(a.paths.CommandPath(name))
			if err != nil {
				return errors.Wrapf(err, errors.GetErrorCode(err), "command %s is not installed", name).
					WithOp("cli.run").WithDetail(errors.DetailCommand, name)
			}
			if err := a.session.Apply(cmd.Context()); err != nil {
				return err
			}

			return a.commander(false).Run(cmd.Context(), executor.Command{
				Name:   target,
				Args:   args[1:],
				Env:    a.session.Environ(),
				Stdin:  a.Stdin,
				Stdout: a.Stdout,
				Stderr: a.Stderr,
			})
		},
	}

	// Everything after the name belongs to the command
	cmd.Flags().SetInterspersed(false)
	return cmd
}
