package cli

import (
	"fmt"
	"os"

	"github.com/arthur-debert/roost/pkg/errors"
	"github.com/arthur-debert/roost/pkg/shell"
	"github.com/spf13/cobra"
)

func (a *App) newEnvCmd() *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:     "env",
		Short:   MsgEnvShort,
		GroupID: "core",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if kind == "" {
				kind = a.cfg.Shell
			}

			file := a.paths.EnvFile()
			f, err := a.fs.Open(file)
			if err != nil {
				if os.IsNotExist(err) {
					return nil
				}
				return errors.Wrapf(err, errors.ErrFileAccess, "failed to open %s", file).
					WithOp("cli.env").WithDetail(errors.DetailPath, file)
			}
			defer func() { _ = f.Close() }()

			assigns, err := shell.EvalEnvFile(cmd.Context(), f, file, a.session.Environ())
			if err != nil {
				return err
			}
			exports, err := shell.FormatExports(kind, assigns)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(a.Stdout, exports)
			return err
		},
	}

	cmd.Flags().StringVarP(&kind, "shell", "s", "", MsgFlagShell)
	return cmd
}
