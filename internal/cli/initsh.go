package cli

import (
	"fmt"

	"github.com/arthur-debert/roost/pkg/shell"
	"github.com/spf13/cobra"
)

func (a *App) newInitshCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "initsh [sh|bash|zsh|fish]",
		Short:     MsgInitshShort,
		Long:      MsgInitshLong,
		GroupID:   "core",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: shell.Kinds,
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := a.cfg.Shell
			if len(args) == 1 {
				kind = args[0]
			}
			snippet, err := shell.InitSnippet(kind, a.paths)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(a.Stdout, snippet)
			return err
		},
	}
}
