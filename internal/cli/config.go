package cli

import (
	"github.com/spf13/cobra"
)

func (a *App) newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "config",
		Short:   MsgConfigShort,
		GroupID: "misc",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := a.cfg.TOML()
			if err != nil {
				return err
			}
			_, err = a.Stdout.Write(out)
			return err
		},
	}
}
