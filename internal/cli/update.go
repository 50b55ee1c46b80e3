package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/arthur-debert/roost/pkg/packages"
	"github.com/arthur-debert/roost/pkg/pkgmgr"
	"github.com/spf13/cobra"
)

// updateResult is what `roost update` reports
type updateResult struct {
	Manager   string   `yaml:"manager,omitempty"`
	Declared  []string `yaml:"declared"`
	Installed []string `yaml:"installed"`
}

func (a *App) newUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "update",
		Short:   MsgUpdateShort,
		GroupID: "core",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := packages.ReadDeps(a.fs, a.paths.DepFile())
			if err != nil {
				return err
			}
			if len(deps) == 0 {
				return a.printer.Result(updateResult{Declared: []string{}, Installed: []string{}}, func(w io.Writer) error {
					_, err := fmt.Fprintln(w, MsgNoDeps)
					return err
				})
			}

			selector := pkgmgr.NewSelector(a.commander(false), a.cfg.PackageManager, os.Geteuid() == 0)
			manager, err := selector.Manager()
			if err != nil {
				return err
			}
			installed, err := pkgmgr.InstallMissing(cmd.Context(), manager, deps)
			if err != nil {
				return err
			}

			result := updateResult{Manager: manager.Name(), Declared: deps, Installed: installed}
			if result.Installed == nil {
				result.Installed = []string{}
			}
			return a.printer.Result(result, func(w io.Writer) error {
				if len(installed) == 0 {
					_, err := fmt.Fprintf(w, MsgDepsPresent+"\n", manager.Name())
					return err
				}
				_, err := fmt.Fprintf(w, MsgDepsInstalled, manager.Name(), strings.Join(installed, " "))
				return err
			})
		},
	}
}
