package cli

import (
	"fmt"
	"io"

	"github.com/arthur-debert/roost/pkg/logging"
	"github.com/arthur-debert/roost/pkg/packages"
	"github.com/spf13/cobra"
)

func (a *App) newInstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "install [packageDirs...]",
		Short:   MsgInstallShort,
		Long:    MsgInstallLong,
		Example: MsgInstallExample,
		GroupID: "core",
		RunE:    a.runInstall,
	}
}

func (a *App) runInstall(cmd *cobra.Command, args []string) error {
	logger := logging.GetLogger("cli.install")

	installer := packages.NewInstaller(a.fs, a.paths, a.cfg.Descriptor)
	result, err := installer.Install(cmd.Context(), args...)
	if err != nil {
		return err
	}
	logger.Info().Int("packages", len(result.Packages)).Int("changed", result.Changed()).Msg("Install finished")

	return a.printer.Result(result, func(w io.Writer) error {
		return writeInstallResult(w, result)
	})
}

func writeInstallResult(w io.Writer, result packages.InstallResult) error {
	for _, pkg := range result.Packages {
		if _, err := fmt.Fprintf(w, MsgPackageInstall, pkg.Name, pkg.Changed, len(pkg.Links)); err != nil {
			return err
		}
		for _, link := range pkg.Relinked {
			if _, err := fmt.Fprintf(w, MsgPackageLinkItem, link); err != nil {
				return err
			}
		}
	}
	if result.Changed() == 0 {
		_, err := fmt.Fprintln(w, MsgNothingChanged)
		return err
	}
	return nil
}
