package cli

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/arthur-debert/roost/pkg/packages"
	"github.com/arthur-debert/roost/pkg/paths"
	"github.com/arthur-debert/roost/pkg/remote"
	"github.com/spf13/cobra"
)

// deployResult is what `roost deploy` reports
type deployResult struct {
	Host      string   `yaml:"host"`
	RemoteDir string   `yaml:"remote_dir"`
	Packages  []string `yaml:"packages"`
	DryRun    bool     `yaml:"dry_run"`
}

func (a *App) newDeployCmd() *cobra.Command {
	var (
		remoteDir string
		dryRun    bool
	)

	cmd := &cobra.Command{
		Use:     "deploy [--remote-dir DIR] [--dry-run] <host>",
		Short:   MsgDeployShort,
		Long:    MsgDeployLong,
		GroupID: "core",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			host := args[0]

			installed, err := packages.NewInstaller(a.fs, a.paths, a.cfg.Descriptor).Installed()
			if err != nil {
				return err
			}

			opts := remote.Options{
				RemoteDir: a.cfg.Deploy.RemoteDir,
				SSH:       a.cfg.Deploy.SSH,
				Rsync:     a.cfg.Deploy.Rsync,
				Roost:     a.cfg.Deploy.Roost,
			}
			if remoteDir != "" {
				opts.RemoteDir = remoteDir
			}

			deployer := remote.NewDeployer(a.commander(dryRun), opts)
			cache := filepath.Join(a.paths.Home(), paths.PackageCacheDir)
			if err := deployer.Deploy(cmd.Context(), host, cache, installed); err != nil {
				return err
			}

			result := deployResult{Host: host, RemoteDir: opts.RemoteDir, Packages: installed, DryRun: dryRun}
			if opts.RemoteDir == "" {
				result.RemoteDir = remote.DefaultRemoteDir
			}
			return a.printer.Result(result, func(w io.Writer) error {
				if dryRun {
					return nil
				}
				_, err := fmt.Fprintf(w, MsgDeployed, len(installed), host)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&remoteDir, "remote-dir", "", MsgFlagRemoteDir)
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, MsgFlagDryRun)
	return cmd
}
