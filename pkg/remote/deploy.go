// Package remote deploys the package cache to another host over ssh.
//
// Deploying copies <home>/pkg with rsync into a staging directory on the
// host, then runs `roost install` there on every copied package. Both
// steps are plain external commands.
package remote

import (
	"context"
	"path"
	"strings"

	"github.com/arthur-debert/roost/pkg/errors"
	"github.com/arthur-debert/roost/pkg/executor"
	"github.com/arthur-debert/roost/pkg/logging"
	"mvdan.cc/sh/v3/syntax"
)

// Defaults for Options
const (
	DefaultRemoteDir = ".cache/roost/deploy"
	DefaultSSH       = "ssh"
	DefaultRsync     = "rsync"
	DefaultRoost     = "roost"
)

// Options configures a Deployer
type Options struct {
	// RemoteDir is the staging directory on the host, relative to the
	// remote home unless absolute
	RemoteDir string
	SSH       string
	Rsync     string
	// Roost is the roost executable on the host
	Roost string
}

func (o Options) withDefaults() Options {
	if o.RemoteDir == "" {
		o.RemoteDir = DefaultRemoteDir
	}
	if strings.TrimSpace(o.SSH) == "" {
		o.SSH = DefaultSSH
	}
	if o.Rsync == "" {
		o.Rsync = DefaultRsync
	}
	if o.Roost == "" {
		o.Roost = DefaultRoost
	}
	return o
}

// Deployer pushes package caches to hosts
type Deployer struct {
	cmd  executor.Commander
	opts Options
}

// NewDeployer creates a deployer running commands through cmd
func NewDeployer(cmd executor.Commander, opts Options) *Deployer {
	return &Deployer{cmd: cmd, opts: opts.withDefaults()}
}

// Deploy copies cacheDir to host and installs the named packages there.
func (d *Deployer) Deploy(ctx context.Context, host, cacheDir string, packages []string) error {
	logger := logging.GetLogger("remote.deploy")

	if host == "" || strings.HasPrefix(host, "-") {
		return errors.Newf(errors.ErrInvalidInput, "invalid host %q", host).WithOp("remote.deploy")
	}
	if len(packages) == 0 {
		return errors.New(errors.ErrInvalidInput, "no installed packages to deploy").WithOp("remote.deploy")
	}

	remoteDir := strings.TrimSuffix(d.opts.RemoteDir, "/")
	mkdir, err := remoteCommand("mkdir", "-p", remoteDir)
	if err != nil {
		return err
	}
	install := []string{d.opts.Roost, "install"}
	for _, pkg := range packages {
		install = append(install, path.Join(remoteDir, pkg))
	}
	installLine, err := remoteCommand(install...)
	if err != nil {
		return err
	}

	// SSH may carry options; rsync takes it as one -e string
	ssh := strings.Fields(d.opts.SSH)
	sshStep := func(line string) executor.Command {
		return executor.Command{Name: ssh[0], Args: append(append([]string(nil), ssh[1:]...), host, line)}
	}
	steps := []executor.Command{
		sshStep(mkdir),
		{Name: d.opts.Rsync, Args: []string{"-a", "-e", d.opts.SSH, strings.TrimSuffix(cacheDir, "/") + "/", host + ":" + remoteDir + "/"}},
		sshStep(installLine),
	}
	for _, step := range steps {
		logger.Info().Str("host", host).Str("command", step.String()).Msg("Deploying")
		if err := d.cmd.Run(ctx, step); err != nil {
			return errors.Wrapf(err, errors.ErrExecution, "deploy to %s failed", host).
				WithOp("remote.deploy").WithDetail(errors.DetailCommand, step.String())
		}
	}
	return nil
}

// remoteCommand quotes argv into a single line for the remote shell.
func remoteCommand(argv ...string) (string, error) {
	quoted := make([]string, 0, len(argv))
	for _, arg := range argv {
		q, err := syntax.Quote(arg, syntax.LangPOSIX)
		if err != nil {
			return "", errors.Wrapf(err, errors.ErrInvalidInput, "cannot quote %q for the remote shell", arg).
				WithOp("remote.deploy")
		}
		quoted = append(quoted, q)
	}
	return strings.Join(quoted, " "), nil
}
