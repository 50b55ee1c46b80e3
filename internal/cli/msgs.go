package cli

import (
	_ "embed"
	"strings"
)

// Short messages (one-liners)
const (
	// Command descriptions
	MsgRootShort       = "Bootstrap and maintain your shell environment"
	MsgInstallShort    = "Install package bundles into the roost home"
	MsgLoadShort       = "Load modules into the session"
	MsgRunShort        = "Run an installed command"
	MsgInitshShort     = "Print the shell integration snippet"
	MsgEnvShort        = "Print the environment file as shell exports"
	MsgDeployShort     = "Deploy the package cache to another host"
	MsgUpdateShort     = "Install declared dependencies with the host package manager"
	MsgConfigShort     = "Print the effective configuration"
	MsgVersionShort    = "Print version information"
	MsgCompletionShort = "Generate shell completion script"

	// Status messages
	MsgNothingChanged  = "Nothing changed."
	MsgPackageInstall  = "%s: %d changed, %d links\n"
	MsgPackageLinkItem = "  %s\n"
	MsgModuleLoaded    = "loaded %s\n"
	MsgModuleSkipped   = "up to date %s\n"
	MsgNoDeps          = "No dependencies declared."
	MsgDepsInstalled   = "%s installed: %s\n"
	MsgDepsPresent     = "All dependencies are installed (%s)."
	MsgDeployed        = "Deployed %d packages to %s\n"

	// Flag descriptions
	MsgFlagVerbose   = "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)"
	MsgFlagHome      = "Roost home directory (default $XDG_DATA_HOME/roost)"
	MsgFlagConfig    = "Configuration file (default $XDG_CONFIG_HOME/roost/config.toml)"
	MsgFlagOutput    = "Result format: text or yaml"
	MsgFlagForce     = "Reload modules even if they are up to date"
	MsgFlagDryRun    = "Print the commands instead of running them"
	MsgFlagRemoteDir = "Staging directory on the host (default from configuration)"
	MsgFlagShell     = "Shell syntax of the exports (sh, bash, zsh, fish)"
)

// Long messages from embedded files
var (
	//go:embed msgs/root-long.txt
	msgRootLongRaw string
	MsgRootLong    = strings.TrimSpace(msgRootLongRaw)

	//go:embed msgs/install-long.txt
	msgInstallLongRaw string
	MsgInstallLong    = strings.TrimSpace(msgInstallLongRaw)

	//go:embed msgs/install-example.txt
	msgInstallExampleRaw string
	MsgInstallExample    = strings.TrimRight(msgInstallExampleRaw, "\n")

	//go:embed msgs/load-long.txt
	msgLoadLongRaw string
	MsgLoadLong    = strings.TrimSpace(msgLoadLongRaw)

	//go:embed msgs/deploy-long.txt
	msgDeployLongRaw string
	MsgDeployLong    = strings.TrimSpace(msgDeployLongRaw)

	//go:embed msgs/initsh-long.txt
	msgInitshLongRaw string
	MsgInitshLong    = strings.TrimSpace(msgInitshLongRaw)

	//go:embed msgs/completion-long.txt
	msgCompletionLongRaw string
	MsgCompletionLong    = strings.TrimSpace(msgCompletionLongRaw)

	//go:embed msgs/usage-template.txt
	msgUsageTemplateRaw string
	MsgUsageTemplate    = strings.TrimSpace(msgUsageTemplateRaw) + "\n"
)
