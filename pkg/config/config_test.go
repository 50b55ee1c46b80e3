package config

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/adrg/xdg"
	"github.com/arthur-debert/roost/pkg/errors"
	"github.com/arthur-debert/roost/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points XDG at empty temp dirs and clears ROOST_* variables
func isolate(t *testing.T) string {
	t.Helper()
	dir := testutil.PhysicalTempDir(t)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	for name := range envKeys {
		t.Setenv(name, "")
	}
	xdg.Reload()
	t.Cleanup(xdg.Reload)
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "data", "roost"), cfg.Home)
	assert.Equal(t, "sh", cfg.Shell)
	assert.Equal(t, "name", cfg.Descriptor)
	assert.Empty(t, cfg.PackageManager)
	assert.Equal(t, Deploy{RemoteDir: ".cache/roost/deploy", SSH: "ssh", Rsync: "rsync", Roost: "roost"}, cfg.Deploy)
}

func TestLoad_UserFile(t *testing.T) {
	dir := isolate(t)
	testutil.CreateFile(t, filepath.Join(dir, "config"), "roost/config.toml", `
home = "/srv/roost"
package_manager = "apt"

[deploy]
ssh = "ssh -p 2222"
`)

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "/srv/roost", cfg.Home)
	assert.Equal(t, "apt", cfg.PackageManager)
	assert.Equal(t, "ssh -p 2222", cfg.Deploy.SSH)
	// untouched keys keep their defaults
	assert.Equal(t, "rsync", cfg.Deploy.Rsync)
}

func TestLoad_ExplicitPath(t *testing.T) {
	dir := isolate(t)
	path := testutil.CreateFile(t, dir, "custom.toml", `shell = "zsh"`)

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "zsh", cfg.Shell)

	_, err = Load(filepath.Join(dir, "missing.toml"), nil)
	assert.True(t, errors.IsErrorCode(err, errors.ErrConfigLoad))
}

func TestLoad_InvalidFile(t *testing.T) {
	dir := isolate(t)

	tests := map[string]string{
		"syntax":      "home = ",
		"unknown_key": `colour = "blue"`,
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := testutil.CreateFile(t, dir, name+".toml", content)
			_, err := Load(path, nil)
			assert.True(t, errors.IsErrorCode(err, errors.ErrConfigLoad), "got %v", err)
		})
	}
}

func TestLoad_Precedence(t *testing.T) {
	dir := isolate(t)
	path := testutil.CreateFile(t, dir, "config.toml", `
home = "/from/file"
shell = "bash"
`)
	t.Setenv("ROOST_HOME", "/from/env")
	t.Setenv("ROOST_DEPLOY_REMOTE_DIR", "stage")
	t.Setenv("ROOST_UNRELATED", "ignored")

	cfg, err := Load(path, map[string]interface{}{"shell": "fish", "descriptor": ""})
	require.NoError(t, err)
	assert.Equal(t, "/from/env", cfg.Home)
	assert.Equal(t, "fish", cfg.Shell)
	assert.Equal(t, "name", cfg.Descriptor)
	assert.Equal(t, "stage", cfg.Deploy.RemoteDir)

	cfg, err = Load(path, map[string]interface{}{"home": "/from/flag"})
	require.NoError(t, err)
	assert.Equal(t, "/from/flag", cfg.Home)
}

func TestConfig_TOML(t *testing.T) {
	isolate(t)
	cfg, err := Load("", map[string]interface{}{"home": "/h"})
	require.NoError(t, err)

	out, err := cfg.TOML()
	require.NoError(t, err)
	text := string(out)
	assert.True(t, strings.Contains(text, "home = '/h'") || strings.Contains(text, `home = "/h"`), text)
	assert.Contains(t, text, "[deploy]")

	// the rendering loads back to the same configuration
	path := testutil.CreateFile(t, testutil.PhysicalTempDir(t), "dump.toml", text)
	again, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}
