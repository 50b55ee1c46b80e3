package pkgmgr

import (
	"context"
	"testing"

	"github.com/arthur-debert/roost/pkg/errors"
	"github.com/arthur-debert/roost/pkg/executor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelector_DetectionOrder(t *testing.T) {
	tests := []struct {
		available []string
		expected  string
	}{
		{[]string{"brew", "apt-get"}, "brew"},
		{[]string{"apt-get", "dnf"}, "apt"},
		{[]string{"dnf", "pacman"}, "dnf"},
		{[]string{"zypper", "pacman"}, "pacman"},
		{[]string{"zypper"}, "zypper"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			m, err := NewSelector(executor.NewRecorder(tt.available...), "", true).Manager()
			require.NoError(t, err)
			assert.Equal(t, tt.expected, m.Name())
		})
	}
}

func TestSelector_Memoized(t *testing.T) {
	rec := executor.NewRecorder("pacman")
	s := NewSelector(rec, "", true)

	first, err := s.Manager()
	require.NoError(t, err)
	second, err := s.Manager()
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, []string{"brew", "apt-get", "dnf", "pacman"}, rec.Lookups)
}

func TestSelector_NoneFound(t *testing.T) {
	rec := executor.NewRecorder()
	s := NewSelector(rec, "", true)

	_, err := s.Manager()
	assert.True(t, errors.IsErrorCode(err, errors.ErrNotFound))
	_, err = s.Manager()
	assert.Error(t, err)
	assert.Len(t, rec.Lookups, len(Names()))
}

func TestSelector_Preferred(t *testing.T) {
	rec := executor.NewRecorder("brew")
	m, err := NewSelector(rec, "dnf", true).Manager()
	require.NoError(t, err)
	assert.Equal(t, "dnf", m.Name())
	assert.Empty(t, rec.Lookups)

	_, err = NewSelector(rec, "portage", true).Manager()
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))
}

func TestManager_Commands(t *testing.T) {
	tests := []struct {
		name    string
		asRoot  bool
		query   string
		install string
	}{
		{"apt", true, "dpkg -s git", "apt-get install -y git fzf"},
		{"apt", false, "dpkg -s git", "sudo apt-get install -y git fzf"},
		{"dnf", true, "rpm -q git", "dnf install -y git fzf"},
		{"pacman", true, "pacman -Q git", "pacman -S --noconfirm --needed git fzf"},
		{"zypper", true, "rpm -q git", "zypper --non-interactive install git fzf"},
		{"brew", false, "brew list --formula git", "brew install git fzf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := executor.NewRecorder()
			m, err := NewSelector(rec, tt.name, tt.asRoot).Manager()
			require.NoError(t, err)

			ok, err := m.IsInstalled(context.Background(), "git")
			require.NoError(t, err)
			assert.True(t, ok)
			require.NoError(t, m.Install(context.Background(), "git", "fzf"))

			assert.Equal(t, []string{tt.query, tt.install}, rec.Lines())
		})
	}
}

func TestManager_NotInstalled(t *testing.T) {
	rec := executor.NewRecorder()
	rec.Fail["dpkg -s missing"] = 1
	m, err := NewSelector(rec, "apt", true).Manager()
	require.NoError(t, err)

	ok, err := m.IsInstalled(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestManager_InstallFailure(t *testing.T) {
	rec := executor.NewRecorder()
	rec.Fail["apt-get install -y git"] = 100
	m, err := NewSelector(rec, "apt", true).Manager()
	require.NoError(t, err)

	err = m.Install(context.Background(), "git")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrExecution))
	assert.Equal(t, 100, errors.GetErrorDetails(err)[errors.DetailStatus])
}

func TestInstallMissing(t *testing.T) {
	rec := executor.NewRecorder()
	rec.Fail["dpkg -s fzf"] = 1
	rec.Fail["dpkg -s ripgrep"] = 1
	m, err := NewSelector(rec, "apt", true).Manager()
	require.NoError(t, err)

	installed, err := InstallMissing(context.Background(), m, []string{"git", "fzf", "ripgrep"})
	require.NoError(t, err)
	assert.Equal(t, []string{"fzf", "ripgrep"}, installed)
	assert.Equal(t, "apt-get install -y fzf ripgrep", rec.Lines()[len(rec.Lines())-1])
}

func TestInstallMissing_NothingToDo(t *testing.T) {
	rec := executor.NewRecorder()
	m, err := NewSelector(rec, "brew", false).Manager()
	require.NoError(t, err)

	installed, err := InstallMissing(context.Background(), m, []string{"git"})
	require.NoError(t, err)
	assert.Empty(t, installed)
	assert.Equal(t, []string{"brew list --formula git"}, rec.Lines())
}
