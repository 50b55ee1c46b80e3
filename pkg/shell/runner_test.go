package shell

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/arthur-debert/roost/pkg/errors"
	"github.com/arthur-debert/roost/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingDefiner struct {
	defined map[string]string
	paths   []string
}

func (d *recordingDefiner) Define(name, value string) error {
	if d.defined == nil {
		d.defined = make(map[string]string)
	}
	d.defined[name] = value
	return nil
}

func (d *recordingDefiner) PrependPath(dir string) error {
	d.paths = append(d.paths, dir)
	return nil
}

func run(t *testing.T, script string, opts RunOptions) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	opts.Script = strings.NewReader(script)
	if opts.Name == "" {
		opts.Name = "test"
	}
	if opts.Dir == "" {
		opts.Dir = testutil.PhysicalTempDir(t)
	}
	opts.Stdout = &stdout
	opts.Stderr = &stderr
	err := NewRunner().RunScript(context.Background(), opts)
	return stdout.String(), stderr.String(), err
}

func TestRunScript_Output(t *testing.T) {
	out, _, err := run(t, `echo "$GREETING $1"`, RunOptions{
		Env:  []string{"GREETING=hello"},
		Args: []string{"world"},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello world\n", out)
}

func TestRunScript_DashArgs(t *testing.T) {
	out, _, err := run(t, `echo "$1"`, RunOptions{Args: []string{"-x"}})
	require.NoError(t, err)
	assert.Equal(t, "-x\n", out)
}

func TestRunScript_WorkingDirectory(t *testing.T) {
	dir := testutil.PhysicalTempDir(t)
	_, _, err := run(t, `echo here > marker`, RunOptions{Dir: dir})
	require.NoError(t, err)
	testutil.AssertFileContent(t, filepath.Join(dir, "marker"), "here\n")
}

func TestRunScript_DoesNotLeakState(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	t.Setenv("ROOST_LEAK_TEST", "before")

	_, _, err = run(t, `cd /; ROOST_LEAK_TEST=after; export ROOST_LEAK_TEST`, RunOptions{Env: os.Environ()})
	require.NoError(t, err)

	after, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, wd, after)
	assert.Equal(t, "before", os.Getenv("ROOST_LEAK_TEST"))
}

func TestRunScript_ExitStatus(t *testing.T) {
	_, _, err := run(t, `exit 3`, RunOptions{Name: "failing"})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrExecution))

	details := errors.GetErrorDetails(err)
	assert.Equal(t, 3, details[errors.DetailStatus])
	assert.Equal(t, "failing", details[errors.DetailModule])
}

func TestRunScript_ParseError(t *testing.T) {
	_, _, err := run(t, `if then fi (`, RunOptions{})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrExecution))
}

func TestRunScript_Builtins(t *testing.T) {
	dir := testutil.PhysicalTempDir(t)
	definer := &recordingDefiner{}

	_, _, err := run(t, `
roost_define EDITOR 'vim -u NONE'
mkdir tools
roost_path tools
roost_path /opt/bin
`, RunOptions{Dir: dir, Env: os.Environ(), Definer: definer})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"EDITOR": "vim -u NONE"}, definer.defined)
	assert.Equal(t, []string{filepath.Join(dir, "tools"), "/opt/bin"}, definer.paths)
}

func TestRunScript_BuiltinMisuse(t *testing.T) {
	tests := []struct {
		name    string
		script  string
		definer Definer
	}{
		{"define_missing_value", `roost_define ONLY_NAME`, &recordingDefiner{}},
		{"path_too_many_args", `roost_path a b`, &recordingDefiner{}},
		{"no_definer", `roost_define A b`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, stderr, err := run(t, tt.script, RunOptions{Definer: tt.definer})
			require.Error(t, err)
			assert.Equal(t, 2, errors.GetErrorDetails(err)[errors.DetailStatus])
			assert.NotEmpty(t, stderr)
		})
	}
}

func TestRunScript_BuiltinStatusIsCheckable(t *testing.T) {
	out, _, err := run(t, `roost_define 1BAD x || echo rejected`, RunOptions{Definer: failingDefiner{}})
	require.NoError(t, err)
	assert.Equal(t, "rejected\n", out)
}

type failingDefiner struct{}

func (failingDefiner) Define(name, value string) error {
	return errors.Newf(errors.ErrInvalidInput, "invalid variable name %q", name)
}

func (failingDefiner) PrependPath(string) error { return nil }
