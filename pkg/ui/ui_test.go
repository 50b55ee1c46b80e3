package ui

import (
	"bytes"
	"fmt"
	"io"
	"testing"

	"github.com/arthur-debert/roost/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "", want: FormatText},
		{in: "text", want: FormatText},
		{in: " YAML ", want: FormatYAML},
		{in: "json", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDiagnostics_PlainOnNonTerminal(t *testing.T) {
	var out, errOut bytes.Buffer
	p := NewPrinter(&out, &errOut, FormatText)

	p.Errorf("boom %d", 1)
	p.Warnf("careful")
	p.Infof("fyi")

	assert.Equal(t, "error: boom 1\nwarning: careful\ninfo: fyi\n", errOut.String())
	assert.Empty(t, out.String())
}

func TestFault(t *testing.T) {
	var errOut bytes.Buffer
	p := NewPrinter(io.Discard, &errOut, FormatText)

	err := errors.Wrap(fmt.Errorf("exit status 2"), errors.ErrExecution, "module failed").
		WithOp("modules.load").WithDetail(errors.DetailModule, "demo-hello")
	p.Fault(err)

	lines := errOut.String()
	assert.Contains(t, lines, "error: [EXECUTION] module failed")
	assert.Contains(t, lines, "  module=demo-hello op=modules.load\n")

	errOut.Reset()
	p.Fault(nil)
	assert.Empty(t, errOut.String())
}

func TestResult(t *testing.T) {
	type row struct {
		Name  string   `yaml:"name"`
		Links []string `yaml:"links"`
	}
	value := row{Name: "demo", Links: []string{"cmd/demo-hello"}}
	text := func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "%s: %d links\n", value.Name, len(value.Links))
		return err
	}

	var out bytes.Buffer
	require.NoError(t, NewPrinter(&out, io.Discard, FormatText).Result(value, text))
	assert.Equal(t, "demo: 1 links\n", out.String())

	out.Reset()
	require.NoError(t, NewPrinter(&out, io.Discard, FormatYAML).Result(value, text))
	assert.Equal(t, "name: demo\nlinks:\n  - cmd/demo-hello\n", out.String())
}
