// Package ui writes what roost shows the user: severity-prefixed
// diagnostics on the error stream and command results on the output
// stream, either as text or as yaml.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/arthur-debert/roost/pkg/errors"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"gopkg.in/yaml.v3"
)

// Format selects how results are rendered
type Format string

const (
	FormatText Format = "text"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a --output value. Empty means text.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatText:
		return FormatText, nil
	case FormatYAML:
		return FormatYAML, nil
	}
	return "", errors.Newf(errors.ErrInvalidInput, "unknown output format %q (want text or yaml)", s).
		WithOp("ui.format")
}

// Severity of a diagnostic line
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

var severityColors = map[Severity]lipgloss.Color{
	SeverityError:   lipgloss.Color("9"),
	SeverityWarning: lipgloss.Color("11"),
	SeverityInfo:    lipgloss.Color("12"),
}

// Printer renders diagnostics and results
type Printer struct {
	out    io.Writer
	err    io.Writer
	format Format
	styles map[Severity]lipgloss.Style
}

// NewPrinter creates a printer. Prefixes are coloured only when stderr is
// a terminal and NO_COLOR is unset.
func NewPrinter(stdout, stderr io.Writer, format Format) *Printer {
	p := &Printer{out: stdout, err: stderr, format: format}
	if ColorEnabled(stderr) {
		renderer := lipgloss.NewRenderer(stderr)
		p.styles = make(map[Severity]lipgloss.Style, len(severityColors))
		for sev, color := range severityColors {
			p.styles[sev] = renderer.NewStyle().Bold(true).Foreground(color)
		}
	}
	return p
}

// ColorEnabled reports whether w is a terminal that should get colour
func ColorEnabled(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Format returns the result format
func (p *Printer) Format() Format {
	return p.format
}

// Out is the result stream
func (p *Printer) Out() io.Writer {
	return p.out
}

func (p *Printer) prefix(sev Severity) string {
	label := string(sev) + ":"
	if style, ok := p.styles[sev]; ok {
		return style.Render(label)
	}
	return label
}

// Diagnostic writes one severity-prefixed line to the error stream
func (p *Printer) Diagnostic(sev Severity, format string, args ...interface{}) {
	_, _ = fmt.Fprintf(p.err, "%s %s\n", p.prefix(sev), fmt.Sprintf(format, args...))
}

func (p *Printer) Errorf(format string, args ...interface{}) {
	p.Diagnostic(SeverityError, format, args...)
}

func (p *Printer) Warnf(format string, args ...interface{}) {
	p.Diagnostic(SeverityWarning, format, args...)
}

func (p *Printer) Infof(format string, args ...interface{}) {
	p.Diagnostic(SeverityInfo, format, args...)
}

// Fault reports a failure that ends the process: the error line, then the
// failing location and subject from the error details.
func (p *Printer) Fault(err error) {
	if err == nil {
		return
	}
	p.Errorf("%v", err)
	if details := errors.GetErrorDetails(err); len(details) > 0 {
		_, _ = fmt.Fprintf(p.err, "  %s\n", errors.FormatDetails(details))
	}
}

// Result renders v. Text output calls text; yaml output encodes v.
func (p *Printer) Result(v interface{}, text func(w io.Writer) error) error {
	if p.format == FormatYAML {
		enc := yaml.NewEncoder(p.out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return errors.Wrap(err, errors.ErrInternal, "failed to render yaml").WithOp("ui.result")
		}
		if err := enc.Close(); err != nil {
			return errors.Wrap(err, errors.ErrInternal, "failed to render yaml").WithOp("ui.result")
		}
		return nil
	}
	if text == nil {
		return nil
	}
	return text(p.out)
}
