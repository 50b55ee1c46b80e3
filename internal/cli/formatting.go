package cli

import (
	"io"
	"regexp"
	"strings"
	"text/template"

	"github.com/arthur-debert/roost/pkg/ui"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// flagSpec matches the "-v, --verbose" part of a pflag usage line
var flagSpec = regexp.MustCompile(`^(\s*)((?:-\w, )?--[\w-]+|-\w)`)

// helpStyle renders the help template: section headings, group titles,
// command names and flag names.
type helpStyle struct {
	heading func(string) string
	accent  func(string) string
}

// newHelpStyle styles help for w. Anything but a colour terminal gets
// plain text.
func newHelpStyle(w io.Writer) helpStyle {
	if !ui.ColorEnabled(w) {
		plain := func(s string) string { return s }
		return helpStyle{heading: plain, accent: plain}
	}
	heading := pterm.NewStyle(pterm.Bold)
	accent := pterm.NewStyle(pterm.FgCyan)
	return helpStyle{
		heading: func(s string) string { return heading.Sprint(s) },
		accent:  func(s string) string { return accent.Sprint(s) },
	}
}

// section is a heading such as "global flags", upper-cased
func (h helpStyle) section(s string) string {
	return h.heading(strings.ToUpper(s))
}

// title renders a command group title as a heading
func (h helpStyle) title(s string) string {
	return h.heading(strings.ToUpper(strings.TrimSuffix(s, ":")) + ":")
}

// flagNames highlights the flag names in a pflag usage block
func (h helpStyle) flagNames(usages string) string {
	lines := strings.Split(usages, "\n")
	for n, line := range lines {
		m := flagSpec.FindStringSubmatchIndex(line)
		if m == nil {
			continue
		}
		lines[n] = line[:m[4]] + h.accent(line[m[4]:m[5]]) + line[m[5]:]
	}
	return strings.Join(lines, "\n")
}

// funcs are the template functions the usage template refers to
func (h helpStyle) funcs() template.FuncMap {
	return template.FuncMap{
		"section":   h.section,
		"title":     h.title,
		"accent":    h.accent,
		"flagNames": h.flagNames,
	}
}

// initTemplateFormatting registers the help functions styled for out.
// Cobra keeps template functions globally, so the last root built wins.
func initTemplateFormatting(out io.Writer) {
	cobra.AddTemplateFuncs(newHelpStyle(out).funcs())
}
