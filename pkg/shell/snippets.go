package shell

import (
	"fmt"
	"sort"
	"strings"

	"github.com/arthur-debert/roost/pkg/errors"
	"github.com/arthur-debert/roost/pkg/paths"
	"mvdan.cc/sh/v3/syntax"
)

// Supported interactive shells
const (
	KindSh   = "sh"
	KindBash = "bash"
	KindZsh  = "zsh"
	KindFish = "fish"
)

// Kinds lists the shells InitSnippet supports
var Kinds = []string{KindSh, KindBash, KindZsh, KindFish}

// InitSnippet returns the rc-file snippet for kind: it exports ROOST_HOME,
// puts the bin directory on PATH once, and applies the environment file.
//
// POSIX shells source the environment file directly. fish cannot read it,
// so it evaluates the file through `roost env --shell fish`.
func InitSnippet(kind string, p paths.Paths) (string, error) {
	home, err := posixQuote(p.Home())
	if err != nil {
		return "", err
	}
	bin, err := posixQuote(p.BinDir())
	if err != nil {
		return "", err
	}
	env, err := posixQuote(p.EnvFile())
	if err != nil {
		return "", err
	}

	switch kind {
	case KindSh, KindBash, KindZsh:
		return fmt.Sprintf(`export %s=%s
case ":$PATH:" in
    *:%s:*) ;;
    *) export PATH=%s:"$PATH" ;;
esac
[ -f %s ] && . %s`, EnvHome, home, bin, bin, env, env), nil
	case KindFish:
		return fmt.Sprintf(`set -gx %s %s
contains -- %s $PATH; or set -gx PATH %s $PATH
if test -f %s
    roost env --shell fish | source
end`, EnvHome, fishQuote(p.Home()), fishQuote(p.BinDir()), fishQuote(p.BinDir()), fishQuote(p.EnvFile())), nil
	}
	return "", errors.Newf(errors.ErrInvalidInput, "unsupported shell %q (want one of %s)",
		kind, strings.Join(Kinds, ", ")).WithOp("shell.initsh")
}

// FormatExports renders assignments as commands for kind. Only the last
// value of each variable is kept, and names are emitted sorted.
func FormatExports(kind string, assigns []Assignment) (string, error) {
	final := make(map[string]string, len(assigns))
	for _, as := range assigns {
		final[as.Name] = as.Value
	}
	names := make([]string, 0, len(final))
	for name := range final {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		value := final[name]
		switch kind {
		case KindFish:
			if name == "PATH" {
				// fish keeps PATH as a list
				fmt.Fprintf(&b, "set -gx PATH %s\n", strings.Join(fishQuoteAll(strings.Split(value, ":")), " "))
				continue
			}
			fmt.Fprintf(&b, "set -gx %s %s\n", name, fishQuote(value))
		case KindSh, KindBash, KindZsh:
			line, err := FormatAssignment(name, value)
			if err != nil {
				return "", err
			}
			b.WriteString(line + "\n")
		default:
			return "", errors.Newf(errors.ErrInvalidInput, "unsupported shell %q", kind).WithOp("shell.exports")
		}
	}
	return b.String(), nil
}

func posixQuote(s string) (string, error) {
	quoted, err := syntax.Quote(s, syntax.LangPOSIX)
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrInvalidInput, "cannot quote %s", s).WithOp("shell.initsh")
	}
	return quoted, nil
}

func fishQuote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(s) + "'"
}

func fishQuoteAll(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item == "" {
			continue
		}
		out = append(out, fishQuote(item))
	}
	return out
}
