package shell

import (
	"context"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/arthur-debert/roost/pkg/errors"
	"github.com/arthur-debert/roost/pkg/filesystem"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/syntax"
)

var namePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidName reports whether name can be used as an environment variable
func ValidName(name string) bool {
	return namePattern.MatchString(name)
}

// Assignment is one variable set by the environment file
type Assignment struct {
	Name  string
	Value string
}

// FormatAssignment renders the environment file line defining name.
func FormatAssignment(name, value string) (string, error) {
	if !ValidName(name) {
		return "", errors.Newf(errors.ErrInvalidInput, "invalid variable name %q", name).
			WithOp("shell.env")
	}
	quoted, err := syntax.Quote(value, syntax.LangPOSIX)
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrInvalidInput, "cannot quote value of %s", name).
			WithOp("shell.env")
	}
	return "export " + name + "=" + quoted, nil
}

// FormatPathPrepend renders the line putting dir in front of PATH.
func FormatPathPrepend(dir string) (string, error) {
	quoted, err := syntax.Quote(dir, syntax.LangPOSIX)
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrInvalidInput, "cannot quote path %s", dir).
			WithOp("shell.env").WithDetail(errors.DetailPath, dir)
	}
	return `export PATH=` + quoted + `:"$PATH"`, nil
}

// EvalEnvFile evaluates the assignments of an environment file against
// base, in file order. Later assignments see earlier ones. Anything other
// than plain or exported assignments is rejected: the file is data, and is
// never run.
func EvalEnvFile(ctx context.Context, r io.Reader, name string, base []string) ([]Assignment, error) {
	file, err := syntax.NewParser().Parse(r, name)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrExecution, "failed to parse environment file %s", name).
			WithOp("shell.env").WithDetail(errors.DetailPath, name)
	}

	vars := newEnvList(base)
	var out []Assignment
	for _, stmt := range file.Stmts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		assigns, ok := stmtAssigns(stmt)
		if !ok {
			return nil, errors.Newf(errors.ErrExecution, "%s: only variable assignments are allowed (line %d)",
				name, stmt.Pos().Line()).
				WithOp("shell.env").WithDetail(errors.DetailPath, name)
		}

		for _, as := range assigns {
			if as.Naked || as.Name == nil {
				continue
			}
			if as.Array != nil || as.Index != nil {
				return nil, errors.Newf(errors.ErrExecution, "%s: arrays are not supported (line %d)",
					name, as.Pos().Line()).
					WithOp("shell.env").WithDetail(errors.DetailPath, name)
			}

			value := ""
			if as.Value != nil {
				value, err = expand.Literal(&expand.Config{Env: vars.environ()}, as.Value)
				if err != nil {
					return nil, errors.Wrapf(err, errors.ErrExecution, "%s: cannot evaluate %s",
						name, as.Name.Value).
						WithOp("shell.env").WithDetail(errors.DetailPath, name)
				}
			}
			if as.Append {
				value = vars.get(as.Name.Value) + value
			}

			vars.set(as.Name.Value, value)
			out = append(out, Assignment{Name: as.Name.Value, Value: value})
		}
	}
	return out, nil
}

func stmtAssigns(stmt *syntax.Stmt) ([]*syntax.Assign, bool) {
	if stmt.Negated || stmt.Background || len(stmt.Redirs) > 0 {
		return nil, false
	}
	switch cmd := stmt.Cmd.(type) {
	case *syntax.DeclClause:
		return cmd.Args, cmd.Variant != nil && cmd.Variant.Value == "export"
	case *syntax.CallExpr:
		return cmd.Assigns, len(cmd.Args) == 0
	}
	return nil, false
}

// ApplyEnvFile evaluates file against env and returns env with every
// assignment applied. A missing file leaves env unchanged.
func ApplyEnvFile(ctx context.Context, fsys filesystem.FS, file string, env []string) ([]string, error) {
	content, err := fsys.ReadFile(file)
	if err != nil {
		if os.IsNotExist(err) {
			return env, nil
		}
		return nil, errors.Wrapf(err, errors.ErrFileAccess, "failed to read environment file %s", file).
			WithOp("shell.env").WithDetail(errors.DetailPath, file)
	}

	assigns, err := EvalEnvFile(ctx, strings.NewReader(string(content)), file, env)
	if err != nil {
		return nil, err
	}
	vars := newEnvList(env)
	for _, as := range assigns {
		vars.set(as.Name, as.Value)
	}
	return vars.pairs(), nil
}

// envList is an ordered KEY=VALUE environment where later keys win.
type envList struct {
	names  []string
	values map[string]string
}

func newEnvList(env []string) *envList {
	l := &envList{values: make(map[string]string, len(env))}
	for _, kv := range env {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			continue
		}
		l.set(name, value)
	}
	return l
}

func (l *envList) get(name string) string {
	return l.values[name]
}

func (l *envList) set(name, value string) {
	if _, ok := l.values[name]; !ok {
		l.names = append(l.names, name)
	}
	l.values[name] = value
}

func (l *envList) pairs() []string {
	out := make([]string, 0, len(l.names))
	for _, name := range l.names {
		out = append(out, name+"="+l.values[name])
	}
	return out
}

func (l *envList) environ() expand.Environ {
	return expand.ListEnviron(l.pairs()...)
}
