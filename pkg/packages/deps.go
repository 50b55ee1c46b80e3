package packages

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/arthur-debert/roost/pkg/errors"
	"github.com/arthur-debert/roost/pkg/filesystem"
)

// ReadDeps reads a newline-delimited dependency list. Blank lines and
// lines starting with # are ignored; a missing file is an empty list.
func ReadDeps(fsys filesystem.FS, file string) ([]string, error) {
	content, err := fsys.ReadFile(file)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, errors.ErrFileAccess, "failed to read dependency list %s", file).
			WithOp("packages.deps").WithDetail(errors.DetailPath, file)
	}

	var deps []string
	scanner := bufio.NewScanner(strings.NewReader(string(content)))
	for line := 1; scanner.Scan(); line++ {
		dep := strings.TrimSpace(scanner.Text())
		if dep == "" || strings.HasPrefix(dep, "#") {
			continue
		}
		if strings.ContainsAny(dep, " \t") {
			return nil, errors.Newf(errors.ErrValidation, "%s:%d: one dependency per line", file, line).
				WithOp("packages.deps").WithDetail(errors.DetailPath, file)
		}
		deps = append(deps, dep)
	}
	return deps, nil
}

// AppendDeps adds the names missing from the dependency list at file and
// returns the ones it added.
func AppendDeps(fsys filesystem.FS, file string, names []string) ([]string, error) {
	if len(names) == 0 {
		return nil, nil
	}

	existing, err := ReadDeps(fsys, file)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(existing))
	for _, dep := range existing {
		seen[dep] = true
	}

	var added []string
	for _, name := range names {
		if !seen[name] {
			seen[name] = true
			added = append(added, name)
		}
	}
	if len(added) == 0 {
		return nil, nil
	}

	content, err := fsys.ReadFile(file)
	if err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, errors.ErrFileAccess, "failed to read dependency list %s", file).
			WithOp("packages.deps").WithDetail(errors.DetailPath, file)
	}
	var b strings.Builder
	b.Write(content)
	if len(content) > 0 && content[len(content)-1] != '\n' {
		b.WriteByte('\n')
	}
	for _, name := range added {
		b.WriteString(name + "\n")
	}

	if err := fsys.MkdirAll(filepath.Dir(file), 0755); err != nil {
		return nil, errors.Wrapf(err, errors.ErrFileAccess, "failed to create %s", filepath.Dir(file)).
			WithOp("packages.deps").WithDetail(errors.DetailPath, file)
	}
	if err := fsys.WriteFile(file, []byte(b.String()), 0644); err != nil {
		return nil, errors.Wrapf(err, errors.ErrFileAccess, "failed to write dependency list %s", file).
			WithOp("packages.deps").WithDetail(errors.DetailPath, file)
	}
	return added, nil
}
