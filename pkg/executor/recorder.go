package executor

import (
	"context"
	"sync"

	"github.com/arthur-debert/roost/pkg/errors"
)

// Recorder is a Commander that records invocations without running
// anything. Tests use it in place of Exec.
type Recorder struct {
	mu sync.Mutex

	// Available lists the executables LookPath finds, by name
	Available map[string]bool
	// Fail maps a rendered command line to the status it exits with
	Fail map[string]int

	Commands []Command
	Lookups  []string
}

// NewRecorder creates a recorder where the named executables exist
func NewRecorder(available ...string) *Recorder {
	r := &Recorder{Available: make(map[string]bool), Fail: make(map[string]int)}
	for _, name := range available {
		r.Available[name] = true
	}
	return r
}

func (r *Recorder) Run(ctx context.Context, cmd Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	r.Commands = append(r.Commands, cmd)
	if status, ok := r.Fail[cmd.String()]; ok {
		return errors.Newf(errors.ErrExecution, "%s exited with status %d", cmd.Name, status).
			WithOp("executor.run").
			WithDetail(errors.DetailCommand, cmd.String()).
			WithDetail(errors.DetailStatus, status)
	}
	return nil
}

func (r *Recorder) LookPath(name string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Lookups = append(r.Lookups, name)
	if !r.Available[name] {
		return "", errors.Newf(errors.ErrNotFound, "%s not found", name).
			WithOp("executor.lookpath").WithDetail(errors.DetailCommand, name)
	}
	return "/usr/bin/" + name, nil
}

// Lines returns the rendered command lines in invocation order
func (r *Recorder) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	lines := make([]string, 0, len(r.Commands))
	for _, c := range r.Commands {
		lines = append(lines, c.String())
	}
	return lines
}
