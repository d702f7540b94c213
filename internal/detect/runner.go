package detect

import (
	"context"
	"os/exec"
)

// Runner runs external commands. It is an interface so tests can fake the interpreter.
type Runner interface {
	// LookPath resolves an executable name like exec.LookPath.
	LookPath(name string) (string, error)
	// Run executes name with args and returns combined stdout and stderr.
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// LookPath calls exec.LookPath.
func (ExecRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// Run executes the command and returns its combined output.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}
