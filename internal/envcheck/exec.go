package envcheck

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// CommandRunner runs a command and returns its stdout.
type CommandRunner interface {
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands on the host.
type ExecRunner struct{}

func (ExecRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return out, fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return out, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

// Env is the host as seen by the checks. SystemEnv wires the real one.
type Env struct {
	GOOS     string
	Getenv   func(string) string
	ReadFile func(string) ([]byte, error)
	Glob     func(string) ([]string, error)
	LookPath func(string) (string, error)
	// WritableDir creates dir if needed and proves a file can be written there.
	WritableDir func(string) error
	HomeDir     string
	Runner      CommandRunner
}
