package cloudflared

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// Cmd runs the cloudflared CLI.
type Cmd interface {
	// LookPath returns the cloudflared binary path or an error if it's not installed.
	LookPath() (string, error)
	// Stream runs a cloudflared command streaming its output until it ends.
	Stream(ctx context.Context, env []string, args ...string) error
}

// ExecCmd runs the cloudflared binary as an OS process.
type ExecCmd struct {
	Binary string
	Stdout io.Writer
	Stderr io.Writer
}

// NewExecCmd returns a cloudflared command runner streaming to the writers.
func NewExecCmd(binary string, stdout, stderr io.Writer) ExecCmd {
	if binary == "" {
		binary = DefaultBinary
	}
	return ExecCmd{Binary: binary, Stdout: stdout, Stderr: stderr}
}

func (e ExecCmd) LookPath() (string, error) {
	return exec.LookPath(e.Binary)
}

func (e ExecCmd) Stream(ctx context.Context, env []string, args ...string) error {
	cmd := exec.CommandContext(ctx, e.Binary, args...)
	cmd.Env = env
	cmd.Stdout = e.Stdout
	cmd.Stderr = e.Stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("cloudflared %s: %w", strings.Join(args, " "), err)
	}

	return nil
}
