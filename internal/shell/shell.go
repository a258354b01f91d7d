// Package shell runs blocking shell commands attached to the terminal.
package shell

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/slok/stackrun/internal/log"
	"github.com/slok/stackrun/internal/model"
	"github.com/slok/stackrun/internal/utils/env"
)

// Shell runs shell commands.
type Shell interface {
	// Run runs the command and blocks until it ends, a non zero exit is an error.
	Run(ctx context.Context, command string) error
}

// ExecShellConfig is the configuration of the exec shell.
type ExecShellConfig struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	// BaseEnv is the commands environment (default: process env).
	BaseEnv []string
	// Dir is the commands working dir (default: current dir).
	Dir    string
	Logger log.Logger
}

func (c *ExecShellConfig) defaults() error {
	if c.Stdin == nil {
		c.Stdin = os.Stdin
	}
	if c.Stdout == nil {
		c.Stdout = os.Stdout
	}
	if c.Stderr == nil {
		c.Stderr = os.Stderr
	}
	if c.BaseEnv == nil {
		c.BaseEnv = os.Environ()
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "shell.Exec"})
	return nil
}

// ExecShell runs commands with the system shell (`sh -c` or `cmd /C`) sharing the terminal I/O.
type ExecShell struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	env    []string
	dir    string
	logger log.Logger
}

// NewExecShell returns a new exec shell.
func NewExecShell(cfg ExecShellConfig) (*ExecShell, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	// PATH is set explicitly so commands find the same binaries as stackrun.
	path := os.Getenv("PATH")
	for _, kv := range cfg.BaseEnv {
		if v, ok := strings.CutPrefix(kv, "PATH="); ok {
			path = v
		}
	}

	return &ExecShell{
		stdin:  cfg.Stdin,
		stdout: cfg.Stdout,
		stderr: cfg.Stderr,
		env:    env.Environ(cfg.BaseEnv, model.Env{"PATH": &path}),
		dir:    cfg.Dir,
		logger: cfg.Logger,
	}, nil
}

func (e *ExecShell) Run(ctx context.Context, command string) error {
	name, flag := "sh", "-c"
	if runtime.GOOS == "windows" {
		name, flag = "cmd", "/C"
	}

	cmd := exec.CommandContext(ctx, name, flag, command)
	cmd.Stdin = e.stdin
	cmd.Stdout = e.stdout
	cmd.Stderr = e.stderr
	cmd.Env = e.env
	cmd.Dir = e.dir

	e.logger.Debugf("Running %q", command)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("command %q failed: %w", command, err)
	}

	return nil
}
