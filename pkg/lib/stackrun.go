package lib

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/slok/stackrun/internal/app/history"
	"github.com/slok/stackrun/internal/app/run"
	"github.com/slok/stackrun/internal/conventions"
	"github.com/slok/stackrun/internal/log"
	"github.com/slok/stackrun/internal/runner"
	"github.com/slok/stackrun/internal/shell"
	"github.com/slok/stackrun/internal/storage"
	storageio "github.com/slok/stackrun/internal/storage/io"
	"github.com/slok/stackrun/internal/storage/memory"
	"github.com/slok/stackrun/internal/storage/sqlite"
	"github.com/slok/stackrun/internal/utils/env"
)

const defaultBinary = "stackrun"

// Config configures the SDK client.
//
// All fields are optional and have sensible defaults. At minimum, an empty
// Config{} will use ~/.stackrun/stackrun.db for the run history and the
// process stdio for the processes output.
type Config struct {
	// DBPath is the SQLite run history database path.
	// Default: ~/.stackrun/stackrun.db.
	DBPath string

	// DataDir is the base directory for stackrun data.
	// Default: ~/.stackrun.
	DataDir string

	// NoHistory keeps the run history in memory, nothing is written to disk.
	NoHistory bool

	// Logger receives structured log output from the SDK.
	// Default: noop (silent). See the log sub-package for the interface.
	Logger log.Logger

	// Stdin, Stdout and Stderr are the processes and hooks I/O.
	// Default: the current process stdio.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// NoColor disables the colored process prefixes.
	NoColor bool

	// WorkDir is the directory the hooks run in and where the run temporary files live.
	// Default: current dir.
	WorkDir string

	// Executable is the stackrun binary used to launch the tunnel agent.
	// If empty, the binary is searched in PATH.
	Executable string
}

func (c *Config) defaults() error {
	if c.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("could not get user home dir: %w", err)
		}
		c.DataDir = filepath.Join(home, conventions.DefaultDataDir)
	}

	if c.DBPath == "" {
		c.DBPath = conventions.DBPath(c.DataDir)
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	if c.Stdin == nil {
		c.Stdin = os.Stdin
	}
	if c.Stdout == nil {
		c.Stdout = os.Stdout
	}
	if c.Stderr == nil {
		c.Stderr = os.Stderr
	}

	if c.WorkDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("could not get working directory: %w", err)
		}
		c.WorkDir = wd
	}

	if c.Executable == "" {
		c.Executable = defaultBinary
		if p, err := exec.LookPath(defaultBinary); err == nil {
			c.Executable = p
		}
	}

	return nil
}

// Client is the main SDK entry point for running stacks programmatically.
//
// Create a Client with [New] and release its resources with [Client.Close].
// A Client is safe for concurrent use, but concurrent runs share the same
// output writers.
type Client struct {
	repo       storage.RunRepository
	history    *history.Service
	logger     log.Logger
	stdin      io.Reader
	stdout     io.Writer
	stderr     io.Writer
	renderer   *lipgloss.Renderer
	workDir    string
	executable string
	closeFn    func() error
}

// New creates a new SDK client backed by a SQLite run history database.
//
// The caller must call [Client.Close] when done to release the database
// connection. Typically used with defer:
//
//	client, err := lib.New(ctx, lib.Config{})
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
func New(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	var (
		repo    storage.RunRepository
		closeFn func() error
	)
	if cfg.NoHistory {
		memRepo, err := memory.NewRepository(memory.RepositoryConfig{Logger: cfg.Logger})
		if err != nil {
			return nil, fmt.Errorf("could not create repository: %w", err)
		}
		repo = memRepo
	} else {
		sqliteRepo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
			DBPath: cfg.DBPath,
			Logger: cfg.Logger,
		})
		if err != nil {
			return nil, fmt.Errorf("could not create repository: %w", err)
		}
		repo = sqliteRepo
		closeFn = sqliteRepo.Close
	}

	historySvc, err := history.NewService(history.ServiceConfig{
		Repository: repo,
		Logger:     cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create history service: %w", err)
	}

	renderer := lipgloss.NewRenderer(cfg.Stdout)
	if cfg.NoColor {
		renderer.SetColorProfile(termenv.Ascii)
	}

	return &Client{
		repo:       repo,
		history:    historySvc,
		logger:     cfg.Logger,
		stdin:      cfg.Stdin,
		stdout:     cfg.Stdout,
		stderr:     cfg.Stderr,
		renderer:   renderer,
		workDir:    cfg.WorkDir,
		executable: cfg.Executable,
		closeFn:    closeFn,
	}, nil
}

// Close releases resources held by the client, including the database connection.
// After Close returns, the client must not be used.
func (c *Client) Close() error {
	if c.closeFn != nil {
		return c.closeFn()
	}
	return nil
}

// RunOpts are the options of a stack run or plan.
type RunOpts struct {
	// Tunnel enables tunneling regardless of the config.
	Tunnel bool
	// Env overrides the current process environment when resolving the
	// config defaults (e.g `CF_TOKEN`). An empty value unsets the variable.
	Env map[string]string
}

func (o *RunOpts) request(cfg StackConfig) run.Request {
	if o == nil {
		return run.Request{Config: cfg}
	}
	return run.Request{Config: cfg, ForceTunnel: o.Tunnel}
}

func (o *RunOpts) lookup() env.Lookup {
	if o == nil || o.Env == nil {
		return nil
	}
	return env.MapLookup(env.MergeMaps(env.ToMap(os.Environ()), o.Env))
}

// Run runs the stack and blocks until every process has ended and the after
// hooks have run. Canceling the context stops the processes.
//
// The run record is returned even when the run fails (e.g a before hook or a
// process failure), it is nil only when the stack could not be planned. A
// run that doesn't meet the success condition returns [ErrProcessesFailed].
func (c *Client) Run(ctx context.Context, cfg StackConfig, opts *RunOpts) (*RunRecord, error) {
	svc, err := c.runService(opts)
	if err != nil {
		return nil, err
	}

	record, err := svc.Run(ctx, opts.request(cfg))
	return record, mapError(err)
}

// Plan returns what a run of the stack would launch, without running anything.
func (c *Client) Plan(ctx context.Context, cfg StackConfig, opts *RunOpts) (*Plan, error) {
	svc, err := c.runService(opts)
	if err != nil {
		return nil, err
	}

	p, err := svc.Plan(ctx, opts.request(cfg))
	if err != nil {
		return nil, mapError(err)
	}

	return fromInternalPlan(p), nil
}

// ListRuns returns the stored runs newest first. A zero limit returns all of them.
func (c *Client) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	runs, err := c.history.List(ctx, history.ListRequest{Limit: limit})
	if err != nil {
		return nil, mapError(err)
	}
	return runs, nil
}

// GetRun returns a stored run by ID, `latest` returns the most recent run.
func (c *Client) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	r, err := c.history.Show(ctx, history.ShowRequest{ID: id})
	if err != nil {
		return nil, mapError(err)
	}
	return r, nil
}

// LoadConfig loads a stack config file the same way the CLI does. The path
// can omit the extension, `stack.config` finds `stack.config.yaml`,
// `stack.config.yml`, `stack.config.json` or `stack.config.toml`.
//
// The env vars referenced in the file (`${VAR}`) are expanded with the
// current process environment.
func LoadConfig(ctx context.Context, path string) (StackConfig, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return StackConfig{}, fmt.Errorf("could not get config absolute path: %w", err)
	}

	repo := storageio.NewConfigRepository(os.DirFS(filepath.Dir(abs)), env.OSLookup)
	cfg, _, err := repo.GetConfig(ctx, filepath.Base(abs))
	if err != nil {
		return StackConfig{}, mapError(err)
	}

	return cfg, nil
}

func (c *Client) runService(opts *RunOpts) (*run.Service, error) {
	r, err := runner.NewConcurrent(runner.ConcurrentConfig{
		Stdin:    c.stdin,
		Stdout:   c.stdout,
		Stderr:   c.stderr,
		Renderer: c.renderer,
		Logger:   c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create runner: %w", err)
	}

	sh, err := shell.NewExecShell(shell.ExecShellConfig{
		Stdin:  c.stdin,
		Stdout: c.stdout,
		Stderr: c.stderr,
		Dir:    c.workDir,
		Logger: c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create shell: %w", err)
	}

	svc, err := run.NewService(run.ServiceConfig{
		Runner:     r,
		Shell:      sh,
		Repository: c.repo,
		Lookup:     opts.lookup(),
		Executable: c.executable,
		WorkDir:    c.workDir,
		Renderer:   c.renderer,
		Logger:     c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create run service: %w", err)
	}

	return svc, nil
}
