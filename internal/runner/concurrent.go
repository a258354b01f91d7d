package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/goware/prefixer"
	"github.com/oklog/run"

	"github.com/slok/stackrun/internal/log"
	"github.com/slok/stackrun/internal/model"
	"github.com/slok/stackrun/internal/printer"
	"github.com/slok/stackrun/internal/utils/env"
)

// ErrNoProcesses is returned when there is nothing to run.
var ErrNoProcesses = errors.New("no processes to run")

var errKillOthers = errors.New("kill others condition met")

// waitDelay is how long a process output is waited after it exits, in case
// a child process still holds it.
const waitDelay = 2 * time.Second

// ConcurrentConfig is the configuration of the concurrent runner.
type ConcurrentConfig struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	// Renderer renders the process prefixes (default: renderer of stdout).
	Renderer *lipgloss.Renderer
	// BaseEnv is the environment the process env overrides are applied on (default: process env).
	BaseEnv []string
	Logger  log.Logger
}

func (c *ConcurrentConfig) defaults() error {
	if c.Stdout == nil {
		c.Stdout = os.Stdout
	}
	if c.Stderr == nil {
		c.Stderr = os.Stderr
	}
	if c.Renderer == nil {
		c.Renderer = lipgloss.NewRenderer(c.Stdout)
	}
	if c.BaseEnv == nil {
		c.BaseEnv = os.Environ()
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "runner.Concurrent"})
	return nil
}

// Concurrent runs every process as an OS process at the same time.
type Concurrent struct {
	stdin    io.Reader
	input    *inputSource
	stdout   io.Writer
	stderr   io.Writer
	renderer *lipgloss.Renderer
	baseEnv  []string
	logger   log.Logger

	// outMu serializes the writes of all processes on stdout and stderr.
	outMu sync.Mutex
}

// NewConcurrent returns a new concurrent runner.
func NewConcurrent(cfg ConcurrentConfig) (*Concurrent, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Concurrent{
		stdin:    cfg.Stdin,
		input:    &inputSource{r: cfg.Stdin},
		stdout:   cfg.Stdout,
		stderr:   cfg.Stderr,
		renderer: cfg.Renderer,
		baseEnv:  cfg.BaseEnv,
		logger:   cfg.Logger,
	}, nil
}

type procRun struct {
	proc   model.Process
	cmd    *exec.Cmd
	prefix string
	stdin  io.WriteCloser

	mu     sync.Mutex
	status model.ProcessStatus
	done   bool
	killed bool

	exited   chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
}

func (p *procRun) finish(exitErr error, code int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status.FinishedAt = time.Now().UTC()
	p.status.ExitCode = code
	switch {
	case exitErr == nil && code == 0:
		p.status.State = model.ProcessStateSuccess
	case p.killed:
		p.status.State = model.ProcessStateKilled
	default:
		p.status.State = model.ProcessStateFailed
	}
	p.done = true
	if p.stdin != nil {
		_ = p.stdin.Close()
	}
	close(p.exited)
}

func (p *procRun) startFailed() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status.FinishedAt = time.Now().UTC()
	p.status.ExitCode = -1
	p.status.State = model.ProcessStateStartError
	p.done = true
	close(p.exited)
}

func (p *procRun) interrupt(sig os.Signal, logger log.Logger) {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		if !p.done {
			p.killed = true
			if err := signalProcess(p.cmd, sig); err != nil {
				logger.Warningf("Could not signal process %s: %v", p.proc.Label(), err)
			}
		}
		p.mu.Unlock()
		close(p.stop)
	})
}

func (p *procRun) Status() model.ProcessStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Run runs the processes concurrently and blocks until all of them end.
// When a process ends matching the kill others conditions, the rest of the
// processes receive the kill signal. Cancelling the context kills all of them.
func (c *Concurrent) Run(ctx context.Context, procs []model.Process, opts model.RunOptions) (*model.RunResult, error) {
	if len(procs) == 0 {
		return nil, ErrNoProcesses
	}

	sig, err := parseSignal(opts.KillSignal)
	if err != nil {
		return nil, fmt.Errorf("invalid kill signal: %w", err)
	}

	var (
		wg        sync.WaitGroup
		exitMu    sync.Mutex
		exitOrder []int
	)
	onExit := func(p *procRun) {
		exitMu.Lock()
		exitOrder = append(exitOrder, p.proc.Index)
		exitMu.Unlock()
		wg.Done()
	}

	runs := make([]*procRun, 0, len(procs))
	stdins := map[int]io.Writer{}
	for _, p := range procs {
		wg.Add(1)
		pr := c.start(p, opts, onExit)
		if pr.stdin != nil {
			stdins[p.Index] = pr.stdin
		}
		runs = append(runs, pr)
	}

	var g run.Group

	// Processes.
	for _, pr := range runs {
		g.Add(
			func() error {
				select {
				case <-pr.exited:
					if shouldKillOthers(pr.Status(), opts.KillOthers) {
						c.logger.Infof("Process %s ended with %s, sending %s to other processes", pr.proc.Label(), pr.Status().State, opts.KillSignal)
						return errKillOthers
					}
					<-pr.stop
					return nil
				case <-pr.stop:
					<-pr.exited
					return nil
				}
			},
			func(_ error) {
				pr.interrupt(sig, c.logger)
			},
		)
	}

	// Completion.
	{
		allDone := make(chan struct{})
		go func() {
			wg.Wait()
			close(allDone)
		}()

		stop := make(chan struct{})
		g.Add(
			func() error {
				select {
				case <-allDone:
				case <-stop:
				}
				return nil
			},
			func(_ error) {
				close(stop)
			},
		)
	}

	// Context cancellation.
	{
		stop := make(chan struct{})
		g.Add(
			func() error {
				select {
				case <-ctx.Done():
					c.logger.Infof("Stopping processes")
					return ctx.Err()
				case <-stop:
					return nil
				}
			},
			func(_ error) {
				close(stop)
			},
		)
	}

	// Input forwarding.
	if opts.HandleInput && c.stdin != nil && len(stdins) > 0 {
		router := newInputRouter(procs, stdins, opts.DefaultInputTarget, c.logger)
		lines, release := c.input.Lines()
		stop := make(chan struct{})

		g.Add(
			func() error {
				for {
					select {
					case l, ok := <-lines:
						if !ok {
							<-stop
							return nil
						}
						router.Route(l)
					case <-stop:
						return nil
					}
				}
			},
			func(_ error) {
				close(stop)
				release()
			},
		)
	}

	if err := g.Run(); err != nil && !errors.Is(err, errKillOthers) && !errors.Is(err, ctx.Err()) {
		return nil, err
	}

	res := &model.RunResult{}
	for _, pr := range runs {
		res.Processes = append(res.Processes, pr.Status())
	}
	exitMu.Lock()
	res.ExitOrder = append(res.ExitOrder, exitOrder...)
	exitMu.Unlock()

	return res, nil
}

func (c *Concurrent) start(p model.Process, opts model.RunOptions, onExit func(*procRun)) *procRun {
	pr := &procRun{
		proc:   p,
		prefix: c.prefix(p, opts),
		exited: make(chan struct{}),
		stop:   make(chan struct{}),
		status: model.ProcessStatus{
			Index:     p.Index,
			Name:      p.Label(),
			Command:   p.Command,
			StartedAt: time.Now().UTC(),
		},
	}
	logger := c.logger.WithValues(log.Kv{"process": p.Label()})

	if p.IPC > 0 {
		logger.Debugf("IPC channels are not supported, ignoring them")
	}

	pr.cmd = c.command(p)

	if opts.HandleInput && c.stdin != nil {
		stdin, err := pr.cmd.StdinPipe()
		if err != nil {
			logger.Warningf("Could not open process input: %v", err)
		} else {
			pr.stdin = stdin
		}
	}

	stdoutR, stdoutW := io.Pipe()
	stderrR, stderrW := io.Pipe()
	pr.cmd.Stdout = stdoutW
	pr.cmd.Stderr = stderrW

	if err := pr.cmd.Start(); err != nil {
		_ = stdoutW.Close()
		_ = stderrW.Close()
		c.printf(c.stderr, pr.prefix, "Could not start %q: %v", p.Command, err)
		pr.startFailed()
		go onExit(pr)
		return pr
	}
	logger.Debugf("Process started with PID %d", pr.cmd.Process.Pid)

	var copyWG sync.WaitGroup
	copyWG.Add(2)
	go c.copyOutput(&copyWG, c.stdout, stdoutR, pr.prefix, logger)
	go c.copyOutput(&copyWG, c.stderr, stderrR, pr.prefix, logger)

	go func() {
		err := pr.cmd.Wait()
		_ = stdoutW.Close()
		_ = stderrW.Close()
		copyWG.Wait()

		code := exitCode(pr.cmd.ProcessState)
		pr.finish(err, code)
		c.printf(c.stdout, pr.prefix, "%s exited with code %d", p.Command, code)
		onExit(pr)
	}()

	return pr
}

func (c *Concurrent) command(p model.Process) *exec.Cmd {
	var cmd *exec.Cmd
	if len(p.Argv) > 0 {
		cmd = exec.Command(p.Argv[0], p.Argv[1:]...)
	} else {
		args := append(append([]string{}, shellCmd[1:]...), p.Command)
		cmd = exec.Command(shellCmd[0], args...)
	}

	cmd.Dir = p.Cwd
	cmd.Env = env.Environ(c.baseEnv, p.Env)
	cmd.WaitDelay = waitDelay
	setProcessGroup(cmd)

	return cmd
}

func (c *Concurrent) copyOutput(wg *sync.WaitGroup, out io.Writer, r io.Reader, prefix string, logger log.Logger) {
	defer wg.Done()

	lw := newLineWriter(&c.outMu, out)
	if _, err := io.Copy(lw, prefixer.New(r, prefix)); err != nil && err != io.EOF {
		logger.Warningf("Could not copy process output: %v", err)
	}
	if err := lw.Flush(); err != nil {
		logger.Warningf("Could not write process output: %v", err)
	}
}

func (c *Concurrent) printf(out io.Writer, prefix, format string, args ...any) {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	fmt.Fprintf(out, prefix+format+"\n", args...)
}

// prefix returns the `[label] ` output prefix of a process.
func (c *Concurrent) prefix(p model.Process, opts model.RunOptions) string {
	if p.DisplayName != "" {
		return "[" + p.DisplayName + "] "
	}

	label := "[" + p.Label() + "]"
	switch {
	case p.PrefixColor != "":
		label = printer.Style(c.renderer, p.PrefixColor).Render(label)
	case opts.ColorMode == model.ColorModeAuto:
		label = printer.Style(c.renderer, printer.AutoPalette[p.Index%len(printer.AutoPalette)]).Render(label)
	}

	return label + " "
}

func shouldKillOthers(s model.ProcessStatus, conds model.KillConditions) bool {
	switch s.State {
	case model.ProcessStateSuccess:
		return conds.Has(model.KillOnSuccess)
	case model.ProcessStateFailed, model.ProcessStateStartError:
		return conds.Has(model.KillOnFailure)
	}
	return false
}
