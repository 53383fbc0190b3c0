// Package shellop executes shell commands as managed external processes: it
// materializes a command list into a temp script for the selected shell
// dialect, spawns and supervises the process, drains stdout/stderr
// concurrently into a capped line buffer with optional live mirroring to a
// logger, and guarantees temp-file and process cleanup on every exit path.
package shellop

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
)

// Config describes one shell operation. The zero value is not usable:
// Commands must be non-empty. Everything else is optional.
type Config struct {
	// Commands are executed sequentially within a single shell invocation.
	Commands []string

	// Prelude lines are prepended to the script before Commands: directory
	// changes, helper functions, environment setup.
	Prelude []string

	// Shell selects the dialect (bash, sh, zsh, ksh, powershell, pwsh, cmd).
	// Empty means platform default, resolved at trigger time: powershell on
	// Windows, bash (or sh) elsewhere.
	Shell string

	// Env is merged over the inherited process environment.
	Env map[string]string

	// WorkingDir is the working directory for the spawned process.
	WorkingDir string

	// Extension overrides the dialect's script file extension.
	Extension string

	// TmpDir overrides the platform temp dir for materialized scripts.
	TmpDir string

	// Wrapper is an optional helper-process argv prepended to the shell
	// invocation (e.g. ["sudo", "-n"] or ["env", "-i"]).
	Wrapper []string

	// StreamOutput mirrors each captured line to the logger as it arrives.
	StreamOutput bool

	// StderrAsError logs mirrored stderr lines at error level instead of warn.
	StderrAsError bool

	// ReturnAll makes Run return every captured line; otherwise only the
	// last line is returned.
	ReturnAll bool

	// CombineStreams interleaves stderr lines into the result in arrival
	// order. When false, results contain stdout only and stderr is reserved
	// for failure reporting.
	CombineStreams bool

	// OutputLineCap bounds the result buffer. When exceeded the oldest line
	// is evicted; draining never blocks. 0 means unbounded.
	OutputLineCap int

	// GracePeriod is the wait between interrupt and kill when a running
	// process is closed. Defaults to DefaultGracePeriod.
	GracePeriod time.Duration

	// Logger receives mirrored output and lifecycle diagnostics.
	// Defaults to slog.Default().
	Logger *slog.Logger
}

// Operation owns a validated config and the set of in-flight runs it has
// triggered. Independent operations share no state and may run in parallel.
type Operation struct {
	cfg    Config
	logger *slog.Logger

	mu     sync.Mutex
	runs   map[*Run]struct{}
	closed bool
}

// New validates the config and returns an operation. An empty command list
// or an unknown shell name is rejected here, before anything is spawned.
func New(cfg Config) (*Operation, error) {
	if len(cfg.Commands) == 0 {
		return nil, ErrNoCommands
	}
	if cfg.Shell != "" {
		if _, err := resolveDialect(cfg.Shell); err != nil {
			return nil, err
		}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = DefaultGracePeriod
	}
	return &Operation{
		cfg:    cfg,
		logger: cfg.Logger,
		runs:   make(map[*Run]struct{}),
	}, nil
}

// Trigger materializes the script, spawns the shell, starts the stream
// drains, and returns the run handle immediately. Each call yields an
// independent run with its own buffer; multiple runs may be outstanding
// at once. The caller (or Operation.Close) must close the run.
func (o *Operation) Trigger(ctx context.Context) (*Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil, ErrClosed
	}
	o.mu.Unlock()

	dialect := defaultDialect()
	if o.cfg.Shell != "" {
		// Already validated in New.
		dialect, _ = resolveDialect(o.cfg.Shell)
	}

	commands := make([]string, 0, len(o.cfg.Prelude)+len(o.cfg.Commands))
	commands = append(commands, o.cfg.Prelude...)
	commands = append(commands, o.cfg.Commands...)

	script, err := materializeScript(commands, dialect, o.cfg.Extension, o.cfg.TmpDir)
	if err != nil {
		return nil, err
	}

	argv := make([]string, 0, len(o.cfg.Wrapper)+len(dialect.Args)+2)
	argv = append(argv, o.cfg.Wrapper...)
	argv = append(argv, dialect.Executable)
	argv = append(argv, dialect.Args...)
	argv = append(argv, script)

	//nolint:gosec // argv is built from the validated dialect table and caller config.
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Env = mergeEnv(o.cfg.Env)
	cmd.Dir = o.cfg.WorkingDir
	cmd.Stdin = nil

	// Two independent pipes; interleaving is an aggregation decision, not an
	// OS one.
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		os.Remove(script)
		return nil, fmt.Errorf("%w: %w", ErrSpawn, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		os.Remove(script)
		return nil, fmt.Errorf("%w: %w", ErrSpawn, err)
	}

	run := &Run{
		id:     uuid.NewString(),
		op:     o,
		cmd:    cmd,
		proc:   newProcessControl(),
		script: script,
		buf:    newLineBuffer(o.cfg.OutputLineCap),
		done:   make(chan struct{}),
	}
	stderrLevel := slog.LevelWarn
	if o.cfg.StderrAsError {
		stderrLevel = slog.LevelError
	}
	run.aggr = newAggregator(run.buf, o.logger, run.id, o.cfg.StreamOutput, stderrLevel)

	if err := run.proc.start(cmd); err != nil {
		os.Remove(script)
		return nil, fmt.Errorf("%w: %w", ErrSpawn, err)
	}
	run.startedAt = time.Now()
	run.aggr.drain(stdout, stderr)
	go run.reap()

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		run.Close()
		return nil, ErrClosed
	}
	o.runs[run] = struct{}{}
	o.mu.Unlock()

	o.logger.Debug("shell operation triggered",
		"run", run.id, "pid", cmd.Process.Pid, "shell", dialect.Name, "script", script)
	return run, nil
}

// Run is Trigger, Wait, FetchResult, Close in one call. It returns every
// captured line when ReturnAll is set, otherwise a single-element slice
// holding the last line ("" when the command produced no output).
func (o *Operation) Run(ctx context.Context) ([]string, error) {
	run, err := o.Trigger(ctx)
	if err != nil {
		return nil, err
	}
	defer run.Close()

	if _, err := run.Wait(ctx); err != nil {
		return nil, err
	}

	lines := run.FetchResult()
	if o.cfg.ReturnAll {
		return lines, nil
	}
	last := ""
	if len(lines) > 0 {
		last = lines[len(lines)-1]
	}
	return []string{last}, nil
}

// Close closes every outstanding run: still-running processes get the
// interrupt/grace/kill sequence and every materialized script is deleted.
// Idempotent; subsequent Trigger calls fail with ErrClosed.
func (o *Operation) Close() error {
	o.mu.Lock()
	o.closed = true
	runs := make([]*Run, 0, len(o.runs))
	for run := range o.runs {
		runs = append(runs, run)
	}
	o.mu.Unlock()

	var errs []error
	for _, run := range runs {
		if err := run.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (o *Operation) forget(run *Run) {
	o.mu.Lock()
	delete(o.runs, run)
	o.mu.Unlock()
}

// Run is the handle for one triggered process: it owns the materialized
// script, the process, and the result buffer it is draining into.
type Run struct {
	id        string
	op        *Operation
	cmd       *exec.Cmd
	proc      processControl
	script    string
	buf       *lineBuffer
	aggr      *aggregator
	startedAt time.Time

	// done closes once the process has exited and both streams hit EOF;
	// exitCode is valid only after that.
	done     chan struct{}
	exitCode int

	closeOnce sync.Once
	closeErr  error
}

// ID is the unique run identifier used in log records.
func (r *Run) ID() string { return r.id }

// PID is the OS process id of the spawned shell.
func (r *Run) PID() int { return r.cmd.Process.Pid }

// StartedAt is when the process was spawned.
func (r *Run) StartedAt() time.Time { return r.startedAt }

// reap joins the drain goroutines, then the process. cmd.Wait must not run
// before the pipe readers are finished, it closes them.
func (r *Run) reap() {
	r.aggr.wait()
	err := r.cmd.Wait()
	r.exitCode = exitCodeFromError(err)
	close(r.done)
	r.op.logger.Debug("shell operation finished", "run", r.id, "exit_code", r.exitCode)
}

// Poll reports whether the run is still in flight. Non-blocking and safe to
// call repeatedly; once the run completes it returns the same exit code on
// every call.
func (r *Run) Poll() (exitCode int, running bool) {
	select {
	case <-r.done:
		return r.exitCode, false
	default:
		return 0, true
	}
}

// Wait blocks until the process has exited and both streams are fully
// drained, then returns the exit code. A non-zero exit additionally returns
// a *CommandError carrying the captured stderr. If ctx's deadline passes
// first, Wait returns ErrTimeout; plain cancellation returns the context
// error as-is. Either way the process is left running: a polling wait must
// never kill a long-lived process as a side effect.
func (r *Run) Wait(ctx context.Context) (int, error) {
	select {
	case <-r.done:
		if r.exitCode != 0 {
			return r.exitCode, r.failure()
		}
		return 0, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return 0, fmt.Errorf("%w: %w", ErrTimeout, ctx.Err())
		}
		return 0, ctx.Err()
	}
}

// FetchResult returns the captured lines in arrival order: stdout only, or
// stdout and stderr interleaved when CombineStreams is set. Before Wait has
// returned it is a snapshot and may be incomplete.
func (r *Run) FetchResult() []string {
	lines := r.buf.snapshot()
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if l.stderr && !r.op.cfg.CombineStreams {
			continue
		}
		out = append(out, l.text)
	}
	return out
}

// Terminate delivers a graceful interrupt to the process group. Best-effort
// and a no-op once the run has completed.
func (r *Run) Terminate() error {
	return r.signal(r.proc.interrupt)
}

// Kill forcefully terminates the process group. Best-effort and a no-op once
// the run has completed.
func (r *Run) Kill() error {
	return r.signal(r.proc.kill)
}

func (r *Run) signal(deliver func(*exec.Cmd) error) error {
	select {
	case <-r.done:
		return nil
	default:
	}
	if err := deliver(r.cmd); err != nil && !errors.Is(err, syscall.ESRCH) {
		return err
	}
	return nil
}

// Close releases the run exactly once: a still-running process gets an
// interrupt, the grace period, then a kill; the drains are joined and the
// materialized script is deleted. Safe to call on abandoned runs and safe to
// call again after any outcome.
func (r *Run) Close() error {
	r.closeOnce.Do(func() {
		select {
		case <-r.done:
		default:
			_ = r.Terminate()
			select {
			case <-r.done:
			case <-time.After(r.op.cfg.GracePeriod):
				_ = r.Kill()
				<-r.done
			}
		}
		if err := os.Remove(r.script); err != nil && !errors.Is(err, fs.ErrNotExist) {
			r.closeErr = fmt.Errorf("removing script: %w", err)
		}
		r.op.forget(r)
	})
	return r.closeErr
}

// failure builds the CommandError for a non-zero exit. Captured stderr is
// preferred; when it is empty the last stdout line stands in so the error is
// still diagnosable.
func (r *Run) failure() *CommandError {
	var stderrLines []string
	lastStdout := ""
	for _, l := range r.buf.snapshot() {
		if l.stderr {
			stderrLines = append(stderrLines, l.text)
		} else {
			lastStdout = l.text
		}
	}
	text := strings.Join(stderrLines, "\n")
	if text == "" {
		text = lastStdout
	}
	return &CommandError{ExitCode: r.exitCode, Stderr: text}
}

// mergeEnv overlays extra on the inherited environment and returns the
// "KEY=value" form exec.Cmd wants.
func mergeEnv(extra map[string]string) []string {
	merged := make(map[string]string)
	for _, kv := range os.Environ() {
		if idx := strings.IndexByte(kv, '='); idx >= 0 {
			merged[kv[:idx]] = kv[idx+1:]
		}
	}
	for k, v := range extra {
		merged[k] = v
	}

	result := make([]string, 0, len(merged))
	for k, v := range merged {
		result = append(result, k+"="+v)
	}
	return result
}
