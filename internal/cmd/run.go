package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/google/shlex"
	"github.com/spf13/cobra"

	"github.com/runger/shellrun/internal/config"
	"github.com/runger/shellrun/internal/shellop"
)

// ExitTimeout mirrors the conventional shell timeout exit status.
const ExitTimeout = 124

// ExitError carries a specific process exit code out of cobra.RunE so main
// can propagate it.
type ExitError struct {
	Message string
	Code    int
}

func (e *ExitError) Error() string {
	return e.Message
}

var runCmd = newRunCmd()

// newRunCmd builds the run command with fresh flag state, so tests can
// execute it repeatedly without flag values leaking between invocations.
func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [flags] -- command...",
		Short: "Execute commands through a managed shell process",
		Long: `Execute one or more commands in a single shell invocation.
Each argument becomes one line of the materialized script, so state
(variables, cwd) carries across commands:

  shellrun run -- 'cd /tmp' 'pwd'
  shellrun run --shell bash --stream -- 'make build' 'make test'`,
		Args:         cobra.MinimumNArgs(1),
		RunE:         runShell,
		SilenceUsage: true,
	}
	f := cmd.Flags()
	f.String("config", "", "Config file path (default: user config dir)")
	f.String("shell", "", "Shell to run with: bash, sh, zsh, ksh, powershell, pwsh, cmd")
	f.StringArray("env", nil, "Environment variable KEY=VALUE (repeatable)")
	f.StringArray("prelude", nil, "Line prepended to the script before the commands (repeatable)")
	f.String("cwd", "", "Working directory for the process")
	f.String("extension", "", "Override the script file extension")
	f.String("tmp-dir", "", "Directory for materialized scripts")
	f.String("wrapper", "", "Helper process prepended to the shell invocation, e.g. 'sudo -n'")
	f.Bool("stream", false, "Mirror output to the log while the process runs")
	f.Bool("last", false, "Print only the last output line")
	f.Bool("combine", false, "Interleave stderr lines into the printed result")
	f.Int("cap", 0, "Keep at most N output lines, evicting the oldest (0 = unbounded)")
	f.Duration("timeout", 0, "Abandon the run after this long (process is terminated on exit)")
	return cmd
}

func runShell(cmd *cobra.Command, args []string) error {
	cfg, err := loadRunConfig(cmd)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))

	opCfg, err := buildOperationConfig(cmd, cfg, args, logger)
	if err != nil {
		return err
	}

	op, err := shellop.New(opCfg)
	if err != nil {
		return err
	}
	defer op.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if timeout, _ := cmd.Flags().GetDuration("timeout"); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	lines, err := op.Run(ctx)
	if err != nil {
		var cmdErr *shellop.CommandError
		if errors.As(err, &cmdErr) {
			return &ExitError{Message: err.Error(), Code: cmdErr.ExitCode}
		}
		if errors.Is(err, shellop.ErrTimeout) {
			return &ExitError{Message: err.Error(), Code: ExitTimeout}
		}
		return err
	}

	for _, line := range lines {
		fmt.Fprintln(cmd.OutOrStdout(), line)
	}
	return nil
}

func loadRunConfig(cmd *cobra.Command) (*config.Config, error) {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

// buildOperationConfig layers flags over the file config. A flag only
// overrides the file when it was set on the command line.
func buildOperationConfig(cmd *cobra.Command, cfg *config.Config, commands []string, logger *slog.Logger) (shellop.Config, error) {
	f := cmd.Flags()

	shell := cfg.Shell
	if f.Changed("shell") {
		shell, _ = f.GetString("shell")
	}
	stream := cfg.StreamOutput
	if f.Changed("stream") {
		stream, _ = f.GetBool("stream")
	}
	returnAll := cfg.ReturnAll
	if f.Changed("last") {
		last, _ := f.GetBool("last")
		returnAll = !last
	}
	combine := cfg.CombineStreams
	if f.Changed("combine") {
		combine, _ = f.GetBool("combine")
	}
	cap := cfg.OutputLineCap
	if f.Changed("cap") {
		cap, _ = f.GetInt("cap")
	}
	cwd := cfg.WorkingDir
	if f.Changed("cwd") {
		cwd, _ = f.GetString("cwd")
	}
	tmpDir := cfg.TmpDir
	if f.Changed("tmp-dir") {
		tmpDir, _ = f.GetString("tmp-dir")
	}

	env := make(map[string]string, len(cfg.Env))
	for k, v := range cfg.Env {
		env[k] = v
	}
	envFlags, _ := f.GetStringArray("env")
	for _, kv := range envFlags {
		idx := strings.IndexByte(kv, '=')
		if idx <= 0 {
			return shellop.Config{}, fmt.Errorf("invalid --env %q, want KEY=VALUE", kv)
		}
		env[kv[:idx]] = kv[idx+1:]
	}

	var wrapper []string
	if raw, _ := f.GetString("wrapper"); raw != "" {
		var err error
		wrapper, err = shlex.Split(raw)
		if err != nil {
			return shellop.Config{}, fmt.Errorf("splitting --wrapper: %w", err)
		}
	}

	prelude, _ := f.GetStringArray("prelude")
	extension, _ := f.GetString("extension")

	return shellop.Config{
		Commands:       commands,
		Prelude:        prelude,
		Shell:          shell,
		Env:            env,
		WorkingDir:     cwd,
		Extension:      extension,
		TmpDir:         tmpDir,
		Wrapper:        wrapper,
		StreamOutput:   stream,
		ReturnAll:      returnAll,
		CombineStreams: combine,
		OutputLineCap:  cap,
		GracePeriod:    time.Duration(cfg.GracePeriodMs) * time.Millisecond,
		Logger:         logger,
	}, nil
}
