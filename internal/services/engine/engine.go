package engine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"threephase/internal/logging"
	"threephase/internal/services"
)

// Invocation describes one external process.
type Invocation struct {
	Binary string
	Args   []string
	Dir    string
	Env    []string
	// Stdout receives the raw standard output when set; otherwise stdout is
	// forwarded line by line together with stderr.
	Stdout io.Writer
	Stdin  io.Reader
}

// String renders the invocation the way it would be typed in a shell.
func (inv Invocation) String() string {
	parts := make([]string, 0, len(inv.Args)+1)
	parts = append(parts, inv.Binary)
	parts = append(parts, inv.Args...)
	return strings.Join(parts, " ")
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, inv Invocation, onLine func(string)) error
}

// ExitError reports a process that started but exited with a non-zero status.
type ExitError struct {
	Binary string
	Code   int
	Err    error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with status %d", e.Binary, e.Code)
}

// Unwrap exposes both the external tool marker and the underlying cause.
func (e *ExitError) Unwrap() []error {
	if e.Err == nil {
		return []error{services.ErrExternalTool}
	}
	return []error{services.ErrExternalTool, e.Err}
}

// Option configures the runner.
type Option func(*Runner)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(r *Runner) {
		if exec != nil {
			r.exec = exec
		}
	}
}

// WithLogger routes process output to logger at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithBinDir resolves tool binaries relative to dir instead of PATH.
func WithBinDir(dir string) Option {
	return func(r *Runner) {
		r.binDir = strings.TrimSpace(dir)
	}
}

// WithEnv appends environment entries (KEY=value) to every invocation.
func WithEnv(env ...string) Option {
	return func(r *Runner) {
		r.env = append(r.env, env...)
	}
}

// WithStdin connects scripts to r, so interactive lines such as a debug
// pause can read from a terminal.
func WithStdin(r io.Reader) Option {
	return func(runner *Runner) {
		runner.stdin = r
	}
}

// Runner drives the Radiance command-line tools and batch scripts.
type Runner struct {
	exec   Executor
	logger *slog.Logger
	binDir string
	env    []string
	stdin  io.Reader
}

// NewRunner constructs a runner backed by os/exec.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		exec:   commandExecutor{},
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunTool invokes a single engine binary in dir. When stdout is non-nil the
// tool's standard output is written to it (the `> file` redirection of a
// script line).
func (r *Runner) RunTool(ctx context.Context, dir, binary string, args []string, stdout io.Writer) error {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return services.Wrap(services.ErrExecution, "engine", "run tool", "binary required", nil)
	}
	inv := Invocation{
		Binary: r.resolve(binary),
		Args:   args,
		Dir:    dir,
		Env:    r.environ(),
		Stdout: stdout,
	}
	r.logger.Debug("running engine tool", logging.String("command", inv.String()), logging.String("dir", dir))
	return r.exec.Run(ctx, inv, r.forward(binary))
}

// RunScript executes script with shell and blocks until it returns. The
// working directory is the script's directory.
func (r *Runner) RunScript(ctx context.Context, shell, script string) error {
	shell = strings.TrimSpace(shell)
	if shell == "" {
		shell = "sh"
	}
	if strings.TrimSpace(script) == "" {
		return services.Wrap(services.ErrExecution, "engine", "run script", "script path required", nil)
	}
	inv := Invocation{
		Binary: shell,
		Args:   []string{script},
		Dir:    filepath.Dir(script),
		Env:    r.environ(),
		Stdin:  r.stdin,
	}
	r.logger.Info("running batch script", logging.String("script", script), logging.String("shell", shell))
	return r.exec.Run(ctx, inv, r.forward(filepath.Base(script)))
}

func (r *Runner) resolve(binary string) string {
	if r.binDir == "" || strings.ContainsRune(binary, os.PathSeparator) {
		return binary
	}
	return filepath.Join(r.binDir, binary)
}

func (r *Runner) environ() []string {
	if len(r.env) == 0 {
		return nil
	}
	env := os.Environ()
	return append(env, r.env...)
}

func (r *Runner) forward(source string) func(string) {
	return func(line string) {
		if strings.TrimSpace(line) == "" {
			return
		}
		r.logger.Debug("engine output", logging.String("source", source), logging.String("line", line))
	}
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, inv Invocation, onLine func(string)) error {
	cmd := exec.CommandContext(ctx, inv.Binary, inv.Args...) //nolint:gosec
	cmd.Dir = inv.Dir
	cmd.Stdin = inv.Stdin
	if len(inv.Env) > 0 {
		cmd.Env = inv.Env
	}

	var readers []io.Reader
	if inv.Stdout != nil {
		cmd.Stdout = inv.Stdout
	} else {
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			return fmt.Errorf("stdout pipe: %w", err)
		}
		readers = append(readers, stdout)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	readers = append(readers, stderr)

	if err := cmd.Start(); err != nil {
		return services.Wrap(services.ErrExecution, "engine", "start", inv.Binary, err)
	}

	var wg sync.WaitGroup
	var scanErr error
	var once sync.Once

	scan := func(r io.Reader) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			if onLine != nil {
				onLine(scanner.Text())
			}
		}
		if err := scanner.Err(); err != nil {
			once.Do(func() {
				scanErr = err
			})
		}
	}

	wg.Add(len(readers))
	for _, r := range readers {
		go scan(r)
	}
	wg.Wait()

	waitErr := cmd.Wait()
	if scanErr != nil {
		return fmt.Errorf("scan output: %w", scanErr)
	}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			return &ExitError{Binary: inv.Binary, Code: exitErr.ExitCode(), Err: waitErr}
		}
		return fmt.Errorf("wait command: %w", waitErr)
	}
	return nil
}
