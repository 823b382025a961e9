// Package exec runs workspace processes for run_command and run_python.
package exec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"time"
)

// DefaultMaxOutput bounds how much of each stream is captured.
const DefaultMaxOutput = 64000

// Runner executes argv lists without a shell.
type Runner struct {
	maxOutput int
	env       []string
}

// NewRunner creates a runner. A maxOutput of zero uses DefaultMaxOutput.
func NewRunner(maxOutput int, env []string) *Runner {
	if maxOutput <= 0 {
		maxOutput = DefaultMaxOutput
	}
	return &Runner{maxOutput: maxOutput, env: env}
}

// Result summarizes one finished process.
type Result struct {
	Argv     []string
	Dir      string
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
	TimedOut bool
	// Err is set when the process could not be started.
	Err error
}

// Combined returns stdout followed by stderr.
func (r Result) Combined() string {
	return r.Stdout + r.Stderr
}

// Run executes argv in dir, killing it after timeout when timeout > 0.
func (r *Runner) Run(ctx context.Context, argv []string, dir string, timeout time.Duration) Result {
	result := Result{Argv: argv, Dir: dir}
	if len(argv) == 0 {
		result.Err = errors.New("command is required")
		result.ExitCode = -1
		return result
	}

	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, argv[0], argv[1:]...)
	cmd.Dir = dir
	if r.env != nil {
		cmd.Env = r.env
	}
	stdout := newLimitedBuffer(r.maxOutput)
	stderr := newLimitedBuffer(r.maxOutput)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = time.Second

	start := time.Now()
	err := cmd.Run()
	result.Duration = time.Since(start)
	result.Stdout = stdout.String()
	result.Stderr = stderr.String()
	result.ExitCode = exitCode(err)
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		result.TimedOut = true
		return result
	}
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		result.Err = err
	}
	return result
}

// FormatTimeout renders whole-second durations as "60s".
func FormatTimeout(d time.Duration) string {
	if d%time.Second == 0 {
		return fmt.Sprintf("%ds", int64(d/time.Second))
	}
	return d.String()
}

type limitedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
	max int
}

func newLimitedBuffer(max int) *limitedBuffer {
	return &limitedBuffer{max: max}
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	remaining := b.max - b.buf.Len()
	if remaining <= 0 {
		return len(p), nil
	}
	if len(p) > remaining {
		b.buf.Write(p[:remaining])
		return len(p), nil
	}
	b.buf.Write(p)
	return len(p), nil
}

func (b *limitedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
