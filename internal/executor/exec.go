package executor

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"runtime"
	"syscall"
	"time"
)

// gracePeriod is how long a cancelled child gets between the interrupt and
// the kill.
const gracePeriod = 5 * time.Second

// Command describes a child process to run while a wake lock is held.
type Command struct {
	Name   string
	Args   []string
	Dir    string
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Run starts the command and waits for it. The returned exit code is the
// child's own, or 128+signal when a signal killed it; -1 means it never
// started.
// Cancelling ctx interrupts the child and kills it after a grace period.
func Run(ctx context.Context, c Command) (int, error) {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.Stdin = c.Stdin
	cmd.Stdout = c.Stdout
	cmd.Stderr = c.Stderr
	cmd.WaitDelay = gracePeriod
	if runtime.GOOS != "windows" {
		cmd.Cancel = func() error {
			return cmd.Process.Signal(os.Interrupt)
		}
	}

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitCode(exitErr)
		if ctx.Err() != nil {
			return code, ctx.Err()
		}
		return code, nil
	}
	return -1, err
}

// exitCode follows the shell convention for children killed by a signal.
func exitCode(exitErr *exec.ExitError) int {
	if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	if code := exitErr.ExitCode(); code >= 0 {
		return code
	}
	return 1
}
