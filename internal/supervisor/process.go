package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"wasdeploy/pkg/logging"
)

const subsystem = "Supervisor"

// execCommandContext is a variable to allow mocking in tests
var execCommandContext = exec.CommandContext

// Command describes a child process to launch.
type Command struct {
	Path string
	Args []string
	Dir  string
	// Env replaces the inherited environment when non-nil.
	Env []string
	// Output receives the merged stdout and stderr of the child.
	// Nil discards it.
	Output io.Writer
}

func (c Command) String() string {
	return strings.Join(append([]string{c.Path}, c.Args...), " ")
}

// Process is a launched child. Its combined output is drained for its
// whole lifetime so the child never blocks on a full pipe.
type Process struct {
	cmd    *exec.Cmd
	hooks  *ExitHooks
	hookID int

	done     chan struct{}
	drained  chan struct{}
	exitCode int
	waitErr  error

	terminate sync.Once
}

// Launch starts c and registers an exit hook that kills the child if
// wasdeploy exits without terminating it.
func Launch(c Command, hooks *ExitHooks) (*Process, error) {
	cmd := execCommandContext(context.Background(), c.Path, c.Args...)
	cmd.Dir = c.Dir
	configureProcAttr(cmd)
	if c.Env != nil {
		cmd.Env = c.Env
	}

	r, w, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	cmd.Stdout = w
	cmd.Stderr = w

	logging.Debug(subsystem, "Starting %s in %s", c, c.Dir)
	if err := cmd.Start(); err != nil {
		r.Close()
		w.Close()
		return nil, fmt.Errorf("failed to start %s: %w", c.Path, err)
	}
	w.Close()

	p := &Process{
		cmd:     cmd,
		hooks:   hooks,
		done:    make(chan struct{}),
		drained: make(chan struct{}),
	}

	out := c.Output
	if out == nil {
		out = io.Discard
	}
	go func() {
		defer close(p.drained)
		defer r.Close()
		if _, err := io.Copy(out, r); err != nil && !errors.Is(err, os.ErrClosed) {
			logging.Debug(subsystem, "Output drain of %d stopped: %v", p.PID(), err)
		}
	}()

	go func() {
		err := cmd.Wait()
		p.waitErr = err
		p.exitCode = exitCode(cmd, err)
		close(p.done)
		logging.Debug(subsystem, "Process %d exited with %d", p.PID(), p.exitCode)
	}()

	if hooks != nil {
		p.hookID = hooks.Register(p.kill)
	}
	return p, nil
}

func exitCode(cmd *exec.Cmd, err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}
	return -1
}

// PID returns the operating system process id.
func (p *Process) PID() int {
	return p.cmd.Process.Pid
}

// Done is closed once the child has exited.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Exited reports whether the child has exited and, if so, its exit code.
// A child killed by a signal reports -1.
func (p *Process) Exited() (int, bool) {
	select {
	case <-p.done:
		return p.exitCode, true
	default:
		return 0, false
	}
}

// Terminate kills the child, waits for it to be reaped and for its output
// to be drained, and unregisters the exit hook. It is safe to call more
// than once.
func (p *Process) Terminate() {
	p.terminate.Do(func() {
		if p.hooks != nil {
			p.hooks.Unregister(p.hookID)
		}
		p.kill()
	})
}

func (p *Process) kill() {
	select {
	case <-p.done:
	default:
		logging.Debug(subsystem, "Killing process %d", p.PID())
		if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			logging.Warn(subsystem, "Cannot kill process %d: %v", p.PID(), err)
		}
		<-p.done
	}
	<-p.drained
}
