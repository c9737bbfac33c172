// Package execchild spawns, captures, times out, and cooperatively
// terminates child processes: docker-exec invocations against a sidecar
// container, and the notifications binary. The cooperative-termination
// sequence (group-signal, grace window, group-kill) is the one place in
// the codebase that reaches below the process/exec abstraction.
package execchild

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/creack/pty"
	"golang.org/x/term"
)

// ErrTimeout is returned when the deadline elapses before the child exits.
var ErrTimeout = errors.New("execchild: timeout")

// ExecError wraps a spawn or I/O failure against a child process.
type ExecError struct {
	Kind string // "spawn", "io", "not-found"
	Err  error
}

func (e *ExecError) Error() string { return fmt.Sprintf("execchild: %s: %v", e.Kind, e.Err) }
func (e *ExecError) Unwrap() error { return e.Err }

// ExitCodeFor maps an error from this package to the exit code callers
// should report to their own caller (the proxy or the shim).
func ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	if errors.Is(err, ErrTimeout) {
		return 124
	}
	var ee *ExecError
	if errors.As(err, &ee) {
		if ee.Kind == "not-found" {
			return 127
		}
		return 86
	}
	return 86
}

const (
	pollInterval = 25 * time.Millisecond
	graceWindow  = 250 * time.Millisecond
)

// RunningChild is a live child process registered for later signaling.
// It is the in-memory value a proxy's exec registry maps exec-ids to.
type RunningChild struct {
	cmd       *exec.Cmd
	pgid      int
	hasPgid   bool
	createdAt time.Time

	mu        sync.Mutex
	cancelled bool
}

// Pid returns the OS process id of the child, or 0 if it never started.
func (c *RunningChild) Pid() int {
	if c.cmd.Process == nil {
		return 0
	}
	return c.cmd.Process.Pid
}

// CreatedAt is when the child was spawned.
func (c *RunningChild) CreatedAt() time.Time { return c.createdAt }

// Signal delivers signum to the child's process group where supported,
// otherwise to the process itself.
func (c *RunningChild) Signal(signum int) error {
	if c.hasPgid {
		if err := signalGroup(c.pgid, signum); err == nil {
			return nil
		}
	}
	return signalProcess(c.cmd.Process, signum)
}

// Terminate runs the cooperative-termination sequence: a group/process
// termination signal, a grace window, then a kill signal if the child is
// still alive. It does not wait on the child itself: reaping is left to
// whoever is blocked in the child's Wait (waitWithDeadline, for children
// started by SpawnAndCapture or SpawnStreaming). This is the
// single "terminate(deadline)" contract callers use regardless of
// whether a process group was available, per the spec's design note on
// modeling cross-platform termination as two variants behind one API.
func (c *RunningChild) Terminate(ctx context.Context) {
	c.mu.Lock()
	c.cancelled = true
	c.mu.Unlock()

	terminateCooperatively(c, graceWindow)
}

// alive reports whether the child has started and has not yet been
// waited on, probing it with signal 0.
func (c *RunningChild) alive() bool {
	if c.cmd.ProcessState != nil {
		return false
	}
	if c.cmd.Process == nil {
		return false
	}
	return c.cmd.Process.Signal(syscallZero) == nil
}

// Spawn starts argv[0](argv[1:]...) with the given environment (nil
// inherits the current environment) wired to pipes, and returns a handle
// the caller drains and waits on. wantTTY requests a pseudo-terminal for
// the child's stdio, matching the spec's tty-bit exec path.
func spawn(ctx context.Context, argv []string, env []string, wantTTY bool) (*RunningChild, io.ReadCloser, io.ReadCloser, *os.File, error) {
	if len(argv) == 0 {
		return nil, nil, nil, nil, &ExecError{Kind: "spawn", Err: errors.New("empty argv")}
	}
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	if env != nil {
		cmd.Env = env
	}
	setNewProcessGroup(cmd)

	if wantTTY {
		ptmx, err := pty.Start(cmd)
		if err != nil {
			if errors.Is(err, exec.ErrNotFound) || os.IsNotExist(err) {
				return nil, nil, nil, nil, &ExecError{Kind: "not-found", Err: err}
			}
			return nil, nil, nil, nil, &ExecError{Kind: "spawn", Err: err}
		}
		rc := &RunningChild{cmd: cmd, createdAt: time.Now()}
		rc.pgid, rc.hasPgid = processGroupID(cmd)
		return rc, nil, nil, ptmx, nil
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, nil, nil, &ExecError{Kind: "spawn", Err: err}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, nil, nil, nil, &ExecError{Kind: "spawn", Err: err}
	}
	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) || os.IsNotExist(err) {
			return nil, nil, nil, nil, &ExecError{Kind: "not-found", Err: err}
		}
		return nil, nil, nil, nil, &ExecError{Kind: "spawn", Err: err}
	}
	rc := &RunningChild{cmd: cmd, createdAt: time.Now()}
	rc.pgid, rc.hasPgid = processGroupID(cmd)
	return rc, stdout, stderr, nil, nil
}

// WantTTY reports whether stdin looks like a real terminal, mirroring
// the container-exec helper's decision between plain pipe passthrough
// and a pseudo-terminal.
func WantTTY(stdin *os.File) bool {
	return stdin != nil && term.IsTerminal(int(stdin.Fd()))
}

// SpawnAndCapture runs argv to completion (or until deadline), returning
// the combined stdout-then-stderr bytes and the exit code.
func SpawnAndCapture(ctx context.Context, argv []string, env []string, deadline time.Duration) (*RunningChild, int, []byte, error) {
	rc, stdout, stderr, ptmx, err := spawn(ctx, argv, env, false)
	if err != nil {
		return nil, -1, nil, err
	}
	defer func() {
		if stdout != nil {
			stdout.Close()
		}
		if stderr != nil {
			stderr.Close()
		}
		if ptmx != nil {
			ptmx.Close()
		}
	}()

	var out, errBuf bytes.Buffer
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); io.Copy(&out, stdout) }()
	go func() { defer wg.Done(); io.Copy(&errBuf, stderr) }()

	code, err := waitWithDeadline(rc, deadline)
	wg.Wait()

	combined := append(out.Bytes(), errBuf.Bytes()...)
	return rc, code, combined, err
}

// OnChunk receives bytes as they arrive from the child, tagged by origin.
type OnChunk func(stream ChunkStream, data []byte)

// ChunkStream distinguishes stdout from stderr for streaming callers.
type ChunkStream int

const (
	ChunkStdout ChunkStream = iota
	ChunkStderr
)

// SpawnStreaming runs argv, invoking onChunk as output arrives, and
// returns the exit code once the child completes or times out.
func SpawnStreaming(ctx context.Context, argv []string, env []string, deadline time.Duration, wantTTY bool, onChunk OnChunk) (*RunningChild, int, error) {
	rc, stdout, stderr, ptmx, err := spawn(ctx, argv, env, wantTTY)
	if err != nil {
		return nil, -1, err
	}

	var wg sync.WaitGroup
	if ptmx != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer ptmx.Close()
			drain(ptmx, func(b []byte) { onChunk(ChunkStdout, b) })
		}()
	} else {
		wg.Add(2)
		go func() {
			defer wg.Done()
			defer stdout.Close()
			drain(stdout, func(b []byte) { onChunk(ChunkStdout, b) })
		}()
		go func() {
			defer wg.Done()
			defer stderr.Close()
			drain(stderr, func(b []byte) { onChunk(ChunkStderr, b) })
		}()
	}

	code, waitErr := waitWithDeadline(rc, deadline)
	wg.Wait()
	return rc, code, waitErr
}

func drain(r io.Reader, emit func([]byte)) {
	buf := make([]byte, 32*1024)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			emit(chunk)
		}
		if err != nil {
			return
		}
	}
}

// waitWithDeadline polls the child's liveness at pollInterval, running
// the cooperative-termination sequence and returning ErrTimeout if the
// deadline elapses first. It always reaps the child.
func waitWithDeadline(rc *RunningChild, deadline time.Duration) (int, error) {
	done := make(chan struct{})
	var waitErr error
	go func() {
		waitErr = rc.cmd.Wait()
		close(done)
	}()

	var timer <-chan time.Time
	if deadline > 0 {
		t := time.NewTimer(deadline)
		defer t.Stop()
		timer = t.C
	}

	select {
	case <-done:
		return exitCode(rc.cmd, waitErr), nil
	case <-timer:
		terminateCooperatively(rc, graceWindow)
		<-done // reap, even if the child happened to exit mid-grace-window
		return 124, ErrTimeout
	}
}

func exitCode(cmd *exec.Cmd, waitErr error) int {
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}
	if waitErr != nil {
		return -1
	}
	return 0
}
