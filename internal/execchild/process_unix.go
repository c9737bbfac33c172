//go:build unix

package execchild

import (
	"os"
	"os/exec"
	"syscall"
	"time"
)

// syscallZero is signal 0: used only to probe whether a process is
// still alive, never delivered to anything.
const syscallZero = syscall.Signal(0)

// setNewProcessGroup arranges for the child to become its own process
// group leader, so a later group signal reaches everything the child
// itself spawned rather than just the direct child.
func setNewProcessGroup(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}

// processGroupID reports the child's process group id, valid only once
// the process has started.
func processGroupID(cmd *exec.Cmd) (int, bool) {
	if cmd.Process == nil {
		return 0, false
	}
	pgid, err := syscall.Getpgid(cmd.Process.Pid)
	if err != nil {
		return 0, false
	}
	return pgid, true
}

func signalGroup(pgid int, signum int) error {
	return syscall.Kill(-pgid, syscall.Signal(signum))
}

func signalProcess(p *os.Process, signum int) error {
	if p == nil {
		return os.ErrInvalid
	}
	return p.Signal(syscall.Signal(signum))
}

// terminateCooperatively sends SIGTERM (to the group if one exists,
// otherwise to the process), waits up to grace for the process to
// report itself dead via signal-0 probing, then escalates to SIGKILL.
func terminateCooperatively(c *RunningChild, grace time.Duration) {
	if c.cmd.Process == nil {
		return
	}
	term := func() error {
		if c.hasPgid {
			if err := signalGroup(c.pgid, int(syscall.SIGTERM)); err == nil {
				return nil
			}
		}
		return signalProcess(c.cmd.Process, int(syscall.SIGTERM))
	}
	kill := func() {
		if c.hasPgid {
			if signalGroup(c.pgid, int(syscall.SIGKILL)) == nil {
				return
			}
		}
		signalProcess(c.cmd.Process, int(syscall.SIGKILL))
	}

	if err := term(); err != nil {
		kill()
		return
	}

	deadline := time.Now().Add(grace)
	for time.Now().Before(deadline) {
		if !c.alive() {
			return
		}
		time.Sleep(pollInterval)
	}
	if c.alive() {
		kill()
	}
}
