//go:build !unix

package execchild

import (
	"os"
	"os/exec"
	"time"
)

const syscallZero = 0

// Non-unix platforms have no process-group signaling, so termination
// always falls back to a direct process kill with no grace window.
func setNewProcessGroup(cmd *exec.Cmd) {}

func processGroupID(cmd *exec.Cmd) (int, bool) { return 0, false }

func signalGroup(pgid int, signum int) error { return os.ErrInvalid }

func signalProcess(p *os.Process, signum int) error {
	if p == nil {
		return os.ErrInvalid
	}
	return p.Kill()
}

func terminateCooperatively(c *RunningChild, grace time.Duration) {
	if c.cmd.Process == nil {
		return
	}
	c.cmd.Process.Kill()
}
