package proxy

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/banksean/aifo/internal/execchild"
	"github.com/banksean/aifo/internal/notify"
	"github.com/banksean/aifo/internal/wire"
)

// handleNotify implements spec §4.4.3: validate the configured
// notifications command against the allowlist, confirm the caller's
// cmd field names that same executable, compose the effective argv
// from request-supplied arguments, and run it host-side (never inside
// a sidecar) with a short fixed timeout. If NudgeMS is set, it sleeps
// that long immediately before writing the response — a cosmetic delay
// only, never awaited by /exec.
func (s *Server) handleNotify(ctx context.Context, conn net.Conn, req *wire.Request) {
	if s.notify.ExecAbs == "" {
		writeSimple(conn, 403, exitTransportOrPolicy, "notifications not configured")
		return
	}
	basename := s.notify.Basename()
	if !notify.Allowed(s.allowlist, basename) {
		writeSimple(conn, 403, exitTransportOrPolicy, fmt.Sprintf("command '%s' not allowed for notifications", basename))
		return
	}
	if cmd := req.FormValue("cmd"); cmd != basename {
		writeSimple(conn, 403, exitTransportOrPolicy, fmt.Sprintf("only executable basename '%s' is accepted (got '%s')", basename, cmd))
		return
	}

	requestArgs := req.FormValues("arg")
	argv, err := notify.ComposeArgv(s.notify, requestArgs, s.cfg.NotifyMaxArgs)
	if err != nil {
		writeSimple(conn, 400, exitTransportOrPolicy, err.Error())
		return
	}

	rc, code, out, err := execchild.SpawnAndCapture(ctx, argv, nil, s.cfg.NotifyTimeout)
	if rc != nil {
		execID := s.registry.Register(rc)
		defer s.registry.Remove(execID)
	}
	if s.cfg.NudgeMS > 0 {
		time.Sleep(time.Duration(s.cfg.NudgeMS) * time.Millisecond)
	}
	switch {
	case err == nil:
		writeBuffered(conn, "", code, nil, out)
	case isTimeout(err):
		writeSimple(conn, 408, exitTimeout, "notification command timed out")
	default:
		writeSimple(conn, 500, execchild.ExitCodeFor(err), err.Error())
	}
}
