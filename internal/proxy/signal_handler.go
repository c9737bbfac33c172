package proxy

import (
	"context"
	"net"
	"strconv"

	"github.com/banksean/aifo/internal/wire"
)

// handleSignal implements spec §4.4.2. Signal delivery is advisory: the
// exec_id may already have exited and been reaped by the time the
// request arrives, which is not treated as an error.
func (s *Server) handleSignal(ctx context.Context, conn net.Conn, req *wire.Request) {
	execID := req.FormValue("exec_id")
	if execID == "" {
		writeSimple(conn, 400, exitTransportOrPolicy, "missing exec_id")
		return
	}
	sigName := req.FormValue("signal")
	if sigName == "" {
		sigName = "TERM"
	}
	signum, ok := signalNumber(sigName)
	if !ok {
		writeSimple(conn, 400, exitTransportOrPolicy, "unknown signal")
		return
	}

	rc, ok := s.registry.Lookup(execID)
	if !ok {
		writeSimple(conn, 404, exitNotFound, "unknown exec_id")
		return
	}

	if err := rc.Signal(signum); err != nil {
		// The child may have already exited; advisory semantics mean
		// this is still a successful delivery attempt from the
		// caller's point of view.
		writeSimple(conn, 200, 0, "signal not delivered: "+err.Error())
		return
	}
	writeSimple(conn, 200, 0, "signal delivered")
}

var signalNames = map[string]int{
	"HUP":  1,
	"INT":  2,
	"QUIT": 3,
	"KILL": 9,
	"TERM": 15,
	"USR1": 10,
	"USR2": 12,
	"CONT": 18,
	"STOP": 19,
}

func signalNumber(name string) (int, bool) {
	if n, err := strconv.Atoi(name); err == nil {
		return n, true
	}
	n, ok := signalNames[name]
	return n, ok
}
