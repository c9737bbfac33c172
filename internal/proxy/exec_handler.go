package proxy

import (
	"context"
	"errors"
	"net"
	"strconv"
	"time"

	"github.com/banksean/aifo/internal/containerops"
	"github.com/banksean/aifo/internal/execchild"
	"github.com/banksean/aifo/internal/obs"
	"github.com/banksean/aifo/internal/session"
	"github.com/banksean/aifo/internal/wire"
)

// handleExec implements spec §4.4.1.
func (s *Server) handleExec(ctx context.Context, conn net.Conn, req *wire.Request) {
	ctx, span := obs.Tracer("proxy").Start(ctx, "exec")
	defer span.End()

	tool := req.FormValue("tool")
	if tool == "" {
		writeSimple(conn, 400, exitTransportOrPolicy, "missing tool")
		return
	}
	args := req.FormValues("arg")
	streamMode := req.FormValue("stream")
	if streamMode == "" {
		streamMode = "v1"
	}

	route, ok := s.routes[tool]
	if !ok {
		writeSimple(conn, 403, exitTransportOrPolicy, "tool not allowed")
		return
	}

	var chosenKind session.Kind
	var found bool
	for _, kind := range route.Kinds {
		if sc, ok := s.sess.Sidecar(kind); ok {
			if err := s.sess.WaitReady(ctx, kind, defaultReadinessProbe); err == nil {
				chosenKind = kind
				found = true
				_ = sc
				break
			}
		}
	}
	if !found {
		writeSimple(conn, 404, exitNotFound, "no ready sidecar for tool")
		return
	}

	sc, _ := s.sess.Sidecar(chosenKind)

	deadline := s.cfg.DefaultDeadline
	if dms := req.FormValue("deadline_ms"); dms != "" {
		if n, err := strconv.Atoi(dms); err == nil && n > 0 {
			d := time.Duration(n) * time.Millisecond
			if d > s.cfg.MaxDeadline {
				d = s.cfg.MaxDeadline
			}
			deadline = d
		}
	}

	argv := containerops.RunArgv(&containerops.ExecOptions{Interactive: true, WorkDir: "/workspace"}, sc.ContainerID, tool, args)

	if streamMode == "v2" {
		s.execStreamV2(ctx, conn, argv, deadline)
		return
	}
	s.execBuffered(ctx, conn, argv, deadline)
}

func defaultReadinessProbe(ctx context.Context, containerID string, kind session.Kind) error {
	argv := containerops.RunArgv(&containerops.ExecOptions{}, containerID, session.VersionProbeArgv(kind)[0], session.VersionProbeArgv(kind)[1:])
	_, code, _, err := execchild.SpawnAndCapture(ctx, argv, nil, 5*time.Second)
	if err != nil {
		return err
	}
	if code != 0 {
		return errExitNonZero(code)
	}
	return nil
}

type errExitNonZero int

func (e errExitNonZero) Error() string { return "readiness probe exited nonzero" }

func (s *Server) execBuffered(ctx context.Context, conn net.Conn, argv []string, deadline time.Duration) {
	rc, code, out, err := execchild.SpawnAndCapture(ctx, argv, nil, deadline)
	if rc != nil {
		execID := s.registry.Register(rc)
		defer s.registry.Remove(execID)
		writeBuffered(conn, execID, code, err, out)
		return
	}
	writeBuffered(conn, "", code, err, out)
}

func writeBuffered(conn net.Conn, execID string, code int, err error, out []byte) {
	var hdr wire.Header
	status := 200
	if execID != "" {
		hdr.Set("X-Aifo-Exec-Id", execID)
	}
	switch {
	case err == nil:
		hdr.Set("X-Exit-Code", strconv.Itoa(code))
	case isTimeout(err):
		status = 504
		hdr.Set("X-Exit-Code", strconv.Itoa(exitTimeout))
		out = []byte("timeout")
	default:
		status = 500
		hdr.Set("X-Exit-Code", strconv.Itoa(execchild.ExitCodeFor(err)))
		out = append(out, []byte(err.Error())...)
	}
	wire.WriteResponse(conn, &wire.Response{Status: status, Header: hdr, Body: out})
}

// execStreamV2 streams stdout/stderr as they arrive, so the exit code
// isn't known until after the headers (and status 200) are already on
// the wire. It is carried as an HTTP/1.1 chunked trailer instead,
// announced via the "Trailer" response header and written by
// ChunkedWriter.Close once the child has actually exited (spec §4.4.1
// step 7, testable property #1). net/http's client surfaces trailers
// on resp.Trailer only after the body is fully drained, which is why
// internal/shim reads X-Exit-Code from there for v2 responses.
func (s *Server) execStreamV2(ctx context.Context, conn net.Conn, argv []string, deadline time.Duration) {
	var hdr wire.Header
	hdr.Set("Content-Type", "application/octet-stream")
	hdr.Set("Trailer", "X-Exit-Code")

	cw, err := wire.WriteResponseHeader(conn, 200, hdr)
	if err != nil {
		return
	}

	var execID string
	onChunk := func(st execchild.ChunkStream, data []byte) {
		var ws wire.Stream
		if st == execchild.ChunkStdout {
			ws = wire.StreamStdout
		} else {
			ws = wire.StreamStderr
		}
		cw.WriteChunk(wire.EncodeFrame(ws, data))
	}

	rc, code, err := execchild.SpawnStreaming(ctx, argv, nil, deadline, false, onChunk)
	if rc != nil {
		execID = s.registry.Register(rc)
		defer s.registry.Remove(execID)
	}

	var trailer wire.Header
	switch {
	case err == nil:
		trailer.Set("X-Exit-Code", strconv.Itoa(code))
	case isTimeout(err):
		trailer.Set("X-Exit-Code", strconv.Itoa(exitTimeout))
	default:
		trailer.Set("X-Exit-Code", strconv.Itoa(execchild.ExitCodeFor(err)))
	}
	cw.Close(trailer)
}

func isTimeout(err error) bool {
	return errors.Is(err, execchild.ErrTimeout)
}
