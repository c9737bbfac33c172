package proxy

import (
	"context"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/banksean/aifo/internal/wire"
)

const protoHeader = "X-Aifo-Proto"
const protoVersion = "2"

// exitCode helper constants, per spec §7.
const (
	exitTransportOrPolicy = 86
	exitTimeout           = 124
	exitNotFound          = 127
)

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(s.cfg.HeaderReadTimeout))
	req, err := wire.ReadRequest(conn, wire.Limits{HeaderCap: s.cfg.HeaderCap, BodyCap: s.cfg.BodyCap})
	if err != nil {
		writeStatusError(conn, err)
		return
	}
	conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))

	if req.Header.Get(protoHeader) != protoVersion {
		writeSimple(conn, 426, exitTransportOrPolicy, "unsupported protocol version")
		return
	}

	noAuth := req.Path == "/notify" && s.cfg.NotifyNoAuth
	if !noAuth {
		if !s.authenticated(req) {
			writeSimple(conn, 401, exitTransportOrPolicy, "unauthorized")
			return
		}
	}

	switch req.Path {
	case "/exec":
		s.handleExec(ctx, conn, req)
	case "/signal":
		s.handleSignal(ctx, conn, req)
	case "/notify":
		s.handleNotify(ctx, conn, req)
	default:
		writeSimple(conn, 404, exitNotFound, "not found")
	}
}

func (s *Server) authenticated(req *wire.Request) bool {
	auth := req.Header.Get("Authorization")
	const prefix = "bearer "
	if len(auth) < len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) {
		return false
	}
	token := auth[len(prefix):]
	return token == s.sess.Token
}

func writeStatusError(conn net.Conn, err error) {
	st, ok := wire.AsStatus(err)
	if !ok {
		writeSimple(conn, 400, exitTransportOrPolicy, "malformed request")
		return
	}
	writeSimple(conn, st.Code, exitTransportOrPolicy, st.Msg)
}

func writeSimple(conn net.Conn, status, exitCode int, body string) {
	var hdr wire.Header
	hdr.Set("X-Exit-Code", strconv.Itoa(exitCode))
	hdr.Set("Content-Type", "text/plain; charset=utf-8")
	wire.WriteResponse(conn, &wire.Response{Status: status, Header: hdr, Body: []byte(body)})
}
