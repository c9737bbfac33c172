// Package proxy implements the bearer-token-gated local HTTP server
// exposing /exec, /signal, and /notify. It is the hub: it owns the exec
// registry, the bounded worker pool, and all per-request deadlines.
// Grounded on the teacher's Mux server loop (mux_server.go) for the
// listener/shutdown-channel lifecycle, generalized from net/http's
// ServeMux to internal/wire's own request parsing since the spec
// requires per-stage deadlines net/http does not expose.
package proxy

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/banksean/aifo/internal/notify"
	"github.com/banksean/aifo/internal/routetable"
	"github.com/banksean/aifo/internal/session"
)

// Config is the proxy's single typed configuration object (spec §9
// "Backpressure... Configure all limits from a single typed
// configuration object").
type Config struct {
	WorkerPoolSize    int
	AcceptBacklog     int
	HeaderReadTimeout time.Duration
	WriteTimeout      time.Duration
	BodyReadTimeout   time.Duration
	HeaderCap         int
	BodyCap           int
	DefaultDeadline   time.Duration
	MaxDeadline       time.Duration
	ReadyDeadline     time.Duration
	NotifyNoAuth      bool
	NotifyMaxArgs     int
	NotifyTimeout     time.Duration
	NudgeMS           int
}

func (c *Config) withDefaults() {
	if c.WorkerPoolSize <= 0 {
		c.WorkerPoolSize = 64
	}
	if c.AcceptBacklog <= 0 {
		c.AcceptBacklog = 256
	}
	if c.HeaderReadTimeout <= 0 {
		c.HeaderReadTimeout = 15 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 30 * time.Second
	}
	if c.BodyReadTimeout <= 0 {
		c.BodyReadTimeout = 10 * time.Second
	}
	if c.DefaultDeadline <= 0 {
		c.DefaultDeadline = 30 * time.Second
	}
	if c.MaxDeadline <= 0 {
		c.MaxDeadline = 5 * time.Minute
	}
	if c.ReadyDeadline <= 0 {
		c.ReadyDeadline = 5 * time.Second
	}
	if c.NotifyMaxArgs <= 0 {
		c.NotifyMaxArgs = notify.DefaultMaxArgs
	}
	c.NotifyMaxArgs = notify.ClampMaxArgs(c.NotifyMaxArgs)
	if c.NotifyTimeout <= 0 {
		c.NotifyTimeout = 5 * time.Second
	}
}

// Server is the tool-exec proxy. It is constructed around an already
// running session and listens on that session's listener.
type Server struct {
	cfg      Config
	sess     *session.Session
	registry *Registry
	routes   map[string]routetable.Route
	notify   notify.Config
	allowlist []string

	workQueue chan net.Conn
}

// Registry returns the server's exec registry, so callers tearing down
// the session it is bound to can drain in-flight children first (spec
// §4.3).
func (s *Server) Registry() *Registry {
	return s.registry
}

// New constructs a Server bound to sess's listener and token, with the
// given notifications configuration.
func New(cfg Config, sess *session.Session, routes map[string]routetable.Route, notifyCfg notify.Config, allowlist []string) *Server {
	cfg.withDefaults()
	return &Server{
		cfg:       cfg,
		sess:      sess,
		registry:  NewRegistry(),
		routes:    routes,
		notify:    notifyCfg,
		allowlist: allowlist,
		workQueue: make(chan net.Conn, cfg.AcceptBacklog),
	}
}

// Serve runs the accept loop and the bounded worker pool until ctx is
// canceled or the listener is closed. It is the proxy's half of the
// "runs until session cleanup requests a shutdown" contract (spec
// §4.4).
func (s *Server) Serve(ctx context.Context) error {
	for i := 0; i < s.cfg.WorkerPoolSize; i++ {
		go s.worker(ctx)
	}
	go func() {
		<-ctx.Done()
		s.sess.Listener.Close()
	}()

	for {
		conn, err := s.sess.Listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			return fmt.Errorf("proxy: accept: %w", err)
		}
		select {
		case s.workQueue <- conn:
		default:
			slog.WarnContext(ctx, "proxy: accept backlog full, shedding connection")
			conn.Close()
		}
	}
}

func (s *Server) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case conn, ok := <-s.workQueue:
			if !ok {
				return
			}
			s.handleConn(ctx, conn)
		}
	}
}
