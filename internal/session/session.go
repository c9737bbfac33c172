// Package session owns the lifecycle of one logical session: its
// overlay network, its per-kind sidecar containers, the bearer token,
// and the listener endpoint handed to the proxy. Startup and cleanup
// are both idempotent and best-effort on the teardown side, mirroring
// the teacher's Boxer/Box lifecycle split (boxer.go owns the registry
// of sandboxes, box.go owns one sandbox's container and hooks).
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/banksean/aifo/internal/containerops"
	"github.com/banksean/aifo/internal/execchild"
)

// Kind is a sidecar's language kind.
type Kind string

const (
	KindRust  Kind = "rust"
	KindNode  Kind = "node"
	KindPy    Kind = "python"
	KindCCpp  Kind = "c-cpp"
	KindGo    Kind = "go"
)

// PreferredOrder is the tie-break order used when more than one sidecar
// kind could serve a tool (spec §4.4.1 step 3).
var PreferredOrder = []Kind{KindCCpp, KindRust, KindGo, KindNode, KindPy}

// BindKind selects loopback TCP or a unix stream socket for the proxy
// listener.
type BindKind string

const (
	BindTCP  BindKind = "tcp"
	BindUnix BindKind = "unix"
)

// Config describes a session to be started.
type Config struct {
	Prefix          string
	Kinds           []Kind
	CacheEnabled    bool
	ImageOverrides  map[Kind]string
	ImageVersion    string // version-qualified default tag, e.g. "v1"
	Bind            BindKind
	SocketDir       string // required when Bind == BindUnix
	BootstrapCmds   map[Kind][]string
	RequiredBoot    map[Kind]bool
	ReadyTimeout    time.Duration
	CleanupDeadline time.Duration
}

func (c *Config) withDefaults() {
	if c.Prefix == "" {
		c.Prefix = "aifo"
	}
	if c.ReadyTimeout <= 0 {
		c.ReadyTimeout = 5 * time.Second
	}
	if c.CleanupDeadline <= 0 {
		c.CleanupDeadline = 2 * time.Second
	}
	if c.Bind == "" {
		c.Bind = BindTCP
	}
}

// Endpoint is the resolved listener address handed to the shim via
// AIFO_TOOLEEXEC_URL.
type Endpoint struct {
	Kind       BindKind
	Addr       string // host:port for tcp, socket path for unix
	SocketPath string
}

func (e Endpoint) URL() string {
	if e.Kind == BindUnix {
		return "unix://" + e.SocketPath
	}
	return "http://" + e.Addr
}

// Session is a running logical scope: network, sidecars, token, and the
// listener the proxy serves on.
type Session struct {
	SID         string
	Token       string
	prefix      string
	networkName string

	cfg Config

	containerOps containerops.ContainerOps
	networkOps   containerops.NetworkOps
	imageOps     containerops.ImageOps

	mu       sync.Mutex
	sidecars map[Kind]*Sidecar

	Listener net.Listener
	Endpoint Endpoint

	closed      bool
	execDrainer func(context.Context)
}

// SetExecDrainer registers a callback that Cleanup invokes, bounded by
// the same CleanupDeadline, before it stops the sidecars. The proxy's
// Registry.TerminateAll, the callback cmd/toolexecd wires in, terminates
// every exec child still registered right away; it does not first wait
// for them to finish on their own (spec §4.3). The proxy owns the exec registry, so it is wired in by the
// caller that constructs both the session and the proxy server
// (cmd/toolexecd's serve command), not by this package directly —
// avoiding a session→proxy import cycle.
func (s *Session) SetExecDrainer(fn func(context.Context)) {
	s.mu.Lock()
	s.execDrainer = fn
	s.mu.Unlock()
}

// New generates a fresh sid and token, creates the overlay network,
// starts every requested sidecar concurrently, and binds the listener.
// It follows the startup sequence of spec §4.3 in order.
func New(ctx context.Context, cfg Config, containerOps containerops.ContainerOps, networkOps containerops.NetworkOps, imageOps containerops.ImageOps) (*Session, error) {
	cfg.withDefaults()

	sid := shortSID()
	token, err := randomToken()
	if err != nil {
		return nil, fmt.Errorf("session: generate token: %w", err)
	}

	s := &Session{
		SID:          sid,
		Token:        token,
		prefix:       cfg.Prefix,
		networkName:  fmt.Sprintf("%s-net-%s", cfg.Prefix, sid),
		cfg:          cfg,
		containerOps: containerOps,
		networkOps:   networkOps,
		imageOps:     imageOps,
		sidecars:     map[Kind]*Sidecar{},
	}

	if err := networkOps.Create(ctx, s.networkName); err != nil {
		return nil, fmt.Errorf("session: create network: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	var mu sync.Mutex
	for _, kind := range cfg.Kinds {
		kind := kind
		g.Go(func() error {
			sc, err := s.startSidecar(gctx, kind)
			if err != nil {
				return err
			}
			mu.Lock()
			s.sidecars[kind] = sc
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.Cleanup(context.Background())
		return nil, fmt.Errorf("session: start sidecars: %w", err)
	}

	ep, ln, err := bindListener(cfg)
	if err != nil {
		s.Cleanup(context.Background())
		return nil, fmt.Errorf("session: bind listener: %w", err)
	}
	s.Endpoint = ep
	s.Listener = ln

	if err := s.runBootstraps(ctx); err != nil {
		s.Cleanup(context.Background())
		return nil, err
	}

	return s, nil
}

// runBootstraps runs each kind's optional bootstrap command (e.g.
// installing a global package in a sidecar). Failures are logged but
// non-fatal unless the kind is marked required (spec §4.3 step 5).
func (s *Session) runBootstraps(ctx context.Context) error {
	for _, kind := range s.cfg.Kinds {
		cmd, ok := s.cfg.BootstrapCmds[kind]
		if !ok || len(cmd) == 0 {
			continue
		}
		sc, ok := s.Sidecar(kind)
		if !ok {
			continue
		}
		argv := containerops.RunArgv(&containerops.ExecOptions{}, sc.ContainerID, cmd[0], cmd[1:])
		_, code, out, err := execchild.SpawnAndCapture(ctx, argv, nil, 30*time.Second)
		if err != nil || code != 0 {
			slog.WarnContext(ctx, "session bootstrap failed", "kind", kind, "error", err, "code", code, "output", string(out))
			if s.cfg.RequiredBoot[kind] {
				return fmt.Errorf("session: required bootstrap for %s failed: %w", kind, err)
			}
		}
	}
	return nil
}

func (s *Session) containerName(kind Kind) string {
	return fmt.Sprintf("%s-tc-%s-%s", s.prefix, kind, s.SID)
}

func (s *Session) startSidecar(ctx context.Context, kind Kind) (*Sidecar, error) {
	candidates := imageCandidates(kind, s.cfg.ImageOverrides[kind], s.cfg.ImageVersion)
	var ref string
	var lastErr error
	for _, c := range candidates {
		r, err := containerops.EnsureImage(ctx, s.imageOps, c)
		if err != nil {
			lastErr = err
			continue
		}
		ref = r
		break
	}
	if ref == "" {
		return nil, fmt.Errorf("session: no usable image for kind %s: %w", kind, lastErr)
	}

	caches := cacheVolumesFor(kind)
	mounts := []string{}
	if s.cfg.CacheEnabled {
		for _, c := range caches {
			vol := fmt.Sprintf("%s-cache-%s-%s", s.prefix, kind, sanitizeVolumeSuffix(c))
			mounts = append(mounts, fmt.Sprintf("type=volume,source=%s,target=%s", vol, c))
		}
	}

	name := s.containerName(kind)
	opts := &containerops.RunOptions{
		Detach:  true,
		Name:    name,
		Network: s.networkName,
		Label:   map[string]string{"aifo.sid": s.SID, "aifo.kind": string(kind)},
		Mount:   mounts,
		User:    hostUserSpec(),
	}
	cid, err := s.containerOps.Create(ctx, opts, ref, []string{"sleep", "infinity"})
	if err != nil {
		return nil, fmt.Errorf("session: create sidecar %s: %w", kind, err)
	}
	if err := s.containerOps.Start(ctx, cid); err != nil {
		return nil, fmt.Errorf("session: start sidecar %s: %w", kind, err)
	}

	return &Sidecar{
		Kind:          kind,
		ContainerID:   cid,
		ContainerName: name,
		ImageRef:      ref,
		CacheVolumes:  caches,
	}, nil
}

// Sidecars returns a snapshot of the currently running sidecars.
func (s *Session) Sidecars() map[Kind]*Sidecar {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[Kind]*Sidecar, len(s.sidecars))
	for k, v := range s.sidecars {
		out[k] = v
	}
	return out
}

// Sidecar returns the sidecar for kind, if running.
func (s *Session) Sidecar(kind Kind) (*Sidecar, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.sidecars[kind]
	return sc, ok
}

// WaitReady blocks until the sidecar for kind reports ready, an
// inexpensive exec succeeds, or the deadline elapses.
func (s *Session) WaitReady(ctx context.Context, kind Kind, probe ReadinessProbe) error {
	sc, ok := s.Sidecar(kind)
	if !ok {
		return fmt.Errorf("session: no sidecar for kind %s", kind)
	}
	if sc.Ready() {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ReadyTimeout)
	defer cancel()
	for {
		err := sc.awaitReady(ctx, probe)
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(100 * time.Millisecond):
		}
	}
}

// Cleanup tears down every sidecar, the network, and the listener. It
// is idempotent: a second call is a no-op that returns nil (spec §8
// testable property 8).
func (s *Session) Cleanup(ctx context.Context) error {
	if s.alreadyCleaned() {
		return nil
	}
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	cctx, cancel := context.WithTimeout(ctx, s.cfg.CleanupDeadline)
	defer cancel()

	s.mu.Lock()
	drain := s.execDrainer
	s.mu.Unlock()
	if drain != nil {
		drain(cctx)
	}

	var g errgroup.Group
	for _, sc := range s.Sidecars() {
		sc := sc
		g.Go(func() error {
			if err := s.containerOps.Stop(cctx, &containerops.StopOptions{Time: 1}, sc.ContainerID); err != nil {
				slog.ErrorContext(ctx, "session cleanup: stop sidecar failed", "kind", sc.Kind, "error", err)
			}
			if err := s.containerOps.Remove(cctx, sc.ContainerID); err != nil {
				slog.ErrorContext(ctx, "session cleanup: remove sidecar failed", "kind", sc.Kind, "error", err)
			}
			return nil
		})
	}
	g.Wait()

	if err := s.networkOps.Remove(cctx, s.networkName); err != nil {
		slog.ErrorContext(ctx, "session cleanup: remove network failed", "network", s.networkName, "error", err)
	}

	if s.Listener != nil {
		if err := s.Listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			slog.ErrorContext(ctx, "session cleanup: close listener failed", "error", err)
		}
	}
	if s.Endpoint.Kind == BindUnix && s.Endpoint.SocketPath != "" {
		if err := os.Remove(s.Endpoint.SocketPath); err != nil && !os.IsNotExist(err) {
			slog.ErrorContext(ctx, "session cleanup: remove socket failed", "path", s.Endpoint.SocketPath, "error", err)
		}
	}
	return nil
}

func (s *Session) alreadyCleaned() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func shortSID() string {
	id := uuid.NewString()
	return strings.SplitN(id, "-", 2)[0]
}

func randomToken() (string, error) {
	buf := make([]byte, 16) // 128 bits
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func bindListener(cfg Config) (Endpoint, net.Listener, error) {
	if cfg.Bind == BindUnix {
		if cfg.SocketDir == "" {
			return Endpoint{}, nil, errors.New("session: unix bind requires SocketDir")
		}
		if err := os.MkdirAll(cfg.SocketDir, 0o700); err != nil {
			return Endpoint{}, nil, err
		}
		sockPath := filepath.Join(cfg.SocketDir, "toolexec.sock")
		os.Remove(sockPath)
		ln, err := net.Listen("unix", sockPath)
		if err != nil {
			return Endpoint{}, nil, err
		}
		return Endpoint{Kind: BindUnix, SocketPath: sockPath}, ln, nil
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return Endpoint{}, nil, err
	}
	return Endpoint{Kind: BindTCP, Addr: ln.Addr().String()}, ln, nil
}

func hostUserSpec() string {
	return fmt.Sprintf("%d:%d", os.Getuid(), os.Getgid())
}

func sanitizeVolumeSuffix(path string) string {
	return strings.Trim(strings.ReplaceAll(strings.ReplaceAll(path, "/", "-"), ".", ""), "-")
}
