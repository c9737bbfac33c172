package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/banksean/aifo/internal/containerops"
	"github.com/banksean/aifo/internal/notify"
	"github.com/banksean/aifo/internal/obs"
	"github.com/banksean/aifo/internal/proxy"
	"github.com/banksean/aifo/internal/routetable"
	"github.com/banksean/aifo/internal/session"
)

// ServeCmd starts a session and runs the tool-exec proxy against it
// until interrupted, mirroring the teacher's DaemonCmd "start" path but
// foreground rather than daemonized.
type ServeCmd struct {
	Kinds     []string `short:"k" default:"rust,node,python,c-cpp,go" help:"comma-separated sidecar kinds to start"`
	Prefix    string   `default:"aifo" help:"container/network name prefix"`
	Bind      string   `default:"tcp" enum:"tcp,unix" help:"listener bind kind"`
	SocketDir string   `default:"" help:"directory for the unix socket when --bind=unix"`
	CacheOff  bool     `help:"disable per-kind cache volumes"`

	NotifyConfig  string `env:"AIFO_NOTIFICATIONS_CONFIG" help:"path to the notifications configuration document"`
	NotifyNoAuth  bool   `env:"AIFO_NOTIFICATIONS_NOAUTH" help:"allow unauthenticated /notify requests (proto gating still applies)"`
	NotifyMaxArgs int    `env:"AIFO_NOTIFICATIONS_MAX_ARGS" default:"8" help:"max trailing notification args appended"`
	NotifyTimeout int    `env:"AIFO_NOTIFICATIONS_TIMEOUT_SECS" default:"5" help:"notification command timeout, seconds"`
	NotifyAllow   string `env:"AIFO_NOTIFICATIONS_ALLOWLIST" help:"comma-separated notification basenames allowed beyond the defaults"`
	NudgeMS       int    `env:"AIFO_NOTIFICATIONS_NUDGE_MS" default:"0" help:"optional pre-response sleep before /notify responds, log-aesthetic only"`

	Workers int `default:"64" help:"proxy worker pool size"`
}

func (c *ServeCmd) Run(cctx *Context) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	tp, err := obs.NewTracerProvider(ctx)
	if err != nil {
		return fmt.Errorf("serve: tracer provider: %w", err)
	}
	defer tp.Shutdown(context.Background())

	kinds := make([]session.Kind, 0, len(c.Kinds))
	for _, k := range c.Kinds {
		kinds = append(kinds, session.Kind(k))
	}

	sessCfg := session.Config{
		Prefix:       c.Prefix,
		Kinds:        kinds,
		CacheEnabled: !c.CacheOff,
		Bind:         session.BindKind(c.Bind),
		SocketDir:    c.SocketDir,
	}

	sess, err := session.New(ctx, sessCfg,
		containerops.NewDockerContainerOps(),
		containerops.NewDockerNetworkOps(),
		containerops.NewDockerImageOps(),
	)
	if err != nil {
		return fmt.Errorf("serve: start session: %w", err)
	}
	defer sess.Cleanup(context.Background())

	slog.InfoContext(ctx, "session ready", "sid", sess.SID, "endpoint", sess.Endpoint.URL())
	fmt.Printf("AIFO_TOOLEEXEC_URL=%s\n", sess.Endpoint.URL())
	fmt.Printf("AIFO_TOOLEEXEC_TOKEN=%s\n", sess.Token)
	fmt.Printf("AIFO_SESSION_ID=%s\n", sess.SID)

	var notifyCfg notify.Config
	if c.NotifyConfig != "" {
		notifyCfg, err = notify.LoadConfig(c.NotifyConfig)
		if err != nil {
			return fmt.Errorf("serve: load notifications config: %w", err)
		}
	}
	allowlist := notify.ComputeAllowlist(c.NotifyAllow)

	proxyCfg := proxy.Config{
		WorkerPoolSize: c.Workers,
		NotifyNoAuth:   c.NotifyNoAuth,
		NotifyMaxArgs:  c.NotifyMaxArgs,
		NotifyTimeout:  time.Duration(c.NotifyTimeout) * time.Second,
		NudgeMS:        c.NudgeMS,
	}
	srv := proxy.New(proxyCfg, sess, routetable.Table, notifyCfg, allowlist)
	sess.SetExecDrainer(srv.Registry().TerminateAll)

	err = srv.Serve(ctx)
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
