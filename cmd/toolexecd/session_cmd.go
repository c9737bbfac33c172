package main

import (
	"context"
	"fmt"
	"time"

	"github.com/banksean/aifo/internal/containerops"
	"github.com/banksean/aifo/internal/session"
)

// SessionCmd groups the session lifecycle verbs, grounded on the
// teacher's per-verb command structure (ls_cmd.go, rm_cmd.go,
// stop_cmd.go) even though fork/terminal orchestration itself stays
// out of the core's scope.
type SessionCmd struct {
	Create  SessionCreateCmd  `cmd:"" help:"start a session's network and sidecars without running the proxy"`
	Cleanup SessionCleanupCmd `cmd:"" help:"tear down a session's containers, network, and listener"`
}

type SessionCreateCmd struct {
	Kind   []string `short:"k" help:"sidecar kind to start (repeatable)" enum:"rust,node,python,c-cpp,go"`
	Prefix string   `default:"aifo" help:"container/network name prefix"`
}

func (c *SessionCreateCmd) Run(cctx *Context) error {
	ctx := context.Background()

	kinds := make([]session.Kind, 0, len(c.Kind))
	for _, k := range c.Kind {
		kinds = append(kinds, session.Kind(k))
	}

	sess, err := session.New(ctx, session.Config{Prefix: c.Prefix, Kinds: kinds},
		containerops.NewDockerContainerOps(),
		containerops.NewDockerNetworkOps(),
		containerops.NewDockerImageOps(),
	)
	if err != nil {
		return fmt.Errorf("session create: %w", err)
	}

	fmt.Printf("sid=%s endpoint=%s token=%s\n", sess.SID, sess.Endpoint.URL(), sess.Token)
	return nil
}

// SessionCleanupCmd removes everything tagged with a given sid. It is
// idempotent: a second invocation against an already-removed sid is a
// no-op (spec §8 testable property 8): it ignores container stop/remove
// errors and prints, without failing, any network removal error.
type SessionCleanupCmd struct {
	SID     string `arg:"" help:"session id to clean up"`
	Prefix  string `default:"aifo" help:"container/network name prefix"`
	Timeout time.Duration `default:"10s" help:"cleanup deadline"`
}

func (c *SessionCleanupCmd) Run(cctx *Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.Timeout)
	defer cancel()

	ops := containerops.NewDockerContainerOps()
	netOps := containerops.NewDockerNetworkOps()

	for _, kind := range []session.Kind{session.KindRust, session.KindNode, session.KindPy, session.KindCCpp, session.KindGo} {
		name := fmt.Sprintf("%s-tc-%s-%s", c.Prefix, kind, c.SID)
		_ = ops.Stop(ctx, &containerops.StopOptions{Time: 1}, name)
		_ = ops.Remove(ctx, name)
	}
	netName := fmt.Sprintf("%s-net-%s", c.Prefix, c.SID)
	if err := netOps.Remove(ctx, netName); err != nil {
		// Best-effort: an already-removed network is not a failure.
		fmt.Printf("cleanup: network %s: %v\n", netName, err)
	}

	fmt.Printf("cleaned up sid=%s\n", c.SID)
	return nil
}
