package session

import (
	"context"
	"fmt"
	"sync/atomic"
)

// Sidecar is one running language-kind container within a session.
type Sidecar struct {
	Kind          Kind
	ContainerID   string
	ContainerName string
	ImageRef      string
	CacheVolumes  []string

	ready atomic.Bool
}

// Ready reports whether the sidecar's readiness has been probed
// successfully. Once true it is never re-probed for the life of the
// session (spec §9 open question: readiness is cached for the session).
func (s *Sidecar) Ready() bool { return s.ready.Load() }

// ReadinessProbe runs an inexpensive command against a sidecar (e.g.
// `docker exec <container> <tool> --version`) and reports whether it
// succeeded.
type ReadinessProbe func(ctx context.Context, containerID string, kind Kind) error

func (s *Sidecar) awaitReady(ctx context.Context, probe ReadinessProbe) error {
	if s.ready.Load() {
		return nil
	}
	if err := probe(ctx, s.ContainerID, s.Kind); err != nil {
		return fmt.Errorf("session: readiness probe failed for %s: %w", s.Kind, err)
	}
	s.ready.Store(true)
	return nil
}

// versionTool maps each kind to the inexpensive command used to probe
// readiness, one argv entry per field.
var versionTool = map[Kind][]string{
	KindRust: {"cargo", "--version"},
	KindNode: {"node", "--version"},
	KindPy:   {"python3", "--version"},
	KindCCpp: {"cc", "--version"},
	KindGo:   {"go", "version"},
}

// VersionProbeArgv returns the inexpensive readiness-probe argv for kind.
func VersionProbeArgv(kind Kind) []string {
	return versionTool[kind]
}

// imageCandidates returns image reference candidates in precedence
// order: explicit override, version-qualified default, kind default
// (spec §4.3 step 3).
func imageCandidates(kind Kind, override, version string) []string {
	var out []string
	if override != "" {
		out = append(out, override)
	}
	if version != "" {
		out = append(out, fmt.Sprintf("docker.io/library/%s:%s", defaultRepo(kind), version))
	}
	out = append(out, fmt.Sprintf("docker.io/library/%s:latest", defaultRepo(kind)))
	return out
}

func defaultRepo(kind Kind) string {
	switch kind {
	case KindRust:
		return "rust"
	case KindNode:
		return "node"
	case KindPy:
		return "python"
	case KindCCpp:
		return "gcc"
	case KindGo:
		return "golang"
	default:
		return string(kind)
	}
}

// cacheVolumesFor returns the mount targets that get a named cache
// volume per kind, when caching is enabled.
func cacheVolumesFor(kind Kind) []string {
	switch kind {
	case KindRust:
		return []string{"/usr/local/cargo/registry", "/root/.rustup"}
	case KindNode:
		return []string{"/root/.npm"}
	case KindPy:
		return []string{"/root/.cache/pip"}
	case KindCCpp:
		return []string{"/root/.cache/ccache"}
	case KindGo:
		return []string{"/root/.cache/go-build", "/go/pkg/mod"}
	default:
		return nil
	}
}
