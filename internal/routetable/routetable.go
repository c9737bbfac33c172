// Package routetable holds the static tool-name routing table: which
// sidecar kinds can serve a tool, in preference order, plus an optional
// local-fallback resolver consulted before the proxy is used at all.
// This replaces what would otherwise be a chain of per-tool branches
// with a single compact map literal, per the spec's design note on
// dynamic dispatch over tools.
package routetable

import (
	"github.com/banksean/aifo/internal/session"
)

// LocalFallback resolves a workspace-local binary path for a tool
// invoked from inside the agent container, e.g. "./node_modules/.bin/tsc"
// or "./venv/bin/python". It returns ("", false) when no local binary
// should be preferred.
type LocalFallback func(workspaceDir string) (path string, ok bool)

// Route is one tool's routing entry: the sidecar kinds that can serve
// it, tried in order, and an optional local-fallback resolver tried by
// the shim before any proxy request is made.
type Route struct {
	Kinds         []session.Kind
	LocalFallback LocalFallback
}

// Table is the fixed tool-name → Route mapping. A tool absent from this
// map is rejected by the proxy before any process is spawned (§4.4.1
// step 2).
var Table = map[string]Route{
	"cargo":  {Kinds: []session.Kind{session.KindRust}},
	"rustc":  {Kinds: []session.Kind{session.KindRust}},
	"npm":    {Kinds: []session.Kind{session.KindNode}},
	"node":   {Kinds: []session.Kind{session.KindNode}},
	"tsc": {
		Kinds:         []session.Kind{session.KindNode},
		LocalFallback: localBin("node_modules/.bin/tsc"),
	},
	"npx":     {Kinds: []session.Kind{session.KindNode}},
	"python":  {Kinds: []session.Kind{session.KindPy}, LocalFallback: localBin("venv/bin/python")},
	"python3": {Kinds: []session.Kind{session.KindPy}, LocalFallback: localBin("venv/bin/python3")},
	"pip":     {Kinds: []session.Kind{session.KindPy}, LocalFallback: localBin("venv/bin/pip")},
	"gcc":     {Kinds: []session.Kind{session.KindCCpp}},
	"g++":     {Kinds: []session.Kind{session.KindCCpp}},
	"cc":      {Kinds: []session.Kind{session.KindCCpp}},
	"go":      {Kinds: []session.Kind{session.KindGo}},
	"gofmt":   {Kinds: []session.Kind{session.KindGo}},
	// Build/dev tools available from several toolchains: try in the
	// declared preference order (c-cpp, rust, go, node, python).
	"make":  {Kinds: session.PreferredOrder},
	"cmake": {Kinds: session.PreferredOrder},
	"echo":  {Kinds: session.PreferredOrder},
}

// Lookup returns the route for tool, and whether one exists.
func Lookup(tool string) (Route, bool) {
	r, ok := Table[tool]
	return r, ok
}

func localBin(relPath string) LocalFallback {
	return func(workspaceDir string) (string, bool) {
		full := joinWorkspace(workspaceDir, relPath)
		if fileIsExecutable(full) {
			return full, true
		}
		return "", false
	}
}
