package shim

import (
	"path/filepath"
	"strings"

	"github.com/banksean/aifo/internal/routetable"
)

// NotifyTool is the fixed extra head the shim supports alongside the
// proxy's own route table (spec §4.5: "the same set as the proxy's
// route table; plus notifications-cmd").
const NotifyTool = "notifications-cmd"

// ToolNameFromArgv0 extracts the intended tool name from a shim
// invocation's argv[0], stripping any directory and a trailing ".exe"
// some install layouts add.
func ToolNameFromArgv0(argv0 string) string {
	base := filepath.Base(argv0)
	return strings.TrimSuffix(base, ".exe")
}

// ResolveLocalFallback checks whether tool has a workspace-local
// binary that should run instead of going through the proxy (spec
// §4.5 step 3). It returns the absolute path and true if one exists.
func ResolveLocalFallback(workspaceDir, tool string) (string, bool) {
	route, ok := routetable.Lookup(tool)
	if !ok || route.LocalFallback == nil {
		return "", false
	}
	return route.LocalFallback(workspaceDir)
}
