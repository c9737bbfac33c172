package routetable

import (
	"os"
	"path/filepath"
)

func joinWorkspace(workspaceDir, relPath string) string {
	return filepath.Join(workspaceDir, relPath)
}

// fileIsExecutable reports whether path exists and has at least one
// executable bit set. This is the local-binary check the shim uses
// before deciding to proxy a tool invocation through to a sidecar
// (spec §4.5 step 3).
func fileIsExecutable(path string) bool {
	fi, err := os.Stat(path)
	if err != nil || fi.IsDir() {
		return false
	}
	return fi.Mode()&0o111 != 0
}
