package main

import (
	"fmt"

	"github.com/banksean/aifo/version"
)

// VersionCmd prints build version information, grounded on the
// teacher's cmd/sand VersionCmd.
type VersionCmd struct{}

func (c *VersionCmd) Run(cctx *Context) error {
	v := version.Get()
	fmt.Printf("Git Repository: %s\n", v.GitRepo)
	fmt.Printf("Git Branch: %s\n", v.GitBranch)
	fmt.Printf("Git Commit: %s\n", v.GitCommit)
	fmt.Printf("Build Time: %s\n", v.BuildTime)
	return nil
}
