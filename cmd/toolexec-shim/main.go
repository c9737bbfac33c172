// Command toolexec-shim is the small executable deposited first on the
// agent container's PATH (spec §4.5). It is multi-headed: argv[0]'s
// basename names the tool it requests on the caller's behalf, and a
// fixed "notifications-cmd" head targets /notify instead of /exec.
package main

import (
	"context"
	"os"
	"strconv"

	"github.com/banksean/aifo/internal/shim"
)

func main() {
	os.Exit(run())
}

func run() int {
	tool := shim.ToolNameFromArgv0(os.Args[0])
	args := os.Args[1:]

	ep, err := shim.ParseEndpoint(os.Getenv("AIFO_TOOLEEXEC_URL"))
	if err != nil {
		os.Stderr.WriteString("toolexec-shim: " + err.Error() + "\n")
		return shim.ExitTransportFailure
	}

	workspaceDir, err := os.Getwd()
	if err != nil {
		workspaceDir = "."
	}

	deadlineMS := 0
	if v := os.Getenv("AIFO_TOOLEEXEC_DEADLINE_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			deadlineMS = n
		}
	}

	cfg := shim.Config{
		Endpoint:     ep,
		Token:        os.Getenv("AIFO_TOOLEEXEC_TOKEN"),
		Tool:         tool,
		Args:         args,
		WorkspaceDir: workspaceDir,
		Stdin:        os.Stdin,
		Stdout:       os.Stdout,
		Stderr:       os.Stderr,
		DeadlineMS:   deadlineMS,
	}

	return shim.Run(context.Background(), cfg)
}
