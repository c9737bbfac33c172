//go:build unix

package shim

import (
	"os"
	"syscall"
)

// watchedSignals are the signals the shim forwards to the proxy as
// /signal requests (spec §4.5 step 5).
var watchedSignals = []os.Signal{syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP}

func signalName(sig os.Signal) string {
	switch sig {
	case syscall.SIGINT:
		return "INT"
	case syscall.SIGTERM:
		return "TERM"
	case syscall.SIGHUP:
		return "HUP"
	default:
		return sig.String()
	}
}
