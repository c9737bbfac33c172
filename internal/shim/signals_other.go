//go:build !unix

package shim

import "os"

var watchedSignals = []os.Signal{os.Interrupt}

func signalName(sig os.Signal) string {
	return "INT"
}
