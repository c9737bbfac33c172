// Command toolexecd is the host-side CLI that owns a session's
// lifecycle and runs the tool-exec proxy against it. Structured after
// the teacher's cmd/sand CLI (kong.CLI struct, per-verb Cmd types, a
// shared *Context threaded into each Run method).
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	kongyaml "github.com/alecthomas/kong-yaml"
	kongcompletion "github.com/jotaen/kong-completion"
	"github.com/posener/complete"

	"github.com/banksean/aifo/internal/obs"
)

// kindNames lists the sidecar kinds accepted by --kind (the same set as
// the enum tag on SessionCreateCmd.Kind), used for shell-completion
// prediction.
var kindNames = []string{"rust", "node", "python", "c-cpp", "go"}

// Context is threaded into every subcommand's Run method, mirroring
// the teacher's *Context (AppBaseDir, sber, ...).
type Context struct {
	LogLevel string
	LogFile  string
}

type CLI struct {
	LogLevel string `default:"info" enum:"debug,info,warn,error" help:"logging level (debug, info, warn, error)"`
	LogFile  string `default:"" placeholder:"<log-file-path>" help:"JSON log file path (stderr if unset)"`

	Serve      ServeCmd       `cmd:"" help:"start a session and run the tool-exec proxy against it"`
	Session    SessionCmd     `cmd:"" help:"manage tool-exec sessions"`
	Version    VersionCmd     `cmd:"" help:"print version information"`
	Completion kongcompletion.Cmd `cmd:"" help:"generate shell completion scripts"`
}

func (c *CLI) initLog() {
	var level slog.Level
	switch c.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	obs.NewLogger(obs.LogConfig{Path: c.LogFile, Level: level})
}

const description = `toolexecd runs the tool-exec bridge: a per-session proxy that
authenticates requests from an agent-side shim, routes tool invocations to
language sidecars, and gates a host-side notifications path.`

func main() {
	var cli CLI

	parser := kong.Must(&cli,
		kong.Configuration(kongyaml.Loader, "toolexecd.yaml", "~/.toolexecd.yaml"),
		kong.Description(description),
		kong.UsageOnError(),
	)
	kongcompletion.Register(parser,
		kongcompletion.WithPredictor("kind", complete.PredictSet(kindNames...)),
	)

	kctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	cli.initLog()

	err = kctx.Run(&Context{LogLevel: cli.LogLevel, LogFile: cli.LogFile})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
