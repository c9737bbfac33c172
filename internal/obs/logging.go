// Package obs wires the ambient logging and tracing stack shared by
// toolexecd and the session manager: a JSON slog handler writing
// through a rotating file, and an otel SDK tracer provider with an
// optional OTLP-over-gRPC exporter. Grounded on the teacher's universal
// use of log/slog (box.go, boxer.go, mux_server.go, containers.go all
// log exclusively through slog.InfoContext/slog.ErrorContext) and its
// cmd/slogtail tool, which expects JSON-lines slog output.
package obs

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LogConfig configures the process-wide slog handler.
type LogConfig struct {
	// Path is the log file path. Empty means stderr, unrotated.
	Path string
	// MaxSizeMB is the rotation threshold (lumberjack MaxSize).
	MaxSizeMB int
	// MaxBackups is how many rotated files to retain.
	MaxBackups int
	// MaxAgeDays is how long to retain rotated files.
	MaxAgeDays int
	// Level is the minimum level logged.
	Level slog.Level
}

func (c *LogConfig) withDefaults() {
	if c.MaxSizeMB <= 0 {
		c.MaxSizeMB = 50
	}
	if c.MaxBackups <= 0 {
		c.MaxBackups = 5
	}
	if c.MaxAgeDays <= 0 {
		c.MaxAgeDays = 14
	}
}

// NewLogger builds a JSON slog.Logger per cfg and installs it as the
// process default via slog.SetDefault, returning it for callers that
// want an explicit reference too.
func NewLogger(cfg LogConfig) *slog.Logger {
	cfg.withDefaults()

	var w io.Writer = os.Stderr
	if cfg.Path != "" {
		w = &lumberjack.Logger{
			Filename:   cfg.Path,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		}
	}

	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: cfg.Level})
	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger
}
