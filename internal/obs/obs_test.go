package obs

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestNewLoggerWritesJSONToRotatedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "toolexecd.log")

	logger := NewLogger(LogConfig{Path: path, Level: slog.LevelInfo})
	logger.Info("hello", "key", "value")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if len(data) == 0 {
		t.Fatalf("expected log output, got none")
	}
}

func TestNewTracerProviderWithoutEndpoint(t *testing.T) {
	os.Unsetenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	tp, err := NewTracerProvider(context.Background())
	if err != nil {
		t.Fatalf("NewTracerProvider: %v", err)
	}
	defer tp.Shutdown(context.Background())

	tr := Tracer("test")
	_, span := tr.Start(context.Background(), "op")
	span.End()
}
