package shim

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/banksean/aifo/internal/wire"
)

func TestToolNameFromArgv0(t *testing.T) {
	cases := map[string]string{
		"/usr/local/bin/cargo":    "cargo",
		"tsc":                     "tsc",
		"/opt/shim/node.exe":      "node",
		"notifications-cmd":       "notifications-cmd",
	}
	for in, want := range cases {
		if got := ToolNameFromArgv0(in); got != want {
			t.Errorf("ToolNameFromArgv0(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestResolveLocalFallbackFound(t *testing.T) {
	dir := t.TempDir()
	binDir := filepath.Join(dir, "node_modules", ".bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		t.Fatal(err)
	}
	binPath := filepath.Join(binDir, "tsc")
	if err := os.WriteFile(binPath, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	path, ok := ResolveLocalFallback(dir, "tsc")
	if !ok || path != binPath {
		t.Fatalf("ResolveLocalFallback = %q, %v; want %q, true", path, ok, binPath)
	}
}

func TestResolveLocalFallbackNoRoute(t *testing.T) {
	if _, ok := ResolveLocalFallback(t.TempDir(), "cobol"); ok {
		t.Fatalf("expected no fallback for unknown tool")
	}
}

func TestPostAndStreamBuffered(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/exec" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("X-Exit-Code", "0")
		w.WriteHeader(200)
		w.Write([]byte("hello\n"))
	}))
	defer srv.Close()

	ep, err := ParseEndpoint(srv.URL)
	if err != nil {
		t.Fatalf("ParseEndpoint: %v", err)
	}

	var stdout, stderr bytes.Buffer
	cfg := Config{
		Endpoint: ep,
		Token:    "tok",
		Tool:     "go",
		Args:     []string{"build"},
		Stdout:   &stdout,
		Stderr:   &stderr,
	}
	code := Run(context.Background(), cfg)
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	if stdout.String() != "hello\n" {
		t.Fatalf("stdout = %q", stdout.String())
	}
}

func TestPostAndStreamV2Demux(t *testing.T) {
	// X-Exit-Code arrives as a genuine HTTP/1.1 chunked trailer here,
	// matching how the real proxy's execStreamV2 sends it (the exit
	// code isn't known until after the 200 header is already on the
	// wire). Setting it as a plain header before WriteHeader would
	// pass even if the shim only ever looked at resp.Header, masking
	// the bug where v2 responses never surfaced the child's real exit
	// code.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Trailer", "X-Exit-Code")
		w.WriteHeader(200)
		w.Write(wire.EncodeFrame(wire.StreamStdout, []byte("out-chunk")))
		w.Write(wire.EncodeFrame(wire.StreamStderr, []byte("err-chunk")))
		w.Header().Set("X-Exit-Code", "3")
	}))
	defer srv.Close()

	ep, _ := ParseEndpoint(srv.URL)
	var stdout, stderr bytes.Buffer
	cfg := Config{Endpoint: ep, Tool: "go", Stdout: &stdout, Stderr: &stderr}
	code := Run(context.Background(), cfg)
	if code != 3 {
		t.Fatalf("exit code = %d, want 3", code)
	}
	if stdout.String() != "out-chunk" || stderr.String() != "err-chunk" {
		t.Fatalf("stdout=%q stderr=%q", stdout.String(), stderr.String())
	}
}

func TestRunTransportFailureExits86(t *testing.T) {
	ep := Endpoint{Scheme: "http", Addr: "127.0.0.1:1"} // nothing listening
	var stdout, stderr bytes.Buffer
	cfg := Config{Endpoint: ep, Tool: "go", Stdout: &stdout, Stderr: &stderr}
	code := Run(context.Background(), cfg)
	if code != ExitTransportFailure {
		t.Fatalf("exit code = %d, want %d", code, ExitTransportFailure)
	}
}
