package shim

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"strings"

	"github.com/banksean/aifo/internal/wire"
)

// ExitTransportFailure is returned to the OS whenever the shim cannot
// reach the proxy at all (spec §4.5 step 6, §4.4 propagation policy).
const ExitTransportFailure = 86

// Config bundles everything one shim invocation needs; cmd/toolexec-shim
// constructs this from argv and the environment.
type Config struct {
	Endpoint     Endpoint
	Token        string
	Tool         string
	Args         []string
	WorkspaceDir string
	Stdin        io.Reader
	Stdout       io.Writer
	Stderr       io.Writer
	DeadlineMS   int
}

// Run executes one shim invocation end to end and returns the process
// exit code. It never panics on transport failure; it returns
// ExitTransportFailure instead, per spec §4.4's propagation policy.
func Run(ctx context.Context, cfg Config) int {
	if path, ok := ResolveLocalFallback(cfg.WorkspaceDir, cfg.Tool); ok {
		return runLocal(ctx, path, cfg)
	}

	path := "/exec"
	if cfg.Tool == NotifyTool {
		path = "/notify"
	}
	return postAndStream(ctx, path, cfg)
}

// runLocal execs a workspace-local binary directly, bypassing the
// proxy entirely (spec §4.5 step 3).
func runLocal(ctx context.Context, path string, cfg Config) int {
	cmd := exec.CommandContext(ctx, path, cfg.Args...)
	cmd.Stdin = cfg.Stdin
	cmd.Stdout = cfg.Stdout
	cmd.Stderr = cfg.Stderr
	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return exitErr.ExitCode()
		}
		return ExitTransportFailure
	}
	return 0
}

func postAndStream(ctx context.Context, path string, cfg Config) int {
	client := NewHTTPClient(cfg.Endpoint)

	extra := map[string]string{"stream": "v2"}
	if cfg.DeadlineMS > 0 {
		extra["deadline_ms"] = strconv.Itoa(cfg.DeadlineMS)
	}
	form := encodeForm(cfg.Tool, cfg.Args, extra)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.Endpoint.baseURL()+path, strings.NewReader(form))
	if err != nil {
		reportTransportError(cfg, err)
		return ExitTransportFailure
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Aifo-Proto", "2")
	if cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.Token)
	}

	resp, err := client.Do(req)
	if err != nil {
		reportTransportError(cfg, err)
		return ExitTransportFailure
	}
	defer resp.Body.Close()

	execID := resp.Header.Get("X-Aifo-Exec-Id")
	stopSignals := forwardSignals(ctx, cfg, execID)
	defer stopSignals()

	if resp.StatusCode >= 400 && resp.StatusCode != 504 && resp.StatusCode != 408 {
		io.Copy(cfg.Stderr, resp.Body)
		return exitCodeFromHeader(resp, ExitTransportFailure)
	}

	if strings.Contains(resp.Header.Get("Content-Type"), "application/octet-stream") {
		demuxStreaming(resp.Body, cfg.Stdout, cfg.Stderr)
		// The proxy can't know the child's real exit code until after
		// it has already written the 200 response header, so a v2
		// stream carries it as an HTTP/1.1 chunked trailer instead of
		// a regular header. net/http only populates resp.Trailer once
		// the body has been fully read, which demuxStreaming just did.
		return exitCodeFromTrailer(resp, ExitTransportFailure)
	}
	io.Copy(cfg.Stdout, resp.Body)

	return exitCodeFromHeader(resp, ExitTransportFailure)
}

func exitCodeFromTrailer(resp *http.Response, fallback int) int {
	v := resp.Trailer.Get("X-Exit-Code")
	if v == "" {
		return exitCodeFromHeader(resp, fallback)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func exitCodeFromHeader(resp *http.Response, fallback int) int {
	v := resp.Header.Get("X-Exit-Code")
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func demuxStreaming(body io.Reader, stdout, stderr io.Writer) {
	for {
		s, payload, err := wire.DecodeFrame(body)
		if err != nil {
			return
		}
		if s == wire.StreamStdout {
			stdout.Write(payload)
		} else {
			stderr.Write(payload)
		}
	}
}

func reportTransportError(cfg Config, err error) {
	if cfg.Stderr != nil {
		io.WriteString(cfg.Stderr, "toolexec: "+err.Error()+"\n")
	}
}

// forwardSignals installs handlers for the signals named in
// watchedSignals and relays each one to the proxy as a /signal request
// against execID, until the returned stop func is called (spec §4.5
// step 5). When execID is empty (the response hasn't arrived with an
// id yet, or local fallback is in effect), signals are simply not
// forwarded anywhere; the OS default disposition still applies to this
// process since signal.Notify does not block delivery to the process
// group.
func forwardSignals(ctx context.Context, cfg Config, execID string) func() {
	if execID == "" {
		return func() {}
	}
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, watchedSignals...)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case sig := <-ch:
				postSignal(ctx, cfg, execID, signalName(sig))
			case <-done:
				return
			}
		}
	}()
	return func() {
		signal.Stop(ch)
		close(done)
	}
}

func postSignal(ctx context.Context, cfg Config, execID, sigName string) {
	client := NewHTTPClient(cfg.Endpoint)
	form := "exec_id=" + execID + "&signal=" + sigName
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.Endpoint.baseURL()+"/signal", bytes.NewBufferString(form))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Aifo-Proto", "2")
	if cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.Token)
	}
	resp, err := client.Do(req)
	if err != nil {
		return
	}
	resp.Body.Close()
}
