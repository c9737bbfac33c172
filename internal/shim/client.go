// Package shim implements the agent-side multi-headed executable logic
// (spec §4.5): argv[0] dispatch, local-fallback resolution, and the
// HTTP client that talks to the tool-exec proxy. Factored out of
// cmd/toolexec-shim for testability, grounded on the teacher's
// MuxClient (mux_client.go), which also wraps a net/http.Client around
// a custom-dialed local transport for a daemon it doesn't otherwise
// control.
package shim

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
)

// Endpoint describes where the proxy listens, mirroring
// session.Endpoint without importing the session package (the shim
// runs inside the agent container and never touches session/container
// state directly).
type Endpoint struct {
	Scheme string // "http" or "unix"
	Addr   string // host:port for http, socket path for unix
}

// ParseEndpoint parses AIFO_TOOLEEXEC_URL, e.g. "http://127.0.0.1:9000"
// or "unix:///run/aifo/toolexec.sock".
func ParseEndpoint(raw string) (Endpoint, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Endpoint{}, fmt.Errorf("shim: parse endpoint: %w", err)
	}
	switch u.Scheme {
	case "http":
		return Endpoint{Scheme: "http", Addr: u.Host}, nil
	case "unix":
		path := u.Path
		if path == "" {
			path = u.Opaque
		}
		return Endpoint{Scheme: "unix", Addr: path}, nil
	default:
		return Endpoint{}, fmt.Errorf("shim: unsupported endpoint scheme %q", u.Scheme)
	}
}

// NewHTTPClient returns an http.Client dialed against ep, reusing a
// single connection per request (no keep-alive pooling needed for a
// one-shot CLI invocation).
func NewHTTPClient(ep Endpoint) *http.Client {
	dial := func(ctx context.Context, network, addr string) (net.Conn, error) {
		if ep.Scheme == "unix" {
			return (&net.Dialer{}).DialContext(ctx, "unix", ep.Addr)
		}
		return (&net.Dialer{}).DialContext(ctx, "tcp", ep.Addr)
	}
	return &http.Client{
		Transport: &http.Transport{
			DialContext:         dial,
			DisableKeepAlives:   true,
			IdleConnTimeout:     0,
			TLSHandshakeTimeout: 0,
		},
		Timeout: 0, // per-request deadlines come from ctx, not a blanket client timeout
	}
}

// baseURL returns the URL prefix postAndStream and postSignal send to; for unix
// sockets the host is a fixed placeholder since the real addressing
// happens in the dialer.
func (ep Endpoint) baseURL() string {
	if ep.Scheme == "unix" {
		return "http://unix"
	}
	return "http://" + ep.Addr
}

func encodeForm(tool string, args []string, extra map[string]string) string {
	var sb strings.Builder
	sb.WriteString("tool=")
	sb.WriteString(url.QueryEscape(tool))
	for _, a := range args {
		sb.WriteString("&arg=")
		sb.WriteString(url.QueryEscape(a))
	}
	for k, v := range extra {
		sb.WriteByte('&')
		sb.WriteString(url.QueryEscape(k))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(v))
	}
	return sb.String()
}
