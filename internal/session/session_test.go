package session

import (
	"context"
	"testing"
	"time"

	"github.com/banksean/aifo/internal/containerops"
)

type mockContainerOps struct {
	createFunc func(ctx context.Context, opts *containerops.RunOptions, image string, args []string) (string, error)
	startErr   error
	stopErr    error
	removeErr  error
}

func (m *mockContainerOps) Create(ctx context.Context, opts *containerops.RunOptions, image string, args []string) (string, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, opts, image, args)
	}
	return "mock-container-id", nil
}
func (m *mockContainerOps) Start(ctx context.Context, containerID string) error { return m.startErr }
func (m *mockContainerOps) Stop(ctx context.Context, opts *containerops.StopOptions, containerID string) error {
	return m.stopErr
}
func (m *mockContainerOps) Remove(ctx context.Context, containerID string) error { return m.removeErr }
func (m *mockContainerOps) Inspect(ctx context.Context, containerID string) ([]containerops.ContainerInfo, error) {
	return []containerops.ContainerInfo{{ID: containerID}}, nil
}

type mockNetworkOps struct {
	created []string
	removed []string
}

func (m *mockNetworkOps) Create(ctx context.Context, name string) error {
	m.created = append(m.created, name)
	return nil
}
func (m *mockNetworkOps) Remove(ctx context.Context, name string) error {
	m.removed = append(m.removed, name)
	return nil
}
func (m *mockNetworkOps) Exists(ctx context.Context, name string) (bool, error) { return false, nil }

type mockImageOps struct{}

func (m *mockImageOps) Present(ctx context.Context, ref string) (bool, error) { return true, nil }
func (m *mockImageOps) Pull(ctx context.Context, ref string) error           { return nil }

func TestNewSessionStartsRequestedKinds(t *testing.T) {
	cfg := Config{
		Prefix: "aifo-test",
		Kinds:  []Kind{KindRust, KindGo},
		Bind:   BindTCP,
	}
	co := &mockContainerOps{}
	no := &mockNetworkOps{}
	io := &mockImageOps{}

	s, err := New(context.Background(), cfg, co, no, io)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Cleanup(context.Background())

	if len(s.Sidecars()) != 2 {
		t.Fatalf("got %d sidecars, want 2", len(s.Sidecars()))
	}
	if _, ok := s.Sidecar(KindRust); !ok {
		t.Fatalf("expected rust sidecar")
	}
	if len(no.created) != 1 || no.created[0] != s.networkName {
		t.Fatalf("network not created as expected: %v", no.created)
	}
	if s.Endpoint.Kind != BindTCP || s.Endpoint.Addr == "" {
		t.Fatalf("endpoint not bound: %+v", s.Endpoint)
	}
}

func TestSessionCleanupIsIdempotent(t *testing.T) {
	cfg := Config{Prefix: "aifo-test", Kinds: []Kind{KindGo}}
	s, err := New(context.Background(), cfg, &mockContainerOps{}, &mockNetworkOps{}, &mockImageOps{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Cleanup(context.Background()); err != nil {
		t.Fatalf("first cleanup: %v", err)
	}
	if err := s.Cleanup(context.Background()); err != nil {
		t.Fatalf("second cleanup should be a no-op, got: %v", err)
	}
}

func TestWaitReadyCachesProbe(t *testing.T) {
	cfg := Config{Prefix: "aifo-test", Kinds: []Kind{KindGo}, ReadyTimeout: time.Second}
	s, err := New(context.Background(), cfg, &mockContainerOps{}, &mockNetworkOps{}, &mockImageOps{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Cleanup(context.Background())

	calls := 0
	probe := func(ctx context.Context, containerID string, kind Kind) error {
		calls++
		return nil
	}
	if err := s.WaitReady(context.Background(), KindGo, probe); err != nil {
		t.Fatalf("WaitReady: %v", err)
	}
	if err := s.WaitReady(context.Background(), KindGo, probe); err != nil {
		t.Fatalf("WaitReady (cached): %v", err)
	}
	if calls != 1 {
		t.Fatalf("probe called %d times, want 1 (readiness should be cached)", calls)
	}
}

func TestImageCandidatesPrecedence(t *testing.T) {
	tests := map[string]struct {
		kind     Kind
		override string
		version  string
		want     []string
	}{
		"override wins": {
			kind:     KindRust,
			override: "example.com/custom-rust:pinned",
			version:  "1.80",
			want: []string{
				"example.com/custom-rust:pinned",
				"docker.io/library/rust:1.80",
				"docker.io/library/rust:latest",
			},
		},
		"no override falls back to version then kind default": {
			kind:    KindGo,
			version: "1.22",
			want: []string{
				"docker.io/library/golang:1.22",
				"docker.io/library/golang:latest",
			},
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got := imageCandidates(tc.kind, tc.override, tc.version)
			if len(got) != len(tc.want) {
				t.Fatalf("got %v want %v", got, tc.want)
			}
			for i := range tc.want {
				if got[i] != tc.want[i] {
					t.Fatalf("got %v want %v", got, tc.want)
				}
			}
		})
	}
}
