package proxy

import (
	"context"
	"testing"
	"time"

	"github.com/banksean/aifo/internal/execchild"
)

func TestRegistryTerminateAllEmpty(t *testing.T) {
	r := NewRegistry()
	r.TerminateAll(context.Background()) // must not block or panic
}

// TestRegistryTerminateAllReapsKnownChild is the regression test for
// session cleanup's drain step (spec §4.3): terminating a registered
// child must not panic or hang even once the child has already exited
// on its own, since TerminateAll can race the child's natural exit.
func TestRegistryTerminateAllReapsKnownChild(t *testing.T) {
	r := NewRegistry()
	rc, _, _, err := execchild.SpawnAndCapture(context.Background(), []string{"sh", "-c", "exit 0"}, nil, 5*time.Second)
	if err != nil {
		t.Fatalf("SpawnAndCapture: %v", err)
	}
	id := r.Register(rc)

	done := make(chan struct{})
	go func() {
		defer close(done)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		r.TerminateAll(ctx)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("TerminateAll did not return in time")
	}

	if _, ok := r.Lookup(id); !ok {
		t.Fatal("TerminateAll must not remove the registry entry itself")
	}
}
