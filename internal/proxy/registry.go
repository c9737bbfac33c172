package proxy

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/banksean/aifo/internal/execchild"
)

// Registry is the process-wide exec-id → RunningChild map (spec §3
// "Exec registry"). An entry exists only while the child is alive.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*execchild.RunningChild
}

// NewRegistry returns an empty exec registry.
func NewRegistry() *Registry {
	return &Registry{entries: map[string]*execchild.RunningChild{}}
}

// Register mints a new exec_id for rc and stores it.
func (r *Registry) Register(rc *execchild.RunningChild) string {
	id := uuid.NewString()
	r.mu.Lock()
	r.entries[id] = rc
	r.mu.Unlock()
	return id
}

// Lookup returns the RunningChild for execID, if present.
func (r *Registry) Lookup(execID string) (*execchild.RunningChild, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rc, ok := r.entries[execID]
	return rc, ok
}

// Remove deletes execID from the registry. Safe to call even if absent.
func (r *Registry) Remove(execID string) {
	r.mu.Lock()
	delete(r.entries, execID)
	r.mu.Unlock()
}

// TerminateAll cooperatively terminates every exec child still
// registered, right away: it does not first wait for any of them to
// finish on its own. It snapshots the registry first
// so Terminate's own bookkeeping (the handler's deferred Remove) can't
// deadlock against this call's lock.
func (r *Registry) TerminateAll(ctx context.Context) {
	r.mu.Lock()
	rcs := make([]*execchild.RunningChild, 0, len(r.entries))
	for _, rc := range r.entries {
		rcs = append(rcs, rc)
	}
	r.mu.Unlock()

	for _, rc := range rcs {
		rc.Terminate(ctx)
	}
}
