package join

import (
	"context"
	"sync"
)

// entry pairs the visible State with the handles needed to stop the
// loop that owns it. gen identifies the owning loop: a loop that has
// been replaced or reset writes through a stale gen and its writes
// are dropped, so it can never resurrect an entry.
type entry struct {
	gen    string
	state  State
	cancel context.CancelFunc
	done   chan struct{}
}

// Registry is the one shared mutable structure: friend id → join
// state. One writer (the owning loop) and any number of snapshot
// readers per key.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// begin installs a fresh entry for id, cancelling any prior loop.
// Returns the prior loop's done channel (nil if none) so the caller
// can wait for it to fully exit before the new loop proceeds.
func (r *Registry) begin(id, gen string, st State, cancel context.CancelFunc, done chan struct{}) <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()

	var prevDone chan struct{}
	if prev := r.entries[id]; prev != nil {
		if prev.cancel != nil {
			prev.cancel()
			prevDone = prev.done
		}
	}
	r.entries[id] = &entry{gen: gen, state: st, cancel: cancel, done: done}
	return prevDone
}

// set applies fn to the state for id if gen still owns the entry.
func (r *Registry) set(id, gen string, fn func(*State)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.entries[id]
	if e == nil || e.gen != gen {
		return false
	}
	fn(&e.state)
	return true
}

// finish finalizes the entry for an exiting loop: terminal status and
// loop deactivation land under one lock, so a reader seeing Cancelled
// can rely on the loop being inactive. The terminal state stays
// visible until overwritten or reset.
func (r *Registry) finish(id, gen string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.entries[id]
	if e == nil || e.gen != gen {
		return
	}
	e.state.Status = StatusCancelled
	e.cancel = nil
}

// Cancel requests the loop for id to stop. The loop observes the
// request at its next boundary and finalizes its own state. Returns
// false if no entry exists for id.
func (r *Registry) Cancel(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.entries[id]
	if e == nil {
		return false
	}
	if e.cancel != nil {
		e.cancel()
	}
	return true
}

// CancelOthers flags every active loop except winner as cancelled.
// Called when one friend reaches Joined: the user can only be on one
// server. Near-simultaneous winners resolve last-writer-wins.
func (r *Registry) CancelOthers(winner string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, e := range r.entries {
		if id == winner || e.cancel == nil {
			continue
		}
		e.cancel()
	}
}

// ResetAll cancels every loop and removes every entry. Cancellation
// flags are set before the map is cleared, and entry removal makes
// all in-flight loop writes no-ops, so a stale loop cannot restore
// state after the reset.
func (r *Registry) ResetAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.entries {
		if e.cancel != nil {
			e.cancel()
		}
	}
	clear(r.entries)
}

// Get returns a copy of the state for id.
func (r *Registry) Get(id string) (State, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.entries[id]
	if e == nil {
		return State{}, false
	}
	return e.state, true
}

// Snapshot returns a read-only copy of all entries for rendering.
func (r *Registry) Snapshot() map[string]State {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]State, len(r.entries))
	for id, e := range r.entries {
		out[id] = e.state
	}
	return out
}

// ActiveCount returns the number of loops that have not exited yet.
func (r *Registry) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, e := range r.entries {
		if e.cancel != nil {
			n++
		}
	}
	return n
}
