// Package launchgate counts in-flight launch workers so that a shared
// library host can refuse to unload while background work is outstanding.
// It is a deliberate process-scoped singleton: there is one module instance
// and one unload gate.
package launchgate

import (
	"context"
	"sync"
)

// Gate tracks in-flight workers. The zero value is ready to use.
type Gate struct {
	mu    sync.Mutex
	count int
	zero  chan struct{} // closed when count drops to zero, lazily rebuilt
}

// Add registers a worker. It must be called before the worker goroutine is
// spawned.
func (g *Gate) Add() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.count++
}

// Done unregisters a worker. It must be the very last action of the worker
// goroutine.
func (g *Gate) Done() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.count == 0 {
		panic("launchgate: Done without matching Add")
	}
	g.count--
	if g.count == 0 && g.zero != nil {
		close(g.zero)
		g.zero = nil
	}
}

// Active returns the number of in-flight workers.
func (g *Gate) Active() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.count
}

// Wait blocks until no workers are in flight or the context expires.
func (g *Gate) Wait(ctx context.Context) error {
	g.mu.Lock()
	if g.count == 0 {
		g.mu.Unlock()
		return nil
	}
	if g.zero == nil {
		g.zero = make(chan struct{})
	}
	zero := g.zero
	g.mu.Unlock()

	select {
	case <-zero:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
