// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package coordinator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

var (
	ErrFlowNotFound    = errors.New("flow not found")
	ErrDuplicateFlow   = errors.New("duplicate flow id")
	ErrRegistryStopped = errors.New("registry is shutting down")
)

// DefaultIdleTTL is how long an untouched flow stays registered.
const DefaultIdleTTL = 30 * time.Minute

type entry struct {
	c    *Coordinator
	seen time.Time
}

// Registry holds the live flows of one server process. Coordinators are
// never shared between flows.
type Registry struct {
	mu      sync.Mutex
	flows   map[string]*entry
	stopped bool
	idleTTL time.Duration
	now     func() time.Time

	// retired flows whose whitelist registration may still be running.
	// Add is only called under mu while !stopped.
	draining sync.WaitGroup
}

type RegistryOption func(*Registry)

// WithIdleTTL evicts flows not touched for d. Zero disables eviction.
func WithIdleTTL(d time.Duration) RegistryOption {
	return func(r *Registry) { r.idleTTL = d }
}

func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		flows:   make(map[string]*entry),
		idleTTL: DefaultIdleTTL,
		now:     time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Add registers c under its flow ID. Duplicate IDs are rejected.
func (r *Registry) Add(c *Coordinator) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return ErrRegistryStopped
	}
	if _, exists := r.flows[c.ID()]; exists {
		return ErrDuplicateFlow
	}
	r.flows[c.ID()] = &entry{c: c, seen: r.now()}
	return nil
}

// Get returns the flow and marks it as recently used.
func (r *Registry) Get(id string) (*Coordinator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.flows[id]
	if !ok {
		return nil, ErrFlowNotFound
	}
	e.seen = r.now()
	return e.c, nil
}

// Remove unregisters and returns the flow without closing it.
func (r *Registry) Remove(id string) (*Coordinator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.flows[id]
	if !ok {
		return nil, ErrFlowNotFound
	}
	delete(r.flows, id)
	return e.c, nil
}

// retireLocked unregisters id and reserves a drain slot for it. Must hold mu.
func (r *Registry) retireLocked(id string) (*Coordinator, bool) {
	e, ok := r.flows[id]
	if !ok {
		return nil, false
	}
	delete(r.flows, id)
	r.draining.Add(1)
	return e.c, true
}

func (r *Registry) drain(c *Coordinator) {
	go func() {
		defer r.draining.Done()
		c.Wait()
	}()
}

// Dismiss removes the flow and closes it. Its background work is still
// waited for by Shutdown.
func (r *Registry) Dismiss(id string) error {
	r.mu.Lock()
	c, ok := r.retireLocked(id)
	r.mu.Unlock()
	if !ok {
		return ErrFlowNotFound
	}
	c.Close()
	r.drain(c)
	return nil
}

// Complete removes a flow whose request was sent. The flow is not closed, so
// no dismissal is recorded; its whitelist registration is still drained.
func (r *Registry) Complete(id string) error {
	r.mu.Lock()
	c, ok := r.retireLocked(id)
	r.mu.Unlock()
	if !ok {
		return ErrFlowNotFound
	}
	r.drain(c)
	return nil
}

// EvictIdle dismisses every flow not touched within the idle TTL and
// returns how many were evicted.
func (r *Registry) EvictIdle() int {
	if r.idleTTL <= 0 {
		return 0
	}
	r.mu.Lock()
	cutoff := r.now().Add(-r.idleTTL)
	var idle []*Coordinator
	for id, e := range r.flows {
		if e.seen.Before(cutoff) {
			if c, ok := r.retireLocked(id); ok {
				idle = append(idle, c)
			}
		}
	}
	r.mu.Unlock()

	for _, c := range idle {
		c.Close()
		r.drain(c)
	}
	return len(idle)
}

// Run evicts idle flows periodically until ctx is done.
func (r *Registry) Run(ctx context.Context) {
	if r.idleTTL <= 0 {
		return
	}
	interval := max(r.idleTTL/4, time.Second)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.EvictIdle(); n > 0 {
				slog.Info("evicted idle flows", "count", n, "live", r.Len())
			}
		}
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.flows)
}

// Shutdown dismisses every flow and waits for their background work,
// including in-flight submits. Later Adds are rejected.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	r.stopped = true
	flows := make([]*Coordinator, 0, len(r.flows))
	for id, e := range r.flows {
		flows = append(flows, e.c)
		delete(r.flows, id)
	}
	r.mu.Unlock()

	for _, c := range flows {
		c.Close()
	}
	for _, c := range flows {
		c.Wait()
	}
	r.draining.Wait()
}
