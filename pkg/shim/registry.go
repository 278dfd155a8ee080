// Copyright (c) 2018 HyperHQ Inc.
//
// SPDX-License-Identifier: Apache-2.0
//

package shim

import "sync"

// Registry is the shim's container-id index, a plain map: a single shim
// is typically asked to manage one task by policy, but the RPC surface
// (and the Stats verb) are written against the general keyed case
// throughout.
//
// Lookup/insert/delete on the map are atomic per-key via a single
// sync.RWMutex; each Container's own fields are guarded independently
// (see container.go), so concurrent RPCs against different ids never
// contend on the same lock.
type Registry struct {
	mu         sync.RWMutex
	containers map[string]*Container
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{containers: make(map[string]*Container)}
}

// Insert adds c under c.ID if no container is already registered there.
// Reports false if the id was already taken.
func (r *Registry) Insert(c *Container) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.containers[c.ID]; exists {
		return false
	}
	r.containers[c.ID] = c
	return true
}

// Get returns the container registered under id, if any.
func (r *Registry) Get(id string) (*Container, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.containers[id]
	return c, ok
}

// Remove deletes the container registered under id, if any.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.containers, id)
}

// All returns a point-in-time snapshot of every registered container.
func (r *Registry) All() []*Container {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Container, 0, len(r.containers))
	for _, c := range r.containers {
		out = append(out, c)
	}
	return out
}

// FindByPid returns the container whose runtime-reported pid matches pid,
// consulted by the exit-event consumer to bind reaped pids back to
// containers.
func (r *Registry) FindByPid(pid int) (*Container, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.containers {
		if c.Pid() == int32(pid) {
			return c, true
		}
	}
	return nil, false
}
