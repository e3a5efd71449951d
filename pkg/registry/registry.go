// Package registry tracks live connection workers under a single mutex,
// mirroring the original acceptor's mutex-guarded client vector (C10).
package registry

import "sync"

// Registry is a mutex-protected set of live workers, used to hand out
// connection ids and to count live connections for diagnostics; nothing
// waits on it at shutdown. The zero value is ready to use.
type Registry struct {
	mu      sync.Mutex
	workers map[uint64]struct{}
	nextID  uint64
}

// Insert registers a new worker and returns the id assigned to it.
func (r *Registry) Insert() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.workers == nil {
		r.workers = make(map[uint64]struct{})
	}
	r.nextID++
	id := r.nextID
	r.workers[id] = struct{}{}
	return id
}

// Remove deregisters a worker by id. Safe to call more than once.
func (r *Registry) Remove(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.workers, id)
}

// Len reports the number of currently registered workers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.workers)
}
