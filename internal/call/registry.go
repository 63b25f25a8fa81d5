package call

import "sync"

// Registry is the default closure table for hosts that do not bring their
// own resolver: integer keys map to staged closures, and lookups happen
// fresh on every trampoline invocation. Dropping a key immediately expires
// any trampoline built over it.
type Registry struct {
	mu   sync.Mutex
	next int64
	m    map[int64]Boxed
}

// NewRegistry returns an empty registry. Keys start at 1; 0 never resolves.
func NewRegistry() *Registry {
	return &Registry{next: 1, m: make(map[int64]Boxed)}
}

// Register stores b and returns its key.
func (r *Registry) Register(b Boxed) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := r.next
	r.next++
	r.m[key] = b
	return key
}

// Drop forgets the closure under key. Safe for unknown keys.
func (r *Registry) Drop(key int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.m, key)
}

// Resolve looks the key up. The second result is false once dropped.
func (r *Registry) Resolve(key int64) (Boxed, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.m[key]
	return b, ok
}
