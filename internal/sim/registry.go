package sim

import "sync"

// Registry hands out live controllers by story name, building them on first
// use. Controllers stay resident for the life of the process; there is no
// eviction, a dropped story is simply rebuilt from its record next time.
type Registry struct {
	mu        sync.Mutex
	instances map[string]*Controller
	build     func(name string) (*Controller, error)
}

// NewRegistry creates a registry backed by the given builder.
func NewRegistry(build func(name string) (*Controller, error)) *Registry {
	return &Registry{
		instances: make(map[string]*Controller),
		build:     build,
	}
}

// Get returns the live controller for a story, building it on first use.
// Concurrent callers for the same name get the same instance.
func (r *Registry) Get(name string) (*Controller, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.instances[name]; ok {
		return c, nil
	}
	c, err := r.build(name)
	if err != nil {
		return nil, err
	}
	r.instances[name] = c
	return c, nil
}

// Drop removes a story's live controller, if any. Used when the story is
// deleted or replaced by an import.
func (r *Registry) Drop(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.instances, name)
}
