package dashboard

import (
	"sort"
	"sync"
)

// Registry is an in-process ComponentRegistry, used when panelsync is
// its own shell.
type Registry struct {
	mu    sync.Mutex
	names map[string]int
}

func NewRegistry() *Registry {
	return &Registry{names: make(map[string]int)}
}

// Register adds name. The returned function removes it once.
func (r *Registry) Register(name string) func() {
	r.mu.Lock()
	r.names[name]++
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			if r.names[name]--; r.names[name] <= 0 {
				delete(r.names, name)
			}
		})
	}
}

// Registered returns the registered component names, sorted.
func (r *Registry) Registered() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.names))
	for name := range r.names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
