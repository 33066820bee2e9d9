package strategy

import (
	"fmt"
	"sync"
)

// Registry manages a named collection of strategies. Registration order is
// preserved and is the default run order. It is safe for concurrent use.
type Registry struct {
	strategies map[string]Strategy
	order      []string
	mu         sync.RWMutex
}

// NewRegistry returns an empty, ready-to-use Registry.
func NewRegistry() *Registry {
	return &Registry{
		strategies: make(map[string]Strategy),
	}
}

// Register adds a strategy under its own name. Registering the same name
// twice is an error.
func (r *Registry) Register(s Strategy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := s.Name()
	if _, ok := r.strategies[name]; ok {
		return fmt.Errorf("strategy %q: already registered", name)
	}
	r.strategies[name] = s
	r.order = append(r.order, name)
	return nil
}

// Get retrieves a strategy by name. It returns an error when the name is not
// registered.
func (r *Registry) Get(name string) (Strategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.strategies[name]
	if !ok {
		return nil, fmt.Errorf("strategy %q: not registered", name)
	}
	return s, nil
}

// List returns the names of all registered strategies in registration order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Ordered resolves names into strategies, preserving the given order. An
// empty list selects every registered strategy in registration order.
func (r *Registry) Ordered(names []string) ([]Strategy, error) {
	if len(names) == 0 {
		names = r.List()
	}
	seen := make(map[string]bool, len(names))
	out := make([]Strategy, 0, len(names))
	for _, n := range names {
		if seen[n] {
			return nil, fmt.Errorf("strategy %q: listed twice", n)
		}
		seen[n] = true
		s, err := r.Get(n)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
