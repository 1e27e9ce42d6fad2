package resilience

import (
	"sort"
	"sync"
)

// Registry hands out one breaker per name, so each upstream source and
// sport trips independently.
type Registry struct {
	mu       sync.Mutex
	cfg      BreakerConfig
	onChange StateChangeFunc
	breakers map[string]*CircuitBreaker
}

func NewRegistry(cfg BreakerConfig, onChange StateChangeFunc) *Registry {
	return &Registry{
		cfg:      cfg,
		onChange: onChange,
		breakers: make(map[string]*CircuitBreaker),
	}
}

func (r *Registry) Get(name string) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if breaker, ok := r.breakers[name]; ok {
		return breaker
	}
	breaker := NewCircuitBreaker(name, r.cfg)
	if r.onChange != nil {
		breaker.onChange = r.onChange
	}
	r.breakers[name] = breaker
	return breaker
}

// States snapshots every breaker created so far, keyed by name.
func (r *Registry) States() map[string]CircuitState {
	r.mu.Lock()
	names := make([]string, 0, len(r.breakers))
	for name := range r.breakers {
		names = append(names, name)
	}
	r.mu.Unlock()
	sort.Strings(names)

	out := make(map[string]CircuitState, len(names))
	for _, name := range names {
		out[name] = r.Get(name).State()
	}
	return out
}
