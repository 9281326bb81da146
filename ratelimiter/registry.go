package ratelimiter

import "sync"

// Registry manages rate limiters keyed by model name.
type Registry interface {
	Get(model string) (Limiter, bool)
	Set(model string, limiter Limiter)
}

type mapRegistry struct {
	registry map[string]Limiter
	mu       sync.RWMutex
}

// NewRegistry creates a new in-memory rate limiter registry.
func NewRegistry() Registry {
	return &mapRegistry{
		registry: make(map[string]Limiter),
	}
}

func (r *mapRegistry) Get(model string) (Limiter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	limiter, ok := r.registry[model]
	return limiter, ok
}

func (r *mapRegistry) Set(model string, limiter Limiter) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if limiter == nil {
		delete(r.registry, model)
		return
	}
	r.registry[model] = limiter
}
