package provider

import (
	"context"
	"strings"
	"time"

	"github.com/sony/gobreaker"
)

// Registry resolves canonical provider names to adapters and guards
// each adapter with its own circuit breaker. Adding a backend means
// registering one more adapter; nothing in the request pipeline
// changes.
type Registry struct {
	providers map[string]Provider
	breakers  map[string]*gobreaker.CircuitBreaker
}

func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{
		providers: make(map[string]Provider, len(providers)),
		breakers:  make(map[string]*gobreaker.CircuitBreaker, len(providers)),
	}
	for _, p := range providers {
		name := strings.ToLower(p.Name())
		r.providers[name] = p
		r.breakers[name] = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        p.Name(),
			MaxRequests: 3,
			Interval:    5 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
		})
	}
	return r
}

// Lookup matches on the canonical name, case-insensitively. No
// fallback across providers is attempted.
func (r *Registry) Lookup(name string) (Provider, bool) {
	p, ok := r.providers[strings.ToLower(name)]
	return p, ok
}

// Names returns the registered canonical names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}

// Execute runs the call through the provider's circuit breaker. An
// open breaker is surfaced as the provider being unavailable.
func (r *Registry) Execute(ctx context.Context, p Provider, req *Request) (*Response, error) {
	cb := r.breakers[strings.ToLower(p.Name())]
	result, err := cb.Execute(func() (interface{}, error) {
		return p.Complete(ctx, req)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, Unavailable(p.Name(), 0, err.Error())
		}
		return nil, err
	}
	return result.(*Response), nil
}
