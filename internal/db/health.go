package db

import (
	"context"
	"sort"
	"sync"
)

// Check reports whether a dependency is reachable.
type Check func(ctx context.Context) error

// Health runs named checks concurrently.
type Health struct {
	checks map[string]Check
}

func NewHealth() *Health { return &Health{checks: map[string]Check{}} }

func (h *Health) Add(name string, c Check) *Health {
	h.checks[name] = c
	return h
}

// Run returns the failing checks by name; an empty map means healthy.
func (h *Health) Run(ctx context.Context) map[string]string {
	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		failed = map[string]string{}
	)
	for name, c := range h.checks {
		wg.Add(1)
		go func(name string, c Check) {
			defer wg.Done()
			if err := c(ctx); err != nil {
				mu.Lock()
				failed[name] = err.Error()
				mu.Unlock()
			}
		}(name, c)
	}
	wg.Wait()

	return failed
}

func (h *Health) Names() []string {
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
