package reviewer

import (
	"fmt"
	"sync"
)

// Config holds the settings a factory needs to build one reviewer.
type Config struct {
	Name        string
	Weight      float64
	Specialties []string
	Model       string
	Options     map[string]string
}

// Factory is a constructor function that creates a new Reviewer instance.
type Factory func(cfg Config) (Reviewer, error)

var (
	mu        sync.RWMutex
	factories = make(map[string]Factory)
)

// Register makes a reviewer backend factory available by backend name.
// It is typically called from an init() function in the adapter package.
func Register(backend string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()

	if _, exists := factories[backend]; exists {
		panic(fmt.Sprintf("reviewer: duplicate registration for %q", backend))
	}
	factories[backend] = factory
}

// New creates a new Reviewer using the factory registered for backend.
func New(backend string, cfg Config) (Reviewer, error) {
	mu.RLock()
	factory, ok := factories[backend]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("reviewer: unknown backend %q", backend)
	}
	return factory(cfg)
}

// Backends returns the names of all registered reviewer backends.
func Backends() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	return names
}
