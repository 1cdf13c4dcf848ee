package sources

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registry = make(map[string]Factory)
	mu       sync.RWMutex
)

// Register adds a source factory to the registry
func Register(kind string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	registry[kind] = factory
}

// Create creates a new adapter instance of the given kind
func Create(kind, name string, config map[string]interface{}) (Adapter, error) {
	mu.RLock()
	factory, ok := registry[kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, kind)
	}
	if config == nil {
		config = map[string]interface{}{}
	}

	adapter, err := factory(name, config)
	if err != nil {
		return nil, fmt.Errorf("%s source %q: %w", kind, name, err)
	}
	return adapter, nil
}

// List returns all registered source kinds, sorted
func List() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
