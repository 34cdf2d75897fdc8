package graph

import (
	"fmt"
	"sync"
)

// Engine names used by the built-in engines.
const (
	EngineHost = "host"
	EngineOCCA = "occa"
)

// EngineFactory creates a new engine instance.
type EngineFactory func() (Engine, error)

var (
	registryMu sync.RWMutex
	engines    = make(map[string]EngineFactory)

	// Priority order for default engine selection (first available wins).
	// OCCA when a device backend is present, host as fallback.
	enginePriority = []string{EngineOCCA, EngineHost}
)

// Register registers an engine factory with the given name. This is
// typically called from init() functions in engine packages. If an engine
// with the same name is already registered, it is replaced.
func Register(name string, factory EngineFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	engines[name] = factory
}

// Unregister removes an engine from the registry. Useful for testing.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(engines, name)
}

// Available returns the registered engine names.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(engines))
	for name := range engines {
		names = append(names, name)
	}
	return names
}

// Get returns an engine instance by name.
func Get(name string) (Engine, error) {
	registryMu.RLock()
	factory, ok := engines[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrEngineNotAvailable, name)
	}
	return factory()
}

// Default returns the first engine in priority order whose factory succeeds.
func Default() (Engine, error) {
	registryMu.RLock()
	order := make([]string, 0, len(enginePriority))
	order = append(order, enginePriority...)
	registryMu.RUnlock()

	for _, name := range order {
		eng, err := Get(name)
		if err == nil {
			return eng, nil
		}
	}
	return nil, fmt.Errorf("%w: no registered engine could be created",
		ErrEngineNotAvailable)
}
