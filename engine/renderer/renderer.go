package renderer

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

type FactoryOptions struct {
	ApplicationName string
	// InstanceExtensions requested by the window system.
	InstanceExtensions []string
	Validation         bool
}

type FactoryConstructor func(opts FactoryOptions) (Factory, error)

var (
	backendsMu sync.RWMutex
	backends   = map[string]FactoryConstructor{}
)

// Register makes a backend available by name. Backends register themselves
// from an init function.
func Register(name string, ctor FactoryConstructor) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	if ctor == nil {
		panic("renderer: Register backend is nil")
	}
	if _, dup := backends[name]; dup {
		panic("renderer: Register called twice for backend " + name)
	}
	backends[name] = ctor
}

func NewFactory(name string, opts FactoryOptions) (Factory, error) {
	backendsMu.RLock()
	ctor, ok := backends[strings.ToLower(name)]
	backendsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown renderer backend `%s` (available: %s)", name, strings.Join(Backends(), ", "))
	}
	return ctor(opts)
}

func Backends() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	names := make([]string, 0, len(backends))
	for n := range backends {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
