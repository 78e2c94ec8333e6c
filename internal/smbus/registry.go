package smbus

import (
	"fmt"
	"sort"
	"sync"
)

// The registry tracks live adapters by name so tooling can find them. A
// driver registers its adapter as the last step of setup and unregisters
// it as the first step of teardown.
var (
	registryMu sync.Mutex
	registry   = make(map[string]Adapter)
)

// Register adds an adapter under name. Registering the same name twice is
// a caller error.
func Register(name string, a Adapter) error {
	if name == "" {
		return fmt.Errorf("smbus: adapter name is empty")
	}
	if a == nil {
		return fmt.Errorf("smbus: adapter %q is nil", name)
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[name]; exists {
		return fmt.Errorf("smbus: adapter %q already registered", name)
	}
	registry[name] = a
	return nil
}

// Unregister removes a previously registered adapter. Unknown names are
// ignored.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(registry, name)
}

// Lookup finds a registered adapter by name.
func Lookup(name string) (Adapter, bool) {
	registryMu.Lock()
	defer registryMu.Unlock()
	a, ok := registry[name]
	return a, ok
}

// Names lists the registered adapters in sorted order.
func Names() []string {
	registryMu.Lock()
	defer registryMu.Unlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
