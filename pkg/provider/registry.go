package provider

import (
	"fmt"
	"sort"
	"sync"
)

// Factory constructs a Caller from its configuration.
type Factory func(cfg Config) (Caller, error)

// Registry maps provider names to factories. It replaces a global mutable
// singleton with an explicit, lock-guarded value: populate at init, treat
// as append-mostly afterwards. The orchestrator never consults the registry
// at decision time; it is handed an explicit ordered adapter list built
// from it.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns a registry pre-populated with the built-in providers.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.MustRegister("openai", func(cfg Config) (Caller, error) { return NewOpenAICaller(cfg) })
	r.MustRegister("anthropic", func(cfg Config) (Caller, error) { return NewAnthropicCaller(cfg) })
	r.MustRegister("llama", func(cfg Config) (Caller, error) { return NewLlamaCaller(cfg) })
	return r
}

// Register adds a factory under name. Registering the same name twice is an
// error; custom providers must pick distinct names.
func (r *Registry) Register(name string, factory Factory) error {
	if name == "" || factory == nil {
		return fmt.Errorf("provider: registry requires a name and a factory")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("provider: %q already registered", name)
	}
	r.factories[name] = factory
	return nil
}

// MustRegister is Register for init-time wiring; it panics on conflict.
func (r *Registry) MustRegister(name string, factory Factory) {
	if err := r.Register(name, factory); err != nil {
		panic(err)
	}
}

// Build constructs a Caller for name from cfg.
func (r *Registry) Build(name string, cfg Config) (Caller, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("provider: unknown provider %q", name)
	}
	return factory(cfg)
}

// Names returns the registered provider names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
