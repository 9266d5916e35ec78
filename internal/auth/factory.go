package auth

import (
	"fmt"
	"sync"
)

// ProviderFactory builds a ProviderClient from its configuration. Each
// concrete provider package exposes one; construction validates the
// provider-specific required fields and performs no network I/O.
type ProviderFactory func(cfg ProviderConfig) (ProviderClient, error)

// Factory resolves provider names to configured clients. It is the only
// component allowed to switch on provider names, so the orchestrator stays
// provider-agnostic. Factories are registered once at startup (explicit
// dependency injection, no global registries).
type Factory struct {
	mu        sync.RWMutex
	factories map[string]ProviderFactory
	configs   map[string]ProviderConfig
	clients   map[string]ProviderClient
}

// NewFactory creates an empty provider factory.
func NewFactory() *Factory {
	return &Factory{
		factories: make(map[string]ProviderFactory),
		configs:   make(map[string]ProviderConfig),
		clients:   make(map[string]ProviderClient),
	}
}

// Register registers a provider constructor with its startup configuration.
func (f *Factory) Register(name string, cfg ProviderConfig, factory ProviderFactory) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.factories[name] = factory
	f.configs[name] = cfg
}

// Client returns the configured client for the provider name. Instances are
// cached after first construction. Unknown names yield
// ErrProviderNotSupported; incomplete configuration yields a *ConfigError.
func (f *Factory) Client(name string) (ProviderClient, error) {
	f.mu.RLock()
	if c, ok := f.clients[name]; ok {
		f.mu.RUnlock()
		return c, nil
	}
	f.mu.RUnlock()

	f.mu.Lock()
	defer f.mu.Unlock()

	// Double-check after acquiring write lock
	if c, ok := f.clients[name]; ok {
		return c, nil
	}

	factory, ok := f.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotSupported, name)
	}

	client, err := factory(f.configs[name])
	if err != nil {
		return nil, err
	}

	f.clients[name] = client
	return client, nil
}

// Available returns the registered provider names.
func (f *Factory) Available() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	names := make([]string, 0, len(f.factories))
	for name := range f.factories {
		names = append(names, name)
	}
	return names
}
