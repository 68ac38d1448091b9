package filecenter

import (
	"fmt"
	"sync"
)

// DriverFactory is a function that creates a BlobStore from a config
type DriverFactory func(cfg *Config) (BlobStore, error)

// IndexFactory is a function that creates an Index from a config
type IndexFactory func(cfg *Config) (Index, error)

var (
	driverFactories = make(map[string]DriverFactory)
	indexFactories  = map[string]IndexFactory{
		"memory": func(*Config) (Index, error) { return NewMemoryIndex(), nil },
	}
	factoryMutex sync.RWMutex
)

// RegisterDriver registers a blob driver factory function
func RegisterDriver(name string, factory DriverFactory) {
	factoryMutex.Lock()
	defer factoryMutex.Unlock()
	driverFactories[name] = factory
}

// RegisterIndex registers an index factory function
func RegisterIndex(name string, factory IndexFactory) {
	factoryMutex.Lock()
	defer factoryMutex.Unlock()
	indexFactories[name] = factory
}

// CreateDriver creates a blob store instance from config
func CreateDriver(cfg *Config) (BlobStore, error) {
	factoryMutex.RLock()
	factory, exists := driverFactories[cfg.Driver]
	factoryMutex.RUnlock()

	if !exists {
		return nil, fmt.Errorf("driver %s not registered", cfg.Driver)
	}

	return factory(cfg)
}

// CreateIndex creates an index instance from config
func CreateIndex(cfg *Config) (Index, error) {
	factoryMutex.RLock()
	factory, exists := indexFactories[cfg.Index]
	factoryMutex.RUnlock()

	if !exists {
		return nil, fmt.Errorf("index %s not registered", cfg.Index)
	}

	return factory(cfg)
}
