// Copyright 2025 The GeoBatch Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"fmt"
	"sort"
	"sync"
)

// Factory builds a provider from passthrough options.
type Factory func(opts Options) (Geocoder, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register makes a provider factory available under a name. Provider
// packages call it from init; registering the same name twice panics.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if factory == nil {
		panic("geocode: Register factory is nil")
	}

	if _, dup := registry[name]; dup {
		panic(fmt.Sprintf("geocode: Register called twice for provider %q", name))
	}

	registry[name] = factory
}

// New resolves a provider by name and builds it with the given options.
// An unknown name returns ErrProviderNotFound; this is the fatal
// configuration error of a batch and happens before any query runs.
func New(name string, opts Options) (Geocoder, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrProviderNotFound, name)
	}

	return factory(opts)
}

// Providers returns the registered provider names, sorted.
func Providers() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
