// Package processors provides optional post-processing of stream series on
// read. Implementations are registered explicitly under a capability key at
// init time; there is no runtime discovery.
package processors

import (
	"fmt"
	"sort"
	"sync"
)

// Capability identifies one registered processor.
type Capability string

const (
	CapabilitySmooth   Capability = "smooth"
	CapabilityDecimate Capability = "decimate"
)

// Processor transforms a numeric series. Implementations must not mutate
// the input slice.
type Processor interface {
	Process(series []float64) []float64
}

// Factory constructs a Processor.
type Factory func() Processor

var registry = struct {
	mu        sync.RWMutex
	factories map[Capability]Factory
}{
	factories: map[Capability]Factory{},
}

// Register binds a factory to a capability key. Later registrations under
// the same key win, which lets tests install fakes.
func Register(capability Capability, factory Factory) {
	if capability == "" || factory == nil {
		return
	}
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.factories[capability] = factory
}

// New constructs the processor registered under the given capability.
func New(capability Capability) (Processor, error) {
	registry.mu.RLock()
	factory, ok := registry.factories[capability]
	registry.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no processor registered for capability %q, available: %v", capability, Capabilities())
	}
	return factory(), nil
}

// Capabilities lists the registered capability keys, sorted.
func Capabilities() []Capability {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	keys := make([]Capability, 0, len(registry.factories))
	for key := range registry.factories {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
