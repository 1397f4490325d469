package transport

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/ThreeDotsLabs/watermill"

	errspkg "github.com/drblury/topicflow/internal/runtime/errors"
)

// entry is one registered transport.
type entry struct {
	builder Builder
	caps    *Capabilities
}

// Registry maps transport names to builders and capabilities. Names are
// case-insensitive, matching how Config.PubSubSystem is validated.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// DefaultRegistry is the registry transport packages register with from
// their init functions.
var DefaultRegistry = NewRegistry()

// NewRegistry creates an empty transport registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Register adds or replaces the builder for name. Capabilities registered
// earlier under the same name are kept. It panics on an empty name or a nil
// builder.
func (r *Registry) Register(name string, builder Builder) {
	r.register(name, builder, nil)
}

// RegisterWithCapabilities is Register that also records what the transport
// supports.
func (r *Registry) RegisterWithCapabilities(name string, builder Builder, caps Capabilities) {
	r.register(name, builder, &caps)
}

func (r *Registry) register(name string, builder Builder, caps *Capabilities) {
	key := normalizeName(name)
	if key == "" {
		panic("topicflow: transport name is required")
	}
	if builder == nil {
		panic(fmt.Sprintf("topicflow: transport %q registered with a nil builder", name))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.entries[key]
	e.builder = builder
	if caps != nil {
		e.caps = caps
	}
	r.entries[key] = e
}

// GetCapabilities returns the capabilities registered for name, or a zero
// Capabilities carrying only the name.
func (r *Registry) GetCapabilities(name string) Capabilities {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.entries[normalizeName(name)]; ok && e.caps != nil {
		return *e.caps
	}
	return Capabilities{Name: name}
}

// Build creates the transport selected by cfg.GetPubSubSystem.
func (r *Registry) Build(ctx context.Context, cfg Config, logger watermill.LoggerAdapter) (Transport, error) {
	if cfg == nil {
		return Transport{}, errspkg.ErrConfigRequired
	}
	name := cfg.GetPubSubSystem()

	r.mu.RLock()
	e, ok := r.entries[normalizeName(name)]
	r.mu.RUnlock()
	if !ok {
		return Transport{}, fmt.Errorf("%w: unknown transport: %q (registered: %v)", errspkg.ErrTransportUnavailable, name, r.Names())
	}
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return e.builder(ctx, cfg, logger)
}

// Names returns the registered transport names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.entries))
}

// Has reports whether a transport is registered under name.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[normalizeName(name)]
	return ok
}

// Register adds a transport builder to the default registry.
func Register(name string, builder Builder) {
	DefaultRegistry.Register(name, builder)
}

// RegisterWithCapabilities adds a transport builder and its capabilities to
// the default registry.
func RegisterWithCapabilities(name string, builder Builder, caps Capabilities) {
	DefaultRegistry.RegisterWithCapabilities(name, builder, caps)
}

// Build creates a transport using the default registry.
func Build(ctx context.Context, cfg Config, logger watermill.LoggerAdapter) (Transport, error) {
	return DefaultRegistry.Build(ctx, cfg, logger)
}
