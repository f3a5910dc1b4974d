// Package tools synthesizes callable MCP tool definitions from catalog
// descriptors and holds them in a per-service registry.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrDuplicateTool indicates a tool name collision within one service.
	// This is a configuration error and aborts the service's registration.
	ErrDuplicateTool = errors.New("duplicate tool")
	// ErrToolNotFound indicates a CallTool lookup miss.
	ErrToolNotFound = errors.New("tool not found")
)

// Registry holds the compiled tool definitions per configured upstream
// service. It is populated during startup and read-only once serving begins;
// the mutex only matters while concurrent per-service compilations publish
// their results.
type Registry struct {
	mu       sync.RWMutex
	services map[int]map[string]Definition
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{services: map[int]map[string]Definition{}}
}

// Register adds a tool definition for a service. A qualified-name collision
// fails with ErrDuplicateTool rather than silently overwriting.
func (r *Registry) Register(service int, def Definition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	svc, ok := r.services[service]
	if !ok {
		svc = map[string]Definition{}
		r.services[service] = svc
	}
	if _, exists := svc[def.Spec.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, def.Spec.Name)
	}
	svc[def.Spec.Name] = def
	return nil
}

// Lookup returns the tool definition registered under name for a service.
func (r *Registry) Lookup(service int, name string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.services[service][name]
	return def, ok
}

// List returns every tool definition for a service, sorted by name.
func (r *Registry) List(service int) []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]Definition, 0, len(r.services[service]))
	for _, def := range r.services[service] {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Spec.Name < defs[j].Spec.Name })
	return defs
}

// Services returns the indices of services with registered tools, sorted.
func (r *Registry) Services() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]int, 0, len(r.services))
	for svc := range r.services {
		out = append(out, svc)
	}
	sort.Ints(out)
	return out
}

// Count returns the total number of registered tools across all services.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, svc := range r.services {
		n += len(svc)
	}
	return n
}

// Drop removes every tool registered for a service. Used only during startup
// to abandon a service whose compilation failed partway, so a dead service
// never leaves partial registrations behind.
func (r *Registry) Drop(service int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.services, service)
}

// CallTool invokes a registered tool by name with the given arguments and
// returns the normalized result. A lookup miss is ErrToolNotFound, which the
// transport layer must keep distinct from an invocation failure.
func (r *Registry) CallTool(ctx context.Context, service int, name string, args map[string]any) (json.RawMessage, error) {
	def, ok := r.Lookup(service, name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	return def.Invoke(ctx, args)
}
