// Package providers resolves data-provider identities to provider properties.
package providers

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/schemabounce/kolumn/dbwizard/helpers/logging"
	"github.com/schemabounce/kolumn/dbwizard/types"
)

// PropertyInvariantName is the provider property holding the invariant name.
const PropertyInvariantName = "InvariantName"

// Provider exposes the string properties of a registered data provider.
type Provider interface {
	Property(name string) (string, error)
}

// Registry looks up providers by identity. Unknown identities must produce
// a *ProviderNotFoundError.
type Registry interface {
	Provider(id types.ProviderIdentity) (Provider, error)
}

// ProviderNotFoundError reports an identity with no registered provider.
type ProviderNotFoundError struct {
	ID types.ProviderIdentity
}

func (e *ProviderNotFoundError) Error() string {
	return fmt.Sprintf("provider %s not found", e.ID)
}

// PropertyNotFoundError reports a provider that lacks a requested property.
type PropertyNotFoundError struct {
	ID       types.ProviderIdentity
	Property string
}

func (e *PropertyNotFoundError) Error() string {
	return fmt.Sprintf("provider %s has no property %q", e.ID, e.Property)
}

// InvariantName resolves the invariant name of the provider registered under id.
func InvariantName(reg Registry, id types.ProviderIdentity) (types.ProviderInvariantName, error) {
	if reg == nil {
		return "", &ProviderNotFoundError{ID: id}
	}
	provider, err := reg.Provider(id)
	if err != nil {
		return "", err
	}
	if provider == nil {
		return "", &ProviderNotFoundError{ID: id}
	}
	name, err := provider.Property(PropertyInvariantName)
	if err != nil {
		return "", err
	}
	if name == "" {
		return "", &PropertyNotFoundError{ID: id, Property: PropertyInvariantName}
	}
	return types.ProviderInvariantName(name), nil
}

// Properties is a static Provider backed by a map.
type Properties struct {
	ID     types.ProviderIdentity
	Values map[string]string
}

// Property implements Provider.
func (p *Properties) Property(name string) (string, error) {
	value, ok := p.Values[name]
	if !ok {
		return "", &PropertyNotFoundError{ID: p.ID, Property: name}
	}
	return value, nil
}

// MemoryRegistry is a concurrency-safe in-process Registry.
type MemoryRegistry struct {
	mu        sync.RWMutex
	providers map[types.ProviderIdentity]Provider
}

// NewMemoryRegistry creates an empty registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{providers: make(map[types.ProviderIdentity]Provider)}
}

// Register adds a provider under id.
func (r *MemoryRegistry) Register(id types.ProviderIdentity, provider Provider) error {
	if id == uuid.Nil {
		return fmt.Errorf("provider id cannot be empty")
	}
	if provider == nil {
		return fmt.Errorf("provider %s cannot be nil", id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[id]; exists {
		return fmt.Errorf("provider %s already registered", id)
	}
	r.providers[id] = provider
	logging.RegistryLogger.DebugWithFields("provider registered", "id", id.String())
	return nil
}

// MustRegister panics on registration error.
func (r *MemoryRegistry) MustRegister(id types.ProviderIdentity, provider Provider) {
	if err := r.Register(id, provider); err != nil {
		panic(err)
	}
}

// RegisterInvariant registers a provider that only carries an invariant name.
func (r *MemoryRegistry) RegisterInvariant(id types.ProviderIdentity, invariantName types.ProviderInvariantName) error {
	return r.Register(id, &Properties{
		ID:     id,
		Values: map[string]string{PropertyInvariantName: string(invariantName)},
	})
}

// Provider implements Registry.
func (r *MemoryRegistry) Provider(id types.ProviderIdentity) (Provider, error) {
	r.mu.RLock()
	provider, exists := r.providers[id]
	r.mu.RUnlock()

	if !exists {
		return nil, &ProviderNotFoundError{ID: id}
	}
	return provider, nil
}

// List returns all registered identities in a stable order.
func (r *MemoryRegistry) List() []types.ProviderIdentity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]types.ProviderIdentity, 0, len(r.providers))
	for id := range r.providers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

// Clear removes all registered providers.
func (r *MemoryRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers = make(map[types.ProviderIdentity]Provider)
}
