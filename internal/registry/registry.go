// Package registry maintains the closed set of vendor adapter
// constructors and memoizes the instances built from configuration.
package registry

import (
	"context"
	"sort"
	"sync"

	"github.com/upb/llm-gateway/internal/config"
	"github.com/upb/llm-gateway/internal/credentials"
	"github.com/upb/llm-gateway/internal/domain"
	"github.com/upb/llm-gateway/internal/providers"
	"github.com/upb/llm-gateway/internal/providers/cerebras"
	"github.com/upb/llm-gateway/internal/providers/cohere"
	"github.com/upb/llm-gateway/internal/providers/gemini"
	"github.com/upb/llm-gateway/internal/providers/huggingface"
	"github.com/upb/llm-gateway/internal/providers/openrouter"
)

// AdapterFactory builds an adapter instance from its descriptor and the
// shared HTTP pipeline.
type AdapterFactory func(descriptor domain.ProviderDescriptor, pipeline *providers.Pipeline) providers.Adapter

// factories is the closed id → constructor table. No provider outside
// this set can ever be registered.
var factories = map[string]AdapterFactory{
	cerebras.ID:    func(d domain.ProviderDescriptor, p *providers.Pipeline) providers.Adapter { return cerebras.New(d, p) },
	cohere.ID:      func(d domain.ProviderDescriptor, p *providers.Pipeline) providers.Adapter { return cohere.New(d, p) },
	openrouter.ID:  func(d domain.ProviderDescriptor, p *providers.Pipeline) providers.Adapter { return openrouter.New(d, p) },
	gemini.ID:      func(d domain.ProviderDescriptor, p *providers.Pipeline) providers.Adapter { return gemini.New(d, p) },
	huggingface.ID: func(d domain.ProviderDescriptor, p *providers.Pipeline) providers.Adapter { return huggingface.New(d, p) },
}

// Registry holds the configured providers, sorted by priority, and
// memoizes adapter instances as they're first requested.
type Registry struct {
	mu          sync.Mutex
	descriptors []domain.ProviderDescriptor
	pipeline    *providers.Pipeline
	instances   map[string]providers.Adapter
}

// New builds a Registry over the configured providers in priority order,
// ties broken by config order (Go's sort is stable).
func New(cfg *config.Config, credStore credentials.Store, traceSink providers.TraceSink) *Registry {
	descriptors := make([]domain.ProviderDescriptor, len(cfg.Providers))
	copy(descriptors, cfg.Providers)
	sort.SliceStable(descriptors, func(i, j int) bool {
		return descriptors[i].Priority < descriptors[j].Priority
	})

	return &Registry{
		descriptors: descriptors,
		pipeline:    providers.NewPipeline(credStore, traceSink),
		instances:   make(map[string]providers.Adapter),
	}
}

// Providers returns the configured providers, priority-sorted ascending.
func (r *Registry) Providers() []domain.ProviderDescriptor {
	return r.descriptors
}

// GetAdapter returns the memoized adapter for providerID, constructing
// and caching it on first use. Fails provider_unavailable if no
// descriptor or no adapter factory is registered for the id.
func (r *Registry) GetAdapter(providerID string) (providers.Adapter, error) {
	descriptor, ok := r.descriptor(providerID)
	if !ok {
		return nil, domain.ProviderUnavailable(providerID, "No adapter configured")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if adapter, ok := r.instances[providerID]; ok {
		return adapter, nil
	}

	factory, ok := factories[providerID]
	if !ok {
		return nil, domain.ProviderUnavailable(providerID, "No adapter configured")
	}
	adapter := factory(descriptor, r.pipeline)
	r.instances[providerID] = adapter
	return adapter, nil
}

func (r *Registry) descriptor(providerID string) (domain.ProviderDescriptor, bool) {
	for _, d := range r.descriptors {
		if d.ID == providerID {
			return d, true
		}
	}
	return domain.ProviderDescriptor{}, false
}

// GetStates joins the configured providers with a snapshot of their
// credential rows into the derived ProviderState list used by the admin
// dashboard.
func (r *Registry) GetStates(ctx context.Context, credStore credentials.Store) ([]domain.ProviderState, error) {
	rows, err := credStore.List(ctx)
	if err != nil {
		return nil, err
	}
	byProvider := make(map[string]domain.ProviderCredential, len(rows))
	for _, row := range rows {
		byProvider[row.ProviderID] = row
	}

	states := make([]domain.ProviderState, 0, len(r.descriptors))
	for _, descriptor := range r.descriptors {
		states = append(states, domain.NewProviderState(descriptor, byProvider[descriptor.ID]))
	}
	return states, nil
}
