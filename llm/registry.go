package llm

import "sync"

// Capability is a semantic capability used for model selection. Callers ask
// for "decomposition" or "reranking" and the registry resolves the request
// to concrete endpoints with a fallback chain.
type Capability string

const (
	// CapabilityDecomposition is for splitting compound queries into sub-queries.
	CapabilityDecomposition Capability = "decomposition"

	// CapabilityReranking is for listwise relevance ranking of evidence.
	CapabilityReranking Capability = "reranking"

	// CapabilityChat is for general assistant completions.
	CapabilityChat Capability = "chat"

	// CapabilityFast is for quick low-stakes calls.
	CapabilityFast Capability = "fast"
)

// Endpoint describes one model endpoint.
type Endpoint struct {
	// Provider is the wire protocol to speak ("openai" or "anthropic").
	Provider string `json:"provider" yaml:"provider"`

	// URL is the API base URL. Empty uses the provider default.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// Model is the model identifier sent to the provider.
	Model string `json:"model" yaml:"model"`

	// MaxTokens is the context window size, used for budget calculation.
	MaxTokens int `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
}

// Registry maps capabilities to ordered endpoint chains.
type Registry struct {
	mu        sync.RWMutex
	chains    map[Capability][]string
	endpoints map[string]*Endpoint
}

// NewRegistry creates a registry from explicit chains and endpoints.
func NewRegistry(chains map[Capability][]string, endpoints map[string]*Endpoint) *Registry {
	if chains == nil {
		chains = make(map[Capability][]string)
	}
	if endpoints == nil {
		endpoints = make(map[string]*Endpoint)
	}
	return &Registry{chains: chains, endpoints: endpoints}
}

// NewDefaultRegistry creates a registry with sensible defaults for local
// development: an OpenAI-compatible endpoint for everything.
func NewDefaultRegistry() *Registry {
	return NewRegistry(
		map[Capability][]string{
			CapabilityDecomposition: {"gpt-4o-mini"},
			CapabilityReranking:     {"gpt-4o-mini"},
			CapabilityChat:          {"gpt-4o", "gpt-4o-mini"},
			CapabilityFast:          {"gpt-4o-mini"},
		},
		map[string]*Endpoint{
			"gpt-4o": {
				Provider:  "openai",
				Model:     "gpt-4o",
				MaxTokens: 128000,
			},
			"gpt-4o-mini": {
				Provider:  "openai",
				Model:     "gpt-4o-mini",
				MaxTokens: 128000,
			},
		},
	)
}

// Chain returns the ordered endpoint names for a capability. Unknown
// capabilities fall back to the fast chain.
func (r *Registry) Chain(c Capability) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if chain, ok := r.chains[c]; ok && len(chain) > 0 {
		return chain
	}
	return r.chains[CapabilityFast]
}

// GetEndpoint returns the endpoint config for a model name, or nil.
func (r *Registry) GetEndpoint(name string) *Endpoint {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.endpoints[name]
}

// SetEndpoint registers or replaces an endpoint.
func (r *Registry) SetEndpoint(name string, ep *Endpoint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.endpoints[name] = ep
}

// SetChain registers or replaces a capability chain.
func (r *Registry) SetChain(c Capability, models []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chains[c] = models
}
