// Package config provides configuration loading and management for the
// requirements intelligence engine.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/33prime/aios-req-engine-sub007/llm"
)

// Config represents the complete engine configuration
type Config struct {
	NATS      NATSConfig      `yaml:"nats"`
	Services  ServicesConfig  `yaml:"services"`
	LLM       LLMConfig       `yaml:"llm"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Awareness AwarenessConfig `yaml:"awareness"`
	Frame     FrameConfig     `yaml:"frame"`
	Pages     []PageRule      `yaml:"pages"`
}

// NATSConfig configures the NATS connection
type NATSConfig struct {
	// URL is the NATS server URL (empty = use embedded server)
	URL string `yaml:"url"`
	// Embedded indicates whether to use embedded NATS
	Embedded bool `yaml:"embedded"`
}

// ServicesConfig holds the external service endpoints
type ServicesConfig struct {
	// VectorURL is the vector-similarity search gateway
	VectorURL string `yaml:"vector_url"`
	// GraphURL is the graph-neighborhood GraphQL gateway
	GraphURL string `yaml:"graph_url"`
	// RerankURL is the commercial reranking API (empty = disabled)
	RerankURL string `yaml:"rerank_url"`
	// RerankModel selects the reranking model
	RerankModel string `yaml:"rerank_model"`
}

// LLMConfig configures completion endpoints and capability chains
type LLMConfig struct {
	// Endpoints maps endpoint names to provider configurations
	Endpoints map[string]llm.Endpoint `yaml:"endpoints"`
	// Chains maps capability names to ordered endpoint name lists
	Chains map[string][]string `yaml:"chains"`
	// Timeout is the maximum time to wait for completions
	Timeout time.Duration `yaml:"timeout"`
}

// RetrievalConfig tunes the evidence pipeline
type RetrievalConfig struct {
	// TopK is the final chunk count per retrieval
	TopK int `yaml:"top_k"`
	// MaxRounds bounds evaluation-driven retries
	MaxRounds int `yaml:"max_rounds"`
}

// AwarenessConfig tunes the snapshot cache
type AwarenessConfig struct {
	// TTL bounds snapshot staleness
	TTL time.Duration `yaml:"ttl"`
}

// FrameConfig points at the instruction override file
type FrameConfig struct {
	// OverridesPath is a YAML file of instruction paragraph overrides,
	// hot-reloaded on change (empty = built-ins only)
	OverridesPath string `yaml:"overrides_path"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		NATS: NATSConfig{
			URL:      "",
			Embedded: true,
		},
		Services: ServicesConfig{
			VectorURL:   "http://localhost:8091",
			GraphURL:    "http://localhost:8092",
			RerankURL:   "",
			RerankModel: "",
		},
		LLM: LLMConfig{
			Timeout: 3 * time.Minute,
		},
		Retrieval: RetrievalConfig{
			TopK:      10,
			MaxRounds: 2,
		},
		Awareness: AwarenessConfig{
			TTL: 120 * time.Second,
		},
		Pages: defaultPageRules(),
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Services.VectorURL == "" {
		return fmt.Errorf("services.vector_url is required")
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval.top_k must be positive")
	}
	if c.Retrieval.MaxRounds <= 0 {
		return fmt.Errorf("retrieval.max_rounds must be positive")
	}
	if c.Awareness.TTL <= 0 {
		return fmt.Errorf("awareness.ttl must be positive")
	}
	for i, rule := range c.Pages {
		if err := rule.validate(); err != nil {
			return fmt.Errorf("pages[%d]: %w", i, err)
		}
	}
	return nil
}

// BuildRegistry constructs the LLM capability registry from config,
// starting from the built-in defaults.
func (c *Config) BuildRegistry() *llm.Registry {
	reg := llm.NewDefaultRegistry()
	for name, ep := range c.LLM.Endpoints {
		ep := ep
		reg.SetEndpoint(name, &ep)
	}
	for cap, chain := range c.LLM.Chains {
		reg.SetChain(llm.Capability(cap), chain)
	}
	return reg
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
		c.NATS.Embedded = false
	}

	if other.Services.VectorURL != "" {
		c.Services.VectorURL = other.Services.VectorURL
	}
	if other.Services.GraphURL != "" {
		c.Services.GraphURL = other.Services.GraphURL
	}
	if other.Services.RerankURL != "" {
		c.Services.RerankURL = other.Services.RerankURL
	}
	if other.Services.RerankModel != "" {
		c.Services.RerankModel = other.Services.RerankModel
	}

	if len(other.LLM.Endpoints) > 0 {
		if c.LLM.Endpoints == nil {
			c.LLM.Endpoints = make(map[string]llm.Endpoint)
		}
		for name, ep := range other.LLM.Endpoints {
			c.LLM.Endpoints[name] = ep
		}
	}
	if len(other.LLM.Chains) > 0 {
		if c.LLM.Chains == nil {
			c.LLM.Chains = make(map[string][]string)
		}
		for cap, chain := range other.LLM.Chains {
			c.LLM.Chains[cap] = chain
		}
	}
	if other.LLM.Timeout != 0 {
		c.LLM.Timeout = other.LLM.Timeout
	}

	if other.Retrieval.TopK != 0 {
		c.Retrieval.TopK = other.Retrieval.TopK
	}
	if other.Retrieval.MaxRounds != 0 {
		c.Retrieval.MaxRounds = other.Retrieval.MaxRounds
	}

	if other.Awareness.TTL != 0 {
		c.Awareness.TTL = other.Awareness.TTL
	}

	if other.Frame.OverridesPath != "" {
		c.Frame.OverridesPath = other.Frame.OverridesPath
	}

	if len(other.Pages) > 0 {
		c.Pages = other.Pages
	}
}
