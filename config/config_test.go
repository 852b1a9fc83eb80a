package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/33prime/aios-req-engine-sub007/config"
	"github.com/33prime/aios-req-engine-sub007/llm"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := config.DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 10, cfg.Retrieval.TopK)
	assert.Equal(t, 120*time.Second, cfg.Awareness.TTL)
	assert.NotEmpty(t, cfg.Pages)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		errMsg string
	}{
		{
			name:   "missing vector url",
			mutate: func(c *config.Config) { c.Services.VectorURL = "" },
			errMsg: "vector_url",
		},
		{
			name:   "non-positive top k",
			mutate: func(c *config.Config) { c.Retrieval.TopK = 0 },
			errMsg: "top_k",
		},
		{
			name:   "non-positive max rounds",
			mutate: func(c *config.Config) { c.Retrieval.MaxRounds = -1 },
			errMsg: "max_rounds",
		},
		{
			name:   "non-positive ttl",
			mutate: func(c *config.Config) { c.Awareness.TTL = 0 },
			errMsg: "awareness.ttl",
		},
		{
			name:   "page rule without context",
			mutate: func(c *config.Config) { c.Pages = []config.PageRule{{Pattern: "/x/*"}} },
			errMsg: "context is required",
		},
		{
			name:   "page rule with bad pattern",
			mutate: func(c *config.Config) { c.Pages = []config.PageRule{{Pattern: "/x/[", Context: "x"}} },
			errMsg: "invalid pattern",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestMerge(t *testing.T) {
	base := config.DefaultConfig()
	override := &config.Config{}
	override.NATS.URL = "nats://remote:4222"
	override.Services.RerankURL = "http://reranker:8080"
	override.Retrieval.TopK = 25
	override.LLM.Endpoints = map[string]llm.Endpoint{
		"local": {Provider: "openai", URL: "http://localhost:11434/v1", Model: "llama3"},
	}
	override.LLM.Chains = map[string][]string{"chat": {"local"}}

	base.Merge(override)

	assert.Equal(t, "nats://remote:4222", base.NATS.URL)
	assert.False(t, base.NATS.Embedded)
	assert.Equal(t, "http://reranker:8080", base.Services.RerankURL)
	assert.Equal(t, 25, base.Retrieval.TopK)
	// Untouched values keep their defaults.
	assert.Equal(t, "http://localhost:8091", base.Services.VectorURL)
	assert.Equal(t, 2, base.Retrieval.MaxRounds)
	assert.Contains(t, base.LLM.Endpoints, "local")
	assert.Equal(t, []string{"local"}, base.LLM.Chains["chat"])
}

func TestLoadSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reqengine.yaml")

	cfg := config.DefaultConfig()
	cfg.Services.VectorURL = "http://vector:9000"
	cfg.Retrieval.TopK = 7
	require.NoError(t, cfg.SaveToFile(path))

	loaded, err := config.LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "http://vector:9000", loaded.Services.VectorURL)
	assert.Equal(t, 7, loaded.Retrieval.TopK)
}

func TestLoadFromFile_Partial(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reqengine.yaml")
	require.NoError(t, os.WriteFile(path, []byte("retrieval:\n  top_k: 4\n"), 0o644))

	loaded, err := config.LoadFromFile(path)
	require.NoError(t, err)
	// Unspecified sections keep the defaults.
	assert.Equal(t, 4, loaded.Retrieval.TopK)
	assert.Equal(t, "http://localhost:8091", loaded.Services.VectorURL)
}

func TestBuildRegistry(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.LLM.Endpoints = map[string]llm.Endpoint{
		"fast-local": {Provider: "openai", URL: "http://localhost:11434/v1", Model: "qwen"},
	}
	cfg.LLM.Chains = map[string][]string{"decomposition": {"fast-local"}}

	reg := cfg.BuildRegistry()

	assert.Equal(t, []string{"fast-local"}, reg.Chain(llm.CapabilityDecomposition))
	require.NotNil(t, reg.GetEndpoint("fast-local"))
	assert.Equal(t, "qwen", reg.GetEndpoint("fast-local").Model)
	// Defaults survive for capabilities the config leaves alone.
	assert.NotEmpty(t, reg.Chain(llm.CapabilityChat))
}

func TestResolvePage(t *testing.T) {
	cfg := config.DefaultConfig()

	tests := []struct {
		path      string
		context   string
		wantTypes []string
	}{
		{"/projects/p1/overview", "overview", nil},
		{"/projects/p1/context/drivers", "business_context", []string{"business_driver", "stakeholder"}},
		{"/projects/p1/flow/steps/s9", "solution_flow", []string{"solution_flow_step", "workflow"}},
		{"/projects/p1/prototype/sessions", "prototype", []string{"unlock", "feature"}},
		{"/projects/p1/features/f3", "features", []string{"feature", "persona"}},
		{"/settings", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			ctx, types := cfg.ResolvePage(tt.path)
			assert.Equal(t, tt.context, ctx)
			assert.Equal(t, tt.wantTypes, types)
		})
	}
}
