package vector_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/33prime/aios-req-engine-sub007/vector"
)

func TestSearchChunks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/chunks", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "proj-1", req["project_id"])
		assert.Equal(t, "billing", req["query"])
		assert.Equal(t, float64(5), req["top_k"])

		w.Write([]byte(`{"chunks": [
			{"id": "c1", "document_id": "d1", "content": "invoices settle nightly", "similarity": 0.91},
			{"id": "c2", "content": "refunds post next day", "similarity": 0.74}
		]}`))
	}))
	defer server.Close()

	client := vector.NewClient(server.URL)
	chunks, err := client.SearchChunks(context.Background(), "billing", "proj-1", 5)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "c1", chunks[0].ID)
	assert.Equal(t, 0.91, chunks[0].Similarity)
}

func TestSearchEntities_ForwardsTypeFilter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/entities", r.URL.Path)

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []any{"feature", "persona"}, req["entity_types"])

		w.Write([]byte(`{"entities": [{"id": "e1", "type": "feature", "name": "Invoicing", "similarity": 0.8}]}`))
	}))
	defer server.Close()

	client := vector.NewClient(server.URL)
	entities, err := client.SearchEntities(context.Background(), "billing", "proj-1", 10, []string{"feature", "persona"})
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, "Invoicing", entities[0].Name)
}

func TestSearchBeliefs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/beliefs", r.URL.Path)
		w.Write([]byte(`{"beliefs": [{"id": "b1", "statement": "same-day settlement required", "confidence": 0.9, "stance": "supporting", "similarity": 0.85}]}`))
	}))
	defer server.Close()

	client := vector.NewClient(server.URL)
	beliefs, err := client.SearchBeliefs(context.Background(), "settlement", "proj-1", 5)
	require.NoError(t, err)
	require.Len(t, beliefs, 1)
	assert.Equal(t, "supporting", beliefs[0].Stance)
}

func TestSearch_GatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "index rebuilding", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := vector.NewClient(server.URL)
	_, err := client.SearchChunks(context.Background(), "billing", "proj-1", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "index rebuilding")
}
