package rerank_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/33prime/aios-req-engine-sub007/rerank"
)

func TestRerank(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rerank", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "rerank-v3.5", req["model"])
		assert.Equal(t, "billing", req["query"])
		assert.Equal(t, float64(2), req["top_n"])

		w.Write([]byte(`{"results": [
			{"index": 2, "relevance_score": 0.97},
			{"index": 0, "relevance_score": 0.61}
		]}`))
	}))
	defer server.Close()

	client := rerank.NewClient(server.URL, "secret", "")
	ranked, err := client.Rerank(context.Background(), "billing", []string{"a", "b", "c"}, 2)
	require.NoError(t, err)
	require.Len(t, ranked, 2)
	assert.Equal(t, 2, ranked[0].Index)
	assert.Equal(t, 0.97, ranked[0].Score)
}

func TestRerank_EmptyDocuments(t *testing.T) {
	client := rerank.NewClient("http://localhost:1", "", "")
	ranked, err := client.Rerank(context.Background(), "q", nil, 5)
	require.NoError(t, err)
	assert.Nil(t, ranked)
}

func TestAvailable(t *testing.T) {
	assert.True(t, rerank.NewClient("http://reranker:8080", "", "").Available())
	assert.False(t, rerank.NewClient("", "", "").Available())
}

func TestRerank_Unconfigured(t *testing.T) {
	client := rerank.NewClient("", "", "")
	_, err := client.Rerank(context.Background(), "q", []string{"a"}, 1)
	assert.Error(t, err)
}

func TestRerank_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exhausted", http.StatusPaymentRequired)
	}))
	defer server.Close()

	client := rerank.NewClient(server.URL, "", "")
	_, err := client.Rerank(context.Background(), "q", []string{"a", "b"}, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "402")
	assert.Contains(t, err.Error(), "quota exhausted")
}
