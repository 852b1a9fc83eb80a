package rerank_test

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/33prime/aios-req-engine-sub007/llm"
	"github.com/33prime/aios-req-engine-sub007/rerank"
)

type fakeCompleter struct {
	content string
	err     error
	prompt  string
}

func (f *fakeCompleter) Complete(_ context.Context, req llm.Request) (*llm.Response, error) {
	if len(req.Messages) > 0 {
		f.prompt = req.Messages[0].Content
	}
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Response{Content: f.content}, nil
}

func TestListwiseRank(t *testing.T) {
	completer := &fakeCompleter{content: "[3, 1, 2]"}
	r := rerank.NewListwiseReranker(completer, slog.Default())

	indices, err := r.Rank(context.Background(), "billing", []string{"doc a", "doc b", "doc c"}, 3)
	require.NoError(t, err)
	// Model ranks are 1-based.
	assert.Equal(t, []int{2, 0, 1}, indices)

	assert.Contains(t, completer.prompt, "1. doc a")
	assert.Contains(t, completer.prompt, "3. doc c")
}

func TestListwiseRank_LongDocumentsSummarized(t *testing.T) {
	completer := &fakeCompleter{content: "[1]"}
	r := rerank.NewListwiseReranker(completer, slog.Default())

	long := strings.Repeat("x", 400)
	_, err := r.Rank(context.Background(), "q", []string{long}, 1)
	require.NoError(t, err)

	assert.Contains(t, completer.prompt, strings.Repeat("x", 150)+"...")
	assert.NotContains(t, completer.prompt, strings.Repeat("x", 151))
}

func TestListwiseRank_DiscardsInvalidRanks(t *testing.T) {
	completer := &fakeCompleter{content: "[9, 0, 2, 2, 1]"}
	r := rerank.NewListwiseReranker(completer, slog.Default())

	indices, err := r.Rank(context.Background(), "q", []string{"a", "b", "c"}, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0}, indices)
}

func TestListwiseRank_FencedResponse(t *testing.T) {
	completer := &fakeCompleter{content: "Sure, here is the ranking:\n```json\n[2, 1]\n```"}
	r := rerank.NewListwiseReranker(completer, slog.Default())

	indices, err := r.Rank(context.Background(), "q", []string{"a", "b"}, 2)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0}, indices)
}

func TestListwiseRank_Errors(t *testing.T) {
	r := rerank.NewListwiseReranker(&fakeCompleter{err: fmt.Errorf("model down")}, slog.Default())
	_, err := r.Rank(context.Background(), "q", []string{"a"}, 1)
	assert.Error(t, err)

	r = rerank.NewListwiseReranker(&fakeCompleter{content: "no array here"}, slog.Default())
	_, err = r.Rank(context.Background(), "q", []string{"a"}, 1)
	assert.Error(t, err)

	r = rerank.NewListwiseReranker(&fakeCompleter{content: "[99]"}, slog.Default())
	_, err = r.Rank(context.Background(), "q", []string{"a"}, 1)
	assert.Error(t, err)
}

func TestListwiseRank_EmptyDocuments(t *testing.T) {
	r := rerank.NewListwiseReranker(&fakeCompleter{}, slog.Default())
	indices, err := r.Rank(context.Background(), "q", nil, 3)
	require.NoError(t, err)
	assert.Nil(t, indices)
}
