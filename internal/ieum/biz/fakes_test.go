package biz

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kart-io/ieum/internal/ieum/blob"
	"github.com/kart-io/ieum/internal/ieum/store"
	"github.com/kart-io/ieum/internal/pkg/extract"
	"github.com/kart-io/ieum/pkg/infra/pool"
	"github.com/kart-io/ieum/pkg/llm"
	blobopts "github.com/kart-io/ieum/pkg/options/blob"
)

const testDim = 4

var errUpstream = errors.New("upstream unavailable")

// fakeEmbedder 返回由文本长度决定的确定性向量。
type fakeEmbedder struct {
	calls atomic.Int64
	texts atomic.Int64
	err   error
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls.Add(1)
	f.texts.Add(int64(len(texts)))
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = vectorOf(t)
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	out, err := f.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (f *fakeEmbedder) Name() string { return "fake" }

func vectorOf(s string) []float32 {
	v := make([]float32, testDim)
	for i, r := range []rune(s) {
		v[i%testDim] += float32(r%97) / 97
	}
	v[0] += 1
	return v
}

// fakeChat 按顺序返回预设回复并记录收到的消息。
type fakeChat struct {
	mu       sync.Mutex
	replies  []string
	err      error
	calls    int
	messages [][]llm.Message
	opts     []llm.CompleteOptions
}

func (f *fakeChat) Chat(_ context.Context, messages []llm.Message, opts llm.CompleteOptions) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	f.messages = append(f.messages, messages)
	f.opts = append(f.opts, opts)
	if f.err != nil {
		return "", f.err
	}
	if len(f.replies) == 0 {
		return "", nil
	}
	reply := f.replies[0]
	if len(f.replies) > 1 {
		f.replies = f.replies[1:]
	}
	return reply, nil
}

func (f *fakeChat) Name() string { return "fake" }

func (f *fakeChat) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeChat) LastUserPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.messages) == 0 {
		return ""
	}
	msgs := f.messages[len(f.messages)-1]
	return msgs[len(msgs)-1].Content
}

// failingIndex 包装索引并注入查询或删除错误。
type failingIndex struct {
	store.SearchIndex
	queryErr  error
	deleteErr error
	searchErr error
}

func (f *failingIndex) Query(ctx context.Context, filter store.Filter, limit int) ([]store.Document, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.SearchIndex.Query(ctx, filter, limit)
}

func (f *failingIndex) Delete(ctx context.Context, ids []string) (int64, error) {
	if f.deleteErr != nil {
		return 0, f.deleteErr
	}
	return f.SearchIndex.Delete(ctx, ids)
}

func (f *failingIndex) Search(ctx context.Context, req store.SearchRequest) ([]store.Document, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.SearchIndex.Search(ctx, req)
}

// failingBlobs 包装对象存储并注入删除错误。
type failingBlobs struct {
	blob.ObjectStore
	deleteErr error
}

func (f *failingBlobs) Delete(ctx context.Context, container, name string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return f.ObjectStore.Delete(ctx, container, name)
}

func newBlobs(t *testing.T) *blob.LocalStore {
	t.Helper()
	opts := blobopts.NewOptions()
	opts.Backend = blobopts.BackendLocal
	opts.BaseDir = t.TempDir()
	s, err := blob.NewLocalStore(opts)
	require.NoError(t, err)
	return s
}

func newPool(t *testing.T) *pool.Pool {
	t.Helper()
	p, err := pool.NewPool("test-embedding", pool.EmbeddingPoolConfig(2))
	require.NoError(t, err)
	t.Cleanup(p.Release)
	return p
}

type ingestEnv struct {
	blobs    *blob.LocalStore
	index    *store.MemoryIndex
	embedder *fakeEmbedder
	ingestor *Ingestor
}

func newIngestEnv(t *testing.T, cfg *IngestConfig) *ingestEnv {
	t.Helper()
	env := &ingestEnv{
		blobs:    newBlobs(t),
		index:    store.NewMemoryIndex(testDim),
		embedder: &fakeEmbedder{},
	}
	env.ingestor = NewIngestor(env.blobs, env.index, env.embedder, extract.New(false), newPool(t), NewLocalLocker(), cfg)
	return env
}

func writeText(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func seed(t *testing.T, index store.SearchIndex, docs ...store.Document) {
	t.Helper()
	for i := range docs {
		if docs[i].Vector == nil {
			docs[i].Vector = vectorOf(docs[i].Content)
		}
	}
	results, err := index.Upload(context.Background(), docs)
	require.NoError(t, err)
	require.Empty(t, store.Failed(results))
}
