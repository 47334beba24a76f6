package store

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/ieum/internal/pkg/textutil"
	"github.com/kart-io/ieum/pkg/component/milvus"
)

func TestFilterExpr(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		want   string
	}{
		{"zero", Filter{}, ""},
		{"not style", Ne(FieldCategory, "style"), `category != "style"`},
		{"title", TitleFilter("회의록.docx"), `title == "회의록.docx"`},
		{"escaped", TitleFilter(`a"b\c.txt`), `title == "a\"b\\c.txt"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Expr())
		})
	}
}

func TestFilterMatch(t *testing.T) {
	doc := &Document{ID: "1", Title: "a.pdf", Category: "history"}

	assert.True(t, Filter{}.Match(doc))
	assert.True(t, Ne(FieldCategory, "style").Match(doc))
	assert.False(t, Eq(FieldCategory, "style").Match(doc))
	assert.True(t, TitleFilter("a.pdf").Match(doc))
	assert.False(t, TitleFilter("a.pd").Match(doc))
}

func newDoc(id, title, category, content string, vec ...float32) Document {
	return Document{ID: id, Title: title, Category: category, Content: content, Vector: vec}
}

func TestMemoryIndex_UploadPerEntry(t *testing.T) {
	idx := NewMemoryIndex(2)
	ctx := context.Background()

	results, err := idx.Upload(ctx, []Document{
		newDoc("a", "a.txt", "reference", "alpha", 1, 0),
		newDoc("", "b.txt", "reference", "beta", 0, 1),
		newDoc("c", "c.txt", "reference", "gamma", 1),
	})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.True(t, results[0].Succeeded)
	assert.False(t, results[1].Succeeded)
	assert.Error(t, results[1].Err)
	assert.False(t, results[2].Succeeded)
	assert.Len(t, Failed(results), 2)
	assert.Equal(t, 1, idx.Len())
}

func TestMemoryIndex_UploadOverwrites(t *testing.T) {
	idx := NewMemoryIndex(0)
	ctx := context.Background()

	_, err := idx.Upload(ctx, []Document{newDoc("a", "a.txt", "history", "old", 1)})
	require.NoError(t, err)
	_, err = idx.Upload(ctx, []Document{newDoc("a", "a.txt", "history", "new", 1)})
	require.NoError(t, err)

	docs, err := idx.Query(ctx, TitleFilter("a.txt"), 0)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "new", docs[0].Content)
	assert.Nil(t, docs[0].Vector)
}

func TestMemoryIndex_SearchFilterAndRank(t *testing.T) {
	idx := NewMemoryIndex(2)
	ctx := context.Background()

	_, err := idx.Upload(ctx, []Document{
		newDoc("h1", "budget.pdf", "history", "budget review meeting", 1, 0),
		newDoc("h2", "hiring.pdf", "history", "hiring plan", 0, 1),
		newDoc("s1", "template.docx", "style", "budget template", 1, 0),
	})
	require.NoError(t, err)

	docs, err := idx.Search(ctx, SearchRequest{
		Text:   "budget",
		Vector: []float32{1, 0},
		Filter: Ne(FieldCategory, "style"),
		TopK:   3,
	})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "h1", docs[0].ID)
	assert.Greater(t, docs[0].Score, docs[1].Score)
	for _, d := range docs {
		assert.NotEqual(t, "style", d.Category)
	}

	docs, err = idx.Search(ctx, SearchRequest{Text: "budget", Vector: []float32{1, 0}, TopK: 1})
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestMemoryIndex_SearchEmpty(t *testing.T) {
	idx := NewMemoryIndex(2)

	docs, err := idx.Search(context.Background(), SearchRequest{Text: "x", Vector: []float32{1, 0}, TopK: 3})
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestMemoryIndex_Delete(t *testing.T) {
	idx := NewMemoryIndex(0)
	ctx := context.Background()

	_, err := idx.Upload(ctx, []Document{
		newDoc("a0", "a.txt", "reference", "x", 1),
		newDoc("a1", "a.txt", "reference", "y", 1),
		newDoc("b0", "b.txt", "reference", "z", 1),
	})
	require.NoError(t, err)

	n, err := idx.Delete(ctx, []string{"a0", "a1", "missing"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	docs, err := idx.Query(ctx, Filter{}, 0)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "b0", docs[0].ID)
}

func TestMemoryIndex_QueryLimit(t *testing.T) {
	idx := NewMemoryIndex(0)
	ctx := context.Background()

	_, err := idx.Upload(ctx, []Document{newDoc("a", "t", "history", "", 1), newDoc("b", "t", "history", "", 1)})
	require.NoError(t, err)

	docs, err := idx.Query(ctx, Filter{}, 1)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestChunkIDFitsPrimaryKey(t *testing.T) {
	url := strings.Repeat("가", fileURLMaxLength/3)
	require.LessOrEqual(t, len(url), fileURLMaxLength)

	id := textutil.EncodeChunkID(url, 99999)
	assert.LessOrEqual(t, len(id), milvus.IDMaxLength)

	id = textutil.EncodeChunkID(strings.Repeat("u", fileURLMaxLength), 99999)
	assert.LessOrEqual(t, len(id), milvus.IDMaxLength)
}
