package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kart-io/ieum/internal/pkg/textutil"
)

var _ SearchIndex = (*MemoryIndex)(nil)

// rrfK 是倒数排名融合的平滑常数。
const rrfK = 60

// MemoryIndex 是进程内索引，检索时以 RRF 融合关键词排名和余弦排名。
type MemoryIndex struct {
	mu        sync.RWMutex
	docs      map[string]Document
	dimension int
}

// NewMemoryIndex 创建内存索引，dimension 为 0 时不校验向量维度。
func NewMemoryIndex(dimension int) *MemoryIndex {
	return &MemoryIndex{
		docs:      make(map[string]Document),
		dimension: dimension,
	}
}

// Upload 写入条目，相同 ID 覆盖。
func (m *MemoryIndex) Upload(_ context.Context, docs []Document) ([]UploadResult, error) {
	results := make([]UploadResult, len(docs))

	m.mu.Lock()
	defer m.mu.Unlock()

	for i, d := range docs {
		results[i].ID = d.ID
		switch {
		case d.ID == "":
			results[i].Err = fmt.Errorf("document id is empty")
		case m.dimension > 0 && len(d.Vector) != m.dimension:
			results[i].Err = fmt.Errorf("document %s: vector dimension %d, want %d", d.ID, len(d.Vector), m.dimension)
		default:
			d.Score = 0
			d.Vector = append([]float32(nil), d.Vector...)
			m.docs[d.ID] = d
			results[i].Succeeded = true
		}
	}
	return results, nil
}

type ranked struct {
	id    string
	score float64
}

// Search 执行关键词加向量的混合检索。
func (m *MemoryIndex) Search(_ context.Context, req SearchRequest) ([]Document, error) {
	if req.TopK <= 0 {
		return nil, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	queryTerms := make(map[string]struct{})
	for _, t := range textutil.Tokenize(req.Text) {
		queryTerms[t] = struct{}{}
	}

	var lexical, dense []ranked
	for id := range m.docs {
		d := m.docs[id]
		if !req.Filter.Match(&d) {
			continue
		}
		if overlap := termOverlap(queryTerms, d.Content); overlap > 0 {
			lexical = append(lexical, ranked{id: id, score: float64(overlap)})
		}
		if len(req.Vector) > 0 && len(d.Vector) == len(req.Vector) {
			dense = append(dense, ranked{id: id, score: textutil.CosineSimilarity(req.Vector, d.Vector)})
		}
	}

	fused := make(map[string]float64)
	for _, list := range [][]ranked{lexical, dense} {
		sortRanked(list)
		for rank, r := range list {
			fused[r.id] += 1.0 / float64(rrfK+rank+1)
		}
	}

	out := make([]ranked, 0, len(fused))
	for id, s := range fused {
		out = append(out, ranked{id: id, score: s})
	}
	sortRanked(out)
	if len(out) > req.TopK {
		out = out[:req.TopK]
	}

	docs := make([]Document, 0, len(out))
	for _, r := range out {
		d := m.docs[r.id]
		d.Vector = nil
		d.Score = float32(r.score)
		docs = append(docs, d)
	}
	return docs, nil
}

func termOverlap(query map[string]struct{}, content string) int {
	if len(query) == 0 {
		return 0
	}
	seen := make(map[string]struct{})
	for _, t := range textutil.Tokenize(content) {
		if _, ok := query[t]; ok {
			seen[t] = struct{}{}
		}
	}
	return len(seen)
}

func sortRanked(list []ranked) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].score != list[j].score {
			return list[i].score > list[j].score
		}
		return list[i].id < list[j].id
	})
}

// Query 返回满足条件的条目，按 ID 排序。
func (m *MemoryIndex) Query(_ context.Context, filter Filter, limit int) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	docs := make([]Document, 0)
	for id := range m.docs {
		d := m.docs[id]
		if filter.Match(&d) {
			d.Vector = nil
			docs = append(docs, d)
		}
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}
	return docs, nil
}

// Delete 按 ID 删除，不存在的 ID 忽略。
func (m *MemoryIndex) Delete(_ context.Context, ids []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for _, id := range ids {
		if _, ok := m.docs[id]; ok {
			delete(m.docs, id)
			n++
		}
	}
	return n, nil
}

// Len 返回条目数。
func (m *MemoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}
