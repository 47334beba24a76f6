package store

import (
	"context"
	"fmt"

	"github.com/kart-io/logger"

	"github.com/kart-io/ieum/pkg/component/milvus"
)

var _ SearchIndex = (*MilvusIndex)(nil)

const (
	// queryAllExpr 匹配所有条目，Milvus 查询要求非空表达式。
	queryAllExpr = FieldID + ` != ""`
	// fileURLMaxLength 是 file_url 字段的最大长度，主键由它 base64 编码得到。
	fileURLMaxLength = 2048
)

// MilvusIndex 实现基于 Milvus 的混合检索索引。
type MilvusIndex struct {
	client     *milvus.Client
	collection string
	dimension  int
}

// NewMilvusIndex 创建索引并确保集合存在。
func NewMilvusIndex(ctx context.Context, client *milvus.Client, collection string, dimension int) (*MilvusIndex, error) {
	idx := &MilvusIndex{
		client:     client,
		collection: collection,
		dimension:  dimension,
	}

	schema := &milvus.CollectionSchema{
		Name:        collection,
		Description: "ieum document chunks",
		Dimension:   dimension,
		IDField:     FieldID,
		TextField:   FieldContent,
		VectorField: FieldVector,
		SparseField: FieldSparse,
		MetaFields: []milvus.MetaField{
			{Name: FieldTitle, MaxLen: 1024},
			{Name: FieldCategory, MaxLen: 32},
			{Name: FieldFileURL, MaxLen: fileURLMaxLength},
			{Name: FieldCreatedAt, MaxLen: 64},
			{Name: FieldSize, MaxLen: 32},
		},
	}
	if err := client.EnsureCollection(ctx, schema); err != nil {
		return nil, fmt.Errorf("failed to ensure collection %s: %w", collection, err)
	}
	return idx, nil
}

// Upload 以一次 upsert 写入所有合法条目，非法条目单独标记失败。
func (m *MilvusIndex) Upload(ctx context.Context, docs []Document) ([]UploadResult, error) {
	results := make([]UploadResult, len(docs))
	data := &milvus.UpsertData{
		IDField:     FieldID,
		VectorField: FieldVector,
		VarChars:    make(map[string][]string, len(MetaFields)+1),
	}

	pending := make([]int, 0, len(docs))
	for i := range docs {
		d := &docs[i]
		results[i].ID = d.ID
		if err := m.check(d); err != nil {
			results[i].Err = err
			continue
		}
		pending = append(pending, i)
		data.IDs = append(data.IDs, d.ID)
		data.Vectors = append(data.Vectors, d.Vector)
		data.VarChars[FieldContent] = append(data.VarChars[FieldContent], d.Content)
		for _, f := range MetaFields {
			data.VarChars[f] = append(data.VarChars[f], d.field(f))
		}
	}

	if len(pending) == 0 {
		return results, nil
	}

	count, err := m.client.Upsert(ctx, m.collection, data)
	for _, i := range pending {
		if err != nil {
			results[i].Err = err
			continue
		}
		results[i].Succeeded = true
	}
	if err != nil {
		return results, fmt.Errorf("failed to upload %d documents: %w", len(pending), err)
	}

	logger.Debugw("milvus upsert completed", "collection", m.collection, "count", count)
	return results, nil
}

func (m *MilvusIndex) check(d *Document) error {
	if d.ID == "" {
		return fmt.Errorf("document id is empty")
	}
	if len(d.Vector) != m.dimension {
		return fmt.Errorf("document %s: vector dimension %d, want %d", d.ID, len(d.Vector), m.dimension)
	}
	return nil
}

// Search 执行 BM25 与稠密向量的混合检索。
func (m *MilvusIndex) Search(ctx context.Context, req SearchRequest) ([]Document, error) {
	hits, err := m.client.HybridSearch(ctx, m.collection, &milvus.HybridSearchRequest{
		Text:         req.Text,
		SparseField:  FieldSparse,
		Vector:       req.Vector,
		VectorField:  FieldVector,
		Filter:       req.Filter.Expr(),
		TopK:         req.TopK,
		OutputFields: OutputFields,
	})
	if err != nil {
		return nil, err
	}

	docs := make([]Document, 0, len(hits))
	for _, h := range hits {
		doc := fromFields(h.Fields)
		if doc.ID == "" {
			doc.ID = h.ID
		}
		doc.Score = h.Score
		docs = append(docs, doc)
	}
	return docs, nil
}

// Query 按过滤条件查询条目。
func (m *MilvusIndex) Query(ctx context.Context, filter Filter, limit int) ([]Document, error) {
	expr := filter.Expr()
	if expr == "" {
		expr = queryAllExpr
	}

	rows, err := m.client.Query(ctx, m.collection, expr, OutputFields, limit)
	if err != nil {
		return nil, err
	}

	docs := make([]Document, 0, len(rows))
	for _, row := range rows {
		docs = append(docs, fromFields(row))
	}
	return docs, nil
}

// Delete 按 ID 批量删除。
func (m *MilvusIndex) Delete(ctx context.Context, ids []string) (int64, error) {
	return m.client.DeleteByIDs(ctx, m.collection, FieldID, ids)
}

// Count 返回集合中的条目数。
func (m *MilvusIndex) Count(ctx context.Context) (int64, error) {
	return m.client.GetCollectionStats(ctx, m.collection)
}

func fromFields(fields map[string]string) Document {
	return Document{
		ID:        fields[FieldID],
		Title:     fields[FieldTitle],
		Content:   fields[FieldContent],
		Category:  fields[FieldCategory],
		FileURL:   fields[FieldFileURL],
		CreatedAt: fields[FieldCreatedAt],
		Size:      fields[FieldSize],
	}
}
