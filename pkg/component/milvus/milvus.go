// Package milvus 封装 Milvus SDK，提供文档集合的建表、写入、混合检索与删除。
package milvus

import (
	"context"
	"fmt"
	"strconv"

	"github.com/kart-io/logger"
	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/index"
	"github.com/milvus-io/milvus/client/v2/milvusclient"

	milvusopts "github.com/kart-io/ieum/pkg/options/milvus"
)

// Client wraps the Milvus SDK client.
type Client struct {
	client *milvusclient.Client
	opts   *milvusopts.Options
}

// New creates a new Milvus client.
func New(opts *milvusopts.Options) (*Client, error) {
	if opts == nil {
		return nil, fmt.Errorf("milvus options is nil")
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
	defer cancel()

	c, err := milvusclient.New(ctx, &milvusclient.ClientConfig{
		Address:  opts.Address,
		Username: opts.Username,
		Password: opts.Password,
		DBName:   opts.Database,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to milvus: %w", err)
	}

	return &Client{
		client: c,
		opts:   opts,
	}, nil
}

// Close closes the Milvus client connection.
func (c *Client) Close(ctx context.Context) error {
	return c.client.Close(ctx)
}

// RawClient returns the underlying Milvus client.
func (c *Client) RawClient() *milvusclient.Client {
	return c.client
}

// IDMaxLength 是 VarChar 主键的最大长度。
const IDMaxLength = 4096

// CollectionSchema 描述一个以字符串为主键、同时支持稠密向量和 BM25 全文检索的集合。
type CollectionSchema struct {
	Name        string
	Description string
	Dimension   int

	// IDField 是 VarChar 主键字段。
	IDField string
	// TextField 是参与 BM25 分词的文本字段。
	TextField string
	// VectorField 是稠密向量字段。
	VectorField string
	// SparseField 是 BM25 函数输出的稀疏向量字段。
	SparseField string

	MetaFields []MetaField
}

// MetaField defines a VarChar metadata field in the collection.
type MetaField struct {
	Name   string
	MaxLen int
}

// EnsureCollection 在集合不存在时创建集合、索引并加载。
func (c *Client) EnsureCollection(ctx context.Context, schema *CollectionSchema) error {
	exists, err := c.client.HasCollection(ctx, milvusclient.NewHasCollectionOption(schema.Name))
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}
	if exists {
		return c.load(ctx, schema.Name)
	}

	collSchema := entity.NewSchema().
		WithName(schema.Name).
		WithDescription(schema.Description).
		WithAutoID(false).
		WithField(entity.NewField().
			WithName(schema.IDField).
			WithDataType(entity.FieldTypeVarChar).
			WithMaxLength(IDMaxLength).
			WithIsPrimaryKey(true)).
		WithField(entity.NewField().
			WithName(schema.TextField).
			WithDataType(entity.FieldTypeVarChar).
			WithMaxLength(65535).
			WithEnableAnalyzer(true)).
		WithField(entity.NewField().
			WithName(schema.VectorField).
			WithDataType(entity.FieldTypeFloatVector).
			WithDim(int64(schema.Dimension))).
		WithField(entity.NewField().
			WithName(schema.SparseField).
			WithDataType(entity.FieldTypeSparseVector))

	for _, f := range schema.MetaFields {
		maxLen := f.MaxLen
		if maxLen <= 0 {
			maxLen = 1024
		}
		collSchema.WithField(entity.NewField().
			WithName(f.Name).
			WithDataType(entity.FieldTypeVarChar).
			WithMaxLength(int64(maxLen)))
	}

	collSchema.WithFunction(entity.NewFunction().
		WithName(schema.TextField + "_bm25").
		WithInputFields(schema.TextField).
		WithOutputFields(schema.SparseField).
		WithType(entity.FunctionTypeBM25))

	if err := c.client.CreateCollection(ctx, milvusclient.NewCreateCollectionOption(schema.Name, collSchema)); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	indexes := map[string]index.Index{
		schema.VectorField: index.NewHNSWIndex(entity.COSINE, 16, 200),
		schema.SparseField: index.NewSparseInvertedIndex(entity.BM25, 0.2),
	}
	for field, idx := range indexes {
		task, err := c.client.CreateIndex(ctx, milvusclient.NewCreateIndexOption(schema.Name, field, idx))
		if err != nil {
			return fmt.Errorf("failed to create index on %s: %w", field, err)
		}
		if err := task.Await(ctx); err != nil {
			return fmt.Errorf("failed to wait for index on %s: %w", field, err)
		}
	}

	logger.Infow("milvus collection created", "collection", schema.Name, "dimension", schema.Dimension)
	return c.load(ctx, schema.Name)
}

func (c *Client) load(ctx context.Context, collection string) error {
	task, err := c.client.LoadCollection(ctx, milvusclient.NewLoadCollectionOption(collection))
	if err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}
	if err := task.Await(ctx); err != nil {
		return fmt.Errorf("failed to wait for collection loading: %w", err)
	}
	return nil
}

// UpsertData 是按列组织的待写入数据，所有列长度必须一致。
type UpsertData struct {
	IDField     string
	IDs         []string
	VectorField string
	Vectors     [][]float32
	VarChars    map[string][]string
}

// Upsert 按主键写入或覆盖实体并刷新，使数据立即可见。
func (c *Client) Upsert(ctx context.Context, collection string, data *UpsertData) (int64, error) {
	if len(data.IDs) == 0 {
		return 0, nil
	}
	if len(data.Vectors) != len(data.IDs) {
		return 0, fmt.Errorf("upsert: %d ids but %d vectors", len(data.IDs), len(data.Vectors))
	}

	columns := make([]column.Column, 0, len(data.VarChars)+2)
	columns = append(columns,
		column.NewColumnVarChar(data.IDField, data.IDs),
		column.NewColumnFloatVector(data.VectorField, len(data.Vectors[0]), data.Vectors),
	)
	for name, values := range data.VarChars {
		if len(values) != len(data.IDs) {
			return 0, fmt.Errorf("upsert: column %s has %d values, want %d", name, len(values), len(data.IDs))
		}
		columns = append(columns, column.NewColumnVarChar(name, values))
	}

	result, err := c.client.Upsert(ctx, milvusclient.NewColumnBasedInsertOption(collection, columns...))
	if err != nil {
		return 0, fmt.Errorf("failed to upsert data: %w", err)
	}

	if err := c.Flush(ctx, collection); err != nil {
		return result.UpsertCount, err
	}
	return result.UpsertCount, nil
}

// Flush 刷新集合。
func (c *Client) Flush(ctx context.Context, collection string) error {
	task, err := c.client.Flush(ctx, milvusclient.NewFlushOption(collection))
	if err != nil {
		return fmt.Errorf("failed to flush collection: %w", err)
	}
	if err := task.Await(ctx); err != nil {
		return fmt.Errorf("failed to wait for flush: %w", err)
	}
	return nil
}

// HybridSearchRequest 描述一次词法加向量的混合检索。
type HybridSearchRequest struct {
	Text         string
	SparseField  string
	Vector       []float32
	VectorField  string
	Filter       string
	TopK         int
	OutputFields []string
}

// Hit 是一条检索结果。
type Hit struct {
	ID     string
	Score  float32
	Fields map[string]string
}

// HybridSearch 同时执行 BM25 与稠密向量检索，并以 RRF 融合排序。
func (c *Client) HybridSearch(ctx context.Context, collection string, req *HybridSearchRequest) ([]Hit, error) {
	dense := milvusclient.NewAnnRequest(req.VectorField, req.TopK, entity.FloatVector(req.Vector))
	lexical := milvusclient.NewAnnRequest(req.SparseField, req.TopK, entity.Text(req.Text))
	if req.Filter != "" {
		dense = dense.WithFilter(req.Filter)
		lexical = lexical.WithFilter(req.Filter)
	}

	results, err := c.client.HybridSearch(ctx, milvusclient.NewHybridSearchOption(collection, req.TopK, lexical, dense).
		WithReranker(milvusclient.NewRRFReranker()).
		WithOutputFields(req.OutputFields...))
	if err != nil {
		return nil, fmt.Errorf("failed to hybrid search: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}

	rs := results[0]
	hits := make([]Hit, 0, rs.ResultCount)
	for i := 0; i < rs.ResultCount; i++ {
		hit := Hit{Fields: readFields(rs, i, req.OutputFields)}
		if rs.IDs != nil {
			hit.ID, _ = rs.IDs.GetAsString(i)
		}
		if i < len(rs.Scores) {
			hit.Score = rs.Scores[i]
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// Query 按过滤表达式查询实体，返回每个实体的字段值。
func (c *Client) Query(ctx context.Context, collection, filter string, outputFields []string, limit int) ([]map[string]string, error) {
	opt := milvusclient.NewQueryOption(collection).
		WithFilter(filter).
		WithOutputFields(outputFields...)
	if limit > 0 {
		opt = opt.WithLimit(limit)
	}

	rs, err := c.client.Query(ctx, opt)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}

	rows := make([]map[string]string, 0, rs.ResultCount)
	for i := 0; i < rs.ResultCount; i++ {
		rows = append(rows, readFields(rs, i, outputFields))
	}
	return rows, nil
}

func readFields(rs milvusclient.ResultSet, i int, fields []string) map[string]string {
	out := make(map[string]string, len(fields))
	for _, name := range fields {
		col := rs.GetColumn(name)
		if col == nil {
			continue
		}
		if v, err := col.GetAsString(i); err == nil {
			out[name] = v
		}
	}
	return out
}

// DeleteByIDs 按字符串主键删除实体，返回删除数量。
func (c *Client) DeleteByIDs(ctx context.Context, collection, idField string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result, err := c.client.Delete(ctx, milvusclient.NewDeleteOption(collection).WithStringIDs(idField, ids))
	if err != nil {
		return 0, fmt.Errorf("failed to delete by ids: %w", err)
	}
	return result.DeleteCount, nil
}

// DropCollection drops a collection.
func (c *Client) DropCollection(ctx context.Context, collection string) error {
	if err := c.client.DropCollection(ctx, milvusclient.NewDropCollectionOption(collection)); err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}
	return nil
}

// GetCollectionStats returns the number of entities in a collection.
func (c *Client) GetCollectionStats(ctx context.Context, collection string) (int64, error) {
	stats, err := c.client.GetCollectionStats(ctx, milvusclient.NewGetCollectionStatsOption(collection))
	if err != nil {
		return 0, fmt.Errorf("failed to get collection stats: %w", err)
	}

	if val, ok := stats["row_count"]; ok {
		return strconv.ParseInt(val, 10, 64)
	}
	return 0, nil
}
