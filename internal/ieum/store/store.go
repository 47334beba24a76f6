package store

import (
	"context"
)

// 索引字段名。
const (
	FieldID        = "id"
	FieldTitle     = "title"
	FieldContent   = "content"
	FieldCategory  = "category"
	FieldFileURL   = "file_url"
	FieldVector    = "content_vector"
	FieldSparse    = "content_sparse"
	FieldCreatedAt = "created_at"
	FieldSize      = "size"
)

// MetaFields 是除主键、内容和向量之外的字段。
var MetaFields = []string{FieldTitle, FieldCategory, FieldFileURL, FieldCreatedAt, FieldSize}

// OutputFields 是检索返回的字段。
var OutputFields = []string{FieldID, FieldTitle, FieldContent, FieldCategory, FieldCreatedAt, FieldFileURL, FieldSize}

// Document 是索引条目。
type Document struct {
	// ID URL 安全的确定性主键。
	ID string `json:"id"`
	// Title 所属文件名。
	Title string `json:"title"`
	// Content 分块文本。
	Content string `json:"content"`
	// Category 所属类别。
	Category string `json:"category"`
	// FileURL 原文件的对象存储地址。
	FileURL string `json:"file_url"`
	// CreatedAt ISO-8601 时间。
	CreatedAt string `json:"created_at"`
	// Size 文件大小标签。
	Size string `json:"size"`
	// Vector 内容嵌入向量。
	Vector []float32 `json:"-"`
	// Score 检索得分，仅检索结果有效。
	Score float32 `json:"score,omitempty"`
}

// UploadResult 是单个条目的写入结果。
type UploadResult struct {
	ID        string
	Succeeded bool
	Err       error
}

// SearchRequest 描述一次混合检索。
type SearchRequest struct {
	// Text 词法匹配使用的原始查询文本。
	Text string
	// Vector 查询向量。
	Vector []float32
	// Filter 过滤条件，零值表示不过滤。
	Filter Filter
	// TopK 返回数量。
	TopK int
}

// SearchIndex 定义检索索引接口。
type SearchIndex interface {
	// Upload 以一次批量调用写入条目，相同 ID 覆盖旧值，按条目返回结果。
	Upload(ctx context.Context, docs []Document) ([]UploadResult, error)

	// Search 执行词法加向量的混合检索。
	Search(ctx context.Context, req SearchRequest) ([]Document, error)

	// Query 返回满足过滤条件的条目（不含向量）。
	Query(ctx context.Context, filter Filter, limit int) ([]Document, error)

	// Delete 按 ID 批量删除，返回删除数量。
	Delete(ctx context.Context, ids []string) (int64, error)
}

// Failed 返回失败条目。
func Failed(results []UploadResult) []UploadResult {
	var failed []UploadResult
	for _, r := range results {
		if !r.Succeeded {
			failed = append(failed, r)
		}
	}
	return failed
}
