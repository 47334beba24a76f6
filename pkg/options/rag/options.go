// Package rag provides ingestion, retrieval and minutes generation options.
package rag

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/ieum/pkg/options"
)

var (
	_ options.IOptions = (*IngestOptions)(nil)
	_ options.IOptions = (*RetrievalOptions)(nil)
	_ options.IOptions = (*MinutesOptions)(nil)
)

// IngestOptions 摄取流水线配置。
type IngestOptions struct {
	// ChunkSize 分块窗口大小（字符数）。
	ChunkSize int `json:"chunk-size" mapstructure:"chunk-size"`

	// ChunkOverlap 相邻分块的重叠字符数。
	ChunkOverlap int `json:"chunk-overlap" mapstructure:"chunk-overlap"`

	// EmbedBatchSize 每次嵌入请求的分块数。
	EmbedBatchSize int `json:"embed-batch-size" mapstructure:"embed-batch-size"`

	// EmbedConcurrency 进程内并发嵌入请求上限。
	EmbedConcurrency int `json:"embed-concurrency" mapstructure:"embed-concurrency"`

	// ReplaceExisting 重新摄取前删除同名文件的旧条目。
	ReplaceExisting bool `json:"replace-existing" mapstructure:"replace-existing"`

	// LockTTL 单文件摄取锁的过期时间。
	LockTTL time.Duration `json:"lock-ttl" mapstructure:"lock-ttl"`

	// TempDir 上传文件的临时目录。
	TempDir string `json:"temp-dir" mapstructure:"temp-dir"`

	// PreflightPDF 提取前用 pdfcpu 校验 PDF，校验失败的文件不提取。
	PreflightPDF bool `json:"preflight-pdf" mapstructure:"preflight-pdf"`
}

// NewIngestOptions 创建默认摄取配置。
func NewIngestOptions() *IngestOptions {
	return &IngestOptions{
		ChunkSize:        1000,
		ChunkOverlap:     100,
		EmbedBatchSize:   16,
		EmbedConcurrency: 4,
		ReplaceExisting:  true,
		LockTTL:          10 * time.Minute,
		PreflightPDF:     true,
	}
}

// AddFlags adds flags for ingestion options to the specified FlagSet.
func (o *IngestOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...)
	fs.IntVar(&o.ChunkSize, p+"chunk-size", o.ChunkSize, "Chunk window size in characters.")
	fs.IntVar(&o.ChunkOverlap, p+"chunk-overlap", o.ChunkOverlap, "Overlap between adjacent chunks in characters.")
	fs.IntVar(&o.EmbedBatchSize, p+"embed-batch-size", o.EmbedBatchSize, "Chunks per embedding request.")
	fs.IntVar(&o.EmbedConcurrency, p+"embed-concurrency", o.EmbedConcurrency, "Concurrent embedding requests across all ingestions.")
	fs.BoolVar(&o.ReplaceExisting, p+"replace-existing", o.ReplaceExisting, "Delete prior index entries of the same file before re-indexing.")
	fs.DurationVar(&o.LockTTL, p+"lock-ttl", o.LockTTL, "Expiry of the per-file ingestion lock.")
	fs.StringVar(&o.TempDir, p+"temp-dir", o.TempDir, "Directory for temporary upload files (defaults to the OS temp dir).")
	fs.BoolVar(&o.PreflightPDF, p+"preflight-pdf", o.PreflightPDF, "Validate PDFs with pdfcpu before text extraction; invalid files yield no text.")
}

// Validate validates the ingestion options.
func (o *IngestOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("ingest.chunk-size must be positive"))
	}
	if o.ChunkOverlap < 0 || o.ChunkOverlap >= o.ChunkSize {
		errs = append(errs, fmt.Errorf("ingest.chunk-overlap must satisfy 0 <= overlap < chunk-size, got %d", o.ChunkOverlap))
	}
	if o.EmbedBatchSize <= 0 {
		errs = append(errs, fmt.Errorf("ingest.embed-batch-size must be positive"))
	}
	if o.EmbedConcurrency <= 0 {
		errs = append(errs, fmt.Errorf("ingest.embed-concurrency must be positive"))
	}
	if o.LockTTL <= 0 {
		errs = append(errs, fmt.Errorf("ingest.lock-ttl must be positive"))
	}
	return errs
}

// Complete 补全临时目录。
func (o *IngestOptions) Complete() error {
	if o.TempDir == "" {
		o.TempDir = filepath.Join(os.TempDir(), "ieum-rag")
	}
	return os.MkdirAll(o.TempDir, 0o755)
}

// RetrievalOptions 检索配置。
type RetrievalOptions struct {
	// TopK 混合检索返回的文档数。
	TopK int `json:"top-k" mapstructure:"top-k"`

	// IndexBackend 检索索引后端（milvus|memory）。
	IndexBackend string `json:"index-backend" mapstructure:"index-backend"`
}

// NewRetrievalOptions 创建默认检索配置。
func NewRetrievalOptions() *RetrievalOptions {
	return &RetrievalOptions{
		TopK:         3,
		IndexBackend: "milvus",
	}
}

// AddFlags adds flags for retrieval options to the specified FlagSet.
func (o *RetrievalOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...)
	fs.IntVar(&o.TopK, p+"top-k", o.TopK, "Number of documents retrieved per question.")
	fs.StringVar(&o.IndexBackend, p+"index-backend", o.IndexBackend, "Search index backend (milvus|memory).")
}

// Validate validates the retrieval options.
func (o *RetrievalOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.TopK <= 0 {
		errs = append(errs, fmt.Errorf("retrieval.top-k must be positive"))
	}
	switch o.IndexBackend {
	case "milvus", "memory":
	default:
		errs = append(errs, fmt.Errorf("retrieval.index-backend must be milvus or memory, got %q", o.IndexBackend))
	}
	return errs
}

// MinutesOptions 会议纪要生成配置。
type MinutesOptions struct {
	// TemplateContainer 模板所在的容器（类别）。
	TemplateContainer string `json:"template-container" mapstructure:"template-container"`

	// DefaultTemplate 默认模板文件名，为空时取最近更新的 .docx。
	DefaultTemplate string `json:"default-template" mapstructure:"default-template"`
}

// NewMinutesOptions 创建默认纪要配置。
func NewMinutesOptions() *MinutesOptions {
	return &MinutesOptions{
		TemplateContainer: "style",
	}
}

// AddFlags adds flags for minutes options to the specified FlagSet.
func (o *MinutesOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...)
	fs.StringVar(&o.TemplateContainer, p+"template-container", o.TemplateContainer, "Container holding minutes templates.")
	fs.StringVar(&o.DefaultTemplate, p+"default-template", o.DefaultTemplate, "Template file name used when a request names none.")
}

// Validate validates the minutes options.
func (o *MinutesOptions) Validate() []error {
	if o == nil {
		return nil
	}
	if o.TemplateContainer == "" {
		return []error{fmt.Errorf("minutes.template-container cannot be empty")}
	}
	return nil
}
