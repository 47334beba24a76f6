package biz

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kart-io/ieum/internal/ieum/blob"
	"github.com/kart-io/ieum/internal/ieum/store"
	"github.com/kart-io/ieum/internal/pkg/extract"
	"github.com/kart-io/ieum/internal/pkg/textutil"
	"github.com/kart-io/ieum/pkg/infra/pool"
	"github.com/kart-io/ieum/pkg/llm"
	"github.com/kart-io/ieum/pkg/utils/errors"
	"github.com/kart-io/logger"
)

// maxQueryLimit 是单次索引查询的条目上限。
const maxQueryLimit = 16384

// IngestConfig 摄取配置。
type IngestConfig struct {
	// ChunkSize 分块大小（字符数）。
	ChunkSize int
	// ChunkOverlap 分块重叠（字符数）。
	ChunkOverlap int
	// EmbedBatchSize 每次嵌入请求的分块数。
	EmbedBatchSize int
	// ReplaceExisting 写入前删除同一文件的旧条目。
	ReplaceExisting bool
	// LockTTL 单文件锁过期时间。
	LockTTL time.Duration
}

// DefaultIngestConfig 返回默认摄取配置。
func DefaultIngestConfig() *IngestConfig {
	return &IngestConfig{
		ChunkSize:       1000,
		ChunkOverlap:    100,
		EmbedBatchSize:  16,
		ReplaceExisting: true,
		LockTTL:         10 * time.Minute,
	}
}

// IngestRequest 描述一次摄取。
type IngestRequest struct {
	// FilePath 本地文件路径。
	FilePath string
	// FileName 文件名，即文件标识；为空时取 FilePath 的文件名。
	FileName string
	// Category 文件类别，同时是对象存储容器。
	Category Category
}

// EntryFailure 是单个索引条目的写入失败。
type EntryFailure struct {
	ID    string `json:"id"`
	Index int    `json:"index"`
	Error string `json:"error"`
}

// IngestReport 是摄取结果。
type IngestReport struct {
	FileName string         `json:"file_name"`
	Category Category       `json:"category"`
	FileURL  string         `json:"file_url"`
	Size     string         `json:"size"`
	Chunks   int            `json:"chunks"`
	Indexed  int            `json:"indexed"`
	Removed  int64          `json:"removed"`
	Failures []EntryFailure `json:"failures,omitempty"`
}

// Ingestor 将文件发布为已索引的分块。
type Ingestor struct {
	blobs     blob.ObjectStore
	index     store.SearchIndex
	embedder  llm.EmbeddingProvider
	extractor *extract.Extractor
	pool      *pool.Pool
	locker    Locker
	config    *IngestConfig
	now       func() time.Time
}

// NewIngestor 创建摄取器。
func NewIngestor(
	blobs blob.ObjectStore,
	index store.SearchIndex,
	embedder llm.EmbeddingProvider,
	extractor *extract.Extractor,
	workers *pool.Pool,
	locker Locker,
	config *IngestConfig,
) *Ingestor {
	if config == nil {
		config = DefaultIngestConfig()
	}
	return &Ingestor{
		blobs:     blobs,
		index:     index,
		embedder:  embedder,
		extractor: extractor,
		pool:      workers,
		locker:    locker,
		config:    config,
		now:       time.Now,
	}
}

// Ingest 上传文件、提取文本、切分、嵌入并批量写入索引。
func (i *Ingestor) Ingest(ctx context.Context, req *IngestRequest) (*IngestReport, error) {
	name := req.FileName
	if name == "" {
		name = filepath.Base(req.FilePath)
	}
	if err := CheckExtension(req.Category, name); err != nil {
		return nil, err
	}
	if err := textutil.ValidateChunkConfig(i.config.ChunkSize, i.config.ChunkOverlap); err != nil {
		return nil, err
	}

	release, err := i.locker.TryLock(ctx, ingestLockKey(req.Category, name), i.config.LockTTL)
	if err != nil {
		return nil, err
	}
	defer release()

	container := string(req.Category)
	report := &IngestReport{FileName: name, Category: req.Category}

	// 1. 上传原文件
	fileURL, size, err := i.upload(ctx, container, name, req.FilePath)
	if err != nil {
		return nil, err
	}
	report.FileURL = fileURL
	report.Size = textutil.HumanSize(size)

	// 2. 提取并切分
	text := i.extractor.Extract(req.FilePath, extract.KindOf(name))
	chunks, err := textutil.SplitIntoChunks(text, i.config.ChunkSize, i.config.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	report.Chunks = len(chunks)

	// 3. 嵌入
	vectors, err := i.embed(ctx, chunks)
	if err != nil {
		return nil, errors.ErrExternalService.WithCause(fmt.Errorf("embed %s: %w", name, err))
	}

	createdAt := i.now().UTC().Format(time.RFC3339)
	docs := make([]store.Document, len(chunks))
	for idx, chunk := range chunks {
		docs[idx] = store.Document{
			ID:        textutil.EncodeChunkID(fileURL, idx),
			Title:     name,
			Content:   chunk,
			Category:  container,
			FileURL:   fileURL,
			CreatedAt: createdAt,
			Size:      report.Size,
			Vector:    vectors[idx],
		}
	}

	// 4. 清理旧版本留下的条目
	if i.config.ReplaceExisting {
		removed, err := i.removeStale(ctx, name, container, docs)
		if err != nil {
			return nil, err
		}
		report.Removed = removed
	}

	// 5. 批量写入
	if len(docs) == 0 {
		logger.Warnw("no text extracted, nothing indexed", "file", name, "category", container)
		return report, nil
	}

	results, uploadErr := i.index.Upload(ctx, docs)
	for idx, r := range results {
		if r.Succeeded {
			report.Indexed++
			continue
		}
		msg := "unknown error"
		if r.Err != nil {
			msg = r.Err.Error()
		}
		report.Failures = append(report.Failures, EntryFailure{ID: r.ID, Index: idx, Error: msg})
		logger.Warnw("index entry failed", "file", name, "chunk", idx, "id", r.ID, "error", msg)
	}
	if uploadErr != nil {
		return report, errors.ErrExternalService.WithCause(uploadErr)
	}

	logger.Infow("document ingested",
		"file", name,
		"category", container,
		"chunks", report.Chunks,
		"indexed", report.Indexed,
		"failed", len(report.Failures),
		"removed", report.Removed,
	)
	return report, nil
}

func (i *Ingestor) upload(ctx context.Context, container, name, path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, errors.ErrIngestFailed.WithCause(err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return "", 0, errors.ErrIngestFailed.WithCause(err)
	}

	if err := i.blobs.EnsureContainer(ctx, container); err != nil {
		return "", 0, errors.ErrExternalService.WithCause(err)
	}
	fileURL, err := i.blobs.Upload(ctx, container, name, f, true)
	if err != nil {
		return "", 0, errors.ErrExternalService.WithCause(err)
	}
	return fileURL, fi.Size(), nil
}

// embed 按批并发请求嵌入，结果与分块一一对应。
func (i *Ingestor) embed(ctx context.Context, chunks []string) ([][]float32, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	batch := i.config.EmbedBatchSize
	if batch <= 0 {
		batch = len(chunks)
	}
	batches := (len(chunks) + batch - 1) / batch
	vectors := make([][]float32, len(chunks))

	errs := i.pool.Map(ctx, batches, func(ctx context.Context, b int) error {
		start := b * batch
		end := start + batch
		if end > len(chunks) {
			end = len(chunks)
		}
		out, err := i.embedder.Embed(ctx, chunks[start:end])
		if err != nil {
			return err
		}
		if len(out) != end-start {
			return fmt.Errorf("embedding batch %d: got %d vectors for %d texts", b, len(out), end-start)
		}
		copy(vectors[start:end], out)
		return nil
	})
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return vectors, nil
}

// removeStale 删除同一文件在该类别下、不在新条目集合中的旧条目。
func (i *Ingestor) removeStale(ctx context.Context, name, category string, docs []store.Document) (int64, error) {
	existing, err := i.index.Query(ctx, store.TitleFilter(name), maxQueryLimit)
	if err != nil {
		return 0, errors.ErrExternalService.WithCause(fmt.Errorf("query prior entries of %s: %w", name, err))
	}

	keep := make(map[string]struct{}, len(docs))
	for _, d := range docs {
		keep[d.ID] = struct{}{}
	}

	var stale []string
	for _, d := range existing {
		if d.Category != category {
			continue
		}
		if _, ok := keep[d.ID]; !ok {
			stale = append(stale, d.ID)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}

	n, err := i.index.Delete(ctx, stale)
	if err != nil {
		return 0, errors.ErrExternalService.WithCause(fmt.Errorf("delete prior entries of %s: %w", name, err))
	}
	logger.Infow("removed stale index entries", "file", name, "category", category, "count", n)
	return n, nil
}
