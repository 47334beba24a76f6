package biz

import (
	"context"
	stderrors "errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/kart-io/ieum/internal/ieum/blob"
	"github.com/kart-io/ieum/internal/ieum/store"
	"github.com/kart-io/ieum/pkg/utils/errors"
	"github.com/kart-io/logger"
)

// DeleteReport 是删除结果。
type DeleteReport struct {
	FileName       string `json:"file_name"`
	Category       string `json:"category"`
	BlobDeleted    bool   `json:"blob_deleted"`
	EntriesFound   int    `json:"entries_found"`
	EntriesDeleted int64  `json:"entries_deleted"`
}

// Deleter 同步删除对象存储中的文件和索引中的条目。
type Deleter struct {
	blobs blob.ObjectStore
	index store.SearchIndex
}

// NewDeleter 创建删除管理器。
func NewDeleter(blobs blob.ObjectStore, index store.SearchIndex) *Deleter {
	return &Deleter{blobs: blobs, index: index}
}

// Delete 并发执行两个独立步骤：删除对象（不存在时跳过）和按标题删除索引条目。
// 任一步骤失败不影响另一步骤，两者的错误合并返回。
func (d *Deleter) Delete(ctx context.Context, filename string, category Category) (*DeleteReport, error) {
	if filename == "" {
		return nil, errors.ErrInvalidRequest.WithMessage("filename is required")
	}

	report := &DeleteReport{FileName: filename, Category: string(category)}
	var blobErr, indexErr error

	// 两个步骤互不取消，使用不带 ctx 派生的 Group。
	var g errgroup.Group
	g.Go(func() error {
		blobErr = d.deleteBlob(ctx, filename, string(category), report)
		return nil
	})
	g.Go(func() error {
		indexErr = d.deleteEntries(ctx, filename, report)
		return nil
	})
	_ = g.Wait()

	if err := stderrors.Join(blobErr, indexErr); err != nil {
		return report, errors.ErrDeleteFailed.WithCause(err)
	}
	return report, nil
}

func (d *Deleter) deleteBlob(ctx context.Context, filename, container string, report *DeleteReport) error {
	ok, err := d.blobs.Exists(ctx, container, filename)
	if err != nil {
		logger.Warnw("blob existence check failed", "file", filename, "container", container, "error", err.Error())
		return fmt.Errorf("check blob: %w", err)
	}
	if !ok {
		logger.Infow("blob not found, skipping", "file", filename, "container", container)
		return nil
	}

	if err := d.blobs.Delete(ctx, container, filename); err != nil && !stderrors.Is(err, blob.ErrObjectNotExist) {
		logger.Warnw("blob delete failed", "file", filename, "container", container, "error", err.Error())
		return fmt.Errorf("delete blob: %w", err)
	}
	report.BlobDeleted = true
	logger.Infow("blob deleted", "file", filename, "container", container)
	return nil
}

func (d *Deleter) deleteEntries(ctx context.Context, filename string, report *DeleteReport) error {
	docs, err := d.index.Query(ctx, store.TitleFilter(filename), maxQueryLimit)
	if err != nil {
		logger.Warnw("index query failed", "file", filename, "error", err.Error())
		return fmt.Errorf("query entries: %w", err)
	}

	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		ids = append(ids, doc.ID)
	}
	report.EntriesFound = len(ids)
	if len(ids) == 0 {
		logger.Infow("no index entries to delete", "file", filename)
		return nil
	}

	n, err := d.index.Delete(ctx, ids)
	if err != nil {
		logger.Warnw("index delete failed", "file", filename, "entries", len(ids), "error", err.Error())
		return fmt.Errorf("delete entries: %w", err)
	}
	report.EntriesDeleted = n
	logger.Infow("index entries deleted", "file", filename, "count", n)
	return nil
}
