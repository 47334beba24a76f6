package biz

import (
	"context"
	"sort"

	"github.com/kart-io/ieum/internal/ieum/store"
	"github.com/kart-io/ieum/pkg/utils/errors"
)

// listFilesLimit 是文件列表扫描的条目上限。
const listFilesLimit = 1000

// FileInfo 是已索引文件的摘要。
type FileInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Date     string `json:"date"`
	URL      string `json:"url"`
	Size     string `json:"size"`
}

// ListFiles 按 (标题, 类别) 去重列出已索引文件。
func ListFiles(ctx context.Context, index store.SearchIndex) ([]FileInfo, error) {
	docs, err := index.Query(ctx, store.Filter{}, listFilesLimit)
	if err != nil {
		return nil, errors.ErrExternalService.WithCause(err)
	}

	type key struct{ title, category string }
	seen := make(map[key]struct{}, len(docs))
	files := make([]FileInfo, 0)
	for _, d := range docs {
		k := key{d.Title, d.Category}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}

		files = append(files, FileInfo{
			ID:       d.ID,
			Name:     d.Title,
			Category: d.Category,
			Date:     dateOf(d.CreatedAt),
			URL:      d.FileURL,
			Size:     d.Size,
		})
	}

	sort.SliceStable(files, func(i, j int) bool {
		if files[i].Date != files[j].Date {
			return files[i].Date > files[j].Date
		}
		return files[i].Name < files[j].Name
	})
	return files, nil
}
