package blob

import (
	"context"
	"fmt"

	blobopts "github.com/kart-io/ieum/pkg/options/blob"
)

// New 按配置的后端创建对象存储。
func New(ctx context.Context, opts *blobopts.Options) (ObjectStore, error) {
	switch opts.Backend {
	case blobopts.BackendGCS:
		return NewGCSStore(ctx, opts)
	case blobopts.BackendLocal:
		return NewLocalStore(opts)
	default:
		return nil, fmt.Errorf("unsupported blob backend %q", opts.Backend)
	}
}
