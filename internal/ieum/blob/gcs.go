package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"cloud.google.com/go/storage"
	"github.com/kart-io/logger"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	blobopts "github.com/kart-io/ieum/pkg/options/blob"
)

var _ ObjectStore = (*GCSStore)(nil)

// GCSStore 以单个桶承载所有容器，容器映射为对象前缀 <container>/。
type GCSStore struct {
	client   *storage.Client
	bucket   *storage.BucketHandle
	opts     *blobopts.Options
	ensureMu sync.Mutex
	bucketOK bool
}

// NewGCSStore 创建 GCS 对象存储。
func NewGCSStore(ctx context.Context, opts *blobopts.Options) (*GCSStore, error) {
	var clientOpts []option.ClientOption
	if opts.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	}

	client, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gcs client: %w", err)
	}

	return &GCSStore{
		client: client,
		bucket: client.Bucket(opts.Bucket),
		opts:   opts,
	}, nil
}

// Close 关闭客户端。
func (s *GCSStore) Close() error {
	return s.client.Close()
}

// EnsureContainer 检查桶存在，不存在且配置了项目时创建。
func (s *GCSStore) EnsureContainer(ctx context.Context, container string) error {
	if err := validateName(container, "_"); err != nil {
		return err
	}

	s.ensureMu.Lock()
	defer s.ensureMu.Unlock()
	if s.bucketOK {
		return nil
	}

	_, err := s.bucket.Attrs(ctx)
	switch {
	case err == nil:
	case errors.Is(err, storage.ErrBucketNotExist):
		if s.opts.ProjectID == "" {
			return fmt.Errorf("gcs bucket %s does not exist and no project id is configured", s.opts.Bucket)
		}
		if err := s.bucket.Create(ctx, s.opts.ProjectID, nil); err != nil && !isStatus(err, http.StatusConflict) {
			return fmt.Errorf("failed to create gcs bucket %s: %w", s.opts.Bucket, err)
		}
		logger.Infow("gcs bucket created", "bucket", s.opts.Bucket, "project", s.opts.ProjectID)
	default:
		return fmt.Errorf("failed to get gcs bucket attrs: %w", err)
	}

	s.bucketOK = true
	return nil
}

// Upload 写入对象。
func (s *GCSStore) Upload(ctx context.Context, container, name string, r io.Reader, overwrite bool) (string, error) {
	if err := validateName(container, name); err != nil {
		return "", err
	}

	obj := s.bucket.Object(objectKey(container, name))
	if !overwrite {
		obj = obj.If(storage.Conditions{DoesNotExist: true})
	}

	w := obj.NewWriter(ctx)
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to write gcs object %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		if isStatus(err, http.StatusPreconditionFailed) {
			return "", ErrObjectExists
		}
		return "", fmt.Errorf("failed to finalize gcs object %s: %w", name, err)
	}
	return s.URL(container, name), nil
}

// URL 返回对象公开地址。
func (s *GCSStore) URL(container, name string) string {
	base := s.opts.PublicBaseURL
	if base == "" {
		base = "https://storage.googleapis.com/" + s.opts.Bucket
	}
	return base + "/" + url.PathEscape(container) + "/" + url.PathEscape(name)
}

// List 列出容器前缀下的对象。
func (s *GCSStore) List(ctx context.Context, container string) ([]ObjectInfo, error) {
	prefix := container + "/"
	it := s.bucket.Objects(ctx, &storage.Query{Prefix: prefix})

	var infos []ObjectInfo
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list gcs objects: %w", err)
		}
		name := strings.TrimPrefix(attrs.Name, prefix)
		if name == "" || strings.Contains(name, "/") {
			continue
		}
		infos = append(infos, ObjectInfo{
			Name:    name,
			Size:    attrs.Size,
			Updated: attrs.Updated,
			URL:     s.URL(container, name),
		})
	}
	return infos, nil
}

// Download 读取对象。
func (s *GCSStore) Download(ctx context.Context, container, name string, w io.Writer) error {
	if err := validateName(container, name); err != nil {
		return err
	}

	r, err := s.bucket.Object(objectKey(container, name)).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return ErrObjectNotExist
	}
	if err != nil {
		return fmt.Errorf("failed to open gcs object %s: %w", name, err)
	}
	defer r.Close()

	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("failed to read gcs object %s: %w", name, err)
	}
	return nil
}

// Delete 删除对象。
func (s *GCSStore) Delete(ctx context.Context, container, name string) error {
	if err := validateName(container, name); err != nil {
		return err
	}

	err := s.bucket.Object(objectKey(container, name)).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return ErrObjectNotExist
	}
	if err != nil {
		return fmt.Errorf("failed to delete gcs object %s: %w", name, err)
	}
	return nil
}

// Exists 判断对象是否存在。
func (s *GCSStore) Exists(ctx context.Context, container, name string) (bool, error) {
	if err := validateName(container, name); err != nil {
		return false, err
	}

	_, err := s.bucket.Object(objectKey(container, name)).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat gcs object %s: %w", name, err)
	}
	return true, nil
}

func isStatus(err error, code int) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == code
}
