package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	blobopts "github.com/kart-io/ieum/pkg/options/blob"
)

var _ ObjectStore = (*LocalStore)(nil)

// LocalStore 将容器映射为 BaseDir 下的子目录。
type LocalStore struct {
	baseDir       string
	publicBaseURL string
}

// NewLocalStore 创建本地目录对象存储。
func NewLocalStore(opts *blobopts.Options) (*LocalStore, error) {
	base, err := filepath.Abs(opts.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve blob base dir: %w", err)
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create blob base dir: %w", err)
	}
	return &LocalStore{
		baseDir:       base,
		publicBaseURL: strings.TrimRight(opts.PublicBaseURL, "/"),
	}, nil
}

// Close 本地目录没有需要释放的资源。
func (s *LocalStore) Close() error {
	return nil
}

// Path 返回对象在本地的文件路径。
func (s *LocalStore) Path(container, name string) string {
	return filepath.Join(s.baseDir, container, name)
}

// EnsureContainer 创建容器目录。
func (s *LocalStore) EnsureContainer(_ context.Context, container string) error {
	if err := validateName(container, "_"); err != nil {
		return err
	}
	return os.MkdirAll(filepath.Join(s.baseDir, container), 0o755)
}

// Upload 写入对象，覆盖时先写临时文件再替换。
func (s *LocalStore) Upload(_ context.Context, container, name string, r io.Reader, overwrite bool) (string, error) {
	if err := validateName(container, name); err != nil {
		return "", err
	}
	target := s.Path(container, name)

	if !overwrite {
		f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			return "", ErrObjectExists
		}
		if err != nil {
			return "", fmt.Errorf("failed to create object %s: %w", name, err)
		}
		if _, err := io.Copy(f, r); err != nil {
			_ = f.Close()
			_ = os.Remove(target)
			return "", fmt.Errorf("failed to write object %s: %w", name, err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("failed to close object %s: %w", name, err)
		}
		return s.URL(container, name), nil
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), "."+name+".*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp object %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("failed to write object %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close object %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", fmt.Errorf("failed to publish object %s: %w", name, err)
	}
	return s.URL(container, name), nil
}

// URL 返回对象地址，未配置公开地址时为 file:// URL。
func (s *LocalStore) URL(container, name string) string {
	if s.publicBaseURL != "" {
		return s.publicBaseURL + "/" + url.PathEscape(container) + "/" + url.PathEscape(name)
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(s.Path(container, name))}).String()
}

// List 列出容器内的普通文件，跳过临时文件。
func (s *LocalStore) List(_ context.Context, container string) ([]ObjectInfo, error) {
	if err := validateName(container, "_"); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(filepath.Join(s.baseDir, container))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list container %s: %w", container, err)
	}

	infos := make([]ObjectInfo, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		infos = append(infos, ObjectInfo{
			Name:    e.Name(),
			Size:    fi.Size(),
			Updated: fi.ModTime(),
			URL:     s.URL(container, e.Name()),
		})
	}
	return infos, nil
}

// Download 读取对象。
func (s *LocalStore) Download(_ context.Context, container, name string, w io.Writer) error {
	if err := validateName(container, name); err != nil {
		return err
	}

	f, err := os.Open(s.Path(container, name))
	if errors.Is(err, fs.ErrNotExist) {
		return ErrObjectNotExist
	}
	if err != nil {
		return fmt.Errorf("failed to open object %s: %w", name, err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to read object %s: %w", name, err)
	}
	return nil
}

// Delete 删除对象。
func (s *LocalStore) Delete(_ context.Context, container, name string) error {
	if err := validateName(container, name); err != nil {
		return err
	}

	err := os.Remove(s.Path(container, name))
	if errors.Is(err, fs.ErrNotExist) {
		return ErrObjectNotExist
	}
	if err != nil {
		return fmt.Errorf("failed to delete object %s: %w", name, err)
	}
	return nil
}

// Exists 判断对象是否存在。
func (s *LocalStore) Exists(_ context.Context, container, name string) (bool, error) {
	if err := validateName(container, name); err != nil {
		return false, err
	}

	fi, err := os.Stat(s.Path(container, name))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat object %s: %w", name, err)
	}
	return fi.Mode().IsRegular(), nil
}
