// Package blob 提供按容器组织的对象存储抽象，以及 GCS 和本地目录两种实现。
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

var (
	// ErrObjectNotExist 对象不存在。
	ErrObjectNotExist = errors.New("blob: object does not exist")
	// ErrObjectExists 禁止覆盖时对象已存在。
	ErrObjectExists = errors.New("blob: object already exists")
)

// ObjectInfo 描述一个对象。
type ObjectInfo struct {
	Name    string
	Size    int64
	Updated time.Time
	URL     string
}

// ObjectStore 定义命名容器内的对象操作。
type ObjectStore interface {
	// EnsureContainer 确保容器存在。
	EnsureContainer(ctx context.Context, container string) error

	// Upload 写入对象并返回其地址，overwrite 为 false 时已存在返回 ErrObjectExists。
	Upload(ctx context.Context, container, name string, r io.Reader, overwrite bool) (string, error)

	// URL 返回对象的规范地址。
	URL(container, name string) string

	// List 列出容器内的对象。
	List(ctx context.Context, container string) ([]ObjectInfo, error)

	// Download 将对象内容写入 w，不存在时返回 ErrObjectNotExist。
	Download(ctx context.Context, container, name string, w io.Writer) error

	// Delete 删除对象，不存在时返回 ErrObjectNotExist。
	Delete(ctx context.Context, container, name string) error

	// Exists 判断对象是否存在。
	Exists(ctx context.Context, container, name string) (bool, error)

	// Close 释放底层客户端。
	Close() error
}

// validateName 拒绝空名和路径穿越。
func validateName(container, name string) error {
	if container == "" || strings.ContainsAny(container, `/\`) || container == "." || container == ".." {
		return fmt.Errorf("blob: invalid container %q", container)
	}
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("blob: invalid object name %q", name)
	}
	return nil
}

func objectKey(container, name string) string {
	return path.Join(container, name)
}
