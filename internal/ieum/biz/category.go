package biz

import (
	"path/filepath"
	"strings"

	"github.com/kart-io/ieum/internal/ieum/store"
	"github.com/kart-io/ieum/pkg/utils/errors"
)

// Category 是源文件的分类，同时用作对象存储的容器名。
type Category string

const (
	// CategoryHistory 历史会议记录。
	CategoryHistory Category = "history"
	// CategoryStyle 纪要样式模板，不参与问答检索。
	CategoryStyle Category = "style"
	// CategoryReference 参考资料。
	CategoryReference Category = "reference"
)

// categoryAll 表示检索全部可检索类别。
const categoryAll = "all"

// Categories 返回全部类别。
func Categories() []Category {
	return []Category{CategoryHistory, CategoryStyle, CategoryReference}
}

var categoryAliases = map[string]Category{
	"history":   CategoryHistory,
	"ieum":      CategoryHistory,
	"style":     CategoryStyle,
	"custom":    CategoryStyle,
	"reference": CategoryReference,
	"external":  CategoryReference,
}

// LookupCategory 解析类别或别名，大小写不敏感。
func LookupCategory(s string) (Category, bool) {
	c, ok := categoryAliases[strings.ToLower(strings.TrimSpace(s))]
	return c, ok
}

// UploadCategory 解析上传类别，未知类别按参考资料处理。
func UploadCategory(s string) Category {
	if c, ok := LookupCategory(s); ok {
		return c
	}
	return CategoryReference
}

var allowedExtensions = map[Category][]string{
	CategoryHistory:   {".pdf", ".docx"},
	CategoryStyle:     {".docx"},
	CategoryReference: {".pdf", ".docx", ".txt"},
}

// AllowedExtensions 返回类别允许的扩展名。
func AllowedExtensions(c Category) []string {
	return allowedExtensions[c]
}

// CheckExtension 校验文件扩展名是否属于该类别。
func CheckExtension(c Category, filename string) error {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, allowed := range allowedExtensions[c] {
		if ext == allowed {
			return nil
		}
	}
	return errors.ErrUnsupportedFileType.WithMessagef(
		"%s files are not allowed in category %s (allowed: %s)",
		ext, c, strings.Join(allowedExtensions[c], ", "))
}

// CategoryFilter 构建问答检索的类别过滤条件。
// 空值或 all 检索除样式模板外的全部类别；样式模板类别不可检索。
func CategoryFilter(category string) (store.Filter, error) {
	s := strings.TrimSpace(category)
	if s == "" || strings.EqualFold(s, categoryAll) {
		return store.Ne(store.FieldCategory, string(CategoryStyle)), nil
	}

	c, ok := LookupCategory(s)
	if !ok {
		return store.Filter{}, errors.ErrInvalidCategory.WithMessagef("unknown category %q", category)
	}
	if c == CategoryStyle {
		return store.Filter{}, errors.ErrInvalidCategory.WithMessage("style templates are not searchable")
	}
	return store.Eq(store.FieldCategory, string(c)), nil
}
