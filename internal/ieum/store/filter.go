package store

import (
	"strings"
)

// Op 是过滤比较符。
type Op string

const (
	OpEq Op = "=="
	OpNe Op = "!="
)

// Filter 是单字段等值或不等值条件，零值匹配所有条目。
type Filter struct {
	Field string
	Op    Op
	Value string
}

// Eq 返回 field == value 条件。
func Eq(field, value string) Filter {
	return Filter{Field: field, Op: OpEq, Value: value}
}

// Ne 返回 field != value 条件。
func Ne(field, value string) Filter {
	return Filter{Field: field, Op: OpNe, Value: value}
}

// TitleFilter 匹配标题完全相等的条目。
func TitleFilter(title string) Filter {
	return Eq(FieldTitle, title)
}

// IsZero reports whether the filter matches everything.
func (f Filter) IsZero() bool {
	return f.Field == ""
}

var literalEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// Expr 渲染为 Milvus 布尔表达式，如 category != "style"。
func (f Filter) Expr() string {
	if f.IsZero() {
		return ""
	}
	return f.Field + " " + string(f.Op) + ` "` + literalEscaper.Replace(f.Value) + `"`
}

// String implements fmt.Stringer.
func (f Filter) String() string {
	return f.Expr()
}

// Match 在内存中求值。
func (f Filter) Match(doc *Document) bool {
	if f.IsZero() {
		return true
	}
	v := doc.field(f.Field)
	if f.Op == OpNe {
		return v != f.Value
	}
	return v == f.Value
}

func (d *Document) field(name string) string {
	switch name {
	case FieldID:
		return d.ID
	case FieldTitle:
		return d.Title
	case FieldContent:
		return d.Content
	case FieldCategory:
		return d.Category
	case FieldFileURL:
		return d.FileURL
	case FieldCreatedAt:
		return d.CreatedAt
	case FieldSize:
		return d.Size
	}
	return ""
}
