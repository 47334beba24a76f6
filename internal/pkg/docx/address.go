package docx

import (
	"fmt"
	"strconv"
	"strings"
)

// AddressKind 区分段落坐标与表格单元格坐标。
type AddressKind int

const (
	// KindParagraph 表示正文顶层段落 "P-i"。
	KindParagraph AddressKind = iota
	// KindCell 表示表格单元格 "T-t-R-r-C-c"。
	KindCell
)

// Address 定位模板中的一个段落或表格单元格。
type Address struct {
	Kind      AddressKind
	Paragraph int
	Table     int
	Row       int
	Col       int
}

// ParagraphAddress 构造段落坐标。
func ParagraphAddress(i int) Address {
	return Address{Kind: KindParagraph, Paragraph: i}
}

// CellAddress 构造单元格坐标。
func CellAddress(t, r, c int) Address {
	return Address{Kind: KindCell, Table: t, Row: r, Col: c}
}

// String 返回坐标的文本形式。
func (a Address) String() string {
	if a.Kind == KindParagraph {
		return fmt.Sprintf("P-%d", a.Paragraph)
	}
	return fmt.Sprintf("T-%d-R-%d-C-%d", a.Table, a.Row, a.Col)
}

// ParseAddress 解析 "P-3" 或 "T-0-R-1-C-2" 形式的坐标。
func ParseAddress(s string) (Address, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	switch {
	case len(parts) == 2 && parts[0] == "P":
		i, err := parseIndex(parts[1])
		if err != nil {
			return Address{}, fmt.Errorf("malformed address %q: %w", s, err)
		}
		return ParagraphAddress(i), nil
	case len(parts) == 6 && parts[0] == "T" && parts[2] == "R" && parts[4] == "C":
		var idx [3]int
		for n, p := range []string{parts[1], parts[3], parts[5]} {
			v, err := parseIndex(p)
			if err != nil {
				return Address{}, fmt.Errorf("malformed address %q: %w", s, err)
			}
			idx[n] = v
		}
		return CellAddress(idx[0], idx[1], idx[2]), nil
	default:
		return Address{}, fmt.Errorf("malformed address %q", s)
	}
}

func parseIndex(s string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("index %q is not a number", s)
	}
	if v < 0 {
		return 0, fmt.Errorf("index %d is negative", v)
	}
	return v, nil
}
