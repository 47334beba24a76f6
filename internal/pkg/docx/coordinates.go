package docx

import (
	"strings"

	"github.com/beevik/etree"
)

// Coordinate 是模板中一个可被改写的位置及其当前文本。
type Coordinate struct {
	Address Address
	Text    string
}

// Line 返回 "[T-0-R-1-C-2] 文本" 形式的一行。
func (c Coordinate) Line() string {
	return "[" + c.Address.String() + "] " + c.Text
}

// Coordinates 按文档顺序列出所有非空段落和非空单元格。
// 段落序号按全部顶层段落计数，空段落占序号但不输出。
func (d *Document) Coordinates() []Coordinate {
	var (
		out    []Coordinate
		pIndex int
		tIndex int
	)
	for _, el := range d.Body().ChildElements() {
		switch {
		case isW(el, "p"):
			text := flatten(ParagraphText(el))
			if text != "" {
				out = append(out, Coordinate{Address: ParagraphAddress(pIndex), Text: text})
			}
			pIndex++
		case isW(el, "tbl"):
			out = append(out, tableCoordinates(el, tIndex)...)
			tIndex++
		}
	}
	return out
}

func tableCoordinates(tbl *etree.Element, t int) []Coordinate {
	var out []Coordinate
	for r, tr := range Rows(tbl) {
		for c, tc := range Cells(tr) {
			text := flatten(CellText(tc))
			if text == "" {
				continue
			}
			out = append(out, Coordinate{Address: CellAddress(t, r, c), Text: text})
		}
	}
	return out
}

func flatten(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "\n", " ")
}

// RenderCoordinates 将坐标列表渲染为每行一个条目的文本。
func RenderCoordinates(coords []Coordinate) string {
	lines := make([]string, 0, len(coords))
	for _, c := range coords {
		lines = append(lines, c.Line())
	}
	return strings.Join(lines, "\n")
}

// ExtractCoordinates 加载模板并返回其坐标列表。
func ExtractCoordinates(path string) ([]Coordinate, error) {
	d, err := Open(path)
	if err != nil {
		return nil, err
	}
	return d.Coordinates(), nil
}
