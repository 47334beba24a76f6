package docx

import (
	"strings"

	"github.com/beevik/etree"
)

// runContainers 是段落内会包裹 run 的元素，其中的文本同样可见。
var runContainers = map[string]bool{
	"hyperlink":  true,
	"ins":        true,
	"smartTag":   true,
	"sdt":        true,
	"sdtContent": true,
	"fldSimple":  true,
	"customXml":  true,
}

func isRunContainer(e *etree.Element) bool {
	return runContainers[e.Tag] && e.NamespaceURI() == NamespaceW
}

// paragraphRuns 按文档顺序返回段落内所有可见 run。
func paragraphRuns(p *etree.Element) []*etree.Element {
	var out []*etree.Element
	var walk func(*etree.Element)
	walk = func(e *etree.Element) {
		for _, c := range e.ChildElements() {
			switch {
			case isW(c, "r"):
				out = append(out, c)
			case isRunContainer(c):
				walk(c)
			}
		}
	}
	walk(p)
	return out
}

// ParagraphText 返回段落可见文本，包含超链接、修订插入、内容控件等包裹中的 run。
func ParagraphText(p *etree.Element) string {
	var sb strings.Builder
	for _, r := range paragraphRuns(p) {
		writeRunText(&sb, r)
	}
	return sb.String()
}

func writeRunText(sb *strings.Builder, r *etree.Element) {
	for _, c := range r.ChildElements() {
		switch {
		case isW(c, "t"):
			sb.WriteString(c.Text())
		case isW(c, "tab"):
			sb.WriteByte('\t')
		case isW(c, "br"), isW(c, "cr"):
			sb.WriteByte('\n')
		}
	}
}

// CellText 返回单元格文本，多个段落以换行连接。
func CellText(tc *etree.Element) string {
	paras := children(tc, "p")
	texts := make([]string, 0, len(paras))
	for _, p := range paras {
		texts = append(texts, ParagraphText(p))
	}
	return strings.Join(texts, "\n")
}

// Rows 返回表格的行。
func Rows(tbl *etree.Element) []*etree.Element {
	return children(tbl, "tr")
}

// Cells 返回行的单元格。
func Cells(tr *etree.Element) []*etree.Element {
	return children(tr, "tc")
}

// PlainText 将正文按文档顺序线性化为纯文本。
// 非空段落输出文本加换行；表格每行输出为 "| a | b |"，表格前后各保留空行。
func (d *Document) PlainText() string {
	var sb strings.Builder
	for _, el := range d.Body().ChildElements() {
		switch {
		case isW(el, "p"):
			text := descendantText(el)
			if strings.TrimSpace(text) != "" {
				sb.WriteString(text)
				sb.WriteByte('\n')
			}
		case isW(el, "tbl"):
			var lines []string
			for _, tr := range Rows(el) {
				cells := Cells(tr)
				if len(cells) == 0 {
					continue
				}
				values := make([]string, 0, len(cells))
				for _, tc := range cells {
					values = append(values, strings.TrimSpace(descendantText(tc)))
				}
				lines = append(lines, "| "+strings.Join(values, " | ")+" |")
			}
			if len(lines) > 0 {
				sb.WriteString("\n")
				sb.WriteString(strings.Join(lines, "\n"))
				sb.WriteString("\n\n")
			}
		}
	}
	return sb.String()
}

func descendantText(e *etree.Element) string {
	var sb strings.Builder
	var walk func(*etree.Element)
	walk = func(n *etree.Element) {
		for _, c := range n.ChildElements() {
			if isW(c, "t") {
				sb.WriteString(c.Text())
				continue
			}
			walk(c)
		}
	}
	walk(e)
	return sb.String()
}
