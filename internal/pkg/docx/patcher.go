package docx

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
	"github.com/kart-io/logger"
)

// Update 是一次坐标改写请求。空字符串表示清空该位置。
type Update struct {
	ID      string `json:"id"`
	NewText string `json:"new_text"`
}

// UpdatePlan 是一次文档生成请求的改写计划。
// 同一坐标只保留最后一次写入，顺序按坐标首次出现排列。
type UpdatePlan struct {
	order []string
	text  map[string]string
}

// NewUpdatePlan 由改写列表构造计划。
func NewUpdatePlan(updates []Update) *UpdatePlan {
	p := &UpdatePlan{text: make(map[string]string, len(updates))}
	for _, u := range updates {
		p.Set(u.ID, u.NewText)
	}
	return p
}

// Set 设置坐标的新文本，覆盖之前的值。
func (p *UpdatePlan) Set(id, text string) {
	id = strings.TrimSpace(id)
	if _, ok := p.text[id]; !ok {
		p.order = append(p.order, id)
	}
	p.text[id] = text
}

// Len 返回计划中不同坐标的数量。
func (p *UpdatePlan) Len() int {
	return len(p.order)
}

// Updates 返回去重后的改写列表。
func (p *UpdatePlan) Updates() []Update {
	out := make([]Update, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, Update{ID: id, NewText: p.text[id]})
	}
	return out
}

// PatchResult 汇总一次改写的结果。
type PatchResult struct {
	Applied  int
	Warnings []string
}

// Apply 按计划改写文档。单个坐标的错误只记录警告，不中断整个批次。
func (d *Document) Apply(plan *UpdatePlan) PatchResult {
	var res PatchResult
	for _, u := range plan.Updates() {
		if err := d.applyOne(u); err != nil {
			logger.Warnw("skip template address", "address", u.ID, "error", err.Error())
			res.Warnings = append(res.Warnings, err.Error())
			continue
		}
		res.Applied++
	}
	return res
}

// ApplyFile 读取模板、应用计划并写入 outputPath，模板文件本身不变。
func ApplyFile(templatePath, outputPath string, plan *UpdatePlan) (PatchResult, error) {
	d, err := Open(templatePath)
	if err != nil {
		return PatchResult{}, err
	}
	res := d.Apply(plan)
	if err := d.Save(outputPath); err != nil {
		return res, err
	}
	logger.Infow("template patched", "template", templatePath, "output", outputPath,
		"applied", res.Applied, "skipped", len(res.Warnings))
	return res, nil
}

func (d *Document) applyOne(u Update) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("address %s: unexpected structure: %v", u.ID, r)
		}
	}()

	addr, err := ParseAddress(u.ID)
	if err != nil {
		return err
	}

	target, err := d.resolve(addr)
	if err != nil {
		return err
	}
	setParagraphText(target, u.NewText)
	return nil
}

func (d *Document) resolve(addr Address) (*etree.Element, error) {
	if addr.Kind == KindParagraph {
		paras := d.Paragraphs()
		if addr.Paragraph >= len(paras) {
			return nil, fmt.Errorf("address %s out of range: document has %d paragraphs", addr, len(paras))
		}
		return paras[addr.Paragraph], nil
	}

	tables := d.Tables()
	if addr.Table >= len(tables) {
		return nil, fmt.Errorf("address %s out of range: document has %d tables", addr, len(tables))
	}
	rows := Rows(tables[addr.Table])
	if addr.Row >= len(rows) {
		return nil, fmt.Errorf("address %s out of range: table %d has %d rows", addr, addr.Table, len(rows))
	}
	cells := Cells(rows[addr.Row])
	if addr.Col >= len(cells) {
		return nil, fmt.Errorf("address %s out of range: row %d has %d cells", addr, addr.Row, len(cells))
	}
	return collapseCell(cells[addr.Col]), nil
}

// collapseCell 删除单元格中除第一个以外的段落，并返回剩下的段落。
func collapseCell(tc *etree.Element) *etree.Element {
	paras := children(tc, "p")
	for i := len(paras) - 1; i > 0; i-- {
		tc.RemoveChild(paras[i])
	}
	if len(paras) > 0 {
		return paras[0]
	}
	return tc.CreateElement(qualify(tc, "p"))
}

// setParagraphText 用第一个 run 承载新文本，删除其余 run 及包裹它们的元素。
// 段落属性和第一个 run 的 rPr 保持不变。
func setParagraphText(p *etree.Element, text string) {
	runs := paragraphRuns(p)
	if len(runs) == 0 {
		r := p.CreateElement(qualify(p, "r"))
		writeRunContent(r, text)
		return
	}

	keep := runs[0]
	if keep.Parent() != p {
		// 第一个 run 在包裹元素内，复制到包裹元素所在位置
		keep = runs[0].Copy()
		p.InsertChildAt(topLevel(p, runs[0]).Index(), keep)
	}
	for _, c := range p.ChildElements() {
		if c != keep && (isW(c, "r") || isRunContainer(c)) {
			p.RemoveChild(c)
		}
	}

	for _, c := range keep.ChildElements() {
		if !isW(c, "rPr") {
			keep.RemoveChild(c)
		}
	}
	writeRunContent(keep, text)
}

// topLevel 返回 e 在 p 下的直接子元素祖先。
func topLevel(p, e *etree.Element) *etree.Element {
	for e.Parent() != nil && e.Parent() != p {
		e = e.Parent()
	}
	return e
}

// writeRunContent 写入文本，换行转为 w:br，制表符转为 w:tab。
func writeRunContent(r *etree.Element, text string) {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if i > 0 {
			r.CreateElement(qualify(r, "br"))
		}
		for j, seg := range strings.Split(line, "\t") {
			if j > 0 {
				r.CreateElement(qualify(r, "tab"))
			}
			if seg == "" {
				continue
			}
			t := r.CreateElement(qualify(r, "t"))
			t.CreateAttr("xml:space", "preserve")
			t.SetText(seg)
		}
	}
}

func qualify(parent *etree.Element, local string) string {
	if parent.Space == "" {
		return local
	}
	return parent.Space + ":" + local
}
