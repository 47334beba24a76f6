// Package docx 提供 Word (.docx) 文档的读取、坐标提取与按坐标改写能力。
//
// 文档在每次请求中加载一次，坐标只在该次加载内有效，不跨请求保存。
package docx

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/beevik/etree"
)

// NamespaceW 是 WordprocessingML 主命名空间。
const NamespaceW = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

const documentPart = "word/document.xml"

type part struct {
	header zip.FileHeader
	data   []byte
}

// Document 是已加载到内存的 docx 包。
// 只有 word/document.xml 被解析为 DOM，其它部件按原样保存。
type Document struct {
	parts []part
	xml   *etree.Document
}

// Open 从文件加载 docx。
func Open(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read docx %s: %w", path, err)
	}
	return Parse(data)
}

// Parse 从字节加载 docx。
func Parse(data []byte) (*Document, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open docx package: %w", err)
	}

	d := &Document{}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open part %s: %w", f.Name, err)
		}
		b, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read part %s: %w", f.Name, err)
		}

		if f.Name == documentPart {
			doc := etree.NewDocument()
			if err := doc.ReadFromBytes(b); err != nil {
				return nil, fmt.Errorf("parse %s: %w", documentPart, err)
			}
			d.xml = doc
		}
		d.parts = append(d.parts, part{header: f.FileHeader, data: b})
	}

	if d.xml == nil {
		return nil, fmt.Errorf("docx package has no %s", documentPart)
	}
	if d.Body() == nil {
		return nil, fmt.Errorf("%s has no w:body", documentPart)
	}
	return d, nil
}

// Body 返回 w:body 元素。
func (d *Document) Body() *etree.Element {
	root := d.xml.Root()
	if root == nil {
		return nil
	}
	return firstChild(root, "body")
}

// Paragraphs 返回正文顶层段落，顺序与文档一致。
func (d *Document) Paragraphs() []*etree.Element {
	return children(d.Body(), "p")
}

// Tables 返回正文顶层表格，顺序与文档一致。
func (d *Document) Tables() []*etree.Element {
	return children(d.Body(), "tbl")
}

// Bytes 将文档序列化为 docx 包。
func (d *Document) Bytes() ([]byte, error) {
	xmlData, err := d.xml.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("serialize %s: %w", documentPart, err)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, p := range d.parts {
		data := p.data
		if p.header.Name == documentPart {
			data = xmlData
		}
		hdr := &zip.FileHeader{
			Name:     p.header.Name,
			Method:   p.header.Method,
			Modified: p.header.Modified,
		}
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			return nil, fmt.Errorf("write part %s: %w", p.header.Name, err)
		}
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("write part %s: %w", p.header.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close docx package: %w", err)
	}
	return buf.Bytes(), nil
}

// Save 将文档写入 path。
func (d *Document) Save(path string) error {
	data, err := d.Bytes()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write docx %s: %w", path, err)
	}
	return nil
}

func isW(e *etree.Element, local string) bool {
	return e != nil && e.Tag == local && e.NamespaceURI() == NamespaceW
}

func children(e *etree.Element, local string) []*etree.Element {
	if e == nil {
		return nil
	}
	var out []*etree.Element
	for _, c := range e.ChildElements() {
		if isW(c, local) {
			out = append(out, c)
		}
	}
	return out
}

func firstChild(e *etree.Element, local string) *etree.Element {
	if e == nil {
		return nil
	}
	for _, c := range e.ChildElements() {
		if isW(c, local) {
			return c
		}
	}
	return nil
}
