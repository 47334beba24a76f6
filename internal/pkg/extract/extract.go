// Package extract 将 PDF、Word 和纯文本文件转换为线性文本。
//
// 单页或单元素失败只记录警告并跳过；无法读取的文件返回空字符串，
// 下游会因此得到 0 个块。
package extract

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/kart-io/logger"

	"github.com/kart-io/ieum/internal/pkg/docx"
)

// Kind 是文件的声明类型。
type Kind string

const (
	KindPDF  Kind = "pdf"
	KindDOCX Kind = "docx"
	KindText Kind = "txt"
)

// KindOf 根据扩展名推断文件类型，未知扩展名按纯文本处理。
func KindOf(name string) Kind {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return KindPDF
	case ".docx":
		return KindDOCX
	default:
		return KindText
	}
}

// Extractor 是文本提取器。
type Extractor struct {
	// Preflight 为 true 时先校验 PDF 结构，校验失败的文件不再提取。
	Preflight bool
}

// New 创建文本提取器。
func New(preflight bool) *Extractor {
	return &Extractor{Preflight: preflight}
}

// Extract 返回文件的线性文本。
func (e *Extractor) Extract(path string, kind Kind) string {
	switch kind {
	case KindPDF:
		if !e.Preflight {
			return PDF(path)
		}
		pages, err := PageCount(path)
		if err != nil {
			logger.Warnw("pdf preflight failed, skip extraction", "path", path, "error", err.Error())
			return ""
		}
		return pdfText(path, pages)
	case KindDOCX:
		return DOCX(path)
	default:
		return Text(path)
	}
}

// DOCX 提取 Word 文档正文，表格按行转换为 "| a | b |" 形式。
func DOCX(path string) string {
	d, err := docx.Open(path)
	if err != nil {
		logger.Warnw("docx extract failed", "path", path, "error", err.Error())
		return ""
	}
	return d.PlainText()
}

// Text 原样读取纯文本文件。
func Text(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warnw("text extract failed", "path", path, "error", err.Error())
		return ""
	}
	return string(data)
}
