package extract

import (
	"fmt"
	"strings"

	"github.com/kart-io/logger"
	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PDF 按页序拼接每页文本，失败的页不输出内容。
func PDF(path string) string {
	return pdfText(path, 0)
}

// pdfText 提取 PDF 文本。pages 为预检得到的页数，与解析出的页树不一致时以较大者为准，
// 缺失的页按空页处理。
func pdfText(path string, pages int) (text string) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Warnw("pdf extract failed", "path", path, "error", fmt.Sprint(rec))
			text = ""
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		logger.Warnw("pdf extract failed", "path", path, "error", err.Error())
		return ""
	}
	defer f.Close()

	var sb strings.Builder
	total := r.NumPage()
	if pages > 0 && pages != total {
		logger.Warnw("pdf page count mismatch", "path", path, "pages", pages, "parsed", total)
		total = max(total, pages)
	}
	for i := 1; i <= total; i++ {
		text, err := pageText(r, i)
		if err != nil {
			logger.Warnw("skip pdf page", "path", path, "page", i, "error", err.Error())
			continue
		}
		if text == "" {
			continue
		}
		sb.WriteString(text)
		sb.WriteByte('\n')
	}
	return sb.String()
}

func pageText(r *pdf.Reader, num int) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic while reading page: %v", rec)
		}
	}()

	p := r.Page(num)
	if p.V.IsNull() {
		return "", nil
	}
	return p.GetPlainText(nil)
}

// PageCount 以宽松模式校验 PDF 结构并返回页数。
func PageCount(path string) (int, error) {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	if err := api.ValidateFile(path, cfg); err != nil {
		return 0, fmt.Errorf("validate pdf: %w", err)
	}
	pages, err := api.PageCountFile(path)
	if err != nil {
		return 0, fmt.Errorf("count pdf pages: %w", err)
	}
	return pages, nil
}
