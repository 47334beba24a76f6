package extract_test

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/ieum/internal/pkg/docx"
	"github.com/kart-io/ieum/internal/pkg/extract"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func writeDocx(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "minutes.docx")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<w:document xmlns:w="` + docx.NamespaceW + `"><w:body>` + body + `</w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return path
}

// buildPDF 生成每页一行文本的最小 PDF，空字符串对应空内容流的页。
func buildPDF(pages ...string) []byte {
	var (
		buf     bytes.Buffer
		offsets []int
	)
	object := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")
	kids := make([]string, 0, len(pages))
	for i := range pages {
		kids = append(kids, fmt.Sprintf("%d 0 R", 4+2*i))
	}
	object("<< /Type /Catalog /Pages 2 0 R >>")
	object(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d /MediaBox [0 0 612 792] >>",
		strings.Join(kids, " "), len(pages)))
	object("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")
	for i, text := range pages {
		object(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i))
		content := ""
		if text != "" {
			content = "BT /F1 12 Tf 72 720 Td (" + text + ") Tj ET"
		}
		object(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		expected extract.Kind
	}{
		{"PDF", "회의록.PDF", extract.KindPDF},
		{"Word", "a.docx", extract.KindDOCX},
		{"文本", "notes.txt", extract.KindText},
		{"未知扩展名", "data.csv", extract.KindText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extract.KindOf(tt.file))
		})
	}
}

func TestExtractText(t *testing.T) {
	content := "첫 줄\n  둘째 줄\t탭\n"
	path := writeFile(t, "notes.txt", []byte(content))

	assert.Equal(t, content, extract.New(false).Extract(path, extract.KindText))
}

func TestExtractPDF(t *testing.T) {
	path := writeFile(t, "minutes.pdf", buildPDF("FirstPage", "", "SecondPage", "ThirdPage"))
	want := "\nFirstPage\n\nSecondPage\n\nThirdPage\n"

	assert.Equal(t, want, extract.New(false).Extract(path, extract.KindPDF))
	assert.Equal(t, want, extract.New(true).Extract(path, extract.KindPDF))
}

func TestPageCount(t *testing.T) {
	pages, err := extract.PageCount(writeFile(t, "minutes.pdf", buildPDF("a", "b", "")))
	require.NoError(t, err)
	assert.Equal(t, 3, pages)

	_, err = extract.PageCount(writeFile(t, "broken.pdf", []byte("%PDF-1.4 this is not really a pdf")))
	assert.Error(t, err)
}

func TestExtractDOCX(t *testing.T) {
	body := `<w:p><w:r><w:t>2025 정기회의</w:t></w:r></w:p>` +
		`<w:p/>` +
		`<w:tbl><w:tr><w:tc><w:p><w:r><w:t>안건</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>담당</w:t></w:r></w:p></w:tc></w:tr>` +
		`<w:tr><w:tc><w:p><w:r><w:t> 예산 </w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>김</w:t></w:r></w:p></w:tc></w:tr></w:tbl>` +
		`<w:p><w:r><w:t>끝</w:t></w:r></w:p>`
	path := writeDocx(t, body)

	got := extract.New(false).Extract(path, extract.KindDOCX)
	assert.Equal(t, "2025 정기회의\n\n| 안건 | 담당 |\n| 예산 | 김 |\n\n끝\n", got)
}

func TestExtractUnreadableYieldsEmpty(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing")
	garbage := writeFile(t, "broken.pdf", []byte("%PDF-1.4 this is not really a pdf"))
	notZip := writeFile(t, "broken.docx", []byte("plain bytes"))

	e := extract.New(true)
	assert.Empty(t, e.Extract(missing+".pdf", extract.KindPDF))
	assert.Empty(t, e.Extract(missing+".docx", extract.KindDOCX))
	assert.Empty(t, e.Extract(missing+".txt", extract.KindText))
	assert.Empty(t, e.Extract(garbage, extract.KindPDF))
	assert.Empty(t, e.Extract(notZip, extract.KindDOCX))
}
