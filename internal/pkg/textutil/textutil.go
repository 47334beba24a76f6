// Package textutil 提供文档切分、标识编码等文本处理工具函数。
package textutil

import (
	"encoding/base64"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/kart-io/ieum/pkg/utils/errors"
)

// SplitIntoChunks 将文本分割成重叠的块。
// size 与 overlap 以 Unicode 字符计，要求 0 <= overlap < size。
// 空文本返回 0 个块；窗口从 0 开始，每次前进 size-overlap，最后一块可能短于 size。
func SplitIntoChunks(text string, size, overlap int) ([]string, error) {
	if err := ValidateChunkConfig(size, overlap); err != nil {
		return nil, err
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return nil, nil
	}

	step := size - overlap
	chunks := make([]string, 0, ChunkCount(len(runes), size, overlap))
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks, nil
}

// ValidateChunkConfig 校验切分参数。
func ValidateChunkConfig(size, overlap int) error {
	if size <= 0 {
		return errors.ErrChunkConfig.WithMessagef("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return errors.ErrChunkConfig.WithMessagef("chunk overlap must satisfy 0 <= overlap < size, got overlap=%d size=%d", overlap, size)
	}
	return nil
}

// ChunkCount 返回长度为 n 的文本会被切成的块数。
func ChunkCount(n, size, overlap int) int {
	if n == 0 {
		return 0
	}
	if n <= size {
		return 1
	}
	return int(math.Ceil(float64(n-overlap) / float64(size-overlap)))
}

// EncodeChunkID 由文件地址和块序号生成可逆的 URL 安全标识。
func EncodeChunkID(fileURL string, index int) string {
	raw := fmt.Sprintf("%s_%d", fileURL, index)
	return base64.URLEncoding.EncodeToString([]byte(raw))
}

// DecodeChunkID 还原 EncodeChunkID 生成的原始标识。
func DecodeChunkID(id string) (string, error) {
	raw, err := base64.URLEncoding.DecodeString(id)
	if err != nil {
		return "", fmt.Errorf("decode chunk id %q: %w", id, err)
	}
	return string(raw), nil
}

var sizeUnits = []string{"B", "KB", "MB", "GB", "TB"}

// HumanSize 将字节数格式化为可读的大小标签，例如 "2.00 KB"。
func HumanSize(n int64) string {
	size := float64(n)
	for i, unit := range sizeUnits {
		if size < 1024 || i == len(sizeUnits)-1 {
			return fmt.Sprintf("%.2f %s", size, unit)
		}
		size /= 1024
	}
	return ""
}

// CosineSimilarity 计算两个向量的余弦相似度。
// 返回值范围为 [-1, 1]，1 表示完全相同，-1 表示完全相反。
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// TruncateString 截断字符串到指定的最大 Unicode 字符数。
func TruncateString(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen])
}

// Tokenize 将文本切分为小写词元，用于关键词匹配。
func Tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r == '_' || r == '-' || isWordRune(r))
	})
}

func isWordRune(r rune) bool {
	return r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r > utf8.RuneSelf && !strings.ContainsRune("。，、！？：；“”‘’（）《》·…", r)
}
