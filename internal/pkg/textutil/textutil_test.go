package textutil_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/ieum/internal/pkg/textutil"
	"github.com/kart-io/ieum/pkg/utils/errors"
)

func TestSplitIntoChunksExample(t *testing.T) {
	chunks, err := textutil.SplitIntoChunks("ABCDEFGHIJ", 4, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"ABCD", "DEFG", "GHIJ"}, chunks)
}

func TestSplitIntoChunksEmpty(t *testing.T) {
	chunks, err := textutil.SplitIntoChunks("", 4, 1)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestSplitIntoChunksInvalidConfig(t *testing.T) {
	tests := []struct {
		name          string
		size, overlap int
	}{
		{"重叠等于块大小", 4, 4},
		{"重叠大于块大小", 4, 5},
		{"负重叠", 4, -1},
		{"块大小为零", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := textutil.SplitIntoChunks("ABCDEFGHIJ", tt.size, tt.overlap)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrChunkConfig.Code))
		})
	}
}

// 去掉重叠部分后拼接应还原原文，块数符合公式。
func TestSplitIntoChunksProperties(t *testing.T) {
	texts := []string{
		"a",
		"ABCDEFGHIJ",
		strings.Repeat("회의록 본문입니다. ", 97),
		strings.Repeat("x", 1000),
		strings.Repeat("y", 1001),
	}
	configs := [][2]int{{4, 1}, {10, 0}, {7, 3}, {1000, 100}, {3, 2}}

	for _, text := range texts {
		for _, cfg := range configs {
			size, overlap := cfg[0], cfg[1]
			chunks, err := textutil.SplitIntoChunks(text, size, overlap)
			require.NoError(t, err)

			n := len([]rune(text))
			assert.Equal(t, textutil.ChunkCount(n, size, overlap), len(chunks))

			var sb strings.Builder
			for i, c := range chunks {
				r := []rune(c)
				assert.LessOrEqual(t, len(r), size)
				if i == 0 {
					sb.WriteString(c)
					continue
				}
				sb.WriteString(string(r[overlap:]))
			}
			assert.Equal(t, text, sb.String(), "size=%d overlap=%d", size, overlap)
		}
	}
}

func TestSplitIntoChunksUnicode(t *testing.T) {
	chunks, err := textutil.SplitIntoChunks("가나다라마바", 4, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"가나다라", "다라마바"}, chunks)
}

func TestChunkIDRoundTrip(t *testing.T) {
	url := "https://storage.googleapis.com/ieum/history/회의록 1.pdf"
	id := textutil.EncodeChunkID(url, 3)

	assert.NotContains(t, id, "/")
	assert.NotContains(t, id, "+")
	assert.Equal(t, id, textutil.EncodeChunkID(url, 3))
	assert.NotEqual(t, id, textutil.EncodeChunkID(url, 4))

	raw, err := textutil.DecodeChunkID(id)
	require.NoError(t, err)
	assert.Equal(t, url+"_3", raw)

	_, err = textutil.DecodeChunkID("%%%")
	assert.Error(t, err)
}

func TestHumanSize(t *testing.T) {
	tests := []struct {
		name     string
		in       int64
		expected string
	}{
		{"字节", 512, "512.00 B"},
		{"千字节", 2048, "2.00 KB"},
		{"兆字节", 5 * 1024 * 1024, "5.00 MB"},
		{"零", 0, "0.00 B"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, textutil.HumanSize(tt.in))
		})
	}
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, textutil.CosineSimilarity([]float32{1, 0}, []float32{1, 0}), 0.0001)
	assert.InDelta(t, 0.0, textutil.CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 0.0001)
	assert.Equal(t, 0.0, textutil.CosineSimilarity([]float32{1}, []float32{1, 2}))
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"q3", "budget", "예산", "회의"}, textutil.Tokenize("Q3 budget, 예산 회의!"))
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "회의록", textutil.TruncateString("회의록 초안", 3))
	assert.Equal(t, "short", textutil.TruncateString("short", 10))
}
