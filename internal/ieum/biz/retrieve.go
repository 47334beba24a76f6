package biz

import (
	"context"
	"fmt"
	"strings"

	"github.com/kart-io/logger"

	"github.com/kart-io/ieum/internal/ieum/store"
	"github.com/kart-io/ieum/internal/pkg/textutil"
	"github.com/kart-io/ieum/pkg/llm"
	"github.com/kart-io/ieum/pkg/utils/errors"
)

// 日志中记录的问题最大字符数
const queryLogLimit = 80

// Source 是回答引用的文档。
type Source struct {
	Title     string  `json:"title"`
	Category  string  `json:"category"`
	FileURL   string  `json:"file_url"`
	CreatedAt string  `json:"created_at"`
	Score     float32 `json:"score"`
}

// Answer 是检索增强的回答。
type Answer struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// Retriever 执行类别过滤的混合检索并生成回答。
type Retriever struct {
	index    store.SearchIndex
	embedder llm.EmbeddingProvider
	chat     llm.ChatProvider
	topK     int
}

// NewRetriever 创建检索器，topK 非正时取 3。
func NewRetriever(index store.SearchIndex, embedder llm.EmbeddingProvider, chat llm.ChatProvider, topK int) *Retriever {
	if topK <= 0 {
		topK = 3
	}
	return &Retriever{
		index:    index,
		embedder: embedder,
		chat:     chat,
		topK:     topK,
	}
}

// Search 检索与问题相关的文档，检索层错误降级为空结果。
func (r *Retriever) Search(ctx context.Context, query, category string) ([]store.Document, error) {
	filter, err := CategoryFilter(category)
	if err != nil {
		return nil, err
	}

	vector, err := r.embedder.EmbedSingle(ctx, query)
	if err != nil {
		logger.Warnw("query embedding failed, treating as no result",
			"query", textutil.TruncateString(query, queryLogLimit),
			"error", err.Error(),
		)
		return nil, nil
	}

	docs, err := r.index.Search(ctx, store.SearchRequest{
		Text:   query,
		Vector: vector,
		Filter: filter,
		TopK:   r.topK,
	})
	if err != nil {
		logger.Warnw("search failed, treating as no result",
			"query", textutil.TruncateString(query, queryLogLimit),
			"filter", filter.Expr(),
			"error", err.Error(),
		)
		return nil, nil
	}
	return docs, nil
}

// Answer 基于检索到的文档回答问题；无结果时返回固定回答且不调用模型。
func (r *Retriever) Answer(ctx context.Context, query, category string) (*Answer, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.ErrInvalidRequest.WithMessage("message is required")
	}

	docs, err := r.Search(ctx, query, category)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return &Answer{Answer: NotFoundAnswer, Sources: []Source{}}, nil
	}

	text, err := llm.Complete(ctx, r.chat,
		answerSystemPrompt,
		fmt.Sprintf(answerUserPrompt, BuildContext(docs), query),
		llm.CompleteOptions{})
	if err != nil {
		return nil, errors.ErrExternalService.WithCause(fmt.Errorf("completion: %w", err))
	}

	sources := make([]Source, 0, len(docs))
	for _, d := range docs {
		sources = append(sources, Source{
			Title:     d.Title,
			Category:  d.Category,
			FileURL:   d.FileURL,
			CreatedAt: d.CreatedAt,
			Score:     d.Score,
		})
	}
	return &Answer{Answer: text, Sources: sources}, nil
}

// BuildContext 将文档拼接为带类别和标题标签的上下文。
func BuildContext(docs []store.Document) string {
	parts := make([]string, 0, len(docs))
	for _, d := range docs {
		label := strings.ToUpper(d.Category)
		if label == "" {
			label = "UNKNOWN"
		}
		date := "날짜 불명"
		if len(d.CreatedAt) >= 10 {
			date = d.CreatedAt[:10]
		}
		parts = append(parts, fmt.Sprintf("Source: [%s] %s (작성일: %s)\nContent: %s\n", label, d.Title, date, d.Content))
	}
	return strings.Join(parts, "\n\n")
}
