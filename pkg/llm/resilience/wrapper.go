package resilience

import (
	"context"
	"errors"
	"net"
	"net/http"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/kart-io/ieum/pkg/llm"
)

// EmbeddingProvider 为 llm.EmbeddingProvider 增加重试与熔断。
type EmbeddingProvider struct {
	provider llm.EmbeddingProvider
	config   *Config
	cb       *CircuitBreaker
}

var _ llm.EmbeddingProvider = (*EmbeddingProvider)(nil)

// WrapEmbedding 包装 Embedding 供应商。
func WrapEmbedding(provider llm.EmbeddingProvider, config *Config) *EmbeddingProvider {
	if config == nil {
		config = DefaultConfig()
	}
	return &EmbeddingProvider{
		provider: provider,
		config:   config,
		cb:       NewCircuitBreaker(provider.Name()+"/embedding", config.MaxFailures, config.OpenTimeout),
	}
}

// Embed 为多个文本生成向量。
func (p *EmbeddingProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return Do(ctx, p.config, p.cb, func(ctx context.Context) ([][]float32, error) {
		return p.provider.Embed(ctx, texts)
	})
}

// EmbedSingle 为单个文本生成向量。
func (p *EmbeddingProvider) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	return Do(ctx, p.config, p.cb, func(ctx context.Context) ([]float32, error) {
		return p.provider.EmbedSingle(ctx, text)
	})
}

// Name 返回底层供应商名称，保持缓存键稳定。
func (p *EmbeddingProvider) Name() string {
	return p.provider.Name()
}

// CircuitBreaker 返回熔断器。
func (p *EmbeddingProvider) CircuitBreaker() *CircuitBreaker {
	return p.cb
}

// ChatProvider 为 llm.ChatProvider 增加重试与熔断。
type ChatProvider struct {
	provider llm.ChatProvider
	config   *Config
	cb       *CircuitBreaker
}

var _ llm.ChatProvider = (*ChatProvider)(nil)

// WrapChat 包装 Chat 供应商。
func WrapChat(provider llm.ChatProvider, config *Config) *ChatProvider {
	if config == nil {
		config = DefaultConfig()
	}
	return &ChatProvider{
		provider: provider,
		config:   config,
		cb:       NewCircuitBreaker(provider.Name()+"/chat", config.MaxFailures, config.OpenTimeout),
	}
}

// Chat 发送消息并返回回复。
func (p *ChatProvider) Chat(ctx context.Context, messages []llm.Message, opts llm.CompleteOptions) (string, error) {
	return Do(ctx, p.config, p.cb, func(ctx context.Context) (string, error) {
		return p.provider.Chat(ctx, messages, opts)
	})
}

// Name 返回底层供应商名称。
func (p *ChatProvider) Name() string {
	return p.provider.Name()
}

// CircuitBreaker 返回熔断器。
func (p *ChatProvider) CircuitBreaker() *CircuitBreaker {
	return p.cb
}

// IsRetryable 判断错误是否值得重试：网络错误、408、429 与 5xx。
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrCircuitOpen) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return retryableStatus(reqErr.HTTPStatusCode)
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

func retryableStatus(code int) bool {
	return code == http.StatusRequestTimeout ||
		code == http.StatusTooManyRequests ||
		code >= http.StatusInternalServerError
}
