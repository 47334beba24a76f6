package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockProvider 模拟供应商实现，用于测试。
type mockProvider struct {
	name     string
	messages []Message
	opts     CompleteOptions
}

func (m *mockProvider) Name() string {
	return m.name
}

func (m *mockProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	result := make([][]float32, len(texts))
	for i, text := range texts {
		result[i] = []float32{float32(len(text)), 0.2, 0.3}
	}
	return result, nil
}

func (m *mockProvider) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	out, err := m.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (m *mockProvider) Chat(_ context.Context, messages []Message, opts CompleteOptions) (string, error) {
	m.messages = messages
	m.opts = opts
	return "mock response", nil
}

func TestRegisterAndNewProvider(t *testing.T) {
	RegisterProvider("test-provider", func(config map[string]any) (Provider, error) {
		name := "test-provider"
		if n, ok := config["name"].(string); ok {
			name = n
		}
		return &mockProvider{name: name}, nil
	})

	provider, err := NewProvider("test-provider", map[string]any{"name": "custom-name"})
	require.NoError(t, err)
	assert.Equal(t, "custom-name", provider.Name())

	embedder, err := NewEmbeddingProvider("test-provider", nil)
	require.NoError(t, err)
	assert.Equal(t, "test-provider", embedder.Name())

	chat, err := NewChatProvider("test-provider", nil)
	require.NoError(t, err)
	assert.Equal(t, "test-provider", chat.Name())

	assert.Contains(t, ListProviders(), "test-provider")
}

func TestNewProviderUnknown(t *testing.T) {
	_, err := NewProvider("unknown-provider", nil)
	assert.Error(t, err)

	_, err = NewEmbeddingProvider("unknown-provider", nil)
	assert.ErrorContains(t, err, "embedding")

	_, err = NewChatProvider("unknown-provider", nil)
	assert.ErrorContains(t, err, "chat")
}

func TestComplete(t *testing.T) {
	m := &mockProvider{name: "m"}

	out, err := Complete(context.Background(), m, "system", "user", CompleteOptions{JSONMode: true})
	require.NoError(t, err)
	assert.Equal(t, "mock response", out)
	assert.Equal(t, []Message{
		{Role: RoleSystem, Content: "system"},
		{Role: RoleUser, Content: "user"},
	}, m.messages)
	assert.True(t, m.opts.JSONMode)

	_, err = Complete(context.Background(), m, "", "only user", CompleteOptions{})
	require.NoError(t, err)
	assert.Equal(t, []Message{{Role: RoleUser, Content: "only user"}}, m.messages)
	assert.False(t, m.opts.JSONMode)
}
