// Package llm provides LLM provider configuration options.
package llm

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/ieum/pkg/options"
)

var _ options.IOptions = (*ProviderOptions)(nil)

// ProviderOptions 定义 LLM 供应商配置。
type ProviderOptions struct {
	// Provider 供应商名称（ollama, openai）。
	Provider string `json:"provider" mapstructure:"provider"`

	// BaseURL API 基础地址。
	BaseURL string `json:"base-url" mapstructure:"base-url"`

	// APIKey API 密钥（OpenAI 等需要）。
	APIKey string `json:"-" mapstructure:"api-key"`

	// APIType 为 azure 时按 Azure OpenAI 方式访问。
	APIType string `json:"api-type" mapstructure:"api-type"`

	// APIVersion Azure OpenAI 的 API 版本。
	APIVersion string `json:"api-version" mapstructure:"api-version"`

	// Model 使用的模型名称（Azure 下为部署名）。
	Model string `json:"model" mapstructure:"model"`

	// Dimensions 嵌入维度，0 表示模型默认值。
	Dimensions int `json:"dimensions" mapstructure:"dimensions"`

	// Timeout 请求超时时间。
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// MaxRetries 最大重试次数。
	MaxRetries int `json:"max-retries" mapstructure:"max-retries"`

	// Organization 组织 ID（OpenAI 可选）。
	Organization string `json:"organization" mapstructure:"organization"`
}

// NewProviderOptions 创建默认 LLM 供应商配置。
func NewProviderOptions() *ProviderOptions {
	return &ProviderOptions{
		Provider:   "openai",
		APIVersion: "2024-06-01",
		Timeout:    120 * time.Second,
	}
}

// NewEmbeddingOptions 创建默认 Embedding 供应商配置。
func NewEmbeddingOptions() *ProviderOptions {
	opts := NewProviderOptions()
	opts.Model = "text-embedding-3-small"
	return opts
}

// NewChatOptions 创建默认 Chat 供应商配置。
func NewChatOptions() *ProviderOptions {
	opts := NewProviderOptions()
	opts.Model = "gpt-4o-mini"
	return opts
}

// ToConfigMap 转换为配置 map，用于供应商工厂。
func (o *ProviderOptions) ToConfigMap() map[string]any {
	return map[string]any{
		"base_url":     o.BaseURL,
		"api_key":      o.APIKey,
		"api_type":     o.APIType,
		"api_version":  o.APIVersion,
		"embed_model":  o.Model,
		"chat_model":   o.Model,
		"dimensions":   o.Dimensions,
		"timeout":      o.Timeout,
		"max_retries":  o.MaxRetries,
		"organization": o.Organization,
	}
}

// AddFlags adds flags for LLM provider options to the specified FlagSet.
func (o *ProviderOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...)
	fs.StringVar(&o.Provider, p+"provider", o.Provider, "LLM provider (ollama, openai).")
	fs.StringVar(&o.BaseURL, p+"base-url", o.BaseURL, "LLM API base URL.")
	fs.StringVar(&o.APIKey, p+"api-key", o.APIKey, "LLM API key.")
	fs.StringVar(&o.APIType, p+"api-type", o.APIType, "API flavour; set to azure for Azure OpenAI.")
	fs.StringVar(&o.APIVersion, p+"api-version", o.APIVersion, "Azure OpenAI API version.")
	fs.StringVar(&o.Model, p+"model", o.Model, "Model or deployment name.")
	fs.IntVar(&o.Dimensions, p+"dimensions", o.Dimensions, "Embedding dimensions (0 uses the model default).")
	fs.DurationVar(&o.Timeout, p+"timeout", o.Timeout, "LLM request timeout.")
	fs.IntVar(&o.MaxRetries, p+"max-retries", o.MaxRetries, "LLM maximum number of retries.")
	fs.StringVar(&o.Organization, p+"organization", o.Organization, "LLM organization ID (optional).")
}

// Validate validates the LLM provider options.
func (o *ProviderOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	switch o.Provider {
	case "ollama":
		if o.BaseURL == "" {
			errs = append(errs, fmt.Errorf("base-url is required for ollama provider"))
		}
	case "openai":
		if o.APIKey == "" {
			errs = append(errs, fmt.Errorf("api-key is required for openai provider"))
		}
		if o.APIType == "azure" && o.BaseURL == "" {
			errs = append(errs, fmt.Errorf("base-url is required when api-type is azure"))
		}
	case "":
		errs = append(errs, fmt.Errorf("provider is required"))
	default:
		errs = append(errs, fmt.Errorf("unsupported provider %q", o.Provider))
	}
	if o.Model == "" {
		errs = append(errs, fmt.Errorf("model is required"))
	}
	if o.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive"))
	}
	if o.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("max-retries cannot be negative"))
	}
	return errs
}

// Complete 补全默认地址，未配置密钥时从环境变量读取。
func (o *ProviderOptions) Complete() error {
	switch o.Provider {
	case "ollama":
		if o.BaseURL == "" {
			o.BaseURL = "http://localhost:11434"
		}
	case "openai":
		if o.APIKey != "" {
			break
		}
		if o.APIType == "azure" {
			o.APIKey = os.Getenv("AZURE_OPENAI_API_KEY")
		} else {
			o.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}
	return nil
}
