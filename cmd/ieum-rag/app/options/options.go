// Package options contains flags and options for initializing the ieum-rag server.
package options

import (
	"fmt"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/kart-io/ieum/internal/ieum"
	"github.com/kart-io/ieum/pkg/app/cliflag"
	blobopts "github.com/kart-io/ieum/pkg/options/blob"
	llmopts "github.com/kart-io/ieum/pkg/options/llm"
	logopts "github.com/kart-io/ieum/pkg/options/logger"
	milvusopts "github.com/kart-io/ieum/pkg/options/milvus"
	ragopts "github.com/kart-io/ieum/pkg/options/rag"
	redisopts "github.com/kart-io/ieum/pkg/options/redis"
	httpopts "github.com/kart-io/ieum/pkg/options/server/http"
	tracingopts "github.com/kart-io/ieum/pkg/options/tracing"
)

// ServerOptions contains the configuration options for the server.
type ServerOptions struct {
	// HTTPOptions contains HTTP server configuration.
	HTTPOptions *httpopts.Options `json:"http" mapstructure:"http"`
	// LogOptions contains logger configuration.
	LogOptions *logopts.Options `json:"log" mapstructure:"log"`
	// TracingOptions contains OpenTelemetry configuration.
	TracingOptions *tracingopts.Options `json:"tracing" mapstructure:"tracing"`
	// MilvusOptions contains Milvus database configuration.
	MilvusOptions *milvusopts.Options `json:"milvus" mapstructure:"milvus"`
	// RedisOptions contains Redis configuration for locks and the embedding cache.
	RedisOptions *redisopts.Options `json:"redis" mapstructure:"redis"`
	// BlobOptions contains object storage configuration.
	BlobOptions *blobopts.Options `json:"blob" mapstructure:"blob"`
	// EmbeddingOptions contains embedding provider configuration.
	EmbeddingOptions *llmopts.ProviderOptions `json:"embedding" mapstructure:"embedding"`
	// ChatOptions contains chat provider configuration.
	ChatOptions *llmopts.ProviderOptions `json:"chat" mapstructure:"chat"`
	// IngestOptions contains ingestion pipeline configuration.
	IngestOptions *ragopts.IngestOptions `json:"ingest" mapstructure:"ingest"`
	// RetrievalOptions contains retrieval configuration.
	RetrievalOptions *ragopts.RetrievalOptions `json:"retrieval" mapstructure:"retrieval"`
	// MinutesOptions contains minutes generation configuration.
	MinutesOptions *ragopts.MinutesOptions `json:"minutes" mapstructure:"minutes"`
}

// NewServerOptions creates a ServerOptions instance with default values.
func NewServerOptions() *ServerOptions {
	return &ServerOptions{
		HTTPOptions:      httpopts.NewOptions(),
		LogOptions:       logopts.NewOptions(),
		TracingOptions:   tracingopts.NewOptions(),
		MilvusOptions:    milvusopts.NewOptions(),
		RedisOptions:     redisopts.NewOptions(),
		BlobOptions:      blobopts.NewOptions(),
		EmbeddingOptions: llmopts.NewEmbeddingOptions(),
		ChatOptions:      llmopts.NewChatOptions(),
		IngestOptions:    ragopts.NewIngestOptions(),
		RetrievalOptions: ragopts.NewRetrievalOptions(),
		MinutesOptions:   ragopts.NewMinutesOptions(),
	}
}

// Flags returns flags for a specific server by section name.
func (o *ServerOptions) Flags() (fss cliflag.NamedFlagSets) {
	o.HTTPOptions.AddFlags(fss.FlagSet("http"), "http.")
	o.LogOptions.AddFlags(fss.FlagSet("log"), "log.")
	o.TracingOptions.AddFlags(fss.FlagSet("tracing"), "tracing.")
	o.MilvusOptions.AddFlags(fss.FlagSet("milvus"), "milvus.")
	o.RedisOptions.AddFlags(fss.FlagSet("redis"), "redis.")
	o.BlobOptions.AddFlags(fss.FlagSet("blob"), "blob.")
	o.EmbeddingOptions.AddFlags(fss.FlagSet("embedding"), "embedding.")
	o.ChatOptions.AddFlags(fss.FlagSet("chat"), "chat.")
	o.IngestOptions.AddFlags(fss.FlagSet("ingest"), "ingest.")
	o.RetrievalOptions.AddFlags(fss.FlagSet("retrieval"), "retrieval.")
	o.MinutesOptions.AddFlags(fss.FlagSet("minutes"), "minutes.")
	return fss
}

// Complete completes all the required options.
func (o *ServerOptions) Complete() error {
	if err := o.HTTPOptions.Complete(); err != nil {
		return fmt.Errorf("http: %w", err)
	}
	if err := o.LogOptions.Complete(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	if err := o.TracingOptions.Complete(); err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	if err := o.MilvusOptions.Complete(); err != nil {
		return fmt.Errorf("milvus: %w", err)
	}
	if err := o.RedisOptions.Complete(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	if err := o.BlobOptions.Complete(); err != nil {
		return fmt.Errorf("blob: %w", err)
	}
	if err := o.EmbeddingOptions.Complete(); err != nil {
		return fmt.Errorf("embedding: %w", err)
	}
	if err := o.ChatOptions.Complete(); err != nil {
		return fmt.Errorf("chat: %w", err)
	}
	if err := o.IngestOptions.Complete(); err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	return nil
}

// Validate checks whether the options in ServerOptions are valid.
func (o *ServerOptions) Validate() error {
	errs := []error{}

	errs = append(errs, o.HTTPOptions.Validate()...)
	errs = append(errs, o.LogOptions.Validate()...)
	errs = append(errs, o.TracingOptions.Validate()...)
	errs = append(errs, o.RedisOptions.Validate()...)
	errs = append(errs, o.BlobOptions.Validate()...)
	errs = append(errs, o.EmbeddingOptions.Validate()...)
	errs = append(errs, o.ChatOptions.Validate()...)
	errs = append(errs, o.IngestOptions.Validate()...)
	errs = append(errs, o.RetrievalOptions.Validate()...)
	errs = append(errs, o.MinutesOptions.Validate()...)

	// 内存索引不连接 Milvus，但仍使用其向量维度配置
	if o.RetrievalOptions.IndexBackend == "milvus" {
		errs = append(errs, o.MilvusOptions.Validate()...)
	} else if o.MilvusOptions.Dimension <= 0 {
		errs = append(errs, fmt.Errorf("milvus.dimension must be positive"))
	}

	return utilerrors.NewAggregate(errs)
}

// Config builds an ieum.Config based on ServerOptions.
func (o *ServerOptions) Config() (*ieum.Config, error) {
	return &ieum.Config{
		HTTPOptions:      o.HTTPOptions,
		LogOptions:       o.LogOptions,
		TracingOptions:   o.TracingOptions,
		MilvusOptions:    o.MilvusOptions,
		RedisOptions:     o.RedisOptions,
		BlobOptions:      o.BlobOptions,
		EmbeddingOptions: o.EmbeddingOptions,
		ChatOptions:      o.ChatOptions,
		IngestOptions:    o.IngestOptions,
		RetrievalOptions: o.RetrievalOptions,
		MinutesOptions:   o.MinutesOptions,
	}, nil
}
