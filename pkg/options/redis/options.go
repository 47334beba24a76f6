// Package redis holds the options of the Redis instance shared by the
// ingestion lock and the embedding cache.
package redis

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/ieum/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options defines configuration options for Redis.
type Options struct {
	// Enabled 为 false 时摄取锁退化为进程内锁，嵌入缓存关闭。
	Enabled bool `json:"enabled" mapstructure:"enabled"`
	// Address is host:port.
	Address  string `json:"address" mapstructure:"address"`
	Password string `json:"-" mapstructure:"password"`
	Database int    `json:"database" mapstructure:"database"`

	PoolSize     int           `json:"pool-size" mapstructure:"pool-size"`
	MaxRetries   int           `json:"max-retries" mapstructure:"max-retries"`
	DialTimeout  time.Duration `json:"dial-timeout" mapstructure:"dial-timeout"`
	ReadTimeout  time.Duration `json:"read-timeout" mapstructure:"read-timeout"`
	WriteTimeout time.Duration `json:"write-timeout" mapstructure:"write-timeout"`

	// EmbeddingCacheTTL 为 0 时不缓存嵌入向量。
	EmbeddingCacheTTL time.Duration `json:"embedding-cache-ttl" mapstructure:"embedding-cache-ttl"`
}

// NewOptions creates a new Options object with default values.
func NewOptions() *Options {
	return &Options{
		Address:           "127.0.0.1:6379",
		PoolSize:          10,
		MaxRetries:        3,
		DialTimeout:       5 * time.Second,
		ReadTimeout:       3 * time.Second,
		WriteTimeout:      3 * time.Second,
		EmbeddingCacheTTL: 24 * time.Hour,
	}
}

// Addr returns host:port.
func (o *Options) Addr() string {
	return o.Address
}

// String returns a string representation with password redacted.
func (o *Options) String() string {
	password := ""
	if o.Password != "" {
		password = "[REDACTED]"
	}
	return fmt.Sprintf("Redis{address=%s, password=%s, database=%d}", o.Address, password, o.Database)
}

// Validate checks if the options are valid.
func (o *Options) Validate() []error {
	if o == nil || !o.Enabled {
		return nil
	}

	var errs []error
	if _, _, err := net.SplitHostPort(o.Address); err != nil {
		errs = append(errs, fmt.Errorf("redis.address %q is not host:port: %w", o.Address, err))
	}
	if o.Database < 0 {
		errs = append(errs, fmt.Errorf("redis.database must not be negative"))
	}
	if o.PoolSize <= 0 {
		errs = append(errs, fmt.Errorf("redis.pool-size must be positive"))
	}
	if o.EmbeddingCacheTTL < 0 {
		errs = append(errs, fmt.Errorf("redis.embedding-cache-ttl must not be negative"))
	}
	return errs
}

// Complete 在未配置密码时从 REDIS_PASSWORD 读取。
func (o *Options) Complete() error {
	if o.Password == "" {
		o.Password = os.Getenv("REDIS_PASSWORD")
	}
	return nil
}

// AddFlags adds flags for Redis options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...)
	fs.BoolVar(&o.Enabled, p+"enabled", o.Enabled, "Use Redis for ingestion locks and the embedding cache.")
	fs.StringVar(&o.Address, p+"address", o.Address, "Redis address (host:port).")
	fs.StringVar(&o.Password, p+"password", o.Password, "Redis password (prefer the REDIS_PASSWORD env var).")
	fs.IntVar(&o.Database, p+"database", o.Database, "Redis database.")
	fs.IntVar(&o.PoolSize, p+"pool-size", o.PoolSize, "Redis connection pool size.")
	fs.IntVar(&o.MaxRetries, p+"max-retries", o.MaxRetries, "Redis command retries, -1 disables retries.")
	fs.DurationVar(&o.DialTimeout, p+"dial-timeout", o.DialTimeout, "Redis dial timeout.")
	fs.DurationVar(&o.ReadTimeout, p+"read-timeout", o.ReadTimeout, "Redis read timeout.")
	fs.DurationVar(&o.WriteTimeout, p+"write-timeout", o.WriteTimeout, "Redis write timeout.")
	fs.DurationVar(&o.EmbeddingCacheTTL, p+"embedding-cache-ttl", o.EmbeddingCacheTTL, "How long cached embeddings live, 0 disables the cache.")
}
