// Package blob provides object storage configuration options.
package blob

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"github.com/kart-io/ieum/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

const (
	// BackendGCS 使用 Google Cloud Storage。
	BackendGCS = "gcs"
	// BackendLocal 使用本地目录。
	BackendLocal = "local"
)

// Options 对象存储配置。
type Options struct {
	// Backend 存储后端（gcs|local）。
	Backend string `json:"backend" mapstructure:"backend"`

	// Bucket GCS 桶名，同时作为容器名。
	Bucket string `json:"bucket" mapstructure:"bucket"`

	// ProjectID 桶不存在时用于创建桶。
	ProjectID string `json:"project-id" mapstructure:"project-id"`

	// CredentialsFile GCS 服务账号凭据文件，为空时使用默认凭据。
	CredentialsFile string `json:"credentials-file" mapstructure:"credentials-file"`

	// BaseDir 本地后端根目录。
	BaseDir string `json:"base-dir" mapstructure:"base-dir"`

	// PublicBaseURL 对象公开访问地址前缀，为空时按后端推导。
	PublicBaseURL string `json:"public-base-url" mapstructure:"public-base-url"`
}

// NewOptions 创建默认对象存储配置。
func NewOptions() *Options {
	return &Options{
		Backend: BackendGCS,
		Bucket:  "ieum-documents",
		BaseDir: "./data/blobs",
	}
}

// AddFlags adds flags for blob options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...)
	fs.StringVar(&o.Backend, p+"backend", o.Backend, "Object storage backend (gcs|local).")
	fs.StringVar(&o.Bucket, p+"bucket", o.Bucket, "GCS bucket name.")
	fs.StringVar(&o.ProjectID, p+"project-id", o.ProjectID, "GCP project used to create the bucket when missing.")
	fs.StringVar(&o.CredentialsFile, p+"credentials-file", o.CredentialsFile, "GCS credentials file (defaults to application default credentials).")
	fs.StringVar(&o.BaseDir, p+"base-dir", o.BaseDir, "Root directory for the local backend.")
	fs.StringVar(&o.PublicBaseURL, p+"public-base-url", o.PublicBaseURL, "Public URL prefix for stored objects.")
}

// Validate validates the blob options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	switch o.Backend {
	case BackendGCS:
		if o.Bucket == "" {
			errs = append(errs, fmt.Errorf("blob.bucket is required for gcs backend"))
		}
	case BackendLocal:
		if o.BaseDir == "" {
			errs = append(errs, fmt.Errorf("blob.base-dir is required for local backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("blob.backend must be gcs or local, got %q", o.Backend))
	}
	return errs
}

// Complete 规范化公开地址。
func (o *Options) Complete() error {
	o.PublicBaseURL = strings.TrimRight(o.PublicBaseURL, "/")
	if o.PublicBaseURL == "" && o.Backend == BackendGCS {
		o.PublicBaseURL = "https://storage.googleapis.com/" + o.Bucket
	}
	return nil
}
