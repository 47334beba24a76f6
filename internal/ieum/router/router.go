// Package router registers the ieum-rag HTTP routes.
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/ieum/internal/ieum/handler"
	"github.com/kart-io/ieum/internal/ieum/metrics"
	"github.com/kart-io/ieum/pkg/infra/middleware"
)

// Options 路由配置。
type Options struct {
	// MaxUploadSize 上传请求体上限（字节），非正时不限制。
	MaxUploadSize int64
	// TracerName 非空时为每个请求创建服务端 span。
	TracerName string
	// Metrics 非空时注册 GET /metrics。
	Metrics *metrics.Metrics
}

// Register 注册全部路由。
func Register(engine *gin.Engine, h *handler.Handler, opts Options) {
	logger.Info("Registering ieum-rag routes...")

	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(),
		middleware.Logger(),
	)
	if opts.TracerName != "" {
		engine.Use(middleware.Tracing(opts.TracerName))
	}

	engine.GET("/healthz", h.Healthz)
	engine.GET("/version", h.Version)
	if opts.Metrics != nil {
		engine.GET("/metrics", opts.Metrics.Handler())
	}

	v1 := engine.Group("/v1")
	{
		v1.GET("/files", h.ListFiles)
		v1.GET("/dashboard", h.Dashboard)
		v1.DELETE("/files", h.DeleteFile)
		v1.POST("/upload", middleware.BodyLimit(opts.MaxUploadSize), h.Upload)
		v1.POST("/chat", h.Chat)
		v1.POST("/analyze", h.Analyze)
		v1.POST("/minutes", h.Minutes)
	}

	logger.Infow("HTTP routes registered", "routes", len(engine.Routes()))
}
