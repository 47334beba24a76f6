// Package handler provides HTTP handlers for the ieum-rag service.
package handler

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/ieum/internal/ieum/biz"
	"github.com/kart-io/ieum/internal/pkg/httputils"
	"github.com/kart-io/ieum/pkg/infra/app"
	"github.com/kart-io/ieum/pkg/utils/errors"
)

const docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// Handler 处理 ieum-rag 的 HTTP 请求。
type Handler struct {
	service *biz.Service
	tempDir string
	timeout time.Duration
}

// NewHandler 创建 Handler。tempDir 存放上传中的临时文件，timeout 为单个请求的处理时限（0 不限制）。
func NewHandler(service *biz.Service, tempDir string, timeout time.Duration) *Handler {
	return &Handler{
		service: service,
		tempDir: tempDir,
		timeout: timeout,
	}
}

func (h *Handler) context(c *gin.Context) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return context.WithCancel(c.Request.Context())
	}
	return context.WithTimeout(c.Request.Context(), h.timeout)
}

func invalidRequest(err error) error {
	return errors.ErrInvalidRequest.WithMessage(err.Error())
}

// Healthz 返回存活状态。
func (h *Handler) Healthz(c *gin.Context) {
	httputils.WriteResponse(c, nil, gin.H{"status": "ok"})
}

// Version 返回构建信息。
func (h *Handler) Version(c *gin.Context) {
	httputils.WriteResponse(c, nil, app.GetBuildInfo())
}

// ListFiles 列出已索引文件。
func (h *Handler) ListFiles(c *gin.Context) {
	ctx, cancel := h.context(c)
	defer cancel()

	files, err := h.service.ListFiles(ctx)
	httputils.WriteResponse(c, err, files)
}

// Dashboard 返回首页汇总。
func (h *Handler) Dashboard(c *gin.Context) {
	ctx, cancel := h.context(c)
	defer cancel()

	dash, err := h.service.Dashboard(ctx)
	httputils.WriteResponse(c, err, dash)
}

// Upload 接收 multipart 文件并摄取。
func (h *Handler) Upload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if stderrors.As(err, &maxErr) {
			httputils.WriteResponse(c, errors.ErrRequestTooLarge, nil)
			return
		}
		httputils.WriteResponse(c, invalidRequest(err), nil)
		return
	}

	name := filepath.Base(fh.Filename)
	if name == "." || name == string(filepath.Separator) || strings.TrimSpace(name) == "" {
		httputils.WriteResponse(c, errors.ErrInvalidRequest.WithMessage("file name is required"), nil)
		return
	}
	category := biz.UploadCategory(c.PostForm("category"))

	// 先校验扩展名，避免落盘不会被接受的文件
	if err := biz.CheckExtension(category, name); err != nil {
		httputils.WriteResponse(c, err, nil)
		return
	}

	dir, err := os.MkdirTemp(h.tempDir, "upload-*")
	if err != nil {
		httputils.WriteResponse(c, errors.ErrIngestFailed.WithCause(err), nil)
		return
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, name)
	if err := c.SaveUploadedFile(fh, path); err != nil {
		httputils.WriteResponse(c, errors.ErrIngestFailed.WithCause(err), nil)
		return
	}

	ctx, cancel := h.context(c)
	defer cancel()

	report, err := h.service.Upload(ctx, &biz.IngestRequest{
		FilePath: path,
		FileName: name,
		Category: category,
	})
	if err != nil {
		logger.Warnw("upload failed", "file", name, "category", category, "error", err.Error())
	}
	httputils.WriteResponse(c, err, report)
}

// ChatRequest 是问答请求。
type ChatRequest struct {
	Message  string `json:"message" binding:"required"`
	Category string `json:"category"`
}

// Chat 回答问题。
func (h *Handler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputils.WriteResponse(c, invalidRequest(err), nil)
		return
	}

	ctx, cancel := h.context(c)
	defer cancel()

	ans, err := h.service.Chat(ctx, req.Message, req.Category)
	httputils.WriteResponse(c, err, ans)
}

// AnalyzeRequest 是会议分析请求。
type AnalyzeRequest struct {
	Transcript string `json:"transcript" binding:"required"`
	Store      bool   `json:"store"`
}

// Analyze 结构化分析会议记录，store 为 true 时写入历史类别。
func (h *Handler) Analyze(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputils.WriteResponse(c, invalidRequest(err), nil)
		return
	}

	ctx, cancel := h.context(c)
	defer cancel()

	res, err := h.service.Analyze(ctx, req.Transcript, req.Store)
	if err != nil {
		httputils.WriteResponse(c, err, nil)
		return
	}
	if res.Stored != nil {
		c.Header("X-Stored-Title", url.PathEscape(res.Stored.Title))
	}
	httputils.WriteResponse(c, nil, res.Record)
}

// MinutesRequest 是纪要生成请求。
type MinutesRequest struct {
	Summary  string `json:"summary" binding:"required"`
	Template string `json:"template"`
}

// Minutes 生成纪要文档并以附件形式返回。
func (h *Handler) Minutes(c *gin.Context) {
	var req MinutesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputils.WriteResponse(c, invalidRequest(err), nil)
		return
	}

	ctx, cancel := h.context(c)
	defer cancel()

	res, err := h.service.Minutes(ctx, req.Summary, req.Template)
	if err != nil {
		httputils.WriteResponse(c, err, nil)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+res.FileName+`"`)
	c.Header("X-Template", url.PathEscape(res.Template))
	c.Header("X-Applied-Count", strconv.Itoa(res.Applied))
	c.Header("X-Warnings", strconv.Itoa(len(res.Warnings)))
	c.Data(http.StatusOK, docxContentType, res.Content)
}

// DeleteRequest 是删除请求。
type DeleteRequest struct {
	Filename string `json:"filename" binding:"required"`
	Category string `json:"category"`
}

// DeleteFile 删除文件及其索引条目。
func (h *Handler) DeleteFile(c *gin.Context) {
	var req DeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputils.WriteResponse(c, invalidRequest(err), nil)
		return
	}

	ctx, cancel := h.context(c)
	defer cancel()

	report, err := h.service.Delete(ctx, req.Filename, biz.UploadCategory(req.Category))
	httputils.WriteResponse(c, err, report)
}
