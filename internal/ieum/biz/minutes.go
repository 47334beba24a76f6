package biz

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/kart-io/ieum/internal/ieum/blob"
	"github.com/kart-io/ieum/internal/pkg/docx"
	"github.com/kart-io/ieum/pkg/llm"
	"github.com/kart-io/ieum/pkg/utils/errors"
	"github.com/kart-io/ieum/pkg/utils/json"
	"github.com/kart-io/logger"
)

// MinutesConfig 纪要生成配置。
type MinutesConfig struct {
	// TemplateContainer 模板所在容器。
	TemplateContainer string
	// DefaultTemplate 请求未指定时使用的模板，为空时取最近更新的 .docx。
	DefaultTemplate string
	// TempDir 临时文件目录。
	TempDir string
}

// MinutesResult 是生成的纪要文档。
type MinutesResult struct {
	FileName string
	Template string
	Content  []byte
	Applied  int
	Warnings []string
}

// MinutesGenerator 将新摘要按坐标写回纪要模板。
type MinutesGenerator struct {
	blobs  blob.ObjectStore
	chat   llm.ChatProvider
	config *MinutesConfig
	create func(path string) (io.WriteCloser, error)
}

func createFile(path string) (io.WriteCloser, error) {
	return os.Create(path)
}

// NewMinutesGenerator 创建纪要生成器。
func NewMinutesGenerator(blobs blob.ObjectStore, chat llm.ChatProvider, config *MinutesConfig) *MinutesGenerator {
	if config == nil {
		config = &MinutesConfig{}
	}
	if config.TemplateContainer == "" {
		config.TemplateContainer = string(CategoryStyle)
	}
	return &MinutesGenerator{blobs: blobs, chat: chat, config: config, create: createFile}
}

// Generate 选择模板、请求坐标映射并改写模板，返回生成的文档。
func (g *MinutesGenerator) Generate(ctx context.Context, summary, templateName string) (*MinutesResult, error) {
	if strings.TrimSpace(summary) == "" {
		return nil, errors.ErrInvalidRequest.WithMessage("summary is required")
	}

	name, err := g.selectTemplate(ctx, templateName)
	if err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp(g.config.TempDir, "minutes-*")
	if err != nil {
		return nil, errors.ErrPatchFailed.WithCause(err)
	}
	defer os.RemoveAll(dir)

	templatePath := filepath.Join(dir, "template.docx")
	if err := g.download(ctx, name, templatePath); err != nil {
		return nil, err
	}

	coords, err := docx.ExtractCoordinates(templatePath)
	if err != nil {
		return nil, errors.ErrPatchFailed.WithCause(fmt.Errorf("read template %s: %w", name, err))
	}

	plan, err := g.mapUpdates(ctx, docx.RenderCoordinates(coords), summary)
	if err != nil {
		return nil, err
	}

	outName := fmt.Sprintf("minutes-%s.docx", uuid.NewString())
	outPath := filepath.Join(dir, outName)
	res, err := docx.ApplyFile(templatePath, outPath, plan)
	if err != nil {
		return nil, errors.ErrPatchFailed.WithCause(err)
	}

	content, err := os.ReadFile(outPath)
	if err != nil {
		return nil, errors.ErrPatchFailed.WithCause(err)
	}

	logger.Infow("minutes generated",
		"template", name,
		"coordinates", len(coords),
		"planned", plan.Len(),
		"applied", res.Applied,
		"warnings", len(res.Warnings),
	)
	return &MinutesResult{
		FileName: outName,
		Template: name,
		Content:  content,
		Applied:  res.Applied,
		Warnings: res.Warnings,
	}, nil
}

// selectTemplate 返回指定模板，未指定时取最近更新的 .docx。
func (g *MinutesGenerator) selectTemplate(ctx context.Context, name string) (string, error) {
	container := g.config.TemplateContainer
	if name == "" {
		name = g.config.DefaultTemplate
	}

	if name != "" {
		ok, err := g.blobs.Exists(ctx, container, name)
		if err != nil {
			return "", errors.ErrExternalService.WithCause(err)
		}
		if !ok {
			return "", errors.ErrTemplateNotFound.WithMessagef("template %s not found", name)
		}
		return name, nil
	}

	infos, err := g.blobs.List(ctx, container)
	if err != nil {
		return "", errors.ErrExternalService.WithCause(err)
	}

	var latest *blob.ObjectInfo
	for i := range infos {
		if !strings.EqualFold(filepath.Ext(infos[i].Name), ".docx") {
			continue
		}
		if latest == nil || infos[i].Updated.After(latest.Updated) {
			latest = &infos[i]
		}
	}
	if latest == nil {
		return "", errors.ErrTemplateNotFound
	}
	return latest.Name, nil
}

func (g *MinutesGenerator) download(ctx context.Context, name, path string) error {
	f, err := g.create(path)
	if err != nil {
		return errors.ErrPatchFailed.WithCause(err)
	}

	if err := g.blobs.Download(ctx, g.config.TemplateContainer, name, f); err != nil {
		_ = f.Close()
		if stderrors.Is(err, blob.ErrObjectNotExist) {
			return errors.ErrTemplateNotFound.WithMessagef("template %s not found", name)
		}
		return errors.ErrExternalService.WithCause(err)
	}
	if err := f.Close(); err != nil {
		return errors.ErrPatchFailed.WithCause(fmt.Errorf("write template %s: %w", name, err))
	}
	return nil
}

// mappingResponse 是坐标映射的模型输出。
type mappingResponse struct {
	Updates *[]docx.Update `json:"updates"`
}

// mapUpdates 请求模型决定每个坐标的新文本。
func (g *MinutesGenerator) mapUpdates(ctx context.Context, coordinates, summary string) (*docx.UpdatePlan, error) {
	raw, err := llm.Complete(ctx, g.chat,
		mappingSystemPrompt,
		fmt.Sprintf(mappingUserPrompt, coordinates, summary),
		llm.CompleteOptions{JSONMode: true})
	if err != nil {
		return nil, errors.ErrExternalService.WithCause(fmt.Errorf("completion: %w", err))
	}
	return ParseUpdatePlan(raw)
}

// ParseUpdatePlan 解析 {"updates":[{"id","new_text"}]}，格式不符返回 ErrSchema。
func ParseUpdatePlan(raw string) (*docx.UpdatePlan, error) {
	var resp mappingResponse
	if err := json.UnmarshalObject([]byte(raw), &resp); err != nil {
		return nil, errors.ErrSchema.WithCause(err)
	}
	if resp.Updates == nil {
		return nil, errors.ErrSchema.WithMessage(`mapping response is missing "updates"`)
	}
	return docx.NewUpdatePlan(*resp.Updates), nil
}
