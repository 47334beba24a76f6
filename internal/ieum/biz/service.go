package biz

import (
	"context"
	"time"

	"github.com/kart-io/ieum/internal/ieum/blob"
	"github.com/kart-io/ieum/internal/ieum/metrics"
	"github.com/kart-io/ieum/internal/ieum/store"
	"github.com/kart-io/ieum/internal/pkg/extract"
	"github.com/kart-io/ieum/pkg/infra/pool"
	"github.com/kart-io/ieum/pkg/infra/tracing"
	"github.com/kart-io/ieum/pkg/llm"
)

const tracerName = "ieum-rag/biz"

// Deps 是业务层依赖的外部组件。
type Deps struct {
	Blobs     blob.ObjectStore
	Index     store.SearchIndex
	Embedder  llm.EmbeddingProvider
	Chat      llm.ChatProvider
	Extractor *extract.Extractor
	Pool      *pool.Pool
	Locker    Locker
	// Metrics 为空时使用全局实例。
	Metrics *metrics.Metrics
}

// Config 业务层配置。
type Config struct {
	Ingest  *IngestConfig
	TopK    int
	Minutes *MinutesConfig
}

// Service 聚合全部业务操作，供 HTTP 层调用。
type Service struct {
	index     store.SearchIndex
	ingestor  *Ingestor
	retriever *Retriever
	analyzer  *Analyzer
	minutes   *MinutesGenerator
	deleter   *Deleter
	metrics   *metrics.Metrics
}

// NewService 按依赖与配置组装业务层。
func NewService(deps Deps, cfg Config) *Service {
	if deps.Locker == nil {
		deps.Locker = NewLocalLocker()
	}
	if deps.Extractor == nil {
		deps.Extractor = extract.New(true)
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.Get()
	}
	return &Service{
		index:     deps.Index,
		ingestor:  NewIngestor(deps.Blobs, deps.Index, deps.Embedder, deps.Extractor, deps.Pool, deps.Locker, cfg.Ingest),
		retriever: NewRetriever(deps.Index, deps.Embedder, deps.Chat, cfg.TopK),
		analyzer:  NewAnalyzer(deps.Chat, deps.Embedder, deps.Index),
		minutes:   NewMinutesGenerator(deps.Blobs, deps.Chat, cfg.Minutes),
		deleter:   NewDeleter(deps.Blobs, deps.Index),
		metrics:   deps.Metrics,
	}
}

// Upload 摄取一个文件。
func (s *Service) Upload(ctx context.Context, req *IngestRequest) (*IngestReport, error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "Upload")
	defer span.End()
	span.SetAttributes(tracing.String("category", string(req.Category)))

	start := time.Now()
	report, err := s.ingestor.Ingest(ctx, req)
	s.metrics.ObserveDuration("upload", time.Since(start))
	tracing.RecordError(span, err)
	if err != nil || report == nil {
		s.metrics.RecordUpload(0, 0, 0, err)
	} else {
		s.metrics.RecordUpload(report.Indexed, len(report.Failures), report.Removed, nil)
	}
	if report != nil {
		span.SetAttributes(
			tracing.String("file", report.FileName),
			tracing.Int("chunks", report.Chunks),
			tracing.Int("indexed", report.Indexed),
		)
	}
	return report, err
}

// Chat 回答问题。
func (s *Service) Chat(ctx context.Context, message, category string) (*Answer, error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "Chat")
	defer span.End()
	span.SetAttributes(tracing.String("category", category))

	start := time.Now()
	ans, err := s.retriever.Answer(ctx, message, category)
	s.metrics.ObserveDuration("chat", time.Since(start))
	s.metrics.RecordQuery(ans != nil && len(ans.Sources) == 0, err)
	tracing.RecordError(span, err)
	if ans != nil {
		span.SetAttributes(tracing.Int("sources", len(ans.Sources)))
	}
	return ans, err
}

// Analyze 结构化分析会议记录。
func (s *Service) Analyze(ctx context.Context, transcript string, persist bool) (*AnalyzeResult, error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "Analyze")
	defer span.End()
	span.SetAttributes(tracing.Bool("persist", persist))

	start := time.Now()
	res, err := s.analyzer.AnalyzeAndStore(ctx, transcript, persist)
	s.metrics.ObserveDuration("analyze", time.Since(start))
	s.metrics.RecordAnalysis(res != nil && res.Stored != nil, err)
	tracing.RecordError(span, err)
	return res, err
}

// Minutes 按模板生成纪要。
func (s *Service) Minutes(ctx context.Context, summary, template string) (*MinutesResult, error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "Minutes")
	defer span.End()

	start := time.Now()
	res, err := s.minutes.Generate(ctx, summary, template)
	s.metrics.ObserveDuration("minutes", time.Since(start))
	tracing.RecordError(span, err)
	applied := 0
	if res != nil {
		applied = res.Applied
	}
	s.metrics.RecordMinutes(applied, err)
	if res != nil {
		span.SetAttributes(tracing.String("template", res.Template), tracing.Int("applied", res.Applied))
	}
	return res, err
}

// Delete 删除文件及其索引条目。
func (s *Service) Delete(ctx context.Context, filename string, category Category) (*DeleteReport, error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "Delete")
	defer span.End()
	span.SetAttributes(tracing.String("file", filename), tracing.String("category", string(category)))

	start := time.Now()
	report, err := s.deleter.Delete(ctx, filename, category)
	s.metrics.ObserveDuration("delete", time.Since(start))
	var entries int64
	if report != nil {
		entries = report.EntriesDeleted
	}
	s.metrics.RecordDelete(entries, err)
	tracing.RecordError(span, err)
	return report, err
}

// ListFiles 列出已索引的文件。
func (s *Service) ListFiles(ctx context.Context) ([]FileInfo, error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "ListFiles")
	defer span.End()

	files, err := ListFiles(ctx, s.index)
	tracing.RecordError(span, err)
	return files, err
}

// Dashboard 汇总最近的会议分析。
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "Dashboard")
	defer span.End()

	dash, err := BuildDashboard(ctx, s.index)
	tracing.RecordError(span, err)
	if dash != nil {
		span.SetAttributes(tracing.Int("meetings", len(dash.Meetings)))
	}
	return dash, err
}
