package handler_test

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/ieum/internal/ieum/biz"
	"github.com/kart-io/ieum/internal/ieum/blob"
	"github.com/kart-io/ieum/internal/ieum/handler"
	"github.com/kart-io/ieum/internal/ieum/metrics"
	"github.com/kart-io/ieum/internal/ieum/router"
	"github.com/kart-io/ieum/internal/ieum/store"
	"github.com/kart-io/ieum/pkg/infra/pool"
	"github.com/kart-io/ieum/pkg/llm"
	blobopts "github.com/kart-io/ieum/pkg/options/blob"
	"github.com/kart-io/ieum/pkg/utils/errors"
	"github.com/kart-io/ieum/pkg/utils/json"
	"github.com/kart-io/ieum/pkg/utils/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubEmbedder struct{}

func (stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, float32(len(texts[i])), 0}
	}
	return out, nil
}

func (s stubEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	out, _ := s.Embed(ctx, []string{text})
	return out[0], nil
}

func (stubEmbedder) Name() string { return "stub" }

type stubChat struct {
	mu    sync.Mutex
	reply string
	calls int
}

func (s *stubChat) Chat(_ context.Context, _ []llm.Message, _ llm.CompleteOptions) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.reply, nil
}

func (s *stubChat) Name() string { return "stub" }

type testServer struct {
	engine  *gin.Engine
	blobs   blob.ObjectStore
	index   *store.MemoryIndex
	chat    *stubChat
	metrics *metrics.Metrics
}

func newTestServer(t *testing.T, maxUpload int64) *testServer {
	t.Helper()

	opts := blobopts.NewOptions()
	opts.Backend = blobopts.BackendLocal
	opts.BaseDir = t.TempDir()
	blobs, err := blob.NewLocalStore(opts)
	require.NoError(t, err)

	p, err := pool.NewPool("test", pool.EmbeddingPoolConfig(2))
	require.NoError(t, err)
	t.Cleanup(p.Release)

	ts := &testServer{
		blobs:   blobs,
		index:   store.NewMemoryIndex(3),
		chat:    &stubChat{reply: "답변"},
		metrics: metrics.New(),
	}
	svc := biz.NewService(biz.Deps{
		Blobs:    blobs,
		Index:    ts.index,
		Embedder: stubEmbedder{},
		Chat:     ts.chat,
		Pool:     p,
		Metrics:  ts.metrics,
	}, biz.Config{TopK: 3, Minutes: &biz.MinutesConfig{TempDir: t.TempDir()}})

	ts.engine = gin.New()
	router.Register(ts.engine, handler.NewHandler(svc, t.TempDir(), 0), router.Options{
		MaxUploadSize: maxUpload,
		Metrics:       ts.metrics,
	})
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, *response.Response) {
	t.Helper()
	var r *http.Request
	if body == nil {
		r = httptest.NewRequest(method, path, nil)
	} else {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = httptest.NewRequest(method, path, bytes.NewReader(data))
		r.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	ts.engine.ServeHTTP(w, r)

	var resp response.Response
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, &resp
}

func (ts *testServer) upload(t *testing.T, name, category, content string) (*httptest.ResponseRecorder, *response.Response) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("category", category))
	require.NoError(t, mw.Close())

	r := httptest.NewRequest(http.MethodPost, "/v1/upload", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	ts.engine.ServeHTTP(w, r)

	var resp response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, &resp
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, 0)

	w, resp := ts.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, resp.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, w.Header().Get("X-Request-ID"), resp.RequestID)
}

func TestVersion(t *testing.T) {
	ts := newTestServer(t, 0)

	w, resp := ts.do(t, http.MethodGet, "/version", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, data, "git_version")
}

func TestUploadListChatDelete(t *testing.T) {
	ts := newTestServer(t, 0)

	w, resp := ts.upload(t, "guide.txt", "external", "회의 예산 가이드")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 0, resp.Code)
	assert.Equal(t, 1, ts.index.Len())

	_, resp = ts.do(t, http.MethodGet, "/v1/files", nil)
	files, ok := resp.Data.([]interface{})
	require.True(t, ok)
	require.Len(t, files, 1)
	assert.Equal(t, "guide.txt", files[0].(map[string]interface{})["name"])
	assert.Equal(t, "reference", files[0].(map[string]interface{})["category"])

	w, resp = ts.do(t, http.MethodPost, "/v1/chat", handler.ChatRequest{Message: "예산", Category: "all"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "답변", resp.Data.(map[string]interface{})["answer"])

	w, resp = ts.do(t, http.MethodDelete, "/v1/files", handler.DeleteRequest{Filename: "guide.txt", Category: "external"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, resp.Data.(map[string]interface{})["blob_deleted"])
	assert.Zero(t, ts.index.Len())
}

func TestUpload_RejectsWrongExtension(t *testing.T) {
	ts := newTestServer(t, 0)

	w, resp := ts.upload(t, "form.pdf", "style", "%PDF")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, errors.ErrUnsupportedFileType.Code, resp.Code)
}

func TestUpload_TooLarge(t *testing.T) {
	ts := newTestServer(t, 64)

	w, resp := ts.upload(t, "big.txt", "reference", strings.Repeat("x", 1024))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, errors.ErrRequestTooLarge.Code, resp.Code)
}

func TestChat_Errors(t *testing.T) {
	ts := newTestServer(t, 0)

	w, resp := ts.do(t, http.MethodPost, "/v1/chat", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, errors.ErrInvalidRequest.Code, resp.Code)

	w, resp = ts.do(t, http.MethodPost, "/v1/chat", handler.ChatRequest{Message: "q", Category: "style"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, errors.ErrInvalidCategory.Code, resp.Code)
}

func TestChat_NoResult(t *testing.T) {
	ts := newTestServer(t, 0)

	w, resp := ts.do(t, http.MethodPost, "/v1/chat", handler.ChatRequest{Message: "아무거나"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, biz.NotFoundAnswer, resp.Data.(map[string]interface{})["answer"])
	assert.Zero(t, ts.chat.calls)
}

func TestAnalyze(t *testing.T) {
	ts := newTestServer(t, 0)

	w, resp := ts.do(t, http.MethodPost, "/v1/analyze", handler.AnalyzeRequest{Transcript: "네"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, resp.Data.(map[string]interface{})["summary"])
	assert.Zero(t, ts.chat.calls)

	ts.chat.reply = "not json"
	w, resp = ts.do(t, http.MethodPost, "/v1/analyze", handler.AnalyzeRequest{Transcript: "충분히 긴 회의 기록입니다."})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, errors.ErrSchema.Code, resp.Code)
}

func TestMinutes_NoTemplate(t *testing.T) {
	ts := newTestServer(t, 0)

	w, resp := ts.do(t, http.MethodPost, "/v1/minutes", handler.MinutesRequest{Summary: "요약"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, errors.ErrTemplateNotFound.Code, resp.Code)
}

func TestMetrics(t *testing.T) {
	ts := newTestServer(t, 0)

	_, resp := ts.upload(t, "notes.txt", "reference", "주간 회의 메모")
	require.Equal(t, 0, resp.Code)
	ts.do(t, http.MethodPost, "/v1/chat", handler.ChatRequest{Message: "메모"})

	r := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	ts.engine.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, metrics.Namespace+"_uploads_total 1\n")
	assert.Contains(t, body, metrics.Namespace+"_chunks_indexed_total 1\n")
	assert.Contains(t, body, metrics.Namespace+"_queries_total 1\n")
}

func TestDashboard(t *testing.T) {
	ts := newTestServer(t, 0)

	w, resp := ts.do(t, http.MethodGet, "/v1/dashboard", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, resp.Data.(map[string]interface{})["meetings"])

	ts.chat.reply = `{"summary": "출시 일정 확정", "decisions": [], "actionItems": [],
		"openIssues": ["가격 정책"], "insights": {"recommendations": ["QA 조기 확보"]}}`
	w, _ = ts.do(t, http.MethodPost, "/v1/analyze", handler.AnalyzeRequest{Transcript: "충분히 긴 회의 기록입니다.", Store: true})
	require.Equal(t, http.StatusOK, w.Code)

	w, resp = ts.do(t, http.MethodGet, "/v1/dashboard", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := resp.Data.(map[string]interface{})
	meetings := data["meetings"].([]interface{})
	require.Len(t, meetings, 1)
	assert.Equal(t, "출시 일정 확정", meetings[0].(map[string]interface{})["summary"])
	issues := data["openIssues"].([]interface{})
	require.Len(t, issues, 1)
	assert.Equal(t, "가격 정책", issues[0].(map[string]interface{})["title"])
	assert.Equal(t, []interface{}{"QA 조기 확보"}, data["suggestedAgenda"])
}
