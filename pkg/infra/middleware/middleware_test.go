package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/kart-io/ieum/pkg/utils/errors"
	"github.com/kart-io/ieum/pkg/utils/json"
	"github.com/kart-io/ieum/pkg/utils/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRequestID_GeneratesID(t *testing.T) {
	var seen string
	r := gin.New()
	r.Use(RequestID())
	r.GET("/test", func(c *gin.Context) {
		seen = GetRequestID(c.Request.Context())
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	requestID := w.Header().Get(HeaderXRequestID)
	if requestID == "" {
		t.Fatal("Expected X-Request-ID header to be set")
	}
	if len(requestID) != 36 {
		t.Errorf("Expected uuid request ID, got %q", requestID)
	}
	if seen != requestID {
		t.Errorf("Expected context request ID %q, got %q", requestID, seen)
	}
}

func TestRequestID_PreservesExistingID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/test", func(_ *gin.Context) {})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(HeaderXRequestID, "existing-request-id-12345")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if got := w.Header().Get(HeaderXRequestID); got != "existing-request-id-12345" {
		t.Errorf("Expected request ID to be preserved, got %s", got)
	}
}

func TestRecovery_ReturnsErrorEnvelope(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), RecoveryWithConfig(RecoveryConfig{}))
	r.GET("/panic", func(_ *gin.Context) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("Expected status 500, got %d", w.Code)
	}
	var resp response.Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Code != errors.ErrPanic.Code {
		t.Errorf("Expected code %d, got %d", errors.ErrPanic.Code, resp.Code)
	}
	if !strings.Contains(resp.Message, "boom") {
		t.Errorf("Expected panic message, got %q", resp.Message)
	}
	if resp.RequestID == "" {
		t.Error("Expected request ID in response")
	}
}

func TestLogger_PassesThrough(t *testing.T) {
	r := gin.New()
	r.Use(Logger())
	r.GET("/test", func(c *gin.Context) { c.Status(http.StatusTeapot) })
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
	if w.Code != http.StatusTeapot {
		t.Errorf("Expected status 418, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
}

func TestBodyLimit(t *testing.T) {
	r := gin.New()
	r.Use(BodyLimit(8))
	r.POST("/upload", func(c *gin.Context) {
		if _, err := c.GetRawData(); err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("small")))
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("definitely too large")))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("Expected status 413, got %d", w.Code)
	}
}

func TestTracing_RecordsServerSpan(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(prev)

	r := gin.New()
	r.Use(RequestID(), Tracing("test"))
	r.GET("/items/:id", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/fail", func(c *gin.Context) {
		c.Status(http.StatusBadGateway)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/7", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/fail", nil))

	spans := exporter.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("Expected 2 spans, got %d", len(spans))
	}
	if spans[0].Name != "GET /items/:id" {
		t.Errorf("Expected span named after the route, got %q", spans[0].Name)
	}
	if spans[0].SpanKind != trace.SpanKindServer {
		t.Errorf("Expected server span, got %v", spans[0].SpanKind)
	}
	if spans[0].Status.Code == codes.Error {
		t.Error("Expected successful request not to be marked as error")
	}
	if spans[1].Status.Code != codes.Error {
		t.Error("Expected 5xx request to be marked as error")
	}
}
