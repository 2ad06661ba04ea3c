package tracing

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestSafeAttributesDropsUnknownKeys(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("http.route", "/api/departments/:id"),
		attribute.String("user.email", "a@example.com"),
	)
	if len(attrs) != 1 || attrs[0].Key != "http.route" {
		t.Fatalf("expected only http.route, got %v", attrs)
	}
}

func TestSafeErrorTruncatesWrappedDetail(t *testing.T) {
	err := fmt.Errorf("cascade agents: %w", errors.New("pq: password=secret"))
	safe := SafeError(err)
	if safe.Error() != "cascade agents" {
		t.Fatalf("unexpected message %q", safe.Error())
	}
	if SafeError(nil) != nil {
		t.Fatalf("expected nil for nil error")
	}
}

func TestGinMiddlewareTagsRouteAndDepartment(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	defer otel.SetTracerProvider(previous)

	r := gin.New()
	r.Use(GinMiddleware())
	r.GET("/api/departments/:id", func(c *gin.Context) {
		c.Set("department_id", c.Param("id"))
		_ = c.Error(errors.New("cascade agents: boom"))
		c.Status(http.StatusInternalServerError)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/departments/42", nil))

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected one span, got %d", len(spans))
	}
	span := spans[0]
	if span.Name() != "HTTP GET /api/departments/:id" {
		t.Fatalf("unexpected span name %q", span.Name())
	}
	if span.Status().Code != codes.Error {
		t.Fatalf("expected error status, got %v", span.Status())
	}
	found := false
	for _, attr := range span.Attributes() {
		if attr.Key == "department_id" && attr.Value.AsString() == "42" {
			found = true
		}
	}
	if !found {
		t.Fatalf("department_id attribute missing: %v", span.Attributes())
	}
}
