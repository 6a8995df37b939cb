package tracing

import (
	"context"
	"errors"
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

func newRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		tp.Shutdown(context.Background())
	})
	return rec
}

func attrs(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	m := make(map[attribute.Key]attribute.Value)
	for _, kv := range span.Attributes() {
		m[kv.Key] = kv.Value
	}
	return m
}

func TestScoringSpans(t *testing.T) {
	rec := newRecorder(t)

	_, span := StartScoring(context.Background(), "commit", 3, 2)
	RecordAttempt(span, 41, 1, 2)
	span.End()

	_, span = StartScoring(context.Background(), "preview", 3, 1)
	RecordRejection(span, "invalid_choice", errors.New("choice 9 not valid for question 10"))
	span.End()

	ended := rec.Ended()
	if len(ended) != 2 {
		t.Fatalf("ended spans = %d, want 2", len(ended))
	}

	ok := attrs(ended[0])
	if ended[0].Name() != "scoring.ScoreSubmission" || ok[AttrMode].AsString() != "commit" ||
		ok[AttrTestID].AsInt64() != 3 || ok[AttrAttemptID].AsInt64() != 41 || ok[AttrScore].AsInt64() != 1 {
		t.Errorf("commit span = %s %v", ended[0].Name(), ok)
	}
	if ended[0].Status().Code == codes.Error {
		t.Error("commit span marked as error")
	}

	rejected := attrs(ended[1])
	if rejected[AttrRejection].AsString() != "invalid_choice" || ended[1].Status().Code != codes.Error {
		t.Errorf("rejected span = %v, status %v", rejected, ended[1].Status())
	}
	if len(ended[1].Events()) == 0 {
		t.Error("rejected span has no error event")
	}
}

func TestGinMiddlewareRecordsStatus(t *testing.T) {
	rec := newRecorder(t)
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinMiddleware())
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/down", func(c *gin.Context) { c.Status(http.StatusServiceUnavailable) })

	for _, path := range []string{"/ok", "/down"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	ended := rec.Ended()
	if len(ended) != 2 {
		t.Fatalf("ended spans = %d, want 2", len(ended))
	}
	if ended[0].Name() != "GET /ok" || ended[0].Status().Code == codes.Error {
		t.Errorf("ok span = %s %v", ended[0].Name(), ended[0].Status())
	}
	if ended[1].Name() != "GET /down" || ended[1].Status().Code != codes.Error {
		t.Errorf("down span = %s %v", ended[1].Name(), ended[1].Status())
	}
}
