package tracing

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
)

const ServiceName = "quizhub"

// Tracer returns the service tracer from the current global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(ServiceName)
}

func InitTracer(serviceName, collectorEndpoint string) (*sdktrace.TracerProvider, error) {
	exporter, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(collectorEndpoint)))
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(serviceName),
		)),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	return tp, nil
}

func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := otel.GetTextMapPropagator().Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		spanName := fmt.Sprintf("%s %s", c.Request.Method, c.FullPath())

		ctx, span := Tracer().Start(ctx, spanName)
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(semconv.HTTPStatusCodeKey.Int(status))
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}

// 评分相关的 span 属性
const (
	AttrMode      = attribute.Key("quiz.mode")
	AttrTestID    = attribute.Key("quiz.test_id")
	AttrAnswers   = attribute.Key("quiz.answers")
	AttrAttemptID = attribute.Key("quiz.attempt_id")
	AttrScore     = attribute.Key("quiz.score")
	AttrTotal     = attribute.Key("quiz.total")
	AttrRejection = attribute.Key("quiz.rejection")
)

// StartScoring opens the span covering one scored submission.
func StartScoring(ctx context.Context, mode string, testID uint, answered int) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "scoring.ScoreSubmission", trace.WithAttributes(
		AttrMode.String(mode),
		AttrTestID.Int64(int64(testID)),
		AttrAnswers.Int(answered),
	))
}

// RecordAttempt tags span with the stored attempt and its score.
func RecordAttempt(span trace.Span, attemptID uint, score, total int) {
	span.SetAttributes(
		AttrAttemptID.Int64(int64(attemptID)),
		AttrScore.Int(score),
		AttrTotal.Int(total),
	)
}

// RecordRejection marks span failed with the error kind as its description.
func RecordRejection(span trace.Span, kind string, err error) {
	span.SetAttributes(AttrRejection.String(kind))
	span.RecordError(err)
	span.SetStatus(codes.Error, kind)
}
