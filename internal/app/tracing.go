package app

import (
	"context"

	"taskManager/internal/logger"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

// InitTracing ставит глобальный провайдер трассировки и пропагатор W3C trace context.
// Входящий traceparent продолжается, без него сервер начинает новый трейс.
// Завершённые спаны пишутся в лог на уровне Debug.
func InitTracing() *sdktrace.TracerProvider {
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
		sdktrace.WithSpanProcessor(spanLogger{}),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return tp
}

type spanLogger struct{}

func (spanLogger) OnStart(context.Context, sdktrace.ReadWriteSpan) {}

func (spanLogger) OnEnd(s sdktrace.ReadOnlySpan) {
	sc := s.SpanContext()
	fields := []zap.Field{
		zap.String("span", s.Name()),
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
		zap.Duration("ms", s.EndTime().Sub(s.StartTime())),
	}
	if parent := s.Parent(); parent.IsValid() {
		fields = append(fields, zap.String("parent_span_id", parent.SpanID().String()))
	}
	if status := s.Status(); status.Code == codes.Error {
		fields = append(fields, zap.String("status", status.Description))
	}
	logger.Debug("Trace: Спан завершён", fields...)
}

func (spanLogger) Shutdown(context.Context) error { return nil }

func (spanLogger) ForceFlush(context.Context) error { return nil }
