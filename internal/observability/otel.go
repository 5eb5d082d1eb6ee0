package observability

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"

	"github.com/kramikkk/vitalink-ai/internal/config"
	"github.com/kramikkk/vitalink-ai/internal/logger"
)

type TracingConfig struct {
	ServiceName string
	Environment string
}

var (
	tracingOnce     sync.Once
	tracingShutdown func(context.Context) error
)

// InitTracing installs the global tracer provider. Off unless OTEL_ENABLED
// is set; spans go to the OTLP endpoint when configured, to stdout otherwise.
// Returns the shutdown hook, nil when tracing is disabled.
func InitTracing(ctx context.Context, log *logger.Logger, cfg TracingConfig) func(context.Context) error {
	tracingOnce.Do(func() {
		if !tracingEnabled() {
			return
		}
		serviceName := strings.TrimSpace(cfg.ServiceName)
		if serviceName == "" {
			serviceName = "vitalink"
		}

		res, err := resource.New(
			ctx,
			resource.WithAttributes(
				semconv.ServiceNameKey.String(serviceName),
				attribute.String("deployment.environment", strings.TrimSpace(cfg.Environment)),
			),
		)
		if err != nil {
			log.Warn("Tracing resource init failed, continuing", "error", err)
		}

		exporter, err := newTraceExporter(ctx, log)
		if err != nil {
			log.Warn("Trace exporter init failed, continuing without export", "error", err)
		}

		opts := []sdktrace.TracerProviderOption{
			sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(sampleRatio(log)))),
			sdktrace.WithResource(res),
		}
		if exporter != nil {
			opts = append(opts, sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)))
		}
		tp := sdktrace.NewTracerProvider(opts...)

		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))
		tracingShutdown = tp.Shutdown
		log.Info("Tracing initialized", "service", serviceName)
	})
	return tracingShutdown
}

func tracingEnabled() bool {
	switch strings.ToLower(config.GetEnv("OTEL_ENABLED", "", nil)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func sampleRatio(log *logger.Logger) float64 {
	ratio := config.GetEnvAsFloat("OTEL_SAMPLER_RATIO", 1.0, log)
	if ratio < 0 {
		return 0
	}
	if ratio > 1 {
		return 1
	}
	return ratio
}

func newTraceExporter(ctx context.Context, log *logger.Logger) (sdktrace.SpanExporter, error) {
	endpoint := config.GetEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "", nil)
	if endpoint != "" {
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(endpoint)}
		if insecureExport() {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		return otlptracehttp.New(ctx, opts...)
	}
	log.Info("No OTLP endpoint configured, tracing to stdout")
	return stdouttrace.New(stdouttrace.WithPrettyPrint())
}

func insecureExport() bool {
	switch strings.ToLower(config.GetEnv("OTEL_EXPORTER_OTLP_INSECURE", "", nil)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
