package telemetry

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

type Config struct {
	ServiceName string
	Version     string
	// Endpoint is an OTLP/HTTP collector address, with or without scheme.
	// Plain http:// (or no scheme) exports without TLS.
	Endpoint string
	// SampleRatio is applied to root spans; values outside (0,1] mean 1.
	SampleRatio float64
}

type ShutdownFunc func(context.Context) error

func noopShutdown(context.Context) error { return nil }

// Init installs the global trace provider and propagators. An empty endpoint
// leaves tracing disabled. An exporter that cannot be built is not fatal: the
// service runs untraced and the returned error says why.
func Init(ctx context.Context, cfg Config) (ShutdownFunc, error) {
	host, insecure, err := parseEndpoint(cfg.Endpoint)
	if err != nil {
		return noopShutdown, err
	}
	if host == "" {
		return noopShutdown, nil
	}

	initCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	exporterOpts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(host),
		otlptracehttp.WithTimeout(3 * time.Second),
		otlptracehttp.WithRetry(otlptracehttp.RetryConfig{Enabled: false}),
	}
	if insecure {
		exporterOpts = append(exporterOpts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(initCtx, exporterOpts...)
	if err != nil {
		return noopShutdown, fmt.Errorf("otlp exporter: %w", err)
	}

	attrs := resource.WithAttributes(semconv.ServiceName(cfg.ServiceName))
	if version := strings.TrimSpace(cfg.Version); version != "" {
		attrs = resource.WithAttributes(semconv.ServiceName(cfg.ServiceName), semconv.ServiceVersion(version))
	}
	res, err := resource.New(ctx, attrs)
	if err != nil {
		_ = exporter.Shutdown(ctx)
		return noopShutdown, fmt.Errorf("otel resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(sampleRatio(cfg.SampleRatio)))),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tp.Shutdown, nil
}

// parseEndpoint returns the host:port the exporter should dial and whether
// the connection is plain HTTP.
func parseEndpoint(raw string) (string, bool, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", false, nil
	}
	if !strings.Contains(value, "://") {
		value = "http://" + value
	}
	parsed, err := url.Parse(value)
	if err != nil {
		return "", false, fmt.Errorf("invalid otlp endpoint %q: %w", raw, err)
	}
	switch parsed.Scheme {
	case "http":
		return parsed.Host, true, nil
	case "https":
		return parsed.Host, false, nil
	default:
		return "", false, fmt.Errorf("unsupported otlp endpoint scheme %q", parsed.Scheme)
	}
}

func sampleRatio(ratio float64) float64 {
	if ratio <= 0 || ratio > 1 {
		return 1
	}
	return ratio
}
