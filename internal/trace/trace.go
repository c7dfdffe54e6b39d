package trace

import (
	"context"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	ServiceName    = "sentiment-trader"
	ServiceVersion = "1.0.0"
)

var (
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider
)

// Config selects where spans go. All spans of one sentiment event
// share a trace, from headline to fill.
type Config struct {
	Enabled bool
	// Pretty indents every exported span.
	Pretty bool
	// Output defaults to stdout.
	Output io.Writer
}

// LoadConfigFromEnv reads LOG_TRACING_ENABLED (default true) and
// LOG_TRACING_PRETTY (default true).
func LoadConfigFromEnv() Config {
	return Config{
		Enabled: os.Getenv("LOG_TRACING_ENABLED") != "false",
		Pretty:  os.Getenv("LOG_TRACING_PRETTY") != "false",
	}
}

func Init() error {
	return InitWithConfig(LoadConfigFromEnv())
}

// InitWithConfig installs the global tracer provider. With tracing disabled
// StartSpan is a no-op and log lines carry no trace ids.
func InitWithConfig(cfg Config) error {
	tracer, provider = nil, nil
	if !cfg.Enabled {
		return nil
	}

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	opts := []stdouttrace.Option{stdouttrace.WithWriter(out)}
	if cfg.Pretty {
		opts = append(opts, stdouttrace.WithPrettyPrint())
	}
	exporter, err := stdouttrace.New(opts...)
	if err != nil {
		return err
	}

	res, err := resource.New(context.Background(), resource.WithAttributes(
		semconv.ServiceName(ServiceName),
		semconv.ServiceVersion(ServiceVersion),
	))
	if err != nil {
		return err
	}

	provider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)
	tracer = provider.Tracer(ServiceName)
	return nil
}

// Shutdown flushes buffered spans.
func Shutdown(ctx context.Context) error {
	if provider == nil {
		return nil
	}
	return provider.Shutdown(ctx)
}

func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, name, opts...)
}

func Enabled() bool { return tracer != nil }

// GetTraceFields returns the ids of the span in ctx for log correlation.
func GetTraceFields(ctx context.Context) (traceID, spanID string, ok bool) {
	if !Enabled() {
		return "", "", false
	}
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return "", "", false
	}
	return sc.TraceID().String(), sc.SpanID().String(), true
}
