package tracing

import (
	"context"
	"fmt"
	"time"

	"github.com/snow-ghost/forager/stats"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// Tracer wraps OpenTelemetry tracer
type Tracer struct {
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider
}

// Config holds tracing configuration
type Config struct {
	ServiceName    string  `yaml:"service_name"`
	ServiceVersion string  `yaml:"service_version"`
	JaegerEndpoint string  `yaml:"jaeger_endpoint" validate:"omitempty,url"`
	Environment    string  `yaml:"environment"`
	SampleRatio    float64 `yaml:"sample_ratio" validate:"gte=0,lte=1"`
}

// NewTracer creates a new OpenTelemetry tracer. Without a Jaeger endpoint the
// tracer uses the global provider, which is a no-op unless one was installed.
func NewTracer(config Config) (*Tracer, error) {
	if config.ServiceName == "" {
		config.ServiceName = "forager"
	}
	if config.JaegerEndpoint == "" {
		return &Tracer{tracer: otel.Tracer(config.ServiceName)}, nil
	}

	exporter, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(config.JaegerEndpoint)))
	if err != nil {
		return nil, fmt.Errorf("failed to create Jaeger exporter: %w", err)
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(config.ServiceName),
			semconv.ServiceVersionKey.String(config.ServiceVersion),
			semconv.DeploymentEnvironmentKey.String(config.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	sampler := sdktrace.AlwaysSample()
	if config.SampleRatio > 0 && config.SampleRatio < 1 {
		sampler = sdktrace.ParentBased(sdktrace.TraceIDRatioBased(config.SampleRatio))
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &Tracer{
		tracer:   tp.Tracer(config.ServiceName),
		provider: tp,
	}, nil
}

// NewTracerFromProvider wraps a provider supplied by the caller.
func NewTracerFromProvider(tp trace.TracerProvider, name string) *Tracer {
	t := &Tracer{tracer: tp.Tracer(name)}
	if sdk, ok := tp.(*sdktrace.TracerProvider); ok {
		t.provider = sdk
	}
	return t
}

// StartSpan starts a new span
func (t *Tracer) StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, opts...)
}

// StartPhaseSpan starts the span covering one phase
func (t *Tracer) StartPhaseSpan(ctx context.Context, runID, policy string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "forager.phase", trace.WithAttributes(
		attribute.String("forager.run_id", runID),
		attribute.String("forager.policy", policy),
	))
}

// StartStepSpan starts the span covering one step
func (t *Tracer) StartStepSpan(ctx context.Context, policy string, step int, timeGradient float64) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "forager.step", trace.WithAttributes(
		attribute.String("forager.policy", policy),
		attribute.Int("forager.step", step),
		attribute.Float64("forager.time_gradient", timeGradient),
	))
}

// RecordStepStatistic copies a step statistic onto span
func RecordStepStatistic(span trace.Span, st stats.StepStatistic) {
	attrs := []attribute.KeyValue{
		attribute.Bool("forager.committed", st.FoundNewSolution),
		attribute.Int64("forager.moves.selected", st.SelectedMoveCount),
		attribute.Int64("forager.moves.admitted", st.AdmittedMoveCount),
	}
	if st.StepScore != nil {
		attrs = append(attrs, attribute.String("forager.score", st.StepScore.String()))
	}
	if st.ThresholdScore != nil {
		attrs = append(attrs, attribute.String("forager.threshold", st.ThresholdScore.String()))
	}
	if st.BucketSize != nil {
		attrs = append(attrs, attribute.Int("forager.bucket_size", *st.BucketSize))
	}
	span.SetAttributes(attrs...)
}

// AddSpanAttributes adds attributes to a span
func AddSpanAttributes(span trace.Span, attrs map[string]interface{}) {
	for key, value := range attrs {
		switch v := value.(type) {
		case string:
			span.SetAttributes(attribute.String(key, v))
		case int:
			span.SetAttributes(attribute.Int(key, v))
		case int64:
			span.SetAttributes(attribute.Int64(key, v))
		case float64:
			span.SetAttributes(attribute.Float64(key, v))
		case bool:
			span.SetAttributes(attribute.Bool(key, v))
		case []string:
			span.SetAttributes(attribute.StringSlice(key, v))
		default:
			span.SetAttributes(attribute.String(key, fmt.Sprintf("%v", v)))
		}
	}
}

// RecordSpanError records an error in a span
func RecordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// RecordSpanSuccess records success in a span
func RecordSpanSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// RecordSpanDuration records duration in a span
func RecordSpanDuration(span trace.Span, duration time.Duration) {
	span.SetAttributes(attribute.Float64("duration_ms", float64(duration.Nanoseconds())/1e6))
}

// Shutdown flushes and stops the provider this tracer created, if any
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t.provider == nil {
		return nil
	}
	return t.provider.Shutdown(ctx)
}

// GetTraceID extracts trace ID from context
func GetTraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().HasTraceID() {
		return span.SpanContext().TraceID().String()
	}
	return ""
}
