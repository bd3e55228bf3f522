package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/config"
)

// InstrumentationName 은 이 서비스가 만드는 span 의 tracer 이름이다.
const InstrumentationName = "github.com/park285/llm-kakao-bots/study-proxy-go"

// Provider 는 프로세스 전역 TracerProvider 를 소유한다.
// 비활성 상태(또는 nil)에서도 모든 메서드를 호출할 수 있다.
type Provider struct {
	tracerProvider *sdktrace.TracerProvider
}

// NewProvider 는 OTLP gRPC exporter 로 TracerProvider 를 만들고 글로벌로 등록한다.
func NewProvider(ctx context.Context, cfg config.TelemetryConfig) (*Provider, error) {
	if !cfg.Enabled {
		return &Provider{}, nil
	}

	// resource.Default() 와 병합하지 않는다. semconv 스키마 버전이 다르면 충돌한다.
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironment(cfg.Environment),
	)

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint)}
	if cfg.OTLPInsecure {
		opts = append(opts, otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
	}
	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create otlp exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(samplerFor(cfg.SampleRate)),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &Provider{tracerProvider: tp}, nil
}

// samplerFor 는 루트 span 에만 비율을 적용한다. 부모가 있으면 부모 결정을 따른다.
func samplerFor(rate float64) sdktrace.Sampler {
	var root sdktrace.Sampler
	switch {
	case rate >= 1.0:
		root = sdktrace.AlwaysSample()
	case rate <= 0:
		root = sdktrace.NeverSample()
	default:
		root = sdktrace.TraceIDRatioBased(rate)
	}
	return sdktrace.ParentBased(root)
}

// Shutdown 은 남은 span 을 flush 하고 exporter 를 닫는다.
func (p *Provider) Shutdown(ctx context.Context) error {
	if !p.IsEnabled() {
		return nil
	}
	return p.tracerProvider.Shutdown(ctx)
}

// IsEnabled 는 실제 exporter 가 붙어 있는지 반환한다.
func (p *Provider) IsEnabled() bool {
	return p != nil && p.tracerProvider != nil
}

// Tracer 는 서비스 tracer 를 반환한다. 비활성 상태면 no-op tracer 다.
func (p *Provider) Tracer() trace.Tracer {
	if !p.IsEnabled() {
		return noop.NewTracerProvider().Tracer(InstrumentationName)
	}
	return p.tracerProvider.Tracer(InstrumentationName)
}
