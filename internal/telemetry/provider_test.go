package telemetry

import (
	"context"
	"strings"
	"testing"

	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/config"
)

func TestDisabledProviderIsNoop(t *testing.T) {
	provider, err := NewProvider(context.Background(), config.TelemetryConfig{Enabled: false})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if provider.IsEnabled() {
		t.Fatalf("expected disabled provider")
	}
	if err := provider.Shutdown(context.Background()); err != nil {
		t.Fatalf("unexpected shutdown error: %v", err)
	}

	_, span := provider.Tracer().Start(context.Background(), "noop")
	if span.SpanContext().IsValid() {
		t.Fatalf("noop tracer must not produce valid spans")
	}
	span.End()
}

func TestNilProviderIsSafe(t *testing.T) {
	var provider *Provider
	if provider.IsEnabled() {
		t.Fatalf("nil provider must be disabled")
	}
	if err := provider.Shutdown(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSamplerForRate(t *testing.T) {
	tests := map[float64]string{
		1.5: "AlwaysOnSampler",
		1.0: "AlwaysOnSampler",
		0:   "AlwaysOffSampler",
		-1:  "AlwaysOffSampler",
		0.5: "TraceIDRatioBased{0.5}",
	}
	for rate, root := range tests {
		desc := samplerFor(rate).Description()
		if !strings.Contains(desc, "root:"+root) {
			t.Errorf("samplerFor(%v) = %q, want root %s", rate, desc, root)
		}
	}
}
