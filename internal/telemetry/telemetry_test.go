package telemetry

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/kalambet/taskchat/internal/config"
)

func TestNewProvider_None(t *testing.T) {
	for _, exporter := range []string{"", "none"} {
		tp, err := newProvider(context.Background(), config.TraceConfig{Exporter: exporter}, "test", nil)
		if err != nil {
			t.Fatalf("exporter %q: unexpected error: %v", exporter, err)
		}
		if tp != nil {
			t.Errorf("exporter %q: want no provider", exporter)
		}
	}
}

func TestNewProvider_Stdout(t *testing.T) {
	var buf bytes.Buffer
	ctx := context.Background()

	tp, err := newProvider(ctx, config.TraceConfig{Exporter: "stdout"}, "1.2.3", &buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, span := tp.Tracer("test").Start(ctx, "gateway.complete")
	span.End()

	if err := tp.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "gateway.complete") {
		t.Errorf("exported output missing span name: %s", out)
	}
	if !strings.Contains(out, "taskchat") {
		t.Errorf("exported output missing service name: %s", out)
	}
}

func TestNewProvider_Unknown(t *testing.T) {
	if _, err := newProvider(context.Background(), config.TraceConfig{Exporter: "zipkin"}, "test", nil); err == nil {
		t.Fatal("expected error for unknown exporter")
	}
}

func TestSetup_NoneIsNoop(t *testing.T) {
	shutdown, err := Setup(context.Background(), config.TraceConfig{Exporter: "none"}, "test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown: %v", err)
	}
}
