package telemetry

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
)

func TestInitTracer_SpansReachWriter(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := InitTracer("test", &buf, 1.0)
	if err != nil {
		t.Fatalf("InitTracer: %v", err)
	}

	_, span := otel.Tracer("tap/test").Start(context.Background(), "detection")
	span.End()

	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if !strings.Contains(buf.String(), "detection") {
		t.Errorf("exported trace output does not contain the span: %q", buf.String())
	}
}

func TestInitTracer_ZeroRatioDropsSpans(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := InitTracer("test", &buf, 0)
	if err != nil {
		t.Fatalf("InitTracer: %v", err)
	}

	_, span := otel.Tracer("tap/test").Start(context.Background(), "suppressed")
	span.End()

	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if strings.Contains(buf.String(), "suppressed") {
		t.Errorf("ratio 0 still exported a span")
	}
}
