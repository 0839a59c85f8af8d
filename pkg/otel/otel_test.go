package otel

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
)

func TestInitStdoutExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	ctx := context.Background()
	shutdown, err := Init(ctx, Config{ServiceName: "toolbridge-test", UseStdout: true, Writer: &buf})
	if err != nil {
		t.Fatal(err)
	}
	_, span := otel.Tracer("test").Start(ctx, "tools/call")
	if !span.SpanContext().IsValid() {
		t.Fatal("span context is not valid")
	}
	span.End()
	if err := shutdown(ctx); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "tools/call") || !strings.Contains(out, "toolbridge-test") {
		t.Fatalf("exported=%q", out)
	}
}
