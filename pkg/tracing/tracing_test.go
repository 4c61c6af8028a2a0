package tracing

import (
	"context"
	"testing"
	"time"
)

func TestInitTracer(t *testing.T) {
	ctx := context.Background()

	tp, tracer, err := InitTracer(ctx)
	if err != nil {
		t.Fatalf("InitTracer failed: %v", err)
	}
	if tp == nil || tracer == nil {
		t.Fatal("expected non-nil provider and tracer")
	}

	_, span := tracer.Start(ctx, "test.span")
	span.End()

	shutdownCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	// No collector is running, so a flush timeout here is fine.
	_ = tp.Shutdown(shutdownCtx)
}
