package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestNopTracer(t *testing.T) {
	tracer := NopTracer()
	ctx := context.Background()
	ctx2, span := tracer.StartSpan(ctx, "test")
	if ctx2 != ctx {
		t.Fatalf("nop tracer should return same context")
	}
	span.SetTag("key", "value")
	span.SetError(nil)
	span.Finish()
}

func TestOTelTracerSpanLifecycle(t *testing.T) {
	tracer := NewOTelTracerFrom(noop.NewTracerProvider().Tracer("test"))
	_, span := tracer.StartSpan(context.Background(), StageRender)
	span.SetTag("images", 3)
	span.SetTag("record_id", "UG1")
	span.SetTag("scale", 2.0)
	span.SetTag("other", time.Second)
	span.SetError(errors.New("boom"))
	span.SetError(nil)
	span.Finish()
}

func TestFields(t *testing.T) {
	fields := []Field{
		String("s", "v"),
		Int("i", 1),
		Int64("i64", 2),
		Bool("b", true),
		Duration("d", time.Millisecond),
		Error("err", errors.New("x")),
	}
	keys := []string{"s", "i", "i64", "b", "d", "err"}
	for i, f := range fields {
		if f.Key() != keys[i] {
			t.Fatalf("field %d key = %q, want %q", i, f.Key(), keys[i])
		}
		if f.Value() == nil {
			t.Fatalf("field %q has nil value", f.Key())
		}
	}
	if got := len(toZap(fields)); got != len(fields) {
		t.Fatalf("toZap converted %d fields, want %d", got, len(fields))
	}
}

func TestZapLoggerWith(t *testing.T) {
	l := NewTestLogger(t).With(String("render_id", "abc"))
	l.Debug("debug", Int("n", 1))
	l.Info("info")
	l.Warn("warn", Duration("elapsed", time.Second))
	l.Error("error", Error("error", errors.New("x")))
}

func TestNewZapLoggerLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", ""} {
		if _, err := NewZap(level, "json"); err != nil {
			t.Fatalf("level %q: %v", level, err)
		}
	}
}

func TestPrometheusMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPrometheusMetrics(reg)

	m.CountResult("save", "")
	m.CountResult("save", "output_too_small")
	m.CountImage("timed_out")
	m.CountAsset("logo", "fetched")
	m.ObserveStage(StageRender, 120*time.Millisecond)
	m.ObserveArtifact(4096)

	if got := testutil.ToFloat64(m.Results.WithLabelValues("save", "ok")); got != 1 {
		t.Fatalf("ok results = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ImageOutcomes.WithLabelValues("timed_out")); got != 1 {
		t.Fatalf("timed_out images = %v, want 1", got)
	}
	if n := testutil.CollectAndCount(m.StageDuration); n != 1 {
		t.Fatalf("stage duration series = %d, want 1", n)
	}
}
