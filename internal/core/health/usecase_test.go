package health

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestServiceProbe_AllUp(t *testing.T) {
	t.Parallel()

	svc := NewService(time.Second)
	svc.Register("postgres", CheckerFunc(func(context.Context) error { return nil }))
	svc.Register("redis", CheckerFunc(func(context.Context) error { return nil }))

	report := svc.Probe(context.Background())

	if !report.Ready() {
		t.Fatalf("expected ready report, got %+v", report)
	}
	if report.Components["postgres"] != StatusUp || report.Components["redis"] != StatusUp {
		t.Fatalf("unexpected components: %+v", report.Components)
	}
}

func TestServiceProbe_OneDown(t *testing.T) {
	t.Parallel()

	svc := NewService(time.Second)
	svc.Register("postgres", CheckerFunc(func(context.Context) error { return nil }))
	svc.Register("redis", CheckerFunc(func(context.Context) error { return errors.New("connection refused") }))

	report := svc.Probe(context.Background())

	if report.Ready() {
		t.Fatalf("expected not ready")
	}
	if report.Components["redis"] != StatusDown || report.Errors["redis"] != "connection refused" {
		t.Fatalf("unexpected redis status: %+v", report)
	}
	if report.Components["postgres"] != StatusUp {
		t.Fatalf("expected postgres to stay up")
	}
}

func TestServiceProbe_TimeoutAndPanic(t *testing.T) {
	t.Parallel()

	svc := NewService(10 * time.Millisecond)
	svc.Register("slow", CheckerFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))
	svc.Register("broken", CheckerFunc(func(context.Context) error { panic("boom") }))

	report := svc.Probe(context.Background())

	if report.Components["slow"] != StatusDown || report.Components["broken"] != StatusDown {
		t.Fatalf("expected both components down, got %+v", report.Components)
	}
	if report.Errors["broken"] != "panic: boom" {
		t.Fatalf("unexpected panic message %q", report.Errors["broken"])
	}
}

func TestServiceProbe_NoCheckers(t *testing.T) {
	t.Parallel()

	report := NewService(0).Probe(context.Background())
	if !report.Ready() || len(report.Components) != 0 {
		t.Fatalf("expected empty ready report, got %+v", report)
	}
}
