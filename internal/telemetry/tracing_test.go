package telemetry

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

func TestStartSpan(t *testing.T) {
	t.Run("sets attributes at creation", func(t *testing.T) {
		exp := withTracer(t)

		_, span := StartSpan(context.Background(), "AnalyticsAPI.TopCustomers",
			attribute.String("endpoint", "/customers/top"),
		)
		span.End()

		spans := exp.GetSpans()
		if len(spans) != 1 {
			t.Fatalf("expected 1 span, got %d", len(spans))
		}
		if spans[0].Name != "AnalyticsAPI.TopCustomers" {
			t.Errorf("unexpected span name %q", spans[0].Name)
		}
		if len(spans[0].Attributes) != 1 || spans[0].Attributes[0].Value.AsString() != "/customers/top" {
			t.Errorf("unexpected attributes %v", spans[0].Attributes)
		}
	})

	t.Run("child spans share the trace id", func(t *testing.T) {
		withTracer(t)

		ctx, parent := StartSpan(context.Background(), "parent")
		defer parent.End()
		childCtx, child := StartSpan(ctx, "child")
		defer child.End()

		parentTrace, parentSpan, _ := spanIDs(ctx)
		childTrace, childSpan, ok := spanIDs(childCtx)
		if !ok {
			t.Fatal("expected ids for child span")
		}
		if childTrace != parentTrace {
			t.Error("expected child to share trace id")
		}
		if childSpan == parentSpan {
			t.Error("expected distinct span ids")
		}
	})

	t.Run("no ids without a span", func(t *testing.T) {
		if _, _, ok := spanIDs(context.Background()); ok {
			t.Error("expected no ids")
		}
	})
}

func TestSetSpanResult(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   codes.Code
		wantEvents int
	}{
		{name: "success", wantCode: codes.Ok},
		{name: "failure", err: errors.New("backend returned 500"), wantCode: codes.Error, wantEvents: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exp := withTracer(t)

			_, span := StartSpan(context.Background(), "fetch")
			SetSpanResult(span, tt.err)
			span.End()

			got := exp.GetSpans()[0]
			if got.Status.Code != tt.wantCode {
				t.Errorf("expected status %v, got %v", tt.wantCode, got.Status.Code)
			}
			if tt.err != nil && got.Status.Description != tt.err.Error() {
				t.Errorf("expected description %q, got %q", tt.err.Error(), got.Status.Description)
			}
			if len(got.Events) != tt.wantEvents {
				t.Errorf("expected %d events, got %d", tt.wantEvents, len(got.Events))
			}
		})
	}
}

func TestAddEvent(t *testing.T) {
	t.Run("records on the span in context", func(t *testing.T) {
		exp := withTracer(t)

		ctx, span := StartSpan(context.Background(), "GET /")
		AddEvent(ctx, "dashboard.composed", attribute.String("outcome", "complete"))
		span.End()

		events := exp.GetSpans()[0].Events
		if len(events) != 1 || events[0].Name != "dashboard.composed" {
			t.Errorf("unexpected events %v", events)
		}
	})

	t.Run("ignores contexts without a span", func(t *testing.T) {
		AddEvent(context.Background(), "dashboard.composed")
	})
}
