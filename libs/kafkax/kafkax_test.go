package kafkax

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestNewMessageCarriesHeadersAndTrace(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	msg := NewMessage(ctx, Event{ID: "evt-1", Type: "booking.appointment.booked.v1", Key: "appt-1", Payload: []byte(`{}`)})
	if msg.Topic != "booking.appointment.booked.v1" {
		t.Fatalf("unexpected topic %q", msg.Topic)
	}
	if got := HeaderValue(msg.Headers, HeaderEventID); got != "evt-1" {
		t.Fatalf("event_id header: %q", got)
	}
	want := "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"
	if got := HeaderValue(msg.Headers, "traceparent"); got != want {
		t.Fatalf("traceparent header: got %q want %q", got, want)
	}

	carrier := &kafkaHeaderCarrier{headers: msg.Headers}
	extracted := trace.SpanContextFromContext(otel.GetTextMapPropagator().Extract(context.Background(), carrier))
	if extracted.TraceID() != traceID {
		t.Fatalf("expected trace id round trip, got %s", extracted.TraceID())
	}
}

func TestReadyCheckWithoutBrokers(t *testing.T) {
	if ReadyCheck(nil) != nil {
		t.Fatal("expected nil check without brokers")
	}
}
