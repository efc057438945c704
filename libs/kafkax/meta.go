package kafkax

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	HeaderEventID   = "event_id"
	HeaderEventType = "event_type"
)

// Event is what the outbox hands to Kafka: routing key, type, id and body.
type Event struct {
	ID        string
	Type      string
	Key       string
	Payload   []byte
	CreatedAt time.Time
}

// NewMessage builds a message on the event's type topic carrying the id/type
// headers and the W3C trace context found in ctx.
func NewMessage(ctx context.Context, ev Event) kafka.Message {
	headers := []kafka.Header{
		{Key: HeaderEventID, Value: []byte(ev.ID)},
		{Key: HeaderEventType, Value: []byte(ev.Type)},
	}
	return kafka.Message{
		Topic:   ev.Type,
		Key:     []byte(ev.Key),
		Value:   ev.Payload,
		Headers: InjectTraceHeaders(ctx, headers),
		Time:    ev.CreatedAt,
	}
}

func HeaderValue(headers []kafka.Header, key string) string {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
