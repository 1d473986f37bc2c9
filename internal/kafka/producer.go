package kafka

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	kgo "github.com/segmentio/kafka-go"
)

type Writer interface {
	WriteJSON(ctx context.Context, v any) error
	Close() error
}

type writer struct {
	w *kgo.Writer
}

// NewWriter creates a producer for post change events. Acks from one broker
// are enough; the events carry no state a consumer cannot re-read.
func NewWriter(bootstrapServers, topic string) Writer {
	addrs := strings.Split(bootstrapServers, ",")
	w := &kgo.Writer{
		Addr:         kgo.TCP(addrs...),
		Topic:        topic,
		Balancer:     &kgo.LeastBytes{},
		RequiredAcks: kgo.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
	return &writer{w: w}
}

func (wr *writer) WriteJSON(ctx context.Context, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return wr.w.WriteMessages(ctx, kgo.Message{Value: b, Time: time.Now()})
}

func (wr *writer) Close() error { return wr.w.Close() }
