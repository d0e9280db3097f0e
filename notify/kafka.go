package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"flight-sniper/models"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaNotifier publishes alerts to a topic, keyed by route so one route's
// alerts stay ordered within a partition.
type KafkaNotifier struct {
	w     messageWriter
	topic string
}

func NewKafkaNotifier(brokers []string, topic string) *KafkaNotifier {
	return newKafkaNotifierWithWriter(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}, topic)
}

func newKafkaNotifierWithWriter(w messageWriter, topic string) *KafkaNotifier {
	return &KafkaNotifier{w: w, topic: topic}
}

func (n *KafkaNotifier) Notify(ctx context.Context, alert models.Alert) error {
	value, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("encode alert: %w", err)
	}

	if err := n.w.WriteMessages(ctx, kafka.Message{
		Topic: n.topic,
		Key:   []byte(alert.Route.String()),
		Value: value,
	}); err != nil {
		return fmt.Errorf("kafka publish %s: %w", n.topic, err)
	}
	return nil
}

// Close flushes and closes the underlying writer when it supports it.
func (n *KafkaNotifier) Close() error {
	if c, ok := n.w.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
