package eventbus

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"github.com/rcarvalho-pb/payment_processor-go/internal/domain/event"
)

// KafkaPublisher pushes events to a broker topic. Messages are keyed by
// event type so consumers see per-type ordering.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

func (p *KafkaPublisher) Publish(evt event.Event) error {
	value, err := json.Marshal(evt.Payload)
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(context.Background(), kafka.Message{
		Key:   []byte(evt.Type),
		Value: value,
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
