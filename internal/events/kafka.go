package events

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaPublisher writes envelopes to a single topic, partitioned by
// order ID so per-order ordering is preserved.
type KafkaPublisher struct {
	w      *kafka.Writer
	logger *log.Logger
}

func NewKafka(brokers []string, topic string, logger *log.Logger) *KafkaPublisher {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &KafkaPublisher{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 50 * time.Millisecond,
		},
		logger: logger,
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, env Envelope) {
	value, err := json.Marshal(env)
	if err != nil {
		p.logger.Printf("events: marshal %s for order %s: %v", env.EventType, env.OrderID, err)
		return
	}
	msg := kafka.Message{
		Key:   []byte(env.OrderID),
		Value: value,
		Time:  env.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(env.EventType)},
		},
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		p.logger.Printf("events: publish %s for order %s: %v", env.EventType, env.OrderID, err)
	}
}

func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}
