package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/ariel-naviandana/chat-cs/internal/domain"
)

// Producer publishes inbound customer messages for downstream consumers
// (analytics, escalation bots). Optional: a nil Producer is a no-op.
type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	if len(brokers) == 0 || topic == "" {
		return nil
	}
	w := kafka.NewWriter(kafka.WriterConfig{Brokers: brokers, Topic: topic, Balancer: &kafka.LeastBytes{}})
	return &Producer{writer: w}
}

func (p *Producer) PublishMessage(ctx context.Context, m domain.Message) error {
	if p == nil {
		return nil
	}
	value, err := json.Marshal(m)
	if err != nil {
		return err
	}
	msg := kafka.Message{Key: []byte(m.ChatID), Value: value, Time: time.Now()}
	return p.writer.WriteMessages(ctx, msg)
}

func (p *Producer) Close() error {
	if p == nil {
		return nil
	}
	return p.writer.Close()
}
