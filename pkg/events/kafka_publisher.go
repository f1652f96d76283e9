package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"erasure-portal/pkg/models"
)

// KafkaPublisher writes every submission to a topic for downstream consumers, accepted or not
type KafkaPublisher struct {
	writer *kafka.Writer
	topic  string
}

func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka publisher requires at least one broker")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka publisher requires a topic")
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			RequiredAcks: kafka.RequireOne,
			Balancer:     &kafka.Hash{},
		},
		topic: topic,
	}, nil
}

// Publish keys the message by submission id so retries land on the same partition
func (p *KafkaPublisher) Publish(ctx context.Context, payload models.Payload) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("error encoding event: %w", err)
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(payload["submission_id"]),
		Value: value,
		Time:  time.Now().UTC(),
	})
}

func (p *KafkaPublisher) Topic() string { return p.topic }

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
