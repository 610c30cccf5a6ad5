package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/diagramstudio/diagram-api/internal/core/domain"
	"github.com/diagramstudio/diagram-api/internal/core/ports"
)

const writeTimeout = 5 * time.Second

// messageWriter is satisfied by *kafka.Writer.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// AuditPublisher writes audit events as JSON to a single topic, keyed by user
// id so that one user's trail stays on one partition.
type AuditPublisher struct {
	writer messageWriter
}

// NewAuditPublisher builds a publisher backed by a kafka.Writer.
func NewAuditPublisher(brokers []string, topic string) *AuditPublisher {
	return &AuditPublisher{writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		WriteTimeout:           writeTimeout,
		AllowAutoTopicCreation: true,
	}}
}

var _ ports.AuditPublisher = (*AuditPublisher)(nil)

func (p *AuditPublisher) Publish(ctx context.Context, event *domain.AuditEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("kafka: marshal audit event: %w", err)
	}

	key := event.UserID
	if key == "" {
		key = event.ID
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "action", Value: []byte(event.Action)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka: write audit event: %w", err)
	}
	return nil
}

func (p *AuditPublisher) Close() error {
	return p.writer.Close()
}
