package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/lilyanlefevre/formula-corrector/pkg/config"
	"github.com/lilyanlefevre/formula-corrector/pkg/metrics"
)

// Event is one message. Key drives partition hashing; Value is encoded as JSON.
type Event struct {
	Key   string
	Value any
}

// Producer writes JSON events to a single topic.
type Producer struct {
	writer  *kafka.Writer
	topic   string
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewProducer builds a synchronous writer for topic. m may be nil.
func NewProducer(cfg config.KafkaConfig, topic string, m *metrics.Metrics) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 10 * time.Millisecond,
			MaxAttempts:  3,
			RequiredAcks: kafka.RequireAll,
		},
		topic:   topic,
		metrics: m,
		logger:  slog.Default().With("component", "kafka-producer", "topic", topic),
	}
}

func (p *Producer) Topic() string { return p.topic }

func (p *Producer) Publish(ctx context.Context, event Event) error {
	return p.PublishBatch(ctx, []Event{event})
}

// PublishBatch encodes every event before writing any of them.
func (p *Producer) PublishBatch(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}
	messages := make([]kafka.Message, 0, len(events))
	for _, event := range events {
		value, err := json.Marshal(event.Value)
		if err != nil {
			p.record("encode_error", 1)
			return fmt.Errorf("encoding event %q: %w", event.Key, err)
		}
		messages = append(messages, kafka.Message{Key: []byte(event.Key), Value: value})
	}
	if err := p.writer.WriteMessages(ctx, messages...); err != nil {
		p.record("error", len(messages))
		p.logger.Error("publish failed", "count", len(messages), "error", err)
		return fmt.Errorf("publishing to %s: %w", p.topic, err)
	}
	p.record("ok", len(messages))
	p.logger.Debug("published", "count", len(messages))
	return nil
}

func (p *Producer) record(status string, n int) {
	if p.metrics == nil {
		return
	}
	p.metrics.EventsPublishedTotal.WithLabelValues(p.topic, status).Add(float64(n))
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
