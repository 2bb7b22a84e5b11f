package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"

	"trendbot/logging"
	"trendbot/orchestrator"
)

// TopicMessage is the payload published for each accepted topic.
type TopicMessage struct {
	Tenant string `json:"tenant"`
	orchestrator.AcceptedTopic
	PublishedAt time.Time `json:"published_at"`
}

// Producer publishes accepted topics keyed by tenant.
type Producer struct {
	producer sarama.SyncProducer
	topic    string
	logger   *slog.Logger
}

// NewProducer connects a synchronous producer to brokers.
func NewProducer(brokers []string, topic string, logger *slog.Logger) (*Producer, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V3_6_0_0
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 3

	p, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return NewProducerFrom(p, topic, logger), nil
}

// NewProducerFrom wraps an existing sarama producer.
func NewProducerFrom(p sarama.SyncProducer, topic string, logger *slog.Logger) *Producer {
	return &Producer{producer: p, topic: topic, logger: logging.OrDiscard(logger)}
}

// Publish sends one message per topic. It implements orchestrator.Publisher.
func (p *Producer) Publish(ctx context.Context, tenant string, topics []orchestrator.AcceptedTopic) error {
	if len(topics) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	now := time.Now().UTC()
	msgs := make([]*sarama.ProducerMessage, 0, len(topics))
	for _, t := range topics {
		b, err := json.Marshal(TopicMessage{Tenant: tenant, AcceptedTopic: t, PublishedAt: now})
		if err != nil {
			return fmt.Errorf("encode topic %q: %w", t.Title, err)
		}
		msgs = append(msgs, &sarama.ProducerMessage{
			Topic: p.topic,
			Key:   sarama.StringEncoder(tenant),
			Value: sarama.ByteEncoder(b),
		})
	}

	if err := p.producer.SendMessages(msgs); err != nil {
		return fmt.Errorf("publish %d topics: %w", len(msgs), err)
	}
	p.logger.Info("topics published", "tenant", tenant, "topic", p.topic, "count", len(msgs))
	return nil
}

// Close flushes and closes the producer.
func (p *Producer) Close() error {
	return p.producer.Close()
}
