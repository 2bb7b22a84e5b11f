package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/IBM/sarama"

	"trendbot/logging"
	"trendbot/types"
)

// MessageHandler processes one consumed message.
type MessageHandler interface {
	// HandleMessage returns whether the message should be marked as processed.
	// Unmarked messages are redelivered.
	HandleMessage(ctx context.Context, message []byte) (shouldMark bool, err error)
}

// Consumer reads one topic as part of a consumer group.
type Consumer struct {
	consumer sarama.ConsumerGroup
	handler  MessageHandler
	topic    string
	groupID  string
	ready    chan bool
	logger   *slog.Logger
}

// ConsumerConfig holds Kafka consumer configuration
type ConsumerConfig struct {
	Brokers []string
	Topic   string
	GroupID string
	Handler MessageHandler
	Logger  *slog.Logger
}

// NewConsumer creates a new Kafka consumer
func NewConsumer(config ConsumerConfig) (*Consumer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V3_6_0_0
	saramaConfig.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetNewest
	saramaConfig.Consumer.Return.Errors = true

	client, err := sarama.NewConsumerGroup(config.Brokers, config.GroupID, saramaConfig)
	if err != nil {
		return nil, err
	}

	return &Consumer{
		consumer: client,
		handler:  config.Handler,
		topic:    config.Topic,
		groupID:  config.GroupID,
		ready:    make(chan bool),
		logger:   logging.OrDiscard(config.Logger),
	}, nil
}

// Start joins the group and returns once the first session is set up.
// Consumption continues in the background until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	handler := &consumerGroupHandler{
		messageHandler: c.handler,
		ready:          c.ready,
		logger:         c.logger,
	}

	go func() {
		for {
			if err := c.consumer.Consume(ctx, []string{c.topic}, handler); err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, sarama.ErrClosedConsumerGroup) {
					c.logger.Info("kafka consumer stopped")
					return
				}
				c.logger.Error("kafka consume failed", "err", err)
			}

			if ctx.Err() != nil {
				return
			}
			handler.ready = make(chan bool)
		}
	}()

	select {
	case <-c.ready:
	case <-ctx.Done():
		return ctx.Err()
	}
	c.logger.Info("kafka consumer started", "group", c.groupID, "topic", c.topic)

	go func() {
		for err := range c.consumer.Errors() {
			c.logger.Error("kafka consumer error", "err", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the consumer
func (c *Consumer) Close() error {
	c.logger.Info("closing kafka consumer")
	return c.consumer.Close()
}

// consumerGroupHandler implements sarama.ConsumerGroupHandler
type consumerGroupHandler struct {
	messageHandler MessageHandler
	ready          chan bool
	logger         *slog.Logger
}

// Setup is run at the beginning of a new session, before ConsumeClaim
func (h *consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error {
	close(h.ready)
	return nil
}

// Cleanup is run at the end of a session, once all ConsumeClaim goroutines have exited
func (h *consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

// ConsumeClaim must start a consumer loop of ConsumerGroupClaim's Messages()
func (h *consumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message := <-claim.Messages():
			if message == nil {
				return nil
			}

			h.logger.Debug("kafka message received", "partition", message.Partition, "offset", message.Offset, "key", string(message.Key))

			shouldMark, err := h.messageHandler.HandleMessage(session.Context(), message.Value)
			if err != nil {
				h.logger.Error("failed to handle message", "offset", message.Offset, "err", err)
			}
			if shouldMark {
				session.MarkMessage(message, "")
			}

		case <-session.Context().Done():
			return nil
		}
	}
}

// TypedMessageHandler decodes JSON messages into T before processing.
type TypedMessageHandler[T any] struct {
	// Validate checks if the message should be processed
	Validate func(msg *T) error
	// Process handles the actual message processing
	Process func(ctx context.Context, msg *T) error
	// AlwaysMark marks undecodable and invalid messages so they are not redelivered
	AlwaysMark bool
	Logger     *slog.Logger
}

// HandleMessage implements MessageHandler interface
func (h *TypedMessageHandler[T]) HandleMessage(ctx context.Context, message []byte) (bool, error) {
	logger := logging.OrDiscard(h.Logger)

	var msg T
	if err := json.Unmarshal(message, &msg); err != nil {
		logger.Warn("failed to unmarshal message", "err", err)
		return h.AlwaysMark, nil
	}

	if h.Validate != nil {
		if err := h.Validate(&msg); err != nil {
			logger.Warn("invalid message skipped", "err", err)
			return h.AlwaysMark, nil
		}
	}

	if err := h.Process(ctx, &msg); err != nil {
		return false, err // Don't mark - allow retry
	}

	return true, nil
}

// ScrapeHandler runs one pipeline pass for every scrape-request message.
// Malformed requests are marked and dropped.
func ScrapeHandler(run func(ctx context.Context, req types.ScrapeRequest) error, defaultTenant string, logger *slog.Logger) *TypedMessageHandler[types.ScrapeRequest] {
	return &TypedMessageHandler[types.ScrapeRequest]{
		Validate: func(req *types.ScrapeRequest) error {
			if req.Tenant == "" {
				req.Tenant = defaultTenant
			}
			return req.Validate()
		},
		Process: func(ctx context.Context, req *types.ScrapeRequest) error {
			return run(ctx, *req)
		},
		AlwaysMark: true,
		Logger:     logger,
	}
}
