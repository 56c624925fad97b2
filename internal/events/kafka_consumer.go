package events

import (
	"context"
	"encoding/json"
	"errors"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// HandlerFunc processes one decoded event.
type HandlerFunc func(ctx context.Context, event CloudEvent) error

// ComparisonEventConsumer reads comparison events from the topic and hands them to a handler.
type ComparisonEventConsumer struct {
	reader  *kafkago.Reader
	handler HandlerFunc
	logger  *zap.Logger
}

// NewComparisonEventConsumer creates a new ComparisonEventConsumer.
func NewComparisonEventConsumer(
	brokers []string,
	groupID string,
	topic string,
	handler HandlerFunc,
	logger *zap.Logger,
) *ComparisonEventConsumer {
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  brokers,
		GroupID:  groupID,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &ComparisonEventConsumer{
		reader:  reader,
		handler: handler,
		logger:  logger,
	}
}

// Start begins consuming events. This blocks until the context is cancelled.
func (c *ComparisonEventConsumer) Start(ctx context.Context) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}

		if err := c.handleMessage(ctx, msg); err != nil {
			c.logger.Error("failed to handle comparison event",
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
			continue
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Warn("failed to commit offset", zap.Int64("offset", msg.Offset), zap.Error(err))
		}
	}
}

// Close closes the underlying Kafka reader.
func (c *ComparisonEventConsumer) Close() error {
	return c.reader.Close()
}

func (c *ComparisonEventConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	event, ok := c.decode(msg.Value)
	if !ok {
		return nil // Don't retry malformed messages
	}

	switch event.Type {
	case ComparisonCompleted, ComparisonFailed:
		return c.handler(ctx, event)
	default:
		c.logger.Debug("ignoring unhandled event type",
			zap.String("type", event.Type),
		)
		return nil
	}
}

func (c *ComparisonEventConsumer) decode(value []byte) (CloudEvent, bool) {
	var event CloudEvent
	if err := json.Unmarshal(value, &event); err != nil {
		c.logger.Error("failed to parse cloud event from comparison topic",
			zap.Error(err),
			zap.Int("size", len(value)),
		)
		return CloudEvent{}, false
	}
	return event, true
}
