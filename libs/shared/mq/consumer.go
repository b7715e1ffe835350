package mq

import (
	"context"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/matapang/platform/libs/shared/logging"
)

// Message represents a Kafka message delivered to consumers.
type Message struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
	Time    time.Time
}

// Handler processes messages from a consumer.
type Handler func(context.Context, Message) error

// Consumer wraps a Kafka reader and invokes a handler for each message.
type Consumer struct {
	reader  *kafka.Reader
	handler Handler
	logger  *zap.Logger
}

// NewConsumer constructs a Kafka consumer and prepares it for message processing.
func NewConsumer(cfg ConsumerConfig, handler Handler, logger *zap.Logger) (*Consumer, error) {
	normalized := cfg.normalize()
	if err := normalized.Validate(); err != nil {
		return nil, err
	}

	readerCfg := kafka.ReaderConfig{
		Brokers:  normalized.Brokers,
		Topic:    normalized.Topic,
		GroupID:  normalized.GroupID,
		MinBytes: normalized.MinBytes,
		MaxBytes: normalized.MaxBytes,
	}
	if normalized.ClientID != "" {
		readerCfg.Dialer = &kafka.Dialer{ClientID: normalized.ClientID, Timeout: 10 * time.Second}
	}

	logger = logging.OrNop(logger)
	logger.Info("mq: initialized consumer", zap.Stringer("config", normalized))
	return &Consumer{
		reader:  kafka.NewReader(readerCfg),
		handler: handler,
		logger:  logger,
	}, nil
}

// Run consumes messages until the context is cancelled or the reader fails.
// Handler errors are logged and the message is skipped; nothing is retried here.
func (c *Consumer) Run(ctx context.Context) error {
	if c == nil || c.reader == nil {
		return nil
	}

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		if c.handler == nil {
			continue
		}
		if err := c.handler(ctx, convert(msg)); err != nil {
			c.logger.Warn("mq: handler error",
				zap.String("topic", msg.Topic),
				zap.ByteString("key", msg.Key),
				zap.Error(err))
		}
	}
}

func convert(msg kafka.Message) Message {
	payload := Message{
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: make(map[string]string, len(msg.Headers)),
		Time:    msg.Time,
	}
	for _, header := range msg.Headers {
		payload.Headers[header.Key] = string(header.Value)
	}
	return payload
}

// Close shuts down the reader.
func (c *Consumer) Close() error {
	if c == nil || c.reader == nil {
		return nil
	}
	return c.reader.Close()
}
