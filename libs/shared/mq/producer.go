package mq

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/matapang/platform/libs/shared/logging"
)

// Publisher is the publishing side used by domain services.
type Publisher interface {
	Publish(ctx context.Context, key string, value []byte, headers map[string]string) error
}

// Producer wraps a Kafka writer.
type Producer struct {
	writer *kafka.Writer
	topic  string
	cfg    ProducerConfig
}

// NewProducer constructs a Kafka producer using the provided configuration.
func NewProducer(cfg ProducerConfig, logger *zap.Logger) (*Producer, error) {
	normalized := cfg.normalize()
	if err := normalized.Validate(); err != nil {
		return nil, err
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(normalized.Brokers...),
		Topic:                  normalized.Topic,
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireAll,
		Balancer:               &kafka.Hash{},
		BatchSize:              normalized.batchSize(),
		WriteTimeout:           normalized.writeTimeout(),
	}
	if normalized.ClientID != "" {
		writer.Transport = &kafka.Transport{ClientID: normalized.ClientID}
	}

	logging.OrNop(logger).Info("mq: initialized producer", zap.Stringer("config", normalized))
	return &Producer{writer: writer, topic: normalized.Topic, cfg: normalized}, nil
}

// Publish sends a message to Kafka. Messages with the same key land on the same
// partition, so events for one submission stay ordered.
func (p *Producer) Publish(ctx context.Context, key string, value []byte, headers map[string]string) error {
	if p == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.writeTimeout())
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(key),
		Value: value,
	}
	for headerKey, headerValue := range headers {
		msg.Headers = append(msg.Headers, kafka.Header{Key: headerKey, Value: []byte(headerValue)})
	}

	return p.writer.WriteMessages(ctx, msg)
}

// PublishJSON marshals event and publishes it under key.
func PublishJSON(ctx context.Context, pub Publisher, key string, event any, headers map[string]string) error {
	if pub == nil {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("mq: marshal event: %w", err)
	}
	return pub.Publish(ctx, key, payload, headers)
}

// Close flushes and closes the underlying writer.
func (p *Producer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
