package mq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProducerConfigValidate(t *testing.T) {
	assert.Error(t, ProducerConfig{}.Validate())
	assert.Error(t, ProducerConfig{Brokers: []string{"a"}}.Validate())
	assert.NoError(t, ProducerConfig{Brokers: []string{"a"}, Topic: "t"}.Validate())

	_, err := NewProducer(ProducerConfig{Brokers: []string{" ", ""}, Topic: "t"}, nil)
	assert.Error(t, err)
}

func TestConsumerConfigNormalize(t *testing.T) {
	cfg := ConsumerConfig{Brokers: []string{" a:9092 ", ""}, Topic: " t ", GroupID: " g "}.normalize()
	assert.Equal(t, []string{"a:9092"}, cfg.Brokers)
	assert.Equal(t, "t", cfg.Topic)
	assert.Equal(t, "g", cfg.GroupID)
	assert.Equal(t, 1, cfg.MinBytes)
	assert.Equal(t, int(10e6), cfg.MaxBytes)
	assert.NoError(t, cfg.Validate())

	assert.Error(t, ConsumerConfig{Brokers: []string{"a"}, Topic: "t"}.Validate())
	assert.Equal(t, "ConsumerConfig{brokers=a:9092, topic=t, group=g, client=}", cfg.String())
}

func TestProducerDefaults(t *testing.T) {
	cfg := ProducerConfig{}
	assert.Equal(t, 5*time.Second, cfg.writeTimeout())
	assert.Equal(t, 1, cfg.batchSize())
}

type recordingPublisher struct {
	key     string
	value   []byte
	headers map[string]string
	err     error
}

func (r *recordingPublisher) Publish(_ context.Context, key string, value []byte, headers map[string]string) error {
	r.key, r.value, r.headers = key, value, headers
	return r.err
}

func TestPublishJSON(t *testing.T) {
	pub := &recordingPublisher{}
	err := PublishJSON(context.Background(), pub, "sub-1", map[string]any{"type": "submission.decided"}, map[string]string{"type": "submission.decided"})
	require.NoError(t, err)
	assert.Equal(t, "sub-1", pub.key)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(pub.value, &decoded))
	assert.Equal(t, "submission.decided", decoded["type"])

	pub.err = errors.New("broker down")
	assert.EqualError(t, PublishJSON(context.Background(), pub, "k", 1, nil), "broker down")
	assert.NoError(t, PublishJSON(context.Background(), nil, "k", 1, nil))
	assert.Error(t, PublishJSON(context.Background(), pub, "k", make(chan int), nil))
}

func TestConvertCopiesHeaders(t *testing.T) {
	msg := convert(kafka.Message{Key: []byte("k"), Value: []byte("v"), Headers: []kafka.Header{{Key: "type", Value: []byte("x")}}})
	assert.Equal(t, "x", msg.Headers["type"])
	assert.Equal(t, []byte("v"), msg.Value)
}
