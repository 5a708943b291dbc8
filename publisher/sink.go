package publisher

import (
	"context"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
)

// Sink delivers an encoded event to an external system.
type Sink interface {
	Name() string
	Publish(ctx context.Context, key string, payload []byte) error
	Close() error
}

// messageWriter is the part of *kafka.Writer a KafkaSink uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// KafkaSink writes events to a Kafka topic keyed by bet or house so that all
// events of one bet land on the same partition.
type KafkaSink struct {
	w messageWriter
}

// NewKafkaSink returns a sink producing to topic on brokers.
func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{w: &kafkago.Writer{
		Addr:     kafkago.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafkago.Hash{},
	}}
}

func (s *KafkaSink) Name() string { return "kafka" }

func (s *KafkaSink) Publish(ctx context.Context, key string, payload []byte) error {
	return s.w.WriteMessages(ctx, kafkago.Message{Key: []byte(key), Value: payload})
}

func (s *KafkaSink) Close() error { return s.w.Close() }

// redisPublisher is the part of *redis.Client a RedisSink uses.
type redisPublisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
	Close() error
}

// RedisSink broadcasts events on a Redis pub/sub channel.
type RedisSink struct {
	r       redisPublisher
	channel string
}

// NewRedisSink returns a sink publishing to channel on the server at addr.
func NewRedisSink(addr, channel string) *RedisSink {
	return &RedisSink{r: redis.NewClient(&redis.Options{Addr: addr}), channel: channel}
}

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) Publish(ctx context.Context, _ string, payload []byte) error {
	return s.r.Publish(ctx, s.channel, payload).Err()
}

func (s *RedisSink) Close() error { return s.r.Close() }
