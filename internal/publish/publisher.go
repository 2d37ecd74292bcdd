// Package publish forwards decoded METAR lookups to Kafka.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/yegors/metar-reader/internal/weather"
	"github.com/yegors/metar-reader/pkg/logger"
)

// One lookup is one message, so batches are flushed almost immediately
const (
	batchTimeout = 10 * time.Millisecond
	writeTimeout = 10 * time.Second
)

// Publisher sends lookups downstream
type Publisher interface {
	Publish(ctx context.Context, lookup *weather.Lookup) error
	Close() error
}

// Config configures the Kafka publisher
type Config struct {
	Brokers []string
	Topic   string
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// KafkaPublisher produces one message per lookup, keyed by airport code
type KafkaPublisher struct {
	writer messageWriter
	topic  string
	logger *logger.Logger
}

// NewKafkaPublisher creates a producer for the configured topic
func NewKafkaPublisher(cfg Config, log *logger.Logger) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one kafka broker is required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka topic cannot be empty")
	}

	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchTimeout: batchTimeout,
		WriteTimeout: writeTimeout,
	}

	publisherLogger := log.Named("kafka-publisher")
	publisherLogger.Info("Kafka publisher configured",
		logger.Any("brokers", cfg.Brokers),
		logger.String("topic", cfg.Topic))

	return &KafkaPublisher{writer: w, topic: cfg.Topic, logger: publisherLogger}, nil
}

// Publish writes a lookup to the topic
func (p *KafkaPublisher) Publish(ctx context.Context, lookup *weather.Lookup) error {
	msg, err := serializeToMessage(lookup)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write to %s: %w", p.topic, err)
	}
	p.logger.Debug("Published METAR lookup",
		logger.String("airport", lookup.AirportCode),
		logger.String("topic", p.topic))
	return nil
}

// Close flushes pending messages and closes the writer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func serializeToMessage(lookup *weather.Lookup) (kafkago.Message, error) {
	data, err := json.Marshal(lookup)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize lookup: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(lookup.AirportCode),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "airport_code", Value: []byte(lookup.AirportCode)},
			{Key: "fetched_at", Value: []byte(lookup.FetchedAt.Format(time.RFC3339))},
		},
	}, nil
}

// NopPublisher discards lookups
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, *weather.Lookup) error { return nil }

func (NopPublisher) Close() error { return nil }
