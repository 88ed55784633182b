package client

import (
	"ai-build-shop/internal/config"
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
)

type EventPublisher interface {
	Publish(ctx context.Context, key string, event any) error
	Close() error
}

// InitKafkaProducer returns nil, nil when no brokers are configured.
func InitKafkaProducer(cfg *config.Kafka, log *zap.Logger) (sarama.SyncProducer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, nil
	}

	saramaCfg := sarama.NewConfig()
	saramaCfg.Producer.Return.Successes = true
	saramaCfg.Producer.RequiredAcks = sarama.WaitForAll
	saramaCfg.Producer.Retry.Max = 3
	saramaCfg.Producer.Timeout = cfg.Timeout
	saramaCfg.Net.DialTimeout = cfg.Timeout
	saramaCfg.Net.ReadTimeout = cfg.Timeout
	saramaCfg.Net.WriteTimeout = cfg.Timeout

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaCfg)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	log.Info("kafka producer initialized", zap.Strings("brokers", cfg.Brokers))
	return producer, nil
}

type kafkaPublisherImpl struct {
	producer sarama.SyncProducer
	topic    string
	log      *zap.Logger
}

func NewEventPublisher(producer sarama.SyncProducer, topic string, log *zap.Logger) EventPublisher {
	return &kafkaPublisherImpl{
		producer: producer,
		topic:    topic,
		log:      log,
	}
}

// Publish keys messages by order so every event of one order lands on the
// same partition.
func (p *kafkaPublisherImpl) Publish(ctx context.Context, key string, event any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(payload),
	})
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}

	p.log.Debug("event published",
		zap.String("topic", p.topic),
		zap.String("key", key),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
	)
	return nil
}

func (p *kafkaPublisherImpl) Close() error {
	return p.producer.Close()
}
