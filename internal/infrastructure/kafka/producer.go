package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"

	"github.com/Conte777/NewsFlow/services/connector-service/internal/domain/message/deps"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/domain/message/entities"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/infrastructure/metrics"
)

// KafkaProducer publishes processed messages using an asynchronous producer
type KafkaProducer struct {
	producer  sarama.AsyncProducer
	topic     string
	metrics   *metrics.Metrics
	logger    zerolog.Logger
	wg        sync.WaitGroup
	closeOnce sync.Once
	closeErr  error
}

// ProducerConfig holds configuration for Kafka producer
type ProducerConfig struct {
	Brokers         []string
	Topic           string
	Logger          zerolog.Logger
	Metrics         *metrics.Metrics
	MaxMessageBytes int // default 1MB
	MaxRetries      int // default 5
}

// NewKafkaProducer creates an idempotent async producer partitioned by channel
func NewKafkaProducer(cfg ProducerConfig) (*KafkaProducer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("no kafka brokers specified")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka topic is required")
	}
	if cfg.MaxMessageBytes <= 0 {
		cfg.MaxMessageBytes = 1000000
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}

	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Idempotent = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Net.MaxOpenRequests = 1
	config.Producer.MaxMessageBytes = cfg.MaxMessageBytes
	config.Producer.Retry.Max = cfg.MaxRetries
	config.Producer.Partitioner = sarama.NewHashPartitioner
	config.ClientID = "connector-service-producer"
	config.Version = sarama.V2_6_0_0

	producer, err := sarama.NewAsyncProducer(cfg.Brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	kp := newKafkaProducer(producer, cfg.Topic, cfg.Metrics, cfg.Logger)

	cfg.Logger.Info().
		Strs("brokers", cfg.Brokers).
		Str("topic", cfg.Topic).
		Msg("Kafka producer initialized successfully")

	return kp, nil
}

func newKafkaProducer(producer sarama.AsyncProducer, topic string, m *metrics.Metrics, logger zerolog.Logger) *KafkaProducer {
	kp := &KafkaProducer{
		producer: producer,
		topic:    topic,
		metrics:  m,
		logger:   logger,
	}
	kp.wg.Add(2)
	go kp.handleSuccesses()
	go kp.handleErrors()
	return kp
}

// PublishProcessed queues a processed message keyed by its channel handle
func (p *KafkaProducer) PublishProcessed(ctx context.Context, msg *entities.ProcessedMessage) error {
	if msg == nil {
		return fmt.Errorf("processed message is nil")
	}
	if msg.Message.Channel == "" {
		return fmt.Errorf("channel is required")
	}
	if msg.Message.ID <= 0 {
		return fmt.Errorf("message id must be positive, got %d", msg.Message.ID)
	}

	select {
	case <-ctx.Done():
		return fmt.Errorf("context cancelled before sending: %w", ctx.Err())
	default:
	}

	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal processed message: %w", err)
	}

	out := &sarama.ProducerMessage{
		Topic:     p.topic,
		Key:       sarama.StringEncoder(msg.Message.Channel),
		Value:     sarama.ByteEncoder(value),
		Timestamp: msg.Message.Date,
	}

	select {
	case p.producer.Input() <- out:
		p.logger.Debug().
			Str("channel", msg.Message.Channel).
			Int("message_id", msg.Message.ID).
			Msg("processed message queued for Kafka")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("context cancelled while sending message: %w", ctx.Err())
	}
}

func (p *KafkaProducer) handleSuccesses() {
	defer p.wg.Done()

	for msg := range p.producer.Successes() {
		if p.metrics != nil {
			p.metrics.RecordKafkaMessage()
		}
		p.logger.Debug().
			Str("topic", msg.Topic).
			Int32("partition", msg.Partition).
			Int64("offset", msg.Offset).
			Msg("message sent to Kafka")
	}
}

func (p *KafkaProducer) handleErrors() {
	defer p.wg.Done()

	for producerErr := range p.producer.Errors() {
		if p.metrics != nil {
			p.metrics.RecordKafkaError("produce")
		}
		p.logger.Error().
			Err(producerErr.Err).
			Str("topic", producerErr.Msg.Topic).
			Interface("key", producerErr.Msg.Key).
			Msg("failed to send message to Kafka")
	}
}

// Close flushes pending messages, waiting at most 10 seconds
func (p *KafkaProducer) Close() error {
	return p.CloseWithTimeout(10 * time.Second)
}

// CloseWithTimeout flushes pending messages, waiting at most timeout
func (p *KafkaProducer) CloseWithTimeout(timeout time.Duration) error {
	p.closeOnce.Do(func() {
		if err := p.producer.Close(); err != nil {
			p.closeErr = fmt.Errorf("producer close failed: %w", err)
		}

		done := make(chan struct{})
		go func() {
			p.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(timeout):
			if p.closeErr == nil {
				p.closeErr = fmt.Errorf("close timeout after %s: handlers did not finish in time", timeout)
			}
		}

		if p.closeErr != nil {
			p.logger.Error().Err(p.closeErr).Msg("Kafka producer closed with errors")
		} else {
			p.logger.Info().Msg("Kafka producer closed successfully")
		}
	})
	return p.closeErr
}

// NoopPublisher drops messages when Kafka is disabled
type NoopPublisher struct{}

func (NoopPublisher) PublishProcessed(context.Context, *entities.ProcessedMessage) error { return nil }

var (
	_ deps.Publisher = (*KafkaProducer)(nil)
	_ deps.Publisher = NoopPublisher{}
)
