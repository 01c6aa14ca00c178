package kafka

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"

	"github.com/Conte777/NewsFlow/services/connector-service/internal/domain/listener/deps"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/infrastructure/metrics"
)

const maxRetries = 3

// KafkaConsumer consumes channel pair change events
type KafkaConsumer struct {
	consumerGroup sarama.ConsumerGroup
	topic         string
	handler       deps.ChannelPairsChangedHandler
	metrics       *metrics.Metrics
	logger        zerolog.Logger
}

// NewKafkaConsumer creates a consumer group member for topic
func NewKafkaConsumer(
	brokers []string,
	groupID string,
	topic string,
	handler deps.ChannelPairsChangedHandler,
	m *metrics.Metrics,
	logger zerolog.Logger,
) (*KafkaConsumer, error) {
	config := sarama.NewConfig()
	config.Version = sarama.V2_8_0_0
	config.Consumer.Return.Errors = true
	config.Consumer.Offsets.Initial = sarama.OffsetNewest

	consumerGroup, err := sarama.NewConsumerGroup(brokers, groupID, config)
	if err != nil {
		logger.Error().Err(err).Msg("failed to create Kafka consumer group")
		return nil, err
	}

	logger.Info().
		Str("group_id", groupID).
		Str("topic", topic).
		Msg("Kafka consumer group successfully initialized")

	return &KafkaConsumer{
		consumerGroup: consumerGroup,
		topic:         topic,
		handler:       handler,
		metrics:       m,
		logger:        logger,
	}, nil
}

// Start begins consuming messages in a goroutine
func (c *KafkaConsumer) Start(ctx context.Context) {
	go func() {
		for {
			if ctx.Err() != nil {
				c.logger.Info().Msg("consumer context canceled, stopping consumer group")
				return
			}
			if err := c.consumerGroup.Consume(ctx, []string{c.topic}, c); err != nil {
				c.logger.Error().Err(err).Msg("error from consumer group")
			}
		}
	}()

	c.logger.Info().Str("topic", c.topic).Msg("Kafka consumer group started")
}

// Close gracefully shuts down the consumer
func (c *KafkaConsumer) Close() error {
	if c.consumerGroup == nil {
		return nil
	}
	if err := c.consumerGroup.Close(); err != nil {
		c.logger.Error().Err(err).Msg("failed to close Kafka consumer group")
		return err
	}
	c.logger.Info().Msg("Kafka consumer group successfully closed")
	return nil
}

// Setup is called at the beginning of a new session
func (c *KafkaConsumer) Setup(session sarama.ConsumerGroupSession) error {
	c.logger.Debug().Str("member_id", session.MemberID()).Msg("consumer group session setup completed")
	return nil
}

// Cleanup is called at the end of a session
func (c *KafkaConsumer) Cleanup(session sarama.ConsumerGroupSession) error {
	c.logger.Debug().Str("member_id", session.MemberID()).Msg("consumer group session cleanup completed")
	return nil
}

// ConsumeClaim processes messages from a partition
func (c *KafkaConsumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		if err := c.processMessage(session.Context(), msg); err != nil {
			c.logger.Error().
				Err(err).
				Str("topic", msg.Topic).
				Int64("offset", msg.Offset).
				Msg("all retry attempts failed, skipping message")
		}
		session.MarkMessage(msg, "")
	}
	return nil
}

func (c *KafkaConsumer) processMessage(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var event ChannelPairsChangedEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		c.logger.Error().Err(err).Str("topic", msg.Topic).Msg("failed to unmarshal channel_pairs.changed event")
		if c.metrics != nil {
			c.metrics.RecordKafkaError("decode")
		}
		return nil
	}
	accountID := strings.TrimSpace(event.AccountID)
	if accountID == "" {
		c.logger.Warn().Str("topic", msg.Topic).Msg("channel_pairs.changed event without account_id")
		return nil
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		lastErr = c.handler.HandleChannelPairsChanged(ctx, accountID)
		if lastErr == nil {
			return nil
		}
		c.logger.Warn().
			Err(lastErr).
			Int("attempt", attempt).
			Int("max_attempts", maxRetries).
			Str("account_id", accountID).
			Msg("handler failed to process event, retrying")
	}
	if c.metrics != nil {
		c.metrics.RecordKafkaError("handle")
	}
	return lastErr
}
