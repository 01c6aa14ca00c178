package kafka

import (
	"context"

	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"github.com/Conte777/NewsFlow/services/connector-service/config"
	listenerdeps "github.com/Conte777/NewsFlow/services/connector-service/internal/domain/listener/deps"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/domain/message/deps"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/infrastructure/metrics"
)

// Module provides the processed-message publisher and the channel pair consumer
var Module = fx.Module("kafka",
	fx.Provide(NewPublisherFx),
	fx.Invoke(registerKafkaConsumer),
)

// NewPublisherFx creates the Kafka producer, or a no-op publisher when Kafka is disabled
func NewPublisherFx(
	lc fx.Lifecycle,
	kafkaCfg *config.KafkaConfig,
	m *metrics.Metrics,
	logger zerolog.Logger,
) (deps.Publisher, error) {
	if !kafkaCfg.Enabled {
		logger.Info().Msg("Kafka disabled, processed messages are not published")
		return NoopPublisher{}, nil
	}

	producer, err := NewKafkaProducer(ProducerConfig{
		Brokers: kafkaCfg.Brokers,
		Topic:   kafkaCfg.TopicProcessed,
		Metrics: m,
		Logger:  logger.With().Str("component", "kafka-producer").Logger(),
	})
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return producer.Close()
		},
	})

	return producer, nil
}

func registerKafkaConsumer(
	lc fx.Lifecycle,
	kafkaCfg *config.KafkaConfig,
	handler listenerdeps.ChannelPairsChangedHandler,
	m *metrics.Metrics,
	logger zerolog.Logger,
) error {
	if !kafkaCfg.Enabled {
		return nil
	}

	consumer, err := NewKafkaConsumer(
		kafkaCfg.Brokers,
		kafkaCfg.GroupID,
		kafkaCfg.TopicChannelPairsChanged,
		handler,
		m,
		logger.With().Str("component", "kafka-consumer").Logger(),
	)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			consumer.Start(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return consumer.Close()
		},
	})

	return nil
}
