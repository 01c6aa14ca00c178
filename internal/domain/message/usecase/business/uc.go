package business

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Conte777/NewsFlow/services/connector-service/config"
	accountentities "github.com/Conte777/NewsFlow/services/connector-service/internal/domain/account/entities"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/domain/message/deps"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/domain/message/entities"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/domain/message/transform"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/infrastructure/metrics"
)

// Batch is a set of fresh messages delivered by one account's listener
type Batch struct {
	AccountID string
	Pairs     []accountentities.ChannelPair
	Messages  []entities.Message
	// Republisher is used when auto republishing is enabled; may be nil
	Republisher deps.Republisher
}

// UseCase relays listener output: transform, publish, archive and
// optionally republish
type UseCase struct {
	transformer   *transform.Transformer
	publisher     deps.Publisher
	archive       deps.Archive
	autoRepublish bool
	logger        zerolog.Logger
	metrics       *metrics.Metrics
}

// NewUseCase creates a new message relay use case
func NewUseCase(
	transformer *transform.Transformer,
	publisher deps.Publisher,
	archive deps.Archive,
	cfg *config.ListenerConfig,
	logger zerolog.Logger,
	m *metrics.Metrics,
) *UseCase {
	return &UseCase{
		transformer:   transformer,
		publisher:     publisher,
		archive:       archive,
		autoRepublish: cfg.AutoRepublish,
		logger:        logger.With().Str("component", "message_relay").Logger(),
		metrics:       m,
	}
}

// Transform runs the transformer over text with the configured handles
func (u *UseCase) Transform(text string) transform.Result {
	return u.transformer.Text(text)
}

// Preview transforms messages without handing them to any sink
func (u *UseCase) Preview(msgs []entities.Message) []entities.Message {
	out := make([]entities.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, u.transformer.Message(m))
	}
	return out
}

// Relay processes a batch. Sink failures are logged and counted, never
// returned, so one broken sink does not stall the listener.
func (u *UseCase) Relay(ctx context.Context, batch Batch) []entities.ProcessedMessage {
	bySource := make(map[string]accountentities.ChannelPair, len(batch.Pairs))
	for _, p := range batch.Pairs {
		bySource[normalizeChannel(p.SourceChannel)] = p
	}

	out := make([]entities.ProcessedMessage, 0, len(batch.Messages))
	for _, msg := range batch.Messages {
		pm := entities.ProcessedMessage{
			AccountID:   batch.AccountID,
			Message:     u.transformer.Message(msg),
			ProcessedAt: time.Now().UTC(),
		}
		if pair, ok := bySource[normalizeChannel(msg.Channel)]; ok {
			pm.PairID = pair.ID
			pm.DestinationChannel = pair.DestinationChannel
		}

		if err := u.publisher.PublishProcessed(ctx, &pm); err != nil {
			u.metrics.RecordKafkaError("publish")
			u.logger.Error().Err(err).
				Str("account_id", batch.AccountID).
				Str("channel", msg.Channel).
				Int("message_id", msg.ID).
				Msg("Failed to publish processed message")
		}

		_, err := u.archive.ArchiveMessage(ctx, &pm)
		u.metrics.RecordArchive(err)
		if err != nil {
			u.logger.Error().Err(err).
				Str("account_id", batch.AccountID).
				Int("message_id", msg.ID).
				Msg("Failed to archive processed message")
		}

		if u.autoRepublish && batch.Republisher != nil && pm.DestinationChannel != "" && pm.Message.FinalText != "" {
			if err := batch.Republisher.SendMessage(ctx, pm.DestinationChannel, pm.Message.FinalText); err != nil {
				u.logger.Error().Err(err).
					Str("destination", pm.DestinationChannel).
					Int("message_id", msg.ID).
					Msg("Failed to republish message")
			}
		}

		out = append(out, pm)
	}

	u.logger.Debug().
		Str("account_id", batch.AccountID).
		Int("messages", len(out)).
		Msg("relayed message batch")

	return out
}

func normalizeChannel(s string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "@"))
}
