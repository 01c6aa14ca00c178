package deps

import (
	"context"

	"github.com/Conte777/NewsFlow/services/connector-service/internal/domain/message/entities"
)

// Publisher publishes processed messages to the message bus
type Publisher interface {
	PublishProcessed(ctx context.Context, msg *entities.ProcessedMessage) error
}

// Archive stores processed messages in object storage
type Archive interface {
	ArchiveMessage(ctx context.Context, msg *entities.ProcessedMessage) (string, error)
}

// Republisher sends the rewritten text to a destination channel
type Republisher interface {
	SendMessage(ctx context.Context, destination, text string) error
}
