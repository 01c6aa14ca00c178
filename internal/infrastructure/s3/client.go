package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"

	"github.com/Conte777/NewsFlow/services/connector-service/config"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/domain/message/deps"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/domain/message/entities"
)

// Client archives processed messages in an S3-compatible bucket
type Client struct {
	client    *minio.Client
	bucket    string
	publicURL string
	logger    zerolog.Logger
}

// NewClient creates a new S3/MinIO client
func NewClient(cfg *config.S3Config, logger zerolog.Logger) (*Client, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return &Client{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: cfg.PublicURL,
		logger:    logger.With().Str("component", "message_archive").Logger(),
	}, nil
}

// EnsureBucket creates the archive bucket if it doesn't exist
func (c *Client) EnsureBucket(ctx context.Context) error {
	exists, err := c.client.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if exists {
		return nil
	}

	if err := c.client.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	c.logger.Info().Str("bucket", c.bucket).Msg("created S3 bucket")
	return nil
}

// ObjectKey returns the archive key of a processed message:
// messages/{account}/{channel}/{YYYY}/{MM}/{DD}/{id}.json
func ObjectKey(msg *entities.ProcessedMessage) string {
	date := msg.Message.Date.UTC()
	if date.IsZero() {
		date = msg.ProcessedAt.UTC()
	}
	return fmt.Sprintf(
		"messages/%s/%s/%d/%02d/%02d/%d.json",
		msg.AccountID,
		msg.Message.Channel,
		date.Year(),
		date.Month(),
		date.Day(),
		msg.Message.ID,
	)
}

// ArchiveMessage stores msg as JSON and returns its object key
func (c *Client) ArchiveMessage(ctx context.Context, msg *entities.ProcessedMessage) (string, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("failed to marshal processed message: %w", err)
	}

	objectKey := ObjectKey(msg)
	_, err = c.client.PutObject(ctx, c.bucket, objectKey, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("failed to archive message to S3: %w", err)
	}

	c.logger.Debug().
		Str("channel", msg.Message.Channel).
		Int("message_id", msg.Message.ID).
		Str("object_key", objectKey).
		Msg("archived message")

	return objectKey, nil
}

// GetPublicURL returns public URL for the given object key
func (c *Client) GetPublicURL(objectKey string) string {
	return fmt.Sprintf("%s/%s/%s", c.publicURL, c.bucket, objectKey)
}

// NoopArchive skips archiving when S3 is disabled
type NoopArchive struct{}

func (NoopArchive) ArchiveMessage(context.Context, *entities.ProcessedMessage) (string, error) {
	return "", nil
}

var (
	_ deps.Archive = (*Client)(nil)
	_ deps.Archive = NoopArchive{}
)
