package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SessionModel is a GORM model for the telegram_sessions table
type SessionModel struct {
	SessionKey  string    `gorm:"primaryKey;size:128"`
	SessionData string    `gorm:"type:text;not null"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

func (SessionModel) TableName() string {
	return "telegram_sessions"
}

// PostgresBackend stores sessions in PostgreSQL
type PostgresBackend struct {
	db *gorm.DB
}

// NewPostgresBackend creates a PostgreSQL-backed session backend
func NewPostgresBackend(db *gorm.DB) (*PostgresBackend, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	return &PostgresBackend{db: db}, nil
}

// Load returns the session stored under key
func (b *PostgresBackend) Load(ctx context.Context, key string) (string, bool, error) {
	var model SessionModel
	err := b.db.WithContext(ctx).Where("session_key = ?", key).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return model.SessionData, true, nil
}

// Save upserts the session stored under key
func (b *PostgresBackend) Save(ctx context.Context, key, value string) error {
	model := &SessionModel{
		SessionKey:  key,
		SessionData: value,
	}

	return b.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"session_data", "updated_at"}),
		}).
		Create(model).Error
}

// Delete removes the session stored under key
func (b *PostgresBackend) Delete(ctx context.Context, key string) error {
	return b.db.WithContext(ctx).Where("session_key = ?", key).Delete(&SessionModel{}).Error
}
