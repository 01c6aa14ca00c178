package entities

import "time"

// AccountModel is a GORM model for the accounts table
type AccountModel struct {
	ID          string    `gorm:"primaryKey;size:64"`
	Nickname    string    `gorm:"not null;size:255"`
	APIID       string    `gorm:"column:api_id;not null;size:32"`
	APIHash     string    `gorm:"column:api_hash;not null;size:128"`
	PhoneNumber string    `gorm:"not null;size:32"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

func (AccountModel) TableName() string {
	return "accounts"
}

// ToEntity converts DB model to domain entity
func (m *AccountModel) ToEntity() *Account {
	return &Account{
		ID:          m.ID,
		Nickname:    m.Nickname,
		APIID:       m.APIID,
		APIHash:     m.APIHash,
		PhoneNumber: m.PhoneNumber,
	}
}

// ChannelPairModel is a GORM model for the channel_pairs table
type ChannelPairModel struct {
	ID                 string    `gorm:"primaryKey;size:64"`
	AccountID          string    `gorm:"not null;size:64;index"`
	SourceChannel      string    `gorm:"not null;size:255"`
	DestinationChannel string    `gorm:"not null;size:255"`
	DestinationHandle  string    `gorm:"not null;size:255;default:''"`
	IsActive           bool      `gorm:"not null;default:true"`
	CreatedAt          time.Time `gorm:"autoCreateTime"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime"`
}

func (ChannelPairModel) TableName() string {
	return "channel_pairs"
}

// ToEntity converts DB model to domain entity
func (m *ChannelPairModel) ToEntity() ChannelPair {
	return ChannelPair{
		ID:                 m.ID,
		AccountID:          m.AccountID,
		SourceChannel:      m.SourceChannel,
		DestinationChannel: m.DestinationChannel,
		DestinationHandle:  m.DestinationHandle,
		IsActive:           m.IsActive,
	}
}
