package entities

import (
	"strconv"
	"strings"
	"time"
)

// MediaRef references one media object attached to a message
type MediaRef struct {
	Type     string `json:"type"`
	ID       int64  `json:"id"`
	MimeType string `json:"mimeType,omitempty"`
}

// Message is a channel post fetched or pushed from Telegram, optionally
// enriched by the transformer
type Message struct {
	Channel   string     `json:"channel"`
	ID        int        `json:"id"`
	Text      string     `json:"text"`
	Media     *MediaRef  `json:"media,omitempty"`
	Album     []MediaRef `json:"album,omitempty"`
	GroupedID int64      `json:"groupedId,omitempty"`
	Date      time.Time  `json:"date"`
	Sender    string     `json:"sender,omitempty"`

	DetectedCompetitors []string `json:"detectedCompetitors,omitempty"`
	ModifiedText        string   `json:"modifiedText,omitempty"`
	FinalText           string   `json:"finalText,omitempty"`
}

// Key returns the deduplication key (channel, id) of the message
func (m *Message) Key() string {
	return strings.ToLower(m.Channel) + "/" + strconv.Itoa(m.ID)
}

// ProcessedMessage is a transformed message ready for republishing
type ProcessedMessage struct {
	AccountID          string    `json:"accountId"`
	PairID             string    `json:"pairId,omitempty"`
	DestinationChannel string    `json:"destinationChannel,omitempty"`
	Message            Message   `json:"message"`
	ProcessedAt        time.Time `json:"processedAt"`
}
