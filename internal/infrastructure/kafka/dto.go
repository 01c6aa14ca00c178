package kafka

// ChannelPairsChangedEvent is published by the dashboard when the channel
// pairs of an account change
type ChannelPairsChangedEvent struct {
	AccountID string `json:"account_id"`
	ChangedAt string `json:"changed_at,omitempty"`
}
