package entities

import (
	"github.com/Conte777/NewsFlow/services/connector-service/internal/domain/message/entities"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/infrastructure/telegram"
)

// ConnectResult is the outcome of connect, verify and password submission
type ConnectResult struct {
	Authenticated  bool   `json:"authenticated"`
	CodeNeeded     bool   `json:"codeNeeded,omitempty"`
	PasswordNeeded bool   `json:"passwordNeeded,omitempty"`
	PhoneCodeHash  string `json:"phoneCodeHash,omitempty"`
	CodeType       string `json:"codeType,omitempty"`
	CodeTimeout    int    `json:"codeTimeout,omitempty"`
	TestCode       string `json:"testCode,omitempty"`
	Session        string `json:"session,omitempty"`
}

// Status describes the connection state of one account
type Status struct {
	AccountID  string             `json:"accountId"`
	Connected  bool               `json:"connected"`
	AuthState  telegram.AuthState `json:"authState"`
	Listening  bool               `json:"listening"`
	HasSession bool               `json:"hasSession"`
}

// ValidateResult is the outcome of a credential probe
type ValidateResult struct {
	Valid      bool `json:"valid"`
	Reachable  bool `json:"reachable"`
	Authorized bool `json:"authorized"`
}

// ListenResult is the outcome of a one-shot channel subscription
type ListenResult struct {
	Results  []telegram.ListenResult `json:"results"`
	Messages []entities.Message      `json:"messages"`
}

// ListenerStatus describes a running realtime listener
type ListenerStatus struct {
	AccountID string                  `json:"accountId"`
	Channels  []string                `json:"channels"`
	Results   []telegram.ListenResult `json:"results"`
	Recent    int                     `json:"recent"`
}
