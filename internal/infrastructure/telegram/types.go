// Package telegram wraps the gotd MTProto client behind a per-account
// Client composed of auth, message and validation facets.
package telegram

import (
	"github.com/Conte777/NewsFlow/services/connector-service/internal/domain/message/entities"
)

// AuthState is the authentication state of one protocol client
type AuthState string

const (
	StateUnauthorized     AuthState = "unauthorized"
	StateAwaitingCode     AuthState = "awaiting_code"
	StateAwaitingPassword AuthState = "awaiting_password"
	StateAuthorized       AuthState = "authorized"
)

// Params identifies the account a client is built for
type Params struct {
	AccountID   string
	APIID       string
	APIHash     string
	PhoneNumber string
	// Session is the persisted session string; empty or "no-session" starts fresh
	Session string
}

// ConnectOutcome is the result of a connect attempt
type ConnectOutcome struct {
	Authorized    bool
	CodeNeeded    bool
	PhoneCodeHash string
	CodeType      string
	// CodeTimeout is the number of seconds before another code may be requested
	CodeTimeout int
	// TestCode is set only when running against the test data centers
	TestCode string
}

// ListenResult reports the subscription outcome of one channel
type ListenResult struct {
	Channel string `json:"channel"`
	Title   string `json:"title,omitempty"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// ProbeResult is the outcome of a credential validation probe
type ProbeResult struct {
	Reachable  bool
	Authorized bool
}

// Update is a pushed channel message
type Update = entities.Message
