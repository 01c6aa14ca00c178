package errors

import (
	"errors"
	"fmt"
)

// Kind is a machine-checkable error category shared by the connector,
// its RPC surface and its clients.
type Kind string

const (
	KindUnknown                 Kind = ""
	KindInvalidCredentials      Kind = "InvalidCredentials"
	KindAuthenticationRequired  Kind = "AuthenticationRequired"
	KindInvalidVerificationCode Kind = "InvalidVerificationCode"
	KindNoChannelsConfigured    Kind = "NoChannelsConfigured"
	KindTransportFailure        Kind = "TransportFailure"
	KindProtocolRejection       Kind = "ProtocolRejection"
	KindDeploymentUnavailable   Kind = "DeploymentUnavailable"
)

var titles = map[Kind]string{
	KindInvalidCredentials:      "Invalid credentials",
	KindAuthenticationRequired:  "Authentication required",
	KindInvalidVerificationCode: "Invalid verification code",
	KindNoChannelsConfigured:    "No channels configured",
	KindTransportFailure:        "Connection problem",
	KindProtocolRejection:       "Request rejected by Telegram",
	KindDeploymentUnavailable:   "Connector unavailable",
}

// Title returns the short user-facing title of the kind.
func (k Kind) Title() string {
	if t, ok := titles[k]; ok {
		return t
	}
	return "Unexpected error"
}

// Retryable reports whether errors of this kind may succeed when repeated.
func (k Kind) Retryable() bool {
	return k == KindTransportFailure
}

// Error is a kinded error carrying a human-readable message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// New creates a kinded error.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates a kinded error with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a kinded error around cause. A nil cause yields nil.
func Wrap(kind Kind, cause error, message string) error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: kind, Message: message, Err: cause}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind with an empty message, so that
// kind sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Err == nil
}

// Title returns the short user-facing title of the error.
func (e *Error) Title() string {
	return e.Kind.Title()
}

// Kind sentinels for errors.Is.
var (
	ErrInvalidCredentials      = &Error{Kind: KindInvalidCredentials}
	ErrAuthenticationRequired  = &Error{Kind: KindAuthenticationRequired}
	ErrInvalidVerificationCode = &Error{Kind: KindInvalidVerificationCode}
	ErrNoChannelsConfigured    = &Error{Kind: KindNoChannelsConfigured}
	ErrTransportFailure        = &Error{Kind: KindTransportFailure}
	ErrProtocolRejection       = &Error{Kind: KindProtocolRejection}
	ErrDeploymentUnavailable   = &Error{Kind: KindDeploymentUnavailable}
)

// KindOf returns the kind of the first kinded error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
