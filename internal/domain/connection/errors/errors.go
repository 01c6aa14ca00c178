package errors

import (
	pkgerrors "github.com/Conte777/NewsFlow/services/connector-service/pkg/errors"
)

var (
	ErrAccountIDRequired = pkgerrors.New(pkgerrors.KindInvalidCredentials, "account id is required")
	ErrChallengeExpired  = pkgerrors.New(pkgerrors.KindInvalidVerificationCode, "verification expired; request a new code")
	ErrNoPasswordPending = pkgerrors.New(pkgerrors.KindProtocolRejection, "no two-factor password is pending for this account")
	ErrNotAuthorized     = pkgerrors.New(pkgerrors.KindAuthenticationRequired, "account is not authorized; connect and verify first")
	ErrListenerNotFound  = pkgerrors.NewNotFoundError("no listener is running for this account")
)
