package telegram

import (
	"errors"

	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tgerr"

	pkgerrors "github.com/Conte777/NewsFlow/services/connector-service/pkg/errors"
)

// ErrPasswordRequired is returned by VerifyCode when the account has 2FA enabled
var ErrPasswordRequired = errors.New("two-factor password required")

var (
	authRequiredErrors = []string{
		"AUTH_KEY_UNREGISTERED",
		"AUTH_KEY_INVALID",
		"AUTH_KEY_DUPLICATED",
		"SESSION_REVOKED",
		"SESSION_EXPIRED",
		"SESSION_PASSWORD_NEEDED",
		"USER_DEACTIVATED",
		"USER_DEACTIVATED_BAN",
	}
	codeErrors = []string{
		"PHONE_CODE_INVALID",
		"PHONE_CODE_EXPIRED",
		"PHONE_CODE_EMPTY",
		"PHONE_CODE_HASH_EMPTY",
		"PASSWORD_HASH_INVALID",
	}
	credentialErrors = []string{
		"API_ID_INVALID",
		"API_ID_PUBLISHED_FLOOD",
		"PHONE_NUMBER_INVALID",
		"PHONE_NUMBER_BANNED",
		"PHONE_NUMBER_FLOOD",
	}
)

// classify maps an error returned by gotd to a kinded error. Already kinded
// errors are returned unchanged.
func classify(err error, op string) error {
	if err == nil {
		return nil
	}
	if pkgerrors.KindOf(err) != pkgerrors.KindUnknown || errors.Is(err, ErrPasswordRequired) {
		return err
	}

	if errors.Is(err, auth.ErrPasswordInvalid) {
		return pkgerrors.Wrap(pkgerrors.KindInvalidVerificationCode, err, op+": invalid two-factor password")
	}
	var signUp *auth.SignUpRequired
	if errors.As(err, &signUp) {
		return pkgerrors.Wrap(pkgerrors.KindProtocolRejection, err, op+": phone number is not registered")
	}

	if rpcErr, ok := tgerr.As(err); ok {
		switch {
		case rpcErr.IsOneOf(authRequiredErrors...):
			return pkgerrors.Wrap(pkgerrors.KindAuthenticationRequired, err, op)
		case rpcErr.IsOneOf(codeErrors...):
			return pkgerrors.Wrap(pkgerrors.KindInvalidVerificationCode, err, op)
		case rpcErr.IsOneOf(credentialErrors...):
			return pkgerrors.Wrap(pkgerrors.KindInvalidCredentials, err, op)
		case rpcErr.Code == 420 || rpcErr.Code >= 500:
			return pkgerrors.Wrap(pkgerrors.KindTransportFailure, err, op)
		case rpcErr.Code == 401:
			return pkgerrors.Wrap(pkgerrors.KindAuthenticationRequired, err, op)
		default:
			return pkgerrors.Wrap(pkgerrors.KindProtocolRejection, err, op)
		}
	}

	// Anything else is a dial, read or deadline failure on the transport.
	return pkgerrors.Wrap(pkgerrors.KindTransportFailure, err, op)
}
