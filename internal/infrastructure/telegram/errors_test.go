package telegram

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tgerr"
	"github.com/stretchr/testify/assert"

	pkgerrors "github.com/Conte777/NewsFlow/services/connector-service/pkg/errors"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want pkgerrors.Kind
	}{
		{"revoked session", tgerr.New(401, "SESSION_REVOKED"), pkgerrors.KindAuthenticationRequired},
		{"unregistered key", tgerr.New(401, "AUTH_KEY_UNREGISTERED"), pkgerrors.KindAuthenticationRequired},
		{"wrong code", tgerr.New(400, "PHONE_CODE_INVALID"), pkgerrors.KindInvalidVerificationCode},
		{"expired code", tgerr.New(400, "PHONE_CODE_EXPIRED"), pkgerrors.KindInvalidVerificationCode},
		{"bad api id", tgerr.New(400, "API_ID_INVALID"), pkgerrors.KindInvalidCredentials},
		{"bad phone", tgerr.New(400, "PHONE_NUMBER_INVALID"), pkgerrors.KindInvalidCredentials},
		{"flood wait", tgerr.New(420, "FLOOD_WAIT_30"), pkgerrors.KindTransportFailure},
		{"server error", tgerr.New(500, "INTERNAL"), pkgerrors.KindTransportFailure},
		{"unknown username", tgerr.New(400, "USERNAME_NOT_OCCUPIED"), pkgerrors.KindProtocolRejection},
		{"wrapped rpc error", fmt.Errorf("invoke: %w", tgerr.New(400, "CHANNEL_PRIVATE")), pkgerrors.KindProtocolRejection},
		{"bad password", auth.ErrPasswordInvalid, pkgerrors.KindInvalidVerificationCode},
		{"deadline", context.DeadlineExceeded, pkgerrors.KindTransportFailure},
		{"dial", errors.New("dial tcp: connection refused"), pkgerrors.KindTransportFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err, "op")
			assert.Equal(t, tt.want, pkgerrors.KindOf(got))
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestClassify_KeepsKindedAndNil(t *testing.T) {
	assert.NoError(t, classify(nil, "op"))

	kinded := pkgerrors.New(pkgerrors.KindNoChannelsConfigured, "none")
	assert.Same(t, kinded, classify(kinded, "op"))

	assert.ErrorIs(t, classify(ErrPasswordRequired, "op"), ErrPasswordRequired)
}
