package telegram

import (
	"context"
	"errors"
	"testing"

	"github.com/gotd/td/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/Conte777/NewsFlow/services/connector-service/pkg/errors"
)

func TestStringStorage_RoundTrip(t *testing.T) {
	ctx := context.Background()

	empty, err := newStringStorage("")
	require.NoError(t, err)
	_, err = empty.LoadSession(ctx)
	assert.True(t, errors.Is(err, session.ErrNotFound))
	assert.Empty(t, empty.export())

	require.NoError(t, empty.StoreSession(ctx, []byte(`{"Version":1}`)))
	exported := empty.export()
	require.NotEmpty(t, exported)

	restored, err := newStringStorage(exported)
	require.NoError(t, err)
	data, err := restored.LoadSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"Version":1}`, string(data))
}

func TestStringStorage_Malformed(t *testing.T) {
	_, err := newStringStorage("%%% not base64 %%%")
	assert.True(t, pkgerrors.IsKind(err, pkgerrors.KindAuthenticationRequired))
}
