package telegram

import (
	"context"
	"encoding/base64"
	"sync"

	"github.com/gotd/td/session"

	pkgerrors "github.com/Conte777/NewsFlow/services/connector-service/pkg/errors"
)

// stringStorage implements session.Storage over the exported session string.
// The string form is base64 of gotd's session JSON.
type stringStorage struct {
	mu   sync.Mutex
	data []byte
}

func newStringStorage(encoded string) (*stringStorage, error) {
	s := &stringStorage{}
	if encoded == "" {
		return s, nil
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.KindAuthenticationRequired, err, "malformed session string")
	}
	s.data = data
	return s, nil
}

// LoadSession loads session data from memory
func (s *stringStorage) LoadSession(_ context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.data) == 0 {
		return nil, session.ErrNotFound
	}
	out := make([]byte, len(s.data))
	copy(out, s.data)
	return out, nil
}

// StoreSession stores session data to memory
func (s *stringStorage) StoreSession(_ context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = make([]byte, len(data))
	copy(s.data, data)
	return nil
}

// export returns the portable session string, empty if nothing was stored yet
func (s *stringStorage) export() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.data) == 0 {
		return ""
	}
	return base64.StdEncoding.EncodeToString(s.data)
}

var _ session.Storage = (*stringStorage)(nil)
