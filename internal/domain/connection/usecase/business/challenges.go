package business

import (
	"sync"
	"time"
)

// ChallengeTTL is how long a requested login code stays usable
const ChallengeTTL = 5 * time.Minute

// challenge is a pending login code request. It lives only in memory and
// is never written to the session store.
type challenge struct {
	accountID      string
	phoneCodeHash  string
	interimSession string
	expiresAt      time.Time
}

// challengeStore keeps at most one pending challenge per account
type challengeStore struct {
	mu    sync.Mutex
	items map[string]*challenge
	ttl   time.Duration
	now   func() time.Time
}

func newChallengeStore(ttl time.Duration) *challengeStore {
	return &challengeStore{
		items: make(map[string]*challenge),
		ttl:   ttl,
		now:   time.Now,
	}
}

func (s *challengeStore) put(accountID, phoneCodeHash, interimSession string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeLocked()
	s.items[accountID] = &challenge{
		accountID:      accountID,
		phoneCodeHash:  phoneCodeHash,
		interimSession: interimSession,
		expiresAt:      s.now().Add(s.ttl),
	}
}

// take removes and returns the account's challenge when it matches hash and
// has not expired. The challenge is discarded either way.
func (s *challengeStore) take(accountID, phoneCodeHash string) (*challenge, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, ok := s.items[accountID]
	if !ok {
		return nil, false
	}
	delete(s.items, accountID)

	if s.now().After(ch.expiresAt) {
		return nil, false
	}
	if phoneCodeHash != "" && ch.phoneCodeHash != phoneCodeHash {
		return nil, false
	}
	return ch, true
}

func (s *challengeStore) drop(accountID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, accountID)
}

func (s *challengeStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked()
	return len(s.items)
}

func (s *challengeStore) purgeLocked() {
	now := s.now()
	for id, ch := range s.items {
		if now.After(ch.expiresAt) {
			delete(s.items, id)
		}
	}
}
