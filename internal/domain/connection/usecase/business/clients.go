package business

import (
	"sync"

	"github.com/Conte777/NewsFlow/services/connector-service/internal/domain/connection/deps"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/infrastructure/metrics"
)

// clientRegistry holds the live protocol client of every account
type clientRegistry struct {
	mu      sync.RWMutex
	clients map[string]deps.ProtocolClient
	metrics *metrics.Metrics
}

func newClientRegistry(m *metrics.Metrics) *clientRegistry {
	return &clientRegistry{
		clients: make(map[string]deps.ProtocolClient),
		metrics: m,
	}
}

func (r *clientRegistry) get(accountID string) deps.ProtocolClient {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.clients[accountID]
}

// put registers c and returns the client it replaced, if any
func (r *clientRegistry) put(accountID string, c deps.ProtocolClient) deps.ProtocolClient {
	r.mu.Lock()
	prev := r.clients[accountID]
	r.clients[accountID] = c
	count := len(r.clients)
	r.mu.Unlock()

	r.metrics.UpdateActiveClients(count)
	if prev == c {
		return nil
	}
	return prev
}

func (r *clientRegistry) remove(accountID string) deps.ProtocolClient {
	r.mu.Lock()
	c, ok := r.clients[accountID]
	delete(r.clients, accountID)
	count := len(r.clients)
	r.mu.Unlock()

	if ok {
		r.metrics.UpdateActiveClients(count)
	}
	return c
}

// removeIf drops the account's client only when it is still c
func (r *clientRegistry) removeIf(accountID string, c deps.ProtocolClient) {
	r.mu.Lock()
	if cur, ok := r.clients[accountID]; ok && cur == c {
		delete(r.clients, accountID)
	}
	count := len(r.clients)
	r.mu.Unlock()
	r.metrics.UpdateActiveClients(count)
}

func (r *clientRegistry) drain() map[string]deps.ProtocolClient {
	r.mu.Lock()
	all := r.clients
	r.clients = make(map[string]deps.ProtocolClient)
	r.mu.Unlock()

	r.metrics.UpdateActiveClients(0)
	return all
}

func (r *clientRegistry) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}
