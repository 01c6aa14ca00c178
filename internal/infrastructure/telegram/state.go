package telegram

import (
	"fmt"
	"sync"
)

var allowedTransitions = map[AuthState][]AuthState{
	StateUnauthorized:     {StateAwaitingCode, StateAuthorized},
	StateAwaitingCode:     {StateAwaitingCode, StateAwaitingPassword, StateAuthorized, StateUnauthorized},
	StateAwaitingPassword: {StateAuthorized, StateUnauthorized},
	StateAuthorized:       {StateAuthorized},
}

// authMachine guards the auth state of a client
type authMachine struct {
	mu    sync.RWMutex
	state AuthState
}

func newAuthMachine() *authMachine {
	return &authMachine{state: StateUnauthorized}
}

func (m *authMachine) current() AuthState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *authMachine) is(state AuthState) bool {
	return m.current() == state
}

// transition moves to next if the edge is allowed
func (m *authMachine) transition(next AuthState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, allowed := range allowedTransitions[m.state] {
		if allowed == next {
			m.state = next
			return nil
		}
	}
	return fmt.Errorf("invalid auth transition %s -> %s", m.state, next)
}

// reset returns to unauthorized from any state (logout, revoked session)
func (m *authMachine) reset() {
	m.mu.Lock()
	m.state = StateUnauthorized
	m.mu.Unlock()
}
