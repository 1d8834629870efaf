package orchestrator

import (
	"sync"

	commonerrors "github.com/crosslane/bridge-orchestrator/common/errors"
	"github.com/crosslane/bridge-orchestrator/common/types"
)

// SessionRegistry is the in-memory index of transfer sessions by transfer id.
// Sessions stay registered after reaching a terminal state so their step
// records remain queryable until the caller removes them.
type SessionRegistry struct {
	sessions      map[string]*types.TransferSession
	sessionsMutex sync.RWMutex
}

// NewSessionRegistry creates an empty session registry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[string]*types.TransferSession),
	}
}

// Add registers a session under its transfer id.
func (r *SessionRegistry) Add(session *types.TransferSession) {
	r.sessionsMutex.Lock()
	r.sessions[session.TransferID] = session
	r.sessionsMutex.Unlock()
}

// Get returns the session for a transfer id.
//
// Parameters:
// - transferID: the id minted when the session was created.
//
// Returns:
// - *types.TransferSession: the registered session.
// - error: ErrSessionNotFound when no session carries the id.
func (r *SessionRegistry) Get(transferID string) (*types.TransferSession, error) {
	r.sessionsMutex.RLock()
	session, ok := r.sessions[transferID]
	r.sessionsMutex.RUnlock()

	if !ok {
		return nil, commonerrors.ErrSessionNotFound
	}
	return session, nil
}

// Remove drops a session from the registry.
func (r *SessionRegistry) Remove(transferID string) {
	r.sessionsMutex.Lock()
	delete(r.sessions, transferID)
	r.sessionsMutex.Unlock()
}

// List returns all registered sessions in no particular order.
func (r *SessionRegistry) List() []*types.TransferSession {
	r.sessionsMutex.RLock()
	sessions := make([]*types.TransferSession, 0, len(r.sessions))
	for _, session := range r.sessions {
		sessions = append(sessions, session)
	}
	r.sessionsMutex.RUnlock()
	return sessions
}
