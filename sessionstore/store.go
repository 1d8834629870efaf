// Package sessionstore archives terminal transfer sessions to Postgres so
// transfer history survives restarts and failed runs stay auditable.
package sessionstore

import (
	_ "github.com/lib/pq"
)

// SessionStore archives and queries transfer sessions. A connection is opened
// per call, so an unreachable database degrades one call instead of pinning a
// broken pool.
type SessionStore struct {
	dbConnStr string
}

// NewSessionStore creates a new SessionStore instance with the provided
// connection string.
//
// Parameters:
// - connStr: the database connection string.
//
// Returns:
// - *SessionStore: a pointer to the newly created SessionStore instance.
// - error: an error if the creation of the SessionStore instance fails.
func NewSessionStore(connStr string) (*SessionStore, error) {
	return &SessionStore{
		dbConnStr: connStr,
	}, nil
}
