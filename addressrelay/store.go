// Package addressrelay bridges a browser wallet-connect flow to the
// orchestrator: the page posts the connected destination address to a small
// HTTP facade, and the transfer command reads it back before starting a run.
package addressrelay

import "sync"

// MemoryStore holds the most recently relayed address. Last write wins.
type MemoryStore struct {
	mu      sync.RWMutex
	address string
	set     bool
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Set replaces the stored address.
func (s *MemoryStore) Set(address string) {
	s.mu.Lock()
	s.address = address
	s.set = true
	s.mu.Unlock()
}

// Get returns the stored address and whether one has been set.
func (s *MemoryStore) Get() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.address, s.set
}

// Clear resets the store, used at process stop so a stale address never
// leaks into the next run.
func (s *MemoryStore) Clear() {
	s.mu.Lock()
	s.address = ""
	s.set = false
	s.mu.Unlock()
}
