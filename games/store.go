/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package games

import (
	"slices"
	"sync"
	"time"
)

// game pairs a session with the lock that serializes every operation on it.
type game struct {
	mu      sync.Mutex
	session Session
}

// snapshot assumes g.mu is already held.
func (g *game) snapshot() Session {
	s := g.session
	s.Participants = slices.Clone(g.session.Participants)
	return s
}

// Store owns every live session, keyed by id. Sessions are never removed
// except by Reap.
type Store struct {
	mu    sync.RWMutex
	games map[string]*game
}

func NewStore() *Store {
	return &Store{
		games: make(map[string]*game),
	}
}

// add inserts s unless its id is already taken.
func (st *Store) add(s Session) bool {
	st.mu.Lock()
	defer st.mu.Unlock()

	if _, exists := st.games[s.ID]; exists {
		return false
	}

	st.games[s.ID] = &game{session: s}
	return true
}

func (st *Store) lookup(id string) (*game, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	g, ok := st.games[id]
	return g, ok
}

// Get returns a copy of the session with the given id.
func (st *Store) Get(id string) (Session, bool) {
	g, ok := st.lookup(id)
	if !ok {
		return Session{}, false
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	return g.snapshot(), true
}

// Len reports how many sessions are held.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()

	return len(st.games)
}

// Reap removes sessions whose last activity is before cutoff and returns
// their ids.
func (st *Store) Reap(cutoff time.Time) []string {
	st.mu.Lock()
	defer st.mu.Unlock()

	var reaped []string
	for id, g := range st.games {
		g.mu.Lock()
		last := g.session.LastActive
		g.mu.Unlock()

		if last.Before(cutoff) {
			delete(st.games, id)
			reaped = append(reaped, id)
		}
	}

	return reaped
}
