package planner

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/mirageholidays/trip-planner-api/internal/types"
)

// Store keeps live wizard sessions. Sessions are deliberately session-scoped
// state: in-process with a TTL, no persistence across restarts.
type Store struct {
	sessions *cache.Cache
}

const sessionTTL = 24 * time.Hour

func NewStore() *Store {
	return &Store{
		sessions: cache.New(sessionTTL, time.Hour),
	}
}

// Put registers a session; the TTL restarts on every Put.
func (st *Store) Put(s *Session) {
	st.sessions.Set(s.ID.String(), s, cache.DefaultExpiration)
}

// Get returns a live session or ErrNotFound once it expired.
func (st *Store) Get(id uuid.UUID) (*Session, error) {
	v, found := st.sessions.Get(id.String())
	if !found {
		return nil, fmt.Errorf("planner session %s: %w", id, types.ErrNotFound)
	}
	return v.(*Session), nil
}

// Delete drops a session immediately.
func (st *Store) Delete(id uuid.UUID) {
	st.sessions.Delete(id.String())
}

// Sweep evicts expired entries; wired to the periodic maintenance job.
func (st *Store) Sweep() {
	st.sessions.DeleteExpired()
}

// Len reports live session count (expired items may linger until sweep).
func (st *Store) Len() int {
	return st.sessions.ItemCount()
}
