package pager

import (
	"errors"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"torrentbot/internal/domain"
)

// DefaultTimeout is how long a view stays usable after its last interaction.
const DefaultTimeout = 60 * time.Second

// Errors returned when resolving a session for an action.
var (
	ErrExpired  = errors.New("result view expired")
	ErrNotOwner = errors.New("result view belongs to another user")
)

// Store keeps open sessions. Each lookup refreshes the session's expiry,
// so the timeout counts from the last interaction.
type Store struct {
	sessions *lru.LRU[string, *Session]
}

// NewStore creates a store holding at most size sessions, each expiring
// after timeout of inactivity.
func NewStore(size int, timeout time.Duration) *Store {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Store{
		sessions: lru.NewLRU[string, *Session](size, nil, timeout),
	}
}

// Open creates and stores a new session for owner.
func (st *Store) Open(owner int64, items []domain.SearchResult) (*Session, error) {
	session, err := NewSession(uuid.NewString(), owner, items)
	if err != nil {
		return nil, err
	}
	st.sessions.Add(session.ID(), session)
	return session, nil
}

// Get returns the session with id for user, refreshing its expiry.
func (st *Store) Get(id string, user int64) (*Session, error) {
	session, ok := st.sessions.Get(id)
	if !ok {
		return nil, ErrExpired
	}
	if session.Owner() != user {
		return nil, ErrNotOwner
	}
	st.sessions.Add(id, session)
	return session, nil
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	return st.sessions.Len()
}
